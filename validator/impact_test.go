package validator

import (
	"testing"

	"attendance-ledger/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTamperImpact(t *testing.T) {
	h := build(t)

	sub2 := ledger.NewSubUnit("sub-2", "Chemistry", "org-1", h.org.Chain().Tip().Hash, 1)
	_, err := sub2.Initialize(nil)
	require.NoError(t, err)
	leaf2 := ledger.NewLeafEntity("leaf-2", "Bob", "R-2", "sub-2", "org-1", sub2.Chain().Tip().Hash, 1)
	_, err = leaf2.Initialize(nil)
	require.NoError(t, err)

	s := h.snap
	s.SubUnits = append(s.SubUnits, sub2)
	s.LeafEntities = append(s.LeafEntities, leaf2)

	org := CheckOrgUnitTamperImpact(s, "org-1")
	assert.ElementsMatch(t, []string{"sub-1", "sub-2"}, org.ImpactedSubUnits)
	assert.ElementsMatch(t, []string{"leaf-1", "leaf-2"}, org.ImpactedLeafEntities)
	assert.Equal(t, "Tampering org unit affects 2 sub-units and 2 leaf entities", org.Summary)

	sub := CheckSubUnitTamperImpact(s, "sub-2")
	assert.Equal(t, []string{"leaf-2"}, sub.ImpactedLeafEntities)

	none := CheckOrgUnitTamperImpact(s, "missing")
	assert.Empty(t, none.ImpactedSubUnits)
	assert.Empty(t, none.ImpactedLeafEntities)

	// reporting only: nothing was appended
	assert.Equal(t, 2, h.org.Len())
}
