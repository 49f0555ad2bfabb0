package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrgUnit(t *testing.T, name string, meta Record) *Entity {
	t.Helper()
	e := NewOrgUnit("org-1", name, 2)
	_, err := e.Initialize(meta)
	require.NoError(t, err)
	return e
}

func TestEntity_InitializeOrgUnit(t *testing.T) {
	e := newOrgUnit(t, "Science", Record{
		FieldDescription: "Faculty of science",
		"timestamp":      "2001-01-01T00:00:00Z",
		FieldOrgUnitName: "spoofed",
	})

	genesis := e.Chain().Block(0)
	require.NotNil(t, genesis)
	assert.Equal(t, "0", genesis.PrevHash)

	rec := genesis.Record()
	assert.Equal(t, OrgUnitGenesis, rec.Type())
	assert.Equal(t, "org-1", rec[FieldOrgUnitID])
	assert.Equal(t, "Science", rec[FieldOrgUnitName])
	assert.Equal(t, "Faculty of science", rec[FieldDescription])
	assert.NotContains(t, rec, "timestamp")
}

func TestEntity_SubUnitGenesisLinksToParent(t *testing.T) {
	org := newOrgUnit(t, "Science", nil)
	tip := org.Chain().Tip().Hash

	sub := NewSubUnit("sub-1", "Physics", org.ID(), tip, 2)
	_, err := sub.Initialize(Record{"capacity": 35})
	require.NoError(t, err)

	assert.True(t, sub.VerifyParentLinkage(tip))
	assert.Equal(t, tip, sub.ParentHash())
	assert.Equal(t, SubUnitGenesis, sub.Chain().Block(0).Record().Type())
	assert.Equal(t, org.ID(), sub.Chain().Block(0).Record()[FieldOrgUnitID])

	// the parent keeps growing; strict equality with its new tip fails
	_, err = org.RecordUpdate(Record{FieldDescriptionUpdated: "grown"})
	require.NoError(t, err)
	assert.False(t, sub.VerifyParentLinkage(org.Chain().Tip().Hash))
	assert.NotEqual(t, -1, org.Chain().HashIndex(sub.Chain().Block(0).PrevHash))
}

func TestEntity_VerifyParentLinkageWithoutBlocks(t *testing.T) {
	sub := NewSubUnit("sub-1", "Physics", "org", "hash", 1)
	assert.False(t, sub.VerifyParentLinkage("hash"))
	assert.Nil(t, sub.CurrentState())
}

func TestEntity_RenameLaw(t *testing.T) {
	e := newOrgUnit(t, "Science", nil)

	_, err := e.RecordUpdate(Record{FieldDescriptionUpdated: "before rename"})
	require.NoError(t, err)
	_, err = e.RecordUpdate(Record{FieldNameUpdated: "Natural Sciences"})
	require.NoError(t, err)
	_, err = e.RecordUpdate(Record{"building": "B"})
	require.NoError(t, err)

	assert.Equal(t, "Natural Sciences", e.Name())
	state := e.CurrentState()
	require.NotNil(t, state)
	assert.Equal(t, "Natural Sciences", state.Name)

	var names []string
	for entry := range e.History() {
		names = append(names, entry.Record.String(FieldOrgUnitName))
	}
	assert.Equal(t, []string{"Science", "Science", "Natural Sciences", "Natural Sciences"}, names)
}

func TestEntity_InvalidRename(t *testing.T) {
	e := newOrgUnit(t, "Science", nil)

	_, err := e.RecordUpdate(Record{FieldNameUpdated: ""})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = e.RecordUpdate(Record{FieldNameUpdated: 7})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Equal(t, "Science", e.Name())
	assert.Equal(t, 1, e.Len())
}

func TestEntity_CurrentStateActive(t *testing.T) {
	e := newOrgUnit(t, "Science", Record{FieldDescription: "original"})
	_, err := e.RecordUpdate(Record{FieldDescriptionUpdated: "revised"})
	require.NoError(t, err)
	_, err = e.RecordUpdate(Record{"floor": "3"})
	require.NoError(t, err)

	state := e.CurrentState()
	require.NotNil(t, state)
	assert.Equal(t, StatusActive, state.Status)
	assert.Equal(t, "revised", state.Description)
	assert.Equal(t, e.Chain().Block(0).Timestamp, *state.CreatedAt)
	assert.Equal(t, e.Chain().Tip().Timestamp, *state.LastUpdated)
	assert.Equal(t, "3", state.Fields["floor"])
	assert.Equal(t, string(OrgUnitUpdate), state.Fields[FieldType])
	assert.False(t, state.Deleted())

	assert.Equal(t, state, e.CurrentState(), "projection must be idempotent")
}

func TestEntity_DeletionIsTerminal(t *testing.T) {
	e := newOrgUnit(t, "Science", nil)
	_, err := e.MarkDeleted("closed")
	require.NoError(t, err)

	state := e.CurrentState()
	require.NotNil(t, state)
	assert.True(t, state.Deleted())
	assert.Equal(t, "closed", state.Reason)
	require.NotNil(t, state.DeletedAt)
	assert.Equal(t, e.Chain().Tip().Timestamp, *state.DeletedAt)

	_, err = e.RecordUpdate(Record{FieldDescriptionUpdated: "after"})
	require.NoError(t, err)
	assert.True(t, e.CurrentState().Deleted())
	assert.Equal(t, 3, e.Len(), "history is never erased")
}

func TestEntity_MarkDeletedDefaultReason(t *testing.T) {
	e := newOrgUnit(t, "Science", nil)
	_, err := e.MarkDeleted("")
	require.NoError(t, err)
	assert.Equal(t, "Org unit removed", e.CurrentState().Reason)
}

func TestEntity_HistoryIsRestartable(t *testing.T) {
	e := newOrgUnit(t, "Science", nil)
	_, err := e.MarkDeleted("closed")
	require.NoError(t, err)

	collect := func() []HistoryEntry {
		var out []HistoryEntry
		for entry := range e.History() {
			out = append(out, entry)
		}
		return out
	}
	first := collect()
	require.Len(t, first, 2)
	assert.Equal(t, first, collect())

	assert.Equal(t, OrgUnitGenesis, first[0].Action)
	assert.Equal(t, StatusActive, first[0].Status)
	assert.Equal(t, OrgUnitUpdate, first[1].Action)
	assert.Equal(t, StatusDeleted, first[1].Status)
	assert.Equal(t, e.Chain().Tip().Hash, first[1].Hash)

	for entry := range e.History() {
		assert.Equal(t, int64(0), entry.BlockIndex)
		break
	}
}

func TestEntity_UpdateCannotOverwriteIdentity(t *testing.T) {
	e := newOrgUnit(t, "Science", nil)
	b, err := e.RecordUpdate(Record{FieldOrgUnitID: "other", FieldType: "EVIL", "updatedAt": "x"})
	require.NoError(t, err)

	rec := b.Record()
	assert.Equal(t, "org-1", rec[FieldOrgUnitID])
	assert.Equal(t, OrgUnitUpdate, rec.Type())
	assert.NotContains(t, rec, "updatedAt")
}

func TestEntity_Stats(t *testing.T) {
	e := newOrgUnit(t, "Science", nil)
	_, err := e.RecordUpdate(Record{"a": "b"})
	require.NoError(t, err)

	st := e.Stats()
	assert.Equal(t, 2, st.BlockCount)
	assert.True(t, st.IsValid)
	assert.Equal(t, e.Chain().Block(0).Hash, st.GenesisHash)
	assert.Equal(t, e.Chain().Tip().Hash, st.LatestHash)
}
