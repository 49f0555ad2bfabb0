package ledger

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_MineMeetsTargetAndIsValid(t *testing.T) {
	b := newBlock(0, []Record{{FieldType: "T", "k": "v"}}, "0", TierOrgUnit)
	require.NoError(t, b.Mine(2))

	assert.True(t, strings.HasPrefix(b.Hash, "00"))
	assert.Len(t, b.Hash, 64)
	assert.Positive(t, b.Nonce)
	assert.True(t, b.IsValid(2))
	assert.Equal(t, b.Hash, b.ComputeHash(), "recomputation must be deterministic")
	assert.Equal(t, b.ComputeHash(), b.ComputeHash())
}

func TestBlock_TamperedPayloadFailsValidation(t *testing.T) {
	b := newBlock(1, []Record{{"name": "Ada"}}, "abc", TierLeafEntity)
	require.NoError(t, b.Mine(1))

	b.Transactions[0]["name"] = "Eve"
	assert.False(t, b.IsValid(1))
}

func TestBlock_HigherDifficultyThanSealedFails(t *testing.T) {
	b := newBlock(0, []Record{{"x": 1}}, "0", TierOrgUnit)
	require.NoError(t, b.Mine(1))

	assert.True(t, b.IsValid(1))
	assert.True(t, b.IsValid(0))
	assert.False(t, b.IsValid(64))
}

func TestBlock_HashSurvivesJSONRoundTrip(t *testing.T) {
	b := newBlock(3, []Record{{"capacity": 35, "section": "A", "nested": map[string]any{"b": 2, "a": 1}}}, "prev", TierSubUnit)
	require.NoError(t, b.Mine(2))

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var back Block
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, b.Hash, back.ComputeHash())
	assert.True(t, back.IsValid(2))
}

func TestBlock_UnencodablePayload(t *testing.T) {
	b := newBlock(0, []Record{{"fn": func() {}}}, "0", TierOrgUnit)
	assert.Error(t, b.Mine(1))
	assert.Empty(t, b.ComputeHash())
	assert.False(t, b.IsValid(0))
}

func TestMeetsTarget(t *testing.T) {
	assert.True(t, MeetsTarget("00ab", 2))
	assert.False(t, MeetsTarget("0a0b", 2))
	assert.True(t, MeetsTarget("ab", 0))
	assert.True(t, MeetsTarget("ab", -1))
}
