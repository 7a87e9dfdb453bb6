package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioTable(t *testing.T) *RankTable {
	t.Helper()
	table, err := NewRankTable([]RankDefinition{
		{Name: RankNovice, MinXP: 0},
		{Name: RankExplorer, MinXP: 100},
		{Name: RankAdventurer, MinXP: 250},
	})
	require.NoError(t, err)
	return table
}

func TestRankFor_Thresholds(t *testing.T) {
	table := scenarioTable(t)

	cases := []struct {
		xp   int64
		want RankName
	}{
		{0, RankNovice},
		{99, RankNovice},
		{100, RankExplorer},
		{249, RankExplorer},
		{250, RankAdventurer},
		{1_000_000, RankAdventurer},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, table.RankFor(tc.xp).Name, "xp=%d", tc.xp)
	}
}

func TestRankFor_NegativeClampsToLowest(t *testing.T) {
	table := scenarioTable(t)
	assert.Equal(t, RankNovice, table.RankFor(-5).Name)
}

// TestRankFor_HighestQualifyingRank checks every xp in a range resolves to the
// highest rank whose threshold it meets, and that resolution is monotonic.
func TestRankFor_HighestQualifyingRank(t *testing.T) {
	table := DefaultRankTable()
	ranks := table.Ranks()

	prev := table.RankFor(0)
	for xp := int64(0); xp <= 1200; xp++ {
		got := table.RankFor(xp)
		require.LessOrEqual(t, got.MinXP, xp)
		for _, r := range ranks {
			if r.MinXP <= xp {
				require.LessOrEqual(t, r.Index, got.Index, "xp=%d qualifies for higher rank %s", xp, r.Name)
			}
		}
		require.GreaterOrEqual(t, got.Index, prev.Index, "rank went down at xp=%d", xp)
		prev = got
	}
}

func TestNextRankAndRequiredXP(t *testing.T) {
	table := scenarioTable(t)

	novice := table.RankFor(0)
	next, ok := table.NextRank(novice)
	require.True(t, ok)
	assert.Equal(t, RankExplorer, next.Name)
	assert.Equal(t, int64(100), table.RequiredXPForNextRank(novice))

	explorer := table.RankFor(100)
	assert.Equal(t, int64(150), table.RequiredXPForNextRank(explorer))

	top := table.RankFor(250)
	_, ok = table.NextRank(top)
	assert.False(t, ok)
	assert.Equal(t, int64(0), table.RequiredXPForNextRank(top))
}

func TestNewRankTable_Invariants(t *testing.T) {
	cases := map[string][]RankDefinition{
		"empty":          nil,
		"first not zero": {{Name: RankNovice, MinXP: 5}},
		"equal thresholds": {
			{Name: RankNovice, MinXP: 0},
			{Name: RankExplorer, MinXP: 0},
		},
		"decreasing": {
			{Name: RankNovice, MinXP: 0},
			{Name: RankExplorer, MinXP: 100},
			{Name: RankAdventurer, MinXP: 50},
		},
		"duplicate name": {
			{Name: RankNovice, MinXP: 0},
			{Name: RankNovice, MinXP: 10},
		},
		"missing name": {
			{Name: RankNovice, MinXP: 0},
			{Name: "", MinXP: 10},
		},
	}
	for name, defs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRankTable(defs)
			require.ErrorIs(t, err, ErrConfigInvariant)
		})
	}
}

func TestRanks_ReturnsCopy(t *testing.T) {
	table := DefaultRankTable()
	ranks := table.Ranks()
	ranks[0].MinXP = 999

	assert.Equal(t, int64(0), table.Lowest().MinXP)
	assert.Len(t, ranks, 5)

	legend, ok := table.Lookup(RankLegend)
	require.True(t, ok)
	assert.Equal(t, int64(1000), legend.MinXP)
}
