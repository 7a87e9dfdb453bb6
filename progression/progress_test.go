package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_MidRank(t *testing.T) {
	table := scenarioTable(t)

	p := table.Progress(150)
	assert.Equal(t, RankExplorer, p.CurrentRank.Name)
	assert.Equal(t, int64(50), p.XPIntoCurrentRank)
	assert.Equal(t, int64(150), p.XPRequiredForNextRank)
	assert.InDelta(t, 0.3333, p.FractionComplete, 0.001)
	assert.False(t, p.IsMaxRank)
	require.NotNil(t, p.NextRank)
	assert.Equal(t, RankAdventurer, p.NextRank.Name)
}

func TestProgress_MaxRank(t *testing.T) {
	table := scenarioTable(t)

	p := table.Progress(400)
	assert.True(t, p.IsMaxRank)
	assert.Equal(t, 1.0, p.FractionComplete)
	assert.Equal(t, int64(0), p.XPRequiredForNextRank)
	assert.Equal(t, int64(150), p.XPIntoCurrentRank)
	assert.Nil(t, p.NextRank)
}

func TestProgress_FractionBounds(t *testing.T) {
	table := DefaultRankTable()
	for xp := int64(0); xp <= 1500; xp += 7 {
		p := table.Progress(xp)
		require.GreaterOrEqual(t, p.FractionComplete, 0.0, "xp=%d", xp)
		require.LessOrEqual(t, p.FractionComplete, 1.0, "xp=%d", xp)
		if p.FractionComplete == 1.0 {
			require.True(t, p.IsMaxRank, "fraction 1.0 below max rank at xp=%d", xp)
		}
	}
}

func TestProgress_AtThresholdStartsNewBand(t *testing.T) {
	table := scenarioTable(t)

	p := table.Progress(100)
	assert.Equal(t, RankExplorer, p.CurrentRank.Name)
	assert.Equal(t, int64(0), p.XPIntoCurrentRank)
	assert.Equal(t, 0.0, p.FractionComplete)
}
