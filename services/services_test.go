package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journey-progression/models"
	"journey-progression/progression"
)

func TestMatchJourney(t *testing.T) {
	cases := []struct {
		query  string
		fields []string
		want   bool
	}{
		{"", []string{"GOP 9"}, true},
		{"   ", []string{"GOP 9"}, true},
		{"breeze", []string{"The Breeze", "Outdoor lifestyle"}, true},
		{"BREEZE outdoor", []string{"The Breeze", "Outdoor lifestyle"}, true},
		{"breeze mall", []string{"The Breeze", "Outdoor lifestyle"}, false},
		{"cafe", []string{"Café Corner"}, true},
		{"café", []string{"Cafe Corner"}, true},
		{"plaza", []string{"AEON Mall"}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MatchJourney(tc.query, tc.fields...), "query %q", tc.query)
	}
}

func TestSeedCatalog(t *testing.T) {
	journeys, err := ParseCatalog(seedCatalog)
	require.NoError(t, err)
	require.Len(t, journeys, 5)

	slugs := make(map[string]int, len(journeys))
	for _, j := range journeys {
		slugs[j.SlugOrDefault()] = len(j.Checkpoints)
	}
	assert.Equal(t, 11, slugs["gop-9"])
	assert.Equal(t, 3, slugs["the-breeze"])
	assert.Equal(t, 4, slugs["aeon-mall"])
}

func TestParseCatalog_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"bad version":     `{"version":0,"journeys":[{"title":"A","checkpoints":[{"title":"x"}]}]}`,
		"no checkpoints":  `{"version":1,"journeys":[{"title":"A","checkpoints":[]}]}`,
		"missing title":   `{"version":1,"journeys":[{"checkpoints":[{"title":"x"}]}]}`,
		"bad latitude":    `{"version":1,"journeys":[{"title":"A","checkpoints":[{"title":"x","latitude":91}]}]}`,
		"duplicate slugs": `{"version":1,"journeys":[{"title":"A B","checkpoints":[{"title":"x"}]},{"title":"a-b","checkpoints":[{"title":"y"}]}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestEmbeddedCatalogSource(t *testing.T) {
	svc := NewCatalogService(nil, nil, 10)
	assert.Equal(t, "embedded", svc.Source.Name())

	journeys, err := svc.LoadJourneys(context.Background())
	require.NoError(t, err)
	assert.Len(t, journeys, 5)
}

func TestNewJourneyRow_LocksReward(t *testing.T) {
	svc := NewCatalogService(nil, EmbeddedCatalog(), 10)
	entry := CatalogJourney{
		Title: "The Breeze",
		Checkpoints: []CatalogCheckpoint{
			{Title: "Lakeside Walk"}, {Title: "Food Court"}, {Title: "Parking"},
		},
	}

	row, err := svc.newJourneyRow(entry.SlugOrDefault(), entry)
	require.NoError(t, err)
	assert.Equal(t, "the-breeze", row.Slug)
	assert.Equal(t, int64(30), row.XPReward)
	require.Len(t, row.Checkpoints, 3)
	for i, cp := range row.Checkpoints {
		assert.Equal(t, i, cp.Position)
		assert.Equal(t, row.ID, cp.JourneyID)
	}

	def := journeyDefinition(&row)
	assert.Equal(t, row.Checkpoints[2].ID, def.Checkpoints[2].ID)

	svc.XPPerCheckpoint = 0
	_, err = svc.newJourneyRow("x", entry)
	assert.ErrorIs(t, err, progression.ErrInvalidArgument)
}

func TestMeetsThreshold(t *testing.T) {
	table := progression.DefaultRankTable()
	prof := &models.UserProfile{JourneysCompleted: 1, CheckpointsVisited: 12}

	assert.True(t, MeetsThreshold(prof, table.RankFor(0), map[string]int64{models.ThresholdJourneysCompleted: 1}))
	assert.False(t, MeetsThreshold(prof, table.RankFor(0), map[string]int64{models.ThresholdJourneysCompleted: 5}))
	assert.False(t, MeetsThreshold(prof, table.RankFor(0), map[string]int64{models.ThresholdRankIndex: 1}))
	assert.True(t, MeetsThreshold(prof, table.RankFor(100), map[string]int64{models.ThresholdRankIndex: 1}))
	assert.False(t, MeetsThreshold(prof, table.RankFor(100), nil))
	assert.False(t, MeetsThreshold(prof, table.RankFor(100), map[string]int64{"unknown_metric": 1}))
	assert.False(t, MeetsThreshold(prof, table.RankFor(100), map[string]int64{
		models.ThresholdRankIndex:          1,
		models.ThresholdCheckpointsVisited: 25,
	}))
}

func TestBadgeTypeID_Stable(t *testing.T) {
	assert.Equal(t, BadgeTypeID("FIRST_JOURNEY"), BadgeTypeID("FIRST_JOURNEY"))
	assert.NotEqual(t, BadgeTypeID("FIRST_JOURNEY"), BadgeTypeID("RANK_2"))

	seen := map[string]bool{}
	for _, b := range models.BadgeTriggers {
		assert.False(t, seen[b.Code], "duplicate badge code %s", b.Code)
		seen[b.Code] = true
	}
}

func TestStoreErr(t *testing.T) {
	assert.NoError(t, storeErr(nil))

	invalid := fmt.Errorf("%w: bad", progression.ErrUnknownJourney)
	assert.Same(t, invalid, storeErr(invalid))

	dbErr := errors.New("connection reset")
	err := storeErr(dbErr)
	assert.ErrorIs(t, err, progression.ErrPersistence)
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, progression.ErrInvalidArgument)
}

func TestSummarize(t *testing.T) {
	svc := NewCatalogService(nil, nil, 10)
	entry := CatalogJourney{Title: "BSD Plaza", Checkpoints: []CatalogCheckpoint{{Title: "a"}, {Title: "b"}}}
	row, err := svc.newJourneyRow("bsd-plaza", entry)
	require.NoError(t, err)

	j, err := progression.RestoreJourney(journeyDefinition(&row), row.XPReward, []string{row.Checkpoints[0].ID}, false)
	require.NoError(t, err)

	sum := summarize(&row, j)
	assert.Equal(t, "bsd-plaza", sum.Slug)
	assert.Equal(t, int64(20), sum.XPReward)
	assert.Equal(t, 2, sum.TotalCheckpoints)
	assert.Equal(t, 1, sum.VisitedCheckpoints)
	assert.InDelta(t, 0.5, sum.FractionComplete, 1e-9)
	assert.Equal(t, progression.JourneyInProgress, sum.State)
}
