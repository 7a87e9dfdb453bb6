package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_xp_awarded_total",
		Help: "XP applied to user ledgers, by reason.",
	}, []string{"reason"})

	RankUps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_rank_ups_total",
		Help: "Rank transitions, by the rank reached.",
	}, []string{"rank"})

	JourneyCompletions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "journey_completions_total",
		Help: "Journeys completed (reward paid).",
	})

	CheckpointVisits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_checkpoint_visits_total",
		Help: "Checkpoint visit calls, by result: new, repeat, unknown, error.",
	}, []string{"result"})

	CatalogSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_catalog_syncs_total",
		Help: "Catalog sync runs, by outcome.",
	}, []string{"outcome"})
)

// ObserveGain records one ledger gain.
func ObserveGain(reason string, amount int64, rankChanged bool, newRank string) {
	XPAwarded.WithLabelValues(reason).Add(float64(amount))
	if rankChanged {
		RankUps.WithLabelValues(newRank).Inc()
	}
}
