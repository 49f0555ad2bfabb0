package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ledger counters and histograms, partitioned by tier.

var (
	// Mining
	BlocksMinedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "mining",
		Name:      "blocks_sealed_total",
		Help:      "Total blocks sealed with proof of work",
	}, []string{"tier"})

	MiningDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ledger",
		Subsystem: "mining",
		Name:      "seal_duration_seconds",
		Help:      "Time spent searching for a valid nonce",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"tier"})

	MiningNonce = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ledger",
		Subsystem: "mining",
		Name:      "nonce_attempts",
		Help:      "Nonce attempts needed per sealed block",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"tier"})

	// Manager
	ChainsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "manager",
		Name:      "chains_created_total",
		Help:      "Total chains created",
	}, []string{"tier"})

	ChainsDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "manager",
		Name:      "chains_deleted_total",
		Help:      "Total deletion records appended, cascades included",
	}, []string{"tier"})

	EventsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "manager",
		Name:      "events_recorded_total",
		Help:      "Total leaf events recorded",
	}, []string{"status"})

	// Validator
	ValidationRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "validator",
		Name:      "runs_total",
		Help:      "Total system audits by outcome",
	}, []string{"result"})

	InvalidChains = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ledger",
		Subsystem: "validator",
		Name:      "invalid_chains",
		Help:      "Chains reported invalid by the last system audit",
	}, []string{"tier"})
)
