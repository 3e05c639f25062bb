package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for StableMint.
type Metrics struct {
	// --- Engine operations ---
	OpsApplied  *prometheus.CounterVec
	OpsRejected *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec
	Sequence    prometheus.Gauge

	// --- Solvency ---
	Liquidations         *prometheus.CounterVec
	CollateralSeized     *prometheus.CounterVec
	LiquidationBonus     *prometheus.CounterVec
	StalePriceRejections *prometheus.CounterVec
	DebtSupply           prometheus.Gauge
	CollateralValue      *prometheus.GaugeVec

	// --- Persistence ---
	PersistEventsWritten prometheus.Counter
	PersistBatchSize     prometheus.Histogram
	PersistBatchDur      prometheus.Histogram
	PersistErrors        *prometheus.CounterVec
	PublishDrops         prometheus.Counter

	// --- HTTP API ---
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	opBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mint_ops_applied_total",
			Help: "Write operations successfully applied",
		}, []string{"op"}),

		OpsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mint_ops_rejected_total",
			Help: "Write operations rejected (validation, solvency, oracle)",
		}, []string{"op", "reason"}),

		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mint_op_duration_seconds",
			Help:    "Time to apply a single write operation",
			Buckets: opBuckets,
		}, []string{"op"}),

		Sequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mint_sequence",
			Help: "Current global event sequence number",
		}),

		Liquidations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mint_liquidations_total",
			Help: "Executed liquidations",
		}, []string{"asset"}),

		CollateralSeized: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mint_collateral_seized_total",
			Help: "Collateral paid out to liquidators per asset, in base units",
		}, []string{"asset"}),

		LiquidationBonus: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mint_liquidation_bonus_total",
			Help: "Bonus portion of seized collateral per asset, in base units",
		}, []string{"asset"}),

		StalePriceRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mint_stale_price_rejections_total",
			Help: "Operations aborted on a stale or invalid oracle round",
		}, []string{"op"}),

		DebtSupply: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mint_debt_supply",
			Help: "Total outstanding debt recorded in the ledger",
		}),

		CollateralValue: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mint_collateral_deposited",
			Help: "Total deposited collateral per asset, in base units",
		}, []string{"asset"}),

		PersistEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mint_persist_events_written_total",
			Help: "Events written to Postgres",
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mint_persist_batch_size",
			Help:    "Events per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mint_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mint_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mint_publish_drops_total",
			Help: "Events dropped due to full publish channel",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mint_http_requests_total",
			Help: "API requests",
		}, []string{"endpoint", "status"}),

		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mint_http_request_duration_seconds",
			Help:    "API request latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),
	}
}
