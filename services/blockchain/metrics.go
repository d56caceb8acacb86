package blockchain

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusBlockchainBlocksAdded    prometheus.Counter
	prometheusBlockchainBlocksRejected *prometheus.CounterVec
	prometheusBlockchainAddBlock       prometheus.Histogram

	prometheusBlockchainReorg      prometheus.Counter
	prometheusBlockchainReorgDepth prometheus.Histogram
	prometheusBlockchainRollback   prometheus.Counter

	// labelled by network, chains of the same network share a series
	prometheusBlockchainHeadIndex *prometheus.GaugeVec
	prometheusBlockchainUtxoCount *prometheus.GaugeVec
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusBlockchainBlocksAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "avercore",
			Subsystem: "blockchain",
			Name:      "blocks_added",
			Help:      "Number of blocks admitted into the block index",
		},
	)

	prometheusBlockchainBlocksRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "avercore",
			Subsystem: "blockchain",
			Name:      "blocks_rejected",
			Help:      "Number of blocks rejected, by reason",
		},
		[]string{"reason"},
	)

	prometheusBlockchainAddBlock = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "avercore",
			Subsystem: "blockchain",
			Name:      "add_block",
			Help:      "Histogram of AddBlock duration in seconds, including any reorg",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	prometheusBlockchainReorg = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "avercore",
			Subsystem: "blockchain",
			Name:      "reorg",
			Help:      "Number of reorgs that replaced at least one block of the best branch",
		},
	)

	prometheusBlockchainReorgDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "avercore",
			Subsystem: "blockchain",
			Name:      "reorg_depth",
			Help:      "Number of best branch blocks reverted per reorg",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		},
	)

	prometheusBlockchainRollback = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "avercore",
			Subsystem: "blockchain",
			Name:      "rollback",
			Help:      "Number of reorgs rolled back because a transaction of the new branch was invalid",
		},
	)

	prometheusBlockchainHeadIndex = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "avercore",
			Subsystem: "blockchain",
			Name:      "head_index",
			Help:      "Index of the head of the best branch",
		},
		[]string{"network"},
	)

	prometheusBlockchainUtxoCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "avercore",
			Subsystem: "blockchain",
			Name:      "utxo_count",
			Help:      "Number of unspent outputs on the best branch",
		},
		[]string{"network"},
	)
}
