// Package metrics provides Prometheus metrics for the Clover service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CleanPassesTotal tracks clean passes by mode and outcome
	CleanPassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "clean",
			Name:      "passes_total",
			Help:      "Total number of clean passes by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	// CleanPassDuration tracks clean pass duration in seconds
	CleanPassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "clean",
			Name:      "pass_duration_seconds",
			Help:      "Duration of clean passes in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"mode"},
	)

	// ClustersTotal tracks clusters committed
	ClustersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "clean",
			Name:      "clusters_total",
			Help:      "Total number of clusters committed",
		},
		[]string{"mode"},
	)

	// RecordsLinkedTotal tracks link rows written
	RecordsLinkedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "clean",
			Name:      "records_linked_total",
			Help:      "Total number of restaurants linked to a primary",
		},
		[]string{"mode"},
	)

	// RecordsRejectedTotal tracks rows rejected by validation
	RecordsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "clean",
			Name:      "records_rejected_total",
			Help:      "Total number of restaurants rejected before clustering",
		},
		[]string{"mode"},
	)

	// PropagatedInspectionsTotal tracks inspections rewritten to a primary
	PropagatedInspectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "clean",
			Name:      "propagated_inspections_total",
			Help:      "Total number of inspections rewritten to reference a primary",
		},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaPublishDuration tracks Kafka publish duration
	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Duration of Kafka publish operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	// RedisOperationDuration tracks Redis operation duration
	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Redis operations in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"operation"},
	)
)

// RecordCleanPass records a finished clean pass
func RecordCleanPass(mode, outcome string, durationSeconds float64) {
	CleanPassesTotal.WithLabelValues(mode, outcome).Inc()
	CleanPassDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// RecordClusters records the cluster counters of a pass
func RecordClusters(mode string, clusters, linked, rejected int) {
	ClustersTotal.WithLabelValues(mode).Add(float64(clusters))
	RecordsLinkedTotal.WithLabelValues(mode).Add(float64(linked))
	RecordsRejectedTotal.WithLabelValues(mode).Add(float64(rejected))
}

// RecordPropagatedInspections records rewritten inspections
func RecordPropagatedInspections(n int64) {
	if n > 0 {
		PropagatedInspectionsTotal.Add(float64(n))
	}
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string, durationSeconds float64) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
	KafkaPublishDuration.Observe(durationSeconds)
}

// RecordRedisOperation records a Redis operation
func RecordRedisOperation(operation string, durationSeconds float64) {
	RedisOperationDuration.WithLabelValues(operation).Observe(durationSeconds)
}
