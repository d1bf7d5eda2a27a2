package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgharvest_queries_total",
			Help: "Total number of processed queries by outcome.",
		},
		[]string{"outcome"},
	)
	connectRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgharvest_connect_retries_total",
			Help: "Total number of retries after transient connectivity failures.",
		},
	)
	extractedRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgharvest_extracted_rows_total",
			Help: "Total number of rows fetched from the source database.",
		},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pgharvest_query_duration_seconds",
			Help:    "End-to-end duration of one query, fetch through materialization.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
	materializeDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pgharvest_materialize_duration_seconds",
			Help:    "Duration of partitioned parquet materialization per dataset.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
	)
	partitionFilesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgharvest_partition_files_total",
			Help: "Total number of parquet files written across all datasets.",
		},
	)
	uploadedBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgharvest_uploaded_bytes_total",
			Help: "Total bytes shipped to the object store.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		connectRetriesTotal,
		extractedRowsTotal,
		queryDurationSeconds,
		materializeDurationSeconds,
		partitionFilesTotal,
		uploadedBytesTotal,
	)
}

func ObserveQuery(outcome string, rows int, elapsed time.Duration) {
	queriesTotal.WithLabelValues(outcome).Inc()
	if rows > 0 {
		extractedRowsTotal.Add(float64(rows))
	}
	queryDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementConnectRetry() {
	connectRetriesTotal.Inc()
}

func ObserveMaterialize(files int, elapsed time.Duration) {
	if files > 0 {
		partitionFilesTotal.Add(float64(files))
	}
	materializeDurationSeconds.Observe(elapsed.Seconds())
}

func AddUploadedBytes(n int64) {
	if n > 0 {
		uploadedBytesTotal.Add(float64(n))
	}
}
