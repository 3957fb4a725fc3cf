package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trektoo_storage_operations_total",
			Help: "Secure storage operations by operation and result.",
		},
		[]string{"operation", "result"},
	)

	StoragePurgedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trektoo_storage_purged_total",
			Help: "Records purged from secure storage, by reason.",
		},
		[]string{"reason"},
	)

	ClassifiedErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trektoo_errors_classified_total",
			Help: "Errors passed through the error service, by category.",
		},
		[]string{"category"},
	)

	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trektoo_retry_attempts_total",
			Help: "Retries scheduled by the retry helper, by error category.",
		},
		[]string{"category"},
	)

	RemoteLogDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trektoo_remote_log_dispatch_total",
			Help: "Remote log envelopes by outcome (sent, failed, dropped).",
		},
		[]string{"outcome"},
	)

	ClientLogsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trektoo_client_logs_ingested_total",
			Help: "Error envelopes received on the client log ingest endpoint, by level.",
		},
		[]string{"level"},
	)
)

// ObserveStorageOperation counts one secure storage call.
func ObserveStorageOperation(operation, result string) {
	StorageOperationsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveStoragePurge counts one record purged on read or sweep.
func ObserveStoragePurge(reason string) {
	StoragePurgedTotal.WithLabelValues(reason).Inc()
}

// ObserveClassifiedError counts one classified error.
func ObserveClassifiedError(category string) {
	ClassifiedErrorsTotal.WithLabelValues(category).Inc()
}

// ObserveRetry counts one scheduled retry.
func ObserveRetry(category string) {
	RetryAttemptsTotal.WithLabelValues(category).Inc()
}

// ObserveRemoteLogDispatch counts one remote log outcome.
func ObserveRemoteLogDispatch(outcome string) {
	RemoteLogDispatchTotal.WithLabelValues(outcome).Inc()
}

// ObserveClientLogIngested counts one envelope received from a client.
func ObserveClientLogIngested(level string) {
	ClientLogsIngestedTotal.WithLabelValues(level).Inc()
}
