package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "collection"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type", "detail"}, // database/auth/validation/import/cache
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status", "type"}, // success/failure, login/register/change_password
	)

	EntityOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_operations_total",
			Help: "Total number of entity mutations",
		},
		[]string{"kind", "operation"},
	)

	SnapshotsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshots_applied_total",
			Help: "Collection snapshots applied to session caches",
		},
		[]string{"kind"},
	)

	RemindersFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_fired_total",
			Help: "Reminder notifications emitted by the due-check scheduler",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions_total",
			Help: "Sessions with live subscriptions",
		},
	)
)

// TrackDBOperation tracks database operation duration
func TrackDBOperation(operation, collection string) *prometheus.Timer {
	return prometheus.NewTimer(DBOperationDuration.WithLabelValues(operation, collection))
}

// TrackError increments the error counter by type
func TrackError(errorType, detail string) {
	ErrorsTotal.WithLabelValues(errorType, detail).Inc()
}

// TrackAuthAttempt records authentication attempts
func TrackAuthAttempt(status, authType string) {
	AuthAttempts.WithLabelValues(status, authType).Inc()
}

func TrackEntityOperation(kind, operation string) {
	EntityOperationsTotal.WithLabelValues(kind, operation).Inc()
}

func TrackSnapshot(kind string) {
	SnapshotsApplied.WithLabelValues(kind).Inc()
}

func TrackReminderFired() {
	RemindersFired.Inc()
}

func UpdateActiveSessions(count float64) {
	ActiveSessions.Set(count)
}
