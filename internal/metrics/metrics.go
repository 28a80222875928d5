package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	listingsSynced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nearnio",
			Name:      "listings_synced_total",
			Help:      "Listings upserted by the catalog synchronizer.",
		},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nearnio",
			Name:      "notifications_sent_total",
			Help:      "Listing notification attempts by outcome.",
		},
		[]string{"status"},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nearnio",
			Name:      "reminders_sent_total",
			Help:      "Deadline reminders sent, final tier flagged.",
		},
		[]string{"final"},
	)

	cronRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nearnio",
			Name:      "cron_runs_total",
			Help:      "Triggered operation runs by operation and outcome.",
		},
		[]string{"operation", "status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(listingsSynced, notificationsSent, remindersSent, cronRuns)
	})
}

func AddListingsSynced(n int) {
	listingsSynced.Add(float64(n))
}

func IncNotification(success bool) {
	notificationsSent.WithLabelValues(statusLabel(success)).Inc()
}

func IncReminder(isFinal bool) {
	label := "false"
	if isFinal {
		label = "true"
	}
	remindersSent.WithLabelValues(label).Inc()
}

func IncCronRun(operation string, success bool) {
	cronRuns.WithLabelValues(operation, statusLabel(success)).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
