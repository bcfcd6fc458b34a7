// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	MinutesDeducted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_minutes_deducted_total",
			Help: "Total entitlement minutes deducted, by specialist tier",
		},
		[]string{"tier"},
	)

	EntitlementCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_entitlement_cache_requests_total",
			Help: "Entitlement cache lookups, by result (hit or miss)",
		},
		[]string{"result"},
	)

	PayoutRequestsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payouts_requests_created_total",
			Help: "Total payout requests created",
		},
	)

	PayoutRequestsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payouts_requests_settled_total",
			Help: "Total payout requests settled, by final status",
		},
		[]string{"status"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notification delivery attempts, by channel and outcome",
		},
		[]string{"channel", "status"},
	)
)
