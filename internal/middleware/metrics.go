package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tastebook_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// ModerationActions counts moderation actions by audit log tag.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tastebook_moderation_actions_total",
		Help: "Total number of successful moderation actions by action tag",
	}, []string{"action"})

	// LoginFailures counts failed login attempts by reason.
	LoginFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tastebook_login_failures_total",
		Help: "Total number of refused logins by reason",
	}, []string{"reason"})
)

// InitMetrics creates the Prometheus HTTP middleware for the Fiber app.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}
