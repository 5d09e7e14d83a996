package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Manager holds the custom Prometheus metrics for the identity service.
type Manager struct {
	Registry                *prometheus.Registry
	RegistrationsTotal      prometheus.Counter
	EmailVerificationsTotal prometheus.Counter
	LoginFailuresTotal      prometheus.Counter
	AccountLockoutsTotal    prometheus.Counter
	AccountPurgesTotal      prometheus.Counter
	ResetRequestsTotal      prometheus.Counter
}

// NewManager initializes and registers the service metrics on a private
// registry so tests can construct managers independently.
func NewManager(serviceName string) *Manager {
	registry := prometheus.NewRegistry()

	registrationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "registrations_total",
		Help:      "Total number of accounts registered.",
	})
	emailVerificationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "email_verifications_total",
		Help:      "Total number of successful email verifications.",
	})
	loginFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "login_failures_total",
		Help:      "Total number of failed login attempts.",
	})
	accountLockoutsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "account_lockouts_total",
		Help:      "Total number of accounts locked after repeated login failures.",
	})
	accountPurgesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "account_purges_total",
		Help:      "Total number of accounts deleted after verification retry exhaustion.",
	})
	resetRequestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "reset_requests_total",
		Help:      "Total number of password reset codes issued.",
	})

	registry.MustRegister(
		registrationsTotal,
		emailVerificationsTotal,
		loginFailuresTotal,
		accountLockoutsTotal,
		accountPurgesTotal,
		resetRequestsTotal,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &Manager{
		Registry:                registry,
		RegistrationsTotal:      registrationsTotal,
		EmailVerificationsTotal: emailVerificationsTotal,
		LoginFailuresTotal:      loginFailuresTotal,
		AccountLockoutsTotal:    accountLockoutsTotal,
		AccountPurgesTotal:      accountPurgesTotal,
		ResetRequestsTotal:      resetRequestsTotal,
	}
}

// StartMetricsServer exposes /metrics on its own listener. A blank port
// disables the server.
func StartMetricsServer(port string, logger *zap.Logger, registry *prometheus.Registry) error {
	if port == "" {
		logger.Info("Prometheus metrics server port not configured, server will not start.")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	logger.Info("Prometheus metrics server starting", zap.String("port", port), zap.String("path", "/metrics"))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
	return server.ListenAndServe()
}
