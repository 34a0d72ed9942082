package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Manager holds the service's Prometheus metrics on a dedicated registry.
type Manager struct {
	Registry                 *prometheus.Registry
	RegistrationsTotal       prometheus.Counter
	VerificationsTotal       prometheus.Counter
	LoginsTotal              prometheus.Counter
	TokenRefreshesTotal      prometheus.Counter
	PasswordChangesTotal     prometheus.Counter
	AuthenticationFailsTotal prometheus.Counter
}

func NewManager(serviceName string) *Manager {
	registry := prometheus.NewRegistry()

	registrationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "registrations_total",
		Help:      "Total number of users registered.",
	})
	verificationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "verifications_total",
		Help:      "Total number of accounts verified.",
	})
	loginsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "logins_total",
		Help:      "Total number of successful logins.",
	})
	tokenRefreshesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "token_refreshes_total",
		Help:      "Total number of successful token refreshes.",
	})
	passwordChangesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "password_changes_total",
		Help:      "Total number of successful password changes.",
	})
	authenticationFailsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "authentication_failures_total",
		Help:      "Total number of failed credential validations.",
	})

	registry.MustRegister(
		registrationsTotal,
		verificationsTotal,
		loginsTotal,
		tokenRefreshesTotal,
		passwordChangesTotal,
		authenticationFailsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Manager{
		Registry:                 registry,
		RegistrationsTotal:       registrationsTotal,
		VerificationsTotal:       verificationsTotal,
		LoginsTotal:              loginsTotal,
		TokenRefreshesTotal:      tokenRefreshesTotal,
		PasswordChangesTotal:     passwordChangesTotal,
		AuthenticationFailsTotal: authenticationFailsTotal,
	}
}

// StartServer exposes the registry on /metrics. An empty port disables the
// server.
func StartServer(port string, logger *zap.Logger, registry *prometheus.Registry) error {
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
