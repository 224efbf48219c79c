package metrics

import (
	"net/http"

	"github.com/clothingstore/catalog-service/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Manager holds the service's Prometheus metrics on a private registry.
type Manager struct {
	Registry            *prometheus.Registry
	ReviewsCreatedTotal prometheus.Counter
	ReviewUpdatesTotal  prometheus.Counter
	ReviewDeletesTotal  prometheus.Counter
	RepliesCreatedTotal prometheus.Counter
	APIErrorsTotal      *prometheus.CounterVec
	RequestLatency      *prometheus.HistogramVec
}

// NewManager initializes and registers the service metrics.
func NewManager(serviceName string) *Manager {
	registry := prometheus.NewRegistry()

	reviewsCreatedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "reviews_created_total",
		Help:      "Total number of reviews created.",
	})
	reviewUpdatesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "review_updates_total",
		Help:      "Total number of reviews edited.",
	})
	reviewDeletesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "review_deletes_total",
		Help:      "Total number of reviews deleted.",
	})
	repliesCreatedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "replies_created_total",
		Help:      "Total number of replies posted to reviews.",
	})
	apiErrorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "api_errors_total",
		Help:      "Total number of API errors by route and error kind.",
	}, []string{"route", "kind"})
	requestLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: serviceName,
		Name:      "http_request_latency_seconds",
		Help:      "Latency of HTTP requests by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	registry.MustRegister(
		reviewsCreatedTotal,
		reviewUpdatesTotal,
		reviewDeletesTotal,
		repliesCreatedTotal,
		apiErrorsTotal,
		requestLatency,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &Manager{
		Registry:            registry,
		ReviewsCreatedTotal: reviewsCreatedTotal,
		ReviewUpdatesTotal:  reviewUpdatesTotal,
		ReviewDeletesTotal:  reviewDeletesTotal,
		RepliesCreatedTotal: repliesCreatedTotal,
		APIErrorsTotal:      apiErrorsTotal,
		RequestLatency:      requestLatency,
	}
}

// StartMetricsServer exposes the registry on /metrics and blocks serving it.
func StartMetricsServer(port string, appLogger *logger.Logger, registry *prometheus.Registry) error {
	if port == "" {
		appLogger.Info("Prometheus metrics server port not configured, server will not start")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	appLogger.Info("Prometheus metrics server starting", zap.String("port", port), zap.String("path", "/metrics"))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
	return server.ListenAndServe()
}
