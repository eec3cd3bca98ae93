package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the workflow.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	repositionsCreated prometheus.Counter
	transfersRequested prometheus.Counter
	transfersProcessed *prometheus.CounterVec
	rateLimitHits      prometheus.Counter
	timersStarted      prometheus.Counter
	timersStopped      prometheus.Counter
}

// NewMetricsService registers the workflow collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	repositionsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "repositions_created_total",
		Help: "Total repositions opened",
	})

	transfersRequested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transfers_requested_total",
		Help: "Total area handoff requests",
	})

	transfersProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transfers_processed_total",
		Help: "Total handoffs resolved, by outcome",
	}, []string{"action"})

	rateLimitHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transfer_cooldown_hits_total",
		Help: "Handoff requests blocked by the cooldown window",
	})

	timersStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timers_started_total",
		Help: "Live timers started",
	})

	timersStopped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timers_stopped_total",
		Help: "Live timers stopped",
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		repositionsCreated, transfersRequested, transfersProcessed,
		rateLimitHits, timersStarted, timersStopped,
	)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		repositionsCreated: repositionsCreated,
		transfersRequested: transfersRequested,
		transfersProcessed: transfersProcessed,
		rateLimitHits:      rateLimitHits,
		timersStarted:      timersStarted,
		timersStopped:      timersStopped,
	}
}

// Handler serves the Prometheus exposition endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one request observation.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": http.StatusText(status)}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// RepositionCreated increments the created counter.
func (s *MetricsService) RepositionCreated() {
	if s != nil {
		s.repositionsCreated.Inc()
	}
}

// TransferRequested increments the handoff counter.
func (s *MetricsService) TransferRequested() {
	if s != nil {
		s.transfersRequested.Inc()
	}
}

// TransferProcessed increments the resolution counter by outcome.
func (s *MetricsService) TransferProcessed(action string) {
	if s != nil {
		s.transfersProcessed.WithLabelValues(action).Inc()
	}
}

// RateLimitHit counts a blocked handoff request.
func (s *MetricsService) RateLimitHit() {
	if s != nil {
		s.rateLimitHits.Inc()
	}
}

// TimerStarted counts a live timer start.
func (s *MetricsService) TimerStarted() {
	if s != nil {
		s.timersStarted.Inc()
	}
}

// TimerStopped counts a live timer stop.
func (s *MetricsService) TimerStopped() {
	if s != nil {
		s.timersStopped.Inc()
	}
}
