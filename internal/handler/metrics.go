package handler

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/insider-one/notification-dispatcher/internal/service"
)

// Metrics holds Prometheus metrics
type Metrics struct {
	registry            *prometheus.Registry
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	dispatchesTotal     prometheus.Counter
	channelSendsTotal   *prometheus.CounterVec
	channelSendDuration *prometheus.HistogramVec
}

// NewMetrics creates the dispatcher metrics on their own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		dispatchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "notification_dispatches_total",
				Help: "Total number of dispatched notification requests",
			},
		),
		channelSendsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_channel_sends_total",
				Help: "Channel sends by outcome",
			},
			[]string{"channel", "outcome"},
		),
		channelSendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notification_channel_send_duration_seconds",
				Help:    "Time spent in a single channel send",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"channel"},
		),
	}
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDispatch counts one accepted notification request
func (m *Metrics) RecordDispatch() {
	m.dispatchesTotal.Inc()
}

// RecordResult records the outcome of one channel send
func (m *Metrics) RecordResult(event service.ResultEvent) {
	outcome := "failed"
	if event.Result.Success {
		outcome = "succeeded"
	}
	channel := string(event.Result.Channel)
	m.channelSendsTotal.WithLabelValues(channel, outcome).Inc()
	m.channelSendDuration.WithLabelValues(channel).Observe(event.Duration.Seconds())
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
