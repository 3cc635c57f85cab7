package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsRegistry struct {
	registry         *prometheus.Registry
	transfersTotal   *prometheus.CounterVec
	transferDuration *prometheus.HistogramVec
	readsTotal       *prometheus.CounterVec
	idempotentTotal  *prometheus.CounterVec
}

func newMetricsRegistry() *metricsRegistry {
	transfers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nftrelay_transfers_total",
		Help: "Transfer requests by result kind",
	}, []string{"result"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nftrelay_transfer_duration_seconds",
		Help:    "Time from request to terminal transfer result",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"result"})

	reads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nftrelay_reads_total",
		Help: "Read requests (balance, uri, status) by endpoint and result kind",
	}, []string{"endpoint", "result"})

	idem := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nftrelay_idempotency_total",
		Help: "Idempotency-Key lookups by result",
	}, []string{"result"})

	r := prometheus.NewRegistry()
	r.MustRegister(transfers, duration, reads, idem)

	return &metricsRegistry{
		registry:         r,
		transfersTotal:   transfers,
		transferDuration: duration,
		readsTotal:       reads,
		idempotentTotal:  idem,
	}
}

func (m *metricsRegistry) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metricsRegistry) observeTransfer(result string, since time.Time) {
	m.transfersTotal.WithLabelValues(result).Inc()
	m.transferDuration.WithLabelValues(result).Observe(time.Since(since).Seconds())
}

func (m *metricsRegistry) incRead(endpoint, result string) {
	m.readsTotal.WithLabelValues(endpoint, result).Inc()
}

func (m *metricsRegistry) incIdempotency(result string) {
	m.idempotentTotal.WithLabelValues(result).Inc()
}
