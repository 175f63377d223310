package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chronos-tachyon/ticks/internal/constants"
)

// type Metrics {{{

type Metrics struct {
	PanicCount           prometheus.Counter
	RequestCountByMethod *prometheus.CounterVec
	ResponseCountByCode  *prometheus.CounterVec
	ResponseSize         prometheus.Histogram
	ResponseDuration     prometheus.Histogram
	StreamClients        prometheus.Gauge
	StreamFrames         prometheus.Counter
}

func NewMetrics(subsystem string) *Metrics {
	m := new(Metrics)

	m.PanicCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: constants.MetricNamespace,
			Subsystem: subsystem,
			Name:      "panics_total",
			Help:      "the number of HTTP requests whose handlers paniced",
		},
	)

	m.RequestCountByMethod = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: constants.MetricNamespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "the number of incoming HTTP requests",
		},
		[]string{"method"},
	)

	m.ResponseCountByCode = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: constants.MetricNamespace,
			Subsystem: subsystem,
			Name:      "responses_total",
			Help:      "the number of outgoing HTTP responses",
		},
		[]string{"code"},
	)

	m.ResponseSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: constants.MetricNamespace,
			Subsystem: subsystem,
			Name:      "response_size_bytes",
			Help:      "the size of the outgoing HTTP response",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		},
	)

	m.ResponseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: constants.MetricNamespace,
			Subsystem: subsystem,
			Name:      "response_duration_seconds",
			Help:      "the duration of the HTTP request lifetime",
			Buckets:   prometheus.ExponentialBuckets(0.001, 10, 7),
		},
	)

	m.StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: constants.MetricNamespace,
			Subsystem: subsystem,
			Name:      "stream_clients",
			Help:      "the number of connected WebSocket stream clients",
		},
	)

	m.StreamFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: constants.MetricNamespace,
			Subsystem: subsystem,
			Name:      "stream_frames_total",
			Help:      "the number of frames sent to WebSocket stream clients",
		},
	)

	for _, method := range []string{
		http.MethodOptions,
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
	} {
		m.RequestCountByMethod.WithLabelValues(simplifyHTTPMethod(method))
	}

	for _, code := range []int{
		http.StatusOK,
		http.StatusSwitchingProtocols,
		http.StatusBadRequest,
		http.StatusNotFound,
		http.StatusMethodNotAllowed,
		http.StatusInternalServerError,
	} {
		m.ResponseCountByCode.WithLabelValues(simplifyHTTPStatusCode(code))
	}

	return m
}

func (m *Metrics) All() []prometheus.Collector {
	return []prometheus.Collector{
		m.PanicCount,
		m.RequestCountByMethod,
		m.ResponseCountByCode,
		m.ResponseSize,
		m.ResponseDuration,
		m.StreamClients,
		m.StreamFrames,
	}
}

func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.All()...)
}

// }}}
