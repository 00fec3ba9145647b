// Package metric holds the Prometheus instruments for the client and the feed
// server. Every method is safe on a nil *Metrics, so components can run
// without metrics wired.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wikistream"

type Metrics struct {
	registry *prometheus.Registry

	framesReceived   *prometheus.CounterVec
	notifications    prometheus.Counter
	decodeFailures   prometheus.Counter
	lengths          prometheus.Counter
	cumulativeLength prometheus.Gauge
	feedFramesSent   prometheus.Counter
}

// New creates the instruments on a private registry together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Websocket frames read by the client, by frame kind.",
		}, []string{"kind"}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Frames decoded into notifications.",
		}),
		decodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Frames that were not a JSON object text message.",
		}),
		lengths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lengths_total",
			Help:      "Values emitted on the content length stream.",
		}),
		cumulativeLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cumulative_length",
			Help:      "Last value of the cumulative length stream.",
		}),
		feedFramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "frames_sent_total",
			Help:      "Frames written by the feed server.",
		}),
	}

	m.registry.MustRegister(
		m.framesReceived,
		m.notifications,
		m.decodeFailures,
		m.lengths,
		m.cumulativeLength,
		m.feedFramesSent,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) FrameReceived(kind string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) NotificationDecoded() {
	if m == nil {
		return
	}
	m.notifications.Inc()
}

func (m *Metrics) DecodeFailed() {
	if m == nil {
		return
	}
	m.decodeFailures.Inc()
}

func (m *Metrics) LengthEmitted() {
	if m == nil {
		return
	}
	m.lengths.Inc()
}

func (m *Metrics) SetCumulativeLength(v int) {
	if m == nil {
		return
	}
	m.cumulativeLength.Set(float64(v))
}

func (m *Metrics) FeedFrameSent() {
	if m == nil {
		return
	}
	m.feedFramesSent.Inc()
}
