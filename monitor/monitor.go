// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ConnectedClients prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	EventsReceived   prometheus.Counter
	BroadcastsSent   prometheus.Counter
	EventLatency     prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Number of live transport connections",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms in the registry",
		}),
		EventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total number of inbound events",
		}),
		BroadcastsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_sent_total",
			Help:      "Total number of room-state broadcasts",
		}),
		EventLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_latency_seconds",
			Help:      "Event processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	prometheus.MustRegister(
		m.ConnectedClients,
		m.ActiveRooms,
		m.EventsReceived,
		m.BroadcastsSent,
		m.EventLatency,
	)

	return m
}

// Monitor wraps the metric set. A nil *Monitor is valid and inert, which
// keeps metrics optional in tests and tools.
type Monitor struct {
	metrics   *Metrics
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())

	// 添加expvar指标
	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))

	go http.ListenAndServe(addr, nil)
}

func (m *Monitor) IncConnectedClients() {
	if m == nil {
		return
	}
	m.metrics.ConnectedClients.Inc()
}

func (m *Monitor) DecConnectedClients() {
	if m == nil {
		return
	}
	m.metrics.ConnectedClients.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	if m == nil {
		return
	}
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncEventsReceived() {
	if m == nil {
		return
	}
	m.metrics.EventsReceived.Inc()
}

func (m *Monitor) IncBroadcastsSent() {
	if m == nil {
		return
	}
	m.metrics.BroadcastsSent.Inc()
}

func (m *Monitor) ObserveEventLatency(duration time.Duration) {
	if m == nil {
		return
	}
	m.metrics.EventLatency.Observe(duration.Seconds())
}
