package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/pairs-data/internal/alert"
	"github.com/rickgao/pairs-data/internal/connection"
	"github.com/rickgao/pairs-data/internal/model"
	"github.com/rickgao/pairs-data/internal/router"
	"github.com/rickgao/pairs-data/internal/writer"
)

const namespace = "pairs"

// Metrics owns a registry and the per-symbol tick collectors.
type Metrics struct {
	registry  *prometheus.Registry
	ticks     *prometheus.CounterVec
	lastPrice *prometheus.GaugeVec
}

// New creates a registry with Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Trade ticks ingested.",
		}, []string{"symbol"}),
		lastPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_price",
			Help:      "Most recent trade price.",
		}, []string{"symbol"}),
	}
	reg.MustRegister(m.ticks, m.lastPrice)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// HandleTick records tick. It makes Metrics usable as a router sink.
func (m *Metrics) HandleTick(_ context.Context, tick model.Tick) error {
	m.ticks.WithLabelValues(tick.Symbol).Inc()
	m.lastPrice.WithLabelValues(tick.Symbol).Set(tick.Price)
	return nil
}

// Sources are the components whose counters are exported. Nil fields are skipped.
type Sources struct {
	Stream func() connection.StreamStats
	Router func() router.RouterStats
	Writer func() writer.Metrics
	Alerts func() alert.Stats
	Cache  func() int
}

// Register exports the counters of every non-nil source.
func (m *Metrics) Register(src Sources) {
	if f := src.Stream; f != nil {
		m.registry.MustRegister(
			gauge("stream_connected", "1 when the feed websocket is connected.", func() float64 {
				if f().State == connection.StateConnected {
					return 1
				}
				return 0
			}),
			counter("stream_connects_total", "Successful feed connections.", func() float64 { return float64(f().Connects) }),
			counter("stream_disconnects_total", "Feed disconnections.", func() float64 { return float64(f().Disconnects) }),
			counter("stream_messages_total", "Frames read from the feed.", func() float64 { return float64(f().Messages) }),
		)
	}
	if f := src.Router; f != nil {
		m.registry.MustRegister(
			counter("router_ticks_routed_total", "Ticks delivered to sinks.", func() float64 { return float64(f().TicksRouted) }),
			counter("router_parse_errors_total", "Frames dropped as unparseable.", func() float64 { return float64(f().ParseErrors) }),
			counter("router_sink_errors_total", "Sink deliveries that failed or panicked.", func() float64 { return float64(f().SinkErrors) }),
		)
	}
	if f := src.Writer; f != nil {
		m.registry.MustRegister(
			counter("writer_inserts_total", "Ticks written to the store.", func() float64 { return float64(f().Inserts) }),
			counter("writer_flushes_total", "Successful batch inserts.", func() float64 { return float64(f().Flushes) }),
			counter("writer_errors_total", "Failed batch inserts.", func() float64 { return float64(f().Errors) }),
			counter("writer_dropped_total", "Ticks dropped because the writer queue was full.", func() float64 { return float64(f().Dropped) }),
			gauge("writer_pending", "Ticks queued but not yet written.", func() float64 { return float64(f().Pending) }),
		)
	}
	if f := src.Alerts; f != nil {
		m.registry.MustRegister(
			counter("alert_cycles_total", "Alert evaluation cycles.", func() float64 { return float64(f().Cycles) }),
			counter("alert_triggered_total", "Alert events recorded.", func() float64 { return float64(f().Triggered) }),
			counter("alert_rule_errors_total", "Rule evaluations that failed.", func() float64 { return float64(f().RuleErrors) }),
		)
	}
	if f := src.Cache; f != nil {
		m.registry.MustRegister(
			gauge("cache_symbols", "Symbols in the last-tick cache.", func() float64 { return float64(f()) }),
		)
	}
}

func counter(name, help string, fn func() float64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, fn)
}

func gauge(name, help string, fn func() float64) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, fn)
}
