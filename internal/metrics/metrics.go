// Package metrics exports dispatch, toggle and session counters to Prometheus.
package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pkt.systems/rollcall/core"
)

const namespace = "rollcall"

// Gauges supplies scrape-time values. Nil funcs report zero.
type Gauges struct {
	Sessions    func() int
	Subscribers func() int
}

// Collector implements core.Observer and core.FlipObserver on a private registry.
type Collector struct {
	registry   *prom.Registry
	dispatches *prom.CounterVec
	names      prom.Histogram
	flips      *prom.CounterVec
}

// New builds a Collector with go/process collectors and the given gauges registered.
func New(gauges Gauges) *Collector {
	c := &Collector{
		registry: prom.NewRegistry(),
		dispatches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Actions dispatched to session stores",
		}, []string{"action", "changed"}),
		names: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "list_length",
			Help:      "Name list length after each dispatch",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		flips: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "toggle_flips_total",
			Help:      "Toggle flips by resulting value",
		}, []string{"value"}),
	}
	c.registry.MustRegister(c.dispatches, c.names, c.flips)
	c.registry.MustRegister(
		prom.NewGaugeFunc(prom.GaugeOpts{Namespace: namespace, Name: "sessions", Help: "Live sessions"}, gaugeValue(gauges.Sessions)),
		prom.NewGaugeFunc(prom.GaugeOpts{Namespace: namespace, Name: "stream_subscribers", Help: "Open change-event subscriptions"}, gaugeValue(gauges.Subscribers)),
	)
	c.registry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return c
}

// ObserveDispatch records one dispatch.
func (c *Collector) ObserveDispatch(action core.Action, before, after core.State) {
	if c == nil {
		return
	}
	kind := "unknown"
	if action != nil {
		kind = string(action.Kind())
	}
	changed := "false"
	if !before.Equal(after) {
		changed = "true"
	}
	c.dispatches.WithLabelValues(kind, changed).Inc()
	c.names.Observe(float64(after.Len()))
}

// ObserveFlip records a toggle flip.
func (c *Collector) ObserveFlip(value bool) {
	if c == nil {
		return
	}
	label := "false"
	if value {
		label = "true"
	}
	c.flips.WithLabelValues(label).Inc()
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prom.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func gaugeValue(fn func() int) func() float64 {
	return func() float64 {
		if fn == nil {
			return 0
		}
		return float64(fn())
	}
}
