// Package metrics exports supervisor activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/chromenode/internal/events"
	"github.com/smazurov/chromenode/internal/supervisor"
)

const namespace = "chromenode"

// Collector turns browser events into metrics.
type Collector struct {
	ready        prometheus.Counter
	deaths       prometheus.Counter
	restarts     prometheus.Counter
	terminations *prometheus.CounterVec
	up           prometheus.Gauge
	state        *prometheus.GaugeVec
}

// New registers the collector's metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		ready: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "browser",
			Name:      "ready_total",
			Help:      "Times the browser became reachable after a spawn",
		}),
		deaths: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "browser",
			Name:      "deaths_total",
			Help:      "Times the browser was found unreachable",
		}),
		restarts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "browser",
			Name:      "restarts_total",
			Help:      "Successful browser respawns",
		}),
		terminations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "browser",
			Name:      "terminations_total",
			Help:      "Supervisor terminations by reason",
		}, []string{"reason"}),
		up: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "browser",
			Name:      "up",
			Help:      "1 while the browser is reachable",
		}),
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "state",
			Help:      "1 for the current supervisor state",
		}, []string{"state"}),
	}
}

// Attach subscribes the collector to bus and returns an unsubscribe function.
func (c *Collector) Attach(bus *events.Bus) func() {
	unsubBrowser := bus.Subscribe(c.ObserveBrowser)
	unsubState := bus.Subscribe(c.ObserveState)
	return func() {
		unsubBrowser()
		unsubState()
	}
}

// ObserveBrowser records one browser event.
func (c *Collector) ObserveBrowser(e events.BrowserEvent) {
	switch e.Kind {
	case events.KindReady:
		c.ready.Inc()
		c.up.Set(1)
	case events.KindDied:
		c.deaths.Inc()
		c.up.Set(0)
	case events.KindRestarted:
		c.restarts.Inc()
	case events.KindTerminated:
		reason := "kill"
		if e.Error != "" {
			reason = "error"
		}
		c.terminations.WithLabelValues(reason).Inc()
		c.up.Set(0)
	}
}

// ObserveState records a state transition.
func (c *Collector) ObserveState(e events.BrowserStateChangedEvent) {
	for _, s := range supervisor.States {
		v := 0.0
		if string(s) == e.To {
			v = 1
		}
		c.state.WithLabelValues(string(s)).Set(v)
	}
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves the metrics gathered from g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
