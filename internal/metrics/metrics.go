package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "super_tictactoe"

// Metrics groups the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	actions  *prometheus.CounterVec
	evicted  prometheus.Counter
	watchers prometheus.Gauge
}

// New registers the collectors on a fresh registry. activeGames is sampled on every scrape.
func New(activeGames func() int) *Metrics {
	registry := prometheus.NewRegistry()

	that := &Metrics{
		registry: registry,
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Accepted game actions by action name.",
		}, []string{"action"}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_evicted_total",
			Help:      "Games removed by the idle reaper.",
		}),
		watchers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watchers",
			Help:      "Open state watch subscriptions.",
		}),
	}

	registry.MustRegister(
		that.actions,
		that.evicted,
		that.watchers,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "games_active",
			Help:      "Games currently held in memory.",
		}, func() float64 { return float64(activeGames()) }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return that
}

// ActionApplied counts an accepted action. Unknown actions are folded into one label value.
func (that *Metrics) ActionApplied(action string, known bool) {
	if that == nil {
		return
	}

	if !known {
		action = "unknown"
	}

	that.actions.WithLabelValues(action).Inc()
}

func (that *Metrics) GamesEvicted(n int) {
	if that == nil {
		return
	}

	that.evicted.Add(float64(n))
}

func (that *Metrics) WatcherAdded() {
	if that == nil {
		return
	}

	that.watchers.Inc()
}

func (that *Metrics) WatcherRemoved() {
	if that == nil {
		return
	}

	that.watchers.Dec()
}

// Handler serves the registry in the Prometheus exposition format.
func (that *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(that.registry, promhttp.HandlerOpts{Registry: that.registry})
}

func (that *Metrics) Registry() *prometheus.Registry {
	return that.registry
}
