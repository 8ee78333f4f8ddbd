// Package metrics exports engine state as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const subsystem = "engine"

type Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// Notifier is an engine.Notifier that mirrors every status update into
// gauges and counts failed and cancelled work.
type Notifier struct {
	registry *prometheus.Registry

	Pending      prometheus.Gauge
	Results      prometheus.Gauge
	Failures     prometheus.Counter
	Cancellation prometheus.Counter
}

func New(namespace string) *Notifier {
	if namespace == "" {
		namespace = "mathengine"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Notifier{
		registry: reg,
		Pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pending_operations",
			Help:      "Operations waiting for their delay to elapse.",
		}),
		Results: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "results",
			Help:      "Answers currently held in the results list.",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "failed_operations_total",
			Help:      "Operations dropped because their computation failed.",
		}),
		Cancellation: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cancel_all_total",
			Help:      "Times every pending operation was cancelled.",
		}),
	}
}

func (n *Notifier) Update(pending, results int) {
	n.Pending.Set(float64(pending))
	n.Results.Set(float64(results))
}

func (n *Notifier) SetIdle() {
	n.Pending.Set(0)
	n.Cancellation.Inc()
}

func (n *Notifier) Failed(id string, err error) {
	n.Failures.Inc()
}

// Handler serves the notifier's registry in the Prometheus text format.
func (n *Notifier) Handler() http.Handler {
	return promhttp.HandlerFor(n.registry, promhttp.HandlerOpts{Registry: n.registry})
}
