package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	ScriptsRendered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "strap",
		Name:      "scripts_rendered_total",
		Help:      "strap.sh renders by result.",
	}, []string{"result"})

	AuthCallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "strap",
		Name:      "auth_callbacks_total",
		Help:      "OAuth callbacks by provider and result.",
	}, []string{"provider", "result"})

	GateRedirects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "strap",
		Name:      "gate_redirects_total",
		Help:      "Unauthenticated requests sent to sign in.",
	})
)

func init() {
	Registry.MustRegister(
		ScriptsRendered,
		AuthCallbacks,
		GateRedirects,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
