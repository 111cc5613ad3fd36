// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "render_worker_commands_total",
			Help: "Total number of commands handled, by action and response status",
		},
		[]string{"action", "status"},
	)

	CommandsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "render_worker_command_failures_total",
			Help: "Total number of commands answered with an error response",
		},
		[]string{"action", "error_code", "category"},
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "render_worker_command_duration_seconds",
			Help:    "Duration of command handling in seconds",
			Buckets: []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"action"},
	)

	RenderedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "render_worker_rendered_bytes_total",
			Help: "Total number of output bytes produced by the rendering engine",
		},
	)

	WorkerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "render_worker_state",
			Help: "1 for the dispatcher state the worker is currently in, 0 otherwise",
		},
		[]string{"state"},
	)
)

// SetState marks state as the current dispatcher state.
func SetState(current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		WorkerState.WithLabelValues(s).Set(v)
	}
}
