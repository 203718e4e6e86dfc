package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type pollerMetrics struct {
	cycleCounter        prometheus.Counter
	cycleFailureCounter prometheus.Counter
}

func newPollerMetrics() *pollerMetrics {
	metrics := new(pollerMetrics)

	metrics.cycleCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teams_notify_poll_cycles_count",
		Help: "The number of poll cycles started",
	})

	metrics.cycleFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teams_notify_poll_cycle_failures_count",
		Help: "The number of poll cycles that ended in a panic",
	})

	return metrics
}

var (
	metrics = newPollerMetrics()
)
