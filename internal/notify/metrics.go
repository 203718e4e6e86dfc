package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type playerMetrics struct {
	cuesPlayedCounter prometheus.Counter
}

func newPlayerMetrics() *playerMetrics {
	metrics := new(playerMetrics)

	metrics.cuesPlayedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teams_notify_sound_cues_played_count",
		Help: "The number of notification sound cues played",
	})

	return metrics
}

var (
	metrics = newPlayerMetrics()
)
