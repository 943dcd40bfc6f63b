// Package metrics provides Prometheus metrics for LED channels.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/ledctl/internal/led"
)

// Command results used as the "result" label.
const (
	ResultChanged   = "changed"
	ResultUnchanged = "unchanged"
	ResultRejected  = "rejected"
)

var (
	brightness = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ledctl",
		Name:      "brightness",
		Help:      "Current commanded brightness",
	}, []string{"channel"})

	target = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ledctl",
		Name:      "target",
		Help:      "Brightness the current fade converges to",
	}, []string{"channel"})

	maxBrightness = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ledctl",
		Name:      "max_brightness",
		Help:      "Brightness ceiling of the channel mode",
	}, []string{"channel"})

	busy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ledctl",
		Name:      "busy",
		Help:      "1 while a flash or fade is in progress",
	}, []string{"channel"})

	commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledctl",
		Name:      "commands_total",
		Help:      "Commands received, by operation and result",
	}, []string{"channel", "op", "result"})

	updates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledctl",
		Name:      "updates_total",
		Help:      "Update calls made by the control loop",
	}, []string{"channel"})
)

// Record sets the state gauges of channel.
func Record(channel string, s led.State) {
	brightness.WithLabelValues(channel).Set(float64(s.Brightness))
	target.WithLabelValues(channel).Set(float64(s.Target))
	maxBrightness.WithLabelValues(channel).Set(float64(s.MaxBrightness))
	b := 0.0
	if s.Busy {
		b = 1
	}
	busy.WithLabelValues(channel).Set(b)
}

// CommandApplied counts one command. op may be empty for unparseable payloads.
func CommandApplied(channel, op string, changed, rejected bool) {
	if op == "" {
		op = "unknown"
	}
	result := ResultUnchanged
	switch {
	case rejected:
		result = ResultRejected
	case changed:
		result = ResultChanged
	}
	commands.WithLabelValues(channel, op, result).Inc()
}

// UpdateCalled counts one Update call.
func UpdateCalled(channel string) {
	updates.WithLabelValues(channel).Inc()
}

// Delete removes all series of channel.
func Delete(channel string) {
	brightness.DeleteLabelValues(channel)
	target.DeleteLabelValues(channel)
	maxBrightness.DeleteLabelValues(channel)
	busy.DeleteLabelValues(channel)
	updates.DeleteLabelValues(channel)
	commands.DeletePartialMatch(prometheus.Labels{"channel": channel})
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
