package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	runtimeStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "runtime",
			Name:      "start_attempts_total",
			Help:      "Runtime launch attempts made by EnsureRunning",
		},
	)

	runtimeUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chatd",
			Subsystem: "runtime",
			Name:      "up",
			Help:      "1 when the runtime answered its last probe",
		},
	)

	pullsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "runtime",
			Name:      "pulls_total",
			Help:      "Model pulls by outcome",
		},
		[]string{"outcome"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "runtime",
			Name:      "generations_total",
			Help:      "Local generations by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(runtimeStarts, runtimeUp, pullsTotal, generationsTotal)
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
