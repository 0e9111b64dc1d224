package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	teeCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stmmctl",
			Subsystem: "tee",
			Name:      "calls_total",
			Help:      "Total transport calls to the trusted application.",
		},
		[]string{"transport", "op", "result"},
	)
	teeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stmmctl",
			Subsystem: "tee",
			Name:      "call_duration_seconds",
			Help:      "Transport call duration in seconds.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"transport", "op"},
	)
	negotiatedPayload = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "stmmctl",
			Subsystem: "session",
			Name:      "max_payload_bytes",
			Help:      "Negotiated maximum function body size.",
		},
		[]string{"transport"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(teeCalls, teeDuration, negotiatedPayload)
	})
}

func RecordTEECall(transport, op string, duration time.Duration, err error) {
	RegisterMetrics()
	result := "ok"
	if err != nil {
		result = "error"
	}
	teeCalls.WithLabelValues(transport, op, result).Inc()
	teeDuration.WithLabelValues(transport, op).Observe(duration.Seconds())
}

func RecordNegotiatedPayload(transport string, maxPayload int) {
	RegisterMetrics()
	negotiatedPayload.WithLabelValues(transport).Set(float64(maxPayload))
}

// WriteTextfile dumps the default registry in the node_exporter textfile
// collector format.
func WriteTextfile(path string) error {
	RegisterMetrics()
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
