package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	RollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rollbacknet",
			Name:      "rollbacks_total",
			Help:      "Total number of rollback passes.",
		},
		[]string{"session"},
	)

	RolledBackFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rollbacknet",
			Name:      "rolled_back_frames_total",
			Help:      "Total number of frames re-simulated by rollback passes.",
		},
		[]string{"session"},
	)

	PredictedInputs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rollbacknet",
			Name:      "predicted_inputs_total",
			Help:      "Total number of input reads answered with a prediction.",
		},
		[]string{"session"},
	)

	Mispredictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rollbacknet",
			Name:      "mispredictions_total",
			Help:      "Total number of predictions contradicted by a confirmed input.",
		},
		[]string{"session"},
	)

	StalledTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rollbacknet",
			Name:      "stalled_ticks_total",
			Help:      "Total number of ticks the local simulation was throttled.",
		},
		[]string{"session"},
	)

	Datagrams = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rollbacknet",
			Name:      "datagrams_total",
			Help:      "Datagrams handled, labeled by direction.",
		},
		[]string{"session", "dir"},
	)

	MalformedDatagrams = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rollbacknet",
			Name:      "malformed_datagrams_total",
			Help:      "Inbound datagrams dropped because they could not be decoded.",
		},
		[]string{"session"},
	)

	LocalFrame = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "rollbacknet",
			Name:      "local_frame",
			Help:      "Most recently simulated local frame.",
		},
		[]string{"session"},
	)

	SyncFrame = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "rollbacknet",
			Name:      "sync_frame",
			Help:      "Highest frame verified against confirmed inputs.",
		},
		[]string{"session"},
	)
)

func init() {
	Registry.MustRegister(
		RollbacksTotal, RolledBackFrames, PredictedInputs, Mispredictions,
		StalledTicks, Datagrams, MalformedDatagrams, LocalFrame, SyncFrame,
	)
}

// MetricsHandler exposes /metrics. Mount it with mux.Handle("/metrics", telemetry.MetricsHandler()).
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
