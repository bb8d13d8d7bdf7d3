package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var activeTurns = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_chat_turns",
	Help: "Number of chat turns being processed",
})

var turnWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chat_turn_warnings_total",
	Help: "Non fatal failures inside a turn, labelled by step",
}, []string{"step"})

var indexedChunks = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "indexed_chunks",
	Help: "Chunks held by the vector index",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementActiveTurns() {
	activeTurns.Inc()
}

func DecrementActiveTurns() {
	activeTurns.Dec()
}

func CaptureTurnWarning(step string) {
	turnWarnings.WithLabelValues(step).Inc()
}

func SetIndexedChunks(n int) {
	indexedChunks.Set(float64(n))
}

var turnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "chat_turn_duration_seconds",
	Help:    "Total time spent answering one turn.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureTurnMetrics(label string, timeElapsed time.Duration) {
	turnDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
