package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flyover",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "flyover",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	framesRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flyover",
			Subsystem: "film",
			Name:      "frames_rendered_total",
			Help:      "Frames rasterised, by outcome.",
		},
		[]string{"outcome"},
	)
	frameDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "flyover",
			Subsystem: "film",
			Name:      "frame_render_seconds",
			Help:      "Time spent rasterising one frame.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)
	navigations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flyover",
			Subsystem: "landing",
			Name:      "navigations_total",
			Help:      "Call to action activations, by destination.",
		},
		[]string{"path"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, framesRendered, frameDuration, navigations)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrame(duration time.Duration, err error) {
	RegisterMetrics()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	framesRendered.WithLabelValues(outcome).Inc()
	frameDuration.Observe(duration.Seconds())
}

func RecordNavigation(path string) {
	RegisterMetrics()
	navigations.WithLabelValues(path).Inc()
}
