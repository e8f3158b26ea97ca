package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/version"
)

const namespace = "imgloader"

var (
	cacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Image cache lookups by result.",
	}, []string{"result"})

	cacheEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_evictions_total",
		Help:      "Images evicted from the in-memory cache.",
	})

	cacheBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_bytes",
		Help:      "Decoded bytes resident in the in-memory caches.",
	})

	tasks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_total",
		Help:      "Load tasks by outcome.",
	}, []string{"outcome"})

	tasksInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tasks_in_flight",
		Help:      "Load tasks submitted but not yet completed or cancelled.",
	})

	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_stage_duration_seconds",
		Help:      "Duration of the fetch, decode and compress stages.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 10},
	}, []string{"stage", "result"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by the image proxy.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 10},
	}, []string{"path", "code"})

	httpRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "HTTP requests currently being served.",
	})
)

// Registry holds every imgloader collector
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		cacheRequests,
		cacheEvictions,
		cacheBytes,
		tasks,
		tasksInFlight,
		stageDuration,
		httpRequestDuration,
		httpRequestsInFlight,
		version.NewCollector(namespace),
		collectors.NewGoCollector(),
	)
}

// CacheHit records an in-memory cache hit
func CacheHit() {
	cacheRequests.WithLabelValues("hit").Inc()
}

// CacheMiss records an in-memory cache miss
func CacheMiss() {
	cacheRequests.WithLabelValues("miss").Inc()
}

// CacheStored records an image of size bytes entering the cache
func CacheStored(size int64) {
	cacheBytes.Add(float64(size))
}

// CacheEvicted records an image of size bytes leaving the cache
func CacheEvicted(size int64) {
	cacheEvictions.Inc()
	cacheBytes.Sub(float64(size))
}

// TaskSubmitted records a new load task
func TaskSubmitted() {
	tasks.WithLabelValues("submitted").Inc()
	tasksInFlight.Inc()
}

// TaskFinished records a task reaching a terminal outcome
func TaskFinished(outcome string) {
	tasks.WithLabelValues(outcome).Inc()
	tasksInFlight.Dec()
}

// ObserveStage records the duration of a pipeline stage
func ObserveStage(stage string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	stageDuration.WithLabelValues(stage, result).Observe(time.Since(start).Seconds())
}

// ObserveRequest records the duration of an HTTP request
func ObserveRequest(path string, code int, duration time.Duration) {
	httpRequestDuration.WithLabelValues(path, strconv.Itoa(code)).Observe(duration.Seconds())
}

// RequestStarted and RequestFinished track HTTP requests in flight
func RequestStarted() {
	httpRequestsInFlight.Inc()
}

func RequestFinished() {
	httpRequestsInFlight.Dec()
}
