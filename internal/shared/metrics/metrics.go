package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	uploadsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "photo_speech",
		Subsystem: "upload",
		Name:      "started_total",
		Help:      "Total upload pipelines started.",
	})
	uploadsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "photo_speech",
		Subsystem: "upload",
		Name:      "completed_total",
		Help:      "Total upload pipelines completed.",
	})
	uploadsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photo_speech",
		Subsystem: "upload",
		Name:      "failed_total",
		Help:      "Total upload pipelines failed, by stage.",
	}, []string{"stage"})
	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "photo_speech",
		Subsystem: "upload",
		Name:      "stage_duration_seconds",
		Help:      "Duration of each upload pipeline stage in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"stage"})
	extractedChars = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "photo_speech",
		Subsystem: "upload",
		Name:      "extracted_text_chars",
		Help:      "Characters of text extracted per upload.",
		Buckets:   []float64{0, 10, 50, 100, 500, 1000, 5000, 20000},
	})

	requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photo_speech",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed.",
	}, []string{"method", "route", "status"})
	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "photo_speech",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func init() {
	registry.MustRegister(
		uploadsStarted,
		uploadsCompleted,
		uploadsFailed,
		stageDuration,
		extractedChars,
		requestTotal,
		requestDuration,
	)
}

// IncUploadStarted increments the started counter.
func IncUploadStarted() {
	uploadsStarted.Inc()
}

// IncUploadCompleted increments the completed counter.
func IncUploadCompleted() {
	uploadsCompleted.Inc()
}

// IncUploadFailed increments the failed counter for the stage that failed.
func IncUploadFailed(stage string) {
	if stage == "" {
		stage = "unknown"
	}
	uploadsFailed.WithLabelValues(stage).Inc()
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, d time.Duration) {
	if d < 0 {
		d = 0
	}
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveExtractedChars records the length of extracted text.
func ObserveExtractedChars(n int) {
	extractedChars.Observe(float64(n))
}

// Middleware records request counts and latency keyed by the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		requestTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
