package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// SyncOperations 用户数据读写结果，backend 为 durable 或 local
	SyncOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_record_sync_total",
			Help: "User record load/save operations by backend and result",
		},
		[]string{"operation", "backend", "result"},
	)

	DocumentStoreUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "document_store_up",
			Help: "1 if the last document store probe succeeded",
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(SyncOperations)
		prometheus.MustRegister(DocumentStoreUp)
	})
}

// RecordSync 记录一次同步操作
func RecordSync(operation, backend string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	SyncOperations.WithLabelValues(operation, backend, result).Inc()
}

func SetDocumentStoreUp(up bool) {
	if up {
		DocumentStoreUp.Set(1)
		return
	}
	DocumentStoreUp.Set(0)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
