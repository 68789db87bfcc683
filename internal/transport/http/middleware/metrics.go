package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	resp "change-request-tracker/internal/transport/http/response"
)

var (
	// code is the envelope code; HTTP status is 200 for every API answer.
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "change_tracker",
			Name:      "http_requests_total",
			Help:      "HTTP requests by engine, route and envelope code.",
		},
		[]string{"engine", "path", "method", "code"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "change_tracker",
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"engine", "path", "method"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency) }

// Metrics records per-route counters for engine (api or admin). Unmatched
// paths share one label so scanners cannot blow up cardinality.
func Metrics(engine string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpReqTotal.WithLabelValues(engine, path, c.Request.Method, outcome(c)).Inc()
		httpLatency.WithLabelValues(engine, path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// outcome falls back to the HTTP status for routes outside the envelope.
func outcome(c *gin.Context) string {
	if code, ok := c.Get(resp.KeyCode); ok {
		if n, ok := code.(int); ok {
			return strconv.Itoa(n)
		}
	}
	return strconv.Itoa(c.Writer.Status())
}
