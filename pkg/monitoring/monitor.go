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

	// 访问判定结果：allowed / limit_exceeded / verification_failed
	GateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_gate_decisions_total",
			Help: "Access gate decisions by quiz mode and outcome",
		},
		[]string{"mode", "outcome", "actor"},
	)

	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Quiz result submissions by mode, actor kind and status",
		},
		[]string{"mode", "actor", "status"},
	)

	LiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_live_sessions",
			Help: "Quiz sessions currently held in memory",
		},
	)

	AssistantRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_requests_total",
			Help: "Q&A assistant requests by answer source",
		},
		[]string{"source"},
	)
)

var registerOnce sync.Once

// Init 注册指标，可重复调用
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(GateDecisions)
		prometheus.MustRegister(Submissions)
		prometheus.MustRegister(LiveSessions)
		prometheus.MustRegister(AssistantRequests)
	})
}

// ActorLabel 指标中区分登录用户与游客
func ActorLabel(known bool) string {
	if known {
		return "user"
	}
	return "guest"
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
