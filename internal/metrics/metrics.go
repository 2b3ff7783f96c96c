package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Registration counter
	RegisterCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskapi_register_total",
			Help: "Total number of tenant registrations by outcome",
		},
		[]string{"outcome"},
	)

	// Login counter
	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskapi_login_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"outcome"}, // "success", "invalid_credentials", "unknown_tenant", "error"
	)

	// Token resolution failures
	TokenRejectedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskapi_token_rejected_total",
			Help: "Total number of bearer tokens rejected",
		},
	)

	// Tenant switch counter
	TenantSwitchCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskapi_tenant_switch_total",
			Help: "Total number of tenant switches by outcome",
		},
		[]string{"outcome"},
	)

	// Authorization denials
	AuthorizationDeniedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskapi_authorization_denied_total",
			Help: "Total number of requests denied by tenant or role checks",
		},
		[]string{"reason"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskapi_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskapi_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)
)

func init() {
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(TokenRejectedCounter)
	prometheus.MustRegister(TenantSwitchCounter)
	prometheus.MustRegister(AuthorizationDeniedCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(RequestDuration)
}

// Handler returns an HTTP handler for the Prometheus metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records the duration and count of every request
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		labels := prometheus.Labels{
			"endpoint": endpoint,
			"method":   c.Request.Method,
			"status":   strconv.Itoa(c.Writer.Status()),
		}

		RequestDuration.With(labels).Observe(time.Since(start).Seconds())
		HTTPRequestCounter.With(labels).Inc()
	}
}

// RecordOutcome increments a counter vector labelled by outcome
func RecordOutcome(counter *prometheus.CounterVec, outcome string) {
	counter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordDenied records a tenant or role check that rejected a request
func RecordDenied(reason string) {
	AuthorizationDeniedCounter.With(prometheus.Labels{"reason": reason}).Inc()
}
