package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	labels := prometheus.Labels{"endpoint": "/ping", "method": http.MethodGet, "status": "204"}
	before := testutil.ToFloat64(HTTPRequestCounter.With(labels))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, before+1, testutil.ToFloat64(HTTPRequestCounter.With(labels)))
}

func TestRecordOutcome(t *testing.T) {
	before := testutil.ToFloat64(LoginCounter.With(prometheus.Labels{"outcome": "success"}))
	RecordOutcome(LoginCounter, "success")
	require.Equal(t, before+1, testutil.ToFloat64(LoginCounter.With(prometheus.Labels{"outcome": "success"})))
}
