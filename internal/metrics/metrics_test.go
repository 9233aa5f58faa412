package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSettlement(t *testing.T) {
	before := testutil.ToFloat64(settlements.WithLabelValues("wallet"))
	amountBefore := testutil.ToFloat64(settlementAmount)
	commissionBefore := testutil.ToFloat64(commissionAmount)

	RecordSettlement("wallet", 1000, 100)

	assert.Equal(t, before+1, testutil.ToFloat64(settlements.WithLabelValues("wallet")))
	assert.Equal(t, amountBefore+1000, testutil.ToFloat64(settlementAmount))
	assert.Equal(t, commissionBefore+100, testutil.ToFloat64(commissionAmount))
}

func TestMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/jobs/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(Handler()))

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/jobs/:id", "200"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/5f1d", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/jobs/:id", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "gig_marketplace_http_requests_total"))
}
