package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) *MetricsCollector {
	t.Helper()
	return NewMetricsCollector(&Config{Namespace: "test"}, prometheus.NewRegistry())
}

func TestRecordTransfer(t *testing.T) {
	mc := newTestCollector(t)

	mc.RecordTransfer("receive", "success", 10)
	mc.RecordTransfer("receive", "failed", 99)
	mc.RecordTransfer("send", "success", 5)
	mc.RecordTransfer("send", "success", 7)
	mc.RecordTransfer("delete", "success", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(mc.transfersTotal.WithLabelValues("receive", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.transfersTotal.WithLabelValues("receive", "failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(mc.transfersTotal.WithLabelValues("send", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.transfersTotal.WithLabelValues("delete", "success")))
	assert.Equal(t, 10.0, testutil.ToFloat64(mc.bytesReceived))
	assert.Equal(t, 12.0, testutil.ToFloat64(mc.bytesSent))
}

func TestGauges(t *testing.T) {
	mc := newTestCollector(t)

	mc.SetServerRunning(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.serverRunning))
	mc.SetServerRunning(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(mc.serverRunning))

	mc.SetStoredFiles(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(mc.storedFiles))
}

func TestSeparateRegistries(t *testing.T) {
	// two collectors in one process must not collide
	assert.NotPanics(t, func() {
		NewMetricsCollector(nil, prometheus.NewRegistry())
		NewMetricsCollector(nil, prometheus.NewRegistry())
		NewMetricsCollector(nil, nil)
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mc := newTestCollector(t)

	router := gin.New()
	router.Use(mc.Middleware())
	router.GET("/downloads/*name", func(c *gin.Context) {
		c.String(http.StatusNotFound, "File not found")
	})

	for _, path := range []string{"/downloads/a", "/downloads/b", "/nowhere"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(mc.httpRequests.WithLabelValues("GET", "/downloads/*name", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.httpRequests.WithLabelValues("GET", "unmatched", "404")))

	srv := httptest.NewServer(mc.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "test_http_requests_total")
	assert.Contains(t, string(body), "test_server_running")
	assert.Contains(t, string(body), "go_goroutines")
}
