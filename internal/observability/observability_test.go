package observability

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(logger zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(logger), RequestMetricsMiddleware())
	r.GET("/frames/:t", func(c *gin.Context) { c.String(http.StatusOK, "frame") })
	return r
}

func TestRequestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	r := testRouter(zerolog.New(&buf))

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/frames/:t", "200"))
	for _, at := range []string{"1", "2.5"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/frames/"+at, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/frames/:t", "200"))
	assert.Equal(t, 2.0, after-before, "one series per route pattern")
	assert.Contains(t, buf.String(), `"path":"/frames/:t"`)
	assert.Contains(t, buf.String(), `"level":"info"`)

	buf.Reset()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"path":"/nowhere"`)
}

func TestRecordFrameAndNavigation(t *testing.T) {
	okBefore := testutil.ToFloat64(framesRendered.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(framesRendered.WithLabelValues("error"))
	RecordFrame(time.Millisecond, nil)
	RecordFrame(time.Millisecond, errors.New("no scene"))
	assert.Equal(t, 1.0, testutil.ToFloat64(framesRendered.WithLabelValues("ok"))-okBefore)
	assert.Equal(t, 1.0, testutil.ToFloat64(framesRendered.WithLabelValues("error"))-errBefore)

	navBefore := testutil.ToFloat64(navigations.WithLabelValues("/journey"))
	RecordNavigation("/journey")
	assert.Equal(t, 1.0, testutil.ToFloat64(navigations.WithLabelValues("/journey"))-navBefore)
}
