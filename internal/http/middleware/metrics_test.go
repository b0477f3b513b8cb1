package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndPathFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics("/metrics"))
	r.GET("/messages/:index", func(c *gin.Context) { c.String(http.StatusOK, "hello") })
	r.GET("/metrics", func(c *gin.Context) { c.String(http.StatusOK, "# scrape") })

	baseRoute := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/messages/:index", "200"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/does-not-exist", "404"))
	baseScrape := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/metrics", "200"))

	for _, p := range []string{"/messages/1", "/messages/2", "/does-not-exist", "/metrics"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	// route template, not raw path
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/messages/:index", "200")); got != baseRoute+2 {
		t.Fatalf("route counter = %v; want %v", got, baseRoute+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/does-not-exist", "404")); got != base404+1 {
		t.Fatalf("404 fallback counter = %v; want %v", got, base404+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/metrics", "200")); got != baseScrape {
		t.Fatalf("skipped path was counted: %v", got)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}
