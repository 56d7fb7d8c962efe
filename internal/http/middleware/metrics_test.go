package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/trustedloops-edge/internal/observability"
)

func requests(method, path, status string) float64 {
	return testutil.ToFloat64(observability.HTTPRequests.WithLabelValues(method, path, status))
}

func TestMetrics_RouteLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.Any("/api/feedback", Guard(GuardOptions{Methods: []string{http.MethodPost}}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	cases := []struct {
		method, target     string
		metMethod, metPath string
		status             string
	}{
		{http.MethodPost, "/api/feedback", "POST", "/api/feedback", "200"},
		{http.MethodGet, "/api/feedback", "GET", "/api/feedback", "405"},
		{http.MethodOptions, "/api/feedback", "OPTIONS", "/api/feedback", "204"},
		{"PROPFIND", "/api/feedback", "OTHER", "unmatched", "404"},
		{http.MethodGet, "/wp-admin/install.php", "GET", "unmatched", "404"},
	}
	for _, tc := range cases {
		base := requests(tc.metMethod, tc.metPath, tc.status)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.target, nil))
		if got := requests(tc.metMethod, tc.metPath, tc.status); got != base+1 {
			t.Fatalf("%s %s: counter(%s,%s,%s) = %v; want %v (status %d)",
				tc.method, tc.target, tc.metMethod, tc.metPath, tc.status, got, base+1, w.Code)
		}
	}

	if inFlight := testutil.ToFloat64(observability.HTTPInflight); inFlight != 0 {
		t.Fatalf("inflight = %v; want 0", inFlight)
	}
}

func Test_metricMethod(t *testing.T) {
	for in, want := range map[string]string{"GET": "GET", "DELETE": "DELETE", "get": "OTHER", "BREW": "OTHER"} {
		if got := metricMethod(in); got != want {
			t.Fatalf("metricMethod(%q) = %q; want %q", in, got, want)
		}
	}
}
