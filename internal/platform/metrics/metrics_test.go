package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Delivery("success")
	m.Delivery("success")
	m.Delivery("gone")
	m.Pruned("gone", 3)
	m.Pruned("gone", 0)
	m.Webhook("generic", "sent")

	if got := testutil.ToFloat64(m.PushDeliveries.WithLabelValues("success")); got != 2 {
		t.Errorf("Expected 2 successful deliveries, got %v", got)
	}
	if got := testutil.ToFloat64(m.SubscriptionsPruned.WithLabelValues("gone")); got != 3 {
		t.Errorf("Expected 3 pruned, got %v", got)
	}
	if got := testutil.ToFloat64(m.WebhookInvocations.WithLabelValues("generic", "sent")); got != 1 {
		t.Errorf("Expected 1 webhook, got %v", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Delivery("success")
	m.Pruned("gone", 1)
	m.Dispatch(time.Second)
	m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
	m.RateLimited("webhook")
	m.Webhook("generic", "sent")
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveHTTP("POST", "/webhook/:endpoint_id", 200, 20*time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `pushhook_http_requests_total{method="POST",route="/webhook/:endpoint_id",status="2xx"} 1`) {
		t.Errorf("Expected request counter in output, got:\n%s", rr.Body.String())
	}
}
