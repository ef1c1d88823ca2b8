package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shiro46mt/jp-medicine-master/metrics"
)

func TestGetTokenCost(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		expectedCost int64
	}{
		{"Health endpoint", "/health", 0},
		{"Metrics endpoint", "/metrics", 0},
		{"Catalog", "/catalog", 5},
		{"Dataset read", "/datasets/y", 50},
		{"Dataset years", "/datasets/y/years", 5},
		{"Dataset resolve", "/datasets/hot9/resolve", 5},
		{"Dataset quality", "/datasets/y/quality", 50},
		{"AG view", "/views/ag", 200},
		{"YJ view", "/views/y-with-yj", 200},
		{"Full year view", "/views/y-all/2019", 200},
		{"BS view", "/views/bs", 100},
		{"BS years", "/views/bs/years", 5},
		{"Default endpoint", "/unknown", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if cost := getTokenCost(req); cost != tt.expectedCost {
				t.Errorf("Expected cost %d for path %s, got %d", tt.expectedCost, tt.path, cost)
			}
		})
	}
}

func TestRealIPMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		expected   string
	}{
		{"no header", "", "10.0.0.1:1234", "10.0.0.1:1234"},
		{"single address", "203.0.113.7", "10.0.0.1:1234", "203.0.113.7"},
		{"proxy chain keeps the client", "203.0.113.7, 10.0.0.2", "10.0.0.1:1234", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if seen != tt.expected {
				t.Errorf("RemoteAddr = %q, want %q", seen, tt.expected)
			}
		})
	}
}

func TestRateLimiterExhaustsBucket(t *testing.T) {
	rl := NewRateLimiter(time.Hour)
	defer rl.Stop()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	serve := func(path, client string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = client
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	// 5 x 200 tokens drain the 1000-token bucket
	for i := 0; i < 5; i++ {
		if rr := serve("/views/ag", "198.51.100.1"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rr.Code)
		}
	}

	rr := serve("/views/ag", "198.51.100.1")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" || rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("missing rate limit headers: %v", rr.Header())
	}

	if rr := serve("/health", "198.51.100.1"); rr.Code != http.StatusOK {
		t.Errorf("free endpoints must bypass the limiter, got %d", rr.Code)
	}
	if rr := serve("/views/ag", "198.51.100.2"); rr.Code != http.StatusOK {
		t.Errorf("other clients have their own bucket, got %d", rr.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(time.Hour)
	defer rl.Stop()

	rl.getBucket("198.51.100.1").TakeAvailable(100)
	rl.getBucket("198.51.100.2")

	if got := testutil.ToFloat64(metrics.RateLimiterBucketsTotal); got != 2 {
		t.Errorf("buckets gauge = %v", got)
	}

	if removed := rl.cleanup(); removed != 1 {
		t.Errorf("only the full bucket should be removed, got %d", removed)
	}
	if got := testutil.ToFloat64(metrics.RateLimiterBucketsTotal); got != 1 {
		t.Errorf("buckets gauge after cleanup = %v", got)
	}

	rl.Stop()
	rl.Stop()
}
