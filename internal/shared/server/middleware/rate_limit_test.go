package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimitOnlyAppliesToUploadGroup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	groupFor := func(c *gin.Context) string {
		if c.Request.Method == http.MethodPost && c.FullPath() == "/upload_photo" {
			return "UPLOAD"
		}
		return "DEFAULT"
	}

	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor:     groupFor,
		Limiter:      limiter,
		Rules: map[string]RateLimitRule{
			"UPLOAD": {Rate: 1, Burst: 2},
		},
	}))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/upload_photo", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/")
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("homepage request %d expected 200, got %d", i+1, resp.Code)
		}
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/upload_photo", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusFound {
			t.Fatalf("upload request %d expected 302, got %d", i+1, resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/upload_photo", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("upload request 3 expected 429, got %d", resp.Code)
	}

	now = now.Add(time.Second)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/upload_photo", nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("expected refill after one second, got %d", resp.Code)
	}
}

func limitedRouter(now *time.Time, paths ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		DefaultGroup: "DEFAULT",
		Limiter:      NewRateLimiter(func() time.Time { return *now }),
		Rules: map[string]RateLimitRule{
			"DEFAULT": {Rate: 1, Burst: 1},
		},
	}))
	for _, p := range paths {
		r.POST(p, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
	}
	return r
}

func TestRateLimit429IncludesRetryAfter(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	r := limitedRouter(&now, "/api/v1/records")

	resp1 := httptest.NewRecorder()
	r.ServeHTTP(resp1, httptest.NewRequest(http.MethodPost, "/api/v1/records", nil))
	if resp1.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", resp1.Code)
	}

	resp2 := httptest.NewRecorder()
	r.ServeHTTP(resp2, httptest.NewRequest(http.MethodPost, "/api/v1/records", nil))
	if resp2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp2.Code)
	}
	if resp2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	var payload map[string]any
	if err := json.NewDecoder(resp2.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["error"] != "rate_limited" {
		t.Fatalf("expected error=rate_limited")
	}
	if _, ok := payload["retryAfterMs"]; !ok {
		t.Fatalf("expected retryAfterMs in response")
	}
}

func TestRateLimitRendersErrorPageForPages(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	r := limitedRouter(&now, "/upload_photo")

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/upload_photo", nil))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/upload_photo", nil))

	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if !strings.HasPrefix(resp.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("expected html error page, got %q", resp.Header().Get("Content-Type"))
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if !strings.Contains(resp.Body.String(), "Too Many Requests") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestRateLimiterDropsRefilledBuckets(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Rate: 1, Burst: 2}

	for i := 0; i < 100; i++ {
		limiter.Allow(fmt.Sprintf("10.0.0.%d|UPLOAD", i), rule)
	}
	if len(limiter.buckets) != 100 {
		t.Fatalf("expected 100 buckets, got %d", len(limiter.buckets))
	}

	now = now.Add(2 * bucketSweepInterval)
	if ok, _ := limiter.Allow("10.0.0.1|UPLOAD", rule); !ok {
		t.Fatal("expected refilled bucket to allow")
	}
	if len(limiter.buckets) != 1 {
		t.Fatalf("expected idle buckets to be dropped, got %d", len(limiter.buckets))
	}

	limiter.Allow("10.0.0.1|UPLOAD", rule)
	if ok, _ := limiter.Allow("10.0.0.1|UPLOAD", rule); ok {
		t.Fatal("expected active bucket to keep its state")
	}
}
