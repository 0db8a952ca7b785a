package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	apiContext "pushhook/internal/api/context"
	"pushhook/internal/platform/auth"
	"pushhook/internal/platform/config"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthMiddleware(t *testing.T) {
	tokenSvc := auth.NewTokenService(config.JWTConfig{Secret: "s", AccessTokenTTL: time.Hour})
	mw := NewAuthMiddleware(tokenSvc)
	token, _ := tokenSvc.GenerateAccessToken("user1", "")

	var seen string
	handler := mw.Handle(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/push/subscribe", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler(rr, req)
			if rr.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rr.Code)
			}
		})
	}

	if seen != "user1" {
		t.Errorf("Expected user1 in context, got %q", seen)
	}
}

func TestMemoryLimiter(t *testing.T) {
	rl := NewMemoryLimiter()
	defer rl.Close()

	ctx := context.Background()
	if !rl.Allow(ctx, "k", 2) || !rl.Allow(ctx, "k", 2) {
		t.Fatal("Expected first two requests allowed")
	}
	if rl.Allow(ctx, "k", 2) {
		t.Error("Expected third request rejected")
	}
	if !rl.Allow(ctx, "other", 2) {
		t.Error("Expected separate key to have its own bucket")
	}
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	rl := NewRedisLimiter(client, zerolog.Nop())
	for i := 0; i < 3; i++ {
		if !rl.Allow(context.Background(), "k", 1) {
			t.Fatal("Expected requests to be allowed when redis is unreachable")
		}
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewMemoryLimiter()
	defer rl.Close()

	handler := RateLimit(rl, "webhook", 1, PathParam("endpoint_id"), nil)(okHandler)

	call := func(id string) int {
		req := httptest.NewRequest(http.MethodGet, "/webhook/"+id, nil)
		ctx := context.WithValue(req.Context(), apiContext.Params, httprouter.Params{{Key: "endpoint_id", Value: id}})
		rr := httptest.NewRecorder()
		handler(rr, req.WithContext(ctx))
		return rr.Code
	}

	if code := call("ep1"); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if code := call("ep1"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", code)
	}
	if code := call("ep2"); code != http.StatusOK {
		t.Errorf("Expected other endpoint unaffected, got %d", code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	handler := RateLimit(nil, "api", 10, ByUser, nil)(okHandler)
	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rr.Code)
	}
}

func TestLogging_OmitsQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/webhook/ep1?token=whsec_secret", nil))

	out := buf.String()
	if strings.Contains(out, "whsec_secret") {
		t.Errorf("Secret leaked into access log: %s", out)
	}
	if !strings.Contains(out, `"status":401`) || !strings.Contains(out, `"path":"/webhook/ep1"`) {
		t.Errorf("Unexpected log line: %s", out)
	}
}
