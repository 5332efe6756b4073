package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cashflowpro/cashflowpro/internal/security/audit"
	"github.com/cashflowpro/cashflowpro/internal/security/auth"
	"github.com/cashflowpro/cashflowpro/internal/security/ratelimit"
)

// serverChain nests the middleware the way cmd/server does: JWT
// resolves the identity before auditing and throttling run.
func serverChain(tm *auth.TokenManager, limiter *ratelimit.Limiter, inner http.Handler) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return JWTMiddleware(tm, logger)(
		AuditMiddleware(audit.NewLogger(logger))(
			RateLimitMiddleware(limiter, logger)(inner),
		),
	)
}

func TestAuthenticatedRequestsAreRateLimited(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", "cashflowpro")
	token, err := tm.GenerateToken("user-1", "alice@example.com", "USER", "FREE", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	limiter := ratelimit.NewLimiter(3, time.Minute)
	defer limiter.Stop()

	chain := serverChain(tm, limiter, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/businesses", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		if code := do(); code != http.StatusOK {
			t.Fatalf("request %d under the limit got %d", i+1, code)
		}
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("request over the limit got %d, want 429", code)
	}
}

func TestRateLimitIsPerUser(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", "cashflowpro")
	aliceToken, _ := tm.GenerateToken("user-1", "alice@example.com", "USER", "FREE", time.Hour)
	bobToken, _ := tm.GenerateToken("user-2", "bob@example.com", "USER", "FREE", time.Hour)

	limiter := ratelimit.NewLimiter(1, time.Minute)
	defer limiter.Stop()

	chain := serverChain(tm, limiter, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/businesses", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(aliceToken); code != http.StatusOK {
		t.Fatalf("first request got %d", code)
	}
	if code := do(aliceToken); code != http.StatusTooManyRequests {
		t.Fatalf("exhausted user got %d, want 429", code)
	}
	// Another user's bucket is untouched.
	if code := do(bobToken); code != http.StatusOK {
		t.Fatalf("fresh user got %d, want 200", code)
	}
}

func TestPublicPathsBypassAuthAndLimits(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", "cashflowpro")
	limiter := ratelimit.NewLimiter(1, time.Minute)
	defer limiter.Stop()

	chain := serverChain(tm, limiter, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("health check %d got %d", i+1, rec.Code)
		}
	}
}
