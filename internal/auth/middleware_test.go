package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/friendsincode/bragi_sequencer/internal/models"
)

func TestMiddlewareWithJWT_AcceptsBearerToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, Claims{
		UserID: "u1",
		Role:   "admin",
	}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || claims == nil {
			t.Fatalf("expected claims in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	MiddlewareWithJWT(nil, secret)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMiddlewareWithJWT_RejectsQueryToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, Claims{
		UserID: "u1",
		Role:   "admin",
	}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels?token="+token, nil)
	rr := httptest.NewRecorder()

	MiddlewareWithJWT(nil, secret)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for query token auth, got %d", rr.Code)
	}
}

func TestMiddlewareWithJWT_RejectsMissingCredentials(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not run without credentials")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels", nil)
	rr := httptest.NewRecorder()

	MiddlewareWithJWT(nil, []byte("test-secret"))(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	gate := RequireRole(models.RoleAdmin, models.RoleManager)(next)

	cases := []struct {
		name   string
		role   string
		expect int
	}{
		{"admin allowed", "admin", http.StatusOK},
		{"manager allowed", "manager", http.StatusOK},
		{"curator forbidden", "curator", http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/strategies", nil)
			req = req.WithContext(WithClaims(req.Context(), &Claims{UserID: "u1", Role: tc.role}))
			rr := httptest.NewRecorder()
			gate.ServeHTTP(rr, req)
			if rr.Code != tc.expect {
				t.Fatalf("role %s: expected %d, got %d", tc.role, tc.expect, rr.Code)
			}
		})
	}

	t.Run("missing claims", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/strategies", nil)
		rr := httptest.NewRecorder()
		gate.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without claims, got %d", rr.Code)
		}
	})
}
