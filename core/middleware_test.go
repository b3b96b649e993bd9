package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// probeRouter exposes the identity BearerAuthMiddleware attaches so tests
// can observe the resolver's outcome directly.
func probeRouter(tokens *TokenService, users UserRepository) *gin.Engine {
	r := gin.New()
	r.Use(BearerAuthMiddleware(tokens, users))
	r.GET("/probe", func(c *gin.Context) {
		if u, ok := currentUser(c); ok {
			c.JSON(http.StatusOK, gin.H{"username": u.Username})
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": nil})
	})
	return r
}

func probe(t *testing.T, r *gin.Engine, authHeader string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("probe: status %d body %s", w.Code, w.Body.String())
	}
	return w.Body.String()
}

func TestBearerAuthResolution(t *testing.T) {
	users := newMemUserRepo()
	if _, err := users.Create(context.Background(), "alice", "a@x.com", "hash"); err != nil {
		t.Fatal(err)
	}

	tokens := NewTokenService("test-secret", time.Hour)
	r := probeRouter(tokens, users)

	valid, err := tokens.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	ghost, err := tokens.Issue("ghost")
	if err != nil {
		t.Fatal(err)
	}
	expiredSvc := &TokenService{secret: []byte("test-secret"), ttl: -time.Minute}
	expired, err := expiredSvc.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := NewTokenService("other-secret", time.Hour).Issue("alice")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", `{"username":null}`},
		{"not bearer shaped", "Basic abc123", `{"username":null}`},
		{"malformed token", "Bearer not-a-token", `{"username":null}`},
		{"subject no longer resolves", "Bearer " + ghost, `{"username":null}`},
		{"expired token", "Bearer " + expired, `{"username":null}`},
		{"wrong signature", "Bearer " + foreign, `{"username":null}`},
		{"valid token", "Bearer " + valid, `{"username":"alice"}`},
	}
	for _, tc := range cases {
		if got := probe(t, r, tc.header); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestBearerAuthSkipsWhenIdentityAttached(t *testing.T) {
	users := newMemUserRepo()
	tokens := NewTokenService("test-secret", time.Hour)

	pinned := User{ID: 42, Username: "pinned"}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(identityKey, pinned)
		c.Next()
	})
	r.Use(BearerAuthMiddleware(tokens, users))
	r.GET("/probe", func(c *gin.Context) {
		u, _ := currentUser(c)
		c.JSON(http.StatusOK, gin.H{"username": u.Username})
	})

	// A valid token for a different subject must not replace the identity
	// resolved earlier in the same request.
	if _, err := users.Create(context.Background(), "alice", "a@x.com", "hash"); err != nil {
		t.Fatal(err)
	}
	tok, err := tokens.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	if got := probe(t, r, "Bearer "+tok); got != `{"username":"pinned"}` {
		t.Fatalf("expected pinned identity to survive, got %s", got)
	}
}

func TestCORSMiddleware(t *testing.T) {
	cfg := Config{AllowedOrigins: []string{"http://localhost:8081"}}
	r := gin.New()
	r.Use(CORSMiddleware(cfg))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Allowed origin passes and gets CORS headers.
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("allowed origin: status %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8081" {
		t.Fatalf("missing CORS header, got %q", got)
	}

	// Unknown origin is rejected.
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("unknown origin: expected 403, got %d", w.Code)
	}

	// Preflight short-circuits with 204.
	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight: expected 204, got %d", w.Code)
	}

	// No Origin header counts as same-origin and passes.
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("same-origin: status %d", w.Code)
	}
}
