package core

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// identityKey is the gin context key the resolved identity is attached under.
const identityKey = "identity"

// CORSMiddleware validates Origin/Referer against the allowed list and
// sets CORS headers for browser clients. Bearer-token auth carries no
// cookies, so no credentials are allowed through.
func CORSMiddleware(cfg Config) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	isAllowed := func(origin string) bool {
		if origin == "" {
			// Same-origin navigation (no Origin header) is allowed.
			return true
		}
		if len(allowed) == 0 {
			return false
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		referer := c.GetHeader("Referer")
		if origin == "" && referer != "" {
			if u, err := url.Parse(referer); err == nil {
				origin = u.Scheme + "://" + u.Host
			}
		}

		// Preflight handling
		if c.Request.Method == http.MethodOptions && origin != "" {
			if !isAllowed(origin) {
				respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
				c.Abort()
				return
			}
			setCORSHeaders(c, origin)
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		if !isAllowed(origin) {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
			c.Abort()
			return
		}
		if origin != "" {
			setCORSHeaders(c, origin)
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context, origin string) {
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Vary", "Origin")
	c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
}

// BearerAuthMiddleware resolves the Authorization header into an optional
// identity, once per request, ahead of route dispatch. Every failure mode
// (missing header, malformed token, unknown subject, bad signature,
// expiry) degrades to an anonymous request; rejection is left to the
// route policy so public routes keep working with stale tokens present.
func BearerAuthMiddleware(tokens *TokenService, users UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Idempotent: skip when an identity is already attached.
		if _, ok := c.Get(identityKey); ok {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.Next()
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		subject, err := tokens.Subject(raw)
		if err != nil {
			log.Printf("bearer auth: unparseable token: %v", err)
			c.Next()
			return
		}

		record, err := users.FindByUsername(c.Request.Context(), subject)
		if err != nil || record == nil {
			// Token subject no longer resolves (e.g. deleted account).
			c.Next()
			return
		}

		if !tokens.Verify(raw) {
			c.Next()
			return
		}

		c.Set(identityKey, User{
			ID:        record.ID,
			Username:  record.Username,
			Email:     record.Email,
			CreatedAt: record.CreatedAt,
		})
		c.Next()
	}
}

// currentUser returns the identity attached by BearerAuthMiddleware, if any.
func currentUser(c *gin.Context) (User, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return User{}, false
	}
	u, ok := v.(User)
	return u, ok
}

// requireUser enforces the route policy for protected endpoints: no
// resolved identity means 401 before the handler logic runs.
func requireUser(c *gin.Context) (User, bool) {
	u, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return User{}, false
	}
	return u, true
}
