package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nexabank/onboarding/internal/auth"
	"github.com/nexabank/onboarding/internal/session"
)

const (
	sessionLocal   = "session"
	sessionIDLocal = "session_id"

	// SessionTokenHeader carries a re-issued bearer token on active sessions.
	SessionTokenHeader = "X-Session-Token"
	// SessionExpiresHeader carries the re-issued token's expiry (RFC 3339).
	SessionExpiresHeader = "X-Session-Expires"
)

// SessionAuth resolves the bearer session token to a live session. Tokens past
// half their lifetime are re-issued in SessionTokenHeader so an active browser
// keeps its session for as long as the registry does.
func SessionAuth(tokens *auth.Tokens, registry *session.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := tokens.Parse(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				return fiber.NewError(http.StatusUnauthorized, "session expired")
			}
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		s, err := registry.Get(claims.SessionID)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "session expired")
		}

		if fresh, exp, ok, err := tokens.Refresh(claims); err == nil && ok {
			c.Set(SessionTokenHeader, fresh)
			c.Set(SessionExpiresHeader, exp.Format(time.RFC3339))
		}

		c.Locals(sessionLocal, s)
		c.Locals(sessionIDLocal, s.ID)
		return c.Next()
	}
}

// CurrentSession returns the session attached by SessionAuth.
func CurrentSession(c *fiber.Ctx) *session.Session {
	s, _ := c.Locals(sessionLocal).(*session.Session)
	return s
}

// SessionID returns the attached session id, or "".
func SessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(sessionIDLocal).(string)
	return id
}
