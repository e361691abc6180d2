package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	"bookly/internal/app/identity"
	domainauth "bookly/internal/domain/auth"
	domainuser "bookly/internal/domain/user"
)

const principalContextKey = "bookly.principal"

type principal struct {
	User  *domainuser.User
	Actor identity.Actor
}

// TokenResolver turns a bearer token into the current user record.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*domainuser.User, error)
}

// AuthMiddleware attaches the caller to the request when a valid bearer token is sent.
// Anonymous requests pass through; handlers decide whether they need an actor.
type AuthMiddleware struct {
	Tokens TokenResolver
	Logger *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Tokens == nil {
		c.Next()
		return
	}
	user, err := m.Tokens.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if m.Logger != nil && !errors.Is(err, domainauth.ErrTokenInvalid) && !errors.Is(err, domainauth.ErrTokenExpired) {
			m.Logger.Warn("token resolution failed", "error", err)
		}
		c.Next()
		return
	}
	c.Set(principalContextKey, principal{User: user, Actor: identity.FromUser(user)})
	c.Next()
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

// actorFrom returns the caller. The zero actor is rejected by the command and query buses.
func actorFrom(c *gin.Context) identity.Actor {
	p, _ := currentPrincipal(c)
	return p.Actor
}

// requireActor aborts with 401 when the request is anonymous.
func requireActor(c *gin.Context, logger *slog.Logger) (identity.Actor, bool) {
	actor := actorFrom(c)
	if err := actor.Require(); err != nil {
		respondError(c, logger, err)
		return identity.Actor{}, false
	}
	return actor, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
