package auth

import (
	"errors"
	"strings"
	"time"

	"bookly/internal/domain/user"
)

var (
	ErrTokenRequired = errors.New("auth: token is required")
	ErrTokenInvalid  = errors.New("auth: token is invalid")
	ErrTokenExpired  = errors.New("auth: token expired")
	ErrUserRequired  = errors.New("auth: user is required")
	ErrTTLInvalid    = errors.New("auth: ttl must be positive")
)

type Token string

// Session is the identity carried by a signed access token.
type Session struct {
	ID        string
	UserID    user.ID
	Roles     []user.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type CreateSessionParams struct {
	ID     string
	UserID user.ID
	Roles  []user.Role
	TTL    time.Duration
	Now    time.Time
}

func NewSession(params CreateSessionParams) (*Session, error) {
	if strings.TrimSpace(string(params.UserID)) == "" {
		return nil, ErrUserRequired
	}
	if params.TTL <= 0 {
		return nil, ErrTTLInvalid
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC().Truncate(time.Second)
	return &Session{
		ID:        params.ID,
		UserID:    params.UserID,
		Roles:     append([]user.Role(nil), params.Roles...),
		IssuedAt:  now,
		ExpiresAt: now.Add(params.TTL),
	}, nil
}

func (s *Session) Expired(at time.Time) bool {
	if at.IsZero() {
		at = time.Now()
	}
	return !s.ExpiresAt.After(at.UTC())
}

// TokenCodec signs sessions into bearer tokens and verifies them.
type TokenCodec interface {
	Issue(session *Session) (Token, error)
	Parse(token Token) (*Session, error)
}
