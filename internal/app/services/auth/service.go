package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "bookly/internal/domain/auth"
	domainuser "bookly/internal/domain/user"
)

var ErrInvalidCredentials = errors.New("auth: invalid credentials")

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type Service struct {
	Users      domainuser.Repository
	Passwords  PasswordHasher
	Tokens     domainauth.TokenCodec
	SessionTTL time.Duration
	Logger     *slog.Logger
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User      *domainuser.User
	Token     string
	ExpiresAt time.Time
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		ID:     uuid.NewString(),
		UserID: user.ID,
		Roles:  user.Roles,
		TTL:    s.sessionTTL(),
		Now:    time.Now(),
	})
	if err != nil {
		return nil, err
	}
	token, err := s.Tokens.Issue(session)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", user.ID)
	}
	return &AuthResult{User: user, Token: string(token), ExpiresAt: session.ExpiresAt}, nil
}

// ResolveToken verifies a bearer token and loads the current user record, so role
// changes apply without waiting for the token to expire.
func (s *Service) ResolveToken(ctx context.Context, token string) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Tokens.Parse(domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	user, err := s.Users.ByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, domainauth.ErrTokenInvalid
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 24 * time.Hour
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token codec required")
	default:
		return nil
	}
}
