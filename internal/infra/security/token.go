package security

import (
	"errors"
	"fmt"

	jwt "github.com/golang-jwt/jwt/v5"

	domainauth "bookly/internal/domain/auth"
	domainuser "bookly/internal/domain/user"
)

const defaultIssuer = "bookly"

var ErrSecretMissing = errors.New("token: signing secret is empty")

// JWTCodec issues HS256 access tokens.
type JWTCodec struct {
	Secret []byte
	Issuer string
}

type sessionClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

func (c JWTCodec) Issue(session *domainauth.Session) (domainauth.Token, error) {
	if len(c.Secret) == 0 {
		return "", ErrSecretMissing
	}
	roles := make([]string, 0, len(session.Roles))
	for _, r := range session.Roles {
		roles = append(roles, string(r))
	}
	claims := sessionClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   string(session.UserID),
			Issuer:    c.issuer(),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.Secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return domainauth.Token(signed), nil
}

func (c JWTCodec) Parse(token domainauth.Token) (*domainauth.Session, error) {
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	if len(c.Secret) == 0 {
		return nil, ErrSecretMissing
	}
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(string(token), claims, func(t *jwt.Token) (interface{}, error) {
		return c.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(c.issuer()))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainauth.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domainauth.ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, domainauth.ErrTokenInvalid
	}
	session := &domainauth.Session{
		ID:     claims.ID,
		UserID: domainuser.ID(claims.Subject),
	}
	for _, r := range claims.Roles {
		session.Roles = append(session.Roles, domainuser.Role(r))
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return session, nil
}

func (c JWTCodec) issuer() string {
	if c.Issuer != "" {
		return c.Issuer
	}
	return defaultIssuer
}

var _ domainauth.TokenCodec = JWTCodec{}
