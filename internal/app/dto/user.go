package dto

import (
	"time"

	domainuser "bookly/internal/domain/user"
)

type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	Staff     bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponse is the login payload. Token goes into the Authorization header as a bearer token.
type AuthResponse struct {
	User      UserProfile `json:"user"`
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	roles := make([]string, len(user.Roles))
	for i, role := range user.Roles {
		roles[i] = string(role)
	}
	return UserProfile{
		ID:        string(user.ID),
		Email:     user.Email,
		Name:      user.Name,
		Roles:     roles,
		Staff:     domainuser.HasAnyRole(user.Roles, domainuser.StaffRoles...),
		CreatedAt: user.CreatedAt,
	}
}

func NewAuthResponse(user *domainuser.User, token string, expiresAt time.Time) AuthResponse {
	return AuthResponse{
		User:      MapUserProfile(user),
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt.UTC(),
	}
}
