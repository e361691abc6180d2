package ginserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"bookly/internal/app/dto"
	"bookly/internal/app/identity"
	authsvc "bookly/internal/app/services/auth"
)

type AuthHTTP interface {
	Login(c *gin.Context)
	Me(c *gin.Context)
}

// Authenticator is the part of the auth service the HTTP layer needs.
type Authenticator interface {
	Login(ctx context.Context, params authsvc.LoginParams) (*authsvc.AuthResult, error)
}

type AuthHandler struct {
	Service Authenticator
	Logger  *slog.Logger
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h AuthHandler) Login(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Authentication is unavailable."})
		return
	}
	var req loginRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	result, err := h.Service.Login(c.Request.Context(), authsvc.LoginParams{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAuthResponse(result.User, result.Token, result.ExpiresAt))
}

func (h AuthHandler) Me(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		respondError(c, h.Logger, identity.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, dto.MapUserProfile(p.User))
}

var _ AuthHTTP = AuthHandler{}
