package ginserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"bookly/internal/app/identity"
	"bookly/internal/app/locking"
	"bookly/internal/app/middleware"
	authsvc "bookly/internal/app/services/auth"
	domainauth "bookly/internal/domain/auth"
	domainbooking "bookly/internal/domain/booking"
	"bookly/internal/domain/shared/validation"
	domainuser "bookly/internal/domain/user"
	domainwaitlist "bookly/internal/domain/waitlist"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", validation.Field("date", "The date field is required."), http.StatusUnprocessableEntity, "The date field is required."},
		{"slot taken", fmt.Errorf("create: %w", domainbooking.ErrSlotTaken), http.StatusConflict, slotTakenMessage},
		{"slot unavailable", domainwaitlist.ErrSlotUnavailable, http.StatusUnprocessableEntity, "Resource is not available for the requested time slot."},
		{"booking transition", &domainbooking.TransitionError{From: domainbooking.StatusCancelled, To: domainbooking.StatusApproved}, http.StatusBadRequest, "Cannot move a cancelled booking to approved."},
		{"repeat transition", &domainbooking.TransitionError{From: domainbooking.StatusApproved, To: domainbooking.StatusApproved}, http.StatusBadRequest, "Booking is already approved."},
		{"entry transition", &domainwaitlist.TransitionError{From: domainwaitlist.StatusPromoted, To: domainwaitlist.StatusPromoted}, http.StatusBadRequest, ""},
		{"stale scope", locking.ErrStaleScope, http.StatusConflict, ""},
		{"reused idempotency key", middleware.ErrIdempotencyKeyReused, http.StatusUnprocessableEntity, "The idempotency key was already used for a different request."},
		{"booking missing", domainbooking.ErrNotFound, http.StatusNotFound, "Booking not found."},
		{"entry missing", domainwaitlist.ErrNotFound, http.StatusNotFound, "Waiting list entry not found."},
		{"bad credentials", authsvc.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials."},
		{"anonymous", identity.ErrUnauthenticated, http.StatusUnauthorized, "Unauthenticated."},
		{"expired token", domainauth.ErrTokenExpired, http.StatusUnauthorized, "Unauthenticated."},
		{"forbidden", identity.ErrForbidden, http.StatusForbidden, ""},
		{"lock timeout", locking.ErrLockTimeout, http.StatusServiceUnavailable, ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Server error."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := classify(tc.err)
			if status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, status)
			}
			if tc.message != "" && body.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, body.Message)
			}
			if body.Message == "" {
				t.Fatalf("message must never be empty")
			}
		})
	}
}

func TestClassifySlotTakenCarriesTimeField(t *testing.T) {
	_, body := classify(domainbooking.ErrSlotTaken)
	if msgs := body.Errors["time"]; len(msgs) != 1 || msgs[0] != slotTakenMessage {
		t.Fatalf("expected errors.time, got %v", body.Errors)
	}
}

func TestBindingFieldsUseJSONNames(t *testing.T) {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	type request struct {
		ResourceID string `json:"resource_id" validate:"required"`
		Email      string `json:"email" validate:"required,email"`
	}
	err := v.Struct(request{Email: "nope"})
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	status, body := classify(err)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", status)
	}
	if got := body.Errors["resource_id"]; len(got) != 1 || got[0] != "The resource id field is required." {
		t.Fatalf("unexpected resource_id errors %v", got)
	}
	if got := body.Errors["email"]; len(got) != 1 || !strings.Contains(got[0], "valid email") {
		t.Fatalf("unexpected email errors %v", got)
	}
	if body.Message != "The email must be a valid email address." {
		t.Fatalf("expected the first field alphabetically as message, got %q", body.Message)
	}
}

func TestBindRequestRejectsMalformedJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	c.Request.Header.Set("Content-Type", "application/json")

	var req struct {
		Date string `json:"date"`
	}
	err := bindRequest(c, &req)
	var verr *validation.Error
	if !errors.As(err, &verr) || len(verr.Fields["body"]) != 1 {
		t.Fatalf("expected a body field error, got %v", err)
	}
}

func TestUpperFirst(t *testing.T) {
	if upperFirst("") != "" || upperFirst("booking") != "Booking" {
		t.Fatalf("upperFirst mismatch")
	}
}

type stubTokens struct {
	user *domainuser.User
	err  error
}

func (s stubTokens) ResolveToken(context.Context, string) (*domainuser.User, error) {
	return s.user, s.err
}

func TestAuthMiddleware(t *testing.T) {
	alice := &domainuser.User{ID: "u-alice", Roles: []domainuser.Role{domainuser.RoleUser}}
	cases := []struct {
		name   string
		header string
		tokens stubTokens
		want   int
	}{
		{name: "valid token", header: "Bearer good", tokens: stubTokens{user: alice}, want: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", tokens: stubTokens{user: alice}, want: http.StatusOK},
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer bad", tokens: stubTokens{err: domainauth.ErrTokenInvalid}, want: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic abc", tokens: stubTokens{user: alice}, want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.Use(AuthMiddleware{Tokens: tc.tokens}.Handle)
			router.GET("/whoami", func(c *gin.Context) {
				actor, ok := requireActor(c, nil)
				if !ok {
					return
				}
				c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID})
			})
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d body %s", tc.want, rec.Code, rec.Body.String())
			}
			if tc.want == http.StatusOK && !strings.Contains(rec.Body.String(), "u-alice") {
				t.Fatalf("expected actor in body, got %s", rec.Body.String())
			}
		})
	}
}
