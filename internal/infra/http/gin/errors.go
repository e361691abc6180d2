package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"bookly/internal/app/identity"
	"bookly/internal/app/locking"
	"bookly/internal/app/middleware"
	authsvc "bookly/internal/app/services/auth"
	domainauth "bookly/internal/domain/auth"
	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
	"bookly/internal/domain/shared/validation"
	domainuser "bookly/internal/domain/user"
	domainwaitlist "bookly/internal/domain/waitlist"
)

const slotTakenMessage = "The selected time slot is already booked."

type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// respondError writes the JSON error body and status for err.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.ErrorContext(c.Request.Context(), "request failed",
			"error", err,
			"method", c.Request.Method,
			"path", c.FullPath(),
		)
	}
	c.AbortWithStatusJSON(status, body)
}

func classify(err error) (int, errorBody) {
	var verr *validation.Error
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, errorBody{Message: firstMessage(verr.Fields), Errors: verr.Fields}
	case errors.As(err, &fieldErrs):
		fields := bindingFields(fieldErrs)
		return http.StatusUnprocessableEntity, errorBody{Message: firstMessage(fields), Errors: fields}
	case errors.Is(err, timeslot.ErrInvalidDate),
		errors.Is(err, timeslot.ErrInvalidClock),
		errors.Is(err, timeslot.ErrInvalidSlot):
		return http.StatusUnprocessableEntity, errorBody{Message: err.Error()}
	case errors.Is(err, domainbooking.ErrSlotTaken):
		return http.StatusConflict, errorBody{
			Message: slotTakenMessage,
			Errors:  map[string][]string{"time": {slotTakenMessage}},
		}
	case errors.Is(err, middleware.ErrIdempotencyKeyReused):
		msg := "The idempotency key was already used for a different request."
		return http.StatusUnprocessableEntity, errorBody{Message: msg, Errors: map[string][]string{"idempotency_key": {msg}}}
	case errors.Is(err, domainwaitlist.ErrSlotUnavailable):
		return http.StatusUnprocessableEntity, errorBody{Message: "Resource is not available for the requested time slot."}
	case errors.Is(err, domainbooking.ErrInvalidTransition),
		errors.Is(err, domainwaitlist.ErrInvalidTransition):
		return http.StatusBadRequest, errorBody{Message: transitionMessage(err)}
	case errors.Is(err, domainbooking.ErrConcurrentUpdate),
		errors.Is(err, domainwaitlist.ErrConcurrentUpdate),
		errors.Is(err, locking.ErrStaleScope):
		return http.StatusConflict, errorBody{Message: "The record was changed by another request. Please retry."}
	case errors.Is(err, domainbooking.ErrNotFound):
		return http.StatusNotFound, errorBody{Message: "Booking not found."}
	case errors.Is(err, domainwaitlist.ErrNotFound):
		return http.StatusNotFound, errorBody{Message: "Waiting list entry not found."}
	case errors.Is(err, domainresource.ErrNotFound):
		return http.StatusNotFound, errorBody{Message: "Resource not found."}
	case errors.Is(err, domainuser.ErrNotFound):
		return http.StatusNotFound, errorBody{Message: "User not found."}
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorBody{Message: "Invalid credentials."}
	case errors.Is(err, identity.ErrUnauthenticated),
		errors.Is(err, domainauth.ErrTokenRequired),
		errors.Is(err, domainauth.ErrTokenInvalid),
		errors.Is(err, domainauth.ErrTokenExpired):
		return http.StatusUnauthorized, errorBody{Message: "Unauthenticated."}
	case errors.Is(err, identity.ErrForbidden):
		return http.StatusForbidden, errorBody{Message: "This action is unauthorized."}
	case errors.Is(err, locking.ErrLockTimeout):
		return http.StatusServiceUnavailable, errorBody{Message: "The time slot is busy. Please retry."}
	default:
		return http.StatusInternalServerError, errorBody{Message: "Server error."}
	}
}

func transitionMessage(err error) string {
	var bt *domainbooking.TransitionError
	if errors.As(err, &bt) {
		return upperFirst(bt.Error()) + "."
	}
	var wt *domainwaitlist.TransitionError
	if errors.As(err, &wt) {
		return upperFirst(wt.Error()) + "."
	}
	return "The requested status change is not allowed."
}

// bindRequest decodes the JSON body. Malformed JSON is reported like a field error.
func bindRequest(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return err
		}
		return validation.Field("body", "The request body must be valid JSON.")
	}
	return nil
}

func bindingFields(errs validator.ValidationErrors) map[string][]string {
	out := make(map[string][]string, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		out[field] = append(out[field], fieldMessage(field, fe))
	}
	return out
}

func fieldMessage(field string, fe validator.FieldError) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch fe.Tag() {
	case "required":
		return "The " + label + " field is required."
	case "email":
		return "The " + label + " must be a valid email address."
	case "max":
		return "The " + label + " may not be greater than " + fe.Param() + " characters."
	case "min", "gte":
		return "The " + label + " must be at least " + fe.Param() + "."
	case "oneof":
		return "The selected " + label + " is invalid."
	default:
		return "The " + label + " is invalid."
	}
}

func firstMessage(fields map[string][]string) string {
	if len(fields) == 0 {
		return "The given data was invalid."
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	first := keys[0]
	for _, k := range keys[1:] {
		if k < first {
			first = k
		}
	}
	if msgs := fields[first]; len(msgs) > 0 {
		return msgs[0]
	}
	return "The given data was invalid."
}

// jsonFieldName makes validator report fields by their JSON names.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
