package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/hirehub/apiserver/internal/auth"
	"github.com/hirehub/apiserver/internal/services"
	"github.com/hirehub/apiserver/internal/store"
)

var (
	errNotAuthenticated = errors.New("login first to access this resource")
	errRoleNotAllowed   = errors.New("your role is not allowed to access this resource")
)

// requestError is a malformed request detected by a handler itself.
type requestError struct {
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func badRequest(message string) error {
	return &requestError{message: message}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Responder is the single place where errors become HTTP responses.
type Responder struct {
	logger       *slog.Logger
	exposeDetail bool
}

// NewResponder constructs a Responder. With exposeDetail set, error bodies
// also carry the internal error text.
func NewResponder(logger *slog.Logger, exposeDetail bool) *Responder {
	return &Responder{logger: logger, exposeDetail: exposeDetail}
}

// Handle adapts an error-returning handler to http.HandlerFunc.
func (rs *Responder) Handle(fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			rs.Error(w, r, err)
		}
	}
}

// statusRule maps a sentinel to a status. Its text is the client message.
type statusRule struct {
	target error
	status int
}

var statusRules = []statusRule{
	{errNotAuthenticated, http.StatusUnauthorized},
	{auth.ErrTokenExpired, http.StatusUnauthorized},
	{auth.ErrTokenRevoked, http.StatusUnauthorized},
	{auth.ErrTokenInvalid, http.StatusUnauthorized},
	{services.ErrInvalidCredentials, http.StatusUnauthorized},
	{services.ErrWrongPassword, http.StatusUnauthorized},

	{errRoleNotAllowed, http.StatusForbidden},
	{services.ErrForbidden, http.StatusForbidden},

	{services.ErrJobNotFound, http.StatusNotFound},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrNoJobsFound, http.StatusNotFound},
	{store.ErrNotFound, http.StatusNotFound},

	{services.ErrEmailTaken, http.StatusConflict},
	{services.ErrAccountHasJobs, http.StatusConflict},
	{store.ErrDuplicate, http.StatusConflict},

	{services.ErrAlreadyApplied, http.StatusBadRequest},
	{services.ErrJobExpired, http.StatusBadRequest},
	{services.ErrMissingFile, http.StatusBadRequest},
	{services.ErrUnsupportedFileType, http.StatusBadRequest},
	{services.ErrFileTooLarge, http.StatusBadRequest},
	{services.ErrSamePassword, http.StatusBadRequest},

	{services.ErrStorage, http.StatusInternalServerError},
}

// Error writes err as {success:false, message}.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)

	if status >= http.StatusInternalServerError {
		rs.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	} else {
		rs.logger.DebugContext(r.Context(), "request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}

	resp := ErrorResponse{Success: false, Message: message}
	if rs.exposeDetail {
		resp.Error = err.Error()
	}
	writeJSON(w, status, resp)
}

func classify(err error) (int, string) {
	var (
		reqErr    *requestError
		domainErr *services.ValidationError
		fieldErrs validator.ValidationErrors
		tooLarge  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, reqErr.message
	case errors.As(err, &domainErr):
		return http.StatusBadRequest, domainErr.Message
	case errors.As(err, &fieldErrs):
		return http.StatusBadRequest, formatValidationErrors(fieldErrs)
	case errors.As(err, &tooLarge):
		return http.StatusBadRequest, services.ErrFileTooLarge.Error()
	}

	for _, rule := range statusRules {
		if errors.Is(err, rule.target) {
			return rule.status, rule.target.Error()
		}
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}
