package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hirehub/apiserver/internal/auth"
	"github.com/hirehub/apiserver/internal/services"
	"github.com/hirehub/apiserver/types"
)

// AuthHandler provides registration, login and logout.
type AuthHandler struct {
	users     *services.UserService
	tokens    *auth.TokenService
	validator *validator.Validate
	rs        *Responder
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(users *services.UserService, tokens *auth.TokenService, rs *Responder) *AuthHandler {
	return &AuthHandler{
		users:     users,
		tokens:    tokens,
		validator: newValidator(),
		rs:        rs,
	}
}

// AuthRouter registers auth routes. limit guards the credential endpoints
// and authn is the Authenticate middleware.
func AuthRouter(r chi.Router, h *AuthHandler, limit, authn func(http.Handler) http.Handler) {
	r.With(limit).Post("/register", h.rs.Handle(h.Register))
	r.With(limit).Post("/login", h.rs.Handle(h.Login))
	r.With(authn).Get("/logout", h.rs.Handle(h.Logout))
}

type RegisterRequest struct {
	Name     string     `json:"name" validate:"required,max=100"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=8,max=72"`
	Role     types.Role `json:"role" validate:"omitempty,oneof=user employer"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) error {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	user, err := h.users.Create(r.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return err
	}
	return h.tokens.AttachToResponse(w, user, http.StatusCreated)
}

// Login verifies credentials and signs the user in.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) error {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.Email == "" || req.Password == "" {
		return badRequest("please enter email and password")
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.tokens.AttachToResponse(w, user, http.StatusOK)
}

// Logout revokes the current token and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) error {
	if claims, ok := claimsFromContext(r.Context()); ok {
		if err := h.tokens.Revoke(r.Context(), claims); err != nil {
			return err
		}
	}
	h.tokens.ClearCookie(w)
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Logged out successfully."})
	return nil
}

// MessageResponse is a success body with no payload.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
