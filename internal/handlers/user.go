package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hirehub/apiserver/internal/auth"
	"github.com/hirehub/apiserver/internal/services"
	"github.com/hirehub/apiserver/types"
)

// UserHandler provides the profile, account and admin user endpoints.
type UserHandler struct {
	users     *services.UserService
	jobs      *services.JobService
	accounts  *services.AccountService
	tokens    *auth.TokenService
	validator *validator.Validate
	rs        *Responder
}

func NewUserHandler(
	users *services.UserService,
	jobs *services.JobService,
	accounts *services.AccountService,
	tokens *auth.TokenService,
	rs *Responder,
) *UserHandler {
	return &UserHandler{
		users:     users,
		jobs:      jobs,
		accounts:  accounts,
		tokens:    tokens,
		validator: newValidator(),
		rs:        rs,
	}
}

// UserRouter registers user routes. Every route requires authentication.
func UserRouter(r chi.Router, h *UserHandler, authn func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authn)

		r.Get("/me", h.rs.Handle(h.Me))
		r.Put("/password/update", h.rs.Handle(h.UpdatePassword))
		r.Put("/me/update", h.rs.Handle(h.UpdateProfile))
		r.Delete("/me/delete", h.rs.Handle(h.DeleteMe))

		r.With(Authorize(h.rs, types.RoleUser)).Get("/jobs/applied", h.rs.Handle(h.AppliedJobs))
		r.With(Authorize(h.rs, types.RoleEmployer, types.RoleAdmin)).Get("/jobs/published", h.rs.Handle(h.PublishedJobs))

		r.With(Authorize(h.rs, types.RoleAdmin)).Get("/users", h.rs.Handle(h.ListUsers))
		r.With(Authorize(h.rs, types.RoleAdmin)).Delete("/user/{id}", h.rs.Handle(h.DeleteUser))
	})
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
}

// Profile is a user together with the jobs they published.
type Profile struct {
	types.User
	JobsPublished []types.JobSummary `json:"jobsPublished"`
}

type ProfileResponse struct {
	Success bool    `json:"success"`
	Data    Profile `json:"data"`
}

type UserResponse struct {
	Success bool       `json:"success"`
	Data    types.User `json:"data"`
}

type UserListResponse struct {
	Success bool         `json:"success"`
	Count   int          `json:"count"`
	Data    []types.User `json:"data"`
}

type AppliedJobsResponse struct {
	Success bool               `json:"success"`
	Count   int                `json:"count"`
	Data    []types.AppliedJob `json:"data"`
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	published, err := h.jobs.Summaries(r.Context(), user.ID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Success: true, Data: Profile{User: user, JobsPublished: published}})
	return nil
}

// UpdatePassword changes the password, revokes the token used for the
// request and signs the user in again.
func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req UpdatePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	updated, err := h.users.UpdatePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return err
	}
	if err := h.revokeCurrent(r); err != nil {
		return err
	}
	return h.tokens.AttachToResponse(w, updated, http.StatusOK)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	updated, err := h.users.UpdateProfile(r.Context(), user.ID, req.Name, req.Email)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, UserResponse{Success: true, Data: updated})
	return nil
}

// DeleteMe deletes the caller's account and logs them out.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	if _, err := h.accounts.DeleteAccount(r.Context(), user.ID); err != nil {
		return err
	}
	if err := h.revokeCurrent(r); err != nil {
		return err
	}
	h.tokens.ClearCookie(w)
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Your account has been deleted."})
	return nil
}

func (h *UserHandler) AppliedJobs(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	applied, err := h.jobs.ListAppliedBy(r.Context(), user.ID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, AppliedJobsResponse{Success: true, Count: len(applied), Data: applied})
	return nil
}

func (h *UserHandler) PublishedJobs(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	jobs, err := h.jobs.ListByOwner(r.Context(), user.ID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, JobListResponse{Success: true, Count: len(jobs), Data: jobs})
	return nil
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := h.users.List(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, UserListResponse{Success: true, Count: len(users), Data: users})
	return nil
}

// DeleteUser lets an admin delete any account, with the same cascade as a
// self-delete.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) error {
	id, err := parseID(r)
	if err != nil {
		return err
	}
	if _, err := h.accounts.DeleteAccount(r.Context(), id); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "User is deleted."})
	return nil
}

func (h *UserHandler) revokeCurrent(r *http.Request) error {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		return nil
	}
	return h.tokens.Revoke(r.Context(), claims)
}
