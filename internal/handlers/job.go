package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hirehub/apiserver/internal/services"
	"github.com/hirehub/apiserver/types"
)

const (
	formFieldResume    = "file"
	maxMultipartMemory = 8 << 20
	// multipartOverhead is added to the body cap on top of the two-file
	// allowance, leaving room for boundaries and part headers.
	multipartOverhead = 1 << 20
)

// JobHandler provides HTTP handlers for jobs and applications.
type JobHandler struct {
	jobs         *services.JobService
	applications *services.ApplicationService
	maxFileSize  int64
	validator    *validator.Validate
	rs           *Responder
}

func NewJobHandler(
	jobs *services.JobService,
	applications *services.ApplicationService,
	maxFileSize int64,
	rs *Responder,
) *JobHandler {
	return &JobHandler{
		jobs:         jobs,
		applications: applications,
		maxFileSize:  maxFileSize,
		validator:    newValidator(),
		rs:           rs,
	}
}

// JobRouter registers job routes on the given router.
func JobRouter(r chi.Router, h *JobHandler, authn func(http.Handler) http.Handler) {
	publishers := Authorize(h.rs, types.RoleEmployer, types.RoleAdmin)
	applicants := Authorize(h.rs, types.RoleUser)

	r.Get("/jobs", h.rs.Handle(h.ListJobs))
	r.Get("/job/search", h.rs.Handle(h.SearchJobs))
	r.Get("/job/{id}", h.rs.Handle(h.GetJob))
	r.With(authn, publishers).Post("/job/new", h.rs.Handle(h.CreateJob))
	r.With(authn, publishers).Put("/job/{id}", h.rs.Handle(h.UpdateJob))
	r.With(authn, publishers).Delete("/job/{id}", h.rs.Handle(h.DeleteJob))
	r.With(authn, applicants).Put("/job/{id}/apply", h.rs.Handle(h.ApplyToJob))
}

type CreateJobRequest struct {
	Title        string           `json:"title" validate:"required,max=100"`
	Description  string           `json:"description" validate:"required,max=1000"`
	Email        string           `json:"email" validate:"omitempty,email"`
	Address      string           `json:"address" validate:"required"`
	CountryCode  string           `json:"countryCode" validate:"required,country"`
	Company      string           `json:"company" validate:"required"`
	Industry     []types.Industry `json:"industry" validate:"required,min=1,dive,enum"`
	JobType      types.JobType    `json:"jobType" validate:"required,enum"`
	MinEducation types.Education  `json:"minEducation" validate:"required,enum"`
	Positions    int              `json:"positions" validate:"omitempty,min=1"`
	Experience   types.Experience `json:"experience" validate:"required,enum"`
	Salary       float64          `json:"salary" validate:"required,min=0"`
	PostingDate  *time.Time       `json:"postingDate"`
	LastDate     *time.Time       `json:"lastDate"`
}

func (req CreateJobRequest) job() types.Job {
	job := types.Job{
		Title:        req.Title,
		Description:  req.Description,
		Email:        req.Email,
		Address:      req.Address,
		CountryCode:  req.CountryCode,
		Company:      req.Company,
		Industry:     req.Industry,
		JobType:      req.JobType,
		MinEducation: req.MinEducation,
		Positions:    req.Positions,
		Experience:   req.Experience,
		Salary:       req.Salary,
	}
	if req.PostingDate != nil {
		job.PostingDate = *req.PostingDate
	}
	if req.LastDate != nil {
		job.LastDate = *req.LastDate
	}
	return job
}

type JobResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Data    types.Job `json:"data"`
}

type JobListResponse struct {
	Success bool        `json:"success"`
	Count   int         `json:"count"`
	Data    []types.Job `json:"data"`
}

type ApplyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) error {
	jobs, err := h.jobs.List(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, JobListResponse{Success: true, Count: len(jobs), Data: jobs})
	return nil
}

func (h *JobHandler) SearchJobs(w http.ResponseWriter, r *http.Request) error {
	jobs, err := h.jobs.Search(r.Context(), r.URL.Query())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, JobListResponse{Success: true, Count: len(jobs), Data: jobs})
	return nil
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) error {
	id, err := parseID(r)
	if err != nil {
		return err
	}
	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, JobResponse{Success: true, Data: job})
	return nil
}

// CreateJob stores a job owned by the caller. Any owner in the body is ignored.
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) error {
	owner, err := currentUser(r)
	if err != nil {
		return err
	}

	var req CreateJobRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	job, err := h.jobs.Create(r.Context(), owner, req.job())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, JobResponse{Success: true, Message: "Job Created.", Data: job})
	return nil
}

func (h *JobHandler) UpdateJob(w http.ResponseWriter, r *http.Request) error {
	actor, err := currentUser(r)
	if err != nil {
		return err
	}
	id, err := parseID(r)
	if err != nil {
		return err
	}

	var patch services.JobPatch
	if err := decodeJSON(r, &patch); err != nil {
		return err
	}
	if err := h.validator.Struct(patch); err != nil {
		return err
	}

	job, err := h.jobs.Update(r.Context(), actor, id, patch)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, JobResponse{Success: true, Message: "Job is updated.", Data: job})
	return nil
}

func (h *JobHandler) DeleteJob(w http.ResponseWriter, r *http.Request) error {
	actor, err := currentUser(r)
	if err != nil {
		return err
	}
	id, err := parseID(r)
	if err != nil {
		return err
	}

	if err := h.jobs.Delete(r.Context(), actor, id); err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, MessageResponse{Success: true, Message: "Job is deleted."})
	return nil
}

// ApplyToJob accepts a resume upload in the multipart field "file". A missing
// file is reported by the application checks, after the job checks.
func (h *JobHandler) ApplyToJob(w http.ResponseWriter, r *http.Request) error {
	applicant, err := currentUser(r)
	if err != nil {
		return err
	}
	id, err := parseID(r)
	if err != nil {
		return err
	}

	r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxFileSize+multipartOverhead)
	resume, cleanup, err := resumeFromRequest(r)
	if err != nil {
		return err
	}
	defer cleanup()

	name, err := h.applications.Apply(r.Context(), id, applicant, resume)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, ApplyResponse{Success: true, Message: "Applied to Job successfully.", Data: name})
	return nil
}

// resumeFromRequest returns the uploaded resume, or nil when there is none.
func resumeFromRequest(r *http.Request) (*services.Resume, func(), error) {
	noop := func() {}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, noop, err
		case errors.Is(err, http.ErrNotMultipart):
			return nil, noop, nil
		}
		return nil, noop, badRequest("invalid multipart form")
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	file, header, err := r.FormFile(formFieldResume)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, cleanup, nil
		}
		return nil, cleanup, badRequest("invalid resume upload")
	}

	return &services.Resume{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: contentType(header),
		Content:     file,
	}, func() { _ = file.Close(); cleanup() }, nil
}

func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func parseID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		return 0, badRequest("invalid id")
	}
	return id, nil
}
