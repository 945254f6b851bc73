package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hirehub/apiserver/internal/store"
	"github.com/hirehub/apiserver/types"
)

// JobRepository defines persistence operations for jobs and applications.
type JobRepository interface {
	List(ctx context.Context) ([]types.Job, error)
	Search(ctx context.Context, filter store.JobFilter) ([]types.Job, error)
	Get(ctx context.Context, id int) (types.Job, error)
	GetWithApplicants(ctx context.Context, id int) (types.Job, error)
	ListByOwner(ctx context.Context, ownerID int) ([]types.Job, error)
	ListAppliedBy(ctx context.Context, applicantID int) ([]types.AppliedJob, error)
	ListResumesByOwner(ctx context.Context, ownerID int) ([]string, error)
	ResumeInUse(ctx context.Context, name string, exceptApplicantID int) (bool, error)
	Create(ctx context.Context, job types.Job) (types.Job, error)
	Update(ctx context.Context, job types.Job) (types.Job, error)
	Delete(ctx context.Context, id int) error
	DeleteByOwner(ctx context.Context, ownerID int) (int64, error)
	AddApplicant(ctx context.Context, jobID int, applicant types.Applicant) error
	RemoveApplicant(ctx context.Context, jobID, applicantID int) error
}

// JobPatch holds the fields a job update may change. Nil fields are left
// untouched.
type JobPatch struct {
	Title        *string           `json:"title" validate:"omitempty,min=1,max=100"`
	Description  *string           `json:"description" validate:"omitempty,min=1,max=1000"`
	Email        *string           `json:"email" validate:"omitempty,email"`
	Address      *string           `json:"address" validate:"omitempty,min=1"`
	CountryCode  *string           `json:"countryCode" validate:"omitempty,country"`
	Company      *string           `json:"company" validate:"omitempty,min=1"`
	Industry     []types.Industry  `json:"industry" validate:"omitempty,min=1,dive,enum"`
	JobType      *types.JobType    `json:"jobType" validate:"omitempty,enum"`
	MinEducation *types.Education  `json:"minEducation" validate:"omitempty,enum"`
	Positions    *int              `json:"positions" validate:"omitempty,min=1"`
	Experience   *types.Experience `json:"experience" validate:"omitempty,enum"`
	Salary       *float64          `json:"salary" validate:"omitempty,min=0"`
	LastDate     *time.Time        `json:"lastDate"`
}

// JobService manages the job catalogue.
type JobService struct {
	repo    JobRepository
	resumes ResumeStorage
	logger  *slog.Logger
	now     func() time.Time
}

func NewJobService(repo JobRepository, resumes ResumeStorage, logger *slog.Logger) *JobService {
	return &JobService{repo: repo, resumes: resumes, logger: logger, now: time.Now}
}

func (s *JobService) List(ctx context.Context) ([]types.Job, error) {
	return s.repo.List(ctx)
}

func (s *JobService) Get(ctx context.Context, id int) (types.Job, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Job{}, ErrJobNotFound
		}
		return types.Job{}, err
	}
	return job, nil
}

// Create stores a new job owned by owner. Whatever owner the payload carried
// is replaced.
func (s *JobService) Create(ctx context.Context, owner types.User, job types.Job) (types.Job, error) {
	country, err := types.NormalizeCountryCode(job.CountryCode)
	if err != nil {
		return types.Job{}, validationError("countryCode", err.Error())
	}
	job.CountryCode = country
	job.OwnerID = owner.ID
	job.Slug = types.Slugify(job.Title)
	job.ApplicantsApplied = nil

	if job.PostingDate.IsZero() {
		job.PostingDate = s.now()
	}
	if job.LastDate.IsZero() {
		job.LastDate = job.PostingDate.Add(types.DefaultApplicationWindow)
	}
	if job.Positions == 0 {
		job.Positions = 1
	}

	created, err := s.repo.Create(ctx, job)
	if err != nil {
		return types.Job{}, fmt.Errorf("create job: %w", err)
	}
	s.logger.InfoContext(ctx, "job created", "job_id", created.ID, "owner_id", owner.ID)
	return created, nil
}

// Update applies patch to the job. Only its owner or an admin may do so.
func (s *JobService) Update(ctx context.Context, actor types.User, id int, patch JobPatch) (types.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return types.Job{}, err
	}
	if !canManage(actor, job) {
		return types.Job{}, ErrForbidden
	}

	required := []struct {
		field string
		value *string
	}{
		{"title", patch.Title},
		{"description", patch.Description},
		{"address", patch.Address},
		{"company", patch.Company},
	}
	for _, r := range required {
		if r.value == nil {
			continue
		}
		*r.value = strings.TrimSpace(*r.value)
		if *r.value == "" {
			return types.Job{}, validationError(r.field, fmt.Sprintf("please enter %s", r.field))
		}
	}

	if patch.Title != nil && *patch.Title != job.Title {
		job.Title = *patch.Title
		job.Slug = types.Slugify(job.Title)
	}
	if patch.CountryCode != nil {
		country, err := types.NormalizeCountryCode(*patch.CountryCode)
		if err != nil {
			return types.Job{}, validationError("countryCode", err.Error())
		}
		job.CountryCode = country
	}
	setIfPresent(&job.Description, patch.Description)
	setIfPresent(&job.Email, patch.Email)
	setIfPresent(&job.Address, patch.Address)
	setIfPresent(&job.Company, patch.Company)
	setIfPresent(&job.JobType, patch.JobType)
	setIfPresent(&job.MinEducation, patch.MinEducation)
	setIfPresent(&job.Positions, patch.Positions)
	setIfPresent(&job.Experience, patch.Experience)
	setIfPresent(&job.Salary, patch.Salary)
	setIfPresent(&job.LastDate, patch.LastDate)
	if patch.Industry != nil {
		job.Industry = patch.Industry
	}

	updated, err := s.repo.Update(ctx, job)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Job{}, ErrJobNotFound
		}
		return types.Job{}, fmt.Errorf("update job: %w", err)
	}
	return updated, nil
}

// Delete removes the job and then, best-effort, the resumes submitted to it.
func (s *JobService) Delete(ctx context.Context, actor types.User, id int) error {
	job, err := s.repo.GetWithApplicants(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrJobNotFound
		}
		return err
	}
	if !canManage(actor, job) {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrJobNotFound
		}
		return fmt.Errorf("delete job: %w", err)
	}
	for _, applicant := range job.ApplicantsApplied {
		deleteResume(ctx, s.resumes, s.logger, applicant.Resume)
	}

	s.logger.InfoContext(ctx, "job deleted", "job_id", id, "actor_id", actor.ID)
	return nil
}

// Search runs the filters carried by query. An empty result is ErrNoJobsFound.
func (s *JobService) Search(ctx context.Context, query url.Values) ([]types.Job, error) {
	jobs, err := s.repo.Search(ctx, ParseJobFilter(query))
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, ErrNoJobsFound
	}
	return jobs, nil
}

// ListByOwner returns the jobs published by ownerID.
func (s *JobService) ListByOwner(ctx context.Context, ownerID int) ([]types.Job, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Summaries returns the short form of the jobs published by ownerID.
func (s *JobService) Summaries(ctx context.Context, ownerID int) ([]types.JobSummary, error) {
	jobs, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	summaries := make([]types.JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, types.JobSummary{ID: job.ID, Title: job.Title, PostingDate: job.PostingDate})
	}
	return summaries, nil
}

// ListAppliedBy returns the jobs applicantID applied to.
func (s *JobService) ListAppliedBy(ctx context.Context, applicantID int) ([]types.AppliedJob, error) {
	return s.repo.ListAppliedBy(ctx, applicantID)
}

// ParseJobFilter turns search query parameters into a store filter.
// Unknown industries are dropped and an unparsable salary counts as 0.
func ParseJobFilter(query url.Values) store.JobFilter {
	filter := store.JobFilter{
		Title:        query.Get("title"),
		CountryCode:  strings.ToUpper(strings.TrimSpace(query.Get("countryCode"))),
		Company:      query.Get("company"),
		JobType:      types.JobType(query.Get("jobType")),
		MinEducation: types.Education(query.Get("minEducation")),
		Experience:   types.Experience(query.Get("experience")),
	}

	if raw := query.Get("industry"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if industry := types.Industry(name); industry.Valid() {
				filter.Industries = append(filter.Industries, industry)
			}
		}
	}

	if raw := query.Get("salary"); raw != "" {
		salary, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			salary = 0
		}
		minSalary := float64(salary)
		filter.MinSalary = &minSalary
	}

	return filter
}

func canManage(actor types.User, job types.Job) bool {
	return actor.Role == types.RoleAdmin || job.OwnerID == actor.ID
}

func setIfPresent[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
