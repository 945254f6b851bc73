package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/hirehub/apiserver/internal/mq"
	"github.com/hirehub/apiserver/internal/store"
	"github.com/hirehub/apiserver/types"
)

var acceptedResumeExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
}

// ApplicationService decides whether a user may apply to a job and records
// the application.
type ApplicationService struct {
	jobs        JobRepository
	resumes     ResumeStorage
	events      EventPublisher
	maxFileSize int64
	logger      *slog.Logger
	now         func() time.Time
}

func NewApplicationService(
	jobs JobRepository,
	resumes ResumeStorage,
	events EventPublisher,
	maxFileSize int64,
	logger *slog.Logger,
) *ApplicationService {
	if events == nil {
		events = NopPublisher{}
	}
	return &ApplicationService{
		jobs:        jobs,
		resumes:     resumes,
		events:      events,
		maxFileSize: maxFileSize,
		logger:      logger,
		now:         time.Now,
	}
}

// Apply records applicant's application to jobID and returns the stored
// resume name. The checks run in a fixed order and stop at the first failure;
// nothing is written unless all of them pass, and the application is only
// recorded once the resume is stored.
func (s *ApplicationService) Apply(ctx context.Context, jobID int, applicant types.User, resume *Resume) (string, error) {
	job, err := s.jobs.GetWithApplicants(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrJobNotFound
		}
		return "", fmt.Errorf("load job: %w", err)
	}

	now := s.now()
	if !job.AcceptsApplicationsAt(now) {
		return "", ErrJobExpired
	}
	if job.HasApplicant(applicant.ID) {
		return "", ErrAlreadyApplied
	}
	if resume == nil || resume.Content == nil {
		return "", ErrMissingFile
	}

	ext := filepath.Ext(resume.Filename)
	if !acceptedResumeExtensions[ext] {
		return "", ErrUnsupportedFileType
	}
	if resume.Size > s.maxFileSize {
		return "", ErrFileTooLarge
	}

	name := ResumeFileName(applicant.Name, job.ID, ext)
	if err := s.resumes.Put(ctx, name, resume.Content, resume.Size, resume.ContentType); err != nil {
		s.logger.ErrorContext(ctx, "resume upload failed", "job_id", job.ID, "user_id", applicant.ID, "error", err)
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	entry := types.Applicant{ID: applicant.ID, Resume: name, AppliedAt: now}
	if err := s.jobs.AddApplicant(ctx, job.ID, entry); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			// A concurrent request from the same user won. The stored file
			// has the same name as theirs, so it stays.
			return "", ErrAlreadyApplied
		case errors.Is(err, store.ErrNotFound):
			deleteResume(ctx, s.resumes, s.logger, name)
			return "", ErrJobNotFound
		}
		deleteResume(ctx, s.resumes, s.logger, name)
		return "", fmt.Errorf("record application: %w", err)
	}

	s.logger.InfoContext(ctx, "application recorded", "job_id", job.ID, "user_id", applicant.ID)

	event := JobAppliedEvent{JobID: job.ID, ApplicantID: applicant.ID, Resume: name, AppliedAt: now}
	if err := s.events.PublishEvent(ctx, mq.ChannelJobApplied, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "channel", mq.ChannelJobApplied, "error", err)
	}
	return name, nil
}
