package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hirehub/apiserver/internal/mq"
	"github.com/hirehub/apiserver/internal/store"
	"github.com/hirehub/apiserver/types"
)

// AccountService deletes accounts together with the data hanging off them.
type AccountService struct {
	users   UserRepository
	jobs    JobRepository
	resumes ResumeStorage
	events  EventPublisher
	logger  *slog.Logger
	now     func() time.Time
}

func NewAccountService(
	users UserRepository,
	jobs JobRepository,
	resumes ResumeStorage,
	events EventPublisher,
	logger *slog.Logger,
) *AccountService {
	if events == nil {
		events = NopPublisher{}
	}
	return &AccountService{
		users:   users,
		jobs:    jobs,
		resumes: resumes,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

// CleanupResult counts what OnAccountDeleted removed.
type CleanupResult struct {
	JobsDeleted         int64
	ApplicationsRemoved int
}

// DeleteAccount removes the user's dependent data and only then the user.
func (s *AccountService) DeleteAccount(ctx context.Context, userID int) (types.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, err
	}

	result, err := s.OnAccountDeleted(ctx, user)
	if err != nil {
		return types.User{}, err
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return types.User{}, ErrUserNotFound
		case errors.Is(err, store.ErrReferenced):
			// A job was created between the cleanup and the delete.
			return types.User{}, ErrAccountHasJobs
		}
		return types.User{}, fmt.Errorf("delete user: %w", err)
	}

	s.logger.InfoContext(ctx, "account deleted",
		"user_id", user.ID,
		"role", user.Role,
		"jobs_deleted", result.JobsDeleted,
		"applications_removed", result.ApplicationsRemoved,
	)

	event := AccountDeletedEvent{
		UserID:              user.ID,
		Role:                user.Role,
		JobsDeleted:         result.JobsDeleted,
		ApplicationsRemoved: result.ApplicationsRemoved,
		DeletedAt:           s.now(),
	}
	if err := s.events.PublishEvent(ctx, mq.ChannelAccountDeleted, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "channel", mq.ChannelAccountDeleted, "error", err)
	}
	return user, nil
}

// OnAccountDeleted removes what depends on user. Employers and admins lose
// their jobs, including the resumes submitted to them. Every account loses
// its own applications; the jobs it applied to are kept. Resume deletion is
// best-effort and skips files another application still points at. Store
// failures abort the cascade.
func (s *AccountService) OnAccountDeleted(ctx context.Context, user types.User) (CleanupResult, error) {
	var result CleanupResult

	if user.Role.OwnsJobs() {
		resumes, err := s.jobs.ListResumesByOwner(ctx, user.ID)
		if err != nil {
			return result, fmt.Errorf("list resumes of owned jobs: %w", err)
		}
		deleted, err := s.jobs.DeleteByOwner(ctx, user.ID)
		if err != nil {
			return result, fmt.Errorf("delete owned jobs: %w", err)
		}
		result.JobsDeleted = deleted
		for _, name := range resumes {
			s.releaseResume(ctx, name, 0)
		}
	}

	applied, err := s.jobs.ListAppliedBy(ctx, user.ID)
	if err != nil {
		return result, fmt.Errorf("list applications: %w", err)
	}
	for _, item := range applied {
		s.releaseResume(ctx, item.Resume, user.ID)
		if err := s.jobs.RemoveApplicant(ctx, item.Job.ID, user.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return result, fmt.Errorf("remove application from job %d: %w", item.Job.ID, err)
		}
		result.ApplicationsRemoved++
	}

	return result, nil
}

// releaseResume deletes the stored file unless an application by someone
// other than applicantID still references it. Applicants sharing a name share
// the file name for a job.
func (s *AccountService) releaseResume(ctx context.Context, name string, applicantID int) {
	inUse, err := s.jobs.ResumeInUse(ctx, name, applicantID)
	if err != nil {
		s.logger.WarnContext(ctx, "keeping resume, reference check failed", "resume", name, "error", err)
		return
	}
	if inUse {
		s.logger.DebugContext(ctx, "keeping shared resume", "resume", name, "user_id", applicantID)
		return
	}
	deleteResume(ctx, s.resumes, s.logger, name)
}
