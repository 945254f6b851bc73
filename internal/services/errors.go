package services

import (
	"errors"
	"fmt"

	"github.com/hirehub/apiserver/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWrongPassword      = errors.New("old password is incorrect")
	ErrSamePassword       = errors.New("new password should be different from old password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrForbidden          = errors.New("you are not allowed to modify this job")
	ErrAccountHasJobs     = errors.New("account still owns jobs")

	ErrJobExpired          = errors.New("you can not apply to this job, the last date is over")
	ErrAlreadyApplied      = errors.New("you have already applied for this job")
	ErrMissingFile         = errors.New("please upload a resume file")
	ErrUnsupportedFileType = errors.New("please upload a .pdf or .docx file")
	ErrFileTooLarge        = errors.New("resume exceeds the maximum allowed size")
	ErrStorage             = errors.New("could not store the resume")

	// The not-found sentinels wrap store.ErrNotFound so callers can match
	// either one.
	ErrJobNotFound  = fmt.Errorf("job %w", store.ErrNotFound)
	ErrUserNotFound = fmt.Errorf("user %w", store.ErrNotFound)
	ErrNoJobsFound  = fmt.Errorf("no jobs found: %w", store.ErrNotFound)
)

// ValidationError reports input that failed a domain rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
