package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hirehub/apiserver/internal/storage"
)

// ResumeStorage is the file sink for uploaded resumes. *storage.Storage
// implements it.
type ResumeStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Resume is an uploaded file as received from the client.
type Resume struct {
	Filename    string
	Size        int64
	ContentType string
	Content     io.Reader
}

var resumeNameReplacer = strings.NewReplacer(" ", "_", "/", "_", `\`, "_")

// ResumeFileName is the stored name of an applicant's resume for a job:
// {name with spaces replaced by underscores}_{jobID}{ext}.
func ResumeFileName(applicantName string, jobID int, ext string) string {
	return resumeNameReplacer.Replace(applicantName) + "_" + strconv.Itoa(jobID) + ext
}

// deleteResume removes a stored resume and only logs failures.
func deleteResume(ctx context.Context, resumes ResumeStorage, logger *slog.Logger, name string) {
	if name == "" {
		return
	}
	err := resumes.Delete(ctx, name)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrObjectNotFound):
		logger.DebugContext(ctx, "resume already gone", "resume", name)
	default:
		logger.WarnContext(ctx, "failed to delete resume", "resume", name, "error", err)
	}
}
