package services

import (
	"context"
	"time"

	"github.com/hirehub/apiserver/types"
)

// EventPublisher delivers domain events. *mq.MQ implements it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, channel string, event any) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(context.Context, string, any) error { return nil }

// JobAppliedEvent is published on mq.ChannelJobApplied.
type JobAppliedEvent struct {
	JobID       int       `json:"jobId"`
	ApplicantID int       `json:"applicantId"`
	Resume      string    `json:"resume"`
	AppliedAt   time.Time `json:"appliedAt"`
}

// AccountDeletedEvent is published on mq.ChannelAccountDeleted.
type AccountDeletedEvent struct {
	UserID              int        `json:"userId"`
	Role                types.Role `json:"role"`
	JobsDeleted         int64      `json:"jobsDeleted"`
	ApplicationsRemoved int        `json:"applicationsRemoved"`
	DeletedAt           time.Time  `json:"deletedAt"`
}
