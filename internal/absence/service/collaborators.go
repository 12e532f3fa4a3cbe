package service

import (
	"context"
	"time"

	followupModels "flock/internal/followup/models"
	id "flock/pkg/domain"
)

// FollowUpDispatcher opens or refreshes a member's absence follow-up.
type FollowUpDispatcher interface {
	CreateOrUpdateAutoFollowUp(ctx context.Context, memberID id.MemberID, missed []followupModels.MissedOccurrence) (*followupModels.Task, error)
}

// Locker serialises evaluations of one occurrence across processes. A held
// lock is reported as an error matching sentinel.ErrConflict.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}
