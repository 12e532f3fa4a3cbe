package service

import (
	"context"

	attendanceModels "flock/internal/attendance/models"
	"flock/internal/notify"
)

// CheckInGate admits registered members. Quick check-ins that resolve to a
// member are delegated to it unchanged.
type CheckInGate interface {
	SubmitCheckIn(ctx context.Context, req attendanceModels.CheckInRequest) (*attendanceModels.CheckInResult, error)
}

// Notifier delivers fire-and-forget notifications.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notification)
}
