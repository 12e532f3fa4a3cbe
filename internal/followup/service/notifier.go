package service

import (
	"context"

	"flock/internal/notify"
)

// Notifier delivers fire-and-forget notifications.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notification)
}
