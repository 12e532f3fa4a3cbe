// Package notify publishes fire-and-forget notifications. Callers never wait
// on delivery and never see delivery errors; failures are logged here.
package notify

import (
	"context"
	"time"
)

// Kind names a notification template.
type Kind string

const (
	KindRegistrationInvite Kind = "registration_invite"
	KindWelcome            Kind = "welcome"
	KindFollowUpAssigned   Kind = "follow_up_assigned"
)

// Notification addresses one message to a member, visitor or task.
type Notification struct {
	Kind       Kind              `json:"kind"`
	Subject    string            `json:"subject"`
	Recipient  string            `json:"recipient,omitempty"`
	Payload    map[string]string `json:"payload,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Dispatcher hands a notification off for delivery.
type Dispatcher interface {
	Notify(ctx context.Context, n Notification)
}
