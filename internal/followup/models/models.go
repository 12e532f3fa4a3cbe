package models

import (
	"math"
	"slices"
	"time"

	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
)

// MaxOutcomeNotesLength bounds completion notes.
const MaxOutcomeNotesLength = 1000

// AutoTaskDueIn is how long a coordinator has to act on an absence task.
const AutoTaskDueIn = 48 * time.Hour

// Reason is why a follow-up exists.
type Reason string

const (
	ReasonConsecutiveAbsences Reason = "consecutive_absences"
	ReasonLowEngagement       Reason = "low_engagement"
	ReasonFirstTimeVisitor    Reason = "first_time_visitor"
	ReasonReturningMember     Reason = "returning_member"
	ReasonSpecialNeeds        Reason = "special_needs"
	ReasonBirthday            Reason = "birthday"
	ReasonAnniversary         Reason = "anniversary"
	ReasonPrayerRequest       Reason = "prayer_request"
	ReasonCustom              Reason = "custom"
)

func (r Reason) IsValid() bool {
	switch r {
	case ReasonConsecutiveAbsences, ReasonLowEngagement, ReasonFirstTimeVisitor,
		ReasonReturningMember, ReasonSpecialNeeds, ReasonBirthday,
		ReasonAnniversary, ReasonPrayerRequest, ReasonCustom:
		return true
	}
	return false
}

// Priority orders tasks by urgency; the numeric order is meaningful.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	return p.rank() > 0
}

func (p Priority) rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// PriorityForMisses is high from three missed occurrences, medium below.
func PriorityForMisses(n int) Priority {
	if n >= 3 {
		return PriorityHigh
	}
	return PriorityMedium
}

// Status is a task's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsOpen reports whether work can still happen on the task.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusInProgress
}

// CanTransitionTo encodes pending -> in_progress -> completed, with
// cancellation from either open state. Terminal states go nowhere.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusCompleted || next == StatusCancelled
	case StatusInProgress:
		return next == StatusCompleted || next == StatusCancelled
	case StatusCompleted, StatusCancelled:
		return false
	}
	return false
}

// ContactMethod is the channel used for an outreach attempt.
type ContactMethod string

const (
	ContactCall     ContactMethod = "call"
	ContactSMS      ContactMethod = "sms"
	ContactEmail    ContactMethod = "email"
	ContactVisit    ContactMethod = "visit"
	ContactWhatsApp ContactMethod = "whatsapp"
	ContactOther    ContactMethod = "other"
)

func (m ContactMethod) IsValid() bool {
	switch m {
	case ContactCall, ContactSMS, ContactEmail, ContactVisit, ContactWhatsApp, ContactOther:
		return true
	}
	return false
}

// ContactOutcome is the result of an outreach attempt.
type ContactOutcome string

const (
	ContactSuccessful        ContactOutcome = "successful"
	ContactNoResponse        ContactOutcome = "no_response"
	ContactCallbackRequested ContactOutcome = "callback_requested"
	ContactDeclined          ContactOutcome = "declined"
)

func (o ContactOutcome) IsValid() bool {
	switch o {
	case ContactSuccessful, ContactNoResponse, ContactCallbackRequested, ContactDeclined:
		return true
	}
	return false
}

// Outcome is how a completed task resolved.
type Outcome string

const (
	OutcomeResolved           Outcome = "resolved"
	OutcomeMemberReturned     Outcome = "member_returned"
	OutcomeNeedsPastoralCare  Outcome = "needs_pastoral_care"
	OutcomeRelocated          Outcome = "relocated"
	OutcomeNoLongerInterested Outcome = "no_longer_interested"
	OutcomeRequiresEscalation Outcome = "requires_escalation"
	OutcomePending            Outcome = "pending"
)

func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeResolved, OutcomeMemberReturned, OutcomeNeedsPastoralCare, OutcomeRelocated,
		OutcomeNoLongerInterested, OutcomeRequiresEscalation, OutcomePending:
		return true
	}
	return false
}

// MissedOccurrence identifies one service occurrence a member was absent from.
type MissedOccurrence struct {
	ServiceID id.ServiceID `json:"service_id"`
	Date      id.Date      `json:"date"`
}

// ContactAttempt is one entry of a task's outreach history.
type ContactAttempt struct {
	Date        time.Time      `json:"date"`
	Method      ContactMethod  `json:"method"`
	Outcome     ContactOutcome `json:"outcome"`
	Notes       string         `json:"notes,omitempty"`
	ContactedBy id.MemberID    `json:"contacted_by"`
}

// Validate checks the attempt's enumerations.
func (a ContactAttempt) Validate() error {
	if !a.Method.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid contact method")
	}
	if !a.Outcome.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid contact outcome")
	}
	return nil
}

// Task is a trackable unit of pastoral outreach. For reason
// consecutive_absences at most one open task exists per member.
type Task struct {
	ID                  id.TaskID          `json:"id"`
	MemberID            id.MemberID        `json:"member_id"`
	Reason              Reason             `json:"reason"`
	CustomReason        string             `json:"custom_reason,omitempty"`
	Notes               string             `json:"notes,omitempty"`
	MissedOccurrences   []MissedOccurrence `json:"missed_occurrences"`
	ConsecutiveAbsences int                `json:"consecutive_absences"`
	AssignedTo          *id.MemberID       `json:"assigned_to,omitempty"`
	AssignedBy          *id.MemberID       `json:"assigned_by,omitempty"`
	Priority            Priority           `json:"priority"`
	Status              Status             `json:"status"`
	DueDate             time.Time          `json:"due_date"`
	CompletedDate       *time.Time         `json:"completed_date,omitempty"`
	ContactAttempts     []ContactAttempt   `json:"contact_attempts"`
	Outcome             Outcome            `json:"outcome,omitempty"`
	OutcomeNotes        string             `json:"outcome_notes,omitempty"`
	CancelReason        string             `json:"cancel_reason,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// NewAbsenceTask builds a pending consecutive-absence task due two days out.
func NewAbsenceTask(memberID id.MemberID, missed []MissedOccurrence, assignee *id.MemberID, now time.Time) *Task {
	return &Task{
		ID:                  id.NewTaskID(),
		MemberID:            memberID,
		Reason:              ReasonConsecutiveAbsences,
		MissedOccurrences:   slices.Clone(missed),
		ConsecutiveAbsences: len(missed),
		AssignedTo:          assignee,
		Priority:            PriorityForMisses(len(missed)),
		Status:              StatusPending,
		DueDate:             now.Add(AutoTaskDueIn),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// MaxCustomReasonLength bounds the free-text reason of a custom task.
const MaxCustomReasonLength = 200

// ManualTask is a follow-up opened by a pastor or administrator. Absence
// tasks are only ever opened by absence evaluation.
type ManualTask struct {
	MemberID     id.MemberID
	Reason       Reason
	CustomReason string
	Priority     Priority
	AssignedTo   id.MemberID
	DueDate      time.Time
	Notes        string
}

// Validate checks the request before any lookup.
func (m ManualTask) Validate() error {
	if m.MemberID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "member is required")
	}
	if m.AssignedTo.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "assignee is required")
	}
	if !m.Reason.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid reason")
	}
	if m.Reason == ReasonConsecutiveAbsences {
		return dErrors.New(dErrors.CodeValidation, "absence follow-ups are opened by absence evaluation")
	}
	if m.Reason == ReasonCustom && m.CustomReason == "" {
		return dErrors.New(dErrors.CodeValidation, "custom reason is required")
	}
	if len(m.CustomReason) > MaxCustomReasonLength {
		return dErrors.Newf(dErrors.CodeValidation, "custom reason cannot exceed %d characters", MaxCustomReasonLength)
	}
	if m.Priority != "" && !m.Priority.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid priority")
	}
	if len(m.Notes) > MaxOutcomeNotesLength {
		return dErrors.Newf(dErrors.CodeValidation, "notes cannot exceed %d characters", MaxOutcomeNotesLength)
	}
	return nil
}

// NewManualTask builds a pending task. Priority defaults to medium and the
// due date to two days out.
func NewManualTask(m ManualTask, assignedBy id.MemberID, now time.Time) *Task {
	priority := m.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	due := m.DueDate
	if due.IsZero() {
		due = now.Add(AutoTaskDueIn)
	}
	assignee, by := m.AssignedTo, assignedBy
	return &Task{
		ID:           id.NewTaskID(),
		MemberID:     m.MemberID,
		Reason:       m.Reason,
		CustomReason: m.CustomReason,
		Notes:        m.Notes,
		AssignedTo:   &assignee,
		AssignedBy:   &by,
		Priority:     priority,
		Status:       StatusPending,
		DueDate:      due,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ReplaceMissed overwrites the missed list and snapshot. Priority is
// recomputed but never lowered, so a manual escalation survives.
func (t *Task) ReplaceMissed(missed []MissedOccurrence, now time.Time) {
	t.MissedOccurrences = slices.Clone(missed)
	t.ConsecutiveAbsences = len(missed)
	if p := PriorityForMisses(len(missed)); p.rank() > t.Priority.rank() {
		t.Priority = p
	}
	t.UpdatedAt = now
}

// AddContactAttempt appends to the history. A successful contact moves a
// pending task to in progress.
func (t *Task) AddContactAttempt(a ContactAttempt) error {
	if !t.Status.IsOpen() {
		return dErrors.Newf(dErrors.CodeInvalidState, "task is %s", t.Status)
	}
	t.ContactAttempts = append(t.ContactAttempts, a)
	if a.Outcome == ContactSuccessful && t.Status == StatusPending {
		t.Status = StatusInProgress
	}
	t.UpdatedAt = a.Date
	return nil
}

// Complete closes the task with an outcome.
func (t *Task) Complete(outcome Outcome, notes string, now time.Time) error {
	if err := t.transition(StatusCompleted); err != nil {
		return err
	}
	done := now
	t.CompletedDate = &done
	t.Outcome = outcome
	if notes != "" {
		t.OutcomeNotes = notes
	}
	t.UpdatedAt = now
	return nil
}

// Cancel closes the task without an outcome.
func (t *Task) Cancel(reason string, now time.Time) error {
	if err := t.transition(StatusCancelled); err != nil {
		return err
	}
	t.CancelReason = reason
	t.UpdatedAt = now
	return nil
}

// Reassign hands an open task to another coordinator.
func (t *Task) Reassign(to id.MemberID, now time.Time) error {
	if !t.Status.IsOpen() {
		return dErrors.Newf(dErrors.CodeInvalidState, "task is %s", t.Status)
	}
	assignee := to
	t.AssignedTo = &assignee
	t.UpdatedAt = now
	return nil
}

func (t *Task) transition(next Status) error {
	if !t.Status.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot move task from %s to %s", t.Status, next)
	}
	t.Status = next
	return nil
}

// DaysOverdue is the whole days, rounded up, past the due date for tasks
// that are still open.
func (t *Task) DaysOverdue(now time.Time) int {
	if !t.Status.IsOpen() || !now.After(t.DueDate) {
		return 0
	}
	return int(math.Ceil(now.Sub(t.DueDate).Hours() / 24))
}

// Clone returns a deep copy.
func (t *Task) Clone() *Task {
	c := *t
	c.MissedOccurrences = slices.Clone(t.MissedOccurrences)
	c.ContactAttempts = slices.Clone(t.ContactAttempts)
	if t.AssignedTo != nil {
		a := *t.AssignedTo
		c.AssignedTo = &a
	}
	if t.AssignedBy != nil {
		b := *t.AssignedBy
		c.AssignedBy = &b
	}
	if t.CompletedDate != nil {
		d := *t.CompletedDate
		c.CompletedDate = &d
	}
	return &c
}

// OpenTask is an open task listed with how far past due it is.
type OpenTask struct {
	*Task
	DaysOverdue int `json:"days_overdue"`
}

// CompareUrgency orders the most urgent priority first, then the earliest
// due date.
func CompareUrgency(a, b *Task) int {
	if d := b.Priority.rank() - a.Priority.rank(); d != 0 {
		return d
	}
	return a.DueDate.Compare(b.DueDate)
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// TaskFilter narrows a task listing. Zero fields match everything.
type TaskFilter struct {
	Status     Status
	Priority   Priority
	AssignedTo *id.MemberID
	Page       int
	Limit      int
}

// Normalize validates the filter and fills paging defaults.
func (f *TaskFilter) Normalize() error {
	if f.Status != "" && !f.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid status")
	}
	if f.Priority != "" && !f.Priority.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid priority")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	f.Limit = min(f.Limit, MaxPageSize)
	return nil
}

// Offset is the number of matches skipped before the page.
func (f TaskFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// TaskPage is one page of a filtered listing.
type TaskPage struct {
	Tasks []OpenTask `json:"tasks"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Pages int        `json:"pages"`
}

// PageCount is the number of pages holding total matches.
func PageCount(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
