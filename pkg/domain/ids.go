package domain

import (
	"github.com/google/uuid"

	dErrors "flock/pkg/domain-errors"
)

// Typed identifiers. Each is a distinct named type so a ServiceID can never be
// passed where a MemberID is expected.
type (
	MemberID     uuid.UUID
	ServiceID    uuid.UUID
	CheckInID    uuid.UUID
	TaskID       uuid.UUID
	VisitorID    uuid.UUID
	DepartmentID uuid.UUID
)

func (id MemberID) String() string     { return uuid.UUID(id).String() }
func (id ServiceID) String() string    { return uuid.UUID(id).String() }
func (id CheckInID) String() string    { return uuid.UUID(id).String() }
func (id TaskID) String() string       { return uuid.UUID(id).String() }
func (id VisitorID) String() string    { return uuid.UUID(id).String() }
func (id DepartmentID) String() string { return uuid.UUID(id).String() }

func (id MemberID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ServiceID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id CheckInID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id TaskID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id VisitorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DepartmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func NewMemberID() MemberID   { return MemberID(uuid.New()) }
func NewServiceID() ServiceID { return ServiceID(uuid.New()) }
func NewCheckInID() CheckInID { return CheckInID(uuid.New()) }
func NewTaskID() TaskID       { return TaskID(uuid.New()) }
func NewVisitorID() VisitorID { return VisitorID(uuid.New()) }

// ParseMemberID parses a member identifier at a trust boundary.
func ParseMemberID(s string) (MemberID, error) {
	u, err := parseID(s, "member id")
	return MemberID(u), err
}

// ParseServiceID parses a service identifier at a trust boundary.
func ParseServiceID(s string) (ServiceID, error) {
	u, err := parseID(s, "service id")
	return ServiceID(u), err
}

// ParseCheckInID parses a check-in event identifier at a trust boundary.
func ParseCheckInID(s string) (CheckInID, error) {
	u, err := parseID(s, "check-in id")
	return CheckInID(u), err
}

// ParseTaskID parses a follow-up task identifier at a trust boundary.
func ParseTaskID(s string) (TaskID, error) {
	u, err := parseID(s, "task id")
	return TaskID(u), err
}

// ParseDepartmentID parses a department identifier at a trust boundary.
func ParseDepartmentID(s string) (DepartmentID, error) {
	u, err := parseID(s, "department id")
	return DepartmentID(u), err
}

// parseID rejects empty, malformed and nil UUIDs.
func parseID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

// ParseVisitorID parses a visitor record identifier at a trust boundary.
func ParseVisitorID(s string) (VisitorID, error) {
	u, err := parseID(s, "visitor id")
	return VisitorID(u), err
}
