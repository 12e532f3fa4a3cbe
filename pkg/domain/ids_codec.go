package domain

import (
	"database/sql/driver"

	"github.com/google/uuid"
)

// Text and SQL codecs. The named ID types do not inherit uuid.UUID's methods,
// so each forwards to it explicitly.

func (id MemberID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id ServiceID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id CheckInID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id TaskID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id VisitorID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id DepartmentID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *MemberID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ServiceID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CheckInID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *TaskID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *VisitorID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DepartmentID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id MemberID) Value() (driver.Value, error)     { return uuid.UUID(id).Value() }
func (id ServiceID) Value() (driver.Value, error)    { return uuid.UUID(id).Value() }
func (id CheckInID) Value() (driver.Value, error)    { return uuid.UUID(id).Value() }
func (id TaskID) Value() (driver.Value, error)       { return uuid.UUID(id).Value() }
func (id VisitorID) Value() (driver.Value, error)    { return uuid.UUID(id).Value() }
func (id DepartmentID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }

func (id *MemberID) Scan(src any) error     { return (*uuid.UUID)(id).Scan(src) }
func (id *ServiceID) Scan(src any) error    { return (*uuid.UUID)(id).Scan(src) }
func (id *CheckInID) Scan(src any) error    { return (*uuid.UUID)(id).Scan(src) }
func (id *TaskID) Scan(src any) error       { return (*uuid.UUID)(id).Scan(src) }
func (id *VisitorID) Scan(src any) error    { return (*uuid.UUID)(id).Scan(src) }
func (id *DepartmentID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
