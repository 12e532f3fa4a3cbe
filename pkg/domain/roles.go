package domain

import dErrors "flock/pkg/domain-errors"

// Role is a member's standing in the congregation's administration.
// Invariant: one of the declared constants; construct with ParseRole at trust
// boundaries.
type Role string

const (
	RoleSuperAdmin     Role = "super_admin"
	RoleAdmin          Role = "admin"
	RolePastor         Role = "pastor"
	RoleDepartmentHead Role = "department_head"
	RoleMinister       Role = "minister"
	RoleWorker         Role = "worker"
	RoleMember         Role = "member"
	RoleVisitor        Role = "visitor"
)

// Capability is a single permission checked by services.
type Capability int

const (
	CapViewAllAttendance Capability = iota + 1
	CapEditAttendance
	CapDeleteAttendance
	CapOverrideGeofence
	CapManageAnyCheckIn
	CapManageUsers
	CapManageServices
	CapManageDepartments
	CapViewReports
	CapExportData
	CapSendNotifications
	CapManageFollowUps
	CapRunAbsenceChecks
	// CapAssignFollowUps opens manual tasks and sees every coordinator's.
	CapAssignFollowUps
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid reports whether r is a declared role.
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RolePastor, RoleDepartmentHead,
		RoleMinister, RoleWorker, RoleMember, RoleVisitor:
		return true
	}
	return false
}

// Can reports whether the role grants c. The switch is exhaustive over roles;
// an unknown role grants nothing.
func (r Role) Can(c Capability) bool {
	switch r {
	case RoleSuperAdmin:
		return true
	case RoleAdmin:
		switch c {
		case CapViewAllAttendance, CapEditAttendance, CapDeleteAttendance,
			CapOverrideGeofence, CapManageAnyCheckIn, CapManageUsers,
			CapManageServices, CapManageDepartments, CapViewReports,
			CapExportData, CapSendNotifications, CapManageFollowUps,
			CapRunAbsenceChecks, CapAssignFollowUps:
			return true
		}
		return false
	case RolePastor:
		switch c {
		case CapViewAllAttendance, CapViewReports, CapSendNotifications,
			CapManageFollowUps, CapAssignFollowUps, CapExportData:
			return true
		}
		return false
	case RoleDepartmentHead:
		switch c {
		case CapViewReports, CapManageFollowUps, CapExportData:
			return true
		}
		return false
	case RoleMinister:
		switch c {
		case CapViewReports, CapManageFollowUps:
			return true
		}
		return false
	case RoleWorker, RoleMember, RoleVisitor:
		return false
	}
	return false
}

// IsElevated reports whether the role may act on other members' check-ins.
func (r Role) IsElevated() bool {
	return r.Can(CapManageAnyCheckIn)
}

// Caller identifies who is invoking an operation.
type Caller struct {
	ID   MemberID
	Role Role
}

// Can reports whether the caller's role grants c.
func (c Caller) Can(capability Capability) bool {
	return c.Role.Can(capability)
}
