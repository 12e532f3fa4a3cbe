package handler

import (
	"strings"

	"flock/internal/attendance/models"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/geo"
	strs "flock/pkg/platform/strings"
	"flock/pkg/platform/validation"
)

// CheckInRequest is the body of POST /attendance/check-in. MemberID is only
// honoured for callers allowed to check in others; it defaults to the caller.
type CheckInRequest struct {
	ServiceID string     `json:"service_id" validate:"required,uuid"`
	MemberID  string     `json:"member_id,omitempty" validate:"omitempty,uuid"`
	Method    string     `json:"method,omitempty"`
	Location  *geo.Point `json:"location,omitempty"`
	Notes     string     `json:"notes,omitempty" validate:"max=500"`

	serviceID id.ServiceID
	memberID  id.MemberID
}

func (r *CheckInRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	var err error
	if r.serviceID, err = id.ParseServiceID(r.ServiceID); err != nil {
		return dErrors.New(dErrors.CodeValidation, "service_id is invalid")
	}
	if r.MemberID != "" {
		if r.memberID, err = id.ParseMemberID(r.MemberID); err != nil {
			return dErrors.New(dErrors.CodeValidation, "member_id is invalid")
		}
	}
	return nil
}

// QRCheckInRequest is the body of POST /attendance/qr-check-in.
type QRCheckInRequest struct {
	QRData    string     `json:"qr_data" validate:"required"`
	ServiceID string     `json:"service_id" validate:"required,uuid"`
	Location  *geo.Point `json:"location,omitempty"`

	serviceID id.ServiceID
}

func (r *QRCheckInRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	var err error
	if r.serviceID, err = id.ParseServiceID(r.ServiceID); err != nil {
		return dErrors.New(dErrors.CodeValidation, "service_id is invalid")
	}
	return nil
}

// BulkCheckInRequest is the body of POST /attendance/bulk.
type BulkCheckInRequest struct {
	MemberIDs []string `json:"member_ids" validate:"required,min=1"`
	ServiceID string   `json:"service_id" validate:"required,uuid"`
	Date      string   `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes     string   `json:"notes,omitempty" validate:"max=500"`
}

func (r *BulkCheckInRequest) ToModel() (models.BulkCheckInRequest, error) {
	if err := validation.Struct(r); err != nil {
		return models.BulkCheckInRequest{}, err
	}
	serviceID, err := id.ParseServiceID(r.ServiceID)
	if err != nil {
		return models.BulkCheckInRequest{}, dErrors.New(dErrors.CodeValidation, "service_id is invalid")
	}
	out := models.BulkCheckInRequest{ServiceID: serviceID, Notes: r.Notes}
	for _, raw := range strs.DedupeAndTrimLower(r.MemberIDs) {
		memberID, err := id.ParseMemberID(raw)
		if err != nil {
			return models.BulkCheckInRequest{}, dErrors.Newf(dErrors.CodeValidation, "member id %q is invalid", raw)
		}
		out.MemberIDs = append(out.MemberIDs, memberID)
	}
	if len(out.MemberIDs) == 0 {
		return models.BulkCheckInRequest{}, dErrors.New(dErrors.CodeValidation, "member_ids must not be empty")
	}
	if r.Date != "" {
		date, err := id.ParseDate(r.Date)
		if err != nil {
			return models.BulkCheckInRequest{}, dErrors.New(dErrors.CodeValidation, "date is invalid")
		}
		out.Date = &date
	}
	return out, nil
}

// AmendRequest is the body of PATCH /attendance/{id}.
type AmendRequest struct {
	Status          string `json:"status,omitempty"`
	Notes           string `json:"notes,omitempty"`
	ExceptionType   string `json:"exception_type,omitempty"`
	ExceptionReason string `json:"exception_reason,omitempty"`
}

func (r *AmendRequest) ToModel() models.Amendment {
	return models.Amendment{
		Status:          models.Status(strings.TrimSpace(r.Status)),
		Notes:           r.Notes,
		ExceptionType:   models.ExceptionType(strings.TrimSpace(r.ExceptionType)),
		ExceptionReason: r.ExceptionReason,
	}
}

// DeleteRequest is the optional body of DELETE /attendance/{id}.
type DeleteRequest struct {
	Reason string `json:"reason,omitempty"`
}
