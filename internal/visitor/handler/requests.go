package handler

import (
	"flock/internal/visitor/models"
	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/geo"
)

// QuickCheckInRequest is the body of POST /visitors/check-in. Identity
// fields are validated by the service after normalisation.
type QuickCheckInRequest struct {
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email,omitempty"`
	ServiceID string     `json:"service_id"`
	Location  *geo.Point `json:"location,omitempty"`
	Source    string     `json:"source,omitempty"`

	serviceID id.ServiceID
}

func (r *QuickCheckInRequest) Validate() error {
	if r.ServiceID == "" {
		return dErrors.New(dErrors.CodeValidation, "service_id is required")
	}
	serviceID, err := id.ParseServiceID(r.ServiceID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "service_id is invalid")
	}
	r.serviceID = serviceID
	return nil
}

func (r *QuickCheckInRequest) identity() models.Identity {
	return models.Identity{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Email:     r.Email,
	}
}

// CompleteRegistrationRequest is the body of POST /visitors/complete-registration.
type CompleteRegistrationRequest struct {
	Token       string `json:"token"`
	Password    string `json:"password"`
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Address     string `json:"address,omitempty"`
}

func (r *CompleteRegistrationRequest) info() models.AdditionalInfo {
	return models.AdditionalInfo{
		Gender:      r.Gender,
		DateOfBirth: r.DateOfBirth,
		Address:     r.Address,
	}
}
