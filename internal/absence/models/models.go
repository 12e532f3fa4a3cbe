package models

import (
	"slices"
	"time"

	followupModels "flock/internal/followup/models"
	id "flock/pkg/domain"
)

// FollowUpThreshold is the consecutive-absence count that opens a task.
const FollowUpThreshold = 2

// Absence is one expected member missing from one service occurrence.
type Absence struct {
	MemberID   id.MemberID  `json:"member_id"`
	ServiceID  id.ServiceID `json:"service_id"`
	Date       id.Date      `json:"date"`
	RecordedAt time.Time    `json:"recorded_at"`
}

// Missed converts the absence into a follow-up missed occurrence.
func (a Absence) Missed() followupModels.MissedOccurrence {
	return followupModels.MissedOccurrence{ServiceID: a.ServiceID, Date: a.Date}
}

// Absentee is one member reported absent with their post-run streak.
type Absentee struct {
	MemberID            id.MemberID `json:"member_id"`
	Name                string      `json:"name"`
	ConsecutiveAbsences int         `json:"consecutive_absences"`
}

// Report is the outcome of evaluating one (service, date). It is stored, so
// a repeat evaluation returns it unchanged with AlreadyEvaluated set.
type Report struct {
	ServiceID        id.ServiceID `json:"service_id"`
	Date             id.Date      `json:"date"`
	TotalExpected    int          `json:"total_expected"`
	TotalAttended    int          `json:"total_attended"`
	Absentees        []Absentee   `json:"absentees"`
	FollowUpTaskIDs  []id.TaskID  `json:"follow_up_task_ids"`
	EvaluatedAt      time.Time    `json:"evaluated_at"`
	AlreadyEvaluated bool         `json:"already_evaluated"`
}

func (r *Report) Clone() *Report {
	c := *r
	c.Absentees = slices.Clone(r.Absentees)
	c.FollowUpTaskIDs = slices.Clone(r.FollowUpTaskIDs)
	return &c
}
