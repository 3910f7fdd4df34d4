package admission

import (
	"time"

	"github.com/google/uuid"
)

// Admission represents an intake cycle for a university or a specific program.
type Admission struct {
	ID                   uuid.UUID  `json:"id"`
	UniversityID         uuid.UUID  `json:"university_id"`
	ProgramID            *uuid.UUID `json:"program_id,omitempty"`
	AcademicYear         string     `json:"academic_year"`
	Intake               string     `json:"intake"`
	Capacity             int        `json:"capacity"`
	ApplicationsReceived int        `json:"applications_received"`
	OffersMade           int        `json:"offers_made"`
	ApplicationDeadline  time.Time  `json:"application_deadline"`
	DecisionDate         *time.Time `json:"decision_date,omitempty"`
	IsActive             bool       `json:"is_active"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Input captures payload for creating or updating an admission cycle.
type Input struct {
	ProgramID            *uuid.UUID
	AcademicYear         string `validate:"required,min=4,max=20"`
	Intake               string `validate:"required,oneof=spring summer fall winter"`
	Capacity             int    `validate:"min=0"`
	ApplicationsReceived int    `validate:"min=0"`
	OffersMade           int    `validate:"min=0"`
	ApplicationDeadline  time.Time
	DecisionDate         *time.Time
	IsActive             *bool
}

// Patch carries a partial update. Nil fields leave the stored value
// untouched; present fields replace it wholesale.
type Patch struct {
	ProgramID            *uuid.UUID
	AcademicYear         *string
	Intake               *string
	Capacity             *int
	ApplicationsReceived *int
	OffersMade           *int
	ApplicationDeadline  *time.Time
	DecisionDate         *time.Time
	IsActive             *bool
}

func (p Patch) apply(existing Admission) Input {
	in := Input{
		ProgramID:            existing.ProgramID,
		AcademicYear:         existing.AcademicYear,
		Intake:               existing.Intake,
		Capacity:             existing.Capacity,
		ApplicationsReceived: existing.ApplicationsReceived,
		OffersMade:           existing.OffersMade,
		ApplicationDeadline:  existing.ApplicationDeadline,
		DecisionDate:         existing.DecisionDate,
		IsActive:             &existing.IsActive,
	}
	if p.ProgramID != nil {
		in.ProgramID = p.ProgramID
	}
	if p.AcademicYear != nil {
		in.AcademicYear = *p.AcademicYear
	}
	if p.Intake != nil {
		in.Intake = *p.Intake
	}
	if p.Capacity != nil {
		in.Capacity = *p.Capacity
	}
	if p.ApplicationsReceived != nil {
		in.ApplicationsReceived = *p.ApplicationsReceived
	}
	if p.OffersMade != nil {
		in.OffersMade = *p.OffersMade
	}
	if p.ApplicationDeadline != nil {
		in.ApplicationDeadline = *p.ApplicationDeadline
	}
	if p.DecisionDate != nil {
		in.DecisionDate = p.DecisionDate
	}
	if p.IsActive != nil {
		in.IsActive = p.IsActive
	}
	return in
}

// ListFilter narrows admission listings. Zero values pass everything.
type ListFilter struct {
	AcademicYear string
	Intake       string
	IsActive     *bool
}
