package aid

import (
	"time"

	"github.com/google/uuid"

	"github.com/univbase/backend-univ/internal/finance"
)

// Scholarship represents a merit or need based award offered by a university.
// Percentages are stored in basis points so award math stays in integers.
type Scholarship struct {
	ID                  uuid.UUID      `json:"id"`
	UniversityID        uuid.UUID      `json:"university_id"`
	Name                string         `json:"name"`
	Description         string         `json:"description,omitempty"`
	Amount              *finance.Money `json:"amount,omitempty"`
	PercentBps          *int32         `json:"percent_bps,omitempty"`
	MaxAmount           *finance.Money `json:"max_amount,omitempty"`
	Eligibility         string         `json:"eligibility,omitempty"`
	ApplicationDeadline *time.Time     `json:"application_deadline,omitempty"`
	IsActive            bool           `json:"is_active"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// FinancialAid represents a grant, loan or work-study offering.
type FinancialAid struct {
	ID           uuid.UUID      `json:"id"`
	UniversityID uuid.UUID      `json:"university_id"`
	Kind         string         `json:"kind"`
	Name         string         `json:"name"`
	Amount       *finance.Money `json:"amount,omitempty"`
	PercentBps   *int32         `json:"percent_bps,omitempty"`
	MaxAmount    *finance.Money `json:"max_amount,omitempty"`
	InterestBps  *int32         `json:"interest_bps,omitempty"`
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ScholarshipInput captures payload for creating or updating a scholarship.
// Percent arrives as a human-readable percentage and is converted to basis
// points at this boundary.
type ScholarshipInput struct {
	Name                string `validate:"required,min=2,max=200"`
	Description         string
	Amount              *finance.Money `validate:"omitempty,min=0"`
	Percent             *float64       `validate:"omitempty,min=0,max=100"`
	MaxAmount           *finance.Money `validate:"omitempty,min=0"`
	Eligibility         string
	ApplicationDeadline *time.Time
	IsActive            *bool
}

// AidInput captures payload for creating or updating a financial aid offering.
type AidInput struct {
	Kind        string `validate:"required,oneof=grant loan work_study"`
	Name        string `validate:"required,min=2,max=200"`
	Amount      *finance.Money `validate:"omitempty,min=0"`
	Percent     *float64       `validate:"omitempty,min=0,max=100"`
	MaxAmount   *finance.Money `validate:"omitempty,min=0"`
	InterestBps *int32         `validate:"omitempty,min=0"`
	IsActive    *bool
}

// ScholarshipPatch carries a partial scholarship update. Nil fields leave
// the stored value untouched.
type ScholarshipPatch struct {
	Name                *string
	Description         *string
	Amount              *finance.Money
	Percent             *float64
	MaxAmount           *finance.Money
	Eligibility         *string
	ApplicationDeadline *time.Time
	IsActive            *bool
}

func (p ScholarshipPatch) apply(existing Scholarship) ScholarshipInput {
	in := ScholarshipInput{
		Name:                existing.Name,
		Description:         existing.Description,
		Amount:              existing.Amount,
		Percent:             percentFromBps(existing.PercentBps),
		MaxAmount:           existing.MaxAmount,
		Eligibility:         existing.Eligibility,
		ApplicationDeadline: existing.ApplicationDeadline,
		IsActive:            &existing.IsActive,
	}
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Amount != nil {
		in.Amount = p.Amount
	}
	if p.Percent != nil {
		in.Percent = p.Percent
	}
	if p.MaxAmount != nil {
		in.MaxAmount = p.MaxAmount
	}
	if p.Eligibility != nil {
		in.Eligibility = *p.Eligibility
	}
	if p.ApplicationDeadline != nil {
		in.ApplicationDeadline = p.ApplicationDeadline
	}
	if p.IsActive != nil {
		in.IsActive = p.IsActive
	}
	return in
}

// AidPatch carries a partial financial aid update. Nil fields leave the
// stored value untouched.
type AidPatch struct {
	Kind        *string
	Name        *string
	Amount      *finance.Money
	Percent     *float64
	MaxAmount   *finance.Money
	InterestBps *int32
	IsActive    *bool
}

func (p AidPatch) apply(existing FinancialAid) AidInput {
	in := AidInput{
		Kind:        existing.Kind,
		Name:        existing.Name,
		Amount:      existing.Amount,
		Percent:     percentFromBps(existing.PercentBps),
		MaxAmount:   existing.MaxAmount,
		InterestBps: existing.InterestBps,
		IsActive:    &existing.IsActive,
	}
	if p.Kind != nil {
		in.Kind = *p.Kind
	}
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Amount != nil {
		in.Amount = p.Amount
	}
	if p.Percent != nil {
		in.Percent = p.Percent
	}
	if p.MaxAmount != nil {
		in.MaxAmount = p.MaxAmount
	}
	if p.InterestBps != nil {
		in.InterestBps = p.InterestBps
	}
	if p.IsActive != nil {
		in.IsActive = p.IsActive
	}
	return in
}

// percentFromBps inverts the basis point conversion so a stored award can
// pass back through input validation unchanged.
func percentFromBps(bps *int32) *float64 {
	if bps == nil {
		return nil
	}
	pct := float64(*bps) / 100
	return &pct
}

// ListFilter narrows scholarship and aid listings.
type ListFilter struct {
	Kind     string
	IsActive *bool
	Search   string
}
