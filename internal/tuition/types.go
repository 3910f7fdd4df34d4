package tuition

import (
	"time"

	"github.com/google/uuid"

	"github.com/univbase/backend-univ/internal/finance"
)

// Breakdown represents the annual tuition cost sheet for a university,
// optionally scoped to a program and study year.
type Breakdown struct {
	ID              uuid.UUID         `json:"id"`
	UniversityID    uuid.UUID         `json:"university_id"`
	ProgramID       *uuid.UUID        `json:"program_id,omitempty"`
	AcademicYear    string            `json:"academic_year"`
	YearNumber      int               `json:"year_number"`
	Currency        string            `json:"currency"`
	LineItems       finance.LineItems `json:"line_items"`
	TotalBase       finance.Money     `json:"total_base"`
	TotalAdditional finance.Money     `json:"total_additional"`
	GrandTotal      finance.Money     `json:"grand_total"`
	EffectiveDate   time.Time         `json:"effective_date"`
	ExpiryDate      *time.Time        `json:"expiry_date,omitempty"`
	IsActive        bool              `json:"is_active"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Schedule        []Installment     `json:"schedule,omitempty"`
}

// Installment is one slice of a breakdown's payment schedule.
type Installment struct {
	ID                uuid.UUID     `json:"id"`
	BreakdownID       uuid.UUID     `json:"breakdown_id"`
	InstallmentCount  int           `json:"installment_count"`
	InstallmentNumber int           `json:"installment_number"`
	Amount            finance.Money `json:"amount"`
	DueDate           time.Time     `json:"due_date"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Input captures payload for creating or updating a breakdown. RawItems
// carries the cost categories as submitted; unknown categories are dropped
// and non-numeric amounts coerce to zero during normalisation.
type Input struct {
	ProgramID        *uuid.UUID
	AcademicYear     string `validate:"required,min=4,max=20"`
	YearNumber       int    `validate:"min=1,max=8"`
	Currency         string `validate:"omitempty,len=3"`
	RawItems         finance.RawItems
	EffectiveDate    time.Time
	ExpiryDate       *time.Time
	IsActive         *bool
	InstallmentCount int `validate:"omitempty,min=1,max=12"`
	FirstDueDate     time.Time
}

// Patch carries a partial update. Nil fields leave the stored value
// untouched; a present RawItems replaces the whole line item set, after
// which totals and the payment schedule are rebuilt.
type Patch struct {
	ProgramID        *uuid.UUID
	AcademicYear     *string
	YearNumber       *int
	Currency         *string
	RawItems         finance.RawItems
	EffectiveDate    *time.Time
	ExpiryDate       *time.Time
	IsActive         *bool
	InstallmentCount *int
	FirstDueDate     *time.Time
}

func (p Patch) apply(existing Breakdown) Input {
	in := Input{
		ProgramID:     existing.ProgramID,
		AcademicYear:  existing.AcademicYear,
		YearNumber:    existing.YearNumber,
		Currency:      existing.Currency,
		RawItems:      rawFromLineItems(existing.LineItems),
		EffectiveDate: existing.EffectiveDate,
		ExpiryDate:    existing.ExpiryDate,
		IsActive:      &existing.IsActive,
	}
	if len(existing.Schedule) > 0 {
		in.InstallmentCount = existing.Schedule[0].InstallmentCount
		in.FirstDueDate = existing.Schedule[0].DueDate
	}
	if p.ProgramID != nil {
		in.ProgramID = p.ProgramID
	}
	if p.AcademicYear != nil {
		in.AcademicYear = *p.AcademicYear
	}
	if p.YearNumber != nil {
		in.YearNumber = *p.YearNumber
	}
	if p.Currency != nil {
		in.Currency = *p.Currency
	}
	if p.RawItems != nil {
		in.RawItems = p.RawItems
	}
	if p.EffectiveDate != nil {
		in.EffectiveDate = *p.EffectiveDate
	}
	if p.ExpiryDate != nil {
		in.ExpiryDate = p.ExpiryDate
	}
	if p.IsActive != nil {
		in.IsActive = p.IsActive
	}
	if p.InstallmentCount != nil {
		in.InstallmentCount = *p.InstallmentCount
	}
	if p.FirstDueDate != nil {
		in.FirstDueDate = *p.FirstDueDate
	}
	return in
}

func rawFromLineItems(items finance.LineItems) finance.RawItems {
	raw := make(finance.RawItems, len(items))
	for category, amount := range items {
		raw[category] = amount
	}
	return raw
}

// ListFilter narrows breakdown listings. Zero values pass everything.
type ListFilter struct {
	AcademicYear string
	YearNumber   int
	IsActive     *bool
}
