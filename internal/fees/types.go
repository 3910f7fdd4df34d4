package fees

import (
	"time"

	"github.com/google/uuid"

	"github.com/univbase/backend-univ/internal/finance"
)

// Schema declares the recognised fee categories. Tuition, registration and
// examination fees are mandatory; the rest are optional services.
var Schema = finance.Schema{
	Mandatory: []string{"tuition_fee", "registration_fee", "examination_fee"},
	Optional:  []string{"library_fee", "laboratory_fee", "sports_fee", "transport_fee", "hostel_fee"},
}

// Structure represents the fee sheet for a university, optionally scoped
// to a program.
type Structure struct {
	ID             uuid.UUID         `json:"id"`
	UniversityID   uuid.UUID         `json:"university_id"`
	ProgramID      *uuid.UUID        `json:"program_id,omitempty"`
	AcademicYear   string            `json:"academic_year"`
	Currency       string            `json:"currency"`
	LineItems      finance.LineItems `json:"line_items"`
	TotalMandatory finance.Money     `json:"total_mandatory"`
	TotalOptional  finance.Money     `json:"total_optional"`
	GrandTotal     finance.Money     `json:"grand_total"`
	EffectiveDate  time.Time         `json:"effective_date"`
	ExpiryDate     *time.Time        `json:"expiry_date,omitempty"`
	IsActive       bool              `json:"is_active"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Input captures payload for creating or updating a fee structure.
type Input struct {
	ProgramID     *uuid.UUID
	AcademicYear  string `validate:"required,min=4,max=20"`
	Currency      string `validate:"omitempty,len=3"`
	RawItems      finance.RawItems
	EffectiveDate time.Time
	ExpiryDate    *time.Time
	IsActive      *bool
}

// Patch carries a partial update. Nil fields leave the stored value
// untouched; a present RawItems replaces the whole line item set, after
// which totals are rebuilt.
type Patch struct {
	ProgramID     *uuid.UUID
	AcademicYear  *string
	Currency      *string
	RawItems      finance.RawItems
	EffectiveDate *time.Time
	ExpiryDate    *time.Time
	IsActive      *bool
}

func (p Patch) apply(existing Structure) Input {
	in := Input{
		ProgramID:     existing.ProgramID,
		AcademicYear:  existing.AcademicYear,
		Currency:      existing.Currency,
		RawItems:      rawFromLineItems(existing.LineItems),
		EffectiveDate: existing.EffectiveDate,
		ExpiryDate:    existing.ExpiryDate,
		IsActive:      &existing.IsActive,
	}
	if p.ProgramID != nil {
		in.ProgramID = p.ProgramID
	}
	if p.AcademicYear != nil {
		in.AcademicYear = *p.AcademicYear
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
	return in
}

func rawFromLineItems(items finance.LineItems) finance.RawItems {
	raw := make(finance.RawItems, len(items))
	for category, amount := range items {
		raw[category] = amount
	}
	return raw
}

// ListFilter narrows fee structure listings. Zero values pass everything.
type ListFilter struct {
	AcademicYear string
	IsActive     *bool
}
