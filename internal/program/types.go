package program

import (
	"time"

	"github.com/google/uuid"
)

// Program represents a degree program offered by a university.
type Program struct {
	ID            uuid.UUID `json:"id"`
	UniversityID  uuid.UUID `json:"university_id"`
	Name          string    `json:"name"`
	Department    string    `json:"department,omitempty"`
	Level         string    `json:"level"`
	DurationYears int       `json:"duration_years"`
	Language      string    `json:"language"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Input captures payload for creating or updating a program.
type Input struct {
	Name          string `validate:"required,min=2,max=200"`
	Department    string `validate:"max=200"`
	Level         string `validate:"required,oneof=bachelor master doctorate diploma"`
	DurationYears int    `validate:"min=1,max=8"`
	Language      string `validate:"max=10"`
	IsActive      *bool
}

// Patch carries a partial update. Nil fields leave the stored value
// untouched; present fields replace it wholesale.
type Patch struct {
	Name          *string
	Department    *string
	Level         *string
	DurationYears *int
	Language      *string
	IsActive      *bool
}

func (p Patch) apply(existing Program) Input {
	in := Input{
		Name:          existing.Name,
		Department:    existing.Department,
		Level:         existing.Level,
		DurationYears: existing.DurationYears,
		Language:      existing.Language,
		IsActive:      &existing.IsActive,
	}
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Department != nil {
		in.Department = *p.Department
	}
	if p.Level != nil {
		in.Level = *p.Level
	}
	if p.DurationYears != nil {
		in.DurationYears = *p.DurationYears
	}
	if p.Language != nil {
		in.Language = *p.Language
	}
	if p.IsActive != nil {
		in.IsActive = p.IsActive
	}
	return in
}

// ListFilter narrows program listings. Zero values pass everything.
type ListFilter struct {
	Level      string
	Department string
	IsActive   *bool
	Search     string
}
