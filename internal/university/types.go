package university

import (
	"time"

	"github.com/google/uuid"
)

// University represents an institution record in API-friendly format.
type University struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Country     string    `json:"country"`
	City        string    `json:"city,omitempty"`
	Website     string    `json:"website,omitempty"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Images      []Image   `json:"images,omitempty"`
}

// Image is a hosted photo attached to a university.
type Image struct {
	ID           uuid.UUID `json:"id"`
	UniversityID uuid.UUID `json:"university_id"`
	URL          string    `json:"url"`
	AltText      string    `json:"alt_text,omitempty"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	ByteSize     int64     `json:"byte_size,omitempty"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Input captures payload for creating or updating a university.
type Input struct {
	Name        string `validate:"required,min=2,max=200"`
	Slug        string `validate:"required,min=2,max=100"`
	Country     string `validate:"required,min=2,max=100"`
	City        string `validate:"max=100"`
	Website     string `validate:"omitempty,url"`
	Description string
	IsActive    *bool
}

// Patch carries a partial update. Nil fields leave the stored value
// untouched; present fields replace it wholesale.
type Patch struct {
	Name        *string
	Slug        *string
	Country     *string
	City        *string
	Website     *string
	Description *string
	IsActive    *bool
}

func (p Patch) apply(u University) Input {
	in := Input{
		Name:        u.Name,
		Slug:        u.Slug,
		Country:     u.Country,
		City:        u.City,
		Website:     u.Website,
		Description: u.Description,
		IsActive:    &u.IsActive,
	}
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Slug != nil {
		in.Slug = *p.Slug
	}
	if p.Country != nil {
		in.Country = *p.Country
	}
	if p.City != nil {
		in.City = *p.City
	}
	if p.Website != nil {
		in.Website = *p.Website
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.IsActive != nil {
		in.IsActive = p.IsActive
	}
	return in
}

// ListFilter narrows university listings. Zero values pass everything.
type ListFilter struct {
	Country  string
	City     string
	IsActive *bool
	Search   string
}
