package program

import (
	"context"
	"errors"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/univbase/backend-univ/internal/common"
	"github.com/univbase/backend-univ/internal/listing"
	"github.com/univbase/backend-univ/internal/obs"
)

// Service orchestrates program CRUD under a university.
type Service struct {
	Store    Store
	Validate *validator.Validate
}

func (s *Service) validateInput(in *Input) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Department = strings.TrimSpace(in.Department)
	in.Level = strings.ToLower(strings.TrimSpace(in.Level))
	in.Language = strings.ToLower(strings.TrimSpace(in.Language))
	if in.DurationYears == 0 {
		in.DurationYears = 4
	}
	if in.Language == "" {
		in.Language = "en"
	}
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return common.ValidationError(strings.ToLower(verrs[0].Field()) + " failed on " + verrs[0].Tag())
			}
			return common.ValidationError("invalid payload")
		}
	}
	return nil
}

// Create inserts a program under the given university.
func (s *Service) Create(ctx context.Context, universityID uuid.UUID, in Input) (Program, error) {
	if err := s.validateInput(&in); err != nil {
		obs.RecordWritesTotal.WithLabelValues("program", "create", "invalid").Inc()
		return Program{}, err
	}
	p, err := s.Store.Insert(ctx, universityID, in)
	if err != nil {
		obs.RecordWritesTotal.WithLabelValues("program", "create", "error").Inc()
		return Program{}, mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("program", "create", "ok").Inc()
	return p, nil
}

// Update merges the patch over the stored record and persists the result.
func (s *Service) Update(ctx context.Context, universityID, id uuid.UUID, p Patch) (Program, error) {
	existing, err := s.Store.Get(ctx, universityID, id)
	if err != nil {
		return Program{}, mapStoreError(err)
	}
	in := p.apply(existing)
	if err := s.validateInput(&in); err != nil {
		obs.RecordWritesTotal.WithLabelValues("program", "update", "invalid").Inc()
		return Program{}, err
	}
	updated, err := s.Store.Update(ctx, universityID, id, in, existing.UpdatedAt)
	if err != nil {
		obs.RecordWritesTotal.WithLabelValues("program", "update", "error").Inc()
		return Program{}, mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("program", "update", "ok").Inc()
	return updated, nil
}

// Delete removes a program.
func (s *Service) Delete(ctx context.Context, universityID, id uuid.UUID) error {
	if err := s.Store.Delete(ctx, universityID, id); err != nil {
		obs.RecordWritesTotal.WithLabelValues("program", "delete", "error").Inc()
		return mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("program", "delete", "ok").Inc()
	return nil
}

// Get fetches one program.
func (s *Service) Get(ctx context.Context, universityID, id uuid.UUID) (Program, error) {
	p, err := s.Store.Get(ctx, universityID, id)
	if err != nil {
		return Program{}, mapStoreError(err)
	}
	return p, nil
}

// List returns a filtered, paginated slice of a university's programs.
func (s *Service) List(ctx context.Context, universityID uuid.UUID, filter ListFilter, page common.PageParams) (listing.Page[Program], error) {
	all, err := s.Store.ListByUniversity(ctx, universityID)
	if err != nil {
		return listing.Page[Program]{}, mapStoreError(err)
	}
	result := listing.FilterAndPaginate(all, page.Page, page.Limit,
		listing.Equals(strings.ToLower(filter.Level), func(p Program) string { return p.Level }),
		listing.Equals(filter.Department, func(p Program) string { return p.Department }),
		listing.BoolEquals(filter.IsActive, func(p Program) bool { return p.IsActive }),
		listing.Contains(filter.Search, func(p Program) []string { return []string{p.Name, p.Department} }),
	)
	return result, nil
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NotFound("program not found")
	case errors.Is(err, ErrUnknownUniversity):
		return common.NotFound("university not found")
	case errors.Is(err, ErrStale):
		return common.Conflict("program was modified concurrently, reload and retry")
	default:
		return common.OperationFailed("operation failed", err)
	}
}
