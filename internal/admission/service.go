package admission

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

// Service orchestrates admission cycle CRUD under a university.
type Service struct {
	Store    Store
	Validate *validator.Validate
}

func (s *Service) validateInput(in *Input) error {
	in.AcademicYear = strings.TrimSpace(in.AcademicYear)
	in.Intake = strings.ToLower(strings.TrimSpace(in.Intake))
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return common.ValidationError(strings.ToLower(verrs[0].Field()) + " failed on " + verrs[0].Tag())
			}
			return common.ValidationError("invalid payload")
		}
	}
	if in.ApplicationDeadline.IsZero() {
		return common.ValidationError("application_deadline is required")
	}
	if in.OffersMade > in.ApplicationsReceived {
		return common.ValidationError("offers_made cannot exceed applications_received")
	}
	if in.DecisionDate != nil && !in.DecisionDate.After(in.ApplicationDeadline) {
		return common.ValidationError("decision_date must be after application_deadline")
	}
	return nil
}

// Create inserts an admission cycle under the given university.
func (s *Service) Create(ctx context.Context, universityID uuid.UUID, in Input) (Admission, error) {
	if err := s.validateInput(&in); err != nil {
		obs.RecordWritesTotal.WithLabelValues("admission", "create", "invalid").Inc()
		return Admission{}, err
	}
	a, err := s.Store.Insert(ctx, universityID, in)
	if err != nil {
		obs.RecordWritesTotal.WithLabelValues("admission", "create", "error").Inc()
		return Admission{}, mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("admission", "create", "ok").Inc()
	return a, nil
}

// Update replaces mutable fields on an admission cycle.
func (s *Service) Update(ctx context.Context, universityID, id uuid.UUID, p Patch) (Admission, error) {
	existing, err := s.Store.Get(ctx, universityID, id)
	if err != nil {
		return Admission{}, mapStoreError(err)
	}
	in := p.apply(existing)
	if err := s.validateInput(&in); err != nil {
		obs.RecordWritesTotal.WithLabelValues("admission", "update", "invalid").Inc()
		return Admission{}, err
	}
	a, err := s.Store.Update(ctx, universityID, id, in, existing.UpdatedAt)
	if err != nil {
		obs.RecordWritesTotal.WithLabelValues("admission", "update", "error").Inc()
		return Admission{}, mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("admission", "update", "ok").Inc()
	return a, nil
}

// Delete removes an admission cycle.
func (s *Service) Delete(ctx context.Context, universityID, id uuid.UUID) error {
	if err := s.Store.Delete(ctx, universityID, id); err != nil {
		obs.RecordWritesTotal.WithLabelValues("admission", "delete", "error").Inc()
		return mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("admission", "delete", "ok").Inc()
	return nil
}

// Get fetches one admission cycle.
func (s *Service) Get(ctx context.Context, universityID, id uuid.UUID) (Admission, error) {
	a, err := s.Store.Get(ctx, universityID, id)
	if err != nil {
		return Admission{}, mapStoreError(err)
	}
	return a, nil
}

// List returns a filtered, paginated slice of a university's admission cycles.
func (s *Service) List(ctx context.Context, universityID uuid.UUID, filter ListFilter, page common.PageParams) (listing.Page[Admission], error) {
	all, err := s.Store.ListByUniversity(ctx, universityID)
	if err != nil {
		return listing.Page[Admission]{}, mapStoreError(err)
	}
	result := listing.FilterAndPaginate(all, page.Page, page.Limit,
		listing.Equals(filter.AcademicYear, func(a Admission) string { return a.AcademicYear }),
		listing.Equals(strings.ToLower(filter.Intake), func(a Admission) string { return a.Intake }),
		listing.BoolEquals(filter.IsActive, func(a Admission) bool { return a.IsActive }),
	)
	return result, nil
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NotFound("admission cycle not found")
	case errors.Is(err, ErrUnknownReference):
		return common.NotFound("university or program not found")
	case errors.Is(err, ErrStale):
		return common.Conflict("admission cycle was modified concurrently, reload and retry")
	default:
		return common.OperationFailed("operation failed", err)
	}
}
