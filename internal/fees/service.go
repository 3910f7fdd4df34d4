package fees

import (
	"context"
	"errors"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/univbase/backend-univ/internal/common"
	"github.com/univbase/backend-univ/internal/events"
	"github.com/univbase/backend-univ/internal/finance"
	"github.com/univbase/backend-univ/internal/listing"
	"github.com/univbase/backend-univ/internal/obs"
)

// Service orchestrates fee structure CRUD. Totals are derived from the
// submitted line items on every write.
type Service struct {
	Store           Store
	Validate        *validator.Validate
	Bus             *events.Bus
	DefaultCurrency string
}

// Preview holds computed fee totals without persisting anything.
type Preview struct {
	LineItems finance.LineItems `json:"line_items"`
	Totals    finance.Totals    `json:"totals"`
}

func (s *Service) validateInput(in *Input) error {
	in.AcademicYear = strings.TrimSpace(in.AcademicYear)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = s.DefaultCurrency
	}
	if in.Currency == "" {
		in.Currency = "USD"
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
	if in.EffectiveDate.IsZero() {
		return common.ValidationError("effective_date is required")
	}
	if in.ExpiryDate != nil && !in.ExpiryDate.After(in.EffectiveDate) {
		return common.ValidationError("expiry_date must be after effective_date")
	}
	return nil
}

func (s *Service) build(universityID uuid.UUID, in Input) Structure {
	items, totals := finance.Compute(in.RawItems, Schema)
	obs.TotalsComputedTotal.WithLabelValues("fees").Inc()
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return Structure{
		UniversityID:   universityID,
		ProgramID:      in.ProgramID,
		AcademicYear:   in.AcademicYear,
		Currency:       in.Currency,
		LineItems:      items,
		TotalMandatory: totals.Mandatory,
		TotalOptional:  totals.Optional,
		GrandTotal:     totals.Grand,
		EffectiveDate:  in.EffectiveDate,
		ExpiryDate:     in.ExpiryDate,
		IsActive:       active,
	}
}

// Create computes totals and persists the fee structure.
func (s *Service) Create(ctx context.Context, universityID uuid.UUID, in Input) (Structure, error) {
	if err := s.validateInput(&in); err != nil {
		obs.RecordWritesTotal.WithLabelValues("fees", "create", "invalid").Inc()
		return Structure{}, err
	}
	st, err := s.Store.Insert(ctx, s.build(universityID, in))
	if err != nil {
		obs.RecordWritesTotal.WithLabelValues("fees", "create", "error").Inc()
		return Structure{}, mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("fees", "create", "ok").Inc()
	s.emit(ctx, st)
	return st, nil
}

// Update recomputes totals and rewrites the fee structure.
func (s *Service) Update(ctx context.Context, universityID, id uuid.UUID, p Patch) (Structure, error) {
	existing, err := s.Store.Get(ctx, universityID, id)
	if err != nil {
		return Structure{}, mapStoreError(err)
	}
	in := p.apply(existing)
	if err := s.validateInput(&in); err != nil {
		obs.RecordWritesTotal.WithLabelValues("fees", "update", "invalid").Inc()
		return Structure{}, err
	}
	st := s.build(universityID, in)
	st.ID = id
	st.UpdatedAt = existing.UpdatedAt
	updated, err := s.Store.Update(ctx, st)
	if err != nil {
		obs.RecordWritesTotal.WithLabelValues("fees", "update", "error").Inc()
		return Structure{}, mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("fees", "update", "ok").Inc()
	s.emit(ctx, updated)
	return updated, nil
}

// Delete removes a fee structure.
func (s *Service) Delete(ctx context.Context, universityID, id uuid.UUID) error {
	if err := s.Store.Delete(ctx, universityID, id); err != nil {
		obs.RecordWritesTotal.WithLabelValues("fees", "delete", "error").Inc()
		return mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("fees", "delete", "ok").Inc()
	return nil
}

// Get fetches one fee structure.
func (s *Service) Get(ctx context.Context, universityID, id uuid.UUID) (Structure, error) {
	st, err := s.Store.Get(ctx, universityID, id)
	if err != nil {
		return Structure{}, mapStoreError(err)
	}
	return st, nil
}

// List returns a filtered, paginated slice of a university's fee structures.
func (s *Service) List(ctx context.Context, universityID uuid.UUID, filter ListFilter, page common.PageParams) (listing.Page[Structure], error) {
	all, err := s.Store.ListByUniversity(ctx, universityID)
	if err != nil {
		return listing.Page[Structure]{}, mapStoreError(err)
	}
	result := listing.FilterAndPaginate(all, page.Page, page.Limit,
		listing.Equals(filter.AcademicYear, func(st Structure) string { return st.AcademicYear }),
		listing.BoolEquals(filter.IsActive, func(st Structure) bool { return st.IsActive }),
	)
	return result, nil
}

// ComputePreview derives totals without touching storage.
func (s *Service) ComputePreview(in Input) (Preview, error) {
	if err := s.validateInput(&in); err != nil {
		return Preview{}, err
	}
	items, totals := finance.Compute(in.RawItems, Schema)
	obs.TotalsComputedTotal.WithLabelValues("fees_preview").Inc()
	return Preview{LineItems: items, Totals: totals}, nil
}

func (s *Service) emit(ctx context.Context, st Structure) {
	if s.Bus == nil {
		return
	}
	_, _ = s.Bus.Emit(ctx, events.TopicFeesUpdated, st.UniversityID, map[string]any{
		"structureId": st.ID.String(),
		"grandTotal":  st.GrandTotal,
	})
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NotFound("fee structure not found")
	case errors.Is(err, ErrUnknownReference):
		return common.NotFound("university or program not found")
	case errors.Is(err, ErrStale):
		return common.Conflict("fee structure was modified concurrently, reload and retry")
	default:
		return common.OperationFailed("operation failed", err)
	}
}
