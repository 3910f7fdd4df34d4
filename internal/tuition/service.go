package tuition

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

// Service orchestrates tuition breakdown CRUD. Totals are always derived
// from the submitted line items, never trusted from the caller.
type Service struct {
	Store           Store
	Validate        *validator.Validate
	Bus             *events.Bus
	DefaultCurrency string
}

// Preview holds computed totals and a tentative schedule without persisting.
type Preview struct {
	LineItems finance.LineItems `json:"line_items"`
	Totals    finance.Totals    `json:"totals"`
	Schedule  []Installment     `json:"schedule,omitempty"`
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
	if in.YearNumber == 0 {
		in.YearNumber = 1
	}
	if in.InstallmentCount == 0 {
		in.InstallmentCount = 1
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

func (s *Service) build(universityID uuid.UUID, in Input) (Breakdown, []Installment) {
	items, totals := finance.Compute(in.RawItems, Schema)
	obs.TotalsComputedTotal.WithLabelValues("tuition").Inc()
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	b := Breakdown{
		UniversityID:    universityID,
		ProgramID:       in.ProgramID,
		AcademicYear:    in.AcademicYear,
		YearNumber:      in.YearNumber,
		Currency:        in.Currency,
		LineItems:       items,
		TotalBase:       totals.Mandatory,
		TotalAdditional: totals.Optional,
		GrandTotal:      totals.Grand,
		EffectiveDate:   in.EffectiveDate,
		ExpiryDate:      in.ExpiryDate,
		IsActive:        active,
	}
	firstDue := in.FirstDueDate
	if firstDue.IsZero() {
		firstDue = in.EffectiveDate
	}
	return b, SplitInstallments(totals.Grand, in.InstallmentCount, firstDue)
}

// Create computes totals, persists the breakdown and generates its schedule.
func (s *Service) Create(ctx context.Context, universityID uuid.UUID, in Input) (Breakdown, error) {
	if err := s.validateInput(&in); err != nil {
		obs.RecordWritesTotal.WithLabelValues("tuition", "create", "invalid").Inc()
		return Breakdown{}, err
	}
	b, schedule := s.build(universityID, in)
	created, err := s.Store.Insert(ctx, b, schedule)
	if err != nil {
		obs.RecordWritesTotal.WithLabelValues("tuition", "create", "error").Inc()
		return Breakdown{}, mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("tuition", "create", "ok").Inc()
	s.emit(ctx, created)
	return created, nil
}

// Update recomputes totals and regenerates the payment schedule.
func (s *Service) Update(ctx context.Context, universityID, id uuid.UUID, p Patch) (Breakdown, error) {
	existing, err := s.Store.Get(ctx, universityID, id)
	if err != nil {
		return Breakdown{}, mapStoreError(err)
	}
	in := p.apply(existing)
	if err := s.validateInput(&in); err != nil {
		obs.RecordWritesTotal.WithLabelValues("tuition", "update", "invalid").Inc()
		return Breakdown{}, err
	}
	b, schedule := s.build(universityID, in)
	b.ID = id
	b.UpdatedAt = existing.UpdatedAt
	updated, err := s.Store.Update(ctx, b, schedule)
	if err != nil {
		obs.RecordWritesTotal.WithLabelValues("tuition", "update", "error").Inc()
		return Breakdown{}, mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("tuition", "update", "ok").Inc()
	s.emit(ctx, updated)
	return updated, nil
}

// Delete removes a breakdown along with its schedule.
func (s *Service) Delete(ctx context.Context, universityID, id uuid.UUID) error {
	if err := s.Store.Delete(ctx, universityID, id); err != nil {
		obs.RecordWritesTotal.WithLabelValues("tuition", "delete", "error").Inc()
		return mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("tuition", "delete", "ok").Inc()
	return nil
}

// Get fetches one breakdown with its schedule.
func (s *Service) Get(ctx context.Context, universityID, id uuid.UUID) (Breakdown, error) {
	b, err := s.Store.Get(ctx, universityID, id)
	if err != nil {
		return Breakdown{}, mapStoreError(err)
	}
	return b, nil
}

// List returns a filtered, paginated slice of a university's breakdowns.
func (s *Service) List(ctx context.Context, universityID uuid.UUID, filter ListFilter, page common.PageParams) (listing.Page[Breakdown], error) {
	all, err := s.Store.ListByUniversity(ctx, universityID)
	if err != nil {
		return listing.Page[Breakdown]{}, mapStoreError(err)
	}
	var yearPred listing.Predicate[Breakdown]
	if filter.YearNumber > 0 {
		want := filter.YearNumber
		yearPred = func(b Breakdown) bool { return b.YearNumber == want }
	}
	result := listing.FilterAndPaginate(all, page.Page, page.Limit,
		listing.Equals(filter.AcademicYear, func(b Breakdown) string { return b.AcademicYear }),
		yearPred,
		listing.BoolEquals(filter.IsActive, func(b Breakdown) bool { return b.IsActive }),
	)
	return result, nil
}

// ComputePreview derives totals and a tentative schedule without touching
// storage. It backs the dry-run endpoint used by admin forms.
func (s *Service) ComputePreview(in Input) (Preview, error) {
	if err := s.validateInput(&in); err != nil {
		return Preview{}, err
	}
	items, totals := finance.Compute(in.RawItems, Schema)
	obs.TotalsComputedTotal.WithLabelValues("tuition_preview").Inc()
	firstDue := in.FirstDueDate
	if firstDue.IsZero() {
		firstDue = in.EffectiveDate
	}
	return Preview{
		LineItems: items,
		Totals:    totals,
		Schedule:  SplitInstallments(totals.Grand, in.InstallmentCount, firstDue),
	}, nil
}

func (s *Service) emit(ctx context.Context, b Breakdown) {
	if s.Bus == nil {
		return
	}
	_, _ = s.Bus.Emit(ctx, events.TopicTuitionUpdated, b.UniversityID, map[string]any{
		"breakdownId": b.ID.String(),
		"grandTotal":  b.GrandTotal,
	})
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NotFound("tuition breakdown not found")
	case errors.Is(err, ErrUnknownReference):
		return common.NotFound("university or program not found")
	case errors.Is(err, ErrStale):
		return common.Conflict("tuition breakdown was modified concurrently, reload and retry")
	default:
		return common.OperationFailed("operation failed", err)
	}
}
