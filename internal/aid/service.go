package aid

import (
	"context"
	"errors"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/univbase/backend-univ/internal/award"
	"github.com/univbase/backend-univ/internal/common"
	"github.com/univbase/backend-univ/internal/events"
	"github.com/univbase/backend-univ/internal/finance"
	"github.com/univbase/backend-univ/internal/listing"
	"github.com/univbase/backend-univ/internal/obs"
)

// Service orchestrates scholarship and financial aid CRUD plus award
// estimation against a base cost.
type Service struct {
	Store    Store
	Validate *validator.Validate
	Bus      *events.Bus
}

// Estimate is the outcome of resolving an award against a base cost.
type Estimate struct {
	BaseCost    finance.Money `json:"base_cost"`
	AwardAmount finance.Money `json:"award_amount"`
	NetCost     finance.Money `json:"net_cost"`
	Branch      string        `json:"branch"`
}

func (s *Service) validateStruct(v any) error {
	if s.Validate == nil {
		return nil
	}
	if err := s.Validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return common.ValidationError(strings.ToLower(verrs[0].Field()) + " failed on " + verrs[0].Tag())
		}
		return common.ValidationError("invalid payload")
	}
	return nil
}

func scholarshipFromInput(universityID uuid.UUID, in ScholarshipInput) Scholarship {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	sch := Scholarship{
		UniversityID:        universityID,
		Name:                strings.TrimSpace(in.Name),
		Description:         strings.TrimSpace(in.Description),
		Amount:              in.Amount,
		MaxAmount:           in.MaxAmount,
		Eligibility:         strings.TrimSpace(in.Eligibility),
		ApplicationDeadline: in.ApplicationDeadline,
		IsActive:            active,
	}
	if in.Percent != nil {
		bps := award.PercentToBps(*in.Percent)
		sch.PercentBps = &bps
	}
	return sch
}

func aidFromInput(universityID uuid.UUID, in AidInput) FinancialAid {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	fa := FinancialAid{
		UniversityID: universityID,
		Kind:         strings.ToLower(strings.TrimSpace(in.Kind)),
		Name:         strings.TrimSpace(in.Name),
		Amount:       in.Amount,
		MaxAmount:    in.MaxAmount,
		InterestBps:  in.InterestBps,
		IsActive:     active,
	}
	if in.Percent != nil {
		bps := award.PercentToBps(*in.Percent)
		fa.PercentBps = &bps
	}
	return fa
}

// CreateScholarship inserts a scholarship under the given university.
func (s *Service) CreateScholarship(ctx context.Context, universityID uuid.UUID, in ScholarshipInput) (Scholarship, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validateStruct(&in); err != nil {
		obs.RecordWritesTotal.WithLabelValues("scholarship", "create", "invalid").Inc()
		return Scholarship{}, err
	}
	sch, err := s.Store.InsertScholarship(ctx, scholarshipFromInput(universityID, in))
	if err != nil {
		obs.RecordWritesTotal.WithLabelValues("scholarship", "create", "error").Inc()
		return Scholarship{}, mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("scholarship", "create", "ok").Inc()
	s.emit(ctx, events.TopicScholarshipSaved, sch.UniversityID, sch.ID)
	return sch, nil
}

// UpdateScholarship merges the patch over the stored scholarship and
// rewrites it.
func (s *Service) UpdateScholarship(ctx context.Context, universityID, id uuid.UUID, p ScholarshipPatch) (Scholarship, error) {
	existing, err := s.Store.GetScholarship(ctx, universityID, id)
	if err != nil {
		return Scholarship{}, mapStoreError(err)
	}
	in := p.apply(existing)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validateStruct(&in); err != nil {
		obs.RecordWritesTotal.WithLabelValues("scholarship", "update", "invalid").Inc()
		return Scholarship{}, err
	}
	sch := scholarshipFromInput(universityID, in)
	sch.ID = id
	sch.UpdatedAt = existing.UpdatedAt
	updated, err := s.Store.UpdateScholarship(ctx, sch)
	if err != nil {
		obs.RecordWritesTotal.WithLabelValues("scholarship", "update", "error").Inc()
		return Scholarship{}, mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("scholarship", "update", "ok").Inc()
	s.emit(ctx, events.TopicScholarshipSaved, updated.UniversityID, updated.ID)
	return updated, nil
}

// DeleteScholarship removes a scholarship.
func (s *Service) DeleteScholarship(ctx context.Context, universityID, id uuid.UUID) error {
	if err := s.Store.DeleteScholarship(ctx, universityID, id); err != nil {
		obs.RecordWritesTotal.WithLabelValues("scholarship", "delete", "error").Inc()
		return mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("scholarship", "delete", "ok").Inc()
	return nil
}

// GetScholarship fetches one scholarship.
func (s *Service) GetScholarship(ctx context.Context, universityID, id uuid.UUID) (Scholarship, error) {
	sch, err := s.Store.GetScholarship(ctx, universityID, id)
	if err != nil {
		return Scholarship{}, mapStoreError(err)
	}
	return sch, nil
}

// ListScholarships returns a filtered, paginated slice of scholarships.
func (s *Service) ListScholarships(ctx context.Context, universityID uuid.UUID, filter ListFilter, page common.PageParams) (listing.Page[Scholarship], error) {
	all, err := s.Store.ListScholarships(ctx, universityID)
	if err != nil {
		return listing.Page[Scholarship]{}, mapStoreError(err)
	}
	result := listing.FilterAndPaginate(all, page.Page, page.Limit,
		listing.BoolEquals(filter.IsActive, func(sch Scholarship) bool { return sch.IsActive }),
		listing.Contains(filter.Search, func(sch Scholarship) []string { return []string{sch.Name, sch.Description, sch.Eligibility} }),
	)
	return result, nil
}

// EstimateScholarship resolves the scholarship award against a base cost.
func (s *Service) EstimateScholarship(ctx context.Context, universityID, id uuid.UUID, baseCost finance.Money) (Estimate, error) {
	sch, err := s.Store.GetScholarship(ctx, universityID, id)
	if err != nil {
		return Estimate{}, mapStoreError(err)
	}
	return resolveEstimate(award.Spec{Amount: sch.Amount, PercentBps: sch.PercentBps, MaxAmount: sch.MaxAmount}, baseCost)
}

// CreateAid inserts a financial aid offering under the given university.
func (s *Service) CreateAid(ctx context.Context, universityID uuid.UUID, in AidInput) (FinancialAid, error) {
	in.Kind = strings.ToLower(strings.TrimSpace(in.Kind))
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validateStruct(&in); err != nil {
		obs.RecordWritesTotal.WithLabelValues("financial_aid", "create", "invalid").Inc()
		return FinancialAid{}, err
	}
	fa, err := s.Store.InsertAid(ctx, aidFromInput(universityID, in))
	if err != nil {
		obs.RecordWritesTotal.WithLabelValues("financial_aid", "create", "error").Inc()
		return FinancialAid{}, mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("financial_aid", "create", "ok").Inc()
	s.emit(ctx, events.TopicAidSaved, fa.UniversityID, fa.ID)
	return fa, nil
}

// UpdateAid merges the patch over the stored offering and rewrites it.
func (s *Service) UpdateAid(ctx context.Context, universityID, id uuid.UUID, p AidPatch) (FinancialAid, error) {
	existing, err := s.Store.GetAid(ctx, universityID, id)
	if err != nil {
		return FinancialAid{}, mapStoreError(err)
	}
	in := p.apply(existing)
	in.Kind = strings.ToLower(strings.TrimSpace(in.Kind))
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validateStruct(&in); err != nil {
		obs.RecordWritesTotal.WithLabelValues("financial_aid", "update", "invalid").Inc()
		return FinancialAid{}, err
	}
	fa := aidFromInput(universityID, in)
	fa.ID = id
	fa.UpdatedAt = existing.UpdatedAt
	updated, err := s.Store.UpdateAid(ctx, fa)
	if err != nil {
		obs.RecordWritesTotal.WithLabelValues("financial_aid", "update", "error").Inc()
		return FinancialAid{}, mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("financial_aid", "update", "ok").Inc()
	s.emit(ctx, events.TopicAidSaved, updated.UniversityID, updated.ID)
	return updated, nil
}

// DeleteAid removes a financial aid offering.
func (s *Service) DeleteAid(ctx context.Context, universityID, id uuid.UUID) error {
	if err := s.Store.DeleteAid(ctx, universityID, id); err != nil {
		obs.RecordWritesTotal.WithLabelValues("financial_aid", "delete", "error").Inc()
		return mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("financial_aid", "delete", "ok").Inc()
	return nil
}

// GetAid fetches one financial aid offering.
func (s *Service) GetAid(ctx context.Context, universityID, id uuid.UUID) (FinancialAid, error) {
	fa, err := s.Store.GetAid(ctx, universityID, id)
	if err != nil {
		return FinancialAid{}, mapStoreError(err)
	}
	return fa, nil
}

// ListAid returns a filtered, paginated slice of financial aid offerings.
func (s *Service) ListAid(ctx context.Context, universityID uuid.UUID, filter ListFilter, page common.PageParams) (listing.Page[FinancialAid], error) {
	all, err := s.Store.ListAid(ctx, universityID)
	if err != nil {
		return listing.Page[FinancialAid]{}, mapStoreError(err)
	}
	result := listing.FilterAndPaginate(all, page.Page, page.Limit,
		listing.Equals(strings.ToLower(filter.Kind), func(fa FinancialAid) string { return fa.Kind }),
		listing.BoolEquals(filter.IsActive, func(fa FinancialAid) bool { return fa.IsActive }),
		listing.Contains(filter.Search, func(fa FinancialAid) []string { return []string{fa.Name} }),
	)
	return result, nil
}

// EstimateAid resolves the aid award against a base cost.
func (s *Service) EstimateAid(ctx context.Context, universityID, id uuid.UUID, baseCost finance.Money) (Estimate, error) {
	fa, err := s.Store.GetAid(ctx, universityID, id)
	if err != nil {
		return Estimate{}, mapStoreError(err)
	}
	return resolveEstimate(award.Spec{Amount: fa.Amount, PercentBps: fa.PercentBps, MaxAmount: fa.MaxAmount}, baseCost)
}

func resolveEstimate(spec award.Spec, baseCost finance.Money) (Estimate, error) {
	amount, err := award.Resolve(spec, baseCost)
	if err != nil {
		if errors.Is(err, award.ErrInvalidBaseCost) {
			return Estimate{}, common.ValidationError("base_cost must not be negative")
		}
		return Estimate{}, common.OperationFailed("award resolution failed", err)
	}
	branch := "none"
	switch {
	case spec.Amount != nil && *spec.Amount >= 0:
		branch = "fixed"
	case spec.PercentBps != nil && spec.MaxAmount != nil:
		branch = "percent_capped"
	case spec.PercentBps != nil:
		branch = "percent"
	}
	obs.AwardsResolvedTotal.WithLabelValues(branch).Inc()
	return Estimate{
		BaseCost:    baseCost,
		AwardAmount: amount,
		NetCost:     baseCost - amount,
		Branch:      branch,
	}, nil
}

func (s *Service) emit(ctx context.Context, topic string, universityID, recordID uuid.UUID) {
	if s.Bus == nil {
		return
	}
	_, _ = s.Bus.Emit(ctx, topic, universityID, map[string]any{"recordId": recordID.String()})
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NotFound("record not found")
	case errors.Is(err, ErrUnknownUniversity):
		return common.NotFound("university not found")
	case errors.Is(err, ErrStale):
		return common.Conflict("record was modified concurrently, reload and retry")
	default:
		return common.OperationFailed("operation failed", err)
	}
}
