package tuition

import (
	"context"
	"testing"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/univbase/backend-univ/internal/common"
	"github.com/univbase/backend-univ/internal/finance"
)

type memStore struct {
	breakdowns map[uuid.UUID]Breakdown
	schedules  map[uuid.UUID][]Installment
}

func newMemStore() *memStore {
	return &memStore{
		breakdowns: map[uuid.UUID]Breakdown{},
		schedules:  map[uuid.UUID][]Installment{},
	}
}

func (m *memStore) Insert(_ context.Context, b Breakdown, schedule []Installment) (Breakdown, error) {
	b.ID = uuid.New()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	m.breakdowns[b.ID] = b
	m.schedules[b.ID] = schedule
	b.Schedule = schedule
	return b, nil
}

func (m *memStore) Update(_ context.Context, b Breakdown, schedule []Installment) (Breakdown, error) {
	existing, ok := m.breakdowns[b.ID]
	if !ok || existing.UniversityID != b.UniversityID {
		return Breakdown{}, ErrNotFound
	}
	if !b.UpdatedAt.Equal(existing.UpdatedAt) {
		return Breakdown{}, ErrStale
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = time.Now()
	m.breakdowns[b.ID] = b
	m.schedules[b.ID] = schedule
	b.Schedule = schedule
	return b, nil
}

func (m *memStore) Delete(_ context.Context, universityID, id uuid.UUID) error {
	b, ok := m.breakdowns[id]
	if !ok || b.UniversityID != universityID {
		return ErrNotFound
	}
	delete(m.breakdowns, id)
	delete(m.schedules, id)
	return nil
}

func (m *memStore) Get(_ context.Context, universityID, id uuid.UUID) (Breakdown, error) {
	b, ok := m.breakdowns[id]
	if !ok || b.UniversityID != universityID {
		return Breakdown{}, ErrNotFound
	}
	b.Schedule = m.schedules[id]
	return b, nil
}

func (m *memStore) ListByUniversity(_ context.Context, universityID uuid.UUID) ([]Breakdown, error) {
	var out []Breakdown
	for _, b := range m.breakdowns {
		if b.UniversityID == universityID {
			out = append(out, b)
		}
	}
	return out, nil
}

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	return &Service{Store: store, Validate: validator.New(), DefaultCurrency: "USD"}, store
}

func validInput() Input {
	return Input{
		AcademicYear: "2026/2027",
		RawItems: finance.RawItems{
			"base_tuition":    250000_00,
			"lab_fees":        12000_00,
			"technology_fees": 8000_00,
		},
		EffectiveDate:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		InstallmentCount: 3,
	}
}

func TestCreateDerivesTotals(t *testing.T) {
	svc, _ := newTestService()
	b, err := svc.Create(context.Background(), uuid.New(), validInput())
	require.NoError(t, err)
	require.Equal(t, finance.Money(250000_00), b.TotalBase)
	require.Equal(t, finance.Money(20000_00), b.TotalAdditional)
	require.Equal(t, finance.Money(270000_00), b.GrandTotal)
	require.Equal(t, "USD", b.Currency)
	require.Equal(t, 1, b.YearNumber)
}

func TestCreateCoercesJunkToZero(t *testing.T) {
	svc, _ := newTestService()
	in := validInput()
	in.RawItems = finance.RawItems{
		"base_tuition": 100_00,
		"lab_fees":     "not-a-number",
		"rogue_fee":    999_99,
	}
	b, err := svc.Create(context.Background(), uuid.New(), in)
	require.NoError(t, err)
	require.Equal(t, finance.Money(0), b.LineItems["lab_fees"])
	require.NotContains(t, b.LineItems, "rogue_fee")
	require.Equal(t, finance.Money(100_00), b.GrandTotal)
}

func TestScheduleSumsExactly(t *testing.T) {
	svc, _ := newTestService()
	in := validInput()
	in.RawItems = finance.RawItems{"base_tuition": 100_01}
	in.InstallmentCount = 3
	b, err := svc.Create(context.Background(), uuid.New(), in)
	require.NoError(t, err)
	require.Len(t, b.Schedule, 3)
	var sum finance.Money
	for _, inst := range b.Schedule {
		sum += inst.Amount
	}
	require.Equal(t, b.GrandTotal, sum)
	require.Greater(t, b.Schedule[0].Amount, b.Schedule[1].Amount)
	require.Equal(t, b.Schedule[1].Amount, b.Schedule[2].Amount)
}

func TestScheduleDueDatesAdvanceMonthly(t *testing.T) {
	first := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	schedule := SplitInstallments(9000_00, 3, first)
	require.Equal(t, first, schedule[0].DueDate)
	require.Equal(t, first.AddDate(0, 1, 0), schedule[1].DueDate)
	require.Equal(t, first.AddDate(0, 2, 0), schedule[2].DueDate)
}

func TestUpdateRegeneratesSchedule(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	uni := uuid.New()

	b, err := svc.Create(ctx, uni, validInput())
	require.NoError(t, err)
	require.Len(t, store.schedules[b.ID], 3)

	count := 2
	updated, err := svc.Update(ctx, uni, b.ID, Patch{InstallmentCount: &count})
	require.NoError(t, err)
	require.Len(t, updated.Schedule, 2)
	require.Len(t, store.schedules[b.ID], 2)
}

func TestUpdateMergeKeepsUntouchedFieldsAndRecomputes(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	uni := uuid.New()

	b, err := svc.Create(ctx, uni, validInput())
	require.NoError(t, err)

	items := finance.RawItems{"base_tuition": finance.Money(100000_00)}
	updated, err := svc.Update(ctx, uni, b.ID, Patch{RawItems: items})
	require.NoError(t, err)
	require.Equal(t, finance.Money(100000_00), updated.GrandTotal, "totals derive from the replacement item set")
	require.Equal(t, b.AcademicYear, updated.AcademicYear, "absent patch fields keep stored values")
	require.Equal(t, b.Currency, updated.Currency)

	var sum finance.Money
	for _, inst := range updated.Schedule {
		sum += inst.Amount
	}
	require.Equal(t, updated.GrandTotal, sum)
}

func TestUpdateIgnoresClientSuppliedTotals(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	uni := uuid.New()

	b, err := svc.Create(ctx, uni, validInput())
	require.NoError(t, err)

	// A grand_total category is not part of the schema so it can never
	// leak into the stored totals.
	items := finance.RawItems{
		"base_tuition": finance.Money(50000_00),
		"grand_total":  finance.Money(1_00),
	}
	updated, err := svc.Update(ctx, uni, b.ID, Patch{RawItems: items})
	require.NoError(t, err)
	require.Equal(t, finance.Money(50000_00), updated.GrandTotal)
}

// staleReadStore hands callers a snapshot whose updated_at stamp no longer
// matches the stored row, as if another editor committed in between.
type staleReadStore struct{ *memStore }

func (s staleReadStore) Get(ctx context.Context, universityID, id uuid.UUID) (Breakdown, error) {
	b, err := s.memStore.Get(ctx, universityID, id)
	if err != nil {
		return Breakdown{}, err
	}
	b.UpdatedAt = b.UpdatedAt.Add(-time.Minute)
	return b, nil
}

func TestUpdateConflictsOnConcurrentEdit(t *testing.T) {
	store := newMemStore()
	svc := &Service{Store: staleReadStore{store}, Validate: validator.New(), DefaultCurrency: "USD"}
	ctx := context.Background()
	uni := uuid.New()

	b, err := svc.Create(ctx, uni, validInput())
	require.NoError(t, err)

	items := finance.RawItems{"base_tuition": finance.Money(1_00)}
	_, err = svc.Update(ctx, uni, b.ID, Patch{RawItems: items})
	require.Error(t, err)
	require.Equal(t, common.CodeConflict, common.AsAppError(err).Code)
	require.Equal(t, b.GrandTotal, store.breakdowns[b.ID].GrandTotal, "the stale write must not land")
}

func TestDeleteRemovesSchedule(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	uni := uuid.New()

	b, err := svc.Create(ctx, uni, validInput())
	require.NoError(t, err)
	require.NotEmpty(t, store.schedules[b.ID])

	require.NoError(t, svc.Delete(ctx, uni, b.ID))
	require.Empty(t, store.schedules[b.ID])
	require.NotContains(t, store.breakdowns, b.ID)
}

func TestExpiryBeforeEffectiveRejected(t *testing.T) {
	svc, _ := newTestService()
	in := validInput()
	expiry := in.EffectiveDate.AddDate(0, -1, 0)
	in.ExpiryDate = &expiry
	_, err := svc.Create(context.Background(), uuid.New(), in)
	require.Error(t, err)
	require.Equal(t, common.CodeValidation, common.AsAppError(err).Code)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	svc, store := newTestService()
	preview, err := svc.ComputePreview(validInput())
	require.NoError(t, err)
	require.Equal(t, finance.Money(270000_00), preview.Totals.Grand)
	require.Len(t, preview.Schedule, 3)
	require.Empty(t, store.breakdowns)
}

func TestListFiltersByYearNumber(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	uni := uuid.New()

	first := validInput()
	_, err := svc.Create(ctx, uni, first)
	require.NoError(t, err)
	second := validInput()
	second.YearNumber = 2
	_, err = svc.Create(ctx, uni, second)
	require.NoError(t, err)

	page, err := svc.List(ctx, uni, ListFilter{YearNumber: 2}, common.PageParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, 2, page.Data[0].YearNumber)
}
