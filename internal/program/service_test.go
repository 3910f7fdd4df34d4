package program

import (
	"context"
	"testing"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/univbase/backend-univ/internal/common"
)

type memStore struct {
	programs map[uuid.UUID]Program
}

func newMemStore() *memStore {
	return &memStore{programs: map[uuid.UUID]Program{}}
}

func (m *memStore) Insert(_ context.Context, universityID uuid.UUID, in Input) (Program, error) {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	p := Program{
		ID: uuid.New(), UniversityID: universityID, Name: in.Name,
		Department: in.Department, Level: in.Level, DurationYears: in.DurationYears,
		Language: in.Language, IsActive: active,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.programs[p.ID] = p
	return p, nil
}

func (m *memStore) Update(_ context.Context, universityID, id uuid.UUID, in Input, expected time.Time) (Program, error) {
	p, ok := m.programs[id]
	if !ok || p.UniversityID != universityID {
		return Program{}, ErrNotFound
	}
	if !p.UpdatedAt.Equal(expected) {
		return Program{}, ErrStale
	}
	p.Name, p.Department, p.Level = in.Name, in.Department, in.Level
	p.DurationYears, p.Language = in.DurationYears, in.Language
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	p.UpdatedAt = time.Now()
	m.programs[id] = p
	return p, nil
}

func (m *memStore) Delete(_ context.Context, universityID, id uuid.UUID) error {
	p, ok := m.programs[id]
	if !ok || p.UniversityID != universityID {
		return ErrNotFound
	}
	delete(m.programs, id)
	return nil
}

func (m *memStore) Get(_ context.Context, universityID, id uuid.UUID) (Program, error) {
	p, ok := m.programs[id]
	if !ok || p.UniversityID != universityID {
		return Program{}, ErrNotFound
	}
	return p, nil
}

func (m *memStore) ListByUniversity(_ context.Context, universityID uuid.UUID) ([]Program, error) {
	var out []Program
	for _, p := range m.programs {
		if p.UniversityID == universityID {
			out = append(out, p)
		}
	}
	return out, nil
}

func newTestService() *Service {
	return &Service{Store: newMemStore(), Validate: validator.New()}
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc := newTestService()
	p, err := svc.Create(context.Background(), uuid.New(), Input{Name: "Computer Science", Level: "Bachelor"})
	require.NoError(t, err)
	require.Equal(t, "bachelor", p.Level)
	require.Equal(t, 4, p.DurationYears)
	require.Equal(t, "en", p.Language)
}

func TestCreateRejectsUnknownLevel(t *testing.T) {
	svc := newTestService()
	_, err := svc.Create(context.Background(), uuid.New(), Input{Name: "CS", Level: "bootcamp"})
	require.Error(t, err)
	require.Equal(t, common.CodeValidation, common.AsAppError(err).Code)
}

func TestListScopedToUniversity(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	uniA, uniB := uuid.New(), uuid.New()

	_, err := svc.Create(ctx, uniA, Input{Name: "CS", Level: "bachelor"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, uniA, Input{Name: "CS Masters", Level: "master"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, uniB, Input{Name: "Law", Level: "bachelor"})
	require.NoError(t, err)

	page, err := svc.List(ctx, uniA, ListFilter{}, common.PageParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)

	page, err = svc.List(ctx, uniA, ListFilter{Level: "MASTER"}, common.PageParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "CS Masters", page.Data[0].Name)
}

func TestUpdateUnknownProgram(t *testing.T) {
	svc := newTestService()
	name := "CS"
	_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), Patch{Name: &name})
	require.Error(t, err)
	require.Equal(t, common.CodeNotFound, common.AsAppError(err).Code)
}

// staleReadStore hands callers a snapshot whose updated_at stamp no longer
// matches the stored row, as if another editor committed in between.
type staleReadStore struct{ *memStore }

func (s staleReadStore) Get(ctx context.Context, universityID, id uuid.UUID) (Program, error) {
	p, err := s.memStore.Get(ctx, universityID, id)
	if err != nil {
		return Program{}, err
	}
	p.UpdatedAt = p.UpdatedAt.Add(-time.Minute)
	return p, nil
}

func TestUpdateConflictsOnConcurrentEdit(t *testing.T) {
	store := newMemStore()
	svc := &Service{Store: staleReadStore{store}, Validate: validator.New()}
	ctx := context.Background()
	uni := uuid.New()

	p, err := svc.Create(ctx, uni, Input{Name: "CS", Level: "bachelor"})
	require.NoError(t, err)

	name := "CS Renamed"
	_, err = svc.Update(ctx, uni, p.ID, Patch{Name: &name})
	require.Error(t, err)
	require.Equal(t, common.CodeConflict, common.AsAppError(err).Code)
	require.Equal(t, "CS", store.programs[p.ID].Name, "the stale write must not land")
}

func TestUpdateMergesOverExisting(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	uni := uuid.New()

	p, err := svc.Create(ctx, uni, Input{Name: "CS", Department: "Engineering", Level: "bachelor"})
	require.NoError(t, err)

	level := "master"
	updated, err := svc.Update(ctx, uni, p.ID, Patch{Level: &level})
	require.NoError(t, err)
	require.Equal(t, "master", updated.Level)
	require.Equal(t, "CS", updated.Name, "absent patch fields keep stored values")
	require.Equal(t, "Engineering", updated.Department)
}
