package university

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/univbase/backend-univ/internal/common"
	"github.com/univbase/backend-univ/internal/media"
)

type memStore struct {
	universities map[uuid.UUID]University
	images       map[uuid.UUID]Image
	insertErr    error
}

func newMemStore() *memStore {
	return &memStore{
		universities: map[uuid.UUID]University{},
		images:       map[uuid.UUID]Image{},
	}
}

func (m *memStore) Insert(_ context.Context, in Input) (University, error) {
	if m.insertErr != nil {
		return University{}, m.insertErr
	}
	for _, u := range m.universities {
		if u.Slug == in.Slug {
			return University{}, ErrDuplicateSlug
		}
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	u := University{
		ID: uuid.New(), Name: in.Name, Slug: in.Slug, Country: in.Country,
		City: in.City, Website: in.Website, Description: in.Description,
		IsActive: active, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.universities[u.ID] = u
	return u, nil
}

func (m *memStore) Update(_ context.Context, id uuid.UUID, in Input, expected time.Time) (University, error) {
	u, ok := m.universities[id]
	if !ok {
		return University{}, ErrNotFound
	}
	if !u.UpdatedAt.Equal(expected) {
		return University{}, ErrStale
	}
	u.Name, u.Slug, u.Country, u.City = in.Name, in.Slug, in.Country, in.City
	u.Website, u.Description = in.Website, in.Description
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	u.UpdatedAt = time.Now()
	m.universities[id] = u
	return u, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.universities[id]; !ok {
		return ErrNotFound
	}
	delete(m.universities, id)
	for imgID, img := range m.images {
		if img.UniversityID == id {
			delete(m.images, imgID)
		}
	}
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (University, error) {
	u, ok := m.universities[id]
	if !ok {
		return University{}, ErrNotFound
	}
	for _, img := range m.images {
		if img.UniversityID == id {
			u.Images = append(u.Images, img)
		}
	}
	return u, nil
}

func (m *memStore) List(_ context.Context) ([]University, error) {
	out := make([]University, 0, len(m.universities))
	for _, u := range m.universities {
		out = append(out, u)
	}
	return out, nil
}

func (m *memStore) InsertImage(_ context.Context, img Image) (Image, error) {
	img.ID = uuid.New()
	img.CreatedAt = time.Now()
	img.UpdatedAt = img.CreatedAt
	m.images[img.ID] = img
	return img, nil
}

func (m *memStore) ListImages(_ context.Context, universityID uuid.UUID) ([]Image, error) {
	var out []Image
	for _, img := range m.images {
		if img.UniversityID == universityID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (m *memStore) GetImage(_ context.Context, universityID, imageID uuid.UUID) (Image, error) {
	img, ok := m.images[imageID]
	if !ok || img.UniversityID != universityID {
		return Image{}, ErrNotFound
	}
	return img, nil
}

func (m *memStore) DeleteImage(_ context.Context, universityID, imageID uuid.UUID) error {
	img, ok := m.images[imageID]
	if !ok || img.UniversityID != universityID {
		return ErrNotFound
	}
	delete(m.images, imageID)
	return nil
}

func (m *memStore) SetPrimaryImage(_ context.Context, universityID, imageID uuid.UUID) error {
	target, ok := m.images[imageID]
	if !ok || target.UniversityID != universityID {
		return ErrNotFound
	}
	for id, img := range m.images {
		if img.UniversityID == universityID {
			img.IsPrimary = id == imageID
			m.images[id] = img
		}
	}
	return nil
}

func newTestService(t *testing.T, store Store) (*Service, *media.Mock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mock := &media.Mock{}
	return &Service{
		Store:    store,
		Cache:    NewCache(client, time.Minute),
		Validate: validator.New(),
		Media:    mock,
	}, mock
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	_, err := svc.Create(context.Background(), Input{Name: "", Slug: "mit", Country: "US"})
	require.Error(t, err)
	app := common.AsAppError(err)
	require.Equal(t, common.CodeValidation, app.Code)
}

func TestCreateAndGetUsesCache(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	u, err := svc.Create(ctx, Input{Name: "MIT", Slug: "MIT", Country: "US", City: "Cambridge"})
	require.NoError(t, err)
	require.Equal(t, "mit", u.Slug, "slug should be normalised to lower case")

	first, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)

	// Mutate the store behind the cache; the cached copy should win.
	store.universities[u.ID] = University{}
	cached, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, first.Name, cached.Name)
}

func TestUpdateInvalidatesCache(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	u, err := svc.Create(ctx, Input{Name: "MIT", Slug: "mit", Country: "US"})
	require.NoError(t, err)
	_, err = svc.Get(ctx, u.ID)
	require.NoError(t, err)

	name := "MIT Renamed"
	_, err = svc.Update(ctx, u.ID, Patch{Name: &name})
	require.NoError(t, err)

	fresh, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "MIT Renamed", fresh.Name)
}

func TestUpdateMergesOverExisting(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	u, err := svc.Create(ctx, Input{Name: "MIT", Slug: "mit", Country: "US", City: "Cambridge"})
	require.NoError(t, err)

	city := "Boston"
	updated, err := svc.Update(ctx, u.ID, Patch{City: &city})
	require.NoError(t, err)
	require.Equal(t, "Boston", updated.City)
	require.Equal(t, "MIT", updated.Name, "absent patch fields keep stored values")
	require.Equal(t, "mit", updated.Slug)
}

// staleReadStore hands callers a snapshot whose updated_at stamp no longer
// matches the stored row, as if another editor committed in between.
type staleReadStore struct{ *memStore }

func (s staleReadStore) Get(ctx context.Context, id uuid.UUID) (University, error) {
	u, err := s.memStore.Get(ctx, id)
	if err != nil {
		return University{}, err
	}
	u.UpdatedAt = u.UpdatedAt.Add(-time.Minute)
	return u, nil
}

func TestUpdateConflictsOnConcurrentEdit(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(t, staleReadStore{store})
	ctx := context.Background()

	u, err := svc.Create(ctx, Input{Name: "MIT", Slug: "mit", Country: "US"})
	require.NoError(t, err)

	name := "MIT Renamed"
	_, err = svc.Update(ctx, u.ID, Patch{Name: &name})
	require.Error(t, err)
	require.Equal(t, common.CodeConflict, common.AsAppError(err).Code)
	require.Equal(t, "MIT", store.universities[u.ID].Name, "the stale write must not land")
}

func TestUpdateUnknownUniversity(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	name := "Nobody"
	_, err := svc.Update(context.Background(), uuid.New(), Patch{Name: &name})
	require.Error(t, err)
	require.Equal(t, common.CodeNotFound, common.AsAppError(err).Code)
}

func TestCreateDuplicateSlugConflicts(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Name: "MIT", Slug: "mit", Country: "US"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Name: "Other", Slug: "mit", Country: "US"})
	require.Error(t, err)
	require.Equal(t, common.CodeConflict, common.AsAppError(err).Code)
}

func TestListFilters(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	ctx := context.Background()

	inactive := false
	_, err := svc.Create(ctx, Input{Name: "MIT", Slug: "mit", Country: "US", City: "Cambridge"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Name: "Oxford", Slug: "oxford", Country: "UK", City: "Oxford"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Name: "Closed College", Slug: "closed", Country: "US", IsActive: &inactive})
	require.NoError(t, err)

	page, err := svc.List(ctx, ListFilter{Country: "US"}, common.PageParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)

	active := true
	page, err = svc.List(ctx, ListFilter{Country: "US", IsActive: &active}, common.PageParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "MIT", page.Data[0].Name)

	page, err = svc.List(ctx, ListFilter{Search: "oxf"}, common.PageParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
}

func TestUploadImageFirstBecomesPrimary(t *testing.T) {
	store := newMemStore()
	svc, mock := newTestService(t, store)
	ctx := context.Background()

	u, err := svc.Create(ctx, Input{Name: "MIT", Slug: "mit", Country: "US"})
	require.NoError(t, err)

	img, err := svc.UploadImage(ctx, u.ID, media.UploadInput{
		FileName: "a.png", ContentType: "image/png", Data: []byte{1, 2, 3},
	}, "campus")
	require.NoError(t, err)
	require.True(t, img.IsPrimary)
	require.Equal(t, 1, mock.UploadCount())

	second, err := svc.UploadImage(ctx, u.ID, media.UploadInput{
		FileName: "b.png", ContentType: "image/png", Data: []byte{4, 5, 6},
	}, "")
	require.NoError(t, err)
	require.False(t, second.IsPrimary)

	require.NoError(t, svc.SetPrimaryImage(ctx, u.ID, second.ID))
	detail, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	primaries := 0
	for _, item := range detail.Images {
		if item.IsPrimary {
			primaries++
			require.Equal(t, second.ID, item.ID)
		}
	}
	require.Equal(t, 1, primaries)
}

func TestUploadImageRejectsBadType(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	u, err := svc.Create(ctx, Input{Name: "MIT", Slug: "mit", Country: "US"})
	require.NoError(t, err)

	_, err = svc.UploadImage(ctx, u.ID, media.UploadInput{
		FileName: "doc.pdf", ContentType: "application/pdf", Data: []byte{1},
	}, "")
	require.Error(t, err)
	require.Equal(t, common.CodeValidation, common.AsAppError(err).Code)
}

func TestDeleteUnknownUniversity(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	err := svc.Delete(context.Background(), uuid.New())
	require.Error(t, err)
	require.Equal(t, common.CodeNotFound, common.AsAppError(err).Code)
}
