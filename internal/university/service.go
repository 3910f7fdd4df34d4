package university

import (
	"context"
	"errors"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/univbase/backend-univ/internal/common"
	"github.com/univbase/backend-univ/internal/events"
	"github.com/univbase/backend-univ/internal/listing"
	"github.com/univbase/backend-univ/internal/media"
	"github.com/univbase/backend-univ/internal/obs"
)

// Service orchestrates university CRUD, image management and caching.
type Service struct {
	Store    Store
	Cache    *Cache
	Validate *validator.Validate
	Bus      *events.Bus
	Media    media.Provider
	Purger   media.Purger
}

func (s *Service) validateInput(in *Input) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	in.Country = strings.TrimSpace(in.Country)
	in.City = strings.TrimSpace(in.City)
	in.Website = strings.TrimSpace(in.Website)
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return common.ValidationError(validationMessage(err))
		}
		return nil
	}
	if in.Name == "" {
		return common.ValidationError("name is required")
	}
	if in.Slug == "" {
		return common.ValidationError("slug is required")
	}
	if in.Country == "" {
		return common.ValidationError("country is required")
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return strings.ToLower(first.Field()) + " failed on " + first.Tag()
	}
	return "invalid payload"
}

// Create inserts a new university record.
func (s *Service) Create(ctx context.Context, in Input) (University, error) {
	if err := s.validateInput(&in); err != nil {
		obs.RecordWritesTotal.WithLabelValues("university", "create", "invalid").Inc()
		return University{}, err
	}
	u, err := s.Store.Insert(ctx, in)
	if err != nil {
		obs.RecordWritesTotal.WithLabelValues("university", "create", "error").Inc()
		return University{}, mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("university", "create", "ok").Inc()
	s.emit(ctx, events.TopicUniversityCreated, u.ID, map[string]any{"slug": u.Slug})
	return u, nil
}

// Update merges the patch over the stored record and persists the result.
// Absent patch fields keep their current values. The write carries the
// updated_at stamp of the record it merged over, so a concurrent edit
// between the read and the write comes back as a conflict instead of
// being silently overwritten.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p Patch) (University, error) {
	existing, err := s.Store.Get(ctx, id)
	if err != nil {
		return University{}, mapStoreError(err)
	}
	in := p.apply(existing)
	if err := s.validateInput(&in); err != nil {
		obs.RecordWritesTotal.WithLabelValues("university", "update", "invalid").Inc()
		return University{}, err
	}
	u, err := s.Store.Update(ctx, id, in, existing.UpdatedAt)
	if err != nil {
		obs.RecordWritesTotal.WithLabelValues("university", "update", "error").Inc()
		return University{}, mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("university", "update", "ok").Inc()
	_ = s.Cache.Invalidate(ctx, detailKey(id.String()))
	s.emit(ctx, events.TopicUniversityUpdated, u.ID, map[string]any{"slug": u.Slug})
	return u, nil
}

// Delete removes a university and everything hanging off it. Hosted images
// are purged asynchronously after the rows are gone.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	images, err := s.Store.ListImages(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return mapStoreError(err)
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		obs.RecordWritesTotal.WithLabelValues("university", "delete", "error").Inc()
		return mapStoreError(err)
	}
	obs.RecordWritesTotal.WithLabelValues("university", "delete", "ok").Inc()
	_ = s.Cache.Invalidate(ctx, detailKey(id.String()))
	for _, img := range images {
		_ = media.SchedulePurge(ctx, s.Purger, img.URL)
	}
	s.emit(ctx, events.TopicUniversityDeleted, id, nil)
	return nil
}

// Get fetches one university with its images, serving from cache when warm.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (University, error) {
	key := detailKey(id.String())
	var cached University
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		obs.CacheLookupsTotal.WithLabelValues("university_detail", "hit").Inc()
		return cached, nil
	}
	obs.CacheLookupsTotal.WithLabelValues("university_detail", "miss").Inc()
	u, err := s.Store.Get(ctx, id)
	if err != nil {
		return University{}, mapStoreError(err)
	}
	_ = s.Cache.SetJSON(ctx, key, u)
	return u, nil
}

// List returns a filtered, paginated slice of universities.
func (s *Service) List(ctx context.Context, filter ListFilter, page common.PageParams) (listing.Page[University], error) {
	all, err := s.Store.List(ctx)
	if err != nil {
		return listing.Page[University]{}, mapStoreError(err)
	}
	result := listing.FilterAndPaginate(all, page.Page, page.Limit,
		listing.Equals(filter.Country, func(u University) string { return u.Country }),
		listing.Equals(filter.City, func(u University) string { return u.City }),
		listing.BoolEquals(filter.IsActive, func(u University) bool { return u.IsActive }),
		listing.Contains(filter.Search, func(u University) []string { return []string{u.Name, u.City, u.Description} }),
	)
	return result, nil
}

// UploadImage pushes the file to the media host and records the asset.
// The first image of a university becomes primary automatically.
func (s *Service) UploadImage(ctx context.Context, universityID uuid.UUID, in media.UploadInput, altText string) (Image, error) {
	if err := media.ValidateUpload(in); err != nil {
		return Image{}, common.ValidationError(err.Error())
	}
	if _, err := s.Store.Get(ctx, universityID); err != nil {
		return Image{}, mapStoreError(err)
	}
	asset, err := s.Media.Upload(ctx, in)
	if err != nil {
		obs.MediaUploadsTotal.WithLabelValues("error").Inc()
		return Image{}, common.OperationFailed("image upload failed", err)
	}
	obs.MediaUploadsTotal.WithLabelValues("ok").Inc()

	existing, err := s.Store.ListImages(ctx, universityID)
	if err != nil {
		return Image{}, mapStoreError(err)
	}
	img, err := s.Store.InsertImage(ctx, Image{
		UniversityID: universityID,
		URL:          asset.URL,
		AltText:      strings.TrimSpace(altText),
		Width:        asset.Width,
		Height:       asset.Height,
		ByteSize:     asset.ByteSize,
		IsPrimary:    len(existing) == 0,
	})
	if err != nil {
		// The row failed but the asset is live; schedule cleanup.
		_ = media.SchedulePurge(ctx, s.Purger, asset.URL)
		return Image{}, mapStoreError(err)
	}
	_ = s.Cache.Invalidate(ctx, detailKey(universityID.String()))
	return img, nil
}

// DeleteImage drops the record and schedules the hosted asset purge.
func (s *Service) DeleteImage(ctx context.Context, universityID, imageID uuid.UUID) error {
	img, err := s.Store.GetImage(ctx, universityID, imageID)
	if err != nil {
		return mapStoreError(err)
	}
	if err := s.Store.DeleteImage(ctx, universityID, imageID); err != nil {
		return mapStoreError(err)
	}
	_ = s.Cache.Invalidate(ctx, detailKey(universityID.String()))
	_ = media.SchedulePurge(ctx, s.Purger, img.URL)
	return nil
}

// SetPrimaryImage promotes one image to primary, demoting the rest.
func (s *Service) SetPrimaryImage(ctx context.Context, universityID, imageID uuid.UUID) error {
	if err := s.Store.SetPrimaryImage(ctx, universityID, imageID); err != nil {
		return mapStoreError(err)
	}
	_ = s.Cache.Invalidate(ctx, detailKey(universityID.String()))
	s.emit(ctx, events.TopicImagePrimarySet, universityID, map[string]any{"imageId": imageID.String()})
	return nil
}

func (s *Service) emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) {
	if s.Bus == nil {
		return
	}
	_, _ = s.Bus.Emit(ctx, topic, aggregateID, payload)
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NotFound("university not found")
	case errors.Is(err, ErrDuplicateSlug):
		return common.Conflict("slug already exists")
	case errors.Is(err, ErrStale):
		return common.Conflict("university was modified concurrently, reload and retry")
	default:
		return common.OperationFailed("operation failed", err)
	}
}
