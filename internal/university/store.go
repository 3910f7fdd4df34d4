package university

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable indicates the store dependency is not configured.
var ErrStoreUnavailable = errors.New("university: store unavailable")

// ErrNotFound indicates no row matched the requested identifier.
var ErrNotFound = errors.New("university: not found")

// ErrDuplicateSlug indicates a uniqueness violation on the slug column.
var ErrDuplicateSlug = errors.New("university: slug already exists")

// ErrStale indicates the row changed after the caller read it, so the
// write would clobber a concurrent edit.
var ErrStale = errors.New("university: stale update")

// Store provides database accessors for universities and their images.
type Store interface {
	Insert(ctx context.Context, in Input) (University, error)
	// Update rewrites the row only while updated_at still equals expected;
	// a concurrent edit surfaces as ErrStale.
	Update(ctx context.Context, id uuid.UUID, in Input, expected time.Time) (University, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (University, error)
	List(ctx context.Context) ([]University, error)

	InsertImage(ctx context.Context, img Image) (Image, error)
	ListImages(ctx context.Context, universityID uuid.UUID) ([]Image, error)
	GetImage(ctx context.Context, universityID, imageID uuid.UUID) (Image, error)
	DeleteImage(ctx context.Context, universityID, imageID uuid.UUID) error
	SetPrimaryImage(ctx context.Context, universityID, imageID uuid.UUID) error
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const universityColumns = `id, name, slug, country, city, website, description, is_active, created_at, updated_at`

func scanUniversity(row pgx.Row) (University, error) {
	var u University
	err := row.Scan(&u.ID, &u.Name, &u.Slug, &u.Country, &u.City, &u.Website,
		&u.Description, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *pgStore) Insert(ctx context.Context, in Input) (University, error) {
	if s == nil || s.pool == nil {
		return University{}, ErrStoreUnavailable
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO universities (name, slug, country, city, website, description, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+universityColumns,
		in.Name, in.Slug, in.Country, in.City, in.Website, in.Description, active)
	u, err := scanUniversity(row)
	if err != nil {
		return University{}, mapPgError(err)
	}
	return u, nil
}

func (s *pgStore) Update(ctx context.Context, id uuid.UUID, in Input, expected time.Time) (University, error) {
	if s == nil || s.pool == nil {
		return University{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `UPDATE universities
SET name = $2, slug = $3, country = $4, city = $5, website = $6, description = $7,
    is_active = COALESCE($8, is_active), updated_at = now()
WHERE id = $1 AND updated_at = $9
RETURNING `+universityColumns,
		id, in.Name, in.Slug, in.Country, in.City, in.Website, in.Description, in.IsActive, expected)
	u, err := scanUniversity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return University{}, s.staleOrMissing(ctx, id)
		}
		return University{}, mapPgError(err)
	}
	return u, nil
}

// staleOrMissing disambiguates a guarded update that matched no row: the
// record is either gone or was rewritten since the caller read it.
func (s *pgStore) staleOrMissing(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM universities WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrStale
	}
	return ErrNotFound
}

// Delete removes the university. Dependent records (images, programs,
// admissions, tuition, fees, aid) fall with it via FK cascade.
func (s *pgStore) Delete(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM universities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, id uuid.UUID) (University, error) {
	if s == nil || s.pool == nil {
		return University{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+universityColumns+` FROM universities WHERE id = $1`, id)
	u, err := scanUniversity(row)
	if err != nil {
		return University{}, mapPgError(err)
	}
	images, err := s.ListImages(ctx, id)
	if err != nil {
		return University{}, err
	}
	u.Images = images
	return u, nil
}

func (s *pgStore) List(ctx context.Context) ([]University, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT `+universityColumns+` FROM universities ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []University
	for rows.Next() {
		u, err := scanUniversity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

const imageColumns = `id, university_id, url, alt_text, width, height, byte_size, is_primary, created_at, updated_at`

func scanImage(row pgx.Row) (Image, error) {
	var img Image
	err := row.Scan(&img.ID, &img.UniversityID, &img.URL, &img.AltText, &img.Width,
		&img.Height, &img.ByteSize, &img.IsPrimary, &img.CreatedAt, &img.UpdatedAt)
	return img, err
}

func (s *pgStore) InsertImage(ctx context.Context, img Image) (Image, error) {
	if s == nil || s.pool == nil {
		return Image{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO university_images (university_id, url, alt_text, width, height, byte_size, is_primary)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+imageColumns,
		img.UniversityID, img.URL, img.AltText, img.Width, img.Height, img.ByteSize, img.IsPrimary)
	inserted, err := scanImage(row)
	if err != nil {
		return Image{}, mapPgError(err)
	}
	return inserted, nil
}

func (s *pgStore) ListImages(ctx context.Context, universityID uuid.UUID) ([]Image, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT `+imageColumns+` FROM university_images
WHERE university_id = $1 ORDER BY is_primary DESC, created_at`, universityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (s *pgStore) GetImage(ctx context.Context, universityID, imageID uuid.UUID) (Image, error) {
	if s == nil || s.pool == nil {
		return Image{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+imageColumns+` FROM university_images
WHERE id = $1 AND university_id = $2`, imageID, universityID)
	img, err := scanImage(row)
	if err != nil {
		return Image{}, mapPgError(err)
	}
	return img, nil
}

func (s *pgStore) DeleteImage(ctx context.Context, universityID, imageID uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM university_images WHERE id = $1 AND university_id = $2`, imageID, universityID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPrimaryImage swaps the primary flag inside one transaction so the
// partial unique index never observes two primaries.
func (s *pgStore) SetPrimaryImage(ctx context.Context, universityID, imageID uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `UPDATE university_images SET is_primary = FALSE, updated_at = now()
WHERE university_id = $1 AND is_primary`, universityID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE university_images SET is_primary = TRUE, updated_at = now()
WHERE id = $1 AND university_id = $2`, imageID, universityID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateSlug
	}
	return err
}
