package program

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
var ErrStoreUnavailable = errors.New("program: store unavailable")

// ErrNotFound indicates no row matched the requested identifier.
var ErrNotFound = errors.New("program: not found")

// ErrUnknownUniversity indicates the referenced university does not exist.
var ErrUnknownUniversity = errors.New("program: unknown university")

// ErrStale indicates the row changed after the caller read it.
var ErrStale = errors.New("program: stale update")

// Store provides database accessors for programs.
type Store interface {
	Insert(ctx context.Context, universityID uuid.UUID, in Input) (Program, error)
	// Update rewrites the row only while updated_at still equals expected;
	// a concurrent edit surfaces as ErrStale.
	Update(ctx context.Context, universityID, id uuid.UUID, in Input, expected time.Time) (Program, error)
	Delete(ctx context.Context, universityID, id uuid.UUID) error
	Get(ctx context.Context, universityID, id uuid.UUID) (Program, error)
	ListByUniversity(ctx context.Context, universityID uuid.UUID) ([]Program, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const programColumns = `id, university_id, name, department, level, duration_years, language, is_active, created_at, updated_at`

func scanProgram(row pgx.Row) (Program, error) {
	var p Program
	err := row.Scan(&p.ID, &p.UniversityID, &p.Name, &p.Department, &p.Level,
		&p.DurationYears, &p.Language, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *pgStore) Insert(ctx context.Context, universityID uuid.UUID, in Input) (Program, error) {
	if s == nil || s.pool == nil {
		return Program{}, ErrStoreUnavailable
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO programs (university_id, name, department, level, duration_years, language, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+programColumns,
		universityID, in.Name, in.Department, in.Level, in.DurationYears, in.Language, active)
	p, err := scanProgram(row)
	if err != nil {
		return Program{}, mapPgError(err)
	}
	return p, nil
}

func (s *pgStore) Update(ctx context.Context, universityID, id uuid.UUID, in Input, expected time.Time) (Program, error) {
	if s == nil || s.pool == nil {
		return Program{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `UPDATE programs
SET name = $3, department = $4, level = $5, duration_years = $6, language = $7,
    is_active = COALESCE($8, is_active), updated_at = now()
WHERE id = $2 AND university_id = $1 AND updated_at = $9
RETURNING `+programColumns,
		universityID, id, in.Name, in.Department, in.Level, in.DurationYears, in.Language, in.IsActive, expected)
	p, err := scanProgram(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Program{}, s.staleOrMissing(ctx, universityID, id)
		}
		return Program{}, mapPgError(err)
	}
	return p, nil
}

// staleOrMissing disambiguates a guarded update that matched no row: the
// record is either gone or was rewritten since the caller read it.
func (s *pgStore) staleOrMissing(ctx context.Context, universityID, id uuid.UUID) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM programs WHERE id = $2 AND university_id = $1)`, universityID, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrStale
	}
	return ErrNotFound
}

func (s *pgStore) Delete(ctx context.Context, universityID, id uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM programs WHERE id = $2 AND university_id = $1`, universityID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, universityID, id uuid.UUID) (Program, error) {
	if s == nil || s.pool == nil {
		return Program{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+programColumns+` FROM programs WHERE id = $2 AND university_id = $1`, universityID, id)
	p, err := scanProgram(row)
	if err != nil {
		return Program{}, mapPgError(err)
	}
	return p, nil
}

func (s *pgStore) ListByUniversity(ctx context.Context, universityID uuid.UUID) ([]Program, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT `+programColumns+` FROM programs WHERE university_id = $1 ORDER BY name`, universityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrUnknownUniversity
	}
	return err
}
