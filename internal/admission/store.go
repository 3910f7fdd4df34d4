package admission

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
var ErrStoreUnavailable = errors.New("admission: store unavailable")

// ErrNotFound indicates no row matched the requested identifier.
var ErrNotFound = errors.New("admission: not found")

// ErrUnknownReference indicates the referenced university or program does not exist.
var ErrUnknownReference = errors.New("admission: unknown university or program")

// ErrStale indicates the row changed after the caller read it.
var ErrStale = errors.New("admission: stale update")

// Store provides database accessors for admission cycles.
type Store interface {
	Insert(ctx context.Context, universityID uuid.UUID, in Input) (Admission, error)
	// Update rewrites the row only while updated_at still equals expected;
	// a concurrent edit surfaces as ErrStale.
	Update(ctx context.Context, universityID, id uuid.UUID, in Input, expected time.Time) (Admission, error)
	Delete(ctx context.Context, universityID, id uuid.UUID) error
	Get(ctx context.Context, universityID, id uuid.UUID) (Admission, error)
	ListByUniversity(ctx context.Context, universityID uuid.UUID) ([]Admission, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const admissionColumns = `id, university_id, program_id, academic_year, intake, capacity,
applications_received, offers_made, application_deadline, decision_date, is_active, created_at, updated_at`

func scanAdmission(row pgx.Row) (Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.UniversityID, &a.ProgramID, &a.AcademicYear, &a.Intake,
		&a.Capacity, &a.ApplicationsReceived, &a.OffersMade, &a.ApplicationDeadline,
		&a.DecisionDate, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *pgStore) Insert(ctx context.Context, universityID uuid.UUID, in Input) (Admission, error) {
	if s == nil || s.pool == nil {
		return Admission{}, ErrStoreUnavailable
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO admissions
(university_id, program_id, academic_year, intake, capacity, applications_received, offers_made, application_deadline, decision_date, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING `+admissionColumns,
		universityID, in.ProgramID, in.AcademicYear, in.Intake, in.Capacity,
		in.ApplicationsReceived, in.OffersMade, in.ApplicationDeadline, in.DecisionDate, active)
	a, err := scanAdmission(row)
	if err != nil {
		return Admission{}, mapPgError(err)
	}
	return a, nil
}

func (s *pgStore) Update(ctx context.Context, universityID, id uuid.UUID, in Input, expected time.Time) (Admission, error) {
	if s == nil || s.pool == nil {
		return Admission{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `UPDATE admissions
SET program_id = $3, academic_year = $4, intake = $5, capacity = $6,
    applications_received = $7, offers_made = $8, application_deadline = $9,
    decision_date = $10, is_active = COALESCE($11, is_active), updated_at = now()
WHERE id = $2 AND university_id = $1 AND updated_at = $12
RETURNING `+admissionColumns,
		universityID, id, in.ProgramID, in.AcademicYear, in.Intake, in.Capacity,
		in.ApplicationsReceived, in.OffersMade, in.ApplicationDeadline, in.DecisionDate, in.IsActive, expected)
	a, err := scanAdmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Admission{}, s.staleOrMissing(ctx, universityID, id)
		}
		return Admission{}, mapPgError(err)
	}
	return a, nil
}

// staleOrMissing disambiguates a guarded update that matched no row: the
// record is either gone or was rewritten since the caller read it.
func (s *pgStore) staleOrMissing(ctx context.Context, universityID, id uuid.UUID) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admissions WHERE id = $2 AND university_id = $1)`, universityID, id).Scan(&exists); err != nil {
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
	tag, err := s.pool.Exec(ctx, `DELETE FROM admissions WHERE id = $2 AND university_id = $1`, universityID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, universityID, id uuid.UUID) (Admission, error) {
	if s == nil || s.pool == nil {
		return Admission{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+admissionColumns+` FROM admissions WHERE id = $2 AND university_id = $1`, universityID, id)
	a, err := scanAdmission(row)
	if err != nil {
		return Admission{}, mapPgError(err)
	}
	return a, nil
}

func (s *pgStore) ListByUniversity(ctx context.Context, universityID uuid.UUID) ([]Admission, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT `+admissionColumns+` FROM admissions
WHERE university_id = $1 ORDER BY academic_year DESC, intake`, universityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Admission
	for rows.Next() {
		a, err := scanAdmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrUnknownReference
	}
	return err
}
