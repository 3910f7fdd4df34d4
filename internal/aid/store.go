package aid

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable indicates the store dependency is not configured.
var ErrStoreUnavailable = errors.New("aid: store unavailable")

// ErrNotFound indicates no row matched the requested identifier.
var ErrNotFound = errors.New("aid: not found")

// ErrUnknownUniversity indicates the referenced university does not exist.
var ErrUnknownUniversity = errors.New("aid: unknown university")

// ErrStale indicates the row changed after the caller read it.
var ErrStale = errors.New("aid: stale update")

// Store provides database accessors for scholarships and financial aid.
// The update methods rewrite a row only while updated_at still equals the
// UpdatedAt stamp on the passed record; a concurrent edit surfaces as
// ErrStale.
type Store interface {
	InsertScholarship(ctx context.Context, sch Scholarship) (Scholarship, error)
	UpdateScholarship(ctx context.Context, sch Scholarship) (Scholarship, error)
	DeleteScholarship(ctx context.Context, universityID, id uuid.UUID) error
	GetScholarship(ctx context.Context, universityID, id uuid.UUID) (Scholarship, error)
	ListScholarships(ctx context.Context, universityID uuid.UUID) ([]Scholarship, error)

	InsertAid(ctx context.Context, fa FinancialAid) (FinancialAid, error)
	UpdateAid(ctx context.Context, fa FinancialAid) (FinancialAid, error)
	DeleteAid(ctx context.Context, universityID, id uuid.UUID) error
	GetAid(ctx context.Context, universityID, id uuid.UUID) (FinancialAid, error)
	ListAid(ctx context.Context, universityID uuid.UUID) ([]FinancialAid, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const scholarshipColumns = `id, university_id, name, description, amount, percent_bps, max_amount,
eligibility, application_deadline, is_active, created_at, updated_at`

func scanScholarship(row pgx.Row) (Scholarship, error) {
	var sch Scholarship
	err := row.Scan(&sch.ID, &sch.UniversityID, &sch.Name, &sch.Description, &sch.Amount,
		&sch.PercentBps, &sch.MaxAmount, &sch.Eligibility, &sch.ApplicationDeadline,
		&sch.IsActive, &sch.CreatedAt, &sch.UpdatedAt)
	return sch, err
}

func (s *pgStore) InsertScholarship(ctx context.Context, sch Scholarship) (Scholarship, error) {
	if s == nil || s.pool == nil {
		return Scholarship{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO scholarships
(university_id, name, description, amount, percent_bps, max_amount, eligibility, application_deadline, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+scholarshipColumns,
		sch.UniversityID, sch.Name, sch.Description, sch.Amount, sch.PercentBps,
		sch.MaxAmount, sch.Eligibility, sch.ApplicationDeadline, sch.IsActive)
	inserted, err := scanScholarship(row)
	if err != nil {
		return Scholarship{}, mapPgError(err)
	}
	return inserted, nil
}

func (s *pgStore) UpdateScholarship(ctx context.Context, sch Scholarship) (Scholarship, error) {
	if s == nil || s.pool == nil {
		return Scholarship{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `UPDATE scholarships
SET name = $3, description = $4, amount = $5, percent_bps = $6, max_amount = $7,
    eligibility = $8, application_deadline = $9, is_active = $10, updated_at = now()
WHERE id = $2 AND university_id = $1 AND updated_at = $11
RETURNING `+scholarshipColumns,
		sch.UniversityID, sch.ID, sch.Name, sch.Description, sch.Amount, sch.PercentBps,
		sch.MaxAmount, sch.Eligibility, sch.ApplicationDeadline, sch.IsActive, sch.UpdatedAt)
	updated, err := scanScholarship(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Scholarship{}, s.staleOrMissing(ctx, "scholarships", sch.UniversityID, sch.ID)
		}
		return Scholarship{}, mapPgError(err)
	}
	return updated, nil
}

// staleOrMissing disambiguates a guarded update that matched no row: the
// record is either gone or was rewritten since the caller read it.
func (s *pgStore) staleOrMissing(ctx context.Context, table string, universityID, id uuid.UUID) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $2 AND university_id = $1)`, universityID, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrStale
	}
	return ErrNotFound
}

func (s *pgStore) DeleteScholarship(ctx context.Context, universityID, id uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM scholarships WHERE id = $2 AND university_id = $1`, universityID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) GetScholarship(ctx context.Context, universityID, id uuid.UUID) (Scholarship, error) {
	if s == nil || s.pool == nil {
		return Scholarship{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+scholarshipColumns+` FROM scholarships
WHERE id = $2 AND university_id = $1`, universityID, id)
	sch, err := scanScholarship(row)
	if err != nil {
		return Scholarship{}, mapPgError(err)
	}
	return sch, nil
}

func (s *pgStore) ListScholarships(ctx context.Context, universityID uuid.UUID) ([]Scholarship, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT `+scholarshipColumns+` FROM scholarships
WHERE university_id = $1 ORDER BY name`, universityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Scholarship
	for rows.Next() {
		sch, err := scanScholarship(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sch)
	}
	return out, rows.Err()
}

const aidColumns = `id, university_id, kind, name, amount, percent_bps, max_amount, interest_bps, is_active, created_at, updated_at`

func scanAid(row pgx.Row) (FinancialAid, error) {
	var fa FinancialAid
	err := row.Scan(&fa.ID, &fa.UniversityID, &fa.Kind, &fa.Name, &fa.Amount,
		&fa.PercentBps, &fa.MaxAmount, &fa.InterestBps, &fa.IsActive, &fa.CreatedAt, &fa.UpdatedAt)
	return fa, err
}

func (s *pgStore) InsertAid(ctx context.Context, fa FinancialAid) (FinancialAid, error) {
	if s == nil || s.pool == nil {
		return FinancialAid{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO financial_aid
(university_id, kind, name, amount, percent_bps, max_amount, interest_bps, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+aidColumns,
		fa.UniversityID, fa.Kind, fa.Name, fa.Amount, fa.PercentBps, fa.MaxAmount, fa.InterestBps, fa.IsActive)
	inserted, err := scanAid(row)
	if err != nil {
		return FinancialAid{}, mapPgError(err)
	}
	return inserted, nil
}

func (s *pgStore) UpdateAid(ctx context.Context, fa FinancialAid) (FinancialAid, error) {
	if s == nil || s.pool == nil {
		return FinancialAid{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `UPDATE financial_aid
SET kind = $3, name = $4, amount = $5, percent_bps = $6, max_amount = $7,
    interest_bps = $8, is_active = $9, updated_at = now()
WHERE id = $2 AND university_id = $1 AND updated_at = $10
RETURNING `+aidColumns,
		fa.UniversityID, fa.ID, fa.Kind, fa.Name, fa.Amount, fa.PercentBps, fa.MaxAmount, fa.InterestBps, fa.IsActive, fa.UpdatedAt)
	updated, err := scanAid(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FinancialAid{}, s.staleOrMissing(ctx, "financial_aid", fa.UniversityID, fa.ID)
		}
		return FinancialAid{}, mapPgError(err)
	}
	return updated, nil
}

func (s *pgStore) DeleteAid(ctx context.Context, universityID, id uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM financial_aid WHERE id = $2 AND university_id = $1`, universityID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) GetAid(ctx context.Context, universityID, id uuid.UUID) (FinancialAid, error) {
	if s == nil || s.pool == nil {
		return FinancialAid{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+aidColumns+` FROM financial_aid
WHERE id = $2 AND university_id = $1`, universityID, id)
	fa, err := scanAid(row)
	if err != nil {
		return FinancialAid{}, mapPgError(err)
	}
	return fa, nil
}

func (s *pgStore) ListAid(ctx context.Context, universityID uuid.UUID) ([]FinancialAid, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT `+aidColumns+` FROM financial_aid
WHERE university_id = $1 ORDER BY kind, name`, universityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FinancialAid
	for rows.Next() {
		fa, err := scanAid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fa)
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
