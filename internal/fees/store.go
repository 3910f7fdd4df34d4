package fees

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/univbase/backend-univ/internal/finance"
)

// ErrStoreUnavailable indicates the store dependency is not configured.
var ErrStoreUnavailable = errors.New("fees: store unavailable")

// ErrNotFound indicates no row matched the requested identifier.
var ErrNotFound = errors.New("fees: not found")

// ErrUnknownReference indicates the referenced university or program does not exist.
var ErrUnknownReference = errors.New("fees: unknown university or program")

// ErrStale indicates the row changed after the caller read it.
var ErrStale = errors.New("fees: stale update")

// Store provides database accessors for fee structures.
type Store interface {
	Insert(ctx context.Context, st Structure) (Structure, error)
	// Update rewrites the row only while updated_at still equals
	// st.UpdatedAt, the stamp of the snapshot the caller merged over;
	// a concurrent edit surfaces as ErrStale.
	Update(ctx context.Context, st Structure) (Structure, error)
	Delete(ctx context.Context, universityID, id uuid.UUID) error
	Get(ctx context.Context, universityID, id uuid.UUID) (Structure, error)
	ListByUniversity(ctx context.Context, universityID uuid.UUID) ([]Structure, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const structureColumns = `id, university_id, program_id, academic_year, currency, line_items,
total_mandatory, total_optional, grand_total, effective_date, expiry_date, is_active, created_at, updated_at`

func scanStructure(row pgx.Row) (Structure, error) {
	var st Structure
	var rawItems []byte
	err := row.Scan(&st.ID, &st.UniversityID, &st.ProgramID, &st.AcademicYear, &st.Currency,
		&rawItems, &st.TotalMandatory, &st.TotalOptional, &st.GrandTotal,
		&st.EffectiveDate, &st.ExpiryDate, &st.IsActive, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return Structure{}, err
	}
	if len(rawItems) > 0 {
		if err := json.Unmarshal(rawItems, &st.LineItems); err != nil {
			return Structure{}, err
		}
	}
	if st.LineItems == nil {
		st.LineItems = finance.LineItems{}
	}
	return st, nil
}

func (s *pgStore) Insert(ctx context.Context, st Structure) (Structure, error) {
	if s == nil || s.pool == nil {
		return Structure{}, ErrStoreUnavailable
	}
	items, err := json.Marshal(st.LineItems)
	if err != nil {
		return Structure{}, err
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO fee_structures
(university_id, program_id, academic_year, currency, line_items, total_mandatory, total_optional, grand_total, effective_date, expiry_date, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+structureColumns,
		st.UniversityID, st.ProgramID, st.AcademicYear, st.Currency, items,
		st.TotalMandatory, st.TotalOptional, st.GrandTotal, st.EffectiveDate, st.ExpiryDate, st.IsActive)
	inserted, err := scanStructure(row)
	if err != nil {
		return Structure{}, mapPgError(err)
	}
	return inserted, nil
}

func (s *pgStore) Update(ctx context.Context, st Structure) (Structure, error) {
	if s == nil || s.pool == nil {
		return Structure{}, ErrStoreUnavailable
	}
	items, err := json.Marshal(st.LineItems)
	if err != nil {
		return Structure{}, err
	}
	row := s.pool.QueryRow(ctx, `UPDATE fee_structures
SET program_id = $3, academic_year = $4, currency = $5, line_items = $6,
    total_mandatory = $7, total_optional = $8, grand_total = $9, effective_date = $10,
    expiry_date = $11, is_active = COALESCE($12, is_active), updated_at = now()
WHERE id = $2 AND university_id = $1 AND updated_at = $13
RETURNING `+structureColumns,
		st.UniversityID, st.ID, st.ProgramID, st.AcademicYear, st.Currency, items,
		st.TotalMandatory, st.TotalOptional, st.GrandTotal, st.EffectiveDate, st.ExpiryDate, st.IsActive, st.UpdatedAt)
	updated, err := scanStructure(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Structure{}, s.staleOrMissing(ctx, st.UniversityID, st.ID)
		}
		return Structure{}, mapPgError(err)
	}
	return updated, nil
}

// staleOrMissing disambiguates a guarded update that matched no row: the
// record is either gone or was rewritten since the caller read it.
func (s *pgStore) staleOrMissing(ctx context.Context, universityID, id uuid.UUID) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM fee_structures WHERE id = $2 AND university_id = $1)`, universityID, id).Scan(&exists); err != nil {
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
	tag, err := s.pool.Exec(ctx, `DELETE FROM fee_structures WHERE id = $2 AND university_id = $1`, universityID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, universityID, id uuid.UUID) (Structure, error) {
	if s == nil || s.pool == nil {
		return Structure{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+structureColumns+` FROM fee_structures
WHERE id = $2 AND university_id = $1`, universityID, id)
	st, err := scanStructure(row)
	if err != nil {
		return Structure{}, mapPgError(err)
	}
	return st, nil
}

func (s *pgStore) ListByUniversity(ctx context.Context, universityID uuid.UUID) ([]Structure, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT `+structureColumns+` FROM fee_structures
WHERE university_id = $1 ORDER BY academic_year DESC`, universityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Structure
	for rows.Next() {
		st, err := scanStructure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
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
