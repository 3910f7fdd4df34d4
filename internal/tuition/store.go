package tuition

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
var ErrStoreUnavailable = errors.New("tuition: store unavailable")

// ErrNotFound indicates no row matched the requested identifier.
var ErrNotFound = errors.New("tuition: not found")

// ErrUnknownReference indicates the referenced university or program does not exist.
var ErrUnknownReference = errors.New("tuition: unknown university or program")

// ErrStale indicates the row changed after the caller read it.
var ErrStale = errors.New("tuition: stale update")

// Store provides database accessors for tuition breakdowns and their
// payment schedules.
type Store interface {
	Insert(ctx context.Context, b Breakdown, schedule []Installment) (Breakdown, error)
	// Update rewrites the row only while updated_at still equals
	// b.UpdatedAt, the stamp of the snapshot the caller merged over;
	// a concurrent edit surfaces as ErrStale.
	Update(ctx context.Context, b Breakdown, schedule []Installment) (Breakdown, error)
	Delete(ctx context.Context, universityID, id uuid.UUID) error
	Get(ctx context.Context, universityID, id uuid.UUID) (Breakdown, error)
	ListByUniversity(ctx context.Context, universityID uuid.UUID) ([]Breakdown, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const breakdownColumns = `id, university_id, program_id, academic_year, year_number, currency,
line_items, total_base, total_additional, grand_total, effective_date, expiry_date, is_active, created_at, updated_at`

func scanBreakdown(row pgx.Row) (Breakdown, error) {
	var b Breakdown
	var rawItems []byte
	err := row.Scan(&b.ID, &b.UniversityID, &b.ProgramID, &b.AcademicYear, &b.YearNumber,
		&b.Currency, &rawItems, &b.TotalBase, &b.TotalAdditional, &b.GrandTotal,
		&b.EffectiveDate, &b.ExpiryDate, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Breakdown{}, err
	}
	if len(rawItems) > 0 {
		if err := json.Unmarshal(rawItems, &b.LineItems); err != nil {
			return Breakdown{}, err
		}
	}
	if b.LineItems == nil {
		b.LineItems = finance.LineItems{}
	}
	return b, nil
}

// Insert persists the breakdown and its schedule in one transaction.
func (s *pgStore) Insert(ctx context.Context, b Breakdown, schedule []Installment) (Breakdown, error) {
	if s == nil || s.pool == nil {
		return Breakdown{}, ErrStoreUnavailable
	}
	items, err := json.Marshal(b.LineItems)
	if err != nil {
		return Breakdown{}, err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Breakdown{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `INSERT INTO tuition_breakdowns
(university_id, program_id, academic_year, year_number, currency, line_items, total_base, total_additional, grand_total, effective_date, expiry_date, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING `+breakdownColumns,
		b.UniversityID, b.ProgramID, b.AcademicYear, b.YearNumber, b.Currency, items,
		b.TotalBase, b.TotalAdditional, b.GrandTotal, b.EffectiveDate, b.ExpiryDate, b.IsActive)
	inserted, err := scanBreakdown(row)
	if err != nil {
		return Breakdown{}, mapPgError(err)
	}
	if err := insertSchedule(ctx, tx, inserted.ID, schedule); err != nil {
		return Breakdown{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Breakdown{}, err
	}
	return s.Get(ctx, inserted.UniversityID, inserted.ID)
}

// Update rewrites the breakdown and regenerates its schedule atomically.
func (s *pgStore) Update(ctx context.Context, b Breakdown, schedule []Installment) (Breakdown, error) {
	if s == nil || s.pool == nil {
		return Breakdown{}, ErrStoreUnavailable
	}
	items, err := json.Marshal(b.LineItems)
	if err != nil {
		return Breakdown{}, err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Breakdown{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `UPDATE tuition_breakdowns
SET program_id = $3, academic_year = $4, year_number = $5, currency = $6, line_items = $7,
    total_base = $8, total_additional = $9, grand_total = $10, effective_date = $11,
    expiry_date = $12, is_active = COALESCE($13, is_active), updated_at = now()
WHERE id = $2 AND university_id = $1 AND updated_at = $14
RETURNING `+breakdownColumns,
		b.UniversityID, b.ID, b.ProgramID, b.AcademicYear, b.YearNumber, b.Currency, items,
		b.TotalBase, b.TotalAdditional, b.GrandTotal, b.EffectiveDate, b.ExpiryDate, b.IsActive, b.UpdatedAt)
	updated, err := scanBreakdown(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Breakdown{}, staleOrMissing(ctx, tx, b.UniversityID, b.ID)
		}
		return Breakdown{}, mapPgError(err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM payment_schedules WHERE tuition_breakdown_id = $1`, updated.ID); err != nil {
		return Breakdown{}, err
	}
	if err := insertSchedule(ctx, tx, updated.ID, schedule); err != nil {
		return Breakdown{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Breakdown{}, err
	}
	return s.Get(ctx, updated.UniversityID, updated.ID)
}

// staleOrMissing disambiguates a guarded update that matched no row: the
// record is either gone or was rewritten since the caller read it.
func staleOrMissing(ctx context.Context, tx pgx.Tx, universityID, id uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tuition_breakdowns WHERE id = $2 AND university_id = $1)`, universityID, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrStale
	}
	return ErrNotFound
}

func insertSchedule(ctx context.Context, tx pgx.Tx, breakdownID uuid.UUID, schedule []Installment) error {
	for _, inst := range schedule {
		if _, err := tx.Exec(ctx, `INSERT INTO payment_schedules
(tuition_breakdown_id, installment_count, installment_number, amount, due_date)
VALUES ($1, $2, $3, $4, $5)`,
			breakdownID, inst.InstallmentCount, inst.InstallmentNumber, inst.Amount, inst.DueDate); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the breakdown; payment schedules fall via FK cascade.
func (s *pgStore) Delete(ctx context.Context, universityID, id uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM tuition_breakdowns WHERE id = $2 AND university_id = $1`, universityID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, universityID, id uuid.UUID) (Breakdown, error) {
	if s == nil || s.pool == nil {
		return Breakdown{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+breakdownColumns+` FROM tuition_breakdowns
WHERE id = $2 AND university_id = $1`, universityID, id)
	b, err := scanBreakdown(row)
	if err != nil {
		return Breakdown{}, mapPgError(err)
	}
	rows, err := s.pool.Query(ctx, `SELECT id, tuition_breakdown_id, installment_count, installment_number, amount, due_date, created_at, updated_at
FROM payment_schedules WHERE tuition_breakdown_id = $1 ORDER BY installment_number`, id)
	if err != nil {
		return Breakdown{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var inst Installment
		if err := rows.Scan(&inst.ID, &inst.BreakdownID, &inst.InstallmentCount, &inst.InstallmentNumber,
			&inst.Amount, &inst.DueDate, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			return Breakdown{}, err
		}
		b.Schedule = append(b.Schedule, inst)
	}
	return b, rows.Err()
}

func (s *pgStore) ListByUniversity(ctx context.Context, universityID uuid.UUID) ([]Breakdown, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT `+breakdownColumns+` FROM tuition_breakdowns
WHERE university_id = $1 ORDER BY academic_year DESC, year_number`, universityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Breakdown
	for rows.Next() {
		b, err := scanBreakdown(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
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
