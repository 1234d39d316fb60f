package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// LedgerRepository stores attendance records in PostgreSQL. The unique
// (identity_id, day) constraint rejects a second record even when two
// processes mark the same student at once.
type LedgerRepository struct {
	pool *Pool
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Load returns the records of day in the order they were recorded
func (r *LedgerRepository) Load(ctx context.Context, day ledger.Day) ([]ledger.Record, error) {
	query := `
		SELECT identity_id, display_name, recorded_at, status
		FROM attendance_records
		WHERE day = $1::date
		ORDER BY recorded_at, id
	`

	rows, err := r.pool.Query(ctx, query, day.String())
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		rec := ledger.Record{Date: day}
		var status string
		if err := rows.Scan(&rec.IdentityID, &rec.DisplayName, &rec.Time, &status); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		rec.Status = ledger.Status(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}
	return records, nil
}

// Append inserts rec, returning ledger.ErrDuplicate when the identity is
// already recorded for day
func (r *LedgerRepository) Append(ctx context.Context, day ledger.Day, rec ledger.Record) error {
	query := `
		INSERT INTO attendance_records (id, identity_id, display_name, day, recorded_at, status)
		VALUES ($1, $2, $3, $4::date, $5, $6)
		ON CONFLICT (identity_id, day) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query, uuid.New(), rec.IdentityID, rec.DisplayName, day.String(), rec.Time, string(rec.Status))
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	if n == 0 {
		return ledger.ErrDuplicate
	}
	return nil
}

// Location describes where the records of day are stored
func (r *LedgerRepository) Location(day ledger.Day) string {
	return fmt.Sprintf("postgres:%s[day=%s]", database.AttendanceTable, day)
}

// daysQuery builds the day listing query. A non-positive limit lists every day.
func daysQuery(limit int) (string, []any) {
	query := `SELECT DISTINCT to_char(day, 'YYYY-MM-DD') AS d FROM attendance_records ORDER BY d DESC`
	if limit <= 0 {
		return query, nil
	}
	return query + ` LIMIT $1`, []any{limit}
}

// Days lists days with records, newest first
func (r *LedgerRepository) Days(ctx context.Context, limit int) ([]ledger.Day, error) {
	query, args := daysQuery(limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance days: %w", err)
	}
	defer rows.Close()

	var days []ledger.Day
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan attendance day: %w", err)
		}
		d, err := ledger.ParseDay(s)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance days: %w", err)
	}
	return days, nil
}
