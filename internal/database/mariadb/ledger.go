package mariadb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// errDuplicateEntry is the MySQL/MariaDB error number for a unique key violation.
const errDuplicateEntry = 1062

// LedgerRepository stores attendance records in MariaDB.
type LedgerRepository struct {
	pool *Pool
}

// NewLedgerRepository creates a new MariaDB ledger repository
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Load returns the records of day in the order they were recorded
func (r *LedgerRepository) Load(ctx context.Context, day ledger.Day) ([]ledger.Record, error) {
	query := `
		SELECT identity_id, display_name, recorded_at, status
		FROM attendance_records
		WHERE day = ?
		ORDER BY recorded_at, id
	`

	rows, err := r.pool.db.QueryContext(ctx, query, day.String())
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		rec := ledger.Record{Date: day}
		var status string
		if err := rows.Scan(&rec.IdentityID, &rec.DisplayName, &rec.Time, &status); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.Status = ledger.Status(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// Append inserts rec. A unique key violation is reported as ledger.ErrDuplicate.
func (r *LedgerRepository) Append(ctx context.Context, day ledger.Day, rec ledger.Record) error {
	query := `
		INSERT INTO attendance_records (id, identity_id, display_name, day, recorded_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		uuid.NewString(), rec.IdentityID, rec.DisplayName, day.String(), rec.Time.UTC(), string(rec.Status))
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == errDuplicateEntry {
			return ledger.ErrDuplicate
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// Location describes where the records of day are stored
func (r *LedgerRepository) Location(day ledger.Day) string {
	return fmt.Sprintf("mariadb:%s[day=%s]", database.AttendanceTable, day)
}

// daysQuery builds the day listing query. A non-positive limit lists every day.
func daysQuery(limit int) (string, []any) {
	query := `SELECT DISTINCT day FROM attendance_records ORDER BY day DESC`
	if limit <= 0 {
		return query, nil
	}
	return query + ` LIMIT ?`, []any{limit}
}

// Days lists days with records, newest first
func (r *LedgerRepository) Days(ctx context.Context, limit int) ([]ledger.Day, error) {
	query, args := daysQuery(limit)
	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance days: %w", err)
	}
	defer rows.Close()

	var days []ledger.Day
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		days = append(days, ledger.DayOf(d, time.UTC))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return days, nil
}
