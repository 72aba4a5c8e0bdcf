package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

//go:embed schema.sql
var sqliteSchema string

// Schema versions:
// 0 - initial tables
// 1 - status index on garnishment_ledger
const sqliteSchemaVersion = 1

const dateLayout = "2006-01-02"

// SQLiteStore is a file-backed ledger. SQLite allows a single writer, so the pool is
// limited to one connection and every Apply runs in one transaction.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and brings its schema up to date.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("ledger/sqlite: failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger/sqlite: failed to connect: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger/sqlite: failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger/sqlite: failed to apply schema: %w", err)
	}
	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrateSQLite(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("ledger/sqlite: get user_version: %w", err)
	}
	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_garnishment_ledger_status ON garnishment_ledger (employer_id, employee_id, status)`); err != nil {
			return fmt.Errorf("ledger/sqlite: migrate to v1: %w", err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return fmt.Errorf("ledger/sqlite: set user_version: %w", err)
	}
	return nil
}

// SchemaVersion returns the database's user_version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Apply(ctx context.Context, ev domain.WithholdingEvent) (ApplyResult, error) {
	if err := validateEvent(ev); err != nil {
		return ApplyResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("ledger/sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO garnishment_events
		(event_id, employer_id, employee_id, order_id, paycheck_id, pay_run_id, check_date,
		 withheld_cents, applied_to_current_cents, applied_to_arrears_cents, net_pay_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING
	`,
		ev.EventID, ev.EmployerID, ev.EmployeeID, ev.OrderID, ev.PaycheckID, ev.PayRunID,
		ev.CheckDate.Format(dateLayout),
		ev.Withheld.Cents, ev.AppliedToCurrent.Cents, ev.AppliedToArrears.Cents, ev.NetPay.Cents,
	)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("ledger/sqlite: insert event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		entry, err := s.get(ctx, tx, ev.Key())
		if err != nil && !errors.Is(err, ErrNotFound) {
			return ApplyResult{}, err
		}
		out := ApplyResult{Duplicate: true}
		if entry != nil {
			out.Entry = *entry
		}
		return out, nil
	}

	if err := upsertAggregate(ctx, tx, ev); err != nil {
		return ApplyResult{}, err
	}
	entry, err := s.get(ctx, tx, ev.Key())
	if err != nil {
		return ApplyResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return ApplyResult{}, fmt.Errorf("ledger/sqlite: commit: %w", err)
	}
	return ApplyResult{Entry: *entry}, nil
}

// upsertAggregate updates the order row, creating it when absent. A lost insert race sends
// the loop back to the update.
func upsertAggregate(ctx context.Context, tx *sql.Tx, ev domain.WithholdingEvent) error {
	checkDate := ev.CheckDate.Format(dateLayout)
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		res, err := tx.ExecContext(ctx, `
			UPDATE garnishment_ledger SET
				total_withheld_cents = total_withheld_cents + ?,
				remaining_arrears_cents = CASE
					WHEN remaining_arrears_cents IS NULL THEN NULL
					ELSE MAX(remaining_arrears_cents - ?, 0)
				END,
				last_paycheck_id = ?,
				last_pay_run_id = ?,
				last_check_date = ?,
				event_count = event_count + 1
			WHERE employer_id = ? AND employee_id = ? AND order_id = ?
		`,
			ev.Withheld.Cents, ev.AppliedToArrears.Cents, ev.PaycheckID, ev.PayRunID, checkDate,
			ev.EmployerID, ev.EmployeeID, ev.OrderID,
		)
		if err != nil {
			return fmt.Errorf("ledger/sqlite: update aggregate: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		entry := newEntry(ev)
		res, err = tx.ExecContext(ctx, `
			INSERT INTO garnishment_ledger
			(employer_id, employee_id, order_id, total_withheld_cents, initial_arrears_cents,
			 remaining_arrears_cents, status, last_paycheck_id, last_pay_run_id, last_check_date, event_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(employer_id, employee_id, order_id) DO NOTHING
		`,
			ev.EmployerID, ev.EmployeeID, ev.OrderID, entry.TotalWithheld.Cents,
			nullCents(entry.InitialArrears), nullCents(entry.RemainingArrears), string(entry.Status),
			entry.LastPaycheckID, entry.LastPayRunID, checkDate, entry.EventCount,
		)
		if err != nil {
			return fmt.Errorf("ledger/sqlite: insert aggregate: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
	}
	return ErrAggregateRace
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const sqliteSelectEntry = `
	SELECT employer_id, employee_id, order_id, total_withheld_cents, initial_arrears_cents,
	       remaining_arrears_cents, status, last_paycheck_id, last_pay_run_id, last_check_date, event_count
	FROM garnishment_ledger`

func (s *SQLiteStore) get(ctx context.Context, q queryer, key domain.LedgerKey) (*domain.LedgerEntry, error) {
	row := q.QueryRowContext(ctx, sqliteSelectEntry+` WHERE employer_id = ? AND employee_id = ? AND order_id = ?`,
		key.EmployerID, key.EmployeeID, key.OrderID)
	entry, err := scanSQLiteEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger/sqlite: get %s: %w", key, err)
	}
	return entry, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key domain.LedgerKey) (*domain.LedgerEntry, error) {
	return s.get(ctx, s.db, key)
}

func (s *SQLiteStore) MarkCompleted(ctx context.Context, key domain.LedgerKey) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE garnishment_ledger SET status = ?
		WHERE employer_id = ? AND employee_id = ? AND order_id = ?
	`, string(domain.LedgerCompleted), key.EmployerID, key.EmployeeID, key.OrderID)
	if err != nil {
		return fmt.Errorf("ledger/sqlite: mark completed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, employerID, employeeID string) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectEntry+` WHERE employer_id = ? AND employee_id = ? ORDER BY order_id`,
		employerID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("ledger/sqlite: list: %w", err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger/sqlite: scan: %w", err)
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteEntry(sc scanner) (*domain.LedgerEntry, error) {
	var (
		e                  domain.LedgerEntry
		total              int64
		initial, remaining sql.NullInt64
		status             string
		paycheck, payRun   sql.NullString
		checkDate          sql.NullString
	)
	if err := sc.Scan(&e.EmployerID, &e.EmployeeID, &e.OrderID, &total, &initial, &remaining,
		&status, &paycheck, &payRun, &checkDate, &e.EventCount); err != nil {
		return nil, err
	}
	e.TotalWithheld = money.New(total)
	e.InitialArrears = centsPtr(initial)
	e.RemainingArrears = centsPtr(remaining)
	e.Status = domain.LedgerStatus(status)
	e.LastPaycheckID = paycheck.String
	e.LastPayRunID = payRun.String
	if checkDate.Valid {
		d, err := time.Parse(dateLayout, checkDate.String)
		if err != nil {
			return nil, fmt.Errorf("parse check date %q: %w", checkDate.String, err)
		}
		e.LastCheckDate = &d
	}
	return &e, nil
}

func nullCents(m *money.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Cents, Valid: true}
}

func centsPtr(v sql.NullInt64) *money.Money {
	if !v.Valid {
		return nil
	}
	return money.Ptr(money.New(v.Int64))
}
