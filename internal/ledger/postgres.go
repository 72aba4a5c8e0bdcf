package ledger

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

//go:embed postgres_schema.sql
var postgresSchema string

const pgUniqueViolation = "23505"

// PostgresStore is the shared ledger for multi-process deployments. The aggregate row is
// created inside a savepoint so a concurrent creator's unique violation only unwinds the
// insert, and the update is retried against the committed row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger/postgres: ping: %w", err)
	}
	s := NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing pool. Call Migrate before first use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ledger/postgres: apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) Apply(ctx context.Context, ev domain.WithholdingEvent) (ApplyResult, error) {
	if err := validateEvent(ev); err != nil {
		return ApplyResult{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ApplyResult{}, fmt.Errorf("ledger/postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO garnishment_events
		(event_id, employer_id, employee_id, order_id, paycheck_id, pay_run_id, check_date,
		 withheld_cents, applied_to_current_cents, applied_to_arrears_cents, net_pay_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (event_id) DO NOTHING`,
		ev.EventID, ev.EmployerID, ev.EmployeeID, ev.OrderID, ev.PaycheckID, ev.PayRunID, ev.CheckDate,
		ev.Withheld.Cents, ev.AppliedToCurrent.Cents, ev.AppliedToArrears.Cents, ev.NetPay.Cents,
	)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("ledger/postgres: insert event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		entry, err := getPostgres(ctx, tx, ev.Key())
		if err != nil && !errors.Is(err, ErrNotFound) {
			return ApplyResult{}, err
		}
		out := ApplyResult{Duplicate: true}
		if entry != nil {
			out.Entry = *entry
		}
		return out, nil
	}

	if err := upsertPostgresAggregate(ctx, tx, ev); err != nil {
		return ApplyResult{}, err
	}
	entry, err := getPostgres(ctx, tx, ev.Key())
	if err != nil {
		return ApplyResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ApplyResult{}, fmt.Errorf("ledger/postgres: commit: %w", err)
	}
	return ApplyResult{Entry: *entry}, nil
}

func upsertPostgresAggregate(ctx context.Context, tx pgx.Tx, ev domain.WithholdingEvent) error {
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		tag, err := tx.Exec(ctx, `
			UPDATE garnishment_ledger SET
				total_withheld_cents = total_withheld_cents + $1,
				remaining_arrears_cents = CASE
					WHEN remaining_arrears_cents IS NULL THEN NULL
					ELSE GREATEST(remaining_arrears_cents - $2, 0)
				END,
				last_paycheck_id = $3,
				last_pay_run_id = $4,
				last_check_date = $5,
				event_count = event_count + 1
			WHERE employer_id = $6 AND employee_id = $7 AND order_id = $8`,
			ev.Withheld.Cents, ev.AppliedToArrears.Cents, ev.PaycheckID, ev.PayRunID, ev.CheckDate,
			ev.EmployerID, ev.EmployeeID, ev.OrderID,
		)
		if err != nil {
			return fmt.Errorf("ledger/postgres: update aggregate: %w", err)
		}
		if tag.RowsAffected() > 0 {
			return nil
		}

		created, err := insertPostgresAggregate(ctx, tx, ev)
		if err != nil {
			return err
		}
		if created {
			return nil
		}
	}
	return ErrAggregateRace
}

// insertPostgresAggregate reports false when another transaction created the row first.
func insertPostgresAggregate(ctx context.Context, tx pgx.Tx, ev domain.WithholdingEvent) (bool, error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ledger/postgres: savepoint: %w", err)
	}
	entry := newEntry(ev)
	_, err = sp.Exec(ctx, `
		INSERT INTO garnishment_ledger
		(employer_id, employee_id, order_id, total_withheld_cents, initial_arrears_cents,
		 remaining_arrears_cents, status, last_paycheck_id, last_pay_run_id, last_check_date, event_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		ev.EmployerID, ev.EmployeeID, ev.OrderID, entry.TotalWithheld.Cents,
		centsOrNil(entry.InitialArrears), centsOrNil(entry.RemainingArrears), string(entry.Status),
		entry.LastPaycheckID, entry.LastPayRunID, ev.CheckDate, entry.EventCount,
	)
	if err != nil {
		_ = sp.Rollback(ctx)
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("ledger/postgres: insert aggregate: %w", err)
	}
	if err := sp.Commit(ctx); err != nil {
		return false, fmt.Errorf("ledger/postgres: release savepoint: %w", err)
	}
	return true, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

const postgresSelectEntry = `
	SELECT employer_id, employee_id, order_id, total_withheld_cents, initial_arrears_cents,
	       remaining_arrears_cents, status, last_paycheck_id, last_pay_run_id, last_check_date, event_count
	FROM garnishment_ledger`

type pgQueryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getPostgres(ctx context.Context, q pgQueryer, key domain.LedgerKey) (*domain.LedgerEntry, error) {
	row := q.QueryRow(ctx, postgresSelectEntry+` WHERE employer_id = $1 AND employee_id = $2 AND order_id = $3`,
		key.EmployerID, key.EmployeeID, key.OrderID)
	entry, err := scanPostgresEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: get %s: %w", key, err)
	}
	return entry, nil
}

func (s *PostgresStore) Get(ctx context.Context, key domain.LedgerKey) (*domain.LedgerEntry, error) {
	return getPostgres(ctx, s.pool, key)
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, key domain.LedgerKey) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE garnishment_ledger SET status = $1
		WHERE employer_id = $2 AND employee_id = $3 AND order_id = $4`,
		string(domain.LedgerCompleted), key.EmployerID, key.EmployeeID, key.OrderID)
	if err != nil {
		return fmt.Errorf("ledger/postgres: mark completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, employerID, employeeID string) ([]domain.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, postgresSelectEntry+` WHERE employer_id = $1 AND employee_id = $2 ORDER BY order_id`,
		employerID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: list: %w", err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanPostgresEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger/postgres: scan: %w", err)
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

func scanPostgresEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		e                  domain.LedgerEntry
		total              int64
		initial, remaining *int64
		status             string
		paycheck, payRun   *string
		checkDate          *time.Time
	)
	if err := row.Scan(&e.EmployerID, &e.EmployeeID, &e.OrderID, &total, &initial, &remaining,
		&status, &paycheck, &payRun, &checkDate, &e.EventCount); err != nil {
		return nil, err
	}
	e.TotalWithheld = money.New(total)
	if initial != nil {
		e.InitialArrears = money.Ptr(money.New(*initial))
	}
	if remaining != nil {
		e.RemainingArrears = money.Ptr(money.New(*remaining))
	}
	e.Status = domain.LedgerStatus(status)
	if paycheck != nil {
		e.LastPaycheckID = *paycheck
	}
	if payRun != nil {
		e.LastPayRunID = *payRun
	}
	e.LastCheckDate = checkDate
	return &e, nil
}

func centsOrNil(m *money.Money) *int64 {
	if m == nil {
		return nil
	}
	c := m.Cents
	return &c
}
