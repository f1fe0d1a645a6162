/*
Package sqlite provides a SQLite-backed implementation of leave.Store.

PURPOSE:
  Persists fiscal years, leave types, employees, leave requests and
  balances in a single SQLite file. It is the default store for a
  single-node deployment.

KEY TABLES:
  fiscal_years:    One row per leave year; at most one is_current = 1
  leave_types:     Policies; branch/department sets as JSON arrays
  employees:       Eligibility attributes and joining date
  leave_requests:  Requests with inclusive start/end dates
  leave_balances:  One row per (employee, leave type)

ENCODING:
  Dates:    TEXT "YYYY-MM-DD" (lexicographic order = date order)
  Decimals: TEXT, parsed with shopspring/decimal (no float rounding)
  Sets:     TEXT JSON array

INDEXES:
  - idx_leave_requests_employee_dates: The overlap query (hot path)
  - idx_leave_types_fiscal_year:       Leave types per year

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, which is
  also what keeps a ":memory:" database shared across calls. UpsertBalance
  runs its read-modify-write inside one SQL transaction under the write lock.
  WithinTx holds the write lock for the whole callback and carries its
  *sql.Tx in the context, so nested store calls neither relock nor reach
  for the (only) pooled connection.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - leave/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation
  - store/postgres/postgres.go: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ leave.Store      = (*Store)(nil)
	_ leave.Transactor = (*Store)(nil)
)

// queryer is what *sql.DB and *sql.Tx share.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithinTx runs fn inside one SQL transaction under the write lock. Store
// calls made with fn's context join the transaction; an error from fn rolls
// every one of them back.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, &storeTx{owner: s, tx: tx})); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	return tx.Commit()
}

type storeTx struct {
	owner *Store
	tx    *sql.Tx
}

func (s *Store) txFrom(ctx context.Context) *sql.Tx {
	if st, ok := ctx.Value(txKey{}).(*storeTx); ok && st.owner == s {
		return st.tx
	}
	return nil
}

// conn returns the transaction carried by ctx, or the pool. With a single
// connection, calling the pool inside WithinTx would block forever.
func (s *Store) conn(ctx context.Context) queryer {
	if tx := s.txFrom(ctx); tx != nil {
		return tx
	}
	return s.db
}

// begin starts a transaction, or joins the one WithinTx opened; commit and
// rollback are then left to WithinTx.
func (s *Store) begin(ctx context.Context) (queryer, func() error, func(), error) {
	if tx := s.txFrom(ctx); tx != nil {
		return tx, func() error { return nil }, func() {}, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return tx, tx.Commit, func() { _ = tx.Rollback() }, nil
}

func (s *Store) lock(ctx context.Context) func() {
	if s.txFrom(ctx) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock(ctx context.Context) func() {
	if s.txFrom(ctx) != nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fiscal_years (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		is_current INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		fiscal_year_id TEXT NOT NULL REFERENCES fiscal_years(id),
		gender TEXT NOT NULL DEFAULT 'A',
		marital_status TEXT NOT NULL DEFAULT 'A',
		job_type TEXT NOT NULL DEFAULT 'all',
		branches_json TEXT NOT NULL DEFAULT '[]',
		departments_json TEXT NOT NULL DEFAULT '[]',
		number_of_days TEXT NOT NULL,
		max_per_day_leave INTEGER NOT NULL DEFAULT 0,
		pre_inform_days INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		description TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_leave_types_fiscal_year
		ON leave_types(fiscal_year_id);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		gender TEXT NOT NULL DEFAULT '',
		marital_status TEXT NOT NULL DEFAULT '',
		job_type TEXT NOT NULL DEFAULT '',
		branch_id TEXT NOT NULL DEFAULT '',
		department_id TEXT NOT NULL DEFAULT '',
		joining_date TEXT
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL REFERENCES leave_types(id),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		no_of_days INTEGER NOT NULL,
		reason TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Overlap lookups filter by employee and compare both ends
	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee_dates
		ON leave_requests(employee_id, start_date, end_date);

	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		total_leave TEXT NOT NULL,
		leave_taken TEXT NOT NULL,
		leave_remaining TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (employee_id, leave_type_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, name, gender, marital_status, job_type, branch_id, department_id, joining_date`

func (s *Store) GetEmployee(ctx context.Context, id generic.EntityID) (*leave.Employee, error) {
	defer s.rlock(ctx)()

	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrEntityNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return emp, nil
}

func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	defer s.lock(ctx)()

	var joining sql.NullString
	if emp.JoiningDate != nil {
		joining = sql.NullString{String: emp.JoiningDate.String(), Valid: true}
	}
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			gender = excluded.gender,
			marital_status = excluded.marital_status,
			job_type = excluded.job_type,
			branch_id = excluded.branch_id,
			department_id = excluded.department_id,
			joining_date = excluded.joining_date
	`, emp.ID, emp.Name, emp.Gender, emp.MaritalStatus, emp.JobType, emp.BranchID, emp.DepartmentID, joining)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	defer s.rlock(ctx)()

	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *emp)
	}
	return out, rows.Err()
}

// =============================================================================
// FISCAL YEARS
// =============================================================================

const fiscalYearColumns = `id, name, start_date, end_date, is_current`

func (s *Store) GetFiscalYear(ctx context.Context, id generic.FiscalYearID) (*leave.FiscalYear, error) {
	defer s.rlock(ctx)()

	fy, err := scanFiscalYear(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+fiscalYearColumns+` FROM fiscal_years WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrFiscalYearNotFound, id)
	}
	return fy, err
}

func (s *Store) CurrentFiscalYear(ctx context.Context) (*leave.FiscalYear, error) {
	defer s.rlock(ctx)()

	fy, err := scanFiscalYear(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+fiscalYearColumns+` FROM fiscal_years WHERE is_current = 1 LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: none is current", generic.ErrFiscalYearNotFound)
	}
	return fy, err
}

func (s *Store) ListFiscalYears(ctx context.Context) ([]leave.FiscalYear, error) {
	defer s.rlock(ctx)()

	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT `+fiscalYearColumns+` FROM fiscal_years ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.FiscalYear
	for rows.Next() {
		fy, err := scanFiscalYear(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *fy)
	}
	return out, rows.Err()
}

func (s *Store) SaveFiscalYear(ctx context.Context, fy leave.FiscalYear) error {
	if err := fy.Period().Validate(); err != nil {
		return err
	}

	defer s.lock(ctx)()

	tx, commit, rollback, err := s.begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback()

	if fy.IsCurrent {
		if _, err := tx.ExecContext(ctx, `UPDATE fiscal_years SET is_current = 0 WHERE id <> ?`, fy.ID); err != nil {
			return fmt.Errorf("failed to clear current fiscal year: %w", err)
		}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO fiscal_years (`+fiscalYearColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			is_current = excluded.is_current
	`, fy.ID, fy.Name, fy.Start.String(), fy.End.String(), boolToInt(fy.IsCurrent))
	if err != nil {
		return fmt.Errorf("failed to save fiscal year: %w", err)
	}
	return commit()
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

const leaveTypeColumns = `id, code, name, fiscal_year_id, gender, marital_status, job_type,
	branches_json, departments_json, number_of_days, max_per_day_leave, pre_inform_days, status, description`

func (s *Store) GetLeaveType(ctx context.Context, id generic.PolicyID) (*leave.LeaveType, error) {
	defer s.rlock(ctx)()

	lt, err := scanLeaveType(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+leaveTypeColumns+` FROM leave_types WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrPolicyNotFound, id)
	}
	return lt, err
}

func (s *Store) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	defer s.rlock(ctx)()

	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT `+leaveTypeColumns+` FROM leave_types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.LeaveType
	for rows.Next() {
		lt, err := scanLeaveType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *lt)
	}
	return out, rows.Err()
}

func (s *Store) SaveLeaveType(ctx context.Context, lt leave.LeaveType) error {
	defer s.lock(ctx)()

	var exists int
	err := s.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM fiscal_years WHERE id = ?`, lt.FiscalYearID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", generic.ErrFiscalYearNotFound, lt.FiscalYearID)
	}

	branches, err := marshalSet(lt.Branches)
	if err != nil {
		return err
	}
	departments, err := marshalSet(lt.Departments)
	if err != nil {
		return err
	}
	status := lt.Status
	if status == "" {
		status = leave.LeaveTypeActive
	}

	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO leave_types (`+leaveTypeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			fiscal_year_id = excluded.fiscal_year_id,
			gender = excluded.gender,
			marital_status = excluded.marital_status,
			job_type = excluded.job_type,
			branches_json = excluded.branches_json,
			departments_json = excluded.departments_json,
			number_of_days = excluded.number_of_days,
			max_per_day_leave = excluded.max_per_day_leave,
			pre_inform_days = excluded.pre_inform_days,
			status = excluded.status,
			description = excluded.description
	`, lt.ID, lt.Code, lt.Name, lt.FiscalYearID, lt.Gender, lt.MaritalStatus, lt.JobType,
		branches, departments, lt.NumberOfDays.String(), lt.MaxPerDayLeave, lt.PreInformDays,
		string(status), lt.Description)
	if err != nil {
		return fmt.Errorf("failed to save leave type: %w", err)
	}
	return nil
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// requestSelect joins the leave type code onto every request.
const requestSelect = `
	SELECT r.id, r.employee_id, r.leave_type_id, COALESCE(t.code, ''), r.start_date, r.end_date,
		r.no_of_days, COALESCE(r.reason, ''), r.status, r.created_at, r.updated_at
	FROM leave_requests r
	LEFT JOIN leave_types t ON t.id = r.leave_type_id`

func (s *Store) GetRequest(ctx context.Context, id generic.RequestID) (*leave.Request, error) {
	defer s.rlock(ctx)()

	req, err := scanRequest(s.conn(ctx).QueryRowContext(ctx, requestSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrRequestNotFound, id)
	}
	return req, err
}

func (s *Store) ListRequests(ctx context.Context, employeeID generic.EntityID) ([]leave.Request, error) {
	defer s.rlock(ctx)()

	return s.queryRequests(ctx, requestSelect+` WHERE r.employee_id = ? ORDER BY r.start_date, r.id`, employeeID)
}

func (s *Store) ListOverlappingRequests(ctx context.Context, employeeID generic.EntityID, period generic.Period, excludeID generic.RequestID) ([]leave.Request, error) {
	defer s.rlock(ctx)()

	return s.queryRequests(ctx, requestSelect+`
		WHERE r.employee_id = ?
		  AND r.start_date <= ?
		  AND r.end_date >= ?
		  AND r.status NOT IN (?, ?)
		  AND r.id <> ?
		ORDER BY r.start_date, r.id`,
		employeeID, period.End.String(), period.Start.String(),
		string(leave.StatusDeclined), string(leave.StatusRejected), excludeID)
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]leave.Request, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	var out []leave.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func (s *Store) SaveRequest(ctx context.Context, req leave.Request) error {
	if err := req.Period().Validate(); err != nil {
		return err
	}

	defer s.lock(ctx)()

	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = now
	}

	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO leave_requests (id, employee_id, leave_type_id, start_date, end_date,
			no_of_days, reason, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			leave_type_id = excluded.leave_type_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			no_of_days = excluded.no_of_days,
			reason = excluded.reason,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, req.ID, req.EmployeeID, req.LeaveTypeID, req.Start.String(), req.End.String(),
		req.NoOfDays, req.Reason, string(req.Status),
		req.CreatedAt.Format(time.RFC3339), req.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save leave request: %w", err)
	}
	return nil
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id generic.RequestID, status leave.Status) error {
	defer s.lock(ctx)()

	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE leave_requests SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", generic.ErrRequestNotFound, id)
	}
	return nil
}

// =============================================================================
// BALANCES
// =============================================================================

const balanceColumns = `employee_id, leave_type_id, total_leave, leave_taken, leave_remaining, is_active`

func (s *Store) GetBalance(ctx context.Context, employeeID generic.EntityID, leaveTypeID generic.PolicyID) (*leave.Balance, error) {
	defer s.rlock(ctx)()

	bal, err := scanBalance(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+balanceColumns+` FROM leave_balances WHERE employee_id = ? AND leave_type_id = ?`,
		employeeID, leaveTypeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", generic.ErrBalanceNotFound, employeeID, leaveTypeID)
	}
	return bal, err
}

func (s *Store) ListBalances(ctx context.Context, employeeID generic.EntityID) ([]leave.Balance, error) {
	defer s.rlock(ctx)()

	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+balanceColumns+` FROM leave_balances WHERE employee_id = ? ORDER BY leave_type_id`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.Balance
	for rows.Next() {
		bal, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *bal)
	}
	return out, rows.Err()
}

// UpsertBalance reads, applies fn and writes inside one transaction.
func (s *Store) UpsertBalance(ctx context.Context, employeeID generic.EntityID, leaveTypeID generic.PolicyID, fn func(*leave.Balance) leave.Balance) (leave.Balance, error) {
	defer s.lock(ctx)()

	tx, commit, rollback, err := s.begin(ctx)
	if err != nil {
		return leave.Balance{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback()

	current, err := scanBalance(tx.QueryRowContext(ctx,
		`SELECT `+balanceColumns+` FROM leave_balances WHERE employee_id = ? AND leave_type_id = ?`,
		employeeID, leaveTypeID))
	if errors.Is(err, sql.ErrNoRows) {
		current = nil
	} else if err != nil {
		return leave.Balance{}, err
	}

	next := fn(current)
	next.EmployeeID = employeeID
	next.LeaveTypeID = leaveTypeID

	_, err = tx.ExecContext(ctx, `
		INSERT INTO leave_balances (`+balanceColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, leave_type_id) DO UPDATE SET
			total_leave = excluded.total_leave,
			leave_taken = excluded.leave_taken,
			leave_remaining = excluded.leave_remaining,
			is_active = excluded.is_active
	`, employeeID, leaveTypeID, next.TotalLeave.Value.String(), next.LeaveTaken.Value.String(),
		next.LeaveRemaining.Value.String(), boolToInt(next.IsActive))
	if err != nil {
		return leave.Balance{}, fmt.Errorf("failed to upsert balance: %w", err)
	}
	if err := commit(); err != nil {
		return leave.Balance{}, err
	}
	return next, nil
}

// =============================================================================
// SCANNING
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (*leave.Employee, error) {
	var (
		emp     leave.Employee
		joining sql.NullString
	)
	if err := row.Scan(&emp.ID, &emp.Name, &emp.Gender, &emp.MaritalStatus, &emp.JobType,
		&emp.BranchID, &emp.DepartmentID, &joining); err != nil {
		return nil, err
	}
	if joining.Valid && joining.String != "" {
		tp, err := generic.ParseTimePoint(joining.String)
		if err != nil {
			return nil, fmt.Errorf("employee %s joining date: %w", emp.ID, err)
		}
		emp.JoiningDate = &tp
	}
	return &emp, nil
}

func scanFiscalYear(row scanner) (*leave.FiscalYear, error) {
	var (
		fy         leave.FiscalYear
		start, end string
		current    int
	)
	if err := row.Scan(&fy.ID, &fy.Name, &start, &end, &current); err != nil {
		return nil, err
	}
	var err error
	if fy.Start, err = generic.ParseTimePoint(start); err != nil {
		return nil, err
	}
	if fy.End, err = generic.ParseTimePoint(end); err != nil {
		return nil, err
	}
	fy.IsCurrent = current != 0
	return &fy, nil
}

func scanLeaveType(row scanner) (*leave.LeaveType, error) {
	var (
		lt                    leave.LeaveType
		branches, departments string
		days, status          string
		description           sql.NullString
	)
	if err := row.Scan(&lt.ID, &lt.Code, &lt.Name, &lt.FiscalYearID, &lt.Gender, &lt.MaritalStatus,
		&lt.JobType, &branches, &departments, &days, &lt.MaxPerDayLeave, &lt.PreInformDays,
		&status, &description); err != nil {
		return nil, err
	}
	var err error
	if lt.NumberOfDays, err = decimal.NewFromString(days); err != nil {
		return nil, fmt.Errorf("leave type %s number_of_days: %w", lt.ID, err)
	}
	if lt.Branches, err = unmarshalSet(branches); err != nil {
		return nil, err
	}
	if lt.Departments, err = unmarshalSet(departments); err != nil {
		return nil, err
	}
	lt.Status = leave.LeaveTypeStatus(status)
	lt.Description = description.String
	return &lt, nil
}

func scanRequest(row scanner) (*leave.Request, error) {
	var (
		req                  leave.Request
		start, end           string
		status               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&req.ID, &req.EmployeeID, &req.LeaveTypeID, &req.LeaveTypeCode, &start, &end,
		&req.NoOfDays, &req.Reason, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if req.Start, err = generic.ParseTimePoint(start); err != nil {
		return nil, err
	}
	if req.End, err = generic.ParseTimePoint(end); err != nil {
		return nil, err
	}
	req.Status = leave.Status(status)
	req.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	req.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &req, nil
}

func scanBalance(row scanner) (*leave.Balance, error) {
	var (
		bal                     leave.Balance
		total, taken, remaining string
		active                  int
	)
	if err := row.Scan(&bal.EmployeeID, &bal.LeaveTypeID, &total, &taken, &remaining, &active); err != nil {
		return nil, err
	}
	var err error
	if bal.TotalLeave, err = parseDays(total); err != nil {
		return nil, err
	}
	if bal.LeaveTaken, err = parseDays(taken); err != nil {
		return nil, err
	}
	if bal.LeaveRemaining, err = parseDays(remaining); err != nil {
		return nil, err
	}
	bal.IsActive = active != 0
	return &bal, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDays(value string) (generic.Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return generic.Amount{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return generic.Days(d), nil
}

func marshalSet(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalSet(raw string) ([]string, error) {
	var out []string
	if raw == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("invalid set %q: %w", raw, err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
