/*
Package postgres provides a PostgreSQL-backed implementation of leave.Store
on top of pgx.

PURPOSE:
  The multi-node deployment store. Same tables and semantics as the SQLite
  store; concurrency is delegated to PostgreSQL instead of a process mutex.

ENCODING:
  Dates:    DATE, bound as "YYYY-MM-DD" text with an explicit ::date cast
            and read back through to_char, so no time zone ever applies
  Decimals: NUMERIC, bound and read as text (shopspring/decimal on our side)
  Sets:     TEXT[]

CONCURRENCY:
  UpsertBalance takes a transaction-scoped advisory lock on the
  (employee, leave type) pair before reading the row FOR UPDATE, so two
  concurrent first-time upserts cannot both insert.

ERRORS:
  Foreign key violations (23503) become the matching *NotFound sentinel,
  unique violations (23505) become generic.ErrDuplicateRecord.

SEE ALSO:
  - transaction.go: TransactionManager and Queryer
  - schema.go: Migrate
  - store/sqlite/sqlite.go: The single-file equivalent
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// Store implements leave.Store using PostgreSQL.
type Store struct {
	db DB
	tx *TransactionManager
}

var (
	_ leave.Store      = (*Store)(nil)
	_ leave.Transactor = (*Store)(nil)
)

func New(db DB) *Store {
	return &Store{db: db, tx: NewTransactionManager(db)}
}

// WithinTx runs fn in one read-write transaction; store calls made with fn's
// context use it.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.tx.WithinReadWrite(ctx, fn)
}

func (s *Store) q(ctx context.Context) Queryer {
	return QueryerFromContext(ctx, s.db)
}

// translate maps constraint violations onto domain sentinels.
func translate(err error, missing error, id any) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %v", missing, id)
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", generic.ErrDuplicateRecord, pgErr.ConstraintName)
		}
	}
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeSelect = `SELECT id, name, gender, marital_status, job_type, branch_id, department_id,
	to_char(joining_date, 'YYYY-MM-DD') FROM employees`

func (s *Store) GetEmployee(ctx context.Context, id generic.EntityID) (*leave.Employee, error) {
	emp, err := scanEmployee(s.q(ctx).QueryRow(ctx, employeeSelect+` WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrEntityNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get employee: %w", err)
	}
	return emp, nil
}

func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	var joining *string
	if emp.JoiningDate != nil {
		d := emp.JoiningDate.String()
		joining = &d
	}
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO employees (id, name, gender, marital_status, job_type, branch_id, department_id, joining_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			gender = EXCLUDED.gender,
			marital_status = EXCLUDED.marital_status,
			job_type = EXCLUDED.job_type,
			branch_id = EXCLUDED.branch_id,
			department_id = EXCLUDED.department_id,
			joining_date = EXCLUDED.joining_date`,
		string(emp.ID), emp.Name, emp.Gender, emp.MaritalStatus, emp.JobType,
		emp.BranchID, emp.DepartmentID, joining)
	if err != nil {
		return fmt.Errorf("postgres: save employee: %w", err)
	}
	return nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	rows, err := s.q(ctx).Query(ctx, employeeSelect+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list employees: %w", err)
	}
	return collect(rows, scanEmployee)
}

// =============================================================================
// FISCAL YEARS
// =============================================================================

const fiscalYearSelect = `SELECT id, name, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'), is_current FROM fiscal_years`

func (s *Store) GetFiscalYear(ctx context.Context, id generic.FiscalYearID) (*leave.FiscalYear, error) {
	fy, err := scanFiscalYear(s.q(ctx).QueryRow(ctx, fiscalYearSelect+` WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrFiscalYearNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get fiscal year: %w", err)
	}
	return fy, nil
}

func (s *Store) CurrentFiscalYear(ctx context.Context) (*leave.FiscalYear, error) {
	fy, err := scanFiscalYear(s.q(ctx).QueryRow(ctx, fiscalYearSelect+` WHERE is_current LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: none is current", generic.ErrFiscalYearNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: current fiscal year: %w", err)
	}
	return fy, nil
}

func (s *Store) ListFiscalYears(ctx context.Context) ([]leave.FiscalYear, error) {
	rows, err := s.q(ctx).Query(ctx, fiscalYearSelect+` ORDER BY start_date`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fiscal years: %w", err)
	}
	return collect(rows, scanFiscalYear)
}

// SaveFiscalYear clears the other current flags in the same transaction; the
// partial unique index on is_current backs this up.
func (s *Store) SaveFiscalYear(ctx context.Context, fy leave.FiscalYear) error {
	if err := fy.Period().Validate(); err != nil {
		return err
	}
	return s.tx.WithinReadWrite(ctx, func(ctx context.Context) error {
		q := s.q(ctx)
		if fy.IsCurrent {
			if _, err := q.Exec(ctx, `UPDATE fiscal_years SET is_current = FALSE WHERE id <> $1`, string(fy.ID)); err != nil {
				return fmt.Errorf("postgres: clear current fiscal year: %w", err)
			}
		}
		_, err := q.Exec(ctx, `
			INSERT INTO fiscal_years (id, name, start_date, end_date, is_current)
			VALUES ($1, $2, $3::date, $4::date, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				start_date = EXCLUDED.start_date,
				end_date = EXCLUDED.end_date,
				is_current = EXCLUDED.is_current`,
			string(fy.ID), fy.Name, fy.Start.String(), fy.End.String(), fy.IsCurrent)
		if err != nil {
			return fmt.Errorf("postgres: save fiscal year: %w", translate(err, generic.ErrFiscalYearNotFound, fy.ID))
		}
		return nil
	})
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

const leaveTypeSelect = `SELECT id, code, name, fiscal_year_id, gender, marital_status, job_type,
	branches, departments, number_of_days::text, max_per_day_leave, pre_inform_days, status, description
	FROM leave_types`

func (s *Store) GetLeaveType(ctx context.Context, id generic.PolicyID) (*leave.LeaveType, error) {
	lt, err := scanLeaveType(s.q(ctx).QueryRow(ctx, leaveTypeSelect+` WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrPolicyNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get leave type: %w", err)
	}
	return lt, nil
}

func (s *Store) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	rows, err := s.q(ctx).Query(ctx, leaveTypeSelect+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list leave types: %w", err)
	}
	return collect(rows, scanLeaveType)
}

func (s *Store) SaveLeaveType(ctx context.Context, lt leave.LeaveType) error {
	status := lt.Status
	if status == "" {
		status = leave.LeaveTypeActive
	}
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO leave_types (id, code, name, fiscal_year_id, gender, marital_status, job_type,
			branches, departments, number_of_days, max_per_day_leave, pre_inform_days, status, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code,
			name = EXCLUDED.name,
			fiscal_year_id = EXCLUDED.fiscal_year_id,
			gender = EXCLUDED.gender,
			marital_status = EXCLUDED.marital_status,
			job_type = EXCLUDED.job_type,
			branches = EXCLUDED.branches,
			departments = EXCLUDED.departments,
			number_of_days = EXCLUDED.number_of_days,
			max_per_day_leave = EXCLUDED.max_per_day_leave,
			pre_inform_days = EXCLUDED.pre_inform_days,
			status = EXCLUDED.status,
			description = EXCLUDED.description`,
		string(lt.ID), lt.Code, lt.Name, string(lt.FiscalYearID), lt.Gender, lt.MaritalStatus, lt.JobType,
		textArray(lt.Branches), textArray(lt.Departments), lt.NumberOfDays.String(),
		lt.MaxPerDayLeave, lt.PreInformDays, string(status), lt.Description)
	if err != nil {
		return fmt.Errorf("postgres: save leave type: %w", translate(err, generic.ErrFiscalYearNotFound, lt.FiscalYearID))
	}
	return nil
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const requestSelect = `SELECT r.id, r.employee_id, r.leave_type_id, COALESCE(t.code, ''),
	to_char(r.start_date, 'YYYY-MM-DD'), to_char(r.end_date, 'YYYY-MM-DD'),
	r.no_of_days, r.reason, r.status, r.created_at, r.updated_at
	FROM leave_requests r LEFT JOIN leave_types t ON t.id = r.leave_type_id`

func (s *Store) GetRequest(ctx context.Context, id generic.RequestID) (*leave.Request, error) {
	req, err := scanRequest(s.q(ctx).QueryRow(ctx, requestSelect+` WHERE r.id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrRequestNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get leave request: %w", err)
	}
	return req, nil
}

func (s *Store) ListRequests(ctx context.Context, employeeID generic.EntityID) ([]leave.Request, error) {
	rows, err := s.q(ctx).Query(ctx, requestSelect+` WHERE r.employee_id = $1 ORDER BY r.start_date, r.id`, string(employeeID))
	if err != nil {
		return nil, fmt.Errorf("postgres: list leave requests: %w", err)
	}
	return collect(rows, scanRequest)
}

func (s *Store) ListOverlappingRequests(ctx context.Context, employeeID generic.EntityID, period generic.Period, excludeID generic.RequestID) ([]leave.Request, error) {
	rows, err := s.q(ctx).Query(ctx, requestSelect+`
		WHERE r.employee_id = $1
		AND r.start_date <= $2::date AND r.end_date >= $3::date
		AND r.status <> ALL($4) AND r.id <> $5
		ORDER BY r.start_date, r.id`,
		string(employeeID), period.End.String(), period.Start.String(),
		[]string{string(leave.StatusDeclined), string(leave.StatusRejected)}, string(excludeID))
	if err != nil {
		return nil, fmt.Errorf("postgres: list overlapping requests: %w", err)
	}
	return collect(rows, scanRequest)
}

func (s *Store) SaveRequest(ctx context.Context, req leave.Request) error {
	if err := req.Period().Validate(); err != nil {
		return err
	}
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO leave_requests (id, employee_id, leave_type_id, start_date, end_date,
			no_of_days, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4::date, $5::date, $6, $7, $8, COALESCE($9, now()), COALESCE($10, now()))
		ON CONFLICT (id) DO UPDATE SET
			leave_type_id = EXCLUDED.leave_type_id,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			no_of_days = EXCLUDED.no_of_days,
			reason = EXCLUDED.reason,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		string(req.ID), string(req.EmployeeID), string(req.LeaveTypeID), req.Start.String(), req.End.String(),
		req.NoOfDays, req.Reason, string(req.Status), nullTime(req.CreatedAt), nullTime(req.UpdatedAt))
	if err != nil {
		return fmt.Errorf("postgres: save leave request: %w", translate(err, generic.ErrPolicyNotFound, req.LeaveTypeID))
	}
	return nil
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id generic.RequestID, status leave.Status) error {
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE leave_requests SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), string(id))
	if err != nil {
		return fmt.Errorf("postgres: update request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", generic.ErrRequestNotFound, id)
	}
	return nil
}

// =============================================================================
// BALANCES
// =============================================================================

const balanceSelect = `SELECT employee_id, leave_type_id, total_leave::text, leave_taken::text, leave_remaining::text, is_active FROM leave_balances`

func (s *Store) GetBalance(ctx context.Context, employeeID generic.EntityID, leaveTypeID generic.PolicyID) (*leave.Balance, error) {
	bal, err := scanBalance(s.q(ctx).QueryRow(ctx,
		balanceSelect+` WHERE employee_id = $1 AND leave_type_id = $2`, string(employeeID), string(leaveTypeID)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", generic.ErrBalanceNotFound, employeeID, leaveTypeID)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get balance: %w", err)
	}
	return bal, nil
}

func (s *Store) ListBalances(ctx context.Context, employeeID generic.EntityID) ([]leave.Balance, error) {
	rows, err := s.q(ctx).Query(ctx, balanceSelect+` WHERE employee_id = $1 ORDER BY leave_type_id`, string(employeeID))
	if err != nil {
		return nil, fmt.Errorf("postgres: list balances: %w", err)
	}
	return collect(rows, scanBalance)
}

func (s *Store) UpsertBalance(ctx context.Context, employeeID generic.EntityID, leaveTypeID generic.PolicyID, fn func(*leave.Balance) leave.Balance) (leave.Balance, error) {
	var next leave.Balance
	err := s.tx.WithinReadWrite(ctx, func(ctx context.Context) error {
		q := s.q(ctx)
		key := string(employeeID) + "/" + string(leaveTypeID)
		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("postgres: lock balance: %w", err)
		}

		current, err := scanBalance(q.QueryRow(ctx,
			balanceSelect+` WHERE employee_id = $1 AND leave_type_id = $2 FOR UPDATE`,
			string(employeeID), string(leaveTypeID)))
		if errors.Is(err, pgx.ErrNoRows) {
			current = nil
		} else if err != nil {
			return fmt.Errorf("postgres: read balance: %w", err)
		}

		next = fn(current)
		next.EmployeeID = employeeID
		next.LeaveTypeID = leaveTypeID

		_, err = q.Exec(ctx, `
			INSERT INTO leave_balances (employee_id, leave_type_id, total_leave, leave_taken, leave_remaining, is_active)
			VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6)
			ON CONFLICT (employee_id, leave_type_id) DO UPDATE SET
				total_leave = EXCLUDED.total_leave,
				leave_taken = EXCLUDED.leave_taken,
				leave_remaining = EXCLUDED.leave_remaining,
				is_active = EXCLUDED.is_active`,
			string(employeeID), string(leaveTypeID), next.TotalLeave.Value.String(),
			next.LeaveTaken.Value.String(), next.LeaveRemaining.Value.String(), next.IsActive)
		if err != nil {
			return fmt.Errorf("postgres: upsert balance: %w", translate(err, generic.ErrEntityNotFound, employeeID))
		}
		return nil
	})
	if err != nil {
		return leave.Balance{}, err
	}
	return next, nil
}

// =============================================================================
// SCANNING
// =============================================================================

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func scanEmployee(row pgx.Row) (*leave.Employee, error) {
	var (
		emp     leave.Employee
		joining pgtype.Text
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

func scanFiscalYear(row pgx.Row) (*leave.FiscalYear, error) {
	var (
		fy         leave.FiscalYear
		start, end string
	)
	if err := row.Scan(&fy.ID, &fy.Name, &start, &end, &fy.IsCurrent); err != nil {
		return nil, err
	}
	var err error
	if fy.Start, err = generic.ParseTimePoint(start); err != nil {
		return nil, err
	}
	if fy.End, err = generic.ParseTimePoint(end); err != nil {
		return nil, err
	}
	return &fy, nil
}

func scanLeaveType(row pgx.Row) (*leave.LeaveType, error) {
	var (
		lt                    leave.LeaveType
		branches, departments []string
		days, status          string
		description           pgtype.Text
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
	if len(branches) > 0 {
		lt.Branches = branches
	}
	if len(departments) > 0 {
		lt.Departments = departments
	}
	lt.Status = leave.LeaveTypeStatus(status)
	lt.Description = description.String
	return &lt, nil
}

func scanRequest(row pgx.Row) (*leave.Request, error) {
	var (
		req        leave.Request
		start, end string
		status     string
		reason     pgtype.Text
	)
	if err := row.Scan(&req.ID, &req.EmployeeID, &req.LeaveTypeID, &req.LeaveTypeCode, &start, &end,
		&req.NoOfDays, &reason, &status, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if req.Start, err = generic.ParseTimePoint(start); err != nil {
		return nil, err
	}
	if req.End, err = generic.ParseTimePoint(end); err != nil {
		return nil, err
	}
	req.Reason = reason.String
	req.Status = leave.Status(status)
	return &req, nil
}

func scanBalance(row pgx.Row) (*leave.Balance, error) {
	var (
		bal                     leave.Balance
		total, taken, remaining string
	)
	if err := row.Scan(&bal.EmployeeID, &bal.LeaveTypeID, &total, &taken, &remaining, &bal.IsActive); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		raw string
		dst *generic.Amount
	}{{total, &bal.TotalLeave}, {taken, &bal.LeaveTaken}, {remaining, &bal.LeaveRemaining}} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, fmt.Errorf("balance %s/%s: %w", bal.EmployeeID, bal.LeaveTypeID, err)
		}
		*f.dst = generic.Days(d)
	}
	return &bal, nil
}

// textArray keeps an unrestricted set as '{}' rather than NULL.
func textArray(set []string) []string {
	if set == nil {
		return []string{}
	}
	return set
}

// nullTime lets the database default an unset timestamp to now().
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
