package postgres

import (
	"context"
	"fmt"
)

// schema is idempotent; Migrate runs it on every start.
const schema = `
CREATE TABLE IF NOT EXISTS fiscal_years (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	is_current BOOLEAN NOT NULL DEFAULT FALSE,
	CHECK (end_date >= start_date)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_fiscal_years_single_current
	ON fiscal_years (is_current) WHERE is_current;

CREATE TABLE IF NOT EXISTS leave_types (
	id TEXT PRIMARY KEY,
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	fiscal_year_id TEXT NOT NULL REFERENCES fiscal_years(id),
	gender TEXT NOT NULL DEFAULT 'A',
	marital_status TEXT NOT NULL DEFAULT 'A',
	job_type TEXT NOT NULL DEFAULT 'all',
	branches TEXT[] NOT NULL DEFAULT '{}',
	departments TEXT[] NOT NULL DEFAULT '{}',
	number_of_days NUMERIC(8, 2) NOT NULL CHECK (number_of_days >= 0),
	max_per_day_leave INTEGER NOT NULL DEFAULT 0,
	pre_inform_days INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'active',
	description TEXT
);

CREATE INDEX IF NOT EXISTS idx_leave_types_fiscal_year ON leave_types (fiscal_year_id);

CREATE TABLE IF NOT EXISTS employees (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	gender TEXT NOT NULL DEFAULT '',
	marital_status TEXT NOT NULL DEFAULT '',
	job_type TEXT NOT NULL DEFAULT '',
	branch_id TEXT NOT NULL DEFAULT '',
	department_id TEXT NOT NULL DEFAULT '',
	joining_date DATE
);

CREATE TABLE IF NOT EXISTS leave_requests (
	id TEXT PRIMARY KEY,
	employee_id TEXT NOT NULL,
	leave_type_id TEXT NOT NULL REFERENCES leave_types(id),
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	no_of_days INTEGER NOT NULL,
	reason TEXT,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (end_date >= start_date)
);

CREATE INDEX IF NOT EXISTS idx_leave_requests_employee_dates
	ON leave_requests (employee_id, start_date, end_date);

CREATE TABLE IF NOT EXISTS leave_balances (
	employee_id TEXT NOT NULL REFERENCES employees(id),
	leave_type_id TEXT NOT NULL REFERENCES leave_types(id),
	total_leave NUMERIC(8, 2) NOT NULL,
	leave_taken NUMERIC(8, 2) NOT NULL,
	leave_remaining NUMERIC(8, 2) NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	PRIMARY KEY (employee_id, leave_type_id)
);
`

// Migrate creates the tables and indexes when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}
