/*
store.go - Persistence interfaces for the leave domain

PURPOSE:
  Defines what the validator, the conflict detector and the entitlement
  service need from the record store. The core never talks SQL; it talks
  to these interfaces.

KEY INTERFACES:
  EmployeeStore:  Employee profiles (eligibility attributes, joining date)
  PolicyStore:    Fiscal years and leave types
  RequestStore:   Leave requests, including the overlap query
  BalanceStore:   Per-employee balances with atomic upsert
  Store:          All of the above

OVERLAP QUERY:
  ListOverlappingRequests returns every request of one employee whose
  inclusive interval intersects the given period and whose status still
  blocks days (not Declined, not Rejected). The request being edited is
  excluded by id. LeaveTypeCode is filled on every returned request.

ATOMIC UPSERT:
  UpsertBalance runs fn on the current balance (or nil when none exists)
  and stores the result, all under one lock or database transaction, so
  two concurrent recomputations never lose an update.

TRANSACTIONS:
  Stores that also implement Transactor let RequestService record taken
  days and the new status as one unit. All three built-in stores do.

IMPLEMENTATIONS:
  - store/memory/memory.go: In-memory for tests and demos
  - store/sqlite/sqlite.go: SQLite
  - store/postgres/postgres.go: PostgreSQL via pgx

SEE ALSO:
  - conflict.go: Consumer of ListOverlappingRequests
  - accrual.go: Consumer of UpsertBalance
*/
package leave

import (
	"context"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// STORE INTERFACES
// =============================================================================

type EmployeeStore interface {
	GetEmployee(ctx context.Context, id generic.EntityID) (*Employee, error)
	SaveEmployee(ctx context.Context, emp Employee) error
	ListEmployees(ctx context.Context) ([]Employee, error)
}

type PolicyStore interface {
	GetFiscalYear(ctx context.Context, id generic.FiscalYearID) (*FiscalYear, error)
	// CurrentFiscalYear returns ErrFiscalYearNotFound when none is marked current.
	CurrentFiscalYear(ctx context.Context) (*FiscalYear, error)
	ListFiscalYears(ctx context.Context) ([]FiscalYear, error)
	// SaveFiscalYear upserts; saving one as current clears the flag on the others.
	SaveFiscalYear(ctx context.Context, fy FiscalYear) error

	GetLeaveType(ctx context.Context, id generic.PolicyID) (*LeaveType, error)
	ListLeaveTypes(ctx context.Context) ([]LeaveType, error)
	SaveLeaveType(ctx context.Context, lt LeaveType) error
}

type RequestStore interface {
	GetRequest(ctx context.Context, id generic.RequestID) (*Request, error)
	ListRequests(ctx context.Context, employeeID generic.EntityID) ([]Request, error)
	ListOverlappingRequests(ctx context.Context, employeeID generic.EntityID, period generic.Period, excludeID generic.RequestID) ([]Request, error)
	// SaveRequest inserts or replaces by ID.
	SaveRequest(ctx context.Context, req Request) error
	UpdateRequestStatus(ctx context.Context, id generic.RequestID, status Status) error
}

type BalanceStore interface {
	GetBalance(ctx context.Context, employeeID generic.EntityID, leaveTypeID generic.PolicyID) (*Balance, error)
	ListBalances(ctx context.Context, employeeID generic.EntityID) ([]Balance, error)
	// UpsertBalance atomically replaces the balance with fn(current).
	// current is nil when no balance exists yet.
	UpsertBalance(ctx context.Context, employeeID generic.EntityID, leaveTypeID generic.PolicyID, fn func(current *Balance) Balance) (Balance, error)
}

type Store interface {
	EmployeeStore
	PolicyStore
	RequestStore
	BalanceStore
}

// Transactor is implemented by stores that can group writes. Store calls
// made with the context handed to fn commit or roll back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
