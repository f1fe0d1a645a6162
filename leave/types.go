// Package leave implements leave-request validation, conflict detection and
// entitlement accrual on top of the generic date and amount primitives.
package leave

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// FISCAL YEAR
// =============================================================================

// FiscalYear bounds one leave year. Exactly one is current at a time.
type FiscalYear struct {
	ID        generic.FiscalYearID
	Name      string
	Start     generic.TimePoint
	End       generic.TimePoint
	IsCurrent bool
}

func (fy FiscalYear) Period() generic.Period {
	return generic.Period{Start: fy.Start, End: fy.End}
}

// =============================================================================
// LEAVE TYPE
// =============================================================================

// RosterCode marks roster ("weekly") leave. Conflicts with roster leave are
// reported separately from ordinary leave.
const RosterCode = "weekly"

// Eligibility wildcards.
const (
	AnyGender  = "A"
	AnyMarital = "A"
	AnyJobType = "all"
)

type LeaveTypeStatus string

const (
	LeaveTypeActive   LeaveTypeStatus = "active"
	LeaveTypeInactive LeaveTypeStatus = "inactive"
)

// LeaveType is a leave policy for one fiscal year.
type LeaveType struct {
	ID             generic.PolicyID
	Code           string
	Name           string
	FiscalYearID   generic.FiscalYearID
	Gender         string   // A, M, F, O
	MaritalStatus  string   // A, S, M
	JobType        string   // "all" or a specific job type
	Branches       []string // empty = every branch
	Departments    []string // empty = every department
	NumberOfDays   decimal.Decimal
	MaxPerDayLeave int // longest single request in days; 0 = unlimited
	PreInformDays  int // required notice in days; 0 = none
	Status         LeaveTypeStatus
	Description    string
}

func (lt LeaveType) IsRoster() bool { return lt.Code == RosterCode }

func (lt LeaveType) IsActive() bool { return lt.Status == "" || lt.Status == LeaveTypeActive }

// Entitlement is the full-year allowance as an amount of days.
func (lt LeaveType) Entitlement() generic.Amount { return generic.Days(lt.NumberOfDays) }

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee holds the profile attributes leave eligibility depends on.
type Employee struct {
	ID            generic.EntityID
	Name          string
	Gender        string
	MaritalStatus string
	JobType       string
	BranchID      string
	DepartmentID  string
	JoiningDate   *generic.TimePoint
}

// =============================================================================
// BALANCE
// =============================================================================

// Balance is an employee's allowance for one leave type.
type Balance struct {
	EmployeeID     generic.EntityID
	LeaveTypeID    generic.PolicyID
	TotalLeave     generic.Amount
	LeaveTaken     generic.Amount
	LeaveRemaining generic.Amount
	IsActive       bool
}

// WithTotal replaces the total and recomputes the remainder. Taken days are
// never changed.
func (b Balance) WithTotal(total generic.Amount) Balance {
	b.TotalLeave = total
	b.LeaveRemaining = total.Sub(b.LeaveTaken).NonNegative()
	return b
}

// WithTaken adds consumed days and recomputes the remainder.
func (b Balance) WithTaken(days generic.Amount) Balance {
	b.LeaveTaken = b.LeaveTaken.Add(days)
	b.LeaveRemaining = b.TotalLeave.Sub(b.LeaveTaken).NonNegative()
	return b
}

// =============================================================================
// REQUEST
// =============================================================================

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusDeclined Status = "Declined"
	StatusRejected Status = "Rejected"
)

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{StatusPending, StatusApproved, StatusDeclined, StatusRejected} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

// Blocking reports whether a request in this status still occupies its days.
func (s Status) Blocking() bool {
	return s != StatusDeclined && s != StatusRejected
}

// Request is a stored leave request. Start and End are inclusive canonical days.
type Request struct {
	ID            generic.RequestID
	EmployeeID    generic.EntityID
	LeaveTypeID   generic.PolicyID
	LeaveTypeCode string // joined from the leave type on read
	Start         generic.TimePoint
	End           generic.TimePoint
	NoOfDays      int
	Reason        string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r Request) Period() generic.Period {
	return generic.Period{Start: r.Start, End: r.End}
}

func (r Request) IsRoster() bool { return r.LeaveTypeCode == RosterCode }
