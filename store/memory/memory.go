// Package memory provides an in-memory leave.Store for tests and demos.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	employees   map[generic.EntityID]leave.Employee
	fiscalYears map[generic.FiscalYearID]leave.FiscalYear
	leaveTypes  map[generic.PolicyID]leave.LeaveType
	requests    map[generic.RequestID]leave.Request
	balances    map[balanceKey]leave.Balance
}

type balanceKey struct {
	EmployeeID  generic.EntityID
	LeaveTypeID generic.PolicyID
}

var (
	_ leave.Store      = (*Memory)(nil)
	_ leave.Transactor = (*Memory)(nil)
)

// txKey marks a context whose WithinTx holds this store's write lock.
type txKey struct{}

func New() *Memory {
	return &Memory{
		employees:   make(map[generic.EntityID]leave.Employee),
		fiscalYears: make(map[generic.FiscalYearID]leave.FiscalYear),
		leaveTypes:  make(map[generic.PolicyID]leave.LeaveType),
		requests:    make(map[generic.RequestID]leave.Request),
		balances:    make(map[balanceKey]leave.Balance),
	}
}

// =============================================================================
// LOCKING AND TRANSACTIONS
// =============================================================================

func (m *Memory) held(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Memory)
	return owner == m
}

func (m *Memory) lock(ctx context.Context) func() {
	if m.held(ctx) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) rlock(ctx context.Context) func() {
	if m.held(ctx) {
		return func() {}
	}
	m.mu.RLock()
	return m.mu.RUnlock
}

// WithinTx runs fn holding the write lock. Calls made with fn's context skip
// locking; when fn fails every map is restored to its state before fn.
func (m *Memory) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.held(ctx) {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	employees := maps.Clone(m.employees)
	fiscalYears := maps.Clone(m.fiscalYears)
	leaveTypes := maps.Clone(m.leaveTypes)
	requests := maps.Clone(m.requests)
	balances := maps.Clone(m.balances)

	if err := fn(context.WithValue(ctx, txKey{}, m)); err != nil {
		m.employees = employees
		m.fiscalYears = fiscalYears
		m.leaveTypes = leaveTypes
		m.requests = requests
		m.balances = balances
		return err
	}
	return nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) GetEmployee(ctx context.Context, id generic.EntityID) (*leave.Employee, error) {
	defer m.rlock(ctx)()
	emp, ok := m.employees[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrEntityNotFound, id)
	}
	return &emp, nil
}

func (m *Memory) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	defer m.lock(ctx)()
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	defer m.rlock(ctx)()
	out := make([]leave.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// FISCAL YEARS AND LEAVE TYPES
// =============================================================================

func (m *Memory) GetFiscalYear(ctx context.Context, id generic.FiscalYearID) (*leave.FiscalYear, error) {
	defer m.rlock(ctx)()
	fy, ok := m.fiscalYears[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrFiscalYearNotFound, id)
	}
	return &fy, nil
}

func (m *Memory) CurrentFiscalYear(ctx context.Context) (*leave.FiscalYear, error) {
	defer m.rlock(ctx)()
	for _, fy := range m.fiscalYears {
		if fy.IsCurrent {
			return &fy, nil
		}
	}
	return nil, fmt.Errorf("%w: none is current", generic.ErrFiscalYearNotFound)
}

func (m *Memory) ListFiscalYears(ctx context.Context) ([]leave.FiscalYear, error) {
	defer m.rlock(ctx)()
	out := make([]leave.FiscalYear, 0, len(m.fiscalYears))
	for _, fy := range m.fiscalYears {
		out = append(out, fy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Memory) SaveFiscalYear(ctx context.Context, fy leave.FiscalYear) error {
	if err := fy.Period().Validate(); err != nil {
		return err
	}
	defer m.lock(ctx)()
	if fy.IsCurrent {
		for id, other := range m.fiscalYears {
			other.IsCurrent = false
			m.fiscalYears[id] = other
		}
	}
	m.fiscalYears[fy.ID] = fy
	return nil
}

func (m *Memory) GetLeaveType(ctx context.Context, id generic.PolicyID) (*leave.LeaveType, error) {
	defer m.rlock(ctx)()
	lt, ok := m.leaveTypes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrPolicyNotFound, id)
	}
	lt.Branches = slices.Clone(lt.Branches)
	lt.Departments = slices.Clone(lt.Departments)
	return &lt, nil
}

func (m *Memory) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	defer m.rlock(ctx)()
	out := make([]leave.LeaveType, 0, len(m.leaveTypes))
	for _, lt := range m.leaveTypes {
		lt.Branches = slices.Clone(lt.Branches)
		lt.Departments = slices.Clone(lt.Departments)
		out = append(out, lt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveLeaveType(ctx context.Context, lt leave.LeaveType) error {
	defer m.lock(ctx)()
	if _, ok := m.fiscalYears[lt.FiscalYearID]; !ok {
		return fmt.Errorf("%w: %s", generic.ErrFiscalYearNotFound, lt.FiscalYearID)
	}
	lt.Branches = slices.Clone(lt.Branches)
	lt.Departments = slices.Clone(lt.Departments)
	m.leaveTypes[lt.ID] = lt
	return nil
}

// =============================================================================
// REQUESTS
// =============================================================================

// withCode joins the leave type code, as a SQL store would.
func (m *Memory) withCode(req leave.Request) leave.Request {
	if lt, ok := m.leaveTypes[req.LeaveTypeID]; ok {
		req.LeaveTypeCode = lt.Code
	}
	return req
}

func (m *Memory) GetRequest(ctx context.Context, id generic.RequestID) (*leave.Request, error) {
	defer m.rlock(ctx)()
	req, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrRequestNotFound, id)
	}
	req = m.withCode(req)
	return &req, nil
}

func (m *Memory) ListRequests(ctx context.Context, employeeID generic.EntityID) ([]leave.Request, error) {
	defer m.rlock(ctx)()
	var out []leave.Request
	for _, req := range m.requests {
		if req.EmployeeID == employeeID {
			out = append(out, m.withCode(req))
		}
	}
	sortRequests(out)
	return out, nil
}

func (m *Memory) ListOverlappingRequests(ctx context.Context, employeeID generic.EntityID, period generic.Period, excludeID generic.RequestID) ([]leave.Request, error) {
	defer m.rlock(ctx)()
	var out []leave.Request
	for _, req := range m.requests {
		if req.EmployeeID != employeeID || !req.Status.Blocking() {
			continue
		}
		if excludeID != "" && req.ID == excludeID {
			continue
		}
		if req.Start.BeforeOrEqual(period.End) && req.End.AfterOrEqual(period.Start) {
			out = append(out, m.withCode(req))
		}
	}
	sortRequests(out)
	return out, nil
}

func (m *Memory) SaveRequest(ctx context.Context, req leave.Request) error {
	if err := req.Period().Validate(); err != nil {
		return err
	}
	defer m.lock(ctx)()
	if _, ok := m.leaveTypes[req.LeaveTypeID]; !ok {
		return fmt.Errorf("%w: %s", generic.ErrPolicyNotFound, req.LeaveTypeID)
	}
	req.LeaveTypeCode = ""
	m.requests[req.ID] = req
	return nil
}

func (m *Memory) UpdateRequestStatus(ctx context.Context, id generic.RequestID, status leave.Status) error {
	defer m.lock(ctx)()
	req, ok := m.requests[id]
	if !ok {
		return fmt.Errorf("%w: %s", generic.ErrRequestNotFound, id)
	}
	req.Status = status
	req.UpdatedAt = time.Now().UTC()
	m.requests[id] = req
	return nil
}

func sortRequests(reqs []leave.Request) {
	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].Start.Equal(reqs[j].Start) {
			return reqs[i].Start.Before(reqs[j].Start)
		}
		return reqs[i].ID < reqs[j].ID
	})
}

// =============================================================================
// BALANCES
// =============================================================================

func (m *Memory) GetBalance(ctx context.Context, employeeID generic.EntityID, leaveTypeID generic.PolicyID) (*leave.Balance, error) {
	defer m.rlock(ctx)()
	bal, ok := m.balances[balanceKey{employeeID, leaveTypeID}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", generic.ErrBalanceNotFound, employeeID, leaveTypeID)
	}
	return &bal, nil
}

func (m *Memory) ListBalances(ctx context.Context, employeeID generic.EntityID) ([]leave.Balance, error) {
	defer m.rlock(ctx)()
	var out []leave.Balance
	for k, bal := range m.balances {
		if k.EmployeeID == employeeID {
			out = append(out, bal)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeaveTypeID < out[j].LeaveTypeID })
	return out, nil
}

// UpsertBalance holds the write lock across fn, so concurrent upserts of the
// same balance are serialized.
func (m *Memory) UpsertBalance(ctx context.Context, employeeID generic.EntityID, leaveTypeID generic.PolicyID, fn func(*leave.Balance) leave.Balance) (leave.Balance, error) {
	defer m.lock(ctx)()

	k := balanceKey{employeeID, leaveTypeID}
	var current *leave.Balance
	if bal, ok := m.balances[k]; ok {
		current = &bal
	}
	next := fn(current)
	next.EmployeeID = employeeID
	next.LeaveTypeID = leaveTypeID
	m.balances[k] = next
	return next, nil
}
