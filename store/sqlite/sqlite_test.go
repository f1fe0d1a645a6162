package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func days(s string) generic.Amount {
	return generic.Days(decimal.RequireFromString(s))
}

func seed(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveFiscalYear(ctx, leave.FiscalYear{
		ID: "fy-2080", Name: "2080/81",
		Start: date(2023, time.July, 17), End: date(2024, time.July, 15), IsCurrent: true,
	}))
	for _, lt := range []leave.LeaveType{
		{ID: "annual", Code: "annual", Name: "Annual", FiscalYearID: "fy-2080", Gender: "A", MaritalStatus: "A",
			JobType: "all", NumberOfDays: decimal.RequireFromString("18.5"), MaxPerDayLeave: 5, PreInformDays: 3},
		{ID: "weekly", Code: leave.RosterCode, Name: "Roster", FiscalYearID: "fy-2080", Gender: "A", MaritalStatus: "A",
			JobType: "all", NumberOfDays: decimal.NewFromInt(52), Branches: []string{"ktm", "pkr"}},
	} {
		require.NoError(t, store.SaveLeaveType(ctx, lt))
	}
}

// =============================================================================
// TESTS
// =============================================================================

func TestEmployee_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	joined := date(2023, time.September, 1)
	emp := leave.Employee{ID: "emp-1", Name: "Ram", Gender: "M", MaritalStatus: "S", JobType: "permanent",
		BranchID: "ktm", DepartmentID: "it", JoiningDate: &joined}
	require.NoError(t, store.SaveEmployee(ctx, emp))

	got, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, got.JoiningDate)
	assert.Equal(t, "2023-09-01", got.JoiningDate.String())
	assert.Equal(t, "ktm", got.BranchID)

	emp.JoiningDate = nil
	emp.DepartmentID = "hr"
	require.NoError(t, store.SaveEmployee(ctx, emp))
	got, err = store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Nil(t, got.JoiningDate)
	assert.Equal(t, "hr", got.DepartmentID)

	_, err = store.GetEmployee(ctx, "ghost")
	assert.True(t, errors.Is(err, generic.ErrEntityNotFound))
}

func TestFiscalYear_OnlyOneCurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store)

	require.NoError(t, store.SaveFiscalYear(ctx, leave.FiscalYear{
		ID: "fy-2081", Name: "2081/82",
		Start: date(2024, time.July, 16), End: date(2025, time.July, 15), IsCurrent: true,
	}))

	cur, err := store.CurrentFiscalYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, generic.FiscalYearID("fy-2081"), cur.ID)

	all, err := store.ListFiscalYears(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.False(t, all[0].IsCurrent)
	assert.True(t, all[1].IsCurrent)

	err = store.SaveFiscalYear(ctx, leave.FiscalYear{ID: "bad", Start: date(2025, 1, 2), End: date(2025, 1, 1)})
	assert.True(t, errors.Is(err, generic.ErrInvalidPeriod))
}

func TestLeaveType_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store)

	lt, err := store.GetLeaveType(ctx, "annual")
	require.NoError(t, err)
	assert.Equal(t, "18.5", lt.NumberOfDays.String())
	assert.Equal(t, 5, lt.MaxPerDayLeave)
	assert.Equal(t, 3, lt.PreInformDays)
	assert.Empty(t, lt.Branches)
	assert.Equal(t, leave.LeaveTypeActive, lt.Status)

	roster, err := store.GetLeaveType(ctx, "weekly")
	require.NoError(t, err)
	assert.Equal(t, []string{"ktm", "pkr"}, roster.Branches)

	all, err := store.ListLeaveTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = store.GetLeaveType(ctx, "nope")
	assert.True(t, errors.Is(err, generic.ErrPolicyNotFound))

	err = store.SaveLeaveType(ctx, leave.LeaveType{ID: "x", Code: "x", FiscalYearID: "missing"})
	assert.True(t, errors.Is(err, generic.ErrFiscalYearNotFound))
}

func TestListOverlappingRequests(t *testing.T) {
	// GIVEN: requests around February for emp-1 plus one for emp-2
	// WHEN: querying Feb 5..16 excluding "edit-me"
	// THEN: only overlapping, blocking, non-excluded emp-1 requests come back,
	//       with the leave type code joined
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store)

	reqs := []leave.Request{
		{ID: "roster", EmployeeID: "emp-1", LeaveTypeID: "weekly", Start: date(2024, 2, 1), End: date(2024, 2, 7), Status: leave.StatusApproved},
		{ID: "general", EmployeeID: "emp-1", LeaveTypeID: "annual", Start: date(2024, 2, 15), End: date(2024, 2, 16), Status: leave.StatusPending},
		{ID: "declined", EmployeeID: "emp-1", LeaveTypeID: "annual", Start: date(2024, 2, 10), End: date(2024, 2, 10), Status: leave.StatusDeclined},
		{ID: "edit-me", EmployeeID: "emp-1", LeaveTypeID: "annual", Start: date(2024, 2, 12), End: date(2024, 2, 12), Status: leave.StatusPending},
		{ID: "before", EmployeeID: "emp-1", LeaveTypeID: "annual", Start: date(2024, 1, 1), End: date(2024, 2, 4), Status: leave.StatusApproved},
		{ID: "other", EmployeeID: "emp-2", LeaveTypeID: "annual", Start: date(2024, 2, 5), End: date(2024, 2, 16), Status: leave.StatusApproved},
	}
	for _, r := range reqs {
		r.NoOfDays = generic.DaysBetween(r.Start, r.End) + 1
		require.NoError(t, store.SaveRequest(ctx, r))
	}

	period := generic.Period{Start: date(2024, 2, 5), End: date(2024, 2, 16)}
	got, err := store.ListOverlappingRequests(ctx, "emp-1", period, "edit-me")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, generic.RequestID("roster"), got[0].ID)
	assert.Equal(t, leave.RosterCode, got[0].LeaveTypeCode)
	assert.Equal(t, generic.RequestID("general"), got[1].ID)
	assert.Equal(t, "annual", got[1].LeaveTypeCode)

	conflicts := leave.FindConflicts(period, got)
	assert.Len(t, conflicts.Roster, 3)
	assert.Len(t, conflicts.General, 2)
}

func TestRequest_SaveUpdateAndStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store)

	req := leave.Request{ID: "r1", EmployeeID: "emp-1", LeaveTypeID: "annual",
		Start: date(2024, 3, 1), End: date(2024, 3, 2), NoOfDays: 2, Reason: "family", Status: leave.StatusPending}
	require.NoError(t, store.SaveRequest(ctx, req))

	req.End = date(2024, 3, 3)
	req.NoOfDays = 3
	require.NoError(t, store.SaveRequest(ctx, req))

	require.NoError(t, store.UpdateRequestStatus(ctx, "r1", leave.StatusApproved))
	got, err := store.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-03", got.End.String())
	assert.Equal(t, 3, got.NoOfDays)
	assert.Equal(t, "family", got.Reason)
	assert.Equal(t, leave.StatusApproved, got.Status)
	assert.False(t, got.CreatedAt.IsZero())

	err = store.UpdateRequestStatus(ctx, "missing", leave.StatusApproved)
	assert.True(t, errors.Is(err, generic.ErrRequestNotFound))

	list, err := store.ListRequests(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpsertBalance_CreateThenUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store)

	created, err := store.UpsertBalance(ctx, "emp-1", "annual", func(cur *leave.Balance) leave.Balance {
		require.Nil(t, cur)
		return leave.Balance{TotalLeave: days("7.5"), LeaveTaken: days("0"), LeaveRemaining: days("7.5"), IsActive: true}
	})
	require.NoError(t, err)
	assert.Equal(t, generic.EntityID("emp-1"), created.EmployeeID)

	_, err = store.UpsertBalance(ctx, "emp-1", "annual", func(cur *leave.Balance) leave.Balance {
		require.NotNil(t, cur)
		return cur.WithTaken(days("3"))
	})
	require.NoError(t, err)

	got, err := store.GetBalance(ctx, "emp-1", "annual")
	require.NoError(t, err)
	assert.Equal(t, "7.5", got.TotalLeave.String())
	assert.Equal(t, "3", got.LeaveTaken.String())
	assert.Equal(t, "4.5", got.LeaveRemaining.String())
	assert.True(t, got.IsActive)

	_, err = store.GetBalance(ctx, "emp-1", "weekly")
	assert.True(t, generic.IsNotFound(err))
}

func TestUpsertBalance_ConcurrentIncrementsAreNotLost(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.UpsertBalance(ctx, "emp-1", "annual", func(cur *leave.Balance) leave.Balance {
				if cur == nil {
					cur = &leave.Balance{TotalLeave: days("100"), LeaveTaken: days("0"), IsActive: true}
				}
				return cur.WithTaken(days("1"))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.GetBalance(ctx, "emp-1", "annual")
	require.NoError(t, err)
	assert.Equal(t, "20", got.LeaveTaken.String())
	assert.Equal(t, "80", got.LeaveRemaining.String())
}

func TestWithinTx_RollsBackEveryWrite(t *testing.T) {
	// GIVEN: a pending request and no balance yet
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store)
	require.NoError(t, store.SaveRequest(ctx, leave.Request{ID: "r1", EmployeeID: "emp-1", LeaveTypeID: "annual",
		Start: date(2024, 3, 1), End: date(2024, 3, 2), NoOfDays: 2, Status: leave.StatusPending}))

	// WHEN: the balance and status are written, then a later write fails
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := store.UpsertBalance(ctx, "emp-1", "annual", func(*leave.Balance) leave.Balance {
			two := generic.Days(decimal.NewFromInt(2))
			return leave.Balance{TotalLeave: two, LeaveTaken: two, LeaveRemaining: two.Zero(), IsActive: true}
		}); err != nil {
			return err
		}
		if err := store.UpdateRequestStatus(ctx, "r1", leave.StatusApproved); err != nil {
			return err
		}
		// reads inside the callback see the uncommitted writes
		got, err := store.GetRequest(ctx, "r1")
		if err != nil {
			return err
		}
		assert.Equal(t, leave.StatusApproved, got.Status)
		return store.UpdateRequestStatus(ctx, "missing", leave.StatusApproved)
	})

	// THEN: nothing was kept
	assert.True(t, errors.Is(err, generic.ErrRequestNotFound))
	_, err = store.GetBalance(ctx, "emp-1", "annual")
	assert.True(t, errors.Is(err, generic.ErrBalanceNotFound))
	got, err := store.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, got.Status)
}

func TestWithinTx_Commits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store)
	require.NoError(t, store.SaveRequest(ctx, leave.Request{ID: "r1", EmployeeID: "emp-1", LeaveTypeID: "annual",
		Start: date(2024, 3, 1), End: date(2024, 3, 2), NoOfDays: 2, Status: leave.StatusPending}))

	err := store.WithinTx(ctx, func(ctx context.Context) error {
		// nested WithinTx joins the outer transaction
		return store.WithinTx(ctx, func(ctx context.Context) error {
			return store.UpdateRequestStatus(ctx, "r1", leave.StatusDeclined)
		})
	})

	require.NoError(t, err)
	got, err := store.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusDeclined, got.Status)
}
