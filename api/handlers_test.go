/*
handlers_test.go - HTTP tests for the leave API

Tests for:
- Calendar conversion endpoints in both display modes
- Fiscal year / leave type / employee setup
- Leave request submission, rejection (422) and status transitions
- Error classification (400 / 404 / 409)
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/store/memory"
)

// =============================================================================
// HELPERS
// =============================================================================

type testServer struct {
	handler *Handler
	router  *chi.Mux
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestServer builds a router over an empty memory store. Today is
// 2024-01-01 (BS 2080-09-16).
func newTestServer(t *testing.T, mode calendar.Mode) *testServer {
	t.Helper()
	h := NewHandler(memory.New(), calendar.NewConverter(mode), Options{
		Clock: generic.FixedClock(generic.NewTimePoint(2024, time.January, 1)),
		Log:   quietLogger(),
	})
	return &testServer{handler: h, router: NewRouter(h, nil)}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) loadScenario(t *testing.T, id string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (s *testServer) submit(t *testing.T, employee string, body SubmitLeaveRequest) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, http.MethodPost, "/api/employees/"+employee+"/leave-requests", body)
}

func balanceFor(t *testing.T, balances []BalanceDTO, leaveTypeID string) BalanceDTO {
	t.Helper()
	for _, b := range balances {
		if b.LeaveTypeID == leaveTypeID {
			return b
		}
	}
	t.Fatalf("no balance for %s in %+v", leaveTypeID, balances)
	return BalanceDTO{}
}

// =============================================================================
// CALENDAR
// =============================================================================

func TestCalendar_DescribesDisplayMode(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)

	rec := srv.do(t, http.MethodGet, "/api/calendar", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	cal := decode[CalendarDTO](t, rec)
	assert.Equal(t, "bs", cal.Mode)
	assert.Equal(t, "2000-01-01", cal.SupportedFrom)
}

func TestCalendar_DisplayAndParseRoundTrip(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)

	// WHEN: a Gregorian day is shown in BS
	rec := srv.do(t, http.MethodGet, "/api/calendar/display?date=2024-01-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	shown := decode[DateDTO](t, rec)
	assert.Equal(t, "2080-09-25", shown.Display)

	// THEN: parsing the BS form yields the same day
	rec = srv.do(t, http.MethodGet, "/api/calendar/parse?date=2080-09-25", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	parsed := decode[DateDTO](t, rec)
	assert.Equal(t, "2024-01-10", parsed.Gregorian)
	assert.Equal(t, "bs", parsed.Mode)
}

func TestCalendar_RejectsBadDates(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)

	tests := []string{
		"/api/calendar/parse?date=2080-13-01",
		"/api/calendar/parse?date=",
		"/api/calendar/display?date=10/01/2024",
		"/api/calendar/display?date=1900-01-01",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

// =============================================================================
// SETUP ENDPOINTS
// =============================================================================

func TestCreateFiscalYear_WithPresets(t *testing.T) {
	srv := newTestServer(t, calendar.ModeAD)

	rec := srv.do(t, http.MethodPost, "/api/fiscal-years", CreateFiscalYearRequest{
		ID: "fy-81", Name: "2081/82", StartDate: "2024-07-16", EndDate: "2025-07-16",
		IsCurrent: true, WithPresets: true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/fiscal-years/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fy-81", decode[FiscalYearDTO](t, rec).ID)

	rec = srv.do(t, http.MethodGet, "/api/leave-types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var types []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &types))
	assert.Len(t, types, 4)

	rec = srv.do(t, http.MethodGet, "/api/leave-types/annual-fy-81", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateFiscalYear_RejectsReversedPeriod(t *testing.T) {
	srv := newTestServer(t, calendar.ModeAD)

	rec := srv.do(t, http.MethodPost, "/api/fiscal-years", CreateFiscalYearRequest{
		ID: "fy-bad", Name: "bad", StartDate: "2025-07-16", EndDate: "2024-07-16",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestCreateLeaveType_DefaultsToCurrentFiscalYear(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)
	srv.loadScenario(t, "kathmandu-office")

	rec := srv.do(t, http.MethodPost, "/api/leave-types", map[string]any{
		"id": "mourning", "code": "mourning", "name": "Mourning Leave",
		"number_of_days": 13, "max_per_day_leave": 13,
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, demoFiscalYear, created["fiscal_year_id"])
}

func TestCreateLeaveType_InvalidDefinition(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)
	srv.loadScenario(t, "kathmandu-office")

	rec := srv.do(t, http.MethodPost, "/api/leave-types", map[string]any{
		"id": "odd", "code": "odd", "name": "Odd", "gender": "X", "number_of_days": 1,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveEmployee_AssignsProRataEntitlements(t *testing.T) {
	// GIVEN: FY 2080/81 with presets, ending 2081-03-31 (2024-07-15)
	srv := newTestServer(t, calendar.ModeBS)
	srv.loadScenario(t, "kathmandu-office")

	// WHEN: a woman joins on 2080-10-01 (2024-01-15), 182 days before year end
	rec := srv.do(t, http.MethodPost, "/api/employees", CreateEmployeeRequest{
		ID: "emp-gita", Name: "Gita Rai", Gender: "F", MaritalStatus: "M",
		JobType: "permanent", BranchID: "ktm", DepartmentID: "hr", JoiningDate: "2080-10-01",
	})

	// THEN: six accrual months of every preset she is eligible for
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[EmployeeResponse](t, rec)
	assert.Equal(t, "2080-10-01", resp.Employee.JoiningDate)
	require.Len(t, resp.Balances, 4)
	assert.Equal(t, "9", balanceFor(t, resp.Balances, "annual-fy-2080").TotalLeave)
	assert.Equal(t, "6", balanceFor(t, resp.Balances, "sick-fy-2080").TotalLeave)
	assert.Equal(t, "26", balanceFor(t, resp.Balances, "weekly-fy-2080").TotalLeave)
	assert.Equal(t, "49", balanceFor(t, resp.Balances, "maternity-fy-2080").TotalLeave)
}

func TestSaveEmployee_RequiresIdentity(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)

	rec := srv.do(t, http.MethodPost, "/api/employees", CreateEmployeeRequest{Name: "No ID"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEmployee_NotFound(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)

	for _, path := range []string{
		"/api/employees/ghost",
		"/api/employees/ghost/balances",
		"/api/employees/ghost/leave-requests",
	} {
		rec := srv.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func TestSubmitLeaveRequest_Accepted(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)
	srv.loadScenario(t, "roster-clash")

	// WHEN: Ram asks for 2080-11-10..12 (2024-02-22..24), clear of everything
	rec := srv.submit(t, "emp-ram", SubmitLeaveRequest{
		LeaveTypeID: "annual-fy-2080", StartDate: "2080-11-10", EndDate: "2080-11-12", Reason: "Wedding",
	})

	// THEN: stored as pending with dates echoed in BS
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[LeaveRequestDTO](t, rec)
	assert.Equal(t, "Pending", created.Status)
	assert.Equal(t, 3, created.NoOfDays)
	assert.Equal(t, "2080-11-10", created.StartDate)
	assert.Equal(t, "2080-11-12", created.EndDate)
	assert.Equal(t, "annual", created.LeaveTypeCode)
	assert.NotEmpty(t, created.ID)

	rec = srv.do(t, http.MethodGet, "/api/employees/emp-ram/leave-requests", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]LeaveRequestDTO](t, rec), 4)
}

func TestSubmitLeaveRequest_OverlapReportsBothKinds(t *testing.T) {
	// GIVEN: approved roster days on 2080-10-20 and 2080-10-27 and a pending
	// annual leave on 2080-11-03..04
	srv := newTestServer(t, calendar.ModeBS)
	srv.loadScenario(t, "roster-clash")

	// WHEN: the new request spans 2080-10-22..2080-11-03
	rec := srv.submit(t, "emp-ram", SubmitLeaveRequest{
		LeaveTypeID: "annual-fy-2080", StartDate: "2080-10-22", EndDate: "2080-11-03",
	})

	// THEN: 422 with roster and general conflicts listed in BS
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	resp := decode[ValidationErrorResponse](t, rec)
	require.NotNil(t, resp.Conflicts)
	assert.Equal(t, []string{"2080-10-27"}, resp.Conflicts.Roster)
	assert.Equal(t, []string{"2080-11-03"}, resp.Conflicts.General)
	require.Len(t, resp.Fields["__all__"], 1)
	assert.Equal(t,
		"Roster Leave is on: 2080-10-27.\nYou have already taken leave on: 2080-11-03.",
		resp.Fields["__all__"][0])
}

func TestSubmitLeaveRequest_FieldErrors(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)
	srv.loadScenario(t, "kathmandu-office")

	tests := []struct {
		name    string
		body    SubmitLeaveRequest
		field   string
		message string
	}{
		{
			name:    "non-existent BS date",
			body:    SubmitLeaveRequest{LeaveTypeID: "annual-fy-2080", StartDate: "2080-13-01", EndDate: "2080-11-12"},
			field:   "start_date",
			message: "Invalid Nepali date format or non-existent date.",
		},
		{
			name:    "missing end date",
			body:    SubmitLeaveRequest{LeaveTypeID: "annual-fy-2080", StartDate: "2080-11-10"},
			field:   "end_date",
			message: "This field is required.",
		},
		{
			name:    "end before start",
			body:    SubmitLeaveRequest{LeaveTypeID: "annual-fy-2080", StartDate: "2080-11-12", EndDate: "2080-11-10"},
			field:   "end_date",
			message: "End date cannot be before start date.",
		},
		{
			name:    "span too long",
			body:    SubmitLeaveRequest{LeaveTypeID: "sick-fy-2080", StartDate: "2080-11-10", EndDate: "2080-11-15"},
			field:   "end_date",
			message: "You cannot take more than 5 days for this leave type.",
		},
		{
			name:    "short notice",
			body:    SubmitLeaveRequest{LeaveTypeID: "annual-fy-2080", StartDate: "2080-09-20", EndDate: "2080-09-20"},
			field:   "start_date",
			message: "You must apply at least 7 day(s) in advance.",
		},
		{
			name:    "unknown leave type",
			body:    SubmitLeaveRequest{LeaveTypeID: "sabbatical", StartDate: "2080-11-10", EndDate: "2080-11-12"},
			field:   "leave_type",
			message: "Select a valid leave type.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.submit(t, "emp-ram", tt.body)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			resp := decode[ValidationErrorResponse](t, rec)
			assert.Contains(t, resp.Fields[tt.field], tt.message)
			assert.Nil(t, resp.Conflicts)
		})
	}
}

func TestSubmitLeaveRequest_ADMode(t *testing.T) {
	srv := newTestServer(t, calendar.ModeAD)
	srv.loadScenario(t, "roster-clash")

	rec := srv.submit(t, "emp-ram", SubmitLeaveRequest{
		LeaveTypeID: "annual-fy-2080", StartDate: "2024-02-09", EndDate: "2024-02-11",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[ValidationErrorResponse](t, rec)
	assert.Equal(t, []string{"2024-02-10"}, resp.Conflicts.Roster)
	assert.Empty(t, resp.Conflicts.General)

	// a BS-looking date is not a valid AD day
	rec = srv.submit(t, "emp-ram", SubmitLeaveRequest{
		LeaveTypeID: "annual-fy-2080", StartDate: "2080-11-10", EndDate: "2080-11-31",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp = decode[ValidationErrorResponse](t, rec)
	assert.Contains(t, resp.Fields["end_date"], "Invalid date format.")
}

func TestSubmitLeaveRequest_UnknownEmployee(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)
	srv.loadScenario(t, "kathmandu-office")

	rec := srv.submit(t, "ghost", SubmitLeaveRequest{
		LeaveTypeID: "annual-fy-2080", StartDate: "2080-11-10", EndDate: "2080-11-12",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitLeaveRequest_MalformedBody(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)

	rec := srv.do(t, http.MethodPost, "/api/employees/emp-ram/leave-requests", "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode[ErrorResponse](t, rec).Error)
}

func TestUpdateStatus_ApproveRecordsTakenDays(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)
	srv.loadScenario(t, "roster-clash")
	rec := srv.submit(t, "emp-ram", SubmitLeaveRequest{
		LeaveTypeID: "annual-fy-2080", StartDate: "2080-11-10", EndDate: "2080-11-12",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[LeaveRequestDTO](t, rec)

	// WHEN: the request is approved
	rec = srv.do(t, http.MethodPost, "/api/leave-requests/"+created.ID+"/status", UpdateStatusRequest{Status: "Approved"})

	// THEN: three annual days are taken out of eighteen
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Approved", decode[LeaveRequestDTO](t, rec).Status)

	rec = srv.do(t, http.MethodGet, "/api/employees/emp-ram/balances", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	annual := balanceFor(t, decode[[]BalanceDTO](t, rec), "annual-fy-2080")
	assert.Equal(t, "18", annual.TotalLeave)
	assert.Equal(t, "3", annual.LeaveTaken)
	assert.Equal(t, "15", annual.LeaveRemaining)

	// AND: a decided request cannot change again
	rec = srv.do(t, http.MethodPost, "/api/leave-requests/"+created.ID+"/status", UpdateStatusRequest{Status: "Declined"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateStatus_Rejects(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)
	srv.loadScenario(t, "roster-clash")

	rec := srv.do(t, http.MethodPost, "/api/leave-requests/demo-annual-1/status", UpdateStatusRequest{Status: "Maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/leave-requests/nope/status", UpdateStatusRequest{Status: "Approved"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/leave-requests/demo-annual-1/status", UpdateStatusRequest{Status: "Pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEditLeaveRequest(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)
	srv.loadScenario(t, "roster-clash")
	path := "/api/employees/emp-ram/leave-requests/demo-annual-1"

	// WHEN: the pending request is moved one day later, over its own days
	rec := srv.do(t, http.MethodPut, path, SubmitLeaveRequest{
		LeaveTypeID: "annual-fy-2080", StartDate: "2080-11-04", EndDate: "2080-11-05", Reason: "Moved",
	})

	// THEN: its own days are not a conflict
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := decode[LeaveRequestDTO](t, rec)
	assert.Equal(t, "demo-annual-1", edited.ID)
	assert.Equal(t, "2080-11-04", edited.StartDate)
	assert.Equal(t, 2, edited.NoOfDays)
	assert.Equal(t, "Pending", edited.Status)

	// AND: edits are validated like submissions
	rec = srv.do(t, http.MethodPut, path, SubmitLeaveRequest{
		LeaveTypeID: "annual-fy-2080", StartDate: "2080-10-27", EndDate: "2080-10-28",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"2080-10-27"}, decode[ValidationErrorResponse](t, rec).Conflicts.Roster)

	// AND: the request is scoped to its employee
	rec = srv.do(t, http.MethodPut, "/api/employees/emp-sita/leave-requests/demo-annual-1", SubmitLeaveRequest{
		LeaveTypeID: "annual-fy-2080", StartDate: "2080-11-04", EndDate: "2080-11-05",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditLeaveRequest_OnlyPending(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)
	srv.loadScenario(t, "roster-clash")

	rec := srv.do(t, http.MethodPut, "/api/employees/emp-ram/leave-requests/demo-roster-1", SubmitLeaveRequest{
		LeaveTypeID: "weekly-fy-2080", StartDate: "2080-10-21", EndDate: "2080-10-21",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRequireAssignedBalance(t *testing.T) {
	// GIVEN: a deployment that only allows assigned leave types
	h := NewHandler(memory.New(), calendar.NewConverter(calendar.ModeBS), Options{
		Clock:                  generic.FixedClock(generic.NewTimePoint(2024, time.January, 1)),
		Log:                    quietLogger(),
		RequireAssignedBalance: true,
	})
	srv := &testServer{handler: h, router: NewRouter(h, nil)}
	srv.loadScenario(t, "kathmandu-office")

	// WHEN: Ram (male) asks for maternity leave
	rec := srv.submit(t, "emp-ram", SubmitLeaveRequest{
		LeaveTypeID: "maternity-fy-2080", StartDate: "2080-11-10", EndDate: "2080-11-12",
	})

	// THEN: the type is not his to take
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[ValidationErrorResponse](t, rec).Fields["leave_type"],
		"This leave type is not assigned to you for the current fiscal year.")
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, calendar.ModeBS)

	rec := srv.do(t, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}
