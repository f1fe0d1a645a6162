/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave validation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the leave
  services. No leave rule lives here.

ENDPOINTS:
  Calendar:
    GET    /api/calendar                        Display calendar + supported era
    GET    /api/calendar/display?date=          Canonical AD day -> display
    GET    /api/calendar/parse?date=            Display date -> canonical AD day

  Fiscal years / leave types:
    GET    /api/fiscal-years                    List
    POST   /api/fiscal-years                    Create (optionally with presets)
    GET    /api/fiscal-years/current            Current year
    GET    /api/leave-types                     List
    POST   /api/leave-types                     Create from factory JSON
    GET    /api/leave-types/{id}                Get

  Employees:
    GET    /api/employees                       List
    POST   /api/employees                       Create/update + recompute entitlements
    GET    /api/employees/{id}                  Get
    GET    /api/employees/{id}/balances         Balances
    POST   /api/employees/{id}/entitlements     Recompute entitlements

  Leave requests:
    GET    /api/employees/{id}/leave-requests              List
    POST   /api/employees/{id}/leave-requests              Submit (validated)
    PUT    /api/employees/{id}/leave-requests/{requestID}  Edit (re-validated)
    POST   /api/leave-requests/{id}/status                 Approve/decline/reject

ERROR HANDLING:
  - 400: Malformed JSON, bad date, invalid leave type definition
  - 404: Referenced record does not exist
  - 409: Status transition not allowed
  - 422: Leave request failed validation (field errors + conflict days)
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options tune the services a Handler builds.
type Options struct {
	Clock                  generic.Clock
	RequireAssignedBalance bool
	Log                    logrus.FieldLogger
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        leave.Store
	Calendar     calendar.Converter
	Requests     *leave.RequestService
	Entitlements *leave.EntitlementService
	LeaveTypes   *factory.LeaveTypeFactory
	Log          logrus.FieldLogger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires the leave services over store, rendering dates with conv.
func NewHandler(store leave.Store, conv calendar.Converter, opts Options) *Handler {
	logger := opts.Log
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	validator := &leave.Validator{
		Policies:               store,
		Conflicts:              &leave.ConflictDetector{Requests: store},
		Calendar:               conv,
		Clock:                  opts.Clock,
		Log:                    logger,
		Balances:               store,
		RequireAssignedBalance: opts.RequireAssignedBalance,
	}
	return &Handler{
		Store:        store,
		Calendar:     conv,
		Requests:     &leave.RequestService{Store: store, Validator: validator, Log: logger},
		Entitlements: &leave.EntitlementService{Store: store, Log: logger},
		LeaveTypes:   factory.NewLeaveTypeFactory(),
		Log:          logger,
	}
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	era := calendar.SupportedRange()
	mode := h.Calendar.Mode()
	writeJSON(w, http.StatusOK, CalendarDTO{
		Mode:          mode.String(),
		Label:         mode.Label(),
		SupportedFrom: h.display(era.Start),
		SupportedTo:   h.display(era.End),
	})
}

// DisplayDate converts a canonical YYYY-MM-DD day to the display calendar.
func (h *Handler) DisplayDate(w http.ResponseWriter, r *http.Request) {
	tp, err := generic.ParseTimePoint(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	d, err := h.Calendar.ToDisplay(tp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Date outside the supported calendar range", err)
		return
	}
	writeJSON(w, http.StatusOK, DateDTO{Gregorian: tp.String(), Display: d.String(), Mode: h.Calendar.Mode().String()})
}

// ParseDate converts a display-calendar date to the canonical day.
func (h *Handler) ParseDate(w http.ResponseWriter, r *http.Request) {
	tp, err := h.Calendar.ParseRequired(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	writeJSON(w, http.StatusOK, DateDTO{Gregorian: tp.String(), Display: h.display(tp), Mode: h.Calendar.Mode().String()})
}

// =============================================================================
// FISCAL YEAR HANDLERS
// =============================================================================

func (h *Handler) ListFiscalYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.Store.ListFiscalYears(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list fiscal years", err)
		return
	}
	dtos := make([]FiscalYearDTO, len(years))
	for i, fy := range years {
		dtos[i] = h.toFiscalYearDTO(fy)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetCurrentFiscalYear(w http.ResponseWriter, r *http.Request) {
	fy, err := h.Store.CurrentFiscalYear(r.Context())
	if err != nil {
		h.writeServiceError(w, "No current fiscal year", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toFiscalYearDTO(*fy))
}

func (h *Handler) CreateFiscalYear(w http.ResponseWriter, r *http.Request) {
	var req CreateFiscalYearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}
	start, err := h.Calendar.ParseRequired(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	end, err := h.Calendar.ParseRequired(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}

	ctx := r.Context()
	fy := leave.FiscalYear{
		ID:        generic.FiscalYearID(req.ID),
		Name:      req.Name,
		Start:     start,
		End:       end,
		IsCurrent: req.IsCurrent,
	}
	if err := h.Store.SaveFiscalYear(ctx, fy); err != nil {
		h.writeServiceError(w, "Failed to save fiscal year", err)
		return
	}

	if req.WithPresets {
		presets, err := h.LeaveTypes.ParsePresets(req.ID)
		if err != nil {
			h.writeServiceError(w, "Failed to build preset leave types", err)
			return
		}
		for _, lt := range presets {
			if err := h.Store.SaveLeaveType(ctx, lt); err != nil {
				h.writeServiceError(w, "Failed to save preset leave type", err)
				return
			}
		}
	}

	writeJSON(w, http.StatusCreated, h.toFiscalYearDTO(fy))
}

// =============================================================================
// LEAVE TYPE HANDLERS
// =============================================================================

func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListLeaveTypes(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list leave types", err)
		return
	}
	dtos := make([]factory.LeaveTypeJSON, len(types))
	for i, lt := range types {
		dtos[i] = h.LeaveTypes.ToJSON(lt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetLeaveType(w http.ResponseWriter, r *http.Request) {
	lt, err := h.Store.GetLeaveType(r.Context(), generic.PolicyID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, "Failed to get leave type", err)
		return
	}
	writeJSON(w, http.StatusOK, h.LeaveTypes.ToJSON(*lt))
}

// CreateLeaveType accepts factory JSON. A blank fiscal_year_id means the
// current fiscal year.
func (h *Handler) CreateLeaveType(w http.ResponseWriter, r *http.Request) {
	var body factory.LeaveTypeJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if body.FiscalYearID == "" {
		fy, err := h.Store.CurrentFiscalYear(ctx)
		if err != nil {
			h.writeServiceError(w, "No fiscal year given and none is current", err)
			return
		}
		body.FiscalYearID = string(fy.ID)
	}

	lt, err := h.LeaveTypes.FromJSON(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave type", err)
		return
	}
	if err := h.Store.SaveLeaveType(ctx, *lt); err != nil {
		h.writeServiceError(w, "Failed to save leave type", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.LeaveTypes.ToJSON(*lt))
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list employees", err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i, emp := range employees {
		dtos[i] = h.toEmployeeDTO(emp)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), generic.EntityID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toEmployeeDTO(*emp))
}

// SaveEmployee upserts the profile and recomputes entitlements, the way
// onboarding assigns leave.
func (h *Handler) SaveEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	joining, err := h.Calendar.Parse(req.JoiningDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid joining_date", err)
		return
	}

	emp := leave.Employee{
		ID:            generic.EntityID(req.ID),
		Name:          req.Name,
		Gender:        req.Gender,
		MaritalStatus: req.MaritalStatus,
		JobType:       req.JobType,
		BranchID:      req.BranchID,
		DepartmentID:  req.DepartmentID,
		JoiningDate:   joining,
	}
	ctx := r.Context()
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		h.writeServiceError(w, "Failed to save employee", err)
		return
	}
	balances, err := h.Entitlements.Recompute(ctx, emp.ID)
	if err != nil {
		h.writeServiceError(w, "Failed to assign leave", err)
		return
	}

	writeJSON(w, http.StatusCreated, EmployeeResponse{
		Employee: h.toEmployeeDTO(emp),
		Balances: toBalanceDTOs(balances),
	})
}

func (h *Handler) ListBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.EntityID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetEmployee(ctx, id); err != nil {
		h.writeServiceError(w, "Failed to get employee", err)
		return
	}
	balances, err := h.Store.ListBalances(ctx, id)
	if err != nil {
		h.writeServiceError(w, "Failed to list balances", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTOs(balances))
}

func (h *Handler) RecomputeEntitlements(w http.ResponseWriter, r *http.Request) {
	balances, err := h.Entitlements.Recompute(r.Context(), generic.EntityID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, "Failed to recompute entitlements", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTOs(balances))
}

// =============================================================================
// LEAVE REQUEST HANDLERS
// =============================================================================

func (h *Handler) ListLeaveRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.EntityID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetEmployee(ctx, id); err != nil {
		h.writeServiceError(w, "Failed to get employee", err)
		return
	}
	reqs, err := h.Store.ListRequests(ctx, id)
	if err != nil {
		h.writeServiceError(w, "Failed to list leave requests", err)
		return
	}
	dtos := make([]LeaveRequestDTO, len(reqs))
	for i, req := range reqs {
		dtos[i] = h.toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SubmitLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var body SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req, err := h.Requests.Submit(r.Context(), leave.Input{
		EmployeeID:  generic.EntityID(chi.URLParam(r, "id")),
		LeaveTypeID: generic.PolicyID(body.LeaveTypeID),
		StartDate:   body.StartDate,
		EndDate:     body.EndDate,
		Reason:      body.Reason,
	})
	if err != nil {
		h.writeServiceError(w, "Leave request rejected", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toRequestDTO(*req))
}

func (h *Handler) EditLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var body SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	id := generic.RequestID(chi.URLParam(r, "requestID"))
	existing, err := h.Store.GetRequest(ctx, id)
	if err != nil {
		h.writeServiceError(w, "Failed to get leave request", err)
		return
	}
	if existing.EmployeeID != generic.EntityID(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "Leave request not found for this employee", nil)
		return
	}

	req, err := h.Requests.Edit(ctx, id, leave.Input{
		LeaveTypeID: generic.PolicyID(body.LeaveTypeID),
		StartDate:   body.StartDate,
		EndDate:     body.EndDate,
		Reason:      body.Reason,
	})
	if err != nil {
		h.writeServiceError(w, "Leave request rejected", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toRequestDTO(*req))
}

func (h *Handler) UpdateLeaveRequestStatus(w http.ResponseWriter, r *http.Request) {
	var body UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	status, ok := leave.ParseStatus(body.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid status "+strconv.Quote(body.Status), nil)
		return
	}
	req, err := h.Requests.UpdateStatus(r.Context(), generic.RequestID(chi.URLParam(r, "id")), status)
	if err != nil {
		h.writeServiceError(w, "Failed to update leave request", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toRequestDTO(*req))
}

// =============================================================================
// CONVERSION
// =============================================================================

// display renders a canonical day in the display calendar, falling back to
// the canonical form for days outside the supported era.
func (h *Handler) display(tp generic.TimePoint) string {
	d, err := h.Calendar.ToDisplay(tp)
	if err != nil {
		return tp.String()
	}
	return d.String()
}

func (h *Handler) displayAll(days []generic.TimePoint) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = h.display(d)
	}
	return out
}

func (h *Handler) toFiscalYearDTO(fy leave.FiscalYear) FiscalYearDTO {
	return FiscalYearDTO{
		ID:        string(fy.ID),
		Name:      fy.Name,
		StartDate: h.display(fy.Start),
		EndDate:   h.display(fy.End),
		IsCurrent: fy.IsCurrent,
	}
}

func (h *Handler) toEmployeeDTO(emp leave.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:            string(emp.ID),
		Name:          emp.Name,
		Gender:        emp.Gender,
		MaritalStatus: emp.MaritalStatus,
		JobType:       emp.JobType,
		BranchID:      emp.BranchID,
		DepartmentID:  emp.DepartmentID,
	}
	if emp.JoiningDate != nil {
		dto.JoiningDate = h.display(*emp.JoiningDate)
	}
	return dto
}

func (h *Handler) toRequestDTO(req leave.Request) LeaveRequestDTO {
	dto := LeaveRequestDTO{
		ID:            string(req.ID),
		EmployeeID:    string(req.EmployeeID),
		LeaveTypeID:   string(req.LeaveTypeID),
		LeaveTypeCode: req.LeaveTypeCode,
		StartDate:     h.display(req.Start),
		EndDate:       h.display(req.End),
		NoOfDays:      req.NoOfDays,
		Reason:        req.Reason,
		Status:        string(req.Status),
	}
	if !req.CreatedAt.IsZero() {
		dto.CreatedAt = req.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toBalanceDTOs(balances []leave.Balance) []BalanceDTO {
	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = BalanceDTO{
			LeaveTypeID:    string(b.LeaveTypeID),
			TotalLeave:     b.TotalLeave.String(),
			LeaveTaken:     b.LeaveTaken.String(),
			LeaveRemaining: b.LeaveRemaining.String(),
			IsActive:       b.IsActive,
		}
	}
	return dtos
}

// =============================================================================
// RESPONSES
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError classifies err from a leave service or store.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	if verrs, ok := leave.AsValidation(err); ok {
		resp := ValidationErrorResponse{Error: message, Fields: verrs.ByField()}
		if fe := verrs.First(leave.KindOverlap); fe != nil && fe.Conflicts != nil {
			resp.Conflicts = &ConflictDTO{
				Roster:  h.displayAll(fe.Conflicts.Roster),
				General: h.displayAll(fe.Conflicts.General),
			}
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, leave.ErrInvalidTransition):
		writeError(w, http.StatusConflict, message, err)
	case leave.IsClientError(err),
		errors.Is(err, factory.ErrInvalidLeaveType),
		errors.Is(err, calendar.ErrInvalidDateFormat):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
