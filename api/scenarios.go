/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Populates the store with a realistic office so the validation rules can be
  tried from a browser or curl without typing setup data.

AVAILABLE SCENARIOS:
  kathmandu-office: Fiscal year 2080/81 with the preset leave types and
                    three employees (full year, mid-year joiner, too late)
  roster-clash:     kathmandu-office plus approved roster days and a pending
                    annual leave, so new requests hit both conflict kinds

HOW SCENARIOS WORK:
  1. Upsert fiscal year and preset leave types via the factory
  2. Upsert employees
  3. Recompute entitlements for each employee
  4. Optionally add existing requests (written directly, not validated)

Loading is idempotent: every write is an upsert keyed by a fixed id, and
taken days are only added the first time a request is written.

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "roster-clash"}

SEE ALSO:
  - handlers.go: Handler
  - factory/leavetype.go: Presets
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "kathmandu-office",
		Name:        "Kathmandu Office",
		Description: "Fiscal year 2080/81, preset leave types, full-year and mid-year joiners",
	},
	{
		ID:          "roster-clash",
		Name:        "Roster Clash",
		Description: "Kathmandu office with existing roster and annual leave to collide with",
	},
}

const demoFiscalYear = "fy-2080"

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the last scenario loaded by this process, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "kathmandu-office":
		err = h.loadKathmanduOffice(ctx)
	case "roster-clash":
		err = h.loadRosterClash(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("no scenario %q", req.ScenarioID))
		return
	}
	if err != nil {
		h.writeServiceError(w, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()
	h.Log.WithField("scenario", req.ScenarioID).Info("scenario loaded")

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario_id": req.ScenarioID})
}

// =============================================================================
// LOADERS
// =============================================================================

func (h *Handler) loadKathmanduOffice(ctx context.Context) error {
	fy := leave.FiscalYear{
		ID:        demoFiscalYear,
		Name:      "2080/81",
		Start:     generic.NewTimePoint(2023, time.July, 17),
		End:       generic.NewTimePoint(2024, time.July, 15),
		IsCurrent: true,
	}
	if err := h.Store.SaveFiscalYear(ctx, fy); err != nil {
		return err
	}

	presets, err := h.LeaveTypes.ParsePresets(demoFiscalYear)
	if err != nil {
		return err
	}
	for _, lt := range presets {
		if err := h.Store.SaveLeaveType(ctx, lt); err != nil {
			return err
		}
	}

	joined := func(y int, m time.Month, d int) *generic.TimePoint {
		tp := generic.NewTimePoint(y, m, d)
		return &tp
	}
	employees := []leave.Employee{
		{ID: "emp-ram", Name: "Ram Shrestha", Gender: "M", MaritalStatus: "M", JobType: "permanent",
			BranchID: "ktm", DepartmentID: "engineering", JoiningDate: joined(2021, time.March, 1)},
		{ID: "emp-sita", Name: "Sita Gurung", Gender: "F", MaritalStatus: "S", JobType: "permanent",
			BranchID: "ktm", DepartmentID: "finance", JoiningDate: joined(2024, time.January, 15)},
		{ID: "emp-hari", Name: "Hari Thapa", Gender: "M", MaritalStatus: "S", JobType: "contract",
			BranchID: "pkr", DepartmentID: "operations", JoiningDate: joined(2024, time.July, 1)},
	}
	for _, emp := range employees {
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			return err
		}
		if _, err := h.Entitlements.Recompute(ctx, emp.ID); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadRosterClash(ctx context.Context) error {
	if err := h.loadKathmanduOffice(ctx); err != nil {
		return err
	}

	existing := []leave.Request{
		{ID: "demo-roster-1", EmployeeID: "emp-ram", LeaveTypeID: "weekly-" + demoFiscalYear,
			Start: generic.NewTimePoint(2024, time.February, 3), End: generic.NewTimePoint(2024, time.February, 3),
			Status: leave.StatusApproved, Reason: "Saturday roster"},
		{ID: "demo-roster-2", EmployeeID: "emp-ram", LeaveTypeID: "weekly-" + demoFiscalYear,
			Start: generic.NewTimePoint(2024, time.February, 10), End: generic.NewTimePoint(2024, time.February, 10),
			Status: leave.StatusApproved, Reason: "Saturday roster"},
		{ID: "demo-annual-1", EmployeeID: "emp-ram", LeaveTypeID: "annual-" + demoFiscalYear,
			Start: generic.NewTimePoint(2024, time.February, 15), End: generic.NewTimePoint(2024, time.February, 16),
			Status: leave.StatusPending, Reason: "Family visit"},
	}
	for _, req := range existing {
		_, err := h.Store.GetRequest(ctx, req.ID)
		isNew := generic.IsNotFound(err)
		if err != nil && !isNew {
			return err
		}

		req.NoOfDays = req.Period().Len()
		if err := h.Store.SaveRequest(ctx, req); err != nil {
			return err
		}
		if !isNew || req.Status != leave.StatusApproved {
			continue
		}
		taken := generic.NewAmountFromInt(req.NoOfDays, generic.UnitDays)
		if _, err := h.Store.UpsertBalance(ctx, req.EmployeeID, req.LeaveTypeID, func(cur *leave.Balance) leave.Balance {
			if cur == nil {
				zero := taken.Zero()
				cur = &leave.Balance{TotalLeave: zero, LeaveTaken: zero, LeaveRemaining: zero, IsActive: true}
			}
			return cur.WithTaken(taken)
		}); err != nil {
			return err
		}
	}
	return nil
}
