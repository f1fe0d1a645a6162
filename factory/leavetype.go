/*
Package factory provides JSON to Go leave type conversion.

PURPOSE:
  Converts JSON leave type definitions into leave.LeaveType values, so HR
  can define leave types (or load presets) without code changes.

JSON SCHEMA:
  {
    "id": "annual-2081",
    "code": "annual",
    "name": "Annual Leave",
    "fiscal_year_id": "fy-2081",
    "gender": "A",              // A (any), M, F, O
    "marital_status": "A",      // A (any), S, M
    "job_type": "all",          // "all" or a specific job type
    "branches": ["ktm"],        // empty or absent = every branch
    "departments": [],          // empty or absent = every department
    "number_of_days": 18,
    "max_per_day_leave": 15,    // 0 or absent = unlimited
    "pre_inform_days": 7,       // 0 or absent = no notice
    "status": "active",
    "description": "..."
  }

KEY FEATURES:
  - Validates JSON structure and value ranges
  - Fills eligibility wildcards when omitted
  - Round-trips through ToJSON

USAGE:
  f := factory.NewLeaveTypeFactory()
  lt, err := f.ParseLeaveType(leave.AnnualLeaveJSON("annual-2081", "fy-2081", 18))

SEE ALSO:
  - leave/types.go: LeaveType definition
  - leave/policies.go: Preset JSON definitions
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// ErrInvalidLeaveType is returned for a definition that cannot be used.
var ErrInvalidLeaveType = errors.New("invalid leave type definition")

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// LeaveTypeJSON is the JSON representation of a leave type.
type LeaveTypeJSON struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	FiscalYearID   string          `json:"fiscal_year_id"`
	Gender         string          `json:"gender,omitempty"`
	MaritalStatus  string          `json:"marital_status,omitempty"`
	JobType        string          `json:"job_type,omitempty"`
	Branches       []string        `json:"branches,omitempty"`
	Departments    []string        `json:"departments,omitempty"`
	NumberOfDays   decimal.Decimal `json:"number_of_days"`
	MaxPerDayLeave int             `json:"max_per_day_leave,omitempty"`
	PreInformDays  int             `json:"pre_inform_days,omitempty"`
	Status         string          `json:"status,omitempty"`
	Description    string          `json:"description,omitempty"`
}

// =============================================================================
// LEAVE TYPE FACTORY
// =============================================================================

// LeaveTypeFactory converts JSON leave types to Go structs.
type LeaveTypeFactory struct{}

func NewLeaveTypeFactory() *LeaveTypeFactory {
	return &LeaveTypeFactory{}
}

// ParseLeaveType parses a JSON string into a LeaveType.
func (f *LeaveTypeFactory) ParseLeaveType(jsonStr string) (*leave.LeaveType, error) {
	var lj LeaveTypeJSON
	if err := json.Unmarshal([]byte(jsonStr), &lj); err != nil {
		return nil, fmt.Errorf("failed to parse leave type JSON: %w", err)
	}
	return f.FromJSON(lj)
}

// FromJSON validates lj and converts it to a LeaveType.
func (f *LeaveTypeFactory) FromJSON(lj LeaveTypeJSON) (*leave.LeaveType, error) {
	if strings.TrimSpace(lj.ID) == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidLeaveType)
	}
	if strings.TrimSpace(lj.Code) == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidLeaveType)
	}
	if lj.FiscalYearID == "" {
		return nil, fmt.Errorf("%w: fiscal_year_id is required", ErrInvalidLeaveType)
	}
	if lj.NumberOfDays.IsNegative() {
		return nil, fmt.Errorf("%w: number_of_days must not be negative", ErrInvalidLeaveType)
	}
	if lj.MaxPerDayLeave < 0 || lj.PreInformDays < 0 {
		return nil, fmt.Errorf("%w: day limits must not be negative", ErrInvalidLeaveType)
	}

	gender, err := oneOf("gender", lj.Gender, leave.AnyGender, "A", "M", "F", "O")
	if err != nil {
		return nil, err
	}
	marital, err := oneOf("marital_status", lj.MaritalStatus, leave.AnyMarital, "A", "S", "M")
	if err != nil {
		return nil, err
	}

	status := leave.LeaveTypeStatus(strings.ToLower(lj.Status))
	switch status {
	case "":
		status = leave.LeaveTypeActive
	case leave.LeaveTypeActive, leave.LeaveTypeInactive:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidLeaveType, lj.Status)
	}

	jobType := strings.TrimSpace(lj.JobType)
	if jobType == "" {
		jobType = leave.AnyJobType
	}

	return &leave.LeaveType{
		ID:             generic.PolicyID(lj.ID),
		Code:           strings.TrimSpace(lj.Code),
		Name:           lj.Name,
		FiscalYearID:   generic.FiscalYearID(lj.FiscalYearID),
		Gender:         gender,
		MaritalStatus:  marital,
		JobType:        jobType,
		Branches:       lj.Branches,
		Departments:    lj.Departments,
		NumberOfDays:   lj.NumberOfDays,
		MaxPerDayLeave: lj.MaxPerDayLeave,
		PreInformDays:  lj.PreInformDays,
		Status:         status,
		Description:    lj.Description,
	}, nil
}

// ToJSON converts a LeaveType to LeaveTypeJSON.
func (f *LeaveTypeFactory) ToJSON(lt leave.LeaveType) LeaveTypeJSON {
	return LeaveTypeJSON{
		ID:             string(lt.ID),
		Code:           lt.Code,
		Name:           lt.Name,
		FiscalYearID:   string(lt.FiscalYearID),
		Gender:         lt.Gender,
		MaritalStatus:  lt.MaritalStatus,
		JobType:        lt.JobType,
		Branches:       lt.Branches,
		Departments:    lt.Departments,
		NumberOfDays:   lt.NumberOfDays,
		MaxPerDayLeave: lt.MaxPerDayLeave,
		PreInformDays:  lt.PreInformDays,
		Status:         string(lt.Status),
		Description:    lt.Description,
	}
}

// =============================================================================
// PRESETS
// =============================================================================

// Presets lists the built-in leave type definitions for one fiscal year.
func Presets(fiscalYearID string) []string {
	return []string{
		leave.AnnualLeaveJSON("annual-"+fiscalYearID, fiscalYearID, 18),
		leave.SickLeaveJSON("sick-"+fiscalYearID, fiscalYearID, 12),
		leave.RosterLeaveJSON("weekly-"+fiscalYearID, fiscalYearID, 52),
		leave.MaternityLeaveJSON("maternity-"+fiscalYearID, fiscalYearID, 98),
	}
}

// ParsePresets builds every preset for a fiscal year.
func (f *LeaveTypeFactory) ParsePresets(fiscalYearID string) ([]leave.LeaveType, error) {
	var out []leave.LeaveType
	for _, js := range Presets(fiscalYearID) {
		lt, err := f.ParseLeaveType(js)
		if err != nil {
			return nil, err
		}
		out = append(out, *lt)
	}
	return out, nil
}

func oneOf(field, value, def string, allowed ...string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" {
		return def, nil
	}
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s must be one of %s, got %q",
		ErrInvalidLeaveType, field, strings.Join(allowed, ", "), value)
}
