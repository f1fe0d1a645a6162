/*
policies.go - Pre-built leave type definitions

PURPOSE:
  Ready-to-use JSON definitions for the leave types most deployments start
  with. They build JSON directly so the factory package can import leave
  without a cycle.

AVAILABLE PRESETS:
  AnnualLeaveJSON:    Everyone, pro-rated, notice required
  SickLeaveJSON:      Everyone, no notice, capped span
  RosterLeaveJSON:    Weekly roster day off (code "weekly"), one day at a time
  MaternityLeaveJSON: Female employees only, long single span

EXAMPLE:
  jsonStr := leave.AnnualLeaveJSON("annual-2081", "fy-2081", 18)
  lt, err := factory.NewLeaveTypeFactory().ParseLeaveType(jsonStr)

SEE ALSO:
  - factory/leavetype.go: JSON to LeaveType conversion
*/
package leave

import "encoding/json"

// AnnualLeaveJSON returns JSON for annual (home) leave.
func AnnualLeaveJSON(id, fiscalYearID string, days float64) string {
	return presetJSON(map[string]interface{}{
		"id":                id,
		"code":              "annual",
		"name":              "Annual Leave",
		"fiscal_year_id":    fiscalYearID,
		"number_of_days":    days,
		"max_per_day_leave": 15,
		"pre_inform_days":   7,
	})
}

// SickLeaveJSON returns JSON for sick leave.
func SickLeaveJSON(id, fiscalYearID string, days float64) string {
	return presetJSON(map[string]interface{}{
		"id":                id,
		"code":              "sick",
		"name":              "Sick Leave",
		"fiscal_year_id":    fiscalYearID,
		"number_of_days":    days,
		"max_per_day_leave": 5,
	})
}

// RosterLeaveJSON returns JSON for the weekly roster day off.
func RosterLeaveJSON(id, fiscalYearID string, days float64) string {
	return presetJSON(map[string]interface{}{
		"id":                id,
		"code":              RosterCode,
		"name":              "Roster Leave",
		"fiscal_year_id":    fiscalYearID,
		"number_of_days":    days,
		"max_per_day_leave": 1,
	})
}

// MaternityLeaveJSON returns JSON for maternity leave.
func MaternityLeaveJSON(id, fiscalYearID string, days float64) string {
	return presetJSON(map[string]interface{}{
		"id":                id,
		"code":              "maternity",
		"name":              "Maternity Leave",
		"fiscal_year_id":    fiscalYearID,
		"gender":            "F",
		"number_of_days":    days,
		"max_per_day_leave": int(days),
		"pre_inform_days":   15,
	})
}

func presetJSON(fields map[string]interface{}) string {
	b, _ := json.MarshalIndent(fields, "", "  ")
	return string(b)
}
