/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Every date a client
  sends or receives is in the deployment's display calendar (BS or AD);
  the canonical Gregorian day never leaves the server except in the
  calendar endpoints, which show both.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Error and wrapper responses

SEE ALSO:
  - handlers.go: Uses these types
  - factory/leavetype.go: LeaveTypeJSON (leave types travel in factory shape)
*/
package api

// =============================================================================
// CALENDAR
// =============================================================================

// CalendarDTO describes the display calendar of this deployment.
type CalendarDTO struct {
	Mode          string `json:"mode"`
	Label         string `json:"label"`
	SupportedFrom string `json:"supported_from"`
	SupportedTo   string `json:"supported_to"`
}

// DateDTO shows one day in both calendars.
type DateDTO struct {
	Gregorian string `json:"ad"`
	Display   string `json:"display"`
	Mode      string `json:"mode"`
}

// =============================================================================
// FISCAL YEARS
// =============================================================================

type FiscalYearDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	IsCurrent bool   `json:"is_current"`
}

type CreateFiscalYearRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	IsCurrent bool   `json:"is_current"`
	// WithPresets also creates the built-in leave types for the year.
	WithPresets bool `json:"with_presets,omitempty"`
}

// =============================================================================
// EMPLOYEES AND BALANCES
// =============================================================================

type EmployeeDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Gender        string `json:"gender"`
	MaritalStatus string `json:"marital_status"`
	JobType       string `json:"job_type"`
	BranchID      string `json:"branch_id"`
	DepartmentID  string `json:"department_id"`
	JoiningDate   string `json:"joining_date,omitempty"`
}

// CreateEmployeeRequest creates or updates an employee. Entitlements are
// recomputed after every save.
type CreateEmployeeRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Gender        string `json:"gender"`
	MaritalStatus string `json:"marital_status"`
	JobType       string `json:"job_type"`
	BranchID      string `json:"branch_id"`
	DepartmentID  string `json:"department_id"`
	JoiningDate   string `json:"joining_date"`
}

type EmployeeResponse struct {
	Employee EmployeeDTO  `json:"employee"`
	Balances []BalanceDTO `json:"balances"`
}

type BalanceDTO struct {
	LeaveTypeID    string `json:"leave_type_id"`
	TotalLeave     string `json:"total_leave"`
	LeaveTaken     string `json:"leave_taken"`
	LeaveRemaining string `json:"leave_remaining"`
	IsActive       bool   `json:"is_active"`
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

type LeaveRequestDTO struct {
	ID            string `json:"id"`
	EmployeeID    string `json:"employee_id"`
	LeaveTypeID   string `json:"leave_type_id"`
	LeaveTypeCode string `json:"leave_type_code,omitempty"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	NoOfDays      int    `json:"no_of_days"`
	Reason        string `json:"reason,omitempty"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// SubmitLeaveRequest carries dates exactly as the user typed them.
type SubmitLeaveRequest struct {
	LeaveTypeID string `json:"leave_type_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Reason      string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ValidationErrorResponse is returned with 422. Fields maps a form field
// (or "__all__") to its messages.
type ValidationErrorResponse struct {
	Error     string              `json:"error"`
	Fields    map[string][]string `json:"fields"`
	Conflicts *ConflictDTO        `json:"conflicts,omitempty"`
}

// ConflictDTO lists conflicting days in the display calendar.
type ConflictDTO struct {
	Roster  []string `json:"roster"`
	General []string `json:"general"`
}
