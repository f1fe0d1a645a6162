/*
errors.go - Centralized error types for the engine

PURPOSE:
  All sentinel errors in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Lookup errors - Referenced record does not exist
  2. Validation errors - Malformed input (bad period)
  3. Store errors - Database-level failures (wrapped, never sentinel)

USAGE:
  Store implementations return lookup errors wrapped with the id:

    return nil, fmt.Errorf("%w: %s", generic.ErrEntityNotFound, id)

  Callers classify:

    if generic.IsNotFound(err) { ... 404 ... }

SEE ALSO:
  - leave/errors.go: user-facing validation error kinds
  - api/handlers.go: HTTP status mapping
*/
package generic

import (
	"errors"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEntityNotFound is returned when a referenced employee doesn't exist.
	ErrEntityNotFound = errors.New("employee not found")

	// ErrPolicyNotFound is returned when a referenced leave type doesn't exist.
	ErrPolicyNotFound = errors.New("leave type not found")

	// ErrRequestNotFound is returned when a referenced leave request doesn't exist.
	ErrRequestNotFound = errors.New("leave request not found")

	// ErrFiscalYearNotFound is returned when a referenced fiscal year doesn't exist,
	// or when no fiscal year is flagged current.
	ErrFiscalYearNotFound = errors.New("fiscal year not found")

	// ErrBalanceNotFound is returned when an employee holds no balance of a leave type.
	ErrBalanceNotFound = errors.New("leave balance not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrDuplicateRecord is returned when an insert collides with an existing key.
	ErrDuplicateRecord = errors.New("duplicate record")
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrDuplicateRecord)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrFiscalYearNotFound) ||
		errors.Is(err, ErrBalanceNotFound)
}
