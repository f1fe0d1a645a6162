package leave

import (
	"errors"
	"fmt"
	"strings"

	"github.com/warp/leave-engine/generic"
)

var (
	// ErrValidation matches every *ValidationErrors.
	ErrValidation = errors.New("leave request is invalid")

	// ErrNotEligible is returned when an employee joined too late in the
	// fiscal year to earn any allowance of a leave type.
	ErrNotEligible = errors.New("not eligible for leave type")

	// ErrInvalidTransition is returned for a status change that is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ErrorKind classifies a user-correctable validation failure.
type ErrorKind string

const (
	KindInvalidDateFormat  ErrorKind = "invalid_date_format"
	KindRequired           ErrorKind = "required"
	KindOrdering           ErrorKind = "ordering_error"
	KindSpanTooLong        ErrorKind = "span_too_long"
	KindInsufficientNotice ErrorKind = "insufficient_notice"
	KindOverlap            ErrorKind = "overlap_error"
	KindInvalidLeaveType   ErrorKind = "invalid_leave_type"
)

// Field names used in FieldError.
const (
	FieldStart     = "start_date"
	FieldEnd       = "end_date"
	FieldLeaveType = "leave_type"
	FieldNonField  = "__all__"
)

// User-facing messages.
const (
	msgBadBSDate   = "Invalid Nepali date format or non-existent date."
	msgBadADDate   = "Invalid date format."
	msgRequired    = "This field is required."
	msgOrdering    = "End date cannot be before start date."
	msgSpan        = "You cannot take more than %d days for this leave type."
	msgNotice      = "You must apply at least %d day(s) in advance."
	msgRoster      = "Roster Leave is on: %s."
	msgGeneral     = "You have already taken leave on: %s."
	msgBadType     = "Select a valid leave type."
	msgNotAssigned = "This leave type is not assigned to you for the current fiscal year."
)

// FieldError is one rejected field.
type FieldError struct {
	Field     string
	Kind      ErrorKind
	Message   string
	Conflicts *ConflictSet // only for KindOverlap
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates every failure found for one request.
type ValidationErrors struct {
	Errors []*FieldError
}

func (v *ValidationErrors) Error() string {
	parts := make([]string, len(v.Errors))
	for i, fe := range v.Errors {
		parts[i] = fe.Error()
	}
	return "leave request is invalid: " + strings.Join(parts, "; ")
}

func (v *ValidationErrors) Is(target error) bool { return target == ErrValidation }

func (v *ValidationErrors) add(fe *FieldError) { v.Errors = append(v.Errors, fe) }

func (v *ValidationErrors) empty() bool { return len(v.Errors) == 0 }

// Has reports whether any error of the given kind was recorded.
func (v *ValidationErrors) Has(kind ErrorKind) bool {
	return v.First(kind) != nil
}

// First returns the first error of the given kind, or nil.
func (v *ValidationErrors) First(kind ErrorKind) *FieldError {
	for _, fe := range v.Errors {
		if fe.Kind == kind {
			return fe
		}
	}
	return nil
}

// ByField groups messages per field, the shape form renderers expect.
func (v *ValidationErrors) ByField() map[string][]string {
	out := make(map[string][]string)
	for _, fe := range v.Errors {
		out[fe.Field] = append(out[fe.Field], fe.Message)
	}
	return out
}

// AsValidation extracts *ValidationErrors from err.
func AsValidation(err error) (*ValidationErrors, bool) {
	var v *ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// IsClientError extends generic.IsClientError with leave-domain failures.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition) ||
		generic.IsClientError(err)
}
