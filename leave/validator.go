/*
validator.go - Leave request validation pipeline

PURPOSE:
  Turn a raw request (dates as the user typed them, in the deployment's
  display calendar) into a normalized request with canonical dates, or
  into a *ValidationErrors listing everything the user has to fix.

PIPELINE:
  Received -> DateParsed -> PolicyChecked -> ConflictChecked -> Accepted
                   |              |                |
                   +--------------+----------------+--> Rejected

  1. Parse start and end independently; both failures are reported.
  2. End before start: ordering error, stop (no conflict lookup).
  3. NoOfDays = end - start + 1.
  4. Longer than MaxPerDayLeave (when set): span error.
  5. |start - today| < PreInformDays (when set): notice error.
  6. Any day already covered by blocking leave: overlap error carrying
     roster days and general days.
  Steps 4 to 6 are all evaluated, so the user sees every problem at once.

NOTICE CHECK:
  The notice window is measured as an absolute distance, so a start date
  in the recent past also needs PreInformDays of distance from today.

SEE ALSO:
  - conflict.go: FindConflicts
  - calendar/converter.go: Parse and Format in the display calendar
  - request.go: RequestService (validation + persistence)
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
)

// Input is a leave request as submitted.
type Input struct {
	EmployeeID  generic.EntityID
	LeaveTypeID generic.PolicyID
	StartDate   string // display calendar, YYYY-MM-DD
	EndDate     string
	Reason      string
	// ExcludeID is the request being edited; its own days never conflict.
	ExcludeID generic.RequestID
}

// NormalizedRequest is an accepted request with canonical dates.
type NormalizedRequest struct {
	EmployeeID generic.EntityID
	LeaveType  LeaveType
	Start      generic.TimePoint
	End        generic.TimePoint
	NoOfDays   int
	Reason     string
}

func (n NormalizedRequest) Period() generic.Period {
	return generic.Period{Start: n.Start, End: n.End}
}

// Validator runs the validation pipeline. Calendar is the display calendar
// every date is parsed from and rendered in.
type Validator struct {
	Policies  PolicyStore
	Conflicts *ConflictDetector
	Calendar  calendar.Converter
	Clock     generic.Clock
	Log       logrus.FieldLogger

	// Balances and RequireAssignedBalance restrict requests to leave types
	// with an active balance in the current fiscal year.
	Balances               BalanceStore
	RequireAssignedBalance bool
}

func (v *Validator) today() generic.TimePoint {
	if v.Clock == nil {
		return generic.Today()
	}
	return v.Clock.Today()
}

func (v *Validator) log() logrus.FieldLogger {
	if v.Log == nil {
		return logrus.StandardLogger()
	}
	return v.Log
}

// Validate returns the normalized request, a *ValidationErrors for user
// errors, or a store error.
func (v *Validator) Validate(ctx context.Context, in Input) (*NormalizedRequest, error) {
	errs := &ValidationErrors{}

	lt, err := v.resolveLeaveType(ctx, in, errs)
	if err != nil {
		return nil, err
	}

	start, startOK := v.parseDate(in.StartDate, FieldStart, errs)
	end, endOK := v.parseDate(in.EndDate, FieldEnd, errs)
	if !startOK || !endOK {
		return nil, v.reject(in, errs)
	}

	if end.Before(start) {
		errs.add(&FieldError{Field: FieldEnd, Kind: KindOrdering, Message: msgOrdering})
		return nil, v.reject(in, errs)
	}

	period := generic.Period{Start: start, End: end}
	days := period.Len()

	if lt != nil {
		if lt.MaxPerDayLeave > 0 && days > lt.MaxPerDayLeave {
			errs.add(&FieldError{
				Field:   FieldEnd,
				Kind:    KindSpanTooLong,
				Message: fmt.Sprintf(msgSpan, lt.MaxPerDayLeave),
			})
		}
		if lt.PreInformDays > 0 && abs(generic.DaysBetween(v.today(), start)) < lt.PreInformDays {
			errs.add(&FieldError{
				Field:   FieldStart,
				Kind:    KindInsufficientNotice,
				Message: fmt.Sprintf(msgNotice, lt.PreInformDays),
			})
		}
	}

	conflicts, err := v.Conflicts.Detect(ctx, in.EmployeeID, period, in.ExcludeID)
	if err != nil {
		return nil, err
	}
	if !conflicts.Empty() {
		errs.add(&FieldError{
			Field:     FieldNonField,
			Kind:      KindOverlap,
			Message:   v.OverlapMessage(conflicts),
			Conflicts: &conflicts,
		})
	}

	if !errs.empty() {
		return nil, v.reject(in, errs)
	}

	v.log().WithFields(logrus.Fields{
		"employee":   in.EmployeeID,
		"leave_type": lt.Code,
		"start":      start.String(),
		"end":        end.String(),
		"days":       days,
	}).Debug("leave request accepted")

	return &NormalizedRequest{
		EmployeeID: in.EmployeeID,
		LeaveType:  *lt,
		Start:      start,
		End:        end,
		NoOfDays:   days,
		Reason:     in.Reason,
	}, nil
}

// OverlapMessage renders conflicts in the display calendar: the roster
// clause first, then the general clause, separated by a newline.
func (v *Validator) OverlapMessage(c ConflictSet) string {
	var clauses []string
	if len(c.Roster) > 0 {
		clauses = append(clauses, fmt.Sprintf(msgRoster, v.Calendar.FormatAll(c.Roster)))
	}
	if len(c.General) > 0 {
		clauses = append(clauses, fmt.Sprintf(msgGeneral, v.Calendar.FormatAll(c.General)))
	}
	return strings.Join(clauses, "\n")
}

func (v *Validator) resolveLeaveType(ctx context.Context, in Input, errs *ValidationErrors) (*LeaveType, error) {
	if in.LeaveTypeID == "" {
		errs.add(&FieldError{Field: FieldLeaveType, Kind: KindRequired, Message: msgRequired})
		return nil, nil
	}
	lt, err := v.Policies.GetLeaveType(ctx, in.LeaveTypeID)
	if generic.IsNotFound(err) || (err == nil && !lt.IsActive()) {
		errs.add(&FieldError{Field: FieldLeaveType, Kind: KindInvalidLeaveType, Message: msgBadType})
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load leave type %s: %w", in.LeaveTypeID, err)
	}

	if v.RequireAssignedBalance {
		assigned, err := v.assigned(ctx, in.EmployeeID, *lt)
		if err != nil {
			return nil, err
		}
		if !assigned {
			errs.add(&FieldError{Field: FieldLeaveType, Kind: KindInvalidLeaveType, Message: msgNotAssigned})
			return nil, nil
		}
	}
	return lt, nil
}

// assigned reports whether the employee holds an active balance of lt and lt
// belongs to the current fiscal year.
func (v *Validator) assigned(ctx context.Context, employeeID generic.EntityID, lt LeaveType) (bool, error) {
	fy, err := v.Policies.CurrentFiscalYear(ctx)
	if errors.Is(err, generic.ErrFiscalYearNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("current fiscal year: %w", err)
	}
	if lt.FiscalYearID != fy.ID {
		return false, nil
	}
	bal, err := v.Balances.GetBalance(ctx, employeeID, lt.ID)
	if generic.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load balance: %w", err)
	}
	return bal.IsActive, nil
}

func (v *Validator) parseDate(raw, field string, errs *ValidationErrors) (generic.TimePoint, bool) {
	tp, err := v.Calendar.Parse(raw)
	if err != nil {
		msg := msgBadADDate
		if v.Calendar.Mode() == calendar.ModeBS {
			msg = msgBadBSDate
		}
		errs.add(&FieldError{Field: field, Kind: KindInvalidDateFormat, Message: msg})
		return generic.TimePoint{}, false
	}
	if tp == nil {
		errs.add(&FieldError{Field: field, Kind: KindRequired, Message: msgRequired})
		return generic.TimePoint{}, false
	}
	return *tp, true
}

func (v *Validator) reject(in Input, errs *ValidationErrors) error {
	kinds := make([]string, len(errs.Errors))
	for i, fe := range errs.Errors {
		kinds[i] = string(fe.Kind)
	}
	v.log().WithFields(logrus.Fields{
		"employee":   in.EmployeeID,
		"leave_type": in.LeaveTypeID,
		"errors":     strings.Join(kinds, ","),
	}).Info("leave request rejected")
	return errs
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
