/*
accrual.go - Leave eligibility and pro-rata entitlement

PURPOSE:
  Decide which leave types an employee is eligible for and how many days
  of each they are entitled to in a fiscal year, then keep the balance
  records in step.

ELIGIBILITY:
  A leave type applies to an employee when every attribute filter passes:
  - gender:     type is "A" or equals the employee's
  - marital:    type is "A" or equals the employee's
  - job type:   type is "all" or equals the employee's
  - branch:     type lists no branches, or lists the employee's
  - department: type lists no departments, or lists the employee's
  Inactive leave types never apply.

ENTITLEMENT:
  joined on/before fiscal year start:  NumberOfDays
  joined later:                        months = (fy.End - joining).days / 30
                                       months <= 0  -> ErrNotEligible
                                       months * NumberOfDays / 12, truncated
                                       to one decimal, capped at NumberOfDays

  Example: 18 days/year, joined 5 accrual months before year end
           18 * 5 / 12 = 7.5

BALANCE UPSERT:
  New balance:      taken 0, remaining = total
  Existing balance: total replaced, remaining = max(0, total - taken),
                    re-activated. Taken days are never touched here.

SEE ALSO:
  - generic/accrual.go: ElapsedAccrualMonths and ProRata
  - store.go: BalanceStore.UpsertBalance
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// ELIGIBILITY
// =============================================================================

// Eligible reports whether every attribute filter of lt admits emp.
func Eligible(emp Employee, lt LeaveType) bool {
	if !lt.IsActive() {
		return false
	}
	if lt.Gender != AnyGender && lt.Gender != emp.Gender {
		return false
	}
	if lt.MaritalStatus != AnyMarital && lt.MaritalStatus != emp.MaritalStatus {
		return false
	}
	if lt.JobType != AnyJobType && lt.JobType != emp.JobType {
		return false
	}
	if len(lt.Branches) > 0 && !slices.Contains(lt.Branches, emp.BranchID) {
		return false
	}
	if len(lt.Departments) > 0 && !slices.Contains(lt.Departments, emp.DepartmentID) {
		return false
	}
	return true
}

// ComputeEntitlement returns the allowance of lt for someone who joined on
// joining, within fy.
func ComputeEntitlement(lt LeaveType, fy FiscalYear, joining generic.TimePoint) (generic.Amount, error) {
	full := lt.Entitlement()
	if joining.BeforeOrEqual(fy.Start) {
		return full, nil
	}
	months := generic.ElapsedAccrualMonths(joining, fy.End)
	if months <= 0 {
		return generic.Amount{}, fmt.Errorf("%w: %s joined %s, fiscal year %s ends %s",
			ErrNotEligible, lt.Code, joining, fy.Name, fy.End)
	}
	return generic.ProRata(full, months).Min(full), nil
}

// =============================================================================
// ENTITLEMENT SERVICE
// =============================================================================

// EntitlementService recomputes balances when an employee is onboarded or
// their profile changes.
type EntitlementService struct {
	Store Store
	Log   logrus.FieldLogger
}

func (s *EntitlementService) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// Recompute upserts one balance per eligible active leave type. Types the
// employee joined too late for are skipped. An employee without a joining
// date gets nothing.
func (s *EntitlementService) Recompute(ctx context.Context, employeeID generic.EntityID) ([]Balance, error) {
	emp, err := s.Store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	logger := s.log().WithField("employee", emp.ID)
	if emp.JoiningDate == nil {
		logger.Debug("no joining date, skipping entitlement recompute")
		return nil, nil
	}

	leaveTypes, err := s.Store.ListLeaveTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leave types: %w", err)
	}

	years := make(map[generic.FiscalYearID]*FiscalYear)
	var out []Balance
	for _, lt := range leaveTypes {
		if !Eligible(*emp, lt) {
			continue
		}

		fy, ok := years[lt.FiscalYearID]
		if !ok {
			fy, err = s.Store.GetFiscalYear(ctx, lt.FiscalYearID)
			if err != nil {
				return nil, fmt.Errorf("leave type %s: %w", lt.ID, err)
			}
			years[lt.FiscalYearID] = fy
		}

		total, err := ComputeEntitlement(lt, *fy, *emp.JoiningDate)
		if errors.Is(err, ErrNotEligible) {
			logger.WithField("leave_type", lt.Code).Debug("joined too late for allowance")
			continue
		}
		if err != nil {
			return nil, err
		}

		bal, err := s.Store.UpsertBalance(ctx, emp.ID, lt.ID, func(current *Balance) Balance {
			if current == nil {
				return Balance{
					EmployeeID:     emp.ID,
					LeaveTypeID:    lt.ID,
					TotalLeave:     total,
					LeaveTaken:     total.Zero(),
					LeaveRemaining: total,
					IsActive:       true,
				}
			}
			next := current.WithTotal(total)
			next.IsActive = true
			return next
		})
		if err != nil {
			return nil, fmt.Errorf("upsert balance %s/%s: %w", emp.ID, lt.ID, err)
		}
		logger.WithFields(logrus.Fields{
			"leave_type": lt.Code,
			"total":      bal.TotalLeave.String(),
			"remaining":  bal.LeaveRemaining.String(),
		}).Info("entitlement updated")
		out = append(out, bal)
	}
	return out, nil
}
