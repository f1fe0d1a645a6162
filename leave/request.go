package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// REQUEST SERVICE - validation + persistence of leave requests
// =============================================================================

// RequestService owns the request lifecycle. Submit and Edit run the
// check-then-write sequence under a per-employee lock so two concurrent
// submissions for the same days cannot both pass the overlap check.
type RequestService struct {
	Store     Store
	Validator *Validator
	Log       logrus.FieldLogger

	// NewID and Now default to uuid.NewString and time.Now.
	NewID func() string
	Now   func() time.Time

	locks keyedMutex
}

func (rs *RequestService) log() logrus.FieldLogger {
	if rs.Log == nil {
		return logrus.StandardLogger()
	}
	return rs.Log
}

func (rs *RequestService) newID() generic.RequestID {
	if rs.NewID != nil {
		return generic.RequestID(rs.NewID())
	}
	return generic.RequestID(uuid.NewString())
}

func (rs *RequestService) withinTx(ctx context.Context, fn func(context.Context) error) error {
	if tx, ok := rs.Store.(Transactor); ok {
		return tx.WithinTx(ctx, fn)
	}
	return fn(ctx)
}

func (rs *RequestService) now() time.Time {
	if rs.Now != nil {
		return rs.Now().UTC()
	}
	return time.Now().UTC()
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit validates a new request and stores it as Pending. User errors come
// back as *ValidationErrors.
func (rs *RequestService) Submit(ctx context.Context, in Input) (*Request, error) {
	if _, err := rs.Store.GetEmployee(ctx, in.EmployeeID); err != nil {
		return nil, err
	}

	unlock := rs.locks.Lock(string(in.EmployeeID))
	defer unlock()

	in.ExcludeID = ""
	norm, err := rs.Validator.Validate(ctx, in)
	if err != nil {
		return nil, err
	}

	now := rs.now()
	req := Request{
		ID:            rs.newID(),
		EmployeeID:    norm.EmployeeID,
		LeaveTypeID:   norm.LeaveType.ID,
		LeaveTypeCode: norm.LeaveType.Code,
		Start:         norm.Start,
		End:           norm.End,
		NoOfDays:      norm.NoOfDays,
		Reason:        norm.Reason,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := rs.Store.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("save leave request: %w", err)
	}

	rs.log().WithFields(logrus.Fields{
		"request":    req.ID,
		"employee":   req.EmployeeID,
		"leave_type": req.LeaveTypeCode,
		"days":       req.NoOfDays,
	}).Info("leave request submitted")
	return &req, nil
}

// =============================================================================
// EDIT
// =============================================================================

// Edit re-validates a pending request with new values. The request's own
// days never count as a conflict.
func (rs *RequestService) Edit(ctx context.Context, id generic.RequestID, in Input) (*Request, error) {
	existing, err := rs.Store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := rs.locks.Lock(string(existing.EmployeeID))
	defer unlock()

	// re-read under the lock
	existing, err = rs.Store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusPending {
		return nil, fmt.Errorf("%w: only pending requests can be edited, %s is %s",
			ErrInvalidTransition, id, existing.Status)
	}

	in.EmployeeID = existing.EmployeeID
	in.ExcludeID = id
	norm, err := rs.Validator.Validate(ctx, in)
	if err != nil {
		return nil, err
	}

	req := *existing
	req.LeaveTypeID = norm.LeaveType.ID
	req.LeaveTypeCode = norm.LeaveType.Code
	req.Start = norm.Start
	req.End = norm.End
	req.NoOfDays = norm.NoOfDays
	req.Reason = norm.Reason
	req.UpdatedAt = rs.now()
	if err := rs.Store.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("save leave request: %w", err)
	}

	rs.log().WithFields(logrus.Fields{
		"request":  req.ID,
		"employee": req.EmployeeID,
		"days":     req.NoOfDays,
	}).Info("leave request edited")
	return &req, nil
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// UpdateStatus moves a pending request to Approved, Declined or Rejected.
// Approval adds the request's days to the employee's taken leave, in the same
// transaction as the status change when the store is a Transactor.
func (rs *RequestService) UpdateStatus(ctx context.Context, id generic.RequestID, status Status) (*Request, error) {
	existing, err := rs.Store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := rs.locks.Lock(string(existing.EmployeeID))
	defer unlock()

	existing, err = rs.Store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusPending || status == StatusPending {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, status)
	}

	err = rs.withinTx(ctx, func(ctx context.Context) error {
		if status == StatusApproved {
			taken := generic.NewAmountFromInt(existing.NoOfDays, generic.UnitDays)
			_, err := rs.Store.UpsertBalance(ctx, existing.EmployeeID, existing.LeaveTypeID, func(current *Balance) Balance {
				if current == nil {
					zero := taken.Zero()
					current = &Balance{
						EmployeeID:     existing.EmployeeID,
						LeaveTypeID:    existing.LeaveTypeID,
						TotalLeave:     zero,
						LeaveTaken:     zero,
						LeaveRemaining: zero,
						IsActive:       true,
					}
				}
				return current.WithTaken(taken)
			})
			if err != nil {
				return fmt.Errorf("record taken leave: %w", err)
			}
		}
		if err := rs.Store.UpdateRequestStatus(ctx, id, status); err != nil {
			return fmt.Errorf("update request status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	existing.Status = status
	existing.UpdatedAt = rs.now()

	rs.log().WithFields(logrus.Fields{
		"request":  id,
		"employee": existing.EmployeeID,
		"status":   status,
	}).Info("leave request status changed")
	return existing, nil
}
