/*
scheduler.go - Periodic entitlement recompute

PURPOSE:
  Entitlements are computed at onboarding, but a new fiscal year or a new
  leave type changes what every employee is owed. The scheduler recomputes
  all employees on an interval so balances follow policy changes without a
  manual trigger.

DESIGN:
  - One background goroutine, first pass immediately on Start
  - One failing employee is logged and skipped, never aborts the pass
  - Stop waits for an in-flight pass to finish

USAGE:
  s := NewEntitlementScheduler(handler.Store, handler.Entitlements, logger)
  s.CheckInterval = 6 * time.Hour
  s.Start()
  defer s.Stop()

SEE ALSO:
  - leave/accrual.go: EntitlementService.Recompute
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/leave"
)

// EntitlementScheduler recomputes every employee's balances periodically.
type EntitlementScheduler struct {
	Employees     leave.EmployeeStore
	Entitlements  *leave.EntitlementService
	Log           logrus.FieldLogger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewEntitlementScheduler(employees leave.EmployeeStore, entitlements *leave.EntitlementService, logger logrus.FieldLogger) *EntitlementScheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EntitlementScheduler{
		Employees:     employees,
		Entitlements:  entitlements,
		Log:           logger.WithField("component", "scheduler"),
		CheckInterval: 24 * time.Hour,
		Enabled:       true,
	}
}

func (s *EntitlementScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.CheckInterval <= 0 {
		s.Log.Info("entitlement scheduler disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	s.Log.WithField("interval", s.CheckInterval).Info("entitlement scheduler started")
}

func (s *EntitlementScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Log.Info("entitlement scheduler stopped")
}

func (s *EntitlementScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.RunOnce(context.Background())
	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-stop:
			return
		}
	}
}

// RunOnce recomputes every employee and returns how many succeeded.
func (s *EntitlementScheduler) RunOnce(ctx context.Context) int {
	employees, err := s.Employees.ListEmployees(ctx)
	if err != nil {
		s.Log.WithError(err).Error("list employees")
		return 0
	}

	done := 0
	for _, emp := range employees {
		if _, err := s.Entitlements.Recompute(ctx, emp.ID); err != nil {
			s.Log.WithError(err).WithField("employee", emp.ID).Warn("entitlement recompute failed")
			continue
		}
		done++
	}
	s.Log.WithFields(logrus.Fields{"employees": len(employees), "recomputed": done}).Info("entitlement pass complete")
	return done
}
