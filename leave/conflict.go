/*
conflict.go - Day-level overlap detection between leave requests

PURPOSE:
  Given a proposed inclusive period and the employee's existing requests,
  find every day the employee already has leave on, and split those days
  into roster days and general leave days.

ALGORITHM:
  1. Keep existing requests that still block days (not Declined/Rejected)
     and whose interval intersects the proposed one.
  2. For each kept request, walk the days shared with the proposed period.
  3. A day is a roster conflict if ANY request covering it is roster
     leave ("weekly"); otherwise it is a general conflict.
  4. Both lists are sorted ascending and contain no duplicates.

  Cost is proportional to the overlapping days, so month-long spans are
  fine.

SEE ALSO:
  - validator.go: Renders conflicts as user messages
  - store.go: ListOverlappingRequests pre-filters candidates
*/
package leave

import (
	"context"
	"fmt"
	"sort"

	"github.com/warp/leave-engine/generic"
)

// ConflictSet lists the days a proposed request collides with existing leave.
type ConflictSet struct {
	Roster  []generic.TimePoint
	General []generic.TimePoint
}

func (c ConflictSet) Empty() bool { return len(c.Roster) == 0 && len(c.General) == 0 }

// FindConflicts classifies every day of proposed already covered by a
// blocking request in existing. It is pure.
func FindConflicts(proposed generic.Period, existing []Request) ConflictSet {
	roster := make(map[string]generic.TimePoint)
	general := make(map[string]generic.TimePoint)

	for _, req := range existing {
		if !req.Status.Blocking() || !req.Period().Overlaps(proposed) {
			continue
		}
		from, to := req.Start, req.End
		if from.Before(proposed.Start) {
			from = proposed.Start
		}
		if to.After(proposed.End) {
			to = proposed.End
		}
		for day := from; day.BeforeOrEqual(to); day = day.AddDays(1) {
			key := day.String()
			if req.IsRoster() {
				roster[key] = day
				delete(general, key)
			} else if _, ok := roster[key]; !ok {
				general[key] = day
			}
		}
	}

	return ConflictSet{Roster: sortedDays(roster), General: sortedDays(general)}
}

func sortedDays(set map[string]generic.TimePoint) []generic.TimePoint {
	if len(set) == 0 {
		return nil
	}
	days := make([]generic.TimePoint, 0, len(set))
	for _, d := range set {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// =============================================================================
// CONFLICT DETECTOR - store-backed lookup
// =============================================================================

// ConflictDetector loads candidate requests and classifies conflicts.
type ConflictDetector struct {
	Requests RequestStore
}

// Detect returns the conflicts of a proposed request. excludeID is the id of
// the request being edited, or empty for a new request.
func (d *ConflictDetector) Detect(ctx context.Context, employeeID generic.EntityID, proposed generic.Period, excludeID generic.RequestID) (ConflictSet, error) {
	candidates, err := d.Requests.ListOverlappingRequests(ctx, employeeID, proposed, excludeID)
	if err != nil {
		return ConflictSet{}, fmt.Errorf("load overlapping requests: %w", err)
	}
	return FindConflicts(proposed, candidates), nil
}
