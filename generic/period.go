package generic

import "fmt"

// =============================================================================
// PERIOD - Inclusive day interval
// =============================================================================

// Period is the inclusive day range [Start, End]. Leave requests, fiscal years
// and conflict windows are all Periods.
//
// Examples:
//   - Single day leave: Start == End, Len() == 1
//   - Fiscal year 2080/81: 2023-07-17 .. 2024-07-15
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod builds a Period and rejects End before Start.
func NewPeriod(start, end TimePoint) (Period, error) {
	p := Period{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate returns ErrInvalidPeriod when End is before Start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, p)
	}
	return nil
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Overlaps reports whether the two inclusive ranges share at least one day.
// [a,b] and [c,d] overlap iff a <= d and c <= b.
func (p Period) Overlaps(other Period) bool {
	return p.Start.BeforeOrEqual(other.End) && other.Start.BeforeOrEqual(p.End)
}

// Len is the number of days in the period, counting both ends.
func (p Period) Len() int {
	return DaysBetween(p.Start, p.End) + 1
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	if p.End.Before(p.Start) {
		return nil
	}
	days := make([]TimePoint, 0, p.Len())
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
