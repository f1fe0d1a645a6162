/*
Package calendar converts between canonical Gregorian days and the Bikram
Sambat (BS) calendar, and parses/prints dates in whichever calendar the
deployment displays.

PURPOSE:
  Users in BS deployments type and read "2080-09-25"; storage and every
  comparison use the Gregorian day 2024-01-10. This package is the only
  place where that translation happens.

KEY TYPES:
  Mode:        Display calendar (ad or bs), resolved once from config
  Date:        A BS calendar date (year, month 1-12, day 1-32)
  Converter:   Mode-aware Format/Parse; an immutable value passed to callers

SUPPORTED ERA:
  BS 2000-01-01 .. BS 2090-12-30, i.e. AD 1943-04-14 .. AD 2034-04-13.
  BS month lengths are not computable from a rule; they come from the
  published table in data.go.

USAGE:
  conv := calendar.NewConverter(calendar.ModeBS)
  conv.Format(generic.NewTimePoint(2024, time.January, 10)) // "2080-09-25"
  day, err := conv.Parse(" 2080-09-25 ")                    // 2024-01-10

SEE ALSO:
  - generic/time.go: TimePoint (the canonical day)
  - leave/validator.go: parses request dates and renders conflict dates
*/
package calendar

import (
	"fmt"
	"strings"
)

// Mode selects the display calendar.
type Mode string

const (
	// ModeAD displays and accepts Gregorian dates.
	ModeAD Mode = "ad"
	// ModeBS displays and accepts Bikram Sambat dates.
	ModeBS Mode = "bs"
)

// DefaultMode matches a fresh deployment with no setup row.
const DefaultMode = ModeBS

// ParseMode accepts "ad"/"bs" in any case; empty means DefaultMode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultMode, nil
	case string(ModeAD), "gregorian":
		return ModeAD, nil
	case string(ModeBS), "bikram_sambat", "nepali":
		return ModeBS, nil
	default:
		return "", fmt.Errorf("unknown calendar mode %q (want %q or %q)", s, ModeAD, ModeBS)
	}
}

func (m Mode) String() string { return string(m) }

// Label is the short suffix shown next to date inputs.
func (m Mode) Label() string {
	if m == ModeBS {
		return "BS"
	}
	return "AD"
}
