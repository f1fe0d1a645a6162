package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/warp/leave-engine/generic"
)

// ErrInvalidDateFormat is the class of every Parse failure.
var ErrInvalidDateFormat = errors.New("invalid date format")

// DateFormatError describes a rejected date string.
type DateFormatError struct {
	Input string
	Mode  Mode
	Err   error // ErrInvalidDate, ErrOutOfRange or nil for a pattern mismatch
}

func (e *DateFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s date %q: %v", e.Mode.Label(), e.Input, e.Err)
	}
	return fmt.Sprintf("invalid %s date %q: expected YYYY-MM-DD", e.Mode.Label(), e.Input)
}

func (e *DateFormatError) Is(target error) bool { return target == ErrInvalidDateFormat }

func (e *DateFormatError) Unwrap() error { return e.Err }

// Same tolerance as strptime("%Y-%m-%d"): month and day may be one digit.
var datePattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)

// DisplayDate is a day expressed in the display calendar.
type DisplayDate struct {
	Mode  Mode
	Year  int
	Month int
	Day   int
}

func (d DisplayDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// =============================================================================
// CONVERTER
// =============================================================================

// Converter formats and parses dates in one display calendar. It is a plain
// value: resolve it once from configuration and pass it to whoever needs it.
type Converter struct {
	mode Mode
}

func NewConverter(mode Mode) Converter {
	if mode != ModeAD {
		mode = ModeBS
	}
	return Converter{mode: mode}
}

func (c Converter) Mode() Mode {
	if c.mode == "" {
		return DefaultMode
	}
	return c.mode
}

// ToDisplay maps a canonical day into the display calendar. In AD mode it is
// the identity and never fails.
func (c Converter) ToDisplay(tp generic.TimePoint) (DisplayDate, error) {
	if c.Mode() == ModeAD {
		return DisplayDate{Mode: ModeAD, Year: tp.Year(), Month: int(tp.Month()), Day: tp.Day()}, nil
	}
	bs, err := FromGregorian(tp)
	if err != nil {
		return DisplayDate{}, err
	}
	return DisplayDate{Mode: ModeBS, Year: bs.Year, Month: bs.Month, Day: bs.Day}, nil
}

// Format renders a canonical day for the user. Stored days are always inside
// the supported era, so a conversion failure here is a bug and panics.
func (c Converter) Format(tp generic.TimePoint) string {
	d, err := c.ToDisplay(tp)
	if err != nil {
		panic(fmt.Sprintf("calendar: cannot display %s: %v", tp, err))
	}
	return d.String()
}

// FormatAll renders days in order, joined by ", ".
func (c Converter) FormatAll(days []generic.TimePoint) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = c.Format(d)
	}
	return strings.Join(parts, ", ")
}

// Parse reads a user-typed date in the display calendar and returns the
// canonical day. Blank input means "no date" and returns (nil, nil).
func (c Converter) Parse(raw string) (*generic.TimePoint, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}

	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return nil, &DateFormatError{Input: raw, Mode: c.Mode()}
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	var (
		tp  generic.TimePoint
		err error
	)
	if c.Mode() == ModeAD {
		tp, err = gregorianDate(year, month, day)
	} else {
		tp, err = Date{Year: year, Month: month, Day: day}.Gregorian()
	}
	if err != nil {
		return nil, &DateFormatError{Input: raw, Mode: c.Mode(), Err: err}
	}
	return &tp, nil
}

// ParseRequired is Parse for mandatory fields: blank input is a format error.
func (c Converter) ParseRequired(raw string) (generic.TimePoint, error) {
	tp, err := c.Parse(raw)
	if err != nil {
		return generic.TimePoint{}, err
	}
	if tp == nil {
		return generic.TimePoint{}, &DateFormatError{Input: raw, Mode: c.Mode()}
	}
	return *tp, nil
}
