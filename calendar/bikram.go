package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/warp/leave-engine/generic"
)

var (
	// ErrOutOfRange is returned for dates outside the supported era.
	ErrOutOfRange = errors.New("date outside supported calendar range")

	// ErrInvalidDate is returned for a month or day that does not exist.
	ErrInvalidDate = errors.New("non-existent calendar date")
)

// Date is a Bikram Sambat calendar date.
type Date struct {
	Year  int
	Month int // 1 = Baisakh .. 12 = Chaitra
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// DaysInMonth returns the length of a BS month.
func DaysInMonth(year, month int) (int, error) {
	if year < MinYear || year > MaxYear {
		return 0, fmt.Errorf("%w: BS year %d", ErrOutOfRange, year)
	}
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	return monthDays[year-MinYear][month-1], nil
}

// Validate checks the date exists in the table.
func (d Date) Validate() error {
	n, err := DaysInMonth(d.Year, d.Month)
	if err != nil {
		return err
	}
	if d.Day < 1 || d.Day > n {
		return fmt.Errorf("%w: %s (month has %d days)", ErrInvalidDate, d, n)
	}
	return nil
}

// Gregorian converts the BS date to its canonical day.
func (d Date) Gregorian() (generic.TimePoint, error) {
	if err := d.Validate(); err != nil {
		return generic.TimePoint{}, err
	}
	offset := yearStart[d.Year-MinYear]
	for m := 1; m < d.Month; m++ {
		offset += monthDays[d.Year-MinYear][m-1]
	}
	offset += d.Day - 1
	return generic.FromTime(epoch).AddDays(offset), nil
}

// FromGregorian converts a canonical day to BS.
func FromGregorian(tp generic.TimePoint) (Date, error) {
	offset := generic.DaysBetween(generic.FromTime(epoch), tp)
	if offset < 0 || offset >= yearStart[len(yearStart)-1] {
		return Date{}, fmt.Errorf("%w: %s", ErrOutOfRange, tp)
	}

	// index of the last year starting at or before offset
	i := sort.Search(len(yearStart), func(i int) bool { return yearStart[i] > offset }) - 1
	rest := offset - yearStart[i]

	month := 1
	for _, n := range monthDays[i] {
		if rest < n {
			break
		}
		rest -= n
		month++
	}
	return Date{Year: MinYear + i, Month: month, Day: rest + 1}, nil
}

// SupportedRange is the canonical span the table covers.
func SupportedRange() generic.Period {
	start := generic.FromTime(epoch)
	return generic.Period{Start: start, End: start.AddDays(yearStart[len(yearStart)-1] - 1)}
}

// gregorianDate validates a Y-M-D triple without letting time.Date normalize it.
func gregorianDate(year, month, day int) (generic.TimePoint, error) {
	if month < 1 || month > 12 || day < 1 {
		return generic.TimePoint{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return generic.TimePoint{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return generic.FromTime(t), nil
}
