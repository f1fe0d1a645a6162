/*
Package generic provides the calendar-agnostic building blocks of the leave engine.

PURPOSE:
  This package holds the small value types every other package shares: the
  canonical day (TimePoint), inclusive day ranges (Period), decimal day
  quantities (Amount), typed identifiers and the sentinel errors. It knows
  nothing about leave policies or display calendars.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A decimal number of days (e.g., 7.5 days of annual leave)
  - EntityID / PolicyID / RequestID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 13 * 5 / 12 truncates to 5.4 exactly
  2. Type Safety: Strong typing for IDs prevents mixing employee/leave type IDs
  3. Canonical Dates: Gregorian UTC days only; BS dates live in package calendar

USAGE:
  amount := generic.NewAmount(7.5, generic.UnitDays)
  whole := generic.NewAmountFromInt(12, generic.UnitDays)

SEE ALSO:
  - time.go: TimePoint and Clock
  - period.go: Period and overlap tests
  - accrual.go: Pro-rata arithmetic
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity of leave days
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays Unit = "days"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

func Days(value decimal.Decimal) Amount {
	return Amount{Value: value, Unit: UnitDays}
}

// MustParseDecimal is decimal.NewFromString for literals; it panics on
// malformed input.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Div(s decimal.Decimal) Amount { return Amount{Value: a.Value.Div(s), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) String() string               { return a.Value.String() }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// FloorTenth truncates toward zero at one decimal digit: 3.27 -> 3.2, -3.27 -> -3.2.
// Entitlements are floored this way, never rounded.
func (a Amount) FloorTenth() Amount {
	return Amount{Value: a.Value.Truncate(1), Unit: a.Unit}
}

// NonNegative clamps a negative amount to zero.
func (a Amount) NonNegative() Amount {
	if a.IsNegative() {
		return a.Zero()
	}
	return a
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EntityID identifies an employee.
type EntityID string

// PolicyID identifies a leave type.
type PolicyID string

// RequestID identifies a leave request.
type RequestID string

// FiscalYearID identifies a fiscal year.
type FiscalYearID string
