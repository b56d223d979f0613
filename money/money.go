// Package money provides the fixed-point monetary value used across the ledger.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownCurrency = errors.New("money: unknown currency")
	ErrInvalidAmount   = errors.New("money: invalid amount")
	ErrTooPrecise      = errors.New("money: amount has more decimals than the currency allows")
	ErrOutOfRange      = errors.New("money: amount out of range")
)

// MaxAmount is the largest magnitude, in minor units, a single recorded
// amount may have. Sums of many such amounts stay far from int64 overflow.
const MaxAmount int64 = 1_000_000_000_000_000

// Money represents a monetary value in the smallest currency unit.
// All arithmetic is integer-only, there is no floating point anywhere.
//
// Examples:
//   - New(4500, "INR") = ₹45.00 (4500 paise)
//   - New(100, "JPY")  = ¥100
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (paise, cents, ...)
	Currency string `json:"currency"` // ISO 4217 upper case: "INR", "USD"
}

// New creates a Money value of amount minor units.
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}
}

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return New(0, currency) }

// Known reports whether the currency code is an ISO 4217 code.
func Known(currency string) bool {
	return gomoney.GetCurrency(strings.ToUpper(currency)) != nil
}

// Scale returns the number of minor-unit decimals of the currency.
// Unknown currencies are treated as having two decimals.
func Scale(currency string) int32 {
	c := gomoney.GetCurrency(strings.ToUpper(currency))
	if c == nil {
		return 2
	}
	return int32(c.Fraction)
}

// Parse reads a decimal major-unit string such as "45.50" into minor units.
// It refuses values that cannot be represented exactly in the currency.
func Parse(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	minor := d.Shift(Scale(currency))
	if !minor.IsInteger() {
		return Money{}, fmt.Errorf("%w: %q in %s", ErrTooPrecise, s, strings.ToUpper(currency))
	}
	if !minor.BigInt().IsInt64() || minor.Abs().GreaterThan(decimal.NewFromInt(MaxAmount)) {
		return Money{}, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, s)
	}
	return New(minor.IntPart(), currency), nil
}

// Arithmetic operations

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount + other.Amount, Currency: cur(m, other)}
}

// CheckedAdd is Add that reports int64 overflow instead of wrapping.
func (m Money) CheckedAdd(other Money) (Money, error) {
	c := cur(m, other)
	if (other.Amount > 0 && m.Amount > math.MaxInt64-other.Amount) ||
		(other.Amount < 0 && m.Amount < math.MinInt64-other.Amount) {
		return Money{}, fmt.Errorf("%w: %d + %d", ErrOutOfRange, m.Amount, other.Amount)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: c}, nil
}

// InRange reports whether the magnitude of m is at most MaxAmount.
func (m Money) InRange() bool {
	return m.Amount >= -MaxAmount && m.Amount <= MaxAmount
}

// Sub subtracts another Money value. Panics if currencies don't match.
func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount - other.Amount, Currency: cur(m, other)}
}

// Neg returns the negative of the Money value.
func (m Money) Neg() Money { return Money{Amount: -m.Amount, Currency: m.Currency} }

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m.Amount < 0 {
		return m.Neg()
	}
	return m
}

// Min returns the smaller of two Money values. Panics if currencies don't match.
func (m Money) Min(other Money) Money {
	c := cur(m, other)
	if m.Amount <= other.Amount {
		return Money{Amount: m.Amount, Currency: c}
	}
	return Money{Amount: other.Amount, Currency: c}
}

// Cmp compares two values: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) int {
	cur(m, other)
	switch {
	case m.Amount < other.Amount:
		return -1
	case m.Amount > other.Amount:
		return 1
	}
	return 0
}

// Comparison methods

func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsPositive() bool { return m.Amount > 0 }
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if both values hold the same amount. An empty currency
// matches any currency, so a zero value compares equal to Zero("INR").
func (m Money) Equal(other Money) bool {
	if m.Amount != other.Amount {
		return false
	}
	return m.Currency == "" || other.Currency == "" || m.Currency == other.Currency
}

// Formatting methods

// FormatMajor returns the major unit string without currency symbol.
// For currencies with 2 decimal places: "49.00" for New(4900, "USD").
// For currencies with 0 decimal places: "100" for New(100, "JPY").
func (m Money) FormatMajor() string {
	scale := Scale(m.Currency)
	return decimal.New(m.Amount, -scale).StringFixed(scale)
}

// String returns the major amount followed by the currency code, "45.00 INR".
func (m Money) String() string {
	if m.Currency == "" {
		return m.FormatMajor()
	}
	return m.FormatMajor() + " " + m.Currency
}

// Display renders the value with its currency symbol, "₹45.00".
// It belongs to presentation layers only.
func (m Money) Display() string {
	if !Known(m.Currency) {
		return m.String()
	}
	return gomoney.New(m.Amount, m.Currency).Display()
}

// Sum adds all values, starting from zero in the given currency. It fails
// with ErrOutOfRange rather than wrap around.
func Sum(currency string, values ...Money) (Money, error) {
	total := Zero(currency)
	for _, v := range values {
		var err error
		if total, err = total.CheckedAdd(v); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

// cur makes the "" currency totally weak.
func cur(a, b Money) string {
	if a.Currency == "" {
		return b.Currency
	}
	if b.Currency == "" {
		return a.Currency
	}
	if a.Currency != b.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", a.Currency, b.Currency))
	}
	return a.Currency
}
