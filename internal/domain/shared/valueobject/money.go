package valueobject

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of decimal places used when money leaves the engine.
// Internal arithmetic is exact; only presentation rounds.
const DisplayPlaces int32 = 2

// Money is a single-currency monetary amount backed by an exact decimal.
// The engine does not convert currencies, so no currency code is carried.
type Money struct {
	amount decimal.Decimal
}

// NewMoney wraps an exact decimal amount
func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

// NewMoneyFromInt creates money from a whole number of units
func NewMoneyFromInt(amount int64) Money {
	return Money{amount: decimal.NewFromInt(amount)}
}

// ParseMoney parses a decimal string such as "150" or "99.95"
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{amount: d}, nil
}

// Zero returns a zero amount
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// Amount returns the underlying decimal
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is strictly positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is strictly negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns m + other
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Subtract returns m - other
func (m Money) Subtract(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Min returns the smaller of m and other
func (m Money) Min(other Money) Money {
	return Money{amount: decimal.Min(m.amount, other.amount)}
}

// Equals compares amounts numerically, so 1.0 equals 1.00
func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}

// RoundBank rounds half-to-even to the given number of places
func (m Money) RoundBank(places int32) Money {
	return Money{amount: m.amount.RoundBank(places)}
}

// Cents returns the amount in minor units, rounded half-to-even
func (m Money) Cents() int64 {
	return m.amount.Shift(DisplayPlaces).RoundBank(0).IntPart()
}

// Display returns the amount rounded for presentation, e.g. "150.00"
func (m Money) Display() string {
	return m.amount.RoundBank(DisplayPlaces).StringFixed(DisplayPlaces)
}

// String returns the exact amount
func (m Money) String() string {
	return m.amount.String()
}

// MarshalJSON renders the display form as a JSON string
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Display())
}

// UnmarshalJSON accepts either a JSON string or a JSON number
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.amount = d
	return nil
}
