// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer thousandths of the currency unit so that sums
// computed by the store are exact. Parsing and formatting go through
// shopspring/decimal.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits a Money value can hold.
const MoneyScale = 3

// Money is an amount in thousandths of the currency unit (0.001 == Millis 1).
type Money struct {
	Millis int64
}

var maxMillis = decimal.NewFromInt(1<<63 - 1)

// maxExponent bounds d.Exponent() before any rescaling; anything larger is
// beyond the int64 range.
const maxExponent = 18

// NewMoneyFromDecimal converts d to Money. It rejects values with more than
// three fractional digits or outside the int64 range.
func NewMoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsZero() {
		return Money{}, nil
	}
	// Extreme exponents are rejected before rescaling. A negative exponent
	// past the coefficient's digits leaves a non-zero value below 0.001.
	exp := int64(d.Exponent())
	switch {
	case exp > maxExponent:
		return Money{}, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	case exp < -int64(MoneyScale)-int64(d.NumDigits()):
		return Money{}, fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, MoneyScale)
	}
	scaled := d.Shift(MoneyScale)
	if !scaled.Equal(scaled.Truncate(0)) {
		return Money{}, fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, MoneyScale)
	}
	if scaled.Abs().GreaterThan(maxMillis) {
		return Money{}, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	return Money{Millis: scaled.IntPart()}, nil
}

// ParseMoney parses a decimal string such as "12.5" or "12,50".
//
// Examples:
//
//	ParseMoney("12.34")  -> Money{Millis: 12340}
//	ParseMoney("0,001")  -> Money{Millis: 1}
//	ParseMoney("1.0001") -> error
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	return NewMoneyFromDecimal(d)
}

// MustParseMoney is ParseMoney for constants and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Validate rejects zero and negative amounts. The smallest accepted value is 0.001.
func (m Money) Validate() error {
	if m.Millis <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Millis, -MoneyScale)
}

func (m Money) Add(o Money) Money {
	return Money{Millis: m.Millis + o.Millis}
}

func (m Money) Sub(o Money) Money {
	return Money{Millis: m.Millis - o.Millis}
}

func (m Money) GreaterThan(o Money) bool {
	return m.Millis > o.Millis
}

func (m Money) IsZero() bool {
	return m.Millis == 0
}

// String renders the shortest exact decimal form, e.g. "1000" or "12.5".
func (m Money) String() string {
	return m.Decimal().String()
}

// StringFixed renders with two decimals for messages, e.g. "1000.00".
// Values with a non-zero third digit keep it.
func (m Money) StringFixed() string {
	if m.Millis%10 != 0 {
		return m.Decimal().StringFixed(MoneyScale)
	}
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both 12.5 and "12.5".
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	parsed, err := NewMoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
