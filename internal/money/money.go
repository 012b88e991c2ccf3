// Package money provides the fixed-point amount type used for every cash
// field. Values always carry exactly two fraction digits and all arithmetic is
// decimal, so summing hundreds of line items never drifts by a cent.
package money

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits kept by Money.
const Scale = 2

var (
	ErrInvalid   = errors.New("money: invalid amount")
	ErrPrecision = errors.New("money: more than two fraction digits")
)

// Money is a decimal amount with two fraction digits. The zero value is 0.00.
type Money struct {
	d decimal.Decimal
}

// Zero is 0.00.
var Zero = Money{}

// Max is the largest magnitude a numeric(12,2) column can store.
var Max = Money{d: decimal.New(999_999_999_999, -Scale)}

// Parse reads an amount such as "830", "830.5" or "-5.00".
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return fromDecimal(d)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromCents builds an amount from minor units.
func FromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -Scale)}
}

// FromDecimal converts a decimal, rejecting sub-cent precision.
func FromDecimal(d decimal.Decimal) (Money, error) {
	return fromDecimal(d)
}

func fromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Round(Scale)) {
		return Zero, fmt.Errorf("%w: %s", ErrPrecision, d.String())
	}
	return Money{d: d.Round(Scale)}, nil
}

// Sum adds all amounts.
func Sum(amounts ...Money) Money {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.d)
	}
	return Money{d: total}
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money { return Money{d: m.d.Neg()} }

// Mul multiplies by an integer quantity.
func (m Money) Mul(qty int64) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(qty))}
}

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }
func (m Money) IsZero() bool { return m.d.IsZero() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }
func (m Money) Decimal() decimal.Decimal { return m.d }

// InRange reports whether m fits a numeric(12,2) column, i.e. |m| <= Max.
func (m Money) InRange() bool { return m.d.Abs().Cmp(Max.d) <= 0 }

// Cents returns the amount in minor units.
func (m Money) Cents() int64 {
	return m.d.Shift(Scale).IntPart()
}

// String renders the amount with exactly two fraction digits.
func (m Money) String() string {
	return m.d.StringFixed(Scale)
}

// MarshalJSON encodes the amount as a string to keep exactness on the wire.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both "12.50" and 12.50.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Zero
		return nil
	}
	parsed, err := Parse(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Scan implements sql.Scanner for numeric columns.
func (m *Money) Scan(value any) error {
	if value == nil {
		*m = Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("money scan: %w", err)
	}
	*m = Money{d: d.Round(Scale)}
	return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Ptr returns a pointer to a copy of m, for nullable columns.
func (m Money) Ptr() *Money {
	return &m
}
