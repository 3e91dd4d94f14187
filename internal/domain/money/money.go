// Package money provides exact decimal amounts and rates used by all pricing
// arithmetic. Amounts round to cents, rates round to four decimal places.
package money

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const (
	// AmountPlaces is the number of decimal places kept for currency amounts.
	AmountPlaces = 2
	// RatePlaces is the number of decimal places kept for rates and multipliers.
	RatePlaces = 4
)

// Money is an immutable currency amount.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// New wraps a decimal value without rounding it.
func New(d decimal.Decimal) Money {
	return Money{d: d}
}

// FromInt returns a whole amount.
func FromInt(v int64) Money {
	return Money{d: decimal.NewFromInt(v)}
}

// Parse parses a decimal string such as "19.99".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, errors.Wrapf(err, "parse amount %q", s)
	}
	return Money{d: d}, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.d }

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// Mul returns m * r without rounding.
func (m Money) Mul(r Rate) Money { return Money{d: m.d.Mul(r.d)} }

// Times returns m multiplied by a whole quantity.
func (m Money) Times(qty int) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(int64(qty)))}
}

// Round rounds to cents, half away from zero.
func (m Money) Round() Money { return Money{d: m.d.Round(AmountPlaces)} }

// Cmp compares m and o: -1 if m < o, 0 if equal, +1 if m > o.
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

// Equal reports whether both amounts have the same numeric value.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// GreaterThan reports whether m > o.
func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }

// LessThan reports whether m < o.
func (m Money) LessThan(o Money) bool { return m.d.LessThan(o.d) }

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// IsZero reports whether m == 0.
func (m Money) IsZero() bool { return m.d.IsZero() }

// String formats the amount with exactly two decimal places.
func (m Money) String() string { return m.d.StringFixed(AmountPlaces) }

// Rate is a multiplier or a discount fraction, e.g. 1.15 or 0.2.
type Rate struct {
	d decimal.Decimal
}

// One is the neutral multiplier.
var One = Rate{d: decimal.NewFromInt(1)}

// NewRate rounds d to four decimal places.
func NewRate(d decimal.Decimal) Rate {
	return Rate{d: d.Round(RatePlaces)}
}

// ParseRate parses a decimal string such as "0.15".
func ParseRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Rate{}, errors.Wrapf(err, "parse rate %q", s)
	}
	return NewRate(d), nil
}

// MustParseRate is like ParseRate but panics on malformed input.
func MustParseRate(s string) Rate {
	r, err := ParseRate(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Decimal returns the underlying decimal value.
func (r Rate) Decimal() decimal.Decimal { return r.d }

// Complement returns 1 - r.
func (r Rate) Complement() Rate { return Rate{d: decimal.NewFromInt(1).Sub(r.d)} }

// Equal reports whether both rates have the same numeric value.
func (r Rate) Equal(o Rate) bool { return r.d.Equal(o.d) }

// IsZero reports whether r == 0.
func (r Rate) IsZero() bool { return r.d.IsZero() }

// IsNegative reports whether r < 0.
func (r Rate) IsNegative() bool { return r.d.IsNegative() }

// GreaterThan reports whether r > o.
func (r Rate) GreaterThan(o Rate) bool { return r.d.GreaterThan(o.d) }

// String formats the rate without trailing zeros.
func (r Rate) String() string { return r.d.String() }
