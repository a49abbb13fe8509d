// Package money provides a fixed-point currency amount. Amounts are whole
// cents; arithmetic never touches floating point.
package money

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Amount is a currency value in cents.
type Amount int64

const Zero Amount = 0

// FromCents builds an Amount from a cent count.
func FromCents(c int64) Amount { return Amount(c) }

// FromUnits builds an Amount from whole currency units.
func FromUnits(u int64) Amount { return Amount(u * 100) }

// Cents returns the raw cent count.
func (a Amount) Cents() int64 { return int64(a) }

// Mul multiplies by an integer quantity.
func (a Amount) Mul(qty int) Amount { return a * Amount(qty) }

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool { return a < 0 }

func (a Amount) IsZero() bool { return a == 0 }

// Sum adds amounts.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total += a
	}
	return total
}

// String renders the amount with exactly two fraction digits.
func (a Amount) String() string {
	sign := ""
	c := int64(a)
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Parse reads a decimal string with at most two fraction digits.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && (!hasFrac || frac == "") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		// Accept trailing zeros from JSON encoders, reject real sub-cent precision.
		if strings.Trim(frac[2:], "0") != "" {
			return 0, fmt.Errorf("amount %q has more than two decimal places", s)
		}
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || cents < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if units > (1<<62)/100 {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	total := units*100 + cents
	if neg {
		total = -total
	}
	return Amount(total), nil
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the amount as a decimal string, e.g. "150.00".
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

// UnmarshalJSON accepts either a JSON number or a decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		unq, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
		raw = unq
	}
	if strings.ContainsAny(raw, "eE") {
		return fmt.Errorf("amount %q must not use exponent notation", raw)
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
