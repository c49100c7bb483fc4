package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultCurrency is used when a trip or candidate does not name one.
const DefaultCurrency = "USD"

// Money is an exact amount in a single ISO 4217 currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func NewMoney(amount decimal.Decimal, code string) Money {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}
	return Money{Amount: amount, Currency: code}
}

// MoneyFromFloat is a convenience for callers holding float prices (provider payloads, tests).
func MoneyFromFloat(amount float64, code string) Money {
	return NewMoney(decimal.NewFromFloat(amount), code)
}

// ParseMoney parses a decimal string such as "450.00".
func ParseMoney(amount string, code string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("%w: amount %q is not a number: %v", ErrValidation, amount, err)
	}
	return NewMoney(d, code), nil
}

// ValidateCurrency reports whether code is a recognised ISO 4217 code.
func ValidateCurrency(code string) error {
	if _, err := currency.ParseISO(code); err != nil {
		return fmt.Errorf("%w: unknown currency %q", ErrValidation, code)
	}
	return nil
}

func (m Money) Zero() Money { return Money{Amount: decimal.Zero, Currency: m.Currency} }

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}
}

func (m Money) Sub(o Money) Money {
	return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.Currency}
}

// Scale multiplies the amount by f, e.g. 1.15 for a 15% allowance.
func (m Money) Scale(f decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(f), Currency: m.Currency}
}

// Split divides the amount into n equal shares. n must be positive.
func (m Money) Split(n int) Money {
	if n <= 0 {
		return m
	}
	return Money{Amount: m.Amount.Div(decimal.NewFromInt(int64(n))), Currency: m.Currency}
}

func (m Money) LessOrEqual(o Money) bool { return m.Amount.LessThanOrEqual(o.Amount) }

func (m Money) GreaterThan(o Money) bool { return m.Amount.GreaterThan(o.Amount) }

func (m Money) IsPositive() bool { return m.Amount.IsPositive() }

func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

// Float returns the amount as a float64 for scoring; never use it for budget checks.
func (m Money) Float() float64 { return m.Amount.InexactFloat64() }

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}
