package models

import "fmt"

// DefaultCurrency is the single currency the engine settles in.
const DefaultCurrency = "GHS"

// Money is a fixed-point monetary value held in minor currency units
// (pesewas). Ledger entries never store a negative amount; direction is
// carried by the transaction type.
type Money struct {
	Amount   int64  `gorm:"column:amount;not null" json:"amount"`
	Currency string `gorm:"column:currency;size:3;not null" json:"currency"`
}

// NewMoney builds a Money value, defaulting the currency when empty.
func NewMoney(amount int64, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}
}

func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

func (m Money) IsPositive() bool { return m.Amount > 0 }

func (m Money) IsZero() bool { return m.Amount == 0 }

// String renders the amount in major units for logs and messages.
func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.Amount/100, m.Amount%100, m.Currency)
}
