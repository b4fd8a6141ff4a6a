package models

import "github.com/shopspring/decimal"

// CategoryType classifies a category and decides the sign of its transactions.
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Valid reports whether t is a known category type.
func (t CategoryType) Valid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// Sign returns +1 for income and -1 for expense categories. Unknown types
// return zero so callers can refuse to guess.
func (t CategoryType) Sign() decimal.Decimal {
	switch t {
	case CategoryTypeIncome:
		return decimal.NewFromInt(1)
	case CategoryTypeExpense:
		return decimal.NewFromInt(-1)
	}
	return decimal.Zero
}

// Category represents a transaction category. Its type is fixed at creation.
type Category struct {
	Base
	UserID string       `gorm:"type:uuid;not null;index" json:"user_id"`
	Name   string       `gorm:"not null" json:"name"`
	Type   CategoryType `gorm:"not null" json:"type"`
	Color  string       `json:"color"`
	Icon   string       `json:"icon"`
}
