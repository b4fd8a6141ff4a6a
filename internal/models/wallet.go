package models

import "github.com/shopspring/decimal"

// Wallet is a balance-holding account owned by a user.
//
// Balance always equals OpeningBalance plus the signed sum of the wallet's
// transactions. After creation only the ledger reconciler writes Balance, and
// only through an atomic increment.
type Wallet struct {
	Base
	UserID         string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name           string          `gorm:"not null" json:"name"`
	Currency       string          `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Balance        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"balance"`
	OpeningBalance decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"opening_balance"`
	Color          string          `json:"color"`
	IsMain         bool            `gorm:"not null;default:false" json:"is_main"`
	DisplayOrder   int             `gorm:"not null;default:0" json:"display_order"`
}
