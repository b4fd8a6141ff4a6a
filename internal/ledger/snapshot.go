package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"moneta/internal/models"
)

// Snapshot is the balance-relevant state of a transaction at one instant.
type Snapshot struct {
	TransactionID string
	WalletID      string
	CategoryID    string
	CategoryType  models.CategoryType
	Amount        decimal.Decimal
}

// SnapshotOf captures t, which must have been loaded with its Category.
// It returns nil when t is nil or its category was not loaded.
func SnapshotOf(t *models.Transaction) *Snapshot {
	if t == nil || t.Category == nil {
		return nil
	}
	return &Snapshot{
		TransactionID: t.ID,
		WalletID:      t.WalletID,
		CategoryID:    t.CategoryID,
		CategoryType:  t.Category.Type,
		Amount:        t.Amount,
	}
}

// Delta is the signed effect of the snapshot on its wallet balance.
func (s *Snapshot) Delta() (decimal.Decimal, error) {
	return SignedAmount(s.CategoryType, s.Amount)
}

// SignedAmount returns +amount for income and -amount for expense.
func SignedAmount(ct models.CategoryType, amount decimal.Decimal) (decimal.Decimal, error) {
	if !ct.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownCategory, ct)
	}
	return amount.Mul(ct.Sign()), nil
}
