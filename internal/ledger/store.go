package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"moneta/internal/models"
)

// BalanceStore is the storage the Reconciler needs. Implementations must run
// IncrementWalletBalance as a single atomic read-modify-write.
type BalanceStore interface {
	CategoryType(ctx context.Context, categoryID string) (models.CategoryType, error)
	IncrementWalletBalance(ctx context.Context, walletID string, delta decimal.Decimal) error
}

type gormBalanceStore struct {
	db *gorm.DB
}

// NewGormBalanceStore returns a BalanceStore over db. Pass the *gorm.DB of
// the enclosing database transaction so balance writes commit or roll back
// with the transaction row.
func NewGormBalanceStore(db *gorm.DB) BalanceStore {
	return &gormBalanceStore{db: db}
}

func (s *gormBalanceStore) CategoryType(ctx context.Context, categoryID string) (models.CategoryType, error) {
	var category models.Category
	err := s.db.WithContext(ctx).Select("id", "type").Where("id = ?", categoryID).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
		}
		return "", err
	}
	return category.Type, nil
}

func (s *gormBalanceStore) IncrementWalletBalance(ctx context.Context, walletID string, delta decimal.Decimal) error {
	result := s.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Update("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrWalletNotFound, walletID)
	}
	return nil
}
