package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
)

// createWalletAttempts bounds the retries of a wallet insert that lost a
// unique-index race.
const createWalletAttempts = 3

// walletService handles wallet-related business logic.
type walletService struct {
	db *gorm.DB
}

// NewWalletService creates a new WalletServicer.
func NewWalletService(db *gorm.DB) WalletServicer {
	return &walletService{db: db}
}

// CreateWallet creates a wallet whose balance starts at the opening balance.
// The user's first wallet becomes the main wallet.
func (s *walletService) CreateWallet(ctx context.Context, userID string, input CreateWalletInput) (*models.Wallet, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "wallet name is required")
	}

	if !input.OpeningBalance.Equal(input.OpeningBalance.Round(2)) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAmount, "Opening balance must have at most 2 decimal places")
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD" // Default currency
	}

	wallet := &models.Wallet{
		UserID:         userID,
		Name:           name,
		Currency:       currency,
		Color:          input.Color,
		Balance:        input.OpeningBalance,
		OpeningBalance: input.OpeningBalance,
	}

	// A concurrent create for the same user can claim the main slot between
	// the count and the insert. The unique index rejects the loser, which
	// then starts over and sees the committed wallet.
	for attempt := 1; ; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var sameName int64
			if err := tx.Model(&models.Wallet{}).
				Where("user_id = ? AND name = ?", userID, name).
				Count(&sameName).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if sameName > 0 {
				return apperrors.ErrDuplicateWallet
			}

			var existing int64
			if err := tx.Model(&models.Wallet{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			wallet.IsMain = existing == 0
			wallet.DisplayOrder = int(existing)

			return tx.Create(wallet).Error
		})
		switch {
		case err == nil:
			return wallet, nil
		case isUniqueViolation(err):
			if attempt < createWalletAttempts {
				continue
			}
			return nil, apperrors.Wrap(apperrors.ErrDuplicateWallet, err)
		case errors.As(err, new(*apperrors.AppError)):
			return nil, err
		default:
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
}

// GetUserWallets lists the user's wallets in display order.
func (s *walletService) GetUserWallets(ctx context.Context, userID string) ([]models.Wallet, error) {
	wallets := []models.Wallet{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("display_order ASC").
		Order("created_at ASC").
		Find(&wallets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return wallets, nil
}

// GetWalletByID retrieves a wallet by ID for a specific user
func (s *walletService) GetWalletByID(ctx context.Context, userID, walletID string) (*models.Wallet, error) {
	return findWallet(s.db.WithContext(ctx), userID, walletID)
}

// GetMainWallet retrieves the user's main wallet.
func (s *walletService) GetMainWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_main = ?", userID, true).
		First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMainWalletNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &wallet, nil
}

// UpdateWallet updates name, currency and color. The balance is only ever
// changed by transaction reconciliation.
func (s *walletService) UpdateWallet(ctx context.Context, userID, walletID string, input UpdateWalletInput) (*models.Wallet, error) {
	db := s.db.WithContext(ctx)
	wallet, err := findWallet(db, userID, walletID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "wallet name cannot be empty")
		}
		if name != wallet.Name {
			var count int64
			if err := db.Model(&models.Wallet{}).
				Where("user_id = ? AND name = ? AND id <> ?", userID, name, walletID).
				Count(&count).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count > 0 {
				return nil, apperrors.ErrDuplicateWallet
			}
		}
		updates["name"] = name
	}
	if input.Currency != nil {
		updates["currency"] = *input.Currency
	}
	if input.Color != nil {
		updates["color"] = *input.Color
	}

	if len(updates) > 0 {
		if err := db.Model(&models.Wallet{}).Where("id = ?", walletID).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return findWallet(db, userID, walletID)
}

// SetMainWallet makes walletID the user's only main wallet.
func (s *walletService) SetMainWallet(ctx context.Context, userID, walletID string) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findWallet(tx, userID, walletID); err != nil {
			return err
		}

		if err := tx.Model(&models.Wallet{}).
			Where("user_id = ? AND is_main = ?", userID, true).
			Update("is_main", false).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.Wallet{}).
			Where("id = ?", walletID).
			Update("is_main", true).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var err error
		wallet, err = findWallet(tx, userID, walletID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// ReorderWallets sets display_order to each wallet's position in walletIDs.
// Every ID must belong to the user.
func (s *walletService) ReorderWallets(ctx context.Context, userID string, walletIDs []string) ([]models.Wallet, error) {
	if len(walletIDs) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "wallet order must not be empty")
	}
	seen := make(map[string]struct{}, len(walletIDs))
	for _, id := range walletIDs {
		if _, dup := seen[id]; dup {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "wallet order contains duplicates")
		}
		seen[id] = struct{}{}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&models.Wallet{}).
			Where("user_id = ? AND id IN ?", userID, walletIDs).
			Count(&owned).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if owned != int64(len(walletIDs)) {
			return apperrors.WithMessage(apperrors.ErrForbidden, "one or more wallets do not belong to the user")
		}

		for i, id := range walletIDs {
			if err := tx.Model(&models.Wallet{}).
				Where("id = ?", id).
				Update("display_order", i).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetUserWallets(ctx, userID)
}

// DeleteWallet deletes a wallet that has no transactions. When the main
// wallet is deleted the next wallet in display order takes over.
func (s *walletService) DeleteWallet(ctx context.Context, userID, walletID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := findWallet(tx, userID, walletID)
		if err != nil {
			return err
		}

		var txCount int64
		if err := tx.Model(&models.Transaction{}).Where("wallet_id = ?", walletID).Count(&txCount).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if txCount > 0 {
			return apperrors.ErrWalletHasTransactions
		}

		if err := tx.Delete(wallet).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if !wallet.IsMain {
			return nil
		}
		var next models.Wallet
		err = tx.Where("user_id = ?", userID).Order("display_order ASC").Order("created_at ASC").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.Wallet{}).Where("id = ?", next.ID).Update("is_main", true).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// VerifyBalance recomputes opening_balance plus the signed sum of the
// wallet's transactions and compares it with the stored balance.
func (s *walletService) VerifyBalance(ctx context.Context, userID, walletID string) (*BalanceCheck, error) {
	db := s.db.WithContext(ctx)
	wallet, err := findWallet(db, userID, walletID)
	if err != nil {
		return nil, err
	}

	var agg struct {
		Total decimal.Decimal
		Count int64
	}
	if err := db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(CASE WHEN categories.type = ? THEN transactions.amount ELSE -transactions.amount END), 0) AS total, COUNT(*) AS count",
			models.CategoryTypeIncome).
		Joins("JOIN categories ON categories.id = transactions.category_id").
		Where("transactions.wallet_id = ?", walletID).
		Scan(&agg).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	expected := wallet.OpeningBalance.Add(agg.Total)
	drift := wallet.Balance.Sub(expected)
	return &BalanceCheck{
		WalletID:         wallet.ID,
		Stored:           wallet.Balance,
		Expected:         expected,
		Drift:            drift,
		TransactionCount: agg.Count,
		Consistent:       drift.IsZero(),
	}, nil
}

// isUniqueViolation reports whether err was raised by a unique index. The
// SQLite driver does not always translate the constraint error, so its
// message is matched as well.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func findWallet(db *gorm.DB, userID, walletID string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := db.Where("id = ? AND user_id = ?", walletID, userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &wallet, nil
}
