package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "moneta/internal/errors"
	"moneta/internal/ledger"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// transactionService handles transaction-related business logic. Every
// mutation runs in one database transaction together with its balance
// reconciliation, so a failed reconciliation rolls the mutation back.
type transactionService struct {
	db         *gorm.DB
	reconciler ledger.Reconciler
	now        func() time.Time
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, reconciler ledger.Reconciler) TransactionServicer {
	return &transactionService{
		db:         db,
		reconciler: reconciler,
		now:        time.Now,
	}
}

// CreateTransaction records a transaction and applies it to the wallet balance.
func (s *transactionService) CreateTransaction(ctx context.Context, userID string, input CreateTransactionInput) (*models.Transaction, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	if input.WalletID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "wallet ID is required")
	}
	if input.CategoryID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category ID is required")
	}

	// Default date to now if not provided
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}

	transaction := &models.Transaction{
		UserID:      userID,
		WalletID:    input.WalletID,
		CategoryID:  input.CategoryID,
		Amount:      input.Amount,
		Description: input.Description,
		Date:        date,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findWallet(tx, userID, input.WalletID); err != nil {
			return err
		}
		if _, err := findCategory(tx, userID, input.CategoryID); err != nil {
			return err
		}

		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := s.reconciler.OnCreate(ctx, ledger.NewGormBalanceStore(tx), transaction); err != nil {
			return apperrors.Wrap(apperrors.ErrBalanceReconciliation, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetTransactionByID(ctx, userID, transaction.ID)
}

// UpdateTransaction applies a partial update. The pre-update snapshot is
// taken under a row lock before the write, and the balance moves from the
// snapshot to the persisted result.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, input UpdateTransactionInput) (*models.Transaction, error) {
	updates := make(map[string]interface{})
	if input.Amount != nil {
		if err := validateAmount(*input.Amount); err != nil {
			return nil, err
		}
		updates["amount"] = *input.Amount
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Date != nil {
		if input.Date.IsZero() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "date cannot be empty")
		}
		updates["date"] = *input.Date
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lockTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}
		original := ledger.SnapshotOf(existing)

		if input.WalletID != nil && *input.WalletID != existing.WalletID {
			if _, err := findWallet(tx, userID, *input.WalletID); err != nil {
				return err
			}
			updates["wallet_id"] = *input.WalletID
		}
		if input.CategoryID != nil && *input.CategoryID != existing.CategoryID {
			if _, err := findCategory(tx, userID, *input.CategoryID); err != nil {
				return err
			}
			updates["category_id"] = *input.CategoryID
		}

		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&models.Transaction{}).Where("id = ?", transactionID).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		persisted, err := loadTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}

		if err := s.reconciler.OnUpdate(ctx, ledger.NewGormBalanceStore(tx), original, ledger.SnapshotOf(persisted)); err != nil {
			return apperrors.Wrap(apperrors.ErrBalanceReconciliation, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetTransactionByID(ctx, userID, transactionID)
}

// DeleteTransaction deletes a transaction and reverses its balance effect.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lockTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}
		original := ledger.SnapshotOf(existing)

		if err := tx.Delete(&models.Transaction{}, "id = ?", transactionID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := s.reconciler.OnDelete(ctx, ledger.NewGormBalanceStore(tx), original); err != nil {
			return apperrors.Wrap(apperrors.ErrBalanceReconciliation, err)
		}
		return nil
	})
}

// GetTransactionByID retrieves a transaction with its wallet and category.
func (s *transactionService) GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	return loadTransaction(s.db.WithContext(ctx), userID, transactionID)
}

// GetUserTransactions retrieves a paginated, filtered list of the user's
// transactions, newest first.
func (s *transactionService) GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = s.applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Preload("Wallet").
		Preload("Category").
		Order("date DESC").
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *transactionService) applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.WalletID != nil {
		q = q.Where("wallet_id = ?", *f.WalletID)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.Month != nil || f.Year != nil {
		start, end := s.monthWindow(f.Month, f.Year)
		q = q.Where("date >= ? AND date < ?", start, end)
	}
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	return q
}

// monthWindow returns the half-open [start, end) range of one calendar month.
func (s *transactionService) monthWindow(month, year *int) (time.Time, time.Time) {
	now := s.now()
	y, m := now.Year(), now.Month()
	if year != nil {
		y = *year
	}
	if month != nil {
		m = time.Month(*month)
	}
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// validateAmount accepts positive amounts with at most two fractional digits,
// the scale of the money columns.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return apperrors.WithMessage(apperrors.ErrInvalidAmount, "Amount must have at most 2 decimal places")
	}
	return nil
}

// lockTransaction loads the transaction with its category and wallet and
// locks the row until the enclosing database transaction ends.
func lockTransaction(tx *gorm.DB, userID, transactionID string) (*models.Transaction, error) {
	return loadTransaction(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID, transactionID)
}

func loadTransaction(db *gorm.DB, userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := db.
		Preload("Wallet").
		Preload("Category").
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}
