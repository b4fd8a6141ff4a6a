package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"moneta/internal/models"
	"moneta/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NewUserID returns a fresh user identifier. Users live in the identity
// provider, so there is no users table to insert into.
func NewUserID() string {
	return uuid.New()
}

// Amount parses a decimal literal and panics on malformed input.
func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateTestWallet creates a wallet whose balance and opening balance equal opening.
func CreateTestWallet(t *testing.T, db *gorm.DB, userID string, opening string) *models.Wallet {
	t.Helper()

	wallet := &models.Wallet{
		UserID:         userID,
		Name:           fmt.Sprintf("Test Wallet %d", nextID()),
		Currency:       "USD",
		Balance:        Amount(opening),
		OpeningBalance: Amount(opening),
	}
	if err := db.Create(wallet).Error; err != nil {
		t.Fatalf("failed to create test wallet: %v", err)
	}
	return wallet
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction inserts a transaction row directly. It does not touch
// the wallet balance; use the transaction service for reconciled writes.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, walletID, categoryID string, amount string) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:     userID,
		WalletID:   walletID,
		CategoryID: categoryID,
		Amount:     Amount(amount),
		Date:       time.Now(),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
