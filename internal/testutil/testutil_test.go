package testutil_test

import (
	"testing"

	"moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"wallets", "categories", "transactions", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestSetupTestDBIsolated(t *testing.T) {
	first := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, first)
	second := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, second)

	testutil.CreateTestWallet(t, first, testutil.NewUserID(), "0")

	var count int64
	second.Model(&models.Wallet{}).Count(&count)
	if count != 0 {
		t.Errorf("expected second database to be empty, got %d wallets", count)
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	userID := testutil.NewUserID()

	wallet := testutil.CreateTestWallet(t, db, userID, "50.00")
	if wallet.ID == "" {
		t.Fatal("wallet should have an ID")
	}
	testutil.AssertBalance(t, db, wallet.ID, "50")

	category := testutil.CreateTestCategory(t, db, userID, models.CategoryTypeExpense)
	if category.Type != models.CategoryTypeExpense {
		t.Errorf("expected expense category, got %s", category.Type)
	}

	tx := testutil.CreateTestTransaction(t, db, userID, wallet.ID, category.ID, "12.50")
	if !tx.Amount.Equal(testutil.Amount("12.5")) {
		t.Errorf("expected amount 12.5, got %s", tx.Amount)
	}
	// Direct inserts leave the balance alone.
	testutil.AssertBalance(t, db, wallet.ID, "50")
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrWalletNotFound, "custom message")
	testutil.AssertAppError(t, err, "WALLET_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
