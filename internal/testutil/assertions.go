package testutil

import (
	"errors"
	"testing"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"

	"gorm.io/gorm"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertBalance reloads the wallet and compares its stored balance with expected.
func AssertBalance(t *testing.T, db *gorm.DB, walletID string, expected string) {
	t.Helper()

	var wallet models.Wallet
	if err := db.Select("id", "balance").First(&wallet, "id = ?", walletID).Error; err != nil {
		t.Fatalf("failed to reload wallet %s: %v", walletID, err)
	}
	want := Amount(expected)
	if !wallet.Balance.Equal(want) {
		t.Errorf("wallet %s: expected balance %s, got %s", walletID, want, wallet.Balance)
	}
}
