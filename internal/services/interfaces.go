package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/models"
	"moneta/internal/pagination"
)

// CreateWalletInput holds the fields for a new wallet.
type CreateWalletInput struct {
	Name           string
	Currency       string
	Color          string
	OpeningBalance decimal.Decimal
}

// UpdateWalletInput holds optional wallet fields; nil means unchanged.
type UpdateWalletInput struct {
	Name     *string
	Currency *string
	Color    *string
}

// BalanceCheck compares a wallet's stored balance with the balance implied
// by its opening balance and transactions.
type BalanceCheck struct {
	WalletID         string          `json:"wallet_id"`
	Stored           decimal.Decimal `json:"stored"`
	Expected         decimal.Decimal `json:"expected"`
	Drift            decimal.Decimal `json:"drift"`
	TransactionCount int64           `json:"transaction_count"`
	Consistent       bool            `json:"consistent"`
}

// WalletServicer defines the contract for wallet-related business logic.
type WalletServicer interface {
	CreateWallet(ctx context.Context, userID string, input CreateWalletInput) (*models.Wallet, error)
	GetUserWallets(ctx context.Context, userID string) ([]models.Wallet, error)
	GetWalletByID(ctx context.Context, userID, walletID string) (*models.Wallet, error)
	GetMainWallet(ctx context.Context, userID string) (*models.Wallet, error)
	UpdateWallet(ctx context.Context, userID, walletID string, input UpdateWalletInput) (*models.Wallet, error)
	SetMainWallet(ctx context.Context, userID, walletID string) (*models.Wallet, error)
	ReorderWallets(ctx context.Context, userID string, walletIDs []string) ([]models.Wallet, error)
	DeleteWallet(ctx context.Context, userID, walletID string) error
	VerifyBalance(ctx context.Context, userID, walletID string) (*BalanceCheck, error)
}

// CreateCategoryInput holds the fields for a new category.
type CreateCategoryInput struct {
	Name  string
	Type  models.CategoryType
	Color string
	Icon  string
}

// UpdateCategoryInput holds optional category fields. The type cannot change.
type UpdateCategoryInput struct {
	Name  *string
	Color *string
	Icon  *string
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(ctx context.Context, userID string, input CreateCategoryInput) (*models.Category, error)
	GetUserCategories(ctx context.Context, userID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error)
	UpdateCategory(ctx context.Context, userID, categoryID string, input UpdateCategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) error
}

// CreateTransactionInput holds the fields for a new transaction. A zero Date
// defaults to now.
type CreateTransactionInput struct {
	WalletID    string
	CategoryID  string
	Amount      decimal.Decimal
	Description string
	Date        time.Time
}

// UpdateTransactionInput holds optional transaction fields; nil means unchanged.
type UpdateTransactionInput struct {
	WalletID    *string
	CategoryID  *string
	Amount      *decimal.Decimal
	Description *string
	Date        *time.Time
}

// TransactionFilter holds optional filter parameters for listing transactions.
// Month and Year select one calendar month; a missing half defaults to the
// current month or year.
type TransactionFilter struct {
	WalletID   *string
	CategoryID *string
	Month      *int
	Year       *int
	FromDate   *time.Time
	ToDate     *time.Time
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID string, input CreateTransactionInput) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, input UpdateTransactionInput) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
	GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID string, entry AuditEntry)
}
