package services

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"moneta/internal/logger"
	"moneta/internal/models"
)

// AuditEntry describes one user mutation to record.
type AuditEntry struct {
	Action     models.AuditAction
	ResourceID string
	IPAddress  string
	Changes    map[string]any
	// WalletIDs lists the wallets whose balance after the mutation is
	// recorded alongside Changes.
	WalletIDs []string
}

type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log writes entry to the audit trail. Failures are logged and swallowed;
// the mutation being audited has already committed.
func (s *auditService) Log(ctx context.Context, userID string, entry AuditEntry) {
	log := logger.Named("audit").With("user_id", userID, "action", entry.Action, "resource_id", entry.ResourceID)
	db := s.db.WithContext(ctx)

	changes := make(map[string]any, len(entry.Changes)+1)
	for k, v := range entry.Changes {
		changes[k] = v
	}
	if len(entry.WalletIDs) > 0 {
		balances, err := s.balances(db, userID, entry.WalletIDs)
		if err != nil {
			log.Warnw("failed to read wallet balances for audit entry", "error", err)
		} else {
			changes["balances"] = balances
		}
	}

	var changesJSON string
	if len(changes) > 0 {
		data, err := json.Marshal(changes)
		if err != nil {
			log.Errorw("failed to marshal audit log changes", "error", err)
			data = []byte("{}")
		}
		changesJSON = string(data)
	}

	record := &models.AuditLog{
		UserID:       userID,
		Action:       entry.Action,
		ResourceType: entry.Action.ResourceType(),
		ResourceID:   entry.ResourceID,
		IPAddress:    entry.IPAddress,
		Changes:      changesJSON,
	}
	if err := db.Create(record).Error; err != nil {
		log.Errorw("failed to create audit log entry", "error", err)
	}
}

// balances maps each of the user's listed wallets to its stored balance.
// Deleted wallets are left out.
func (s *auditService) balances(db *gorm.DB, userID string, walletIDs []string) (map[string]string, error) {
	var wallets []models.Wallet
	if err := db.Select("id", "balance").
		Where("user_id = ? AND id IN ?", userID, walletIDs).
		Find(&wallets).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(wallets))
	for _, w := range wallets {
		out[w.ID] = w.Balance.StringFixed(2)
	}
	return out, nil
}
