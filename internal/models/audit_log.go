package models

import "strings"

// AuditAction names a recorded mutation as VERB_RESOURCE.
type AuditAction string

const (
	AuditCreateWallet   AuditAction = "CREATE_WALLET"
	AuditUpdateWallet   AuditAction = "UPDATE_WALLET"
	AuditSetMainWallet  AuditAction = "SET_MAIN_WALLET"
	AuditReorderWallets AuditAction = "REORDER_WALLETS"
	AuditDeleteWallet   AuditAction = "DELETE_WALLET"

	AuditCreateCategory AuditAction = "CREATE_CATEGORY"
	AuditUpdateCategory AuditAction = "UPDATE_CATEGORY"
	AuditDeleteCategory AuditAction = "DELETE_CATEGORY"

	AuditCreateTransaction AuditAction = "CREATE_TRANSACTION"
	AuditUpdateTransaction AuditAction = "UPDATE_TRANSACTION"
	AuditDeleteTransaction AuditAction = "DELETE_TRANSACTION"
)

// ResourceType returns the lower-case resource the action touches, e.g.
// "wallet" for REORDER_WALLETS.
func (a AuditAction) ResourceType() string {
	s := string(a)
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(strings.ToLower(s), "s")
}

// AuditLog records user mutations for later review. For wallet and
// transaction actions Changes carries the post-mutation balance of every
// wallet involved under "balances".
type AuditLog struct {
	Base
	UserID       string      `gorm:"type:uuid;not null;index" json:"user_id"`
	Action       AuditAction `gorm:"not null" json:"action"`
	ResourceType string      `gorm:"not null" json:"resource_type"`
	ResourceID   string      `json:"resource_id"`
	IPAddress    string      `json:"ip_address"`
	Changes      string      `json:"changes,omitempty"`
}
