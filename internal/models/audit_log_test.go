package models

import "testing"

func TestAuditActionResourceType(t *testing.T) {
	tests := []struct {
		action AuditAction
		want   string
	}{
		{AuditCreateWallet, "wallet"},
		{AuditSetMainWallet, "wallet"},
		{AuditReorderWallets, "wallet"},
		{AuditDeleteCategory, "category"},
		{AuditUpdateTransaction, "transaction"},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			if got := tt.action.ResourceType(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
