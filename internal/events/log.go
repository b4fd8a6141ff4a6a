package events

import (
	"context"

	"go.uber.org/zap"
)

// LogReporter writes integrity events to a zap logger at error level.
type LogReporter struct {
	log *zap.SugaredLogger
}

// NewLogReporter creates a LogReporter over the given logger.
func NewLogReporter(log *zap.SugaredLogger) *LogReporter {
	return &LogReporter{log: log}
}

// Report implements Reporter.
func (r *LogReporter) Report(_ context.Context, event IntegrityEvent) {
	r.log.Errorw("Ledger integrity violation",
		"kind", event.Kind,
		"operation", event.Operation,
		"transaction_id", event.TransactionID,
		"wallet_ids", event.WalletIDs,
		"message", event.Message,
		"occurred_at", event.OccurredAt,
	)
}
