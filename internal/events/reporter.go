// Package events reports ledger integrity violations to out-of-band sinks:
// the structured log and, when configured, a RabbitMQ topic exchange.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// IntegrityEvent describes one broken balance guarantee.
type IntegrityEvent struct {
	Kind          string    `json:"kind"`
	Operation     string    `json:"operation"`
	TransactionID string    `json:"transaction_id,omitempty"`
	WalletIDs     []string  `json:"wallet_ids,omitempty"`
	Message       string    `json:"message"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ToJSON encodes the event for transport.
func (e IntegrityEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Reporter receives integrity events. Report never fails the caller; sinks
// log their own delivery errors.
type Reporter interface {
	Report(ctx context.Context, event IntegrityEvent)
}

// MultiReporter fans an event out to every wrapped reporter in order.
type MultiReporter []Reporter

// Report implements Reporter.
func (m MultiReporter) Report(ctx context.Context, event IntegrityEvent) {
	for _, r := range m {
		if r != nil {
			r.Report(ctx, event)
		}
	}
}

// NopReporter discards events.
type NopReporter struct{}

// Report implements Reporter.
func (NopReporter) Report(context.Context, IntegrityEvent) {}
