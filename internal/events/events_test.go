package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingReporter struct {
	events []IntegrityEvent
}

func (r *recordingReporter) Report(_ context.Context, e IntegrityEvent) {
	r.events = append(r.events, e)
}

type fakePublisher struct {
	exchange string
	key      string
	msg      amqp091.Publishing
	err      error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.exchange = exchange
	f.key = key
	f.msg = msg
	return f.err
}

func sampleEvent() IntegrityEvent {
	return IntegrityEvent{
		Kind:          "partial_multi_wallet_failure",
		Operation:     "update",
		TransactionID: "tx-1",
		WalletIDs:     []string{"w-1", "w-2"},
		Message:       "second wallet adjustment failed",
		OccurredAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func decodeEvent(t *testing.T, data []byte) IntegrityEvent {
	t.Helper()
	var e IntegrityEvent
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("failed to decode event %q: %v", data, err)
	}
	return e
}

func TestIntegrityEventJSONOmitsEmptyReferences(t *testing.T) {
	data, err := IntegrityEvent{Kind: "lookup_failure", Operation: "delete", Message: "category missing"}.ToJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := fields["transaction_id"]; ok {
		t.Errorf("expected transaction_id to be omitted, got %s", data)
	}
	if _, ok := fields["wallet_ids"]; ok {
		t.Errorf("expected wallet_ids to be omitted, got %s", data)
	}
	if fields["kind"] != "lookup_failure" {
		t.Errorf("expected kind lookup_failure, got %v", fields["kind"])
	}
}

func TestMultiReporter(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	m := MultiReporter{a, nil, b}

	m.Report(context.Background(), sampleEvent())

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("expected both reporters to receive the event, got %d and %d", len(a.events), len(b.events))
	}
}

func TestLogReporter(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := NewLogReporter(zap.New(core).Sugar())

	r.Report(context.Background(), sampleEvent())

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["kind"] != "partial_multi_wallet_failure" {
		t.Errorf("expected kind field, got %v", fields["kind"])
	}
	if fields["transaction_id"] != "tx-1" {
		t.Errorf("expected transaction_id field, got %v", fields["transaction_id"])
	}
}

func TestAMQPReporter(t *testing.T) {
	t.Run("publishes JSON with kind routing key", func(t *testing.T) {
		pub := &fakePublisher{}
		r := &AMQPReporter{pub: pub, exchange: "moneta.ledger", log: zap.NewNop().Sugar()}

		r.Report(context.Background(), sampleEvent())

		if pub.exchange != "moneta.ledger" {
			t.Errorf("expected exchange moneta.ledger, got %s", pub.exchange)
		}
		if pub.key != "ledger.integrity.partial_multi_wallet_failure" {
			t.Errorf("unexpected routing key %s", pub.key)
		}
		if pub.msg.ContentType != "application/json" || pub.msg.DeliveryMode != amqp091.Persistent {
			t.Errorf("unexpected publishing properties: %+v", pub.msg)
		}
		got := decodeEvent(t, pub.msg.Body)
		if got.TransactionID != "tx-1" {
			t.Errorf("expected tx-1, got %s", got.TransactionID)
		}
	})

	t.Run("publish failure is logged not returned", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		pub := &fakePublisher{err: errors.New("channel closed")}
		r := &AMQPReporter{pub: pub, exchange: "moneta.ledger", log: zap.New(core).Sugar()}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r.Report(ctx, sampleEvent())

		if logs.Len() != 1 {
			t.Errorf("expected publish failure to be logged, got %d entries", logs.Len())
		}
	})

	t.Run("close without connection", func(t *testing.T) {
		r := &AMQPReporter{}
		if err := r.Close(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
