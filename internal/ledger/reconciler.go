// Package ledger keeps wallet balances equal to the signed sum of their
// transactions. The Reconciler is invoked explicitly by the transaction
// service after each create, update and delete, inside the same database
// transaction as the write.
package ledger

import (
	"context"
	"time"

	"moneta/internal/events"
	"moneta/internal/models"
)

// Operation names used in errors and integrity events.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Reconciler applies the balance effect of transaction mutations.
type Reconciler interface {
	// OnCreate adds the signed amount of a newly inserted transaction to its wallet.
	OnCreate(ctx context.Context, store BalanceStore, tx *models.Transaction) error
	// OnUpdate moves the balance from the original state to the updated one.
	OnUpdate(ctx context.Context, store BalanceStore, original, updated *Snapshot) error
	// OnDelete reverses the signed amount of a removed transaction.
	OnDelete(ctx context.Context, store BalanceStore, original *Snapshot) error
}

type reconciler struct {
	reporter events.Reporter
	now      func() time.Time
}

// NewReconciler creates a Reconciler that reports every failure to reporter.
func NewReconciler(reporter events.Reporter) Reconciler {
	if reporter == nil {
		reporter = events.NopReporter{}
	}
	return &reconciler{reporter: reporter, now: time.Now}
}

func (r *reconciler) OnCreate(ctx context.Context, store BalanceStore, tx *models.Transaction) error {
	if tx == nil {
		return r.fail(ctx, &ReconcileError{Kind: LookupFailure, Operation: OpCreate, Err: ErrStateLost})
	}

	ct, err := store.CategoryType(ctx, tx.CategoryID)
	if err != nil {
		return r.fail(ctx, &ReconcileError{
			Kind: LookupFailure, Operation: OpCreate, TransactionID: tx.ID, Err: err,
		})
	}
	delta, err := SignedAmount(ct, tx.Amount)
	if err != nil {
		return r.fail(ctx, &ReconcileError{
			Kind: LookupFailure, Operation: OpCreate, TransactionID: tx.ID, Err: err,
		})
	}

	if err := store.IncrementWalletBalance(ctx, tx.WalletID, delta); err != nil {
		return r.fail(ctx, &ReconcileError{
			Kind: IncrementFailure, Operation: OpCreate, TransactionID: tx.ID,
			WalletIDs: []string{tx.WalletID}, Err: err,
		})
	}
	return nil
}

func (r *reconciler) OnUpdate(ctx context.Context, store BalanceStore, original, updated *Snapshot) error {
	if original == nil || updated == nil {
		re := &ReconcileError{Kind: LookupFailure, Operation: OpUpdate, Err: ErrStateLost}
		if updated != nil {
			re.TransactionID = updated.TransactionID
		} else if original != nil {
			re.TransactionID = original.TransactionID
		}
		return r.fail(ctx, re)
	}

	originalDelta, err := original.Delta()
	if err != nil {
		return r.fail(ctx, &ReconcileError{
			Kind: LookupFailure, Operation: OpUpdate, TransactionID: original.TransactionID, Err: err,
		})
	}
	newDelta, err := updated.Delta()
	if err != nil {
		return r.fail(ctx, &ReconcileError{
			Kind: LookupFailure, Operation: OpUpdate, TransactionID: updated.TransactionID, Err: err,
		})
	}

	if original.WalletID != updated.WalletID {
		if err := store.IncrementWalletBalance(ctx, original.WalletID, originalDelta.Neg()); err != nil {
			return r.fail(ctx, &ReconcileError{
				Kind: IncrementFailure, Operation: OpUpdate, TransactionID: updated.TransactionID,
				WalletIDs: []string{original.WalletID}, Err: err,
			})
		}
		if err := store.IncrementWalletBalance(ctx, updated.WalletID, newDelta); err != nil {
			return r.fail(ctx, &ReconcileError{
				Kind: PartialMultiWalletFailure, Operation: OpUpdate, TransactionID: updated.TransactionID,
				WalletIDs: []string{original.WalletID, updated.WalletID}, Err: err,
			})
		}
		return nil
	}

	net := newDelta.Sub(originalDelta)
	if net.IsZero() {
		return nil
	}
	if err := store.IncrementWalletBalance(ctx, updated.WalletID, net); err != nil {
		return r.fail(ctx, &ReconcileError{
			Kind: IncrementFailure, Operation: OpUpdate, TransactionID: updated.TransactionID,
			WalletIDs: []string{updated.WalletID}, Err: err,
		})
	}
	return nil
}

func (r *reconciler) OnDelete(ctx context.Context, store BalanceStore, original *Snapshot) error {
	if original == nil {
		return r.fail(ctx, &ReconcileError{Kind: LookupFailure, Operation: OpDelete, Err: ErrStateLost})
	}

	delta, err := original.Delta()
	if err != nil {
		return r.fail(ctx, &ReconcileError{
			Kind: LookupFailure, Operation: OpDelete, TransactionID: original.TransactionID, Err: err,
		})
	}
	if err := store.IncrementWalletBalance(ctx, original.WalletID, delta.Neg()); err != nil {
		return r.fail(ctx, &ReconcileError{
			Kind: IncrementFailure, Operation: OpDelete, TransactionID: original.TransactionID,
			WalletIDs: []string{original.WalletID}, Err: err,
		})
	}
	return nil
}

// fail reports re and returns it.
func (r *reconciler) fail(ctx context.Context, re *ReconcileError) error {
	msg := string(re.Kind)
	if re.Err != nil {
		msg = re.Err.Error()
	}
	r.reporter.Report(ctx, events.IntegrityEvent{
		Kind:          string(re.Kind),
		Operation:     re.Operation,
		TransactionID: re.TransactionID,
		WalletIDs:     re.WalletIDs,
		Message:       msg,
		OccurredAt:    r.now().UTC(),
	})
	return re
}
