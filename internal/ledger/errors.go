package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a broken balance guarantee.
type ErrorKind string

const (
	// LookupFailure means the category type or the pre-mutation state could
	// not be resolved, so no sign could be derived and no balance changed.
	LookupFailure ErrorKind = "lookup_failure"
	// PartialMultiWalletFailure means a wallet reassignment adjusted the
	// original wallet but failed on the new one.
	PartialMultiWalletFailure ErrorKind = "partial_multi_wallet_failure"
	// IncrementFailure means a single balance increment did not apply.
	IncrementFailure ErrorKind = "increment_failure"
)

// Store errors.
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrWalletNotFound   = errors.New("wallet not found")
	ErrUnknownCategory  = errors.New("unknown category type")
	ErrStateLost        = errors.New("transaction state not captured")
)

// ReconcileError is returned by every Reconciler operation that could not
// keep the wallet balance consistent.
type ReconcileError struct {
	Kind          ErrorKind
	Operation     string
	TransactionID string
	WalletIDs     []string
	Err           error
}

func (e *ReconcileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ledger %s: %s", e.Operation, e.Kind)
	if e.TransactionID != "" {
		fmt.Fprintf(&b, " transaction=%s", e.TransactionID)
	}
	if len(e.WalletIDs) > 0 {
		fmt.Fprintf(&b, " wallets=%s", strings.Join(e.WalletIDs, ","))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ReconcileError) Unwrap() error { return e.Err }

// IsKind reports whether err carries a ReconcileError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *ReconcileError
	return errors.As(err, &re) && re.Kind == kind
}
