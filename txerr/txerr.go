// Package txerr defines the tagged error kinds shared by every transaction
// builder, the chain client and the broadcaster.
//
// Collaborator boundaries (chain client, key vault, FT UTXO fetch) attach a
// Kind once; callers branch on KindOf(err) instead of matching message text.
package txerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for retry and presentation decisions.
type Kind int

const (
	// Unknown is any failure that carries no explicit kind.
	Unknown Kind = iota
	// Validation covers bad addresses, non-positive amounts and malformed input.
	Validation
	// AuthFailure means a wrong password or corrupt key material.
	AuthFailure
	// ZeroBalance means there are no spendable outputs at all.
	ZeroBalance
	// InsufficientFunds means outputs exist but cannot cover amount plus fee.
	InsufficientFunds
	// MergeRequired means the FT balance is sufficient but too fragmented.
	MergeRequired
	// MergeFailed means the merge pass did not converge within its bound.
	MergeFailed
	// Conflict means a broadcast lost a double-spend race (inputs missing or
	// already in the mempool).
	Conflict
	// ThresholdNotMet means a multisig finish was attempted with too few signatures.
	ThresholdNotMet
)

var kindNames = map[Kind]string{
	Unknown:           "unknown",
	Validation:        "validation",
	AuthFailure:       "auth_failure",
	ZeroBalance:       "zero_balance",
	InsufficientFunds: "insufficient_funds",
	MergeRequired:     "merge_required",
	MergeFailed:       "merge_failed",
	Conflict:          "conflict",
	ThresholdNotMet:   "threshold_not_met",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is an error tagged with a Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New tags err with kind. Op names the failing operation ("ft.transfer").
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is New with a formatted cause.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the outermost Kind attached to err, or Unknown.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
