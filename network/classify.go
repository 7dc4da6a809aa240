package network

import (
	"fmt"
	"strings"

	"github.com/bitfsorg/tbcwallet-go/txerr"
)

// conflictMarkers are the node rejection texts meaning an input was already
// consumed, compared case-insensitively.
var conflictMarkers = []string{
	"missing inputs",
	"txn-mempool-conflict",
	"mempool conflict",
	"bad-txns-inputs-missingorspent",
	"inputs-missingorspent",
}

// IsConflictMessage reports whether a rejection text describes a spent or
// missing input.
func IsConflictMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, m := range conflictMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// classifyBroadcast wraps a broadcast failure in ErrBroadcastRejected and
// tags it. Connection failures stay Unknown: the transaction may or may not
// have reached the node.
func classifyBroadcast(err error) error {
	wrapped := fmt.Errorf("%w: %w", ErrBroadcastRejected, err)
	kind := txerr.Unknown
	if IsConflictMessage(err.Error()) {
		kind = txerr.Conflict
	}
	return txerr.New(kind, "network.broadcast", wrapped)
}
