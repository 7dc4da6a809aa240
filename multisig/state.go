package multisig

import "fmt"

// State is where a multisig transaction is in its lifecycle.
type State int

const (
	// StateWaitSigned is a transaction still waiting for its initiator's signature.
	StateWaitSigned State = iota
	// StateWaitOtherSign has fewer signatures than the threshold.
	StateWaitOtherSign
	// StateWaitBroadcasted has enough signatures and has not been sent.
	StateWaitBroadcasted
	// StateCompleted was broadcast and has a real txid.
	StateCompleted
	// StateWithdrawn was cancelled before completion.
	StateWithdrawn
)

var stateNames = map[State]string{
	StateWaitSigned:      "wait_signed",
	StateWaitOtherSign:   "wait_other_sign",
	StateWaitBroadcasted: "wait_broadcasted",
	StateCompleted:       "completed",
	StateWithdrawn:       "withdrawn",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Final reports whether no further transition is possible.
func (s State) Final() bool {
	return s == StateCompleted || s == StateWithdrawn
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	name, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("%w: unknown state %d", ErrInvalidState, int(s))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for st, name := range stateNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("%w: unknown state %q", ErrInvalidState, b)
}

// stateFor is the signing state reached with count distinct signers.
func stateFor(count, required int) State {
	switch {
	case count == 0:
		return StateWaitSigned
	case count < required:
		return StateWaitOtherSign
	default:
		return StateWaitBroadcasted
	}
}
