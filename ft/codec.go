// Package ft builds fungible-token transfers. A token output is a native
// output whose locking script carries the token balance and contract id in
// front of an ordinary owner lock (P2PKH or multisig). Spending one pushes
// the owner's unlock followed by the ancestor proof of the output.
package ft

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
)

const (
	// CodeOutputValue is the native value every token output carries.
	CodeOutputValue = uint64(500)

	// MaxInputs is the most token outputs one transfer spends.
	MaxInputs = 5

	contractIDLen = 32
	balanceLen    = 8
	// push(8) balance, push(32) contract id, OP_2DROP, OP_DROP
	codePrefixLen = 1 + balanceLen + 1 + contractIDLen + 2
)

// CodeLock returns the token locking script
//
//	<balance LE64> <contract id> OP_2DROP OP_DROP <owner lock>
//
// The trailing OP_DROP discards the ancestor proof pushed by the spender.
func CodeLock(contractID string, balance uint64, owner *script.Script) (*script.Script, error) {
	cid, err := decodeContractID(contractID)
	if err != nil {
		return nil, err
	}
	if owner == nil || len(*owner) == 0 {
		return nil, fmt.Errorf("%w: empty owner lock", ErrInvalidParams)
	}
	var amt [balanceLen]byte
	binary.LittleEndian.PutUint64(amt[:], balance)

	s := &script.Script{}
	if err := s.AppendPushData(amt[:]); err != nil {
		return nil, err
	}
	if err := s.AppendPushData(cid); err != nil {
		return nil, err
	}
	if err := s.AppendOpcodes(script.Op2DROP, script.OpDROP); err != nil {
		return nil, err
	}
	*s = append(*s, *owner...)
	return s, nil
}

// ParseCodeLock splits a token locking script into its parts.
func ParseCodeLock(lock *script.Script) (contractID string, balance uint64, owner *script.Script, err error) {
	if lock == nil || len(*lock) <= codePrefixLen {
		return "", 0, nil, fmt.Errorf("%w: too short", ErrInvalidCode)
	}
	b := []byte(*lock)
	if b[0] != balanceLen || b[1+balanceLen] != contractIDLen ||
		b[codePrefixLen-2] != script.Op2DROP || b[codePrefixLen-1] != script.OpDROP {
		return "", 0, nil, fmt.Errorf("%w: bad prefix", ErrInvalidCode)
	}
	balance = binary.LittleEndian.Uint64(b[1 : 1+balanceLen])
	contractID = hex.EncodeToString(b[2+balanceLen : 2+balanceLen+contractIDLen])
	rest := script.Script(append([]byte(nil), b[codePrefixLen:]...))
	return contractID, balance, &rest, nil
}

// CodeUnlock appends the ancestor proof to the owner's unlocking script.
func CodeUnlock(ownerUnlock *script.Script, proof []byte) (*script.Script, error) {
	if ownerUnlock == nil {
		return nil, fmt.Errorf("%w: nil owner unlock", ErrInvalidParams)
	}
	if len(proof) == 0 {
		return nil, fmt.Errorf("%w: empty ancestor proof", ErrInvalidParams)
	}
	s := script.Script(append([]byte(nil), *ownerUnlock...))
	if err := s.AppendPushData(proof); err != nil {
		return nil, err
	}
	return &s, nil
}

// P2PKHUnlock returns <sig> <pubkey>.
func P2PKHUnlock(sig, pubKey []byte) (*script.Script, error) {
	s := &script.Script{}
	if err := s.AppendPushData(sig); err != nil {
		return nil, err
	}
	if err := s.AppendPushData(pubKey); err != nil {
		return nil, err
	}
	return s, nil
}

// ValidateContractID checks that id is a 32-byte hex txid.
func ValidateContractID(id string) error {
	_, err := decodeContractID(id)
	return err
}

func decodeContractID(id string) ([]byte, error) {
	cid, err := hex.DecodeString(id)
	if err != nil || len(cid) != contractIDLen {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContractID, id)
	}
	return cid, nil
}
