package tx

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Multisig key-set bounds.
const (
	MinMultiSigKeys = 3
	MaxMultiSigKeys = 10
)

const (
	multiSigVersion    = byte(0x00)
	multiSigPayloadLen = 22 // hash160 || m || n
	pubKeyLen          = 33
)

// SortPubKeys validates compressed hex public keys and returns them in
// ascending byte order. Duplicates are rejected.
func SortPubKeys(pubKeys []string) ([]string, error) {
	raw, err := decodePubKeys(pubKeys)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(raw))
	for i, pk := range raw {
		out[i] = hex.EncodeToString(pk)
	}
	return out, nil
}

// ValidateMultiSig checks the key count and threshold of an M-of-N set.
func ValidateMultiSig(pubKeys []string, m int) error {
	n := len(pubKeys)
	if n < MinMultiSigKeys || n > MaxMultiSigKeys {
		return fmt.Errorf("%w: %d public keys, want %d..%d",
			ErrInvalidMultiSig, n, MinMultiSigKeys, MaxMultiSigKeys)
	}
	if m < 1 || m > n {
		return fmt.Errorf("%w: threshold %d of %d", ErrInvalidMultiSig, m, n)
	}
	_, err := decodePubKeys(pubKeys)
	return err
}

// MultiSigAddress derives the address of an M-of-N key set. The key order
// given does not matter.
func MultiSigAddress(pubKeys []string, m int) (string, error) {
	if err := ValidateMultiSig(pubKeys, m); err != nil {
		return "", err
	}
	raw, _ := decodePubKeys(pubKeys)
	payload := make([]byte, 0, multiSigPayloadLen)
	payload = append(payload, btcutil.Hash160(bytes.Join(raw, nil))...)
	payload = append(payload, byte(m), byte(len(raw)))
	return base58.CheckEncode(payload, multiSigVersion), nil
}

// IsMultiSigAddress reports whether address decodes to a multisig payload.
// Plain P2PKH addresses carry a 20-byte payload and never match.
func IsMultiSigAddress(address string) bool {
	_, _, _, err := ParseMultiSigAddress(address)
	return err == nil
}

// ParseMultiSigAddress returns the key-set hash, threshold and key count
// encoded in a multisig address.
func ParseMultiSigAddress(address string) (hash []byte, m, n int, err error) {
	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, address, err)
	}
	if version != multiSigVersion || len(payload) != multiSigPayloadLen {
		return nil, 0, 0, fmt.Errorf("%w: %q is not a multisig address", ErrInvalidAddress, address)
	}
	m, n = int(payload[20]), int(payload[21])
	if n < MinMultiSigKeys || n > MaxMultiSigKeys || m < 1 || m > n {
		return nil, 0, 0, fmt.Errorf("%w: %q encodes %d of %d", ErrInvalidAddress, address, m, n)
	}
	return payload[:20], m, n, nil
}

// MultiSigLock returns the locking script for an M-of-N key set.
func MultiSigLock(pubKeys []string, m int) (*script.Script, error) {
	if err := ValidateMultiSig(pubKeys, m); err != nil {
		return nil, err
	}
	raw, _ := decodePubKeys(pubKeys)
	return multiSigLock(btcutil.Hash160(bytes.Join(raw, nil)), m, len(raw))
}

// MultiSigLockFromAddress rebuilds the locking script from an address.
func MultiSigLockFromAddress(address string) (*script.Script, error) {
	hash, m, n, err := ParseMultiSigAddress(address)
	if err != nil {
		return nil, err
	}
	return multiSigLock(hash, m, n)
}

// multiSigLock commits to the key set by hash. The spender supplies the
// sorted keys; they are copied and concatenated, checked against hash, the
// supplied threshold is checked against m, and OP_CHECKMULTISIG runs over
// the original stack items.
//
//	[OP_(n-1) OP_PICK] x n  OP_CAT x (n-1)  OP_HASH160 <hash> OP_EQUALVERIFY
//	OP_n OP_PICK OP_m OP_NUMEQUALVERIFY OP_n OP_CHECKMULTISIG
func multiSigLock(hash []byte, m, n int) (*script.Script, error) {
	s := &script.Script{}
	for i := 0; i < n; i++ {
		if err := s.AppendOpcodes(smallInt(n-1), script.OpPICK); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
		}
	}
	for i := 0; i < n-1; i++ {
		if err := s.AppendOpcodes(script.OpCAT); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
		}
	}
	if err := s.AppendOpcodes(script.OpHASH160); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
	}
	if err := s.AppendPushData(hash); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
	}
	if err := s.AppendOpcodes(
		script.OpEQUALVERIFY,
		smallInt(n), script.OpPICK, smallInt(m), script.OpNUMEQUALVERIFY,
		smallInt(n), script.OpCHECKMULTISIG,
	); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
	}
	return s, nil
}

// MultiSigUnlock assembles OP_0 <sig>... OP_m <pub>... for one input.
// sigs must already be ordered by their signer's position in pubKeys.
func MultiSigUnlock(sigs [][]byte, pubKeys []string, m int) (*script.Script, error) {
	if len(sigs) != m {
		return nil, fmt.Errorf("%w: %d signatures for threshold %d", ErrInvalidMultiSig, len(sigs), m)
	}
	raw, err := decodePubKeys(pubKeys)
	if err != nil {
		return nil, err
	}
	s := &script.Script{}
	if err := s.AppendOpcodes(script.Op0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
	}
	for _, sig := range sigs {
		if err := s.AppendPushData(sig); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
		}
	}
	if err := s.AppendOpcodes(smallInt(m)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
	}
	for _, pk := range raw {
		if err := s.AppendPushData(pk); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
		}
	}
	return s, nil
}

// ScriptHash returns the hex of the reversed SHA256 of lock, the key the
// chain API indexes locked outputs by.
func ScriptHash(lock *script.Script) string {
	return chainhash.HashH(*lock).String()
}

// AddressScriptHash returns the script hash of a multisig address's lock.
func AddressScriptHash(address string) (string, error) {
	lock, err := MultiSigLockFromAddress(address)
	if err != nil {
		return "", err
	}
	return ScriptHash(lock), nil
}

// decodePubKeys parses hex keys and returns them sorted.
func decodePubKeys(pubKeys []string) ([][]byte, error) {
	raw := make([][]byte, len(pubKeys))
	for i, pk := range pubKeys {
		b, err := hex.DecodeString(pk)
		if err != nil || len(b) != pubKeyLen || (b[0] != 0x02 && b[0] != 0x03) {
			return nil, fmt.Errorf("%w: public key %d is not a compressed key", ErrInvalidMultiSig, i)
		}
		raw[i] = b
	}
	sort.Slice(raw, func(i, j int) bool { return bytes.Compare(raw[i], raw[j]) < 0 })
	for i := 1; i < len(raw); i++ {
		if bytes.Equal(raw[i-1], raw[i]) {
			return nil, fmt.Errorf("%w: duplicate public key", ErrInvalidMultiSig)
		}
	}
	return raw, nil
}

// smallInt returns the OP_1..OP_16 opcode for v.
func smallInt(v int) byte {
	if v == 0 {
		return script.Op0
	}
	return script.Op1 + byte(v-1)
}
