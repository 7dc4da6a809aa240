package tx

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	sighash "github.com/bsv-blockchain/go-sdk/transaction/sighash"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// SignP2PKH attaches the source outputs and a P2PKH unlocker to every input
// of sdkTx and signs them all with priv. sources[i] is the output spent by
// input i.
func SignP2PKH(sdkTx *transaction.Transaction, sources []*transaction.TransactionOutput, priv *ec.PrivateKey) error {
	if sdkTx == nil || priv == nil {
		return fmt.Errorf("%w: transaction or key", ErrNilParam)
	}
	if len(sources) != len(sdkTx.Inputs) {
		return fmt.Errorf("%w: have %d source outputs but tx has %d inputs",
			ErrSigningFailed, len(sources), len(sdkTx.Inputs))
	}

	unlocker, err := p2pkh.Unlock(priv, nil)
	if err != nil {
		return fmt.Errorf("%w: create unlocker: %w", ErrSigningFailed, err)
	}
	for i, src := range sources {
		if src == nil || src.LockingScript == nil {
			return fmt.Errorf("%w: source output %d", ErrNilParam, i)
		}
		sdkTx.Inputs[i].SetSourceTxOutput(src)
		sdkTx.Inputs[i].UnlockingScriptTemplate = unlocker
	}

	if err := sdkTx.Sign(); err != nil {
		return fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return nil
}

// InputSignature signs input i of sdkTx with SIGHASH_ALL|FORKID and returns
// the DER signature followed by the sighash byte. The input's source output
// must already be attached.
func InputSignature(sdkTx *transaction.Transaction, i int, priv *ec.PrivateKey) ([]byte, error) {
	if sdkTx == nil || priv == nil {
		return nil, fmt.Errorf("%w: transaction or key", ErrNilParam)
	}
	if i < 0 || i >= len(sdkTx.Inputs) {
		return nil, fmt.Errorf("%w: input %d out of range", ErrInvalidParams, i)
	}
	hash, err := sdkTx.CalcInputSignatureHash(uint32(i), sighash.AllForkID)
	if err != nil {
		return nil, fmt.Errorf("%w: sighash input %d: %w", ErrSigningFailed, i, err)
	}
	sig, err := priv.Sign(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: sign input %d: %w", ErrSigningFailed, i, err)
	}
	return append(sig.Serialize(), byte(sighash.AllForkID)), nil
}

// VerifyInputSignature checks a signature produced by InputSignature
// against the compressed public key pub.
func VerifyInputSignature(sdkTx *transaction.Transaction, i int, sig, pub []byte) error {
	if len(sig) < 2 || sig[len(sig)-1] != byte(sighash.AllForkID) {
		return fmt.Errorf("%w: bad sighash flag", ErrInvalidSignature)
	}
	if i < 0 || i >= len(sdkTx.Inputs) {
		return fmt.Errorf("%w: input %d out of range", ErrInvalidParams, i)
	}
	hash, err := sdkTx.CalcInputSignatureHash(uint32(i), sighash.AllForkID)
	if err != nil {
		return fmt.Errorf("%w: sighash input %d: %w", ErrSigningFailed, i, err)
	}
	parsed, err := ecdsa.ParseDERSignature(sig[:len(sig)-1])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	key, err := btcec.ParsePubKey(pub)
	if err != nil {
		return fmt.Errorf("%w: public key: %w", ErrInvalidSignature, err)
	}
	if !parsed.Verify(hash, key) {
		return fmt.Errorf("%w: input %d", ErrInvalidSignature, i)
	}
	return nil
}

// P2PKHLock returns the P2PKH locking script for a native address.
func P2PKHLock(address string) (*script.Script, error) {
	addr, err := script.NewAddressFromString(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, address, err)
	}
	lock, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: P2PKH lock: %w", ErrScriptBuild, err)
	}
	return lock, nil
}

// LockForAddress returns the locking script paying address, routing
// multisig addresses to the multisig lock.
func LockForAddress(address string) (*script.Script, error) {
	if IsMultiSigAddress(address) {
		return MultiSigLockFromAddress(address)
	}
	return P2PKHLock(address)
}
