package wallet

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

// TweakPrivateKey applies the BIP341 key-path tweak (no script tree) so the
// same key material signs for the Taproot-derived native address.
//
// Both FromBytes calls return (private, public) and cannot fail: the input
// is always a serialized 32-byte scalar, so the discarded values are the
// derived public keys.
func TweakPrivateKey(priv *ec.PrivateKey) *ec.PrivateKey {
	bpriv, _ := btcec.PrivKeyFromBytes(priv.Serialize())
	tweaked := txscript.TweakTaprootPrivKey(*bpriv, nil)
	out, _ := ec.PrivateKeyFromBytes(tweaked.Serialize())
	return out
}

// TweakPublicKey is the public counterpart of TweakPrivateKey.
func TweakPublicKey(pub *ec.PublicKey) (*ec.PublicKey, error) {
	bpub, err := btcec.ParsePubKey(pub.Compressed())
	if err != nil {
		return nil, fmt.Errorf("wallet: parse pubkey: %w", err)
	}
	tweaked := txscript.ComputeTaprootKeyNoScript(bpub)
	return ec.PublicKeyFromBytes(tweaked.SerializeCompressed())
}

// NativeAddress returns the native-chain P2PKH address of pub.
func NativeAddress(pub *ec.PublicKey, network *Network) (string, error) {
	addr, err := script.NewAddressFromPublicKey(pub, network.Mainnet)
	if err != nil {
		return "", fmt.Errorf("wallet: native address: %w", err)
	}
	return addr.AddressString, nil
}

// BTCTaprootAddress returns the BIP86 key-path Taproot address of pub.
func BTCTaprootAddress(pub *ec.PublicKey, network *Network) (string, error) {
	bpub, err := btcec.ParsePubKey(pub.Compressed())
	if err != nil {
		return "", fmt.Errorf("wallet: parse pubkey: %w", err)
	}
	outputKey := txscript.ComputeTaprootKeyNoScript(bpub)
	addr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), network.BTC)
	if err != nil {
		return "", fmt.Errorf("wallet: taproot address: %w", err)
	}
	return addr.EncodeAddress(), nil
}

// BTCLegacyAddress returns the Bitcoin P2PKH address of pub.
func BTCLegacyAddress(pub *ec.PublicKey, network *Network) (string, error) {
	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pub.Compressed()), network.BTC)
	if err != nil {
		return "", fmt.Errorf("wallet: legacy address: %w", err)
	}
	return addr.EncodeAddress(), nil
}
