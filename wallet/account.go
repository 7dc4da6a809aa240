package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/bitfsorg/tbcwallet-go/utxo"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

// AccountType selects which address scheme an account spends from.
type AccountType int

const (
	// AccountTBC spends native P2PKH outputs of the plain key.
	AccountTBC AccountType = iota
	// AccountTaprootTBC spends native P2PKH outputs of the Taproot-tweaked key.
	AccountTaprootTBC
	// AccountBTCTaproot spends Bitcoin key-path Taproot outputs.
	AccountBTCTaproot
	// AccountBTCLegacy spends Bitcoin P2PKH outputs.
	AccountBTCLegacy
)

func (t AccountType) String() string {
	switch t {
	case AccountTBC:
		return "tbc"
	case AccountTaprootTBC:
		return "taproot_tbc"
	case AccountBTCTaproot:
		return "btc_taproot"
	case AccountBTCLegacy:
		return "btc_legacy"
	default:
		return fmt.Sprintf("account_type(%d)", int(t))
	}
}

// IsBTC reports whether the account spends on the Bitcoin chain.
func (t AccountType) IsBTC() bool {
	return t == AccountBTCTaproot || t == AccountBTCLegacy
}

// Addresses holds one address per supported scheme, all from the same key.
type Addresses struct {
	TBC        string `json:"tbc"`
	TaprootTBC string `json:"taproot_tbc"`
	BTCTaproot string `json:"btc_taproot"`
	BTCLegacy  string `json:"btc_legacy"`
}

// AccountContext is everything a builder needs about the spending account.
// It is passed explicitly; nothing reads account state from globals.
type AccountContext struct {
	Type      AccountType
	Network   *Network
	Addresses Addresses
	PublicKey string // compressed hex of the untweaked key
	Keys      EncryptedKeys
	UTXOs     *utxo.Cache
}

// NewAccount encrypts km under password and derives every scheme address.
func NewAccount(km KeyMaterial, password string, accountType AccountType, network *Network) (*AccountContext, error) {
	if accountType < AccountTBC || accountType > AccountBTCLegacy {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAccountType, accountType)
	}
	if network == nil {
		network = &MainNet
	}

	priv, err := keyFromMaterial(&km, network)
	if err != nil {
		return nil, err
	}
	pub := priv.PubKey()

	addrs, err := DeriveAddresses(pub, network)
	if err != nil {
		return nil, err
	}

	if km.PrivateKeyWIF == "" {
		km.PrivateKeyWIF = priv.Wif()
	}
	enc, err := EncryptKeys(km, password)
	if err != nil {
		return nil, err
	}

	return &AccountContext{
		Type:      accountType,
		Network:   network,
		Addresses: *addrs,
		PublicKey: hex.EncodeToString(pub.Compressed()),
		Keys:      *enc,
		UTXOs:     utxo.NewCache(nil),
	}, nil
}

// DeriveAddresses computes the four scheme addresses of pub.
func DeriveAddresses(pub *ec.PublicKey, network *Network) (*Addresses, error) {
	tbc, err := NativeAddress(pub, network)
	if err != nil {
		return nil, err
	}
	tweakedPub, err := TweakPublicKey(pub)
	if err != nil {
		return nil, err
	}
	taprootTBC, err := NativeAddress(tweakedPub, network)
	if err != nil {
		return nil, err
	}
	btcTaproot, err := BTCTaprootAddress(pub, network)
	if err != nil {
		return nil, err
	}
	btcLegacy, err := BTCLegacyAddress(pub, network)
	if err != nil {
		return nil, err
	}
	return &Addresses{
		TBC:        tbc,
		TaprootTBC: taprootTBC,
		BTCTaproot: btcTaproot,
		BTCLegacy:  btcLegacy,
	}, nil
}

// Address returns the address the account spends from.
func (a *AccountContext) Address() string {
	switch a.Type {
	case AccountTaprootTBC:
		return a.Addresses.TaprootTBC
	case AccountBTCTaproot:
		return a.Addresses.BTCTaproot
	case AccountBTCLegacy:
		return a.Addresses.BTCLegacy
	default:
		return a.Addresses.TBC
	}
}

// VerifyPassword checks password without decrypting the key blob.
func (a *AccountContext) VerifyPassword(password string) bool {
	return VerifyPassword(password, a.Keys.PassKeyHash, a.Keys.Salt)
}

// WithSigningKey decrypts the account key, applies the Taproot tweak for
// AccountTaprootTBC, and hands it to fn. The key is not retained after fn
// returns. BTC Taproot signing tweaks inside the signer, so it receives the
// untweaked key.
func (a *AccountContext) WithSigningKey(password string, fn func(priv *ec.PrivateKey) error) error {
	km, err := DecryptKeys(password, a.Keys.Blob, a.Keys.Salt)
	if err != nil {
		return err
	}
	priv, err := keyFromMaterial(km, a.Network)
	km.PrivateKeyWIF, km.Mnemonic = "", ""
	if err != nil {
		return err
	}
	if a.Type == AccountTaprootTBC {
		priv = TweakPrivateKey(priv)
	}
	return fn(priv)
}

// Mnemonic returns the stored mnemonic, if any, for backup display.
func (a *AccountContext) Mnemonic(password string) (string, error) {
	km, err := DecryptKeys(password, a.Keys.Blob, a.Keys.Salt)
	if err != nil {
		return "", err
	}
	return km.Mnemonic, nil
}
