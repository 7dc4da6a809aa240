// Package wallet holds account key material: mnemonic handling, HD
// derivation, the password-protected key vault, Taproot key tweaking and the
// AccountContext every transaction builder receives.
//
// Private keys exist in plaintext only inside AccountContext.WithSigningKey.
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"

	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/bsv-blockchain/go-sdk/compat/bip39"
	"golang.org/x/crypto/argon2"
)

const (
	// Mnemonic entropy sizes.
	Mnemonic12Words = 128 // 12-word mnemonic
	Mnemonic24Words = 256 // 24-word mnemonic

	// Argon2id parameters for key encryption.
	Argon2Time        = 3
	Argon2Memory      = 64 * 1024 // 64 MB
	Argon2Parallelism = 4

	// The derived 64 bytes split into the AES key and the password check key.
	argon2KeyLen = 64
	aesKeyLen    = 32

	SaltLen  = 16
	NonceLen = 12
)

// KeyMaterial is the plaintext secret of an account.
type KeyMaterial struct {
	PrivateKeyWIF string `json:"wif"`
	Mnemonic      string `json:"mnemonic,omitempty"`
}

// EncryptedKeys is what gets persisted for an account.
//
//	Blob        = nonce(12B) || AES-256-GCM(key, nonce, json(KeyMaterial))
//	PassKeyHash = SHA256(checkKey)
//
// where key || checkKey = argon2id(password, Salt, 64).
type EncryptedKeys struct {
	Blob        []byte `json:"blob"`
	Salt        []byte `json:"salt"`
	PassKeyHash []byte `json:"pass_key_hash"`
}

// GenerateMnemonic creates a new BIP39 mnemonic with the specified entropy bits.
func GenerateMnemonic(entropyBits int) (string, error) {
	if entropyBits != Mnemonic12Words && entropyBits != Mnemonic24Words {
		return "", ErrInvalidEntropy
	}

	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("wallet: failed to generate entropy: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("wallet: failed to generate mnemonic: %w", err)
	}

	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic string is valid BIP39.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

func deriveKeys(password string, salt []byte) (aesKey, checkKey []byte) {
	k := argon2.IDKey([]byte(password), salt, Argon2Time, Argon2Memory, Argon2Parallelism, argon2KeyLen)
	return k[:aesKeyLen], k[aesKeyLen:]
}

// EncryptKeys seals km under password with Argon2id + AES-256-GCM.
func EncryptKeys(km KeyMaterial, password string) (*EncryptedKeys, error) {
	if km.PrivateKeyWIF == "" && km.Mnemonic == "" {
		return nil, ErrNoKeyMaterial
	}

	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("wallet: failed to generate salt: %w", err)
	}
	aesKey, checkKey := deriveKeys(password, salt)

	plaintext, err := json.Marshal(km)
	if err != nil {
		return nil, fmt.Errorf("wallet: encode key material: %w", err)
	}
	defer wipe(plaintext)

	gcm, err := newGCM(aesKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("wallet: failed to generate nonce: %w", err)
	}

	blob := make([]byte, 0, NonceLen+len(plaintext)+gcm.Overhead())
	blob = append(blob, nonce...)
	blob = gcm.Seal(blob, nonce, plaintext, nil)

	check := sha256.Sum256(checkKey)
	return &EncryptedKeys{Blob: blob, Salt: salt, PassKeyHash: check[:]}, nil
}

// DecryptKeys opens blob with password. A wrong password or tampered blob
// returns ErrDecryptionFailed tagged txerr.AuthFailure.
func DecryptKeys(password string, blob, salt []byte) (*KeyMaterial, error) {
	if len(blob) < NonceLen || len(salt) != SaltLen {
		return nil, txerr.New(txerr.AuthFailure, "wallet.decrypt", ErrDecryptionFailed)
	}
	aesKey, _ := deriveKeys(password, salt)

	gcm, err := newGCM(aesKey)
	if err != nil {
		return nil, txerr.New(txerr.AuthFailure, "wallet.decrypt", ErrDecryptionFailed)
	}
	plaintext, err := gcm.Open(nil, blob[:NonceLen], blob[NonceLen:], nil)
	if err != nil {
		return nil, txerr.New(txerr.AuthFailure, "wallet.decrypt", ErrDecryptionFailed)
	}
	defer wipe(plaintext)

	var km KeyMaterial
	if err := json.Unmarshal(plaintext, &km); err != nil {
		return nil, txerr.New(txerr.AuthFailure, "wallet.decrypt", ErrDecryptionFailed)
	}
	return &km, nil
}

// VerifyPassword checks password against a stored pass-key hash without
// touching the encrypted blob.
func VerifyPassword(password string, passKeyHash, salt []byte) bool {
	if len(salt) != SaltLen || len(passKeyHash) != sha256.Size {
		return false
	}
	_, checkKey := deriveKeys(password, salt)
	got := sha256.Sum256(checkKey)
	return subtle.ConstantTimeCompare(got[:], passKeyHash) == 1
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("wallet: AES cipher creation failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("wallet: GCM creation failed: %w", err)
	}
	return gcm, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
