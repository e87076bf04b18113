// Package cryptox implements the multi-recipient envelope encryption used
// for study job artifacts: entries are sealed once with a random AES-256-GCM
// content key, and the content key is wrapped separately for every
// recipient's curve25519 public key. A bundle is a plain zip and fully
// self-describing, so a reader only needs its own private key.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

const KeySize = 32

var (
	// ErrInvalidRecipients indicates an empty recipient list or a public
	// key that is not a valid curve25519 key.
	ErrInvalidRecipients = errors.New("invalid recipients")

	// ErrDecryptionFailed indicates the private key matches no wrap in the
	// bundle, or an entry failed authenticated decryption.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Recipient identifies one party authorized to decrypt a bundle.
type Recipient struct {
	PublicKey   []byte
	Fingerprint string
}

// Fingerprint returns the lowercase hex SHA-256 digest of the raw public
// key bytes. Identical input always yields identical output.
func Fingerprint(publicKey []byte) string {
	sum := sha256.Sum256(publicKey)
	return hex.EncodeToString(sum[:])
}

// GenerateKeyPair creates a curve25519 keypair for envelope encryption.
// Performed client-side; the server only ever sees the public half.
func GenerateKeyPair() (publicKey, privateKey []byte, err error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return pub[:], priv[:], nil
}

// PublicKeyFromPrivate derives the public key for a curve25519 private key.
func PublicKeyFromPrivate(privateKey []byte) ([]byte, error) {
	if len(privateKey) != KeySize {
		return nil, ErrDecryptionFailed
	}
	pub, err := curve25519.X25519(privateKey, curve25519.Basepoint)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return pub, nil
}

func toKeyArray(key []byte) (*[KeySize]byte, bool) {
	if len(key) != KeySize {
		return nil, false
	}
	var out [KeySize]byte
	copy(out[:], key)
	return &out, true
}
