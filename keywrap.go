package encdoc

import (
	"crypto/rand"
	"fmt"
	"sync/atomic"

	"golang.org/x/crypto/nacl/secretbox"
)

// AlgSecretboxKW identifies the built-in key-wrap algorithm:
// XSalsa20-Poly1305 (NaCl secretbox) under an HKDF-derived key-encryption key.
const AlgSecretboxKW = "XS20P-KW"

// cekSize is the size of every content-encryption key.
const cekSize = 32

// KeyWrapper is a key-wrap capability. It wraps and unwraps content-encryption
// keys under a longer-lived key without exposing that key.
//
// Implement this interface to integrate with external key management systems
// such as HashiCorp Vault, AWS KMS or a hardware token.
type KeyWrapper interface {
	// ID identifies the wrapping key. It is stored in the clear in each
	// recipient entry.
	ID() string

	// Algorithm names the key-wrap algorithm.
	Algorithm() string

	// Wrap encrypts a raw content-encryption key.
	Wrap(rawKey []byte) ([]byte, error)

	// Unwrap recovers a raw content-encryption key.
	// It must fail if the wrapped key does not authenticate.
	Unwrap(wrappedKey []byte) ([]byte, error)
}

// KeyResolver finds a KeyWrapper for a recipient entry that is already
// present on an envelope. It is consulted when an update must re-grant access
// to recipients the caller did not pass explicitly.
type KeyResolver interface {
	ResolveKeyWrapper(keyID, algorithm string) (KeyWrapper, error)
}

// SecretboxKeyWrapper is a KeyWrapper backed by a 32-byte master key.
// It is safe for concurrent use.
type SecretboxKeyWrapper struct {
	id     string
	kek    *[32]byte
	closed atomic.Bool
}

// NewSecretboxKeyWrapper creates a key wrapper for the given key id.
// The key-encryption key is derived from masterKey with HKDF, so the same
// master key may also back an HMACBlinder.
func NewSecretboxKeyWrapper(keyID string, masterKey []byte) (*SecretboxKeyWrapper, error) {
	if keyID == "" {
		return nil, ErrInvalidKeyID
	}
	kek, err := deriveKey(masterKey, infoKeyWrap)
	if err != nil {
		return nil, err
	}
	return &SecretboxKeyWrapper{id: keyID, kek: kek}, nil
}

// ID implements KeyWrapper.
func (w *SecretboxKeyWrapper) ID() string {
	return w.id
}

// Algorithm implements KeyWrapper.
func (w *SecretboxKeyWrapper) Algorithm() string {
	return AlgSecretboxKW
}

// Wrap implements KeyWrapper.
// The wrapped format is [nonce:24][secretbox(rawKey)].
func (w *SecretboxKeyWrapper) Wrap(rawKey []byte) ([]byte, error) {
	if w.closed.Load() {
		return nil, ErrClosed
	}
	if len(rawKey) != cekSize {
		return nil, ErrInvalidKeySize
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("encdoc: generating wrap nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], rawKey, &nonce, w.kek), nil
}

// Unwrap implements KeyWrapper.
func (w *SecretboxKeyWrapper) Unwrap(wrappedKey []byte) ([]byte, error) {
	if w.closed.Load() {
		return nil, ErrClosed
	}
	if len(wrappedKey) != 24+secretbox.Overhead+cekSize {
		return nil, ErrDecryption
	}
	var nonce [24]byte
	copy(nonce[:], wrappedKey[:24])
	raw, ok := secretbox.Open(nil, wrappedKey[24:], &nonce, w.kek)
	if !ok {
		return nil, ErrDecryption
	}
	return raw, nil
}

// Close zeros out the key-encryption key.
// After calling Close, Wrap and Unwrap return ErrClosed. Close must not run
// concurrently with Wrap or Unwrap: a call already past the closed check
// may read the key while it is being zeroed.
func (w *SecretboxKeyWrapper) Close() {
	w.closed.Store(true)
	zero(w.kek[:])
}

// recipientKey is the identity of a recipient entry.
type recipientKey struct {
	keyID     string
	algorithm string
}

func wrapperKey(w KeyWrapper) recipientKey {
	return recipientKey{keyID: w.ID(), algorithm: w.Algorithm()}
}
