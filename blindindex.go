package encdoc

import (
	"crypto/hmac"
	"crypto/sha256"
	"sync/atomic"
)

// Blinder is the keyed one-way function used to blind index values.
// The key is held by the implementation and never leaves it.
//
// Sign must be deterministic: the same input always yields the same output
// for the same key. This is what allows equality lookups on blinded tokens.
type Blinder interface {
	Sign(data []byte) ([]byte, error)
}

// BlinderFunc adapts an ordinary function to the Blinder interface.
type BlinderFunc func(data []byte) ([]byte, error)

// Sign implements Blinder.
func (f BlinderFunc) Sign(data []byte) ([]byte, error) {
	return f(data)
}

// HMACBlinder computes HMAC-SHA256 blind indexes.
// It is safe for concurrent use.
type HMACBlinder struct {
	key    *[32]byte
	closed atomic.Bool
}

// NewHMACBlinder creates a blinder whose HMAC key is derived from masterKey
// with HKDF. The master key must be exactly 32 bytes.
func NewHMACBlinder(masterKey []byte) (*HMACBlinder, error) {
	key, err := deriveKey(masterKey, infoBlindIndex)
	if err != nil {
		return nil, err
	}
	return &HMACBlinder{key: key}, nil
}

// Sign implements Blinder.
// The output is always 32 bytes.
func (b *HMACBlinder) Sign(data []byte) ([]byte, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	return computeHMACWithKey(b.key, data), nil
}

// Close zeros out the HMAC key. Sign returns ErrClosed afterwards.
// Close must not run concurrently with Sign: a call already past the
// closed check may read the key while it is being zeroed.
func (b *HMACBlinder) Close() {
	b.closed.Store(true)
	zero(b.key[:])
}

// computeHMACWithKey computes HMAC-SHA256 with the given key.
func computeHMACWithKey(key *[32]byte, data []byte) []byte {
	h := hmac.New(sha256.New, key[:])
	h.Write(data)
	return h.Sum(nil)
}
