package encdoc

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Info strings for HKDF derivation - distinct strings ensure separate keys
const (
	infoKeyWrap    = "encdoc-key-wrap"
	infoBlindIndex = "encdoc-blind-index"
)

// masterKeySize is the required length of every master key.
const masterKeySize = 32

// deriveKey derives a 32-byte subkey from a master key using HKDF-SHA256.
// The master key must be exactly 32 bytes.
//
// The derivation uses distinct info strings so that a single master key can
// back both a key wrapper and a blinder without the two sharing key material:
//   - Key-wrap key: HKDF(masterKey, info="encdoc-key-wrap")
//   - HMAC key:     HKDF(masterKey, info="encdoc-blind-index")
func deriveKey(masterKey []byte, info string) (*[32]byte, error) {
	if len(masterKey) != masterKeySize {
		return nil, ErrInvalidKeySize
	}
	var out [32]byte
	// No salt (nil salt means HKDF uses a zero-filled salt of HashLen bytes).
	reader := hkdf.New(sha256.New, masterKey, nil, []byte(info))
	if _, err := io.ReadFull(reader, out[:]); err != nil {
		return nil, err
	}
	return &out, nil
}

// zero overwrites b with zeros.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
