package encdoc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Envelope wire format (JSON):
//
//	{
//	  "algorithm": "XC20P",
//	  "zip": "zstd",                      // omitted when uncompressed
//	  "recipients": [{"keyId": "...", "algorithm": "XS20P-KW", "wrappedKey": "..."}],
//	  "iv": "...", "ciphertext": "...", "tag": "..."
//	}
//
// Binary fields are unpadded base64url. The authenticated data for the body
// cipher is "encdoc/envelope/v1" 0x00 algorithm 0x00 zip, so the header
// fields cannot be altered without failing authentication. Recipients are
// deliberately outside the AAD: granting access appends to the list.

// AlgXChaCha20Poly1305 is the only supported body cipher.
const AlgXChaCha20Poly1305 = "XC20P"

const (
	ivSize  = 24
	tagSize = 16

	envelopeAADPrefix = "encdoc/envelope/v1"
)

// Base64URL is a byte slice that encodes as unpadded base64url in JSON.
type Base64URL []byte

// MarshalJSON implements json.Marshaler.
func (b Base64URL) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.RawURLEncoding.EncodeToString(b))
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Base64URL) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// Recipient is one key-wrapped copy of an envelope's content-encryption key.
type Recipient struct {
	KeyID      string    `json:"keyId"`
	Algorithm  string    `json:"algorithm"`
	WrappedKey Base64URL `json:"wrappedKey"`
}

// Envelope is the authenticated-encryption container for one version of a
// document's content and meta.
type Envelope struct {
	Algorithm   string      `json:"algorithm"`
	Compression string      `json:"zip,omitempty"`
	Recipients  []Recipient `json:"recipients"`
	IV          Base64URL   `json:"iv"`
	Ciphertext  Base64URL   `json:"ciphertext"`
	Tag         Base64URL   `json:"tag"`
}

// Clone returns a deep copy of the envelope.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	out := *e
	out.Recipients = cloneRecipients(e.Recipients)
	out.IV = append(Base64URL(nil), e.IV...)
	out.Ciphertext = append(Base64URL(nil), e.Ciphertext...)
	out.Tag = append(Base64URL(nil), e.Tag...)
	return &out
}

// HasRecipient reports whether the envelope carries an entry for the key
// id and algorithm.
func (e *Envelope) HasRecipient(keyID, algorithm string) bool {
	for _, r := range e.Recipients {
		if r.KeyID == keyID && r.Algorithm == algorithm {
			return true
		}
	}
	return false
}

func cloneRecipients(in []Recipient) []Recipient {
	if in == nil {
		return nil
	}
	out := make([]Recipient, len(in))
	for i, r := range in {
		out[i] = Recipient{
			KeyID:      r.KeyID,
			Algorithm:  r.Algorithm,
			WrappedKey: append(Base64URL(nil), r.WrappedKey...),
		}
	}
	return out
}

// envelopeAAD returns the authenticated data binding the envelope header.
func envelopeAAD(algorithm, compression string) []byte {
	aad := make([]byte, 0, len(envelopeAADPrefix)+len(algorithm)+len(compression)+2)
	aad = append(aad, envelopeAADPrefix...)
	aad = append(aad, 0x00)
	aad = append(aad, algorithm...)
	aad = append(aad, 0x00)
	aad = append(aad, compression...)
	return aad
}

// ValidateEnvelope checks the structure of an envelope without touching any
// key material. A nil return means every required field is present and
// correctly sized.
func ValidateEnvelope(e *Envelope) error {
	if e == nil {
		return fmt.Errorf("%w: envelope is missing", ErrValidation)
	}
	if e.Algorithm != AlgXChaCha20Poly1305 {
		return fmt.Errorf("%w: envelope algorithm %q: %w", ErrValidation, e.Algorithm, ErrUnsupportedAlgorithm)
	}
	if e.Compression != "" && e.Compression != CompressionZstd {
		return fmt.Errorf("%w: envelope zip %q: %w", ErrValidation, e.Compression, ErrUnsupportedCompression)
	}
	if len(e.IV) != ivSize {
		return fmt.Errorf("%w: envelope iv must be %d bytes", ErrValidation, ivSize)
	}
	if len(e.Tag) != tagSize {
		return fmt.Errorf("%w: envelope tag must be %d bytes", ErrValidation, tagSize)
	}
	if e.Ciphertext == nil {
		return fmt.Errorf("%w: envelope ciphertext is missing", ErrValidation)
	}
	if len(e.Recipients) == 0 {
		return fmt.Errorf("%w: envelope has no recipients", ErrValidation)
	}
	seen := make(map[recipientKey]struct{}, len(e.Recipients))
	for i, r := range e.Recipients {
		if r.KeyID == "" || r.Algorithm == "" || len(r.WrappedKey) == 0 {
			return fmt.Errorf("%w: recipient %d is incomplete", ErrValidation, i)
		}
		k := recipientKey{keyID: r.KeyID, algorithm: r.Algorithm}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: duplicate recipient %q/%q", ErrValidation, r.KeyID, r.Algorithm)
		}
		seen[k] = struct{}{}
	}
	return nil
}
