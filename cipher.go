package encdoc

import (
	"crypto/rand"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Bundle is the plaintext sealed inside an envelope. Numbers in an opened
// bundle are json.Number values.
type Bundle struct {
	Content map[string]any `json:"content"`
	Meta    map[string]any `json:"meta"`
}

// ContentCipher builds and opens envelopes. Each envelope is sealed under a
// fresh content-encryption key (CEK) that is wrapped for every recipient.
// It holds no key material of its own and is safe for concurrent use.
type ContentCipher struct {
	config *config
}

// NewContentCipher creates a ContentCipher with the given options.
// Only WithKeyResolver and the compression options are relevant.
func NewContentCipher(opts ...Option) *ContentCipher {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return newContentCipher(cfg)
}

func newContentCipher(cfg *config) *ContentCipher {
	return &ContentCipher{config: cfg}
}

// EncryptEnvelope seals bundle under a new CEK.
//
// previous lists the recipients of the version being replaced (nil on
// insert). Each of them keeps access: the new CEK is wrapped for it using
// the matching wrapper from recipients, or else the configured KeyResolver.
// Each wrapper in recipients whose (ID, Algorithm) is not already listed is
// appended. The CEK is zeroed before EncryptEnvelope returns.
func (c *ContentCipher) EncryptEnvelope(bundle Bundle, recipients []KeyWrapper, previous []Recipient) (*Envelope, error) {
	wrappers, err := c.mergeRecipients(recipients, previous)
	if err != nil {
		return nil, err
	}

	plaintext, err := marshalBundle(bundle)
	if err != nil {
		return nil, err
	}
	body, compression := maybeCompress(plaintext, c.config.compressionThreshold, c.config.compressionDisabled)

	cek := make([]byte, cekSize)
	defer zero(cek)
	if _, err := rand.Read(cek); err != nil {
		return nil, fmt.Errorf("encdoc: generating content key: %w", err)
	}

	env := &Envelope{
		Algorithm:   AlgXChaCha20Poly1305,
		Compression: compression,
		Recipients:  make([]Recipient, 0, len(wrappers)),
	}
	for _, w := range wrappers {
		wrapped, err := w.Wrap(cek)
		if err != nil {
			return nil, fmt.Errorf("encdoc: wrapping key for %q: %w", w.ID(), err)
		}
		env.Recipients = append(env.Recipients, Recipient{
			KeyID:      w.ID(),
			Algorithm:  w.Algorithm(),
			WrappedKey: wrapped,
		})
	}

	aead, err := chacha20poly1305.NewX(cek)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("encdoc: generating iv: %w", err)
	}
	sealed := aead.Seal(nil, iv, body, envelopeAAD(env.Algorithm, env.Compression))

	env.IV = iv
	env.Ciphertext = sealed[:len(sealed)-tagSize]
	env.Tag = sealed[len(sealed)-tagSize:]
	return env, nil
}

// mergeRecipients returns the wrappers to use for a new envelope, previous
// recipients first, with at most one wrapper per (key id, algorithm).
func (c *ContentCipher) mergeRecipients(recipients []KeyWrapper, previous []Recipient) ([]KeyWrapper, error) {
	given := make(map[recipientKey]KeyWrapper, len(recipients))
	for _, w := range recipients {
		if w == nil {
			continue
		}
		k := wrapperKey(w)
		if _, ok := given[k]; !ok {
			given[k] = w
		}
	}

	out := make([]KeyWrapper, 0, len(previous)+len(recipients))
	seen := make(map[recipientKey]struct{}, len(previous)+len(recipients))
	for _, r := range previous {
		k := recipientKey{keyID: r.KeyID, algorithm: r.Algorithm}
		if _, dup := seen[k]; dup {
			continue
		}
		w, ok := given[k]
		if !ok {
			var err error
			w, err = c.resolve(r.KeyID, r.Algorithm)
			if err != nil {
				return nil, err
			}
		}
		seen[k] = struct{}{}
		out = append(out, w)
	}
	for _, w := range recipients {
		if w == nil {
			continue
		}
		k := wrapperKey(w)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, w)
	}

	if len(out) == 0 {
		return nil, ErrNoRecipients
	}
	return out, nil
}

func (c *ContentCipher) resolve(keyID, algorithm string) (KeyWrapper, error) {
	if c.config.resolver == nil {
		return nil, fmt.Errorf("%w: no wrapper for existing recipient %q/%q", ErrKeyNotFound, keyID, algorithm)
	}
	w, err := c.config.resolver.ResolveKeyWrapper(keyID, algorithm)
	if err != nil {
		return nil, fmt.Errorf("encdoc: resolving recipient %q/%q: %w", keyID, algorithm, err)
	}
	if w == nil || w.ID() != keyID || w.Algorithm() != algorithm {
		return nil, fmt.Errorf("%w: resolver returned a different key for %q/%q", ErrKeyNotFound, keyID, algorithm)
	}
	return w, nil
}

// DecryptEnvelope opens env with the recipient entry matching unwrap's
// (ID, Algorithm). The envelope is validated before any cryptographic
// operation. Every authentication failure is reported as ErrDecryption and
// no plaintext is returned.
func (c *ContentCipher) DecryptEnvelope(env *Envelope, unwrap KeyWrapper) (Bundle, error) {
	if err := ValidateEnvelope(env); err != nil {
		return Bundle{}, err
	}
	if unwrap == nil {
		return Bundle{}, fmt.Errorf("%w: no key wrapper supplied", ErrDecryption)
	}

	var entry *Recipient
	for i := range env.Recipients {
		r := &env.Recipients[i]
		if r.KeyID == unwrap.ID() && r.Algorithm == unwrap.Algorithm() {
			entry = r
			break
		}
	}
	if entry == nil {
		return Bundle{}, fmt.Errorf("%w: no recipient for key %q", ErrDecryption, unwrap.ID())
	}

	cek, err := unwrap.Unwrap(entry.WrappedKey)
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: unwrapping key %q: %v", ErrDecryption, unwrap.ID(), err)
	}
	defer zero(cek)
	if len(cek) != cekSize {
		return Bundle{}, fmt.Errorf("%w: unwrapped key has wrong size", ErrDecryption)
	}

	aead, err := chacha20poly1305.NewX(cek)
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	sealed := make([]byte, 0, len(env.Ciphertext)+len(env.Tag))
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.Tag...)
	body, err := aead.Open(nil, env.IV, sealed, envelopeAAD(env.Algorithm, env.Compression))
	if err != nil {
		return Bundle{}, ErrDecryption
	}

	plaintext, err := decompress(body, env.Compression)
	if err != nil {
		return Bundle{}, err
	}
	return unmarshalBundle(plaintext)
}

// marshalBundle serializes a bundle canonically: object keys sorted, nil
// maps written as empty objects.
func marshalBundle(b Bundle) ([]byte, error) {
	if b.Content == nil {
		b.Content = map[string]any{}
	}
	if b.Meta == nil {
		b.Meta = map[string]any{}
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: bundle is not serializable: %v", ErrValidation, err)
	}
	return data, nil
}

func unmarshalBundle(data []byte) (Bundle, error) {
	var b Bundle
	if err := DecodeJSON(data, &b); err != nil {
		return Bundle{}, fmt.Errorf("%w: decrypted bundle: %v", ErrValidation, err)
	}
	if b.Content == nil {
		b.Content = map[string]any{}
	}
	if b.Meta == nil {
		b.Meta = map[string]any{}
	}
	return b, nil
}
