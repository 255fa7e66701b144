package encdoc

import (
	"fmt"
	"sort"
)

// KeyProvider is an interface for dynamic key retrieval.
// Implement this interface to integrate with external key management systems
// like HashiCorp Vault, AWS KMS, or other secrets managers.
type KeyProvider interface {
	// GetKey retrieves a master key by its ID.
	// Returns the 32-byte master key or an error if not found.
	GetKey(keyID string) ([]byte, error)

	// DefaultKeyID returns the key ID new envelopes are wrapped for and
	// whose derived HMAC key blinds index tokens.
	DefaultKeyID() string

	// ActiveKeyIDs returns all key IDs that can still open envelopes.
	// During key rotation, this should include both old and new keys.
	ActiveKeyIDs() []string
}

// StaticKeyProvider is a simple in-memory implementation of KeyProvider.
// Useful for testing or simple deployments without external key management.
type StaticKeyProvider struct {
	keys      map[string][]byte
	defaultID string
}

// NewStaticKeyProvider creates a StaticKeyProvider with the given keys.
// Keys are deep-copied to prevent external modification.
func NewStaticKeyProvider(defaultKeyID string, keys map[string][]byte) *StaticKeyProvider {
	keysCopy := make(map[string][]byte, len(keys))
	for id, key := range keys {
		keysCopy[id] = append([]byte(nil), key...)
	}
	return &StaticKeyProvider{
		keys:      keysCopy,
		defaultID: defaultKeyID,
	}
}

// GetKey implements KeyProvider.
func (p *StaticKeyProvider) GetKey(keyID string) ([]byte, error) {
	key, ok := p.keys[keyID]
	if !ok {
		return nil, ErrKeyNotFound
	}
	// Return a copy to prevent external modification
	return append([]byte(nil), key...), nil
}

// DefaultKeyID implements KeyProvider.
func (p *StaticKeyProvider) DefaultKeyID() string {
	return p.defaultID
}

// ActiveKeyIDs implements KeyProvider.
func (p *StaticKeyProvider) ActiveKeyIDs() []string {
	return sortedMapKeys(p.keys)
}

// Close zeros out all key material from memory.
// After calling Close, the provider should not be used.
func (p *StaticKeyProvider) Close() {
	for _, key := range p.keys {
		zero(key)
	}
	p.keys = nil
}

// Keyring holds the capabilities derived from a KeyProvider: one
// SecretboxKeyWrapper per active key and an HMACBlinder for the default key.
// It implements KeyResolver, so a Codec built from it can re-grant access to
// every active key on update.
type Keyring struct {
	wrappers  map[string]*SecretboxKeyWrapper
	defaultID string
	blinder   *HMACBlinder
}

// NewKeyring fetches all active keys from the provider and derives their
// capabilities. Master keys are zeroed once derived.
func NewKeyring(provider KeyProvider) (*Keyring, error) {
	activeIDs := provider.ActiveKeyIDs()
	if len(activeIDs) == 0 {
		return nil, ErrNoRecipients
	}

	kr := &Keyring{
		wrappers:  make(map[string]*SecretboxKeyWrapper, len(activeIDs)),
		defaultID: provider.DefaultKeyID(),
	}
	for _, keyID := range activeIDs {
		key, err := provider.GetKey(keyID)
		if err != nil {
			kr.Close()
			return nil, fmt.Errorf("encdoc: key %q: %w", keyID, err)
		}
		w, err := NewSecretboxKeyWrapper(keyID, key)
		if err == nil && keyID == kr.defaultID {
			kr.blinder, err = NewHMACBlinder(key)
		}
		zero(key)
		if err != nil {
			kr.Close()
			return nil, fmt.Errorf("encdoc: key %q: %w", keyID, err)
		}
		kr.wrappers[keyID] = w
	}

	if kr.blinder == nil {
		kr.Close()
		return nil, fmt.Errorf("%w: default key %q is not active", ErrKeyNotFound, kr.defaultID)
	}
	return kr, nil
}

// DefaultKeyID returns the key id new envelopes are wrapped for.
func (kr *Keyring) DefaultKeyID() string {
	return kr.defaultID
}

// ActiveKeyIDs returns all key ids held by the keyring, sorted alphabetically.
func (kr *Keyring) ActiveKeyIDs() []string {
	return sortedMapKeys(kr.wrappers)
}

// Wrapper returns the key wrapper for keyID.
func (kr *Keyring) Wrapper(keyID string) (KeyWrapper, error) {
	w, ok := kr.wrappers[keyID]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return w, nil
}

// DefaultWrapper returns the key wrapper for the default key.
func (kr *Keyring) DefaultWrapper() KeyWrapper {
	return kr.wrappers[kr.defaultID]
}

// Blinder returns the blinder derived from the default key.
func (kr *Keyring) Blinder() Blinder {
	return kr.blinder
}

// ResolveKeyWrapper implements KeyResolver.
func (kr *Keyring) ResolveKeyWrapper(keyID, algorithm string) (KeyWrapper, error) {
	w, ok := kr.wrappers[keyID]
	if !ok || algorithm != AlgSecretboxKW {
		return nil, ErrKeyNotFound
	}
	return w, nil
}

// Close zeros out all derived key material. It must not overlap in-flight
// encode or decode calls of codecs built from the keyring.
func (kr *Keyring) Close() {
	for _, w := range kr.wrappers {
		w.Close()
	}
	if kr.blinder != nil {
		kr.blinder.Close()
	}
	kr.wrappers = nil
}

// sortedMapKeys returns map keys sorted alphabetically.
func sortedMapKeys[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
