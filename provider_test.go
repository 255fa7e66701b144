package encdoc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticKeyProvider(t *testing.T) {
	keys := map[string][]byte{
		"v1": testKey("v1"),
		"v2": testKey("v2"),
	}

	provider := NewStaticKeyProvider("v2", keys)

	key, err := provider.GetKey("v1")
	require.NoError(t, err)
	require.True(t, bytes.Equal(testKey("v1"), key))

	_, err = provider.GetKey("nonexistent")
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.Equal(t, "v2", provider.DefaultKeyID())
	require.Equal(t, []string{"v1", "v2"}, provider.ActiveKeyIDs())
}

func TestStaticKeyProvider_ActiveKeyIDs_Sorted(t *testing.T) {
	// Add keys in non-alphabetical order
	keys := map[string][]byte{
		"zebra":   testKey("zebra"),
		"alpha":   testKey("alpha"),
		"charlie": testKey("charlie"),
		"bravo":   testKey("bravo"),
	}

	provider := NewStaticKeyProvider("alpha", keys)
	require.Equal(t, []string{"alpha", "bravo", "charlie", "zebra"}, provider.ActiveKeyIDs())
}

func TestStaticKeyProvider_GetKey_ReturnsCopy(t *testing.T) {
	provider := NewStaticKeyProvider("v1", map[string][]byte{"v1": testKey("v1")})

	key1, err := provider.GetKey("v1")
	require.NoError(t, err)
	key1[0] = 0xFF

	key2, err := provider.GetKey("v1")
	require.NoError(t, err)
	require.NotEqual(t, key1[0], key2[0], "GetKey should return a copy, not internal reference")
}

func TestStaticKeyProvider_Close(t *testing.T) {
	provider := NewStaticKeyProvider("v1", map[string][]byte{"v1": testKey("v1")})
	provider.Close()
	require.Nil(t, provider.keys)
}

func TestNewKeyring(t *testing.T) {
	kr, err := NewKeyring(NewStaticKeyProvider("v2", map[string][]byte{
		"v1": testKey("v1"),
		"v2": testKey("v2"),
	}))
	require.NoError(t, err)
	defer kr.Close()

	require.Equal(t, "v2", kr.DefaultKeyID())
	require.Equal(t, []string{"v1", "v2"}, kr.ActiveKeyIDs())
	require.Equal(t, "v2", kr.DefaultWrapper().ID())
	require.NotNil(t, kr.Blinder())

	w, err := kr.Wrapper("v1")
	require.NoError(t, err)
	require.Equal(t, "v1", w.ID())

	_, err = kr.Wrapper("v3")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestNewKeyring_BlinderUsesDefaultKey(t *testing.T) {
	kr, err := NewKeyring(NewStaticKeyProvider("v2", map[string][]byte{
		"v1": testKey("v1"),
		"v2": testKey("v2"),
	}))
	require.NoError(t, err)
	defer kr.Close()

	want, err := NewHMACBlinder(testKey("v2"))
	require.NoError(t, err)

	got, err := kr.Blinder().Sign([]byte("x"))
	require.NoError(t, err)
	expected, err := want.Sign([]byte("x"))
	require.NoError(t, err)
	require.Equal(t, expected, got)
}

func TestNewKeyring_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider KeyProvider
		want     error
	}{
		{"no keys", NewStaticKeyProvider("v1", map[string][]byte{}), ErrNoRecipients},
		{"default not active", NewStaticKeyProvider("nonexistent", map[string][]byte{"v1": testKey("v1")}), ErrKeyNotFound},
		{"invalid key size", NewStaticKeyProvider("v1", map[string][]byte{"v1": []byte("too short")}), ErrInvalidKeySize},
		{"get key error", &mockKeyProvider{
			keys:      map[string][]byte{"v1": testKey("v1")},
			defaultID: "v1",
			getKeyErr: errors.New("vault sealed"),
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kr, err := NewKeyring(tt.provider)
			require.Error(t, err)
			require.Nil(t, kr)
			if tt.want != nil {
				require.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestNewKeyring_ZeroesFetchedKeys(t *testing.T) {
	provider := &mockKeyProvider{
		keys:      map[string][]byte{"v1": testKey("v1")},
		defaultID: "v1",
	}
	kr, err := NewKeyring(provider)
	require.NoError(t, err)
	defer kr.Close()

	// mockKeyProvider hands out its internal slice.
	require.Equal(t, make([]byte, 32), provider.keys["v1"])
}

func TestKeyring_ResolveKeyWrapper(t *testing.T) {
	kr, err := NewKeyring(NewStaticKeyProvider("v1", map[string][]byte{"v1": testKey("v1")}))
	require.NoError(t, err)
	defer kr.Close()

	w, err := kr.ResolveKeyWrapper("v1", AlgSecretboxKW)
	require.NoError(t, err)
	require.Equal(t, "v1", w.ID())

	_, err = kr.ResolveKeyWrapper("v1", "RSA-OAEP")
	require.ErrorIs(t, err, ErrKeyNotFound)

	_, err = kr.ResolveKeyWrapper("v9", AlgSecretboxKW)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestKeyring_Close(t *testing.T) {
	kr, err := NewKeyring(NewStaticKeyProvider("v1", map[string][]byte{"v1": testKey("v1")}))
	require.NoError(t, err)
	w := kr.DefaultWrapper()
	b := kr.Blinder()

	kr.Close()

	_, err = w.Wrap(make([]byte, cekSize))
	require.ErrorIs(t, err, ErrClosed)
	_, err = b.Sign([]byte("x"))
	require.ErrorIs(t, err, ErrClosed)
}

// mockKeyProvider for testing error cases
type mockKeyProvider struct {
	keys      map[string][]byte
	defaultID string
	getKeyErr error
}

func (m *mockKeyProvider) GetKey(keyID string) ([]byte, error) {
	if m.getKeyErr != nil {
		return nil, m.getKeyErr
	}
	key, ok := m.keys[keyID]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

func (m *mockKeyProvider) DefaultKeyID() string {
	return m.defaultID
}

func (m *mockKeyProvider) ActiveKeyIDs() []string {
	return sortedMapKeys(m.keys)
}
