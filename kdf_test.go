package encdoc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	masterKey := []byte("01234567890123456789012345678901") // 32 bytes

	k1, err := deriveKey(masterKey, infoKeyWrap)
	require.NoError(t, err)
	k2, err := deriveKey(masterKey, infoKeyWrap)
	require.NoError(t, err)

	require.Equal(t, k1, k2)
}

func TestDeriveKey_DifferentMasterKeys(t *testing.T) {
	k1, err := deriveKey([]byte("01234567890123456789012345678901"), infoKeyWrap)
	require.NoError(t, err)
	k2, err := deriveKey([]byte("01234567890123456789012345678902"), infoKeyWrap)
	require.NoError(t, err)

	require.NotEqual(t, k1, k2)
}

func TestDeriveKey_KeyWrapAndBlindIndexAreDifferent(t *testing.T) {
	masterKey := []byte("01234567890123456789012345678901")

	wrap, err := deriveKey(masterKey, infoKeyWrap)
	require.NoError(t, err)
	blind, err := deriveKey(masterKey, infoBlindIndex)
	require.NoError(t, err)

	require.False(t, bytes.Equal(wrap[:], blind[:]), "key-wrap and hmac keys should be different")
}

func TestDeriveKey_InvalidKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
	}{
		{"empty", 0},
		{"too short", 16},
		{"too long", 64},
		{"31 bytes", 31},
		{"33 bytes", 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := deriveKey(make([]byte, tt.keySize), infoKeyWrap)
			require.ErrorIs(t, err, ErrInvalidKeySize)
		})
	}
}

func TestDeriveKey_OutputIsNonZero(t *testing.T) {
	// Even with a zero master key, HKDF should produce non-trivial output
	k, err := deriveKey(make([]byte, 32), infoBlindIndex)
	require.NoError(t, err)
	require.False(t, bytes.Equal(k[:], make([]byte, 32)))
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3}
	zero(b)
	require.Equal(t, []byte{0, 0, 0}, b)
}
