package encdoc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/secretbox"
)

func TestSecretboxKeyWrapper_RoundTrip(t *testing.T) {
	w := testWrapper(t, "v1")
	require.Equal(t, "v1", w.ID())
	require.Equal(t, AlgSecretboxKW, w.Algorithm())

	cek := bytes.Repeat([]byte{0x42}, cekSize)
	wrapped, err := w.Wrap(cek)
	require.NoError(t, err)
	require.Len(t, wrapped, 24+secretbox.Overhead+cekSize)

	raw, err := w.Unwrap(wrapped)
	require.NoError(t, err)
	require.Equal(t, cek, raw)
}

func TestSecretboxKeyWrapper_RandomNonce(t *testing.T) {
	w := testWrapper(t, "v1")
	cek := make([]byte, cekSize)

	a, err := w.Wrap(cek)
	require.NoError(t, err)
	b, err := w.Wrap(cek)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestSecretboxKeyWrapper_WrongKey(t *testing.T) {
	wrapped, err := testWrapper(t, "v1").Wrap(make([]byte, cekSize))
	require.NoError(t, err)

	_, err = testWrapper(t, "v2").Unwrap(wrapped)
	require.ErrorIs(t, err, ErrDecryption)
}

func TestSecretboxKeyWrapper_InvalidInput(t *testing.T) {
	w := testWrapper(t, "v1")

	_, err := w.Wrap(make([]byte, 16))
	require.ErrorIs(t, err, ErrInvalidKeySize)

	_, err = w.Unwrap(make([]byte, 10))
	require.ErrorIs(t, err, ErrDecryption)
}

func TestNewSecretboxKeyWrapper_Errors(t *testing.T) {
	_, err := NewSecretboxKeyWrapper("", testKey("v1"))
	require.ErrorIs(t, err, ErrInvalidKeyID)

	_, err = NewSecretboxKeyWrapper("v1", []byte("too short"))
	require.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestSecretboxKeyWrapper_UseAfterClose(t *testing.T) {
	w := testWrapper(t, "v1")
	wrapped, err := w.Wrap(make([]byte, cekSize))
	require.NoError(t, err)

	w.Close()
	require.Equal(t, [32]byte{}, *w.kek)

	_, err = w.Wrap(make([]byte, cekSize))
	require.ErrorIs(t, err, ErrClosed)
	_, err = w.Unwrap(wrapped)
	require.ErrorIs(t, err, ErrClosed)
}
