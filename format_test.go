package encdoc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func testEnvelope(t *testing.T) *Envelope {
	t.Helper()
	env, err := NewContentCipher().EncryptEnvelope(testBundle(), []KeyWrapper{testWrapper(t, "k1")}, nil)
	require.NoError(t, err)
	return env
}

func TestValidateEnvelope(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(env *Envelope)
		want   error
	}{
		{"valid", func(env *Envelope) {}, nil},
		{"algorithm", func(env *Envelope) { env.Algorithm = "A256GCM" }, ErrUnsupportedAlgorithm},
		{"zip", func(env *Envelope) { env.Compression = "gzip" }, ErrUnsupportedCompression},
		{"short iv", func(env *Envelope) { env.IV = env.IV[:12] }, ErrValidation},
		{"short tag", func(env *Envelope) { env.Tag = env.Tag[:8] }, ErrValidation},
		{"no ciphertext", func(env *Envelope) { env.Ciphertext = nil }, ErrValidation},
		{"no recipients", func(env *Envelope) { env.Recipients = nil }, ErrValidation},
		{"incomplete recipient", func(env *Envelope) { env.Recipients[0].KeyID = "" }, ErrValidation},
		{"duplicate recipient", func(env *Envelope) {
			env.Recipients = append(env.Recipients, env.Recipients[0])
		}, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testEnvelope(t)
			tt.mutate(env)
			err := ValidateEnvelope(env)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, ErrValidation)
		})
	}

	require.ErrorIs(t, ValidateEnvelope(nil), ErrValidation)
}

func TestEnvelope_JSON(t *testing.T) {
	env := testEnvelope(t)

	data, err := json.Marshal(env)
	require.NoError(t, err)
	s := string(data)
	require.Contains(t, s, `"algorithm":"XC20P"`)
	require.Contains(t, s, `"keyId":"k1"`)
	require.Contains(t, s, `"wrappedKey":"`)
	require.NotContains(t, s, `"zip"`)
	require.NotContains(t, s, "=", "binary fields are unpadded")

	var got Envelope
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, env, &got)
}

func TestBase64URL(t *testing.T) {
	data, err := json.Marshal(Base64URL{0xfb, 0xff})
	require.NoError(t, err)
	require.Equal(t, `"-_8"`, string(data))

	var b Base64URL
	require.NoError(t, json.Unmarshal(data, &b))
	require.Equal(t, Base64URL{0xfb, 0xff}, b)

	require.Error(t, json.Unmarshal([]byte(`"+/8="`), &b))
	require.Error(t, json.Unmarshal([]byte(`123`), &b))
}

func TestEnvelope_Clone(t *testing.T) {
	env := testEnvelope(t)
	clone := env.Clone()
	require.Equal(t, env, clone)

	clone.Recipients[0].WrappedKey[0] ^= 0xff
	clone.Ciphertext[0] ^= 0xff
	require.NotEqual(t, env.Recipients[0].WrappedKey, clone.Recipients[0].WrappedKey)
	require.NotEqual(t, env.Ciphertext, clone.Ciphertext)

	require.Nil(t, (*Envelope)(nil).Clone())
}

func TestEnvelopeAAD(t *testing.T) {
	require.Equal(t, "encdoc/envelope/v1\x00XC20P\x00", string(envelopeAAD("XC20P", "")))
	require.Equal(t, "encdoc/envelope/v1\x00XC20P\x00zstd", string(envelopeAAD("XC20P", "zstd")))
}
