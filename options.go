package encdoc

import "github.com/rs/zerolog"

// Option is a functional option for configuring a Codec, ContentCipher or Client.
type Option func(*config)

// config holds codec configuration options.
type config struct {
	recipients           []KeyWrapper
	openers              []KeyWrapper
	resolver             KeyResolver
	blinder              Blinder
	compressionThreshold int
	compressionDisabled  bool
	logger               zerolog.Logger
}

// defaultConfig returns the default configuration.
func defaultConfig() *config {
	return &config{
		compressionThreshold: defaultCompressionThreshold,
		logger:               zerolog.Nop(),
	}
}

// WithRecipient adds a key wrapper that every new envelope is wrapped for.
// The first recipient is also the key DecodeRecord tries first.
func WithRecipient(w KeyWrapper) Option {
	return func(c *config) {
		if w != nil {
			c.recipients = append(c.recipients, w)
		}
	}
}

// WithDecryptionKey adds a key wrapper that DecodeRecord may use to open
// envelopes without wrapping new envelopes for it. Use it for keys being
// rotated out.
func WithDecryptionKey(w KeyWrapper) Option {
	return func(c *config) {
		if w != nil {
			c.openers = append(c.openers, w)
		}
	}
}

// WithKeyResolver sets the resolver used to re-grant access to recipients
// already present on a document being updated.
func WithKeyResolver(r KeyResolver) Option {
	return func(c *config) {
		c.resolver = r
	}
}

// WithBlinder sets the blinding capability used for index tokens.
func WithBlinder(b Blinder) Option {
	return func(c *config) {
		c.blinder = b
	}
}

// WithKeyring configures recipients, resolver and blinder from a Keyring:
// the default key is the first recipient, every other active key can open
// records, and the default key's HMAC key blinds tokens. A nil keyring
// contributes nothing.
func WithKeyring(kr *Keyring) Option {
	return func(c *config) {
		if kr == nil {
			return
		}
		c.recipients = append(c.recipients, kr.DefaultWrapper())
		for _, id := range kr.ActiveKeyIDs() {
			if id != kr.DefaultKeyID() {
				c.openers = append(c.openers, kr.wrappers[id])
			}
		}
		c.resolver = kr
		c.blinder = kr.Blinder()
	}
}

// WithCompressionThreshold sets the minimum bundle size in bytes before
// compression is attempted. Default is 1024 (1KB).
func WithCompressionThreshold(bytes int) Option {
	return func(c *config) {
		c.compressionThreshold = bytes
	}
}

// WithCompressionDisabled disables compression entirely.
func WithCompressionDisabled() Option {
	return func(c *config) {
		c.compressionDisabled = true
	}
}

// WithLogger sets the logger. Only ids, sequences and counts are logged;
// key material and plaintext never are. Default is zerolog.Nop().
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
