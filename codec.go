package encdoc

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Codec converts between plaintext Documents and EncryptedRecords. It
// computes index entries and envelopes and applies the sequence-number
// protocol; the store decides whether a candidate record is accepted.
//
// A Codec performs no I/O and keeps no per-document state. It is safe for
// concurrent use.
type Codec struct {
	config  *config
	cipher  *ContentCipher
	indexer *BlindIndexer
	log     zerolog.Logger
}

// New creates a Codec with the given options.
// At least one recipient (WithRecipient or WithKeyring) and a blinder
// (WithBlinder or WithKeyring) are required.
//
// Example:
//
//	kr, err := encdoc.NewKeyring(encdoc.NewStaticKeyProvider("v1", keys))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	codec, err := encdoc.New(encdoc.WithKeyring(kr))
func New(opts ...Option) (*Codec, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.recipients) == 0 {
		return nil, ErrNoRecipients
	}
	indexer, err := NewBlindIndexer(cfg.blinder)
	if err != nil {
		return nil, err
	}

	return &Codec{
		config:  cfg,
		cipher:  newContentCipher(cfg),
		indexer: indexer,
		log:     cfg.logger,
	}, nil
}

// Indexer returns the codec's blind indexer.
func (c *Codec) Indexer() *BlindIndexer {
	return c.indexer
}

// Cipher returns the codec's content cipher.
func (c *Codec) Cipher() *ContentCipher {
	return c.cipher
}

// EnsureIndex registers an index with the codec's indexer.
func (c *Codec) EnsureIndex(attributes []string, unique bool, opts ...IndexOption) (*Index, error) {
	return c.indexer.EnsureIndex(attributes, unique, opts...)
}

// EnsureHasIndex registers a presence index with the codec's indexer.
func (c *Codec) EnsureHasIndex(attribute string) (*Index, error) {
	return c.indexer.EnsureHasIndex(attribute)
}

// BuildQuery blinds a filter with the codec's indexer.
func (c *Codec) BuildQuery(f Filter) (*Query, error) {
	return c.indexer.BuildQuery(f)
}

// EncodeForInsert encodes a new document. doc.Sequence must be 0; the
// record is created with sequence 0.
func (c *Codec) EncodeForInsert(doc *Document) (*EncryptedRecord, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}
	if doc.Sequence != 0 {
		return nil, fmt.Errorf("%w: insert requires sequence 0, got %d", ErrSequence, doc.Sequence)
	}
	return c.encode(doc, 0, nil)
}

// EncodeForUpdate encodes the next version of doc. The candidate record's
// sequence is doc.Sequence + 1; the store accepts it only if that is
// exactly one more than the stored sequence.
//
// Every index entry is recomputed and a fresh envelope is built for the
// codec's recipients plus every recipient in doc.Recipients.
func (c *Codec) EncodeForUpdate(doc *Document) (*EncryptedRecord, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}
	if doc.Sequence == math.MaxUint64 {
		return nil, fmt.Errorf("%w: sequence overflow", ErrSequence)
	}
	return c.encode(doc, doc.Sequence+1, doc.Recipients)
}

func (c *Codec) encode(doc *Document, sequence uint64, previous []Recipient) (*EncryptedRecord, error) {
	indexed, err := c.indexer.UpdateEntries(doc)
	if err != nil {
		return nil, err
	}
	env, err := c.cipher.EncryptEnvelope(Bundle{Content: doc.Content, Meta: doc.Meta}, c.config.recipients, previous)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("id", doc.ID).
		Uint64("sequence", sequence).
		Int("indexes", len(indexed)).
		Int("recipients", len(env.Recipients)).
		Msg("encoded record")

	return &EncryptedRecord{
		ID:       doc.ID,
		Sequence: sequence,
		Indexed:  indexed,
		Envelope: env,
	}, nil
}

// tombstoneKey is the meta key set on deleted documents.
const tombstoneKey = "deleted"

// EncodeTombstone encodes the deletion of doc as an update: the id and the
// next sequence remain, content is emptied, meta becomes {"deleted": true}
// and no index entries are kept.
func (c *Codec) EncodeTombstone(doc *Document) (*EncryptedRecord, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}
	if doc.Sequence == math.MaxUint64 {
		return nil, fmt.Errorf("%w: sequence overflow", ErrSequence)
	}
	bundle := Bundle{
		Content: map[string]any{},
		Meta:    map[string]any{tombstoneKey: true},
	}
	env, err := c.cipher.EncryptEnvelope(bundle, c.config.recipients, doc.Recipients)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("id", doc.ID).Uint64("sequence", doc.Sequence+1).Msg("encoded tombstone")
	return &EncryptedRecord{
		ID:       doc.ID,
		Sequence: doc.Sequence + 1,
		Envelope: env,
	}, nil
}

// IsTombstone reports whether doc is a deleted document.
func IsTombstone(doc *Document) bool {
	if doc == nil {
		return false
	}
	deleted, _ := doc.Meta[tombstoneKey].(bool)
	return deleted && len(doc.Content) == 0
}

// DecodeRecord validates rec, opens its envelope with the first configured
// key listed among its recipients, and returns the document. ID and
// Sequence come from the clear wrapper.
func (c *Codec) DecodeRecord(rec *EncryptedRecord) (*Document, error) {
	if err := ValidateRecord(rec); err != nil {
		return nil, err
	}

	w := c.openerFor(rec.Envelope)
	if w == nil {
		c.log.Warn().Str("id", rec.ID).Msg("no configured key can open record")
		return nil, fmt.Errorf("%w: no recipient matches a configured key", ErrDecryption)
	}
	bundle, err := c.cipher.DecryptEnvelope(rec.Envelope, w)
	if err != nil {
		c.log.Warn().Str("id", rec.ID).Str("key_id", w.ID()).Msg("decrypting record failed")
		return nil, err
	}

	c.log.Debug().Str("id", rec.ID).Uint64("sequence", rec.Sequence).Msg("decoded record")
	return &Document{
		ID:         rec.ID,
		Sequence:   rec.Sequence,
		Content:    bundle.Content,
		Meta:       bundle.Meta,
		Recipients: cloneRecipients(rec.Envelope.Recipients),
	}, nil
}

// openerFor returns the first recipient or decryption key listed in env.
func (c *Codec) openerFor(env *Envelope) KeyWrapper {
	for _, group := range [][]KeyWrapper{c.config.recipients, c.config.openers} {
		for _, w := range group {
			if env.HasRecipient(w.ID(), w.Algorithm()) {
				return w
			}
		}
	}
	return nil
}
