package encdoc

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Store is the remote store contract. Implementations must apply the
// sequence check atomically per id:
//
//   - Insert accepts a record with sequence 0 for an id that does not exist.
//   - Update accepts a record whose sequence is the stored sequence + 1, or
//     0 for an id that does not exist.
//   - Any other sequence, or a token collision on a unique index, is
//     rejected with an error wrapping ErrConflict.
//   - Get returns an error wrapping ErrNotFound for an unknown id.
type Store interface {
	Insert(ctx context.Context, rec *EncryptedRecord) error
	Update(ctx context.Context, rec *EncryptedRecord) error
	Get(ctx context.Context, id string) (*EncryptedRecord, error)
	Find(ctx context.Context, q *Query) ([]*EncryptedRecord, error)
}

// Client combines a Codec with a Store. It never retries or merges: on
// ErrConflict the caller re-fetches with Get, reapplies its change and
// calls Update again.
type Client struct {
	codec *Codec
	store Store
	log   zerolog.Logger
}

// NewClient creates a client. opts configure the underlying Codec.
func NewClient(store Store, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, errors.New("encdoc: store is required")
	}
	codec, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return &Client{codec: codec, store: store, log: codec.log}, nil
}

// Codec returns the client's codec, e.g. to register indexes.
func (c *Client) Codec() *Codec {
	return c.codec
}

// Insert stores a new document. An empty doc.ID is replaced with
// NewDocumentID(). On success doc.ID and doc.Sequence reflect the stored
// record.
func (c *Client) Insert(ctx context.Context, doc *Document) error {
	if doc != nil && doc.ID == "" {
		doc.ID = NewDocumentID()
	}
	rec, err := c.codec.EncodeForInsert(doc)
	if err != nil {
		return err
	}
	if err := c.store.Insert(ctx, rec); err != nil {
		c.logWriteError(err, rec)
		return err
	}
	doc.Sequence = rec.Sequence
	doc.Recipients = cloneRecipients(rec.Envelope.Recipients)
	return nil
}

// Update stores the next version of doc. On success doc.Sequence is
// incremented; on ErrConflict doc is left unchanged.
func (c *Client) Update(ctx context.Context, doc *Document) error {
	rec, err := c.codec.EncodeForUpdate(doc)
	if err != nil {
		return err
	}
	if err := c.store.Update(ctx, rec); err != nil {
		c.logWriteError(err, rec)
		return err
	}
	doc.Sequence = rec.Sequence
	doc.Recipients = cloneRecipients(rec.Envelope.Recipients)
	return nil
}

// Delete replaces doc with a tombstone. The id and sequence survive.
func (c *Client) Delete(ctx context.Context, doc *Document) error {
	rec, err := c.codec.EncodeTombstone(doc)
	if err != nil {
		return err
	}
	if err := c.store.Update(ctx, rec); err != nil {
		c.logWriteError(err, rec)
		return err
	}
	doc.Sequence = rec.Sequence
	doc.Content = map[string]any{}
	doc.Meta = map[string]any{tombstoneKey: true}
	doc.Recipients = cloneRecipients(rec.Envelope.Recipients)
	return nil
}

// Get fetches and decodes the document with the given id.
func (c *Client) Get(ctx context.Context, id string) (*Document, error) {
	rec, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.ID != id {
		return nil, fmt.Errorf("%w: store returned record %q for id %q", ErrValidation, rec.ID, id)
	}
	return c.codec.DecodeRecord(rec)
}

// Find returns every document matching the filter. A filter no registered
// index covers matches nothing and does not reach the store.
func (c *Client) Find(ctx context.Context, f Filter) ([]*Document, error) {
	q, err := c.codec.BuildQuery(f)
	if err != nil {
		return nil, err
	}
	if q.MatchesNothing() {
		return nil, nil
	}
	recs, err := c.store.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	docs := make([]*Document, 0, len(recs))
	for _, rec := range recs {
		doc, err := c.codec.DecodeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("encdoc: decoding %q: %w", rec.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *Client) logWriteError(err error, rec *EncryptedRecord) {
	evt := c.log.Debug()
	if !errors.Is(err, ErrConflict) {
		evt = c.log.Warn()
	}
	evt.Err(err).Str("id", rec.ID).Uint64("sequence", rec.Sequence).Msg("store rejected write")
}
