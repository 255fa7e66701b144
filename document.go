package encdoc

import (
	"fmt"

	"github.com/google/uuid"
)

// Document is the plaintext form of a stored document.
type Document struct {
	// ID is assigned by the caller and never changes.
	ID string `json:"id"`

	// Sequence is the version counter: 0 on insert, +1 per accepted update.
	Sequence uint64 `json:"sequence"`

	// Content is any JSON object. Numbers in a decoded document are
	// json.Number values, which keep integers exact.
	Content map[string]any `json:"content"`

	// Meta carries the attributes that are usually indexed.
	Meta map[string]any `json:"meta"`

	// Recipients are the key-wrap entries of the envelope this document was
	// decoded from. EncodeForUpdate keeps every one of them, so parties that
	// were granted access keep it.
	Recipients []Recipient `json:"-"`
}

// IndexEntry holds the blinded tokens of one index for one record.
type IndexEntry struct {
	IndexID string   `json:"indexId"`
	Tokens  []string `json:"tokens"`
	Unique  bool     `json:"unique,omitempty"`
}

// EncryptedRecord is the wire form of a document. Only ID and Sequence are
// in the clear; everything else is blinded or encrypted.
type EncryptedRecord struct {
	ID       string       `json:"id"`
	Sequence uint64       `json:"sequence"`
	Indexed  []IndexEntry `json:"indexed"`
	Envelope *Envelope    `json:"envelope"`
}

// Clone returns a deep copy of the record.
func (r *EncryptedRecord) Clone() *EncryptedRecord {
	if r == nil {
		return nil
	}
	out := &EncryptedRecord{
		ID:       r.ID,
		Sequence: r.Sequence,
		Envelope: r.Envelope.Clone(),
	}
	if r.Indexed != nil {
		out.Indexed = make([]IndexEntry, len(r.Indexed))
		for i, e := range r.Indexed {
			out.Indexed[i] = IndexEntry{
				IndexID: e.IndexID,
				Tokens:  append([]string(nil), e.Tokens...),
				Unique:  e.Unique,
			}
		}
	}
	return out
}

// NewDocumentID returns a fresh random document id (a version 4 UUID).
func NewDocumentID() string {
	return uuid.NewString()
}

// ValidateDocument checks the shape of a plaintext document.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is missing", ErrValidation)
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is empty", ErrValidation)
	}
	return nil
}

// ValidateRecord checks the shape of an encrypted record, including its
// envelope, without any cryptographic operation.
func ValidateRecord(rec *EncryptedRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: record is missing", ErrValidation)
	}
	if rec.ID == "" {
		return fmt.Errorf("%w: record id is empty", ErrValidation)
	}
	seen := make(map[string]struct{}, len(rec.Indexed))
	for i, e := range rec.Indexed {
		if e.IndexID == "" {
			return fmt.Errorf("%w: indexed[%d] has no index id", ErrValidation, i)
		}
		if _, dup := seen[e.IndexID]; dup {
			return fmt.Errorf("%w: indexed[%d] repeats index %q", ErrValidation, i, e.IndexID)
		}
		seen[e.IndexID] = struct{}{}
	}
	return ValidateEnvelope(rec.Envelope)
}
