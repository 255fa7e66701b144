package encdoc

// NeedsRotation reports whether rec's envelope lacks an entry for the
// codec's first recipient, i.e. it was last written under an older key.
// Returns false for a record without an envelope.
func (c *Codec) NeedsRotation(rec *EncryptedRecord) bool {
	if rec == nil || rec.Envelope == nil {
		return false
	}
	primary := c.config.recipients[0]
	return !rec.Envelope.HasRecipient(primary.ID(), primary.Algorithm())
}

// Rotate decodes rec and re-encodes it as the next version: a fresh content
// key wrapped for the codec's recipients and the record's existing ones, and
// index entries recomputed with the current blinder. The result is an
// ordinary update candidate and is subject to the store's sequence check.
func (c *Codec) Rotate(rec *EncryptedRecord) (*EncryptedRecord, error) {
	doc, err := c.DecodeRecord(rec)
	if err != nil {
		return nil, err
	}
	return c.EncodeForUpdate(doc)
}

// RevokeRecipient removes every recipient entry for keyID from doc, so the
// next EncodeForUpdate does not wrap the new content key for it. Keys the
// codec itself is configured with are always re-added. Earlier versions
// already held by the store remain readable with the revoked key.
func RevokeRecipient(doc *Document, keyID string) {
	kept := doc.Recipients[:0]
	for _, r := range doc.Recipients {
		if r.KeyID != keyID {
			kept = append(kept, r)
		}
	}
	doc.Recipients = kept
}
