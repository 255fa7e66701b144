// Package encdoc is the client side of an end-to-end encrypted document
// store. Documents are encrypted before they leave the application and the
// store only ever sees ids, sequence numbers, blinded index tokens and
// opaque envelopes. Blind indexes still allow exact-match queries.
//
// # Envelopes
//
// Each version of a document's content and meta is sealed with
// XChaCha20-Poly1305 under a fresh 32-byte content-encryption key (CEK). The
// CEK is wrapped once per recipient with a KeyWrapper; the built-in
// SecretboxKeyWrapper uses NaCl secretbox under a key derived from a 32-byte
// master key with HKDF-SHA256. Bundles of 1KB or more are zstd-compressed
// when that saves at least 10%.
//
// # Blind Indexes
//
// Attributes registered with EnsureIndex are turned into tokens with a
// keyed Blinder (HMACBlinder by default). Equal values give equal tokens for
// the same key, so the store can match them without learning the value:
//
//	codec.EnsureIndex([]string{"email"}, true, encdoc.WithNormalizer(encdoc.NormalizeEmail))
//	codec.EnsureIndex([]string{"status"}, false)
//
//	q, _ := codec.BuildQuery(encdoc.Filter{
//	    Equals: []map[string]any{{"status": "open"}},
//	})
//
// Attribute names are dotted paths; "content.x" reads the content, anything
// else reads the meta. Array values are indexed element by element.
//
// # Sequence Numbers
//
// Every record carries a sequence number: 0 on insert, +1 per update. The
// store accepts a write only if its sequence is exactly one more than the
// stored one, so concurrent writers get ErrConflict instead of silently
// overwriting each other:
//
//	doc, _ := client.Get(ctx, id)
//	doc.Meta["status"] = "closed"
//	if err := client.Update(ctx, doc); errors.Is(err, encdoc.ErrConflict) {
//	    // re-fetch, reapply, retry
//	}
//
// # Key Rotation
//
// A Keyring built from a KeyProvider wraps new envelopes for the default key
// and can open envelopes for every active key. An update keeps every
// recipient of the previous version, so access granted once survives until
// it is revoked with RevokeRecipient:
//
//	kr, _ := encdoc.NewKeyring(encdoc.NewStaticKeyProvider("v2", map[string][]byte{
//	    "v1": oldKey,
//	    "v2": newKey,
//	}))
//	codec, _ := encdoc.New(encdoc.WithKeyring(kr))
//
//	if codec.NeedsRotation(rec) {
//	    rec, _ = codec.Rotate(rec)
//	}
//
// Blind index tokens depend on the default key, so changing it requires
// reindexing every record, which Rotate does.
//
// # Thread Safety
//
// Codec, ContentCipher, BlindIndexer, Keyring and Client are safe for
// concurrent use.
package encdoc
