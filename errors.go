package encdoc

import "errors"

var (
	// ErrValidation indicates a malformed Document, EncryptedRecord or Envelope.
	// Shape checks run before any cryptographic operation.
	ErrValidation = errors.New("encdoc: validation failed")

	// ErrSequence indicates an invalid sequence number for the requested operation.
	ErrSequence = errors.New("encdoc: invalid sequence")

	// ErrConflict indicates the store rejected a write because of a sequence
	// mismatch or a unique index collision. Re-fetch, reapply and resubmit.
	ErrConflict = errors.New("encdoc: conflict")

	// ErrNotFound indicates there is no record for the requested id.
	ErrNotFound = errors.New("encdoc: not found")

	// ErrDecryption indicates authentication failed or no recipient matched the key.
	ErrDecryption = errors.New("encdoc: decryption failed")

	// ErrInvalidQuery indicates a malformed combination of equals/has filters.
	ErrInvalidQuery = errors.New("encdoc: invalid query")

	// ErrNoRecipients indicates an envelope was requested without any key wrapper.
	ErrNoRecipients = errors.New("encdoc: no recipients")

	// ErrNoBlinder indicates an indexer was created without a blinding capability.
	ErrNoBlinder = errors.New("encdoc: no blinder")

	// ErrKeyNotFound indicates the requested key id is not in the provider or resolver.
	ErrKeyNotFound = errors.New("encdoc: key not found")

	// ErrInvalidKeySize indicates a master key or CEK is not exactly 32 bytes.
	ErrInvalidKeySize = errors.New("encdoc: key must be 32 bytes")

	// ErrInvalidKeyID indicates the key ID is empty.
	ErrInvalidKeyID = errors.New("encdoc: key ID must not be empty")

	// ErrDecompressionFailed indicates zstd decompression of a bundle failed.
	ErrDecompressionFailed = errors.New("encdoc: decompression failed")

	// ErrUnsupportedCompression indicates an unknown compression algorithm.
	ErrUnsupportedCompression = errors.New("encdoc: unsupported compression algorithm")

	// ErrUnsupportedAlgorithm indicates an unknown content or key-wrap algorithm.
	ErrUnsupportedAlgorithm = errors.New("encdoc: unsupported algorithm")

	// ErrIndexNotFound indicates the index is not registered with the indexer.
	ErrIndexNotFound = errors.New("encdoc: index not found")

	// ErrClosed indicates key material was used after Close() was called.
	ErrClosed = errors.New("encdoc: closed")
)
