package encdoc

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Format selects the serialization of records and queries on the wire.
type Format string

const (
	// FormatJSON encodes binary fields as unpadded base64url strings.
	FormatJSON Format = "json"

	// FormatCBOR uses deterministic CBOR (RFC 8949 core deterministic
	// encoding); binary fields are byte strings.
	FormatCBOR Format = "cbor"
)

// ParseFormat parses a format name; the empty string means FormatJSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("encdoc: unknown wire format %q", s)
	}
}

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
	cborOnce    sync.Once
	cborErr     error
)

// initCBOR builds the CBOR encoding and decoding modes once.
func initCBOR() (cbor.EncMode, cbor.DecMode, error) {
	cborOnce.Do(func() {
		cborEncMode, cborErr = cbor.CoreDetEncOptions().EncMode()
		if cborErr != nil {
			return
		}
		cborDecMode, cborErr = cbor.DecOptions{
			DupMapKey:       cbor.DupMapKeyEnforcedAPF,
			MaxNestedLevels: 16,
		}.DecMode()
	})
	return cborEncMode, cborDecMode, cborErr
}

func marshalWire(v any, f Format) ([]byte, error) {
	switch f {
	case "", FormatJSON:
		return json.Marshal(v)
	case FormatCBOR:
		em, _, err := initCBOR()
		if err != nil {
			return nil, err
		}
		return em.Marshal(v)
	default:
		return nil, fmt.Errorf("encdoc: unknown wire format %q", f)
	}
}

func unmarshalWire(data []byte, v any, f Format) error {
	switch f {
	case "", FormatJSON:
		return json.Unmarshal(data, v)
	case FormatCBOR:
		_, dm, err := initCBOR()
		if err != nil {
			return err
		}
		return dm.Unmarshal(data, v)
	default:
		return fmt.Errorf("encdoc: unknown wire format %q", f)
	}
}

// MarshalRecord serializes a record in the given format.
func MarshalRecord(rec *EncryptedRecord, f Format) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: record is missing", ErrValidation)
	}
	return marshalWire(rec, f)
}

// UnmarshalRecord parses a record in the given format and validates its
// shape. Parse errors are reported as ErrValidation.
func UnmarshalRecord(data []byte, f Format) (*EncryptedRecord, error) {
	var rec EncryptedRecord
	if err := unmarshalWire(data, &rec, f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := ValidateRecord(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarshalQuery serializes a query in the given format.
func MarshalQuery(q *Query, f Format) ([]byte, error) {
	if q == nil {
		q = &Query{}
	}
	return marshalWire(q, f)
}

// UnmarshalQuery parses a query in the given format.
func UnmarshalQuery(data []byte, f Format) (*Query, error) {
	var q Query
	if err := unmarshalWire(data, &q, f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return &q, nil
}
