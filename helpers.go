package encdoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// NewDocumentFrom builds a Document whose content is the JSON object form of
// content. content must encode as a JSON object.
func NewDocumentFrom[T any](id string, content T, meta map[string]any) (*Document, error) {
	m, err := toMap(content)
	if err != nil {
		return nil, err
	}
	return &Document{ID: id, Content: m, Meta: meta}, nil
}

// ContentAs decodes a document's content into T.
func ContentAs[T any](doc *Document) (T, error) {
	var zero T
	if doc == nil {
		return zero, fmt.Errorf("%w: document is missing", ErrValidation)
	}
	data, err := json.Marshal(doc.Content)
	if err != nil {
		return zero, err
	}
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return zero, err
	}
	return result, nil
}

// SetContent replaces a document's content with the JSON object form of v.
func SetContent[T any](doc *Document, v T) error {
	m, err := toMap(v)
	if err != nil {
		return err
	}
	doc.Content = m
	return nil
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := DecodeJSON(data, &m); err != nil {
		return nil, fmt.Errorf("%w: content must be a JSON object: %v", ErrValidation, err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// DecodeJSON unmarshals exactly one JSON value into v. Numbers inside
// untyped values decode as json.Number, so integers beyond 2^53 keep
// every digit and re-encode to the same bytes.
func DecodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after JSON value")
	}
	return nil
}
