package encdoc

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalizer transforms string attribute values into a canonical form before
// they are digested and blinded. Non-string values are never normalized.
//
// IMPORTANT: The normalizer is part of the index definition. Writers and
// query builders must register the index with the same normalizer, or
// lookups will miss.
type Normalizer func(string) string

// NormalizeEmail normalizes email addresses for case-insensitive lookup.
// Applies: lowercase + trim whitespace.
//
// Example: " Alice@Example.COM " -> "alice@example.com"
var NormalizeEmail Normalizer = func(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone normalizes phone numbers by extracting ASCII digits only.
//
// Example: "(555) 123-4567" -> "5551234567"
var NormalizePhone Normalizer = func(s string) string {
	var digits strings.Builder
	digits.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}

// NormalizeNFC applies Unicode NFC normalization, so precomposed and
// decomposed spellings of the same text blind to the same token.
var NormalizeNFC Normalizer = func(s string) string {
	return norm.NFC.String(s)
}

// NormalizeNone is an identity normalizer that returns the input unchanged.
var NormalizeNone Normalizer = func(s string) string {
	return s
}

// NormalizeTrim trims leading and trailing whitespace only.
var NormalizeTrim Normalizer = func(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeLower normalizes to lowercase only (no trim).
var NormalizeLower Normalizer = func(s string) string {
	return strings.ToLower(s)
}

// normalizers maps configuration names to normalizers.
var normalizers = map[string]Normalizer{
	"":      NormalizeNone,
	"none":  NormalizeNone,
	"email": NormalizeEmail,
	"phone": NormalizePhone,
	"nfc":   NormalizeNFC,
	"trim":  NormalizeTrim,
	"lower": NormalizeLower,
}

// NormalizerByName returns the normalizer registered under name, as used in
// configuration files.
func NormalizerByName(name string) (Normalizer, bool) {
	n, ok := normalizers[strings.ToLower(name)]
	return n, ok
}
