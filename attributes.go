package encdoc

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Attribute names are dotted paths into a document:
//
//	content.title     -> doc.Content["title"]
//	meta.status       -> doc.Meta["status"]
//	status            -> doc.Meta["status"] (meta is the default root)
//	meta.address.city -> doc.Meta["address"].(map[string]any)["city"]
//
// A value that is a slice or array (other than []byte) is multi-valued:
// each element is indexed. nil values and empty arrays count as absent.

const (
	contentPrefix = "content."
	metaPrefix    = "meta."
)

// validateAttributeName rejects names that cannot be encoded unambiguously.
func validateAttributeName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty attribute name", ErrValidation)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: attribute name %q contains NUL", ErrValidation, name)
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return fmt.Errorf("%w: attribute name %q has an empty path segment", ErrValidation, name)
		}
	}
	return nil
}

// normalizeAttributes validates and sorts attribute names and rejects duplicates.
func normalizeAttributes(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no attribute names", ErrValidation)
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for i, name := range sorted {
		if err := validateAttributeName(name); err != nil {
			return nil, err
		}
		if i > 0 && sorted[i-1] == name {
			return nil, fmt.Errorf("%w: duplicate attribute name %q", ErrValidation, name)
		}
	}
	return sorted, nil
}

// resolveAttribute returns every value of the named attribute, or false if
// the document does not carry it.
func resolveAttribute(doc *Document, name string) ([]any, bool) {
	root, path := doc.Meta, name
	switch {
	case strings.HasPrefix(name, contentPrefix):
		root, path = doc.Content, strings.TrimPrefix(name, contentPrefix)
	case strings.HasPrefix(name, metaPrefix):
		path = strings.TrimPrefix(name, metaPrefix)
	}

	var cur any = root
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	values := flattenValue(cur)
	return values, len(values) > 0
}

// flattenValue expands slices and arrays of any element type into their
// elements and drops nils. A []byte is one value.
func flattenValue(v any) []any {
	if v == nil {
		return nil
	}
	if !isMultiValued(v) {
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		e := rv.Index(i)
		if isNilValue(e) {
			continue
		}
		out = append(out, e.Interface())
	}
	return out
}

// isMultiValued reports whether v is a slice or array other than []byte.
func isMultiValued(v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	switch t.Kind() {
	case reflect.Slice:
		return t.Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// cartesian returns every combination that picks one element from each set.
// With sets [["a","b"],["c"]] it returns [["a","c"],["b","c"]].
func cartesian(sets [][]any) [][]any {
	combos := [][]any{{}}
	for _, set := range sets {
		next := make([][]any, 0, len(combos)*len(set))
		for _, prefix := range combos {
			for _, v := range set {
				combo := make([]any, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, v))
			}
		}
		combos = next
	}
	return combos
}

// digestValue applies the normalizer to string values and returns the
// SHA-256 of the value's canonical JSON encoding. This fixes the length and
// structure of every value before it is blinded.
func digestValue(v any, normalize Normalizer) ([32]byte, error) {
	if s, ok := v.(string); ok && normalize != nil {
		v = normalize(s)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: attribute value is not serializable: %v", ErrValidation, err)
	}
	return sha256.Sum256(data), nil
}
