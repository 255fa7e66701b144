package encdoc

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Blind-index token scheme, version 1.
//
//	digest(v)  = SHA-256(canonical JSON(normalize(v)))
//	token      = Sign("encdoc/token/v1" 0x00 (name 0x00 digest(v))...)
//	presence   = Sign("encdoc/has/v1" 0x00 name)
//	index id   = Sign("encdoc/index/v1" 0x00 kind 0x00 name (0x00 name)...)
//
// Names are always taken in sorted order, so the registration order of a
// compound index changes neither its id nor its tokens. All outputs are
// unpadded base64url.
const (
	domainToken = "encdoc/token/v1"
	domainHas   = "encdoc/has/v1"
	domainIndex = "encdoc/index/v1"

	kindEquals = "eq"
	kindHas    = "has"
)

// Index is an attribute set registered with a BlindIndexer.
type Index struct {
	// ID is the blinded index id stored in IndexEntry.IndexID.
	ID string

	// Attributes are the indexed attribute names, sorted.
	Attributes []string

	// Unique asks the store to reject two records sharing a token.
	Unique bool

	// Has marks a value-less presence index over a single attribute.
	Has bool

	normalize Normalizer
}

func (idx *Index) kind() string {
	if idx.Has {
		return kindHas
	}
	return kindEquals
}

// IndexOption configures an index at registration.
type IndexOption func(*Index)

// WithNormalizer normalizes string values before they are digested.
// Queries against the index use the same normalizer.
func WithNormalizer(n Normalizer) IndexOption {
	return func(idx *Index) {
		idx.normalize = n
	}
}

// BlindIndexer derives blinded tokens for registered attribute sets.
// It is safe for concurrent use.
type BlindIndexer struct {
	blinder Blinder

	mu      sync.RWMutex
	indexes map[string]*Index // registry key -> index
}

// NewBlindIndexer creates an indexer that blinds with b.
func NewBlindIndexer(b Blinder) (*BlindIndexer, error) {
	if b == nil {
		return nil, ErrNoBlinder
	}
	return &BlindIndexer{
		blinder: b,
		indexes: make(map[string]*Index),
	}, nil
}

func registryKey(kind string, sorted []string) string {
	return kind + "\x00" + strings.Join(sorted, "\x00")
}

// EnsureIndex registers an index over the exact attribute set. Registering
// the same set again, in any order, returns the same index with the new
// options applied. More than one name makes a compound index, which a
// document only participates in when it carries every attribute.
//
// unique is advisory: the store enforces it.
func (ix *BlindIndexer) EnsureIndex(attributes []string, unique bool, opts ...IndexOption) (*Index, error) {
	sorted, err := normalizeAttributes(attributes)
	if err != nil {
		return nil, err
	}
	idx := &Index{Attributes: sorted, Unique: unique}
	for _, opt := range opts {
		opt(idx)
	}
	return ix.register(idx)
}

// EnsureHasIndex registers a value-less index recording only that a document
// carries the attribute. Filter.Has queries require one per named attribute.
func (ix *BlindIndexer) EnsureHasIndex(attribute string) (*Index, error) {
	if err := validateAttributeName(attribute); err != nil {
		return nil, err
	}
	return ix.register(&Index{Attributes: []string{attribute}, Has: true})
}

func (ix *BlindIndexer) register(idx *Index) (*Index, error) {
	id, err := ix.indexID(idx.kind(), idx.Attributes)
	if err != nil {
		return nil, err
	}
	idx.ID = id

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.indexes[registryKey(idx.kind(), idx.Attributes)] = idx
	return idx, nil
}

// lookup returns the registered index for the kind and sorted names.
func (ix *BlindIndexer) lookup(kind string, sorted []string) (*Index, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	idx, ok := ix.indexes[registryKey(kind, sorted)]
	return idx, ok
}

// Indexes returns every registered index ordered by ID.
func (ix *BlindIndexer) Indexes() []*Index {
	ix.mu.RLock()
	out := make([]*Index, 0, len(ix.indexes))
	for _, idx := range ix.indexes {
		out = append(out, idx)
	}
	ix.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateEntry builds a new IndexEntry for one index from scratch.
// It returns nil when the document does not carry every attribute of idx.
func (ix *BlindIndexer) CreateEntry(doc *Document, idx *Index) (*IndexEntry, error) {
	if doc == nil || idx == nil {
		return nil, fmt.Errorf("%w: nil document or index", ErrValidation)
	}
	registered, ok := ix.lookup(idx.kind(), idx.Attributes)
	if !ok || registered.ID != idx.ID {
		return nil, ErrIndexNotFound
	}
	return ix.createEntry(doc, registered)
}

func (ix *BlindIndexer) createEntry(doc *Document, idx *Index) (*IndexEntry, error) {
	sets := make([][]any, len(idx.Attributes))
	for i, name := range idx.Attributes {
		values, ok := resolveAttribute(doc, name)
		if !ok {
			return nil, nil
		}
		sets[i] = values
	}

	var tokens []string
	if idx.Has {
		token, err := ix.presenceToken(idx.Attributes[0])
		if err != nil {
			return nil, err
		}
		tokens = []string{token}
	} else {
		combos := cartesian(sets)
		tokens = make([]string, 0, len(combos))
		for _, combo := range combos {
			token, err := ix.valueToken(idx, combo)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token)
		}
	}

	return &IndexEntry{
		IndexID: idx.ID,
		Tokens:  sortedUnique(tokens),
		Unique:  idx.Unique,
	}, nil
}

// UpdateEntries recomputes the complete index entry set for a document:
// one fresh entry per registered index the document participates in. The
// result replaces any previous entries wholesale, so a changed or removed
// value leaves no token behind.
func (ix *BlindIndexer) UpdateEntries(doc *Document) ([]IndexEntry, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrValidation)
	}
	var entries []IndexEntry
	for _, idx := range ix.Indexes() {
		entry, err := ix.createEntry(doc, idx)
		if err != nil {
			return nil, fmt.Errorf("encdoc: index %v: %w", idx.Attributes, err)
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

// valueToken blinds one combination of values, given in idx.Attributes order.
func (ix *BlindIndexer) valueToken(idx *Index, values []any) (string, error) {
	buf := make([]byte, 0, len(domainToken)+1+len(values)*(sha256Size+16))
	buf = append(buf, domainToken...)
	buf = append(buf, 0x00)
	for i, name := range idx.Attributes {
		digest, err := digestValue(values[i], idx.normalize)
		if err != nil {
			return "", err
		}
		buf = append(buf, name...)
		buf = append(buf, 0x00)
		buf = append(buf, digest[:]...)
	}
	return ix.sign(buf)
}

func (ix *BlindIndexer) presenceToken(name string) (string, error) {
	buf := make([]byte, 0, len(domainHas)+1+len(name))
	buf = append(buf, domainHas...)
	buf = append(buf, 0x00)
	buf = append(buf, name...)
	return ix.sign(buf)
}

func (ix *BlindIndexer) indexID(kind string, sorted []string) (string, error) {
	buf := []byte(domainIndex)
	buf = append(buf, 0x00)
	buf = append(buf, kind...)
	for _, name := range sorted {
		buf = append(buf, 0x00)
		buf = append(buf, name...)
	}
	return ix.sign(buf)
}

func (ix *BlindIndexer) sign(data []byte) (string, error) {
	sig, err := ix.blinder.Sign(data)
	if err != nil {
		return "", fmt.Errorf("encdoc: blinding: %w", err)
	}
	if len(sig) == 0 {
		return "", fmt.Errorf("encdoc: blinding: empty signature")
	}
	return base64.RawURLEncoding.EncodeToString(sig), nil
}

const sha256Size = 32

// sortedUnique sorts tokens and removes duplicates in place.
func sortedUnique(tokens []string) []string {
	sort.Strings(tokens)
	out := tokens[:0]
	for _, t := range tokens {
		if len(out) == 0 || t != out[len(out)-1] {
			out = append(out, t)
		}
	}
	return out
}
