package encdoc

import (
	"fmt"
	"sort"
)

// Filter selects documents by exact match. Exactly one of Equals or Has
// must be set.
type Filter struct {
	// Equals lists attribute/value objects. Each object matches documents
	// whose attributes equal every listed value; the objects are OR-ed.
	// An object's key set must be registered with EnsureIndex.
	Equals []map[string]any

	// Has lists attribute names a document must all carry. Each name must
	// be registered with EnsureHasIndex.
	Has []string
}

// Term requires IndexID's entry to contain Token.
type Term struct {
	IndexID string `json:"indexId"`
	Token   string `json:"token"`
}

// Predicate matches when every term matches.
type Predicate struct {
	Terms []Term `json:"terms"`
}

// Query is a blinded filter the store can evaluate without learning
// attribute names or values. It matches when any predicate matches; a Query
// without predicates matches nothing.
type Query struct {
	Predicates []Predicate `json:"predicates"`
}

// Matches reports whether a record carrying entries satisfies the query.
func (q *Query) Matches(entries []IndexEntry) bool {
	if q == nil || len(q.Predicates) == 0 {
		return false
	}
	tokens := make(map[string]map[string]struct{}, len(entries))
	for _, e := range entries {
		set, ok := tokens[e.IndexID]
		if !ok {
			set = make(map[string]struct{}, len(e.Tokens))
			tokens[e.IndexID] = set
		}
		for _, t := range e.Tokens {
			set[t] = struct{}{}
		}
	}

	for _, p := range q.Predicates {
		if len(p.Terms) == 0 {
			continue
		}
		matched := true
		for _, term := range p.Terms {
			if _, ok := tokens[term.IndexID][term.Token]; !ok {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// MatchesNothing reports whether the query can never match, which happens
// when no index covers the filter. Stores may skip the lookup entirely.
func (q *Query) MatchesNothing() bool {
	return q == nil || len(q.Predicates) == 0
}

// BuildQuery blinds a filter into a Query.
//
// A filter that refers to an attribute set without a registered index is not
// an error: the store cannot derive tokens itself, so the corresponding
// predicate is omitted and cannot match.
//
// Example:
//
//	q, err := indexer.BuildQuery(encdoc.Filter{
//	    Equals: []map[string]any{{"status": "open"}, {"status": "pending"}},
//	})
func (ix *BlindIndexer) BuildQuery(f Filter) (*Query, error) {
	switch {
	case len(f.Equals) > 0 && len(f.Has) > 0:
		return nil, fmt.Errorf("%w: equals and has are mutually exclusive", ErrInvalidQuery)
	case len(f.Equals) == 0 && len(f.Has) == 0:
		return nil, fmt.Errorf("%w: equals or has is required", ErrInvalidQuery)
	case len(f.Has) > 0:
		return ix.buildHasQuery(f.Has)
	default:
		return ix.buildEqualsQuery(f.Equals)
	}
}

func (ix *BlindIndexer) buildEqualsQuery(objects []map[string]any) (*Query, error) {
	q := &Query{}
	for i, obj := range objects {
		if len(obj) == 0 {
			return nil, fmt.Errorf("%w: equals[%d] is empty", ErrInvalidQuery, i)
		}
		names := sortedMapKeys(obj)
		for _, name := range names {
			if err := validateAttributeName(name); err != nil {
				return nil, fmt.Errorf("%w: equals[%d]: %v", ErrInvalidQuery, i, err)
			}
			switch v := obj[name]; {
			case v == nil:
				return nil, fmt.Errorf("%w: equals[%d].%s is null", ErrInvalidQuery, i, name)
			case isMultiValued(v):
				return nil, fmt.Errorf("%w: equals[%d].%s must be a single value", ErrInvalidQuery, i, name)
			}
		}

		idx, ok := ix.lookup(kindEquals, names)
		if !ok {
			continue
		}
		values := make([]any, len(names))
		for j, name := range names {
			values[j] = obj[name]
		}
		token, err := ix.valueToken(idx, values)
		if err != nil {
			return nil, err
		}
		q.add(Predicate{Terms: []Term{{IndexID: idx.ID, Token: token}}})
	}
	return q, nil
}

func (ix *BlindIndexer) buildHasQuery(names []string) (*Query, error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	terms := make([]Term, 0, len(sorted))
	for i, name := range sorted {
		if err := validateAttributeName(name); err != nil {
			return nil, fmt.Errorf("%w: has: %v", ErrInvalidQuery, err)
		}
		if i > 0 && sorted[i-1] == name {
			continue
		}
		idx, ok := ix.lookup(kindHas, []string{name})
		if !ok {
			return &Query{}, nil
		}
		token, err := ix.presenceToken(name)
		if err != nil {
			return nil, err
		}
		terms = append(terms, Term{IndexID: idx.ID, Token: token})
	}
	return &Query{Predicates: []Predicate{{Terms: terms}}}, nil
}

// add appends p unless an identical predicate is already present.
func (q *Query) add(p Predicate) {
	for _, existing := range q.Predicates {
		if equalTerms(existing.Terms, p.Terms) {
			return
		}
	}
	q.Predicates = append(q.Predicates, p)
}

func equalTerms(a, b []Term) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
