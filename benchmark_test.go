package encdoc

import (
	"strings"
	"testing"
)

var (
	benchCodec   *Codec
	benchIndexer *BlindIndexer
)

func init() {
	b, _ := NewHMACBlinder(testKey("v1"))
	w, _ := NewSecretboxKeyWrapper("v1", testKey("v1"))
	benchCodec, _ = New(WithRecipient(w), WithBlinder(b))
	benchCodec.EnsureIndex([]string{"status"}, false)
	benchCodec.EnsureIndex([]string{"email"}, true, WithNormalizer(NormalizeEmail))
	benchCodec.EnsureIndex([]string{"tags", "status"}, false)
	benchIndexer = benchCodec.Indexer()
}

func benchDocument(size int) *Document {
	return &Document{
		ID:      "bench",
		Content: map[string]any{"body": strings.Repeat("x", size)},
		Meta: map[string]any{
			"status": "open",
			"email":  "Bench@Example.com",
			"tags":   []any{"a", "b", "c"},
		},
	}
}

// EncodeForInsert benchmarks at various content sizes

func BenchmarkEncodeForInsert_100B(b *testing.B) {
	doc := benchDocument(100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchCodec.EncodeForInsert(doc)
	}
}

func BenchmarkEncodeForInsert_10KB(b *testing.B) {
	doc := benchDocument(10 * 1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchCodec.EncodeForInsert(doc)
	}
}

func BenchmarkEncodeForInsert_1MB(b *testing.B) {
	doc := benchDocument(1024 * 1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchCodec.EncodeForInsert(doc)
	}
}

func BenchmarkDecodeRecord_100B(b *testing.B) {
	rec, _ := benchCodec.EncodeForInsert(benchDocument(100))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchCodec.DecodeRecord(rec)
	}
}

func BenchmarkDecodeRecord_10KB(b *testing.B) {
	rec, _ := benchCodec.EncodeForInsert(benchDocument(10 * 1024))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchCodec.DecodeRecord(rec)
	}
}

// Blind index benchmarks

func BenchmarkUpdateEntries(b *testing.B) {
	doc := benchDocument(0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchIndexer.UpdateEntries(doc)
	}
}

func BenchmarkBuildQuery_Equals(b *testing.B) {
	f := Filter{Equals: []map[string]any{{"status": "open"}, {"email": "bench@example.com"}}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchIndexer.BuildQuery(f)
	}
}

func BenchmarkQueryMatches(b *testing.B) {
	entries, _ := benchIndexer.UpdateEntries(benchDocument(0))
	q, _ := benchIndexer.BuildQuery(Filter{Equals: []map[string]any{{"tags": "c", "status": "open"}}})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Matches(entries)
	}
}

func BenchmarkNormalizeEmail(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NormalizeEmail(" Alice@Example.COM ")
	}
}

func BenchmarkMarshalRecord_CBOR(b *testing.B) {
	rec, _ := benchCodec.EncodeForInsert(benchDocument(1024))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MarshalRecord(rec, FormatCBOR)
	}
}
