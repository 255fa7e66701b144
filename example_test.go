package encdoc_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/ai8future/encdoc"
	"github.com/ai8future/encdoc/memstore"
)

func Example() {
	// 32-byte master key (in production, load from secure storage)
	masterKey := []byte("01234567890123456789012345678901")

	kr, err := encdoc.NewKeyring(encdoc.NewStaticKeyProvider("v1", map[string][]byte{"v1": masterKey}))
	if err != nil {
		panic(err)
	}
	defer kr.Close()

	codec, err := encdoc.New(encdoc.WithKeyring(kr))
	if err != nil {
		panic(err)
	}

	rec, err := codec.EncodeForInsert(&encdoc.Document{
		ID:      "note-1",
		Content: map[string]any{"text": "Hello, World!"},
	})
	if err != nil {
		panic(err)
	}

	doc, err := codec.DecodeRecord(rec)
	if err != nil {
		panic(err)
	}

	fmt.Println(rec.ID, rec.Sequence, doc.Content["text"])
	// Output: note-1 0 Hello, World!
}

func Example_blindIndex() {
	masterKey := []byte("01234567890123456789012345678901")
	kr, _ := encdoc.NewKeyring(encdoc.NewStaticKeyProvider("v1", map[string][]byte{"v1": masterKey}))
	defer kr.Close()
	codec, _ := encdoc.New(encdoc.WithKeyring(kr))

	// Normalize so lookups are case-insensitive.
	_, _ = codec.EnsureIndex([]string{"email"}, true, encdoc.WithNormalizer(encdoc.NormalizeEmail))

	rec, _ := codec.EncodeForInsert(&encdoc.Document{
		ID:   "user-1",
		Meta: map[string]any{"email": "Alice@Example.COM"},
	})

	q, _ := codec.BuildQuery(encdoc.Filter{
		Equals: []map[string]any{{"email": "alice@example.com"}},
	})
	fmt.Println("match:", q.Matches(rec.Indexed))

	q, _ = codec.BuildQuery(encdoc.Filter{
		Equals: []map[string]any{{"email": "bob@example.com"}},
	})
	fmt.Println("match:", q.Matches(rec.Indexed))
	// Output:
	// match: true
	// match: false
}

func Example_sequenceConflict() {
	ctx := context.Background()
	masterKey := []byte("01234567890123456789012345678901")
	kr, _ := encdoc.NewKeyring(encdoc.NewStaticKeyProvider("v1", map[string][]byte{"v1": masterKey}))
	defer kr.Close()

	client, _ := encdoc.NewClient(memstore.New(), encdoc.WithKeyring(kr))
	_ = client.Insert(ctx, &encdoc.Document{ID: "task-1", Meta: map[string]any{"status": "open"}})

	a, _ := client.Get(ctx, "task-1")
	b, _ := client.Get(ctx, "task-1")

	a.Meta["status"] = "done"
	fmt.Println("a:", client.Update(ctx, a))

	b.Meta["status"] = "blocked"
	err := client.Update(ctx, b)
	fmt.Println("b conflict:", errors.Is(err, encdoc.ErrConflict))

	// Re-fetch, reapply, resubmit.
	b, _ = client.Get(ctx, "task-1")
	b.Meta["status"] = "blocked"
	fmt.Println("b retry:", client.Update(ctx, b), b.Sequence)
	// Output:
	// a: <nil>
	// b conflict: true
	// b retry: <nil> 2
}

func Example_keyRotation() {
	oldKey := []byte("01234567890123456789012345678901")
	newKey := []byte("abcdefghijklmnopqrstuvwxyz012345")

	oldRing, _ := encdoc.NewKeyring(encdoc.NewStaticKeyProvider("v1", map[string][]byte{"v1": oldKey}))
	defer oldRing.Close()
	oldCodec, _ := encdoc.New(encdoc.WithKeyring(oldRing))
	rec, _ := oldCodec.EncodeForInsert(&encdoc.Document{ID: "doc", Content: map[string]any{"n": 1}})

	// Both keys are active, v2 is the default.
	ring, _ := encdoc.NewKeyring(encdoc.NewStaticKeyProvider("v2", map[string][]byte{
		"v1": oldKey,
		"v2": newKey,
	}))
	defer ring.Close()
	codec, _ := encdoc.New(encdoc.WithKeyring(ring))

	fmt.Println("needs rotation:", codec.NeedsRotation(rec))
	rec, _ = codec.Rotate(rec)
	fmt.Println("needs rotation:", codec.NeedsRotation(rec))
	for _, r := range rec.Envelope.Recipients {
		fmt.Println("recipient:", r.KeyID)
	}
	// Output:
	// needs rotation: true
	// needs rotation: false
	// recipient: v1
	// recipient: v2
}

func Example_wireFormat() {
	masterKey := []byte("01234567890123456789012345678901")
	kr, _ := encdoc.NewKeyring(encdoc.NewStaticKeyProvider("v1", map[string][]byte{"v1": masterKey}))
	defer kr.Close()
	codec, _ := encdoc.New(encdoc.WithKeyring(kr))

	rec, _ := codec.EncodeForInsert(&encdoc.Document{ID: "doc", Meta: map[string]any{"k": "v"}})
	data, _ := encdoc.MarshalRecord(rec, encdoc.FormatCBOR)

	parsed, err := encdoc.UnmarshalRecord(data, encdoc.FormatCBOR)
	if err != nil {
		panic(err)
	}
	doc, _ := codec.DecodeRecord(parsed)
	fmt.Println(doc.ID, doc.Meta["k"])
	// Output: doc v
}
