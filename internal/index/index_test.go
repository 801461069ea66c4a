package index

import (
	"math"
	"testing"
)

func unit(dims, hot int) []float32 {
	vec := make([]float32, dims)
	vec[hot] = 1
	return vec
}

func TestIndex_UpsertIdempotent(t *testing.T) {
	ix := New(0)

	if err := ix.Upsert(Record{DocumentID: "deck", PageNumber: 1, SourceKey: "k1", Vector: unit(4, 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if ix.Dimension != 4 {
		t.Errorf("Dimension: got %d, want 4", ix.Dimension)
	}

	// Re-processing the same page replaces, never duplicates.
	if err := ix.Upsert(Record{DocumentID: "deck", PageNumber: 1, SourceKey: "k1", Vector: unit(4, 1)}); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}
	if ix.Len() != 1 {
		t.Fatalf("Len after duplicate upsert: got %d, want 1", ix.Len())
	}
	if ix.Records[0].Vector[1] != 1 {
		t.Error("replacement did not keep the newest vector")
	}

	if err := ix.Upsert(Record{DocumentID: "deck", PageNumber: 2, SourceKey: "k2", Vector: unit(4, 2)}); err != nil {
		t.Fatalf("Upsert second page: %v", err)
	}
	if ix.Len() != 2 {
		t.Errorf("Len: got %d, want 2", ix.Len())
	}
}

func TestIndex_UpsertDimensionMismatch(t *testing.T) {
	ix := New(4)
	err := ix.Upsert(Record{DocumentID: "deck", PageNumber: 1, Vector: unit(8, 0)})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestIndex_RemoveDocument(t *testing.T) {
	ix := New(0)
	for page := 1; page <= 3; page++ {
		if err := ix.Upsert(Record{DocumentID: "a", PageNumber: page, Vector: unit(4, page%4)}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	if err := ix.Upsert(Record{DocumentID: "b", PageNumber: 1, Vector: unit(4, 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if removed := ix.RemoveDocument("a"); removed != 3 {
		t.Errorf("RemoveDocument: got %d removed, want 3", removed)
	}
	if ix.Len() != 1 || ix.Records[0].DocumentID != "b" {
		t.Errorf("unexpected records after removal: %+v", ix.Records)
	}
	if removed := ix.RemoveDocument("a"); removed != 0 {
		t.Errorf("second RemoveDocument: got %d removed, want 0", removed)
	}
}

func TestIndex_SearchRankingAndTieBreak(t *testing.T) {
	ix := New(0)
	// far scores 0 against the query; near scores 1; the two tied records
	// both score ~0.707 and must come back in insertion order.
	tied := Normalize([]float32{1, 1, 0, 0})
	records := []Record{
		{DocumentID: "deck", PageNumber: 1, SourceKey: "tied-first", Vector: tied},
		{DocumentID: "deck", PageNumber: 2, SourceKey: "far", Vector: unit(4, 3)},
		{DocumentID: "deck", PageNumber: 3, SourceKey: "tied-second", Vector: tied},
		{DocumentID: "deck", PageNumber: 4, SourceKey: "near", Vector: unit(4, 0)},
	}
	for _, rec := range records {
		if err := ix.Upsert(rec); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	matches, err := ix.Search(unit(4, 0), 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	want := []string{"near", "tied-first", "tied-second"}
	for i, w := range want {
		if matches[i].SourceKey != w {
			t.Errorf("match %d: got %s, want %s", i, matches[i].SourceKey, w)
		}
	}
	if matches[0].Score < 0.99 {
		t.Errorf("top score: got %f, want ~1", matches[0].Score)
	}

	// Determinism: repeated searches return identical rankings and scores.
	for run := 0; run < 5; run++ {
		again, err := ix.Search(unit(4, 0), 3)
		if err != nil {
			t.Fatalf("Search run %d: %v", run, err)
		}
		for i := range matches {
			if again[i] != matches[i] {
				t.Fatalf("run %d diverged: got %+v, want %+v", run, again[i], matches[i])
			}
		}
	}
}

func TestIndex_SearchEdgeCases(t *testing.T) {
	ix := New(0)

	matches, err := ix.Search(unit(4, 0), 3)
	if err != nil || matches != nil {
		t.Errorf("empty index: got (%v, %v), want (nil, nil)", matches, err)
	}

	if err := ix.Upsert(Record{DocumentID: "d", PageNumber: 1, Vector: unit(4, 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// k larger than the index clamps.
	matches, err = ix.Search(unit(4, 0), 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("clamped matches: got %d, want 1", len(matches))
	}

	// Wrong query dimension is a structural error.
	if _, err := ix.Search(unit(8, 0), 1); err == nil {
		t.Error("expected dimension mismatch for wrong query size")
	}
}

func TestDecode_Corrupt(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("expected error for malformed artifact")
	}

	// Structurally valid JSON with a vector that contradicts the declared
	// dimension is also corrupt.
	bad := []byte(`{"dimension":4,"generation":1,"records":[{"document_id":"d","page_number":1,"source_key":"k","vector":[1,0]}]}`)
	if _, err := Decode(bad); err == nil {
		t.Error("expected error for dimension-inconsistent artifact")
	}
}

func TestNormalize(t *testing.T) {
	vec := Normalize([]float32{3, 4})
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("norm^2: got %f, want 1", sum)
	}

	// Zero vectors pass through untouched.
	zero := Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector changed: %v", zero)
	}
}
