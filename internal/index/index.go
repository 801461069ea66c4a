package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Sentinel errors for structural index failures. These are permanent:
// retrying cannot fix a malformed artifact or a wrong-sized vector.
var (
	ErrCorrupt           = errors.New("index: corrupt artifact")
	ErrDimensionMismatch = errors.New("index: embedding dimension mismatch")
)

// Record is one embedded page: the vector plus the page it represents.
// Records are immutable once written; they are only added or removed.
type Record struct {
	DocumentID string    `json:"document_id"`
	PageNumber int       `json:"page_number"`
	SourceKey  string    `json:"source_key"`
	Vector     []float32 `json:"vector"`
}

// Index is a session's similarity-searchable set of embedded pages,
// serialized as a single artifact and replaced atomically through
// version-guarded writes. Generation increases monotonically with every
// successful merge.
type Index struct {
	Dimension  int      `json:"dimension"`
	Generation int64    `json:"generation"`
	Records    []Record `json:"records"`
}

// New creates an empty index. The dimension is fixed by the first upsert
// when dim is 0.
func New(dim int) *Index {
	return &Index{Dimension: dim}
}

// Decode parses a serialized index artifact.
func Decode(data []byte) (*Index, error) {
	var ix Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	for i, rec := range ix.Records {
		if len(rec.Vector) != ix.Dimension {
			return nil, fmt.Errorf("%w: record %d has %d dims, index has %d",
				ErrCorrupt, i, len(rec.Vector), ix.Dimension)
		}
	}
	return &ix, nil
}

// Encode serializes the index artifact.
func (ix *Index) Encode() ([]byte, error) {
	data, err := json.Marshal(ix)
	if err != nil {
		return nil, fmt.Errorf("encoding index: %w", err)
	}
	return data, nil
}

// Len returns the number of records.
func (ix *Index) Len() int { return len(ix.Records) }

// Upsert merges one record: any existing record for the same
// (document_id, page_number) is removed first, so re-processing the same
// page event never produces a duplicate.
func (ix *Index) Upsert(rec Record) error {
	if len(rec.Vector) == 0 {
		return fmt.Errorf("%w: empty vector for %s page %d", ErrDimensionMismatch, rec.DocumentID, rec.PageNumber)
	}
	if ix.Dimension == 0 && len(ix.Records) == 0 {
		ix.Dimension = len(rec.Vector)
	}
	if len(rec.Vector) != ix.Dimension {
		return fmt.Errorf("%w: got %d dims, index has %d", ErrDimensionMismatch, len(rec.Vector), ix.Dimension)
	}

	for i, existing := range ix.Records {
		if existing.DocumentID == rec.DocumentID && existing.PageNumber == rec.PageNumber {
			ix.Records = append(ix.Records[:i], ix.Records[i+1:]...)
			break
		}
	}
	ix.Records = append(ix.Records, rec)
	return nil
}

// RemoveDocument drops every record belonging to the document and returns
// how many were removed.
func (ix *Index) RemoveDocument(docID string) int {
	kept := ix.Records[:0]
	removed := 0
	for _, rec := range ix.Records {
		if rec.DocumentID == docID {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	ix.Records = kept
	return removed
}

// Normalize scales the vector to unit length in place and returns it.
// With unit vectors the inner product used by Search is cosine similarity.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
