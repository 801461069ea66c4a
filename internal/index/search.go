package index

import (
	"fmt"
	"sort"
)

// Match is one scored search hit.
type Match struct {
	DocumentID string
	PageNumber int
	SourceKey  string
	Score      float64
}

// Search scores the query vector against every record and returns the top k
// matches by descending cosine similarity. Ties are broken by original
// insertion order, so results are fully deterministic for a fixed index.
func (ix *Index) Search(query []float32, k int) ([]Match, error) {
	if len(ix.Records) == 0 {
		return nil, nil
	}
	if len(query) != ix.Dimension {
		return nil, fmt.Errorf("%w: query has %d dims, index has %d", ErrDimensionMismatch, len(query), ix.Dimension)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > len(ix.Records) {
		k = len(ix.Records)
	}

	matches := make([]Match, len(ix.Records))
	for i, rec := range ix.Records {
		matches[i] = Match{
			DocumentID: rec.DocumentID,
			PageNumber: rec.PageNumber,
			SourceKey:  rec.SourceKey,
			Score:      dot(query, rec.Vector),
		}
	}

	// SliceStable keeps insertion order among equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches[:k], nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
