package answer

import (
	"context"
	"fmt"
)

// Generator produces a natural-language answer grounded in the retrieved
// page images. Output is free text and may be non-deterministic; callers
// must not rely on it for ranking.
type Generator interface {
	// GenerateAnswer answers the query using the given PNG page images.
	GenerateAnswer(ctx context.Context, query string, images [][]byte) (string, error)

	// Name returns the name of this provider.
	Name() string
}

// prompt builds the grounding instruction shared by all providers.
func prompt(query string) string {
	return fmt.Sprintf(`Based on the following slide page images, please answer this question: %s

Provide a comprehensive answer based on what you can see in the images.
If the images don't contain relevant information, please indicate that.`, query)
}
