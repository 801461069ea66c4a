package embeddings

import "context"

// Embedder maps page images and query text into one shared vector space.
// Cross-modal consistency is a hard precondition: a text query can only be
// scored against image vectors if both come from the same model family.
type Embedder interface {
	// EmbedText generates an embedding for a text query.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedImage generates an embedding for a PNG page image.
	EmbedImage(ctx context.Context, png []byte) ([]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}
