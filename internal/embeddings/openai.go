package embeddings

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder generates embeddings through an OpenAI-compatible
// embeddings API. Multimodal models served this way (jina-clip, nomic-embed
// style deployments) accept image inputs as base64 data URIs, which is how
// EmbedImage keeps pages and queries in the same vector space.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
}

// NewOpenAIEmbedder creates an embedder for the given model. baseURL may be
// empty for the default OpenAI endpoint, or point at a compatible server.
func NewOpenAIEmbedder(apiKey, model, baseURL string, dims int) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dims:   dims,
	}
}

func (e *OpenAIEmbedder) Name() string { return e.model }

func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text for embedding")
	}
	return e.embed(ctx, text)
}

func (e *OpenAIEmbedder) EmbedImage(ctx context.Context, png []byte) ([]float32, error) {
	if len(png) == 0 {
		return nil, fmt.Errorf("empty image for embedding")
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	return e.embed(ctx, uri)
}

func (e *OpenAIEmbedder) embed(ctx context.Context, input string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{input},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding request failed: %w", err)
	}
	if len(resp.Data) != 1 {
		return nil, fmt.Errorf("openai returned %d embeddings, expected 1", len(resp.Data))
	}
	vec := resp.Data[0].Embedding
	if e.dims > 0 && len(vec) != e.dims {
		return nil, fmt.Errorf("openai returned %d dims, expected %d", len(vec), e.dims)
	}
	return vec, nil
}
