package answer

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleGenerator implements Generator using a Gemini vision model.
type GoogleGenerator struct {
	client *genai.Client
	model  string
}

// NewGoogleGenerator creates a new Gemini answer generator.
func NewGoogleGenerator(ctx context.Context, apiKey, model string) (*GoogleGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing genai client: %w", err)
	}
	return &GoogleGenerator{client: client, model: model}, nil
}

func (g *GoogleGenerator) Name() string { return "google" }

func (g *GoogleGenerator) GenerateAnswer(ctx context.Context, query string, images [][]byte) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt(query))}
	for _, img := range images {
		parts = append(parts, genai.NewPartFromBytes(img, "image/png"))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		{Role: "user", Parts: parts},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini answer request failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty answer")
	}
	return text, nil
}
