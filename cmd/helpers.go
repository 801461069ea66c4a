package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slidesage/slidesage/internal/answer"
	"github.com/slidesage/slidesage/internal/blob"
	"github.com/slidesage/slidesage/internal/config"
	"github.com/slidesage/slidesage/internal/embeddings"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `slidesage init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openBlobStore creates the object store backend selected by the config.
// The returned closer is a no-op for the in-memory backend.
func openBlobStore(cfg *config.Config) (blob.Store, func() error, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return blob.NewMemory(), func() error { return nil }, nil
	case config.StoreSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("creating data dir %s: %w", cfg.DataDir, err)
		}
		store, err := blob.OpenSQLite(filepath.Join(cfg.DataDir, "slidesage.db"))
		if err != nil {
			return nil, nil, fmt.Errorf("opening blob store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

// createEmbedderFromConfig creates the cross-modal embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	apiKey := os.Getenv(config.APIKeyEnvVar(cfg.Embedding.Provider))
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable is required for %s embeddings",
			config.APIKeyEnvVar(cfg.Embedding.Provider), cfg.Embedding.Provider)
	}
	return embeddings.NewOpenAIEmbedder(apiKey, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.Dimensions), nil
}

// createGeneratorFromConfig creates the vision answer generator based on config.
func createGeneratorFromConfig(ctx context.Context, cfg *config.Config) (answer.Generator, error) {
	apiKey := os.Getenv(config.APIKeyEnvVar(cfg.Answer.Provider))
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable is required for the %s answer model",
			config.APIKeyEnvVar(cfg.Answer.Provider), cfg.Answer.Provider)
	}

	switch cfg.Answer.Provider {
	case config.ProviderOpenAI:
		return answer.NewOpenAIGenerator(apiKey, cfg.Answer.Model, cfg.Answer.BaseURL), nil
	case config.ProviderGoogle:
		return answer.NewGoogleGenerator(ctx, apiKey, cfg.Answer.Model)
	default:
		return nil, fmt.Errorf("unknown answer provider %q", cfg.Answer.Provider)
	}
}
