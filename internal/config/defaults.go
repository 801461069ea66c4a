package config

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() *Config {
	return &Config{
		Port:    8080,
		DataDir: ".slidesage",
		Store:   StoreSQLite,
		Embedding: EmbeddingConfig{
			Provider:   ProviderOpenAI,
			Model:      "jina-clip-v2",
			Dimensions: 1024,
		},
		Answer: AnswerConfig{
			Provider: ProviderGoogle,
			Model:    "gemini-1.5-pro",
		},
		Workers:               4,
		SessionTTLMinutes:     120,
		SweepSchedule:         "@every 10m",
		RequestTimeoutSeconds: 30,
	}
}
