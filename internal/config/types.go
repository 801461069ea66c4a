package config

// ProviderType identifies an embedding or answer-generation provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGoogle ProviderType = "google"
)

// StoreType identifies an object-store backend.
type StoreType string

const (
	StoreMemory StoreType = "memory"
	StoreSQLite StoreType = "sqlite"
)

// Config is the top-level slidesage configuration, corresponding to
// .slidesage.yml.
type Config struct {
	Port    int       `yaml:"port" koanf:"port"`
	DataDir string    `yaml:"data_dir" koanf:"data_dir"`
	Store   StoreType `yaml:"store" koanf:"store"`

	Embedding EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Answer    AnswerConfig    `yaml:"answer" koanf:"answer"`

	// Workers is the page-event worker pool size.
	Workers int `yaml:"workers" koanf:"workers"`

	// SessionTTLMinutes bounds a session's lifetime; 0 disables expiry.
	SessionTTLMinutes int `yaml:"session_ttl_minutes" koanf:"session_ttl_minutes"`

	// SweepSchedule is the cron spec driving session expiry.
	SweepSchedule string `yaml:"sweep_schedule" koanf:"sweep_schedule"`

	// RequestTimeoutSeconds bounds each embedding/answer vendor call.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" koanf:"request_timeout_seconds"`

	// AllowAllOrigins relaxes CORS for development.
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// EmbeddingConfig selects the cross-modal embedding model. The model must
// embed page images and query text into the same vector space.
type EmbeddingConfig struct {
	Provider   ProviderType `yaml:"provider" koanf:"provider"`
	Model      string       `yaml:"model" koanf:"model"`
	BaseURL    string       `yaml:"base_url" koanf:"base_url"`
	Dimensions int          `yaml:"dimensions" koanf:"dimensions"`
}

// AnswerConfig selects the vision-capable answer model.
type AnswerConfig struct {
	Provider ProviderType `yaml:"provider" koanf:"provider"`
	Model    string       `yaml:"model" koanf:"model"`
	BaseURL  string       `yaml:"base_url" koanf:"base_url"`
}
