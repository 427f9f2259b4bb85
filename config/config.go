package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"docsearch/internal/domain"
)

// DirName is the per-project directory holding the index and config.
const DirName = ".docsearch"

// Config holds all configuration for docsearch.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IndexConfig holds ingestion and keyword index configuration.
type IndexConfig struct {
	Includes     []string `yaml:"includes"`
	ChunkSize    int      `yaml:"chunk_size"`    // words per chunk
	ChunkOverlap int      `yaml:"chunk_overlap"` // words shared by adjacent chunks
	K1           float64  `yaml:"k1"`
	B            float64  `yaml:"b"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	NResults          int  `yaml:"n_results"`
	Hybrid            bool `yaml:"hybrid"`
	Rerank            bool `yaml:"rerank"`
	RRFK              int  `yaml:"rrf_k"`
	KeywordCandidates int  `yaml:"keyword_candidates"`
	RerankCandidates  int  `yaml:"rerank_candidates"` // semantic recall floor when reranking
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "ollama", "openai", "hash"
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
	CacheSize int    `yaml:"cache_size"` // query embedding cache entries, 0 disables
}

// RerankConfig holds cross-encoder configuration.
type RerankConfig struct {
	Provider  string `yaml:"provider"` // "cohere", "overlap"
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// StoreConfig selects where chunks and vectors live.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "bolt", "memory"
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text", "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Includes:     []string{"*.txt", "*.pdf"},
			ChunkSize:    300,
			ChunkOverlap: 30,
			K1:           1.5,
			B:            0.75,
		},
		Retrieve: RetrieveConfig{
			NResults:          5,
			Hybrid:            true,
			Rerank:            true,
			RRFK:              60,
			KeywordCandidates: 20,
			RerankCandidates:  20,
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			BaseURL:   "http://localhost:11434/v1",
			Dimension: 768,
			BatchSize: 64,
			CacheSize: 256,
		},
		Rerank: RerankConfig{
			Provider:  "cohere",
			Model:     "rerank-english-v3.0",
			BaseURL:   "https://api.cohere.ai",
			APIKeyEnv: "COHERE_API_KEY",
		},
		Store: StoreConfig{
			Backend: "bolt",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		// Defaults if no config file
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFromDir loads configuration from a directory. It reads a .env file
// there if present, then looks for docsearch.yaml and .docsearch/config.yaml.
func LoadFromDir(dir string) (*Config, error) {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		// Variables already set in the environment win.
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	path := filepath.Join(dir, "docsearch.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, DirName, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key    string
		target *string
	}{
		{"DOCSEARCH_EMBED_BASE_URL", &c.Embedding.BaseURL},
		{"DOCSEARCH_EMBED_MODEL", &c.Embedding.Model},
		{"DOCSEARCH_RERANK_BASE_URL", &c.Rerank.BaseURL},
		{"DOCSEARCH_RERANK_MODEL", &c.Rerank.Model},
		{"DOCSEARCH_LOG_LEVEL", &c.Logging.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.target = v
		}
	}
}

// Validate reports configuration the indexer cannot work with.
func (c *Config) Validate() error {
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", domain.ErrInvalidConfig, c.Index.ChunkSize)
	}
	if c.Index.ChunkOverlap < 0 || 2*c.Index.ChunkOverlap > c.Index.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be between 0 and chunk_size/2, got %d", domain.ErrInvalidConfig, c.Index.ChunkOverlap)
	}
	switch c.Embedding.Provider {
	case "ollama", "openai", "hash":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidConfig, c.Embedding.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("%w: embedding dimension must be positive", domain.ErrInvalidConfig)
	}
	switch c.Rerank.Provider {
	case "cohere", "overlap", "":
	default:
		return fmt.Errorf("%w: unknown rerank provider %q", domain.ErrInvalidConfig, c.Rerank.Provider)
	}
	switch c.Store.Backend {
	case "bolt", "memory":
	default:
		return fmt.Errorf("%w: unknown store backend %q", domain.ErrInvalidConfig, c.Store.Backend)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, DirName, "index.db")
}

// EnsureDir ensures the .docsearch directory exists.
func EnsureDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, DirName), 0755)
}
