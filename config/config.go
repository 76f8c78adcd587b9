package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the paper retrieval tool.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CorpusConfig describes where source PDFs are read from.
type CorpusConfig struct {
	Dir      string   `yaml:"dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// StoreConfig holds the on-disk locations of the store artifacts.
type StoreConfig struct {
	Dir           string `yaml:"dir"`
	IndexFile     string `yaml:"index_file"`
	DocumentsFile string `yaml:"documents_file"`
	ManifestFile  string `yaml:"manifest_file"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`    // "googleai", "ollama", "openai", "mock"
	Model       string `yaml:"model"`       // e.g., "embedding-001"
	APIKeyEnv   string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL     string `yaml:"base_url"`
	Dimension   int    `yaml:"dimension"`
	Concurrency int    `yaml:"concurrency"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK      int           `yaml:"top_k"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// LLMConfig configures the answer composer.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

var knownProviders = map[string]bool{
	"googleai": true,
	"ollama":   true,
	"openai":   true,
	"mock":     true,
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Dir:      filepath.Join("data", "pdfs"),
			Includes: []string{"*.pdf", "*.PDF"},
		},
		Store: StoreConfig{
			Dir:           filepath.Join("data", "vector_db"),
			IndexFile:     "index.bin",
			DocumentsFile: "documents.json",
			ManifestFile:  "manifest.db",
		},
		Embedding: EmbeddingConfig{
			Provider:    "googleai",
			Model:       "embedding-001",
			APIKeyEnv:   "GOOGLE_API_KEY",
			Dimension:   768,
			Concurrency: 4,
		},
		Retrieve: RetrieveConfig{
			TopK:      3,
			CacheSize: 100,
			CacheTTL:  5 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:  "googleai",
			Model:     "gemini-2.0-flash",
			APIKeyEnv: "GOOGLE_API_KEY",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for rag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "rag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".rag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets the process environment override model and path settings.
func (c *Config) applyEnv() {
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("PDF_DIR"); v != "" {
		c.Corpus.Dir = v
	}
	if v := os.Getenv("VECTOR_DB_DIR"); v != "" {
		c.Store.Dir = v
	}
}

// Validate checks the settings the store cannot run without.
func (c *Config) Validate() error {
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if !knownProviders[c.Embedding.Provider] {
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}
	if c.Store.Dir == "" || c.Store.IndexFile == "" || c.Store.DocumentsFile == "" {
		return fmt.Errorf("store dir, index_file and documents_file must be set")
	}
	if c.Retrieve.TopK < 1 {
		return fmt.Errorf("retrieve.top_k must be at least 1, got %d", c.Retrieve.TopK)
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

// IndexPath returns the path of the binary index artifact.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Store.Dir, c.Store.IndexFile)
}

// DocumentsPath returns the path of the document list artifact.
func (c *Config) DocumentsPath() string {
	return filepath.Join(c.Store.Dir, c.Store.DocumentsFile)
}

// ManifestPath returns the path of the ingestion manifest database.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Store.Dir, c.Store.ManifestFile)
}

// EnsureStoreDir ensures the store directory exists.
func (c *Config) EnsureStoreDir() error {
	return os.MkdirAll(c.Store.Dir, 0755)
}
