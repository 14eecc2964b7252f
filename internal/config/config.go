package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PathsConfig holds the two working directories.
type PathsConfig struct {
	DocsDir  string `yaml:"docs_dir"`
	IndexDir string `yaml:"index_dir"`
}

// WikipediaConfig configures the MediaWiki API client.
type WikipediaConfig struct {
	BaseURL           string  `yaml:"base_url"`
	Language          string  `yaml:"language"`
	UserAgent         string  `yaml:"user_agent"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	AutoSuggest       *bool   `yaml:"auto_suggest,omitempty"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	ChunkSize         int    `yaml:"chunk_size"`
	ChunkOverlap      *int   `yaml:"chunk_overlap,omitempty"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// OllamaConfig holds connection details for an Ollama server.
type OllamaConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OpenAIConfig holds configuration for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size,omitempty"`
}

// BedrockConfig holds configuration for AWS Bedrock models.
type BedrockConfig struct {
	Region  string `yaml:"region"`
	ModelID string `yaml:"model_id"`
}

// HashingConfig configures the offline feature-hashing embedder.
type HashingConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type    string         `yaml:"type"`
	Ollama  *OllamaConfig  `yaml:"ollama,omitempty"`
	OpenAI  *OpenAIConfig  `yaml:"openai,omitempty"`
	Bedrock *BedrockConfig `yaml:"bedrock,omitempty"`
	Hashing *HashingConfig `yaml:"hashing,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PostgresConfig contains connection details for a pgvector database.
type PostgresConfig struct {
	DSNEnv string `yaml:"dsn_env"`
	Table  string `yaml:"table"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type     string          `yaml:"type"`
	TopK     int             `yaml:"top_k"`
	Qdrant   *QdrantConfig   `yaml:"qdrant,omitempty"`
	Postgres *PostgresConfig `yaml:"postgres,omitempty"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	Type        string         `yaml:"type"`
	MaxTokens   int            `yaml:"max_tokens"`
	Temperature float64        `yaml:"temperature"`
	Ollama      *OllamaConfig  `yaml:"ollama,omitempty"`
	OpenAI      *OpenAIConfig  `yaml:"openai,omitempty"`
	Bedrock     *BedrockConfig `yaml:"bedrock,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Paths       PathsConfig       `yaml:"paths"`
	Wikipedia   WikipediaConfig   `yaml:"wikipedia"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Log         LogConfig         `yaml:"log"`
}

// Overlap returns the window overlap in characters. Zero is a valid setting.
func (c ChunkerConfig) Overlap() int {
	if c.ChunkOverlap == nil {
		return 0
	}
	return *c.ChunkOverlap
}

// AutoSuggestEnabled reports whether topic lookups go through search first.
func (c WikipediaConfig) AutoSuggestEnabled() bool {
	return c.AutoSuggest == nil || *c.AutoSuggest
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/wikirag/config.yaml.
// If neither exists, it writes defaults to ~/.config/wikirag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Defaults()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "wikirag", "config.yaml"), nil
}

// Defaults returns the configuration used when no file is present.
func Defaults() *AppConfig {
	cfg := &AppConfig{
		Paths:       PathsConfig{DocsDir: "docs", IndexDir: "embeddings"},
		Chunker:     ChunkerConfig{Type: "window"},
		Embedder:    EmbedderConfig{Type: "ollama"},
		VectorStore: VectorStoreConfig{Type: "sqlite"},
		Generator:   GeneratorConfig{Type: "ollama"},
		Log:         LogConfig{Level: "warn"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Paths.DocsDir == "" {
		cfg.Paths.DocsDir = "docs"
	}
	if cfg.Paths.IndexDir == "" {
		cfg.Paths.IndexDir = "embeddings"
	}

	w := &cfg.Wikipedia
	if w.Language == "" {
		w.Language = "en"
	}
	if w.BaseURL == "" {
		w.BaseURL = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", w.Language)
	}
	if w.UserAgent == "" {
		w.UserAgent = "wikirag/0.1 (command-line RAG over Wikipedia articles)"
	}
	if w.TimeoutSecs == 0 {
		w.TimeoutSecs = 30
	}
	if w.RequestsPerSecond == 0 {
		w.RequestsPerSecond = 5
	}

	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "window"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 500
	}
	if cfg.Chunker.ChunkOverlap == nil {
		overlap := min(50, cfg.Chunker.ChunkSize/10)
		cfg.Chunker.ChunkOverlap = &overlap
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "ollama"
	}
	switch cfg.Embedder.Type {
	case "ollama":
		if cfg.Embedder.Ollama == nil {
			cfg.Embedder.Ollama = &OllamaConfig{}
		}
		applyOllamaDefaults(cfg.Embedder.Ollama, "all-minilm", 60)
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small", 30)
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	case "bedrock":
		if cfg.Embedder.Bedrock == nil {
			cfg.Embedder.Bedrock = &BedrockConfig{}
		}
		applyBedrockDefaults(cfg.Embedder.Bedrock, "amazon.titan-embed-text-v2:0")
	case "hashing":
		if cfg.Embedder.Hashing == nil {
			cfg.Embedder.Hashing = &HashingConfig{}
		}
		if cfg.Embedder.Hashing.Dimension == 0 {
			cfg.Embedder.Hashing.Dimension = 384
		}
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.VectorStore.TopK == 0 {
		cfg.VectorStore.TopK = 4
	}
	switch cfg.VectorStore.Type {
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		q := cfg.VectorStore.Qdrant
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.Collection == "" {
			q.Collection = "wikirag"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	case "postgres":
		if cfg.VectorStore.Postgres == nil {
			cfg.VectorStore.Postgres = &PostgresConfig{}
		}
		p := cfg.VectorStore.Postgres
		if p.DSNEnv == "" {
			p.DSNEnv = "WIKIRAG_DATABASE_URL"
		}
		if p.Table == "" {
			p.Table = "wikirag_chunks"
		}
	}

	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "ollama"
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 256
	}
	switch cfg.Generator.Type {
	case "ollama":
		if cfg.Generator.Ollama == nil {
			cfg.Generator.Ollama = &OllamaConfig{}
		}
		applyOllamaDefaults(cfg.Generator.Ollama, "llama3.2", 120)
	case "openai":
		if cfg.Generator.OpenAI == nil {
			cfg.Generator.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(cfg.Generator.OpenAI, "gpt-4o-mini", 120)
	case "bedrock":
		if cfg.Generator.Bedrock == nil {
			cfg.Generator.Bedrock = &BedrockConfig{}
		}
		applyBedrockDefaults(cfg.Generator.Bedrock, "anthropic.claude-3-haiku-20240307-v1:0")
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
}

func applyOllamaDefaults(c *OllamaConfig, model string, timeoutSecs int) {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = timeoutSecs
	}
}

func applyOpenAIDefaults(c *OpenAIConfig, model string, timeoutSecs int) {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = timeoutSecs
	}
}

func applyBedrockDefaults(c *BedrockConfig, modelID string) {
	if c.Region == "" {
		c.Region = os.Getenv("AWS_REGION")
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.ModelID == "" {
		c.ModelID = modelID
	}
}

// Validate checks values that defaults cannot repair.
func Validate(cfg *AppConfig) error {
	switch cfg.Chunker.Type {
	case "window", "recursive", "sentence":
	default:
		return fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}
	if cfg.Chunker.ChunkSize < 0 {
		return fmt.Errorf("chunker.chunk_size must be positive, got %d", cfg.Chunker.ChunkSize)
	}
	if overlap := cfg.Chunker.Overlap(); overlap < 0 || overlap >= cfg.Chunker.ChunkSize {
		return fmt.Errorf("chunker.chunk_overlap must be in [0, %d), got %d", cfg.Chunker.ChunkSize, overlap)
	}
	if cfg.Chunker.OverlapSentences < 0 || cfg.Chunker.OverlapSentences >= cfg.Chunker.SentencesPerChunk {
		return fmt.Errorf("chunker.overlap_sentences must be in [0, %d), got %d", cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	}
	switch cfg.Embedder.Type {
	case "ollama", "openai", "bedrock", "hashing":
	default:
		return fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
	switch cfg.VectorStore.Type {
	case "sqlite", "qdrant", "postgres":
	default:
		return fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
	if cfg.VectorStore.TopK < 1 {
		return fmt.Errorf("vector_store.top_k must be at least 1, got %d", cfg.VectorStore.TopK)
	}
	switch cfg.Generator.Type {
	case "ollama", "openai", "bedrock", "extractive":
	default:
		return fmt.Errorf("unknown generator: %s", cfg.Generator.Type)
	}
	if cfg.Generator.MaxTokens < 1 {
		return fmt.Errorf("generator.max_tokens must be at least 1, got %d", cfg.Generator.MaxTokens)
	}
	if cfg.Generator.Temperature < 0 || cfg.Generator.Temperature > 2 {
		return fmt.Errorf("generator.temperature must be in [0, 2], got %g", cfg.Generator.Temperature)
	}
	if cfg.Wikipedia.RequestsPerSecond < 0 {
		return fmt.Errorf("wikipedia.requests_per_second must not be negative")
	}
	return nil
}
