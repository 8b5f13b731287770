package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned by Validate when the model API key is not set.
var ErrMissingCredential = errors.New("missing credential")

// CredentialError names the unset environment variable. It matches
// ErrMissingCredential with errors.Is.
type CredentialError struct {
	Env string
}

func (e *CredentialError) Error() string { return e.Env + " no está configurada" }

func (e *CredentialError) Is(target error) bool { return target == ErrMissingCredential }

// EnvConfigPath overrides the config file lookup when set.
const EnvConfigPath = "NEWSQA_CONFIG"

// LLMConfig configures the chat model used by the classifier, generators and memory.
type LLMConfig struct {
	BaseURL               string  `yaml:"base_url"`
	APIKeyEnv             string  `yaml:"api_key_env"`
	Model                 string  `yaml:"model"`
	ClassifierTemperature float64 `yaml:"classifier_temperature"`
	AnswerTemperature     float64 `yaml:"answer_temperature"`
	MemoryTemperature     float64 `yaml:"memory_temperature"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
// Type "none" indexes every document as a single chunk.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects the in-memory vector store implementation.
type VectorStoreConfig struct {
	Type       string `yaml:"type"`
	Collection string `yaml:"collection"`
	TopK       int    `yaml:"top_k"`
}

// MemoryConfig selects the conversation summarizer.
type MemoryConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// SourceConfig describes one news site to crawl.
type SourceConfig struct {
	Name            string   `yaml:"name"`
	BaseURL         string   `yaml:"base_url"`
	MaxDepth        int      `yaml:"max_depth"`
	MaxPages        int      `yaml:"max_pages"`
	Exclude         []string `yaml:"exclude"`
	TitleSelector   string   `yaml:"title_selector"`
	ContentSelector string   `yaml:"content_selector"`
	TimeoutSecs     int      `yaml:"timeout_secs"`
	UserAgent       string   `yaml:"user_agent"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LLM         LLMConfig         `yaml:"llm"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Memory      MemoryConfig      `yaml:"memory"`
	Sources     []SourceConfig    `yaml:"sources"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault honours NEWSQA_CONFIG, then tries ./config.yaml, then
// ~/.config/newsqa/config.yaml. If none exists, it writes defaults to the
// user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		cfg, err := Load(p)
		return cfg, p, err
	}
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
	cfg := defaultConfig()
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

// APIKey returns the model credential from the configured environment variable.
func (c *AppConfig) APIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}

// Validate checks that the process can start: the credential must be present
// and at least one source configured.
func (c *AppConfig) Validate() error {
	if c.APIKey() == "" {
		return &CredentialError{Env: c.LLM.APIKeyEnv}
	}
	if len(c.Sources) == 0 {
		return errors.New("no news sources configured")
	}
	for i, s := range c.Sources {
		if s.BaseURL == "" {
			return fmt.Errorf("source %d (%s): base_url required", i, s.Name)
		}
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "newsqa", "config.yaml"), nil
}

// DefaultSources are the two news sites crawled at startup.
func DefaultSources() []SourceConfig {
	exclude := []string{"/author/", "/tag/", "/category/"}
	return []SourceConfig{
		{
			Name:            "cnn-espanol",
			BaseURL:         "https://cnnespanol.cnn.com/lite/",
			MaxDepth:        2,
			MaxPages:        60,
			Exclude:         exclude,
			TitleSelector:   "h1",
			ContentSelector: "article p",
		},
		{
			Name:            "cbc-news",
			BaseURL:         "https://www.cbc.ca/lite/news?sort=latest",
			MaxDepth:        2,
			MaxPages:        60,
			Exclude:         exclude,
			TitleSelector:   "h1",
			ContentSelector: "article p, .story p",
		},
	}
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "openai"},
		Chunker:     ChunkerConfig{Type: "none"},
		VectorStore: VectorStoreConfig{Type: "chromem"},
		Memory:      MemoryConfig{Type: "llm"},
		Sources:     DefaultSources(),
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-3.5-turbo"
	}
	if cfg.LLM.AnswerTemperature == 0 {
		cfg.LLM.AnswerTemperature = 0.7
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = cfg.LLM.BaseURL
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = cfg.LLM.APIKeyEnv
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "none"
	}
	if cfg.Chunker.Type == "sentence" && cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "chromem"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "noticias"
	}
	if cfg.VectorStore.TopK == 0 {
		cfg.VectorStore.TopK = 3
	}
	if cfg.Memory.Type == "" {
		cfg.Memory.Type = "llm"
	}
	if cfg.Memory.MaxSentences == 0 {
		cfg.Memory.MaxSentences = 5
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}
	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		if s.MaxDepth == 0 {
			s.MaxDepth = 2
		}
		if s.MaxPages == 0 {
			s.MaxPages = 60
		}
		if s.TitleSelector == "" {
			s.TitleSelector = "h1"
		}
		if s.ContentSelector == "" {
			s.ContentSelector = "article p"
		}
		if s.TimeoutSecs == 0 {
			s.TimeoutSecs = 15
		}
		if s.UserAgent == "" {
			s.UserAgent = "Mozilla/5.0 (compatible; newsqa/1.0)"
		}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}
