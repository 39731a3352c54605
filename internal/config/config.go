// Package config provides configuration loading and structs for the kotae service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application. It is constructed once
// at startup and treated as immutable; components receive the sections they
// need through their constructors.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Answer    AnswerConfig    `yaml:"answer"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the persisted index and the query log.
type StorageConfig struct {
	IndexDir     string `yaml:"index_dir"`
	QueryLogPath string `yaml:"query_log_path"`
}

// VectorsPath returns the path of the binary vector artifact.
func (s *StorageConfig) VectorsPath() string {
	return filepath.Join(s.IndexDir, "vectors.bin")
}

// MetaPath returns the path of the JSONL metadata sidecar.
func (s *StorageConfig) MetaPath() string {
	return filepath.Join(s.IndexDir, "meta.jsonl")
}

// CorpusConfig holds the document tree settings.
type CorpusConfig struct {
	RootDir    string   `yaml:"root_dir"`
	Extensions []string `yaml:"extensions"`
}

// EmbeddingConfig holds the embedding provider settings. The API key is read
// from the environment variable named by APIKeyEnv, never from the file.
type EmbeddingConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-request embedding timeout.
func (e *EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// RetrievalConfig holds chunking, ranking, and context assembly settings.
type RetrievalConfig struct {
	ChunkMinLen        int     `yaml:"chunk_min_len"`
	ChunkMaxLen        int     `yaml:"chunk_max_len"`
	ChunkOverlap       int     `yaml:"chunk_overlap"`
	TopK               int     `yaml:"top_k"`
	MaxContextChars    int     `yaml:"max_context_chars"`
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
	// KeywordBoosts maps a domain keyword to the bonus it adds when the
	// query mentions it and the record's path/title/section confirms it.
	KeywordBoosts map[string]float64 `yaml:"keyword_boosts"`
}

// AnswerConfig holds the answer-generation collaborator settings.
type AnswerConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	// Escalation is the contact named in refusal answers.
	Escalation string `yaml:"escalation"`
	OrgName    string `yaml:"org_name"`
}

// WatchConfig holds corpus watch settings. When enabled, any change under
// the corpus root schedules one full index rebuild after the debounce window.
type WatchConfig struct {
	Enabled         bool `yaml:"enabled"`
	DebounceSeconds int  `yaml:"debounce_seconds"`
}

// Debounce returns the rebuild debounce window.
func (w *WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceSeconds) * time.Second
}

// Load reads and parses the config file at path, applies defaults, and
// expands relative paths against the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	cfg.Storage.QueryLogPath = expandPath(cfg.Storage.QueryLogPath, configDir)
	cfg.Corpus.RootDir = expandPath(cfg.Corpus.RootDir, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Relative paths are resolved
// against configDir so the config file is self-contained wherever it lives.
func expandPath(path, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Join(configDir, path)
}
