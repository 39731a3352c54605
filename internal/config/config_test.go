package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
corpus:
  root_dir: kb
retrieval:
  top_k: 4
  relevance_threshold: 0.3
  keyword_boosts:
    витрина: 0.1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port=%d", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("Host default not applied: %q", cfg.Server.Host)
	}
	if cfg.Retrieval.TopK != 4 {
		t.Errorf("TopK=%d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.RelevanceThreshold != 0.3 {
		t.Errorf("RelevanceThreshold=%f", cfg.Retrieval.RelevanceThreshold)
	}
	if cfg.Retrieval.KeywordBoosts["витрина"] != 0.1 {
		t.Error("keyword_boosts not loaded")
	}
	if cfg.Corpus.RootDir != filepath.Join(dir, "kb") {
		t.Errorf("RootDir not expanded: %q", cfg.Corpus.RootDir)
	}
}

func TestLoad_missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	if cfg.Retrieval.ChunkMinLen != 800 || cfg.Retrieval.ChunkMaxLen != 1200 || cfg.Retrieval.ChunkOverlap != 150 {
		t.Error("chunk defaults wrong")
	}
	if cfg.Retrieval.MaxContextChars != 6000 {
		t.Errorf("MaxContextChars=%d", cfg.Retrieval.MaxContextChars)
	}
	if len(cfg.Retrieval.KeywordBoosts) == 0 {
		t.Error("default keyword boosts missing")
	}
	if cfg.Storage.VectorsPath() != filepath.Join("index", "vectors.bin") {
		t.Errorf("VectorsPath=%q", cfg.Storage.VectorsPath())
	}
}
