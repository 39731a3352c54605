package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
)

func testConfigs(t *testing.T, corpusDir string) (*config.StorageConfig, *config.CorpusConfig, *config.RetrievalConfig) {
	t.Helper()
	storage := &config.StorageConfig{IndexDir: filepath.Join(t.TempDir(), "index")}
	corpus := &config.CorpusConfig{RootDir: corpusDir, Extensions: []string{".md", ".txt"}}
	retrieval := &config.RetrievalConfig{ChunkMinLen: 80, ChunkMaxLen: 120, ChunkOverlap: 15, TopK: 4}
	return storage, corpus, retrieval
}

func writeCorpusFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestBuilder_Build(t *testing.T) {
	corpusDir := t.TempDir()
	writeCorpusFile(t, corpusDir, "it/kondicioner.md",
		"# Кондиционеры\n\n## Включение\n\n"+strings.Repeat("Как включить кондиционер в торговом зале. ", 10))
	writeCorpusFile(t, corpusDir, "notes.txt", strings.Repeat("Общая справка по магазину. ", 10))

	storage, corpus, retrieval := testConfigs(t, corpusDir)
	b := NewBuilder(storage, corpus, retrieval, embedding.NewMockEmbedder(16))
	stats, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.Files != 2 {
		t.Errorf("Files=%d", stats.Files)
	}
	if stats.Chunks < 2 {
		t.Errorf("Chunks=%d", stats.Chunks)
	}

	snap, err := LoadSnapshot(storage.VectorsPath(), storage.MetaPath())
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap.Records) != snap.Store.Rows() {
		t.Errorf("records=%d rows=%d", len(snap.Records), snap.Store.Rows())
	}
	if len(snap.Records) != stats.Chunks {
		t.Errorf("records=%d chunks=%d", len(snap.Records), stats.Chunks)
	}

	var sawDept, sawTitle, sawGeneral bool
	for _, rec := range snap.Records {
		if rec.Department == "it" {
			sawDept = true
		}
		if rec.Department == "general" {
			sawGeneral = true
		}
		if rec.Title == "Кондиционеры" && rec.Section == "Включение" {
			sawTitle = true
		}
	}
	if !sawDept || !sawGeneral || !sawTitle {
		t.Errorf("metadata derivation incomplete: dept=%v general=%v title=%v", sawDept, sawGeneral, sawTitle)
	}
}

func TestBuilder_ChunkOrderPreserved(t *testing.T) {
	corpusDir := t.TempDir()
	writeCorpusFile(t, corpusDir, "a.md", strings.Repeat("первый документ подробно описывает процесс. ", 20))

	storage, corpus, retrieval := testConfigs(t, corpusDir)
	b := NewBuilder(storage, corpus, retrieval, embedding.NewMockEmbedder(16))
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap, err := LoadSnapshot(storage.VectorsPath(), storage.MetaPath())
	if err != nil {
		t.Fatal(err)
	}
	for i, rec := range snap.Records {
		if rec.ChunkID != i {
			t.Errorf("record %d has chunk_id %d; chunk order not preserved", i, rec.ChunkID)
		}
	}
}

func TestBuilder_EmptyCorpus(t *testing.T) {
	storage, corpus, retrieval := testConfigs(t, t.TempDir())
	b := NewBuilder(storage, corpus, retrieval, embedding.NewMockEmbedder(16))
	_, err := b.Build(context.Background())
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
	if _, statErr := os.Stat(storage.VectorsPath()); !os.IsNotExist(statErr) {
		t.Error("empty corpus must not write an index")
	}
}

// failingEmbedder always errors, to prove a failed build leaves the
// committed snapshot untouched.
type failingEmbedder struct{ embedding.Embedder }

func (f *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("provider down")
}

func TestBuilder_EmbeddingFailureKeepsOldIndex(t *testing.T) {
	corpusDir := t.TempDir()
	writeCorpusFile(t, corpusDir, "doc.md", strings.Repeat("стабильный документ для индекса. ", 10))

	storage, corpus, retrieval := testConfigs(t, corpusDir)
	good := NewBuilder(storage, corpus, retrieval, embedding.NewMockEmbedder(16))
	if _, err := good.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(storage.MetaPath())
	if err != nil {
		t.Fatal(err)
	}

	bad := NewBuilder(storage, corpus, retrieval, &failingEmbedder{embedding.NewMockEmbedder(16)})
	_, err = bad.Build(context.Background())
	var embErr *EmbeddingError
	if !errors.As(err, &embErr) {
		t.Fatalf("expected EmbeddingError, got %v", err)
	}

	after, err := os.ReadFile(storage.MetaPath())
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("failed build must not touch the committed index")
	}
}

func TestGuessTitleAndSection(t *testing.T) {
	title, section := guessTitleAndSection("it/doc.md", "# Кассы\nтекст\n## X-отчёт\nещё")
	if title != "Кассы" || section != "X-отчёт" {
		t.Errorf("title=%q section=%q", title, section)
	}
	title, section = guessTitleAndSection("it/manual.md", "без заголовков")
	if title != "manual" || section != "" {
		t.Errorf("fallback title=%q section=%q", title, section)
	}
}

func TestDepartmentOf(t *testing.T) {
	if departmentOf("it/doc.md") != "it" {
		t.Error("department should be first path segment")
	}
	if departmentOf("doc.md") != "general" {
		t.Error("root files belong to general")
	}
}
