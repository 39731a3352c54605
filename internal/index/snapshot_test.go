package index

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

func writeSnapshot(t *testing.T, dir string, rows int) (vecPath, metaPath string) {
	t.Helper()
	vecPath = filepath.Join(dir, "vectors.bin")
	metaPath = filepath.Join(dir, "meta.jsonl")
	s, _ := vector.NewStore(2)
	records := make([]*models.IndexRecord, 0, rows)
	for i := 0; i < rows; i++ {
		_ = s.Add([][]float32{{1, 0}})
		records = append(records, &models.IndexRecord{Path: "doc.md", ChunkID: i, Text: "текст"})
	}
	if err := s.Save(vecPath); err != nil {
		t.Fatal(err)
	}
	if err := writeMeta(metaPath, records); err != nil {
		t.Fatal(err)
	}
	return vecPath, metaPath
}

func TestLoadSnapshot(t *testing.T) {
	vecPath, metaPath := writeSnapshot(t, t.TempDir(), 3)
	snap, err := LoadSnapshot(vecPath, metaPath)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if snap.Store.Rows() != 3 || len(snap.Records) != 3 {
		t.Errorf("rows=%d records=%d", snap.Store.Rows(), len(snap.Records))
	}
}

func TestLoadSnapshot_Missing(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadSnapshot(filepath.Join(dir, "vectors.bin"), filepath.Join(dir, "meta.jsonl"))
	if !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestLoadSnapshot_MissingMeta(t *testing.T) {
	dir := t.TempDir()
	vecPath, metaPath := writeSnapshot(t, dir, 1)
	if err := os.Remove(metaPath); err != nil {
		t.Fatal(err)
	}
	_, err := LoadSnapshot(vecPath, metaPath)
	if !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestLoadSnapshot_CountMismatch(t *testing.T) {
	dir := t.TempDir()
	vecPath, metaPath := writeSnapshot(t, dir, 2)
	// Append one extra metadata record so counts disagree.
	f, err := os.OpenFile(metaPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString(`{"path":"extra.md","chunk_id":2,"text":"x"}` + "\n")
	_ = f.Close()

	_, err = LoadSnapshot(vecPath, metaPath)
	if !errors.Is(err, ErrCorruptIndex) {
		t.Fatalf("expected ErrCorruptIndex, got %v", err)
	}
}

func TestLoadSnapshot_CorruptVectors(t *testing.T) {
	dir := t.TempDir()
	vecPath, metaPath := writeSnapshot(t, dir, 2)
	data, _ := os.ReadFile(vecPath)
	if err := os.WriteFile(vecPath, data[:len(data)-4], 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadSnapshot(vecPath, metaPath)
	if !errors.Is(err, ErrCorruptIndex) {
		t.Fatalf("expected ErrCorruptIndex, got %v", err)
	}
}
