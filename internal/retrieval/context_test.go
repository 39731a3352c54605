package retrieval

import (
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

func chunkWith(path, text string) *models.ScoredChunk {
	return &models.ScoredChunk{Record: &models.IndexRecord{Path: path, Text: text}}
}

func TestAssembleContext(t *testing.T) {
	chunks := []*models.ScoredChunk{
		chunkWith("it/kondicioner.md", "Как включить кондиционер."),
		chunkWith("finance/kassa.md", "Как снять X-отчёт."),
	}
	got := AssembleContext(chunks, 10000)
	if !strings.HasPrefix(got, "[Source: it/kondicioner]\n") {
		t.Errorf("first block malformed: %q", got)
	}
	if !strings.Contains(got, "\n\n[Source: finance/kassa]\n") {
		t.Errorf("blocks not separated by blank line: %q", got)
	}
	if strings.Contains(got, ".md]") {
		t.Error("source path should drop the extension")
	}
}

func TestAssembleContext_Budget(t *testing.T) {
	chunks := []*models.ScoredChunk{
		chunkWith("a.md", strings.Repeat("а", 200)),
		chunkWith("b.md", strings.Repeat("б", 200)),
		chunkWith("c.md", strings.Repeat("в", 200)),
	}
	for _, budget := range []int{0, 1, 50, 213, 250, 500, 10000} {
		got := AssembleContext(chunks, budget)
		if n := utils.RuneLen(got); n > budget {
			t.Errorf("budget %d: output length %d exceeds it", budget, n)
		}
	}
}

func TestAssembleContext_TruncatesOverflowBlock(t *testing.T) {
	chunks := []*models.ScoredChunk{chunkWith("doc.md", strings.Repeat("текст ", 100))}
	got := AssembleContext(chunks, 40)
	if utils.RuneLen(got) != 40 {
		t.Errorf("overflowing block should exactly fill the budget, got %d runes", utils.RuneLen(got))
	}
}

func TestAssembleContext_Empty(t *testing.T) {
	if got := AssembleContext(nil, 1000); got != "" {
		t.Errorf("no chunks should produce empty context, got %q", got)
	}
}
