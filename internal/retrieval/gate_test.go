package retrieval

import (
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func scoredWith(scores ...float64) []*models.ScoredChunk {
	out := make([]*models.ScoredChunk, len(scores))
	for i, s := range scores {
		out[i] = &models.ScoredChunk{Record: &models.IndexRecord{}, Score: s}
	}
	return out
}

func TestGate(t *testing.T) {
	tests := []struct {
		name      string
		scores    []float64
		k         int
		threshold float64
		want      models.Status
	}{
		{"below threshold", []float64{0.10, 0.10}, 8, 0.25, models.StatusNoContext},
		{"lower threshold flips to ok", []float64{0.10, 0.10}, 8, 0.05, models.StatusOK},
		{"at threshold", []float64{0.25}, 8, 0.25, models.StatusOK},
		{"empty set", nil, 8, 0.25, models.StatusNoContext},
		{"mean over top-k only", []float64{0.9, 0.9, 0.0, 0.0}, 2, 0.5, models.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Gate(scoredWith(tt.scores...), tt.k, tt.threshold); got != tt.want {
				t.Errorf("Gate=%s, want %s", got, tt.want)
			}
		})
	}
}

func TestGate_MonotonicInThreshold(t *testing.T) {
	chunks := scoredWith(0.3, 0.2, 0.1)
	if Gate(chunks, 3, 0.1) == models.StatusNoContext && Gate(chunks, 3, 0.3) == models.StatusOK {
		t.Error("lowering the threshold must never turn OK into NO_CONTEXT")
	}
}
