// Package answer turns assembled retrieval context into a grounded reply.
// It is a thin collaborator around the retrieval engine: refusal handling
// lives here, prose generation is delegated to an external chat model.
package answer

import (
	"context"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// maxSources bounds the source list appended to an answer.
const maxSources = 5

// Generator produces an answer for a question given its retrieval result.
type Generator interface {
	Generate(ctx context.Context, question string, res *models.RetrievalResult) (string, error)
}

// Refusal returns the fixed reply used when retrieval gated to NO_CONTEXT
// or produced no usable context. escalation names who to contact instead.
func Refusal(escalation string) string {
	return "В базе нет точного ответа. Обратитесь: " + escalation + ".\nИсточник: —"
}

// ShouldRefuse reports whether res cannot support a grounded answer.
func ShouldRefuse(res *models.RetrievalResult) bool {
	return res == nil ||
		res.Status != models.StatusOK ||
		len(res.Chunks) == 0 ||
		strings.TrimSpace(res.Context) == ""
}

// uniqueSourcePaths returns up to maxSources distinct chunk paths in rank order.
func uniqueSourcePaths(chunks []*models.ScoredChunk) []string {
	var paths []string
	for _, c := range chunks {
		dup := false
		for _, p := range paths {
			if p == c.Record.Path {
				dup = true
				break
			}
		}
		if !dup {
			paths = append(paths, c.Record.Path)
		}
		if len(paths) >= maxSources {
			break
		}
	}
	return paths
}
