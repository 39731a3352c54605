package retrieval

import "github.com/hyperjump/kotae/internal/models"

// Gate decides whether the scored result set is trustworthy enough to
// answer from: the arithmetic mean of the top-k scores must reach
// threshold. An empty set gates to NO_CONTEXT (mean defined as 0).
func Gate(chunks []*models.ScoredChunk, k int, threshold float64) models.Status {
	if k > len(chunks) {
		k = len(chunks)
	}
	if k == 0 {
		if threshold <= 0 {
			return models.StatusOK
		}
		return models.StatusNoContext
	}
	var sum float64
	for _, c := range chunks[:k] {
		sum += c.Score
	}
	if sum/float64(k) >= threshold {
		return models.StatusOK
	}
	return models.StatusNoContext
}
