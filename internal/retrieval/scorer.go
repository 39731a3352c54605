// Package retrieval runs query-time search: similarity search, heuristic
// re-ranking, relevance gating, and context assembly.
package retrieval

import (
	"regexp"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// lexicalBonus is added once per distinct query token found in a record's
// title, section, or path.
const lexicalBonus = 0.05

// minTokenRunes is the shortest query token that earns a lexical bonus;
// shorter tokens match too promiscuously to mean anything.
const minTokenRunes = 3

// queryStripRe removes everything outside letters, digits, hyphen, slash,
// and hash. The query is lowercased first, so only lowercase ranges appear.
var queryStripRe = regexp.MustCompile(`[^a-zа-яё0-9\-\s/#]+`)

// NormalizeQuery lowercases the query, strips punctuation the scorer does
// not match on, and collapses whitespace.
func NormalizeQuery(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = queryStripRe.ReplaceAllString(q, " ")
	return strings.Join(strings.Fields(q), " ")
}

// Scorer combines raw similarity with deterministic lexical-overlap and
// keyword-table bonuses. The boost table is read-only after construction.
type Scorer struct {
	boosts map[string]float64
}

// NewScorer creates a scorer with the given keyword boost table.
func NewScorer(boosts map[string]float64) *Scorer {
	return &Scorer{boosts: boosts}
}

// Rescore returns base plus any bonuses the record earns for queryNorm.
// Bonuses are purely additive and uncapped; scores are comparison-only and
// never shown as probabilities.
func (s *Scorer) Rescore(queryNorm string, base float64, rec *models.IndexRecord) float64 {
	score := base
	title := strings.ToLower(rec.Title)
	section := strings.ToLower(rec.Section)
	path := strings.ToLower(rec.Path)

	seen := make(map[string]bool)
	for _, token := range strings.Fields(queryNorm) {
		if seen[token] || len([]rune(token)) < minTokenRunes {
			continue
		}
		seen[token] = true
		if strings.Contains(title, token) || strings.Contains(section, token) || strings.Contains(path, token) {
			score += lexicalBonus
		}
	}

	for kw, bonus := range s.boosts {
		if !strings.Contains(queryNorm, kw) {
			continue
		}
		first := kw
		if i := strings.IndexByte(kw, ' '); i > 0 {
			first = kw[:i]
		}
		if strings.Contains(path, first) || strings.Contains(title, kw) || strings.Contains(section, kw) {
			score += bonus
		}
	}
	return score
}
