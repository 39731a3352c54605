package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/index"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// ErrIndexUnavailable is returned when no index snapshot could be loaded.
// The caller is expected to tell an operator to run a build.
var ErrIndexUnavailable = errors.New("index unavailable: run a build first")

// loadedSnapshot pairs a snapshot with its load time for status reporting.
type loadedSnapshot struct {
	snap     *index.Snapshot
	loadedAt time.Time
}

// Retriever answers queries against the current index snapshot. The
// snapshot is held behind an atomic pointer: Reload swaps in a freshly
// loaded snapshot after a rebuild while in-flight queries keep reading the
// one they started with.
type Retriever struct {
	cfg      *config.RetrievalConfig
	storage  *config.StorageConfig
	embedder embedding.Embedder
	scorer   *Scorer
	current  atomic.Pointer[loadedSnapshot]
	logger   *zap.Logger // optional
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithLogger sets a logger for per-query debug output.
func WithLogger(l *zap.Logger) RetrieverOption {
	return func(r *Retriever) { r.logger = l }
}

// NewRetriever creates a retriever. No snapshot is loaded yet; call Reload
// before serving queries (a missing index is tolerated and reported per
// query as ErrIndexUnavailable).
func NewRetriever(
	cfg *config.RetrievalConfig,
	storage *config.StorageConfig,
	embedder embedding.Embedder,
	opts ...RetrieverOption,
) *Retriever {
	r := &Retriever{
		cfg:      cfg,
		storage:  storage,
		embedder: embedder,
		scorer:   NewScorer(cfg.KeywordBoosts),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reload loads the persisted snapshot and atomically replaces the current
// one. On failure the previous snapshot stays in service.
func (r *Retriever) Reload() error {
	snap, err := index.LoadSnapshot(r.storage.VectorsPath(), r.storage.MetaPath())
	if err != nil {
		return err
	}
	r.current.Store(&loadedSnapshot{snap: snap, loadedAt: time.Now()})
	if r.logger != nil {
		r.logger.Info("index snapshot loaded", zap.Int("chunks", len(snap.Records)))
	}
	return nil
}

// Rows returns the current snapshot's row count and load time, or false
// when no snapshot is loaded.
func (r *Retriever) Rows() (rows int, loadedAt time.Time, ok bool) {
	cur := r.current.Load()
	if cur == nil {
		return 0, time.Time{}, false
	}
	return cur.snap.Store.Rows(), cur.loadedAt, true
}

// Retrieve embeds the query, searches the snapshot, re-ranks with lexical
// and keyword bonuses, gates on mean top-K score, and assembles the
// character-budgeted context. Fails with ErrIndexUnavailable when no
// snapshot has been loaded.
func (r *Retriever) Retrieve(ctx context.Context, query string) (*models.RetrievalResult, error) {
	cur := r.current.Load()
	if cur == nil {
		return nil, ErrIndexUnavailable
	}
	snap := cur.snap

	queryNorm := NormalizeQuery(query)
	qvec, err := r.embedder.Embed(ctx, queryNorm)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	utils.NormalizeL2(qvec)

	// Over-fetch so re-ranking has headroom beyond the final top-K.
	k := r.cfg.TopK * 2
	if k > snap.Store.Rows() {
		k = snap.Store.Rows()
	}
	hits, err := snap.Store.Search(qvec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	scored := make([]*models.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		rec := snap.Records[hit.Row]
		scored = append(scored, &models.ScoredChunk{
			Record:     rec,
			Score:      r.scorer.Rescore(queryNorm, hit.Score, rec),
			Similarity: hit.Score,
			Row:        hit.Row,
		})
	}
	// Stable sort keeps the similarity-search order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > r.cfg.TopK {
		scored = scored[:r.cfg.TopK]
	}

	status := Gate(scored, r.cfg.TopK, r.cfg.RelevanceThreshold)
	contextStr := AssembleContext(scored, r.cfg.MaxContextChars)

	if r.logger != nil {
		top := 0.0
		if len(scored) > 0 {
			top = scored[0].Score
		}
		r.logger.Debug("retrieval done",
			zap.String("query", queryNorm),
			zap.Int("candidates", len(hits)),
			zap.Int("selected", len(scored)),
			zap.Float64("top_score", top),
			zap.String("status", string(status)),
		)
	}
	return &models.RetrievalResult{Chunks: scored, Context: contextStr, Status: status}, nil
}
