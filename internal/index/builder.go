// Package index builds and loads the persisted two-artifact vector index.
package index

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// embedConcurrency bounds in-flight embedding calls during a build. Each
// document is one provider request, so this caps request parallelism.
const embedConcurrency = 4

// Stats reports what one build produced.
type Stats struct {
	Files  int
	Chunks int
}

// Builder walks a corpus tree, chunks and embeds every document, and
// replaces the persisted index snapshot on success.
type Builder struct {
	storage   *config.StorageConfig
	corpus    *config.CorpusConfig
	chunker   *chunker.Chunker
	embedder  embedding.Embedder
	extractor *extract.Extractor
	logger    *zap.Logger // optional; when set, logs per-document progress
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets a logger for build progress output.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a builder with the given configuration and embedder.
func NewBuilder(
	storage *config.StorageConfig,
	corpus *config.CorpusConfig,
	retrieval *config.RetrievalConfig,
	embedder embedding.Embedder,
	opts ...BuilderOption,
) *Builder {
	b := &Builder{
		storage:   storage,
		corpus:    corpus,
		chunker:   chunker.New(retrieval.ChunkMinLen, retrieval.ChunkMaxLen, retrieval.ChunkOverlap),
		embedder:  embedder,
		extractor: extract.NewExtractor(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// docChunks is the embedded output for one document, merged in walk order.
type docChunks struct {
	chunks []*models.Chunk
}

// Build walks the corpus, embeds every chunk (one provider call per
// document, documents in parallel), and atomically replaces the persisted
// snapshot. Returns ErrEmptyCorpus when the tree holds no eligible files and
// an *EmbeddingError when the provider fails; in both cases any previously
// committed index is left untouched.
func (b *Builder) Build(ctx context.Context) (*Stats, error) {
	docs, err := collectDocuments(b.corpus.RootDir, b.corpus.Extensions, b.extractor)
	if err != nil {
		return nil, fmt.Errorf("walk corpus: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	results := make([]docChunks, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			chunks, err := b.embedDocument(gctx, doc)
			if err != nil {
				return err
			}
			results[i] = docChunks{chunks: chunks}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	store, err := vector.NewStore(b.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	var records []*models.IndexRecord
	chunkCount := 0
	for _, res := range results {
		for _, ch := range res.chunks {
			if err := store.Add([][]float32{ch.Embedding}); err != nil {
				return nil, fmt.Errorf("add vector: %w", err)
			}
			records = append(records, &models.IndexRecord{
				Path:       ch.Path,
				Title:      ch.Title,
				Section:    ch.Section,
				UpdatedAt:  ch.UpdatedAt.Format(time.RFC3339),
				Department: ch.Department,
				ChunkID:    ch.ChunkID,
				Text:       ch.Text,
			})
			chunkCount++
		}
	}
	if chunkCount == 0 {
		return nil, ErrEmptyCorpus
	}

	if err := b.commit(store, records); err != nil {
		return nil, err
	}
	if b.logger != nil {
		b.logger.Info("index built",
			zap.Int("files", len(docs)),
			zap.Int("chunks", chunkCount),
			zap.String("index_dir", b.storage.IndexDir),
		)
	}
	return &Stats{Files: len(docs), Chunks: chunkCount}, nil
}

// embedDocument chunks one document and embeds the whole chunk batch in a
// single provider call. Vectors are normalized to unit L2 so search can use
// plain inner product.
func (b *Builder) embedDocument(ctx context.Context, doc *models.Document) ([]*models.Chunk, error) {
	texts := b.chunker.Split(doc.Text)
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, &EmbeddingError{Path: doc.Path, Err: err}
	}
	if len(vecs) != len(texts) {
		return nil, &EmbeddingError{
			Path: doc.Path,
			Err:  fmt.Errorf("got %d vectors for %d chunks", len(vecs), len(texts)),
		}
	}
	chunks := make([]*models.Chunk, len(texts))
	for i, text := range texts {
		utils.NormalizeL2(vecs[i])
		chunks[i] = &models.Chunk{
			Path:       doc.Path,
			Title:      doc.Title,
			Section:    doc.Section,
			Department: doc.Department,
			UpdatedAt:  doc.UpdatedAt,
			ChunkID:    i,
			Text:       text,
			Embedding:  vecs[i],
		}
	}
	if b.logger != nil {
		b.logger.Debug("document embedded",
			zap.String("path", doc.Path),
			zap.Int("chunks", len(chunks)),
		)
	}
	return chunks, nil
}

// commit persists both artifacts. Each is written to a temp file and
// renamed into place, vectors first: the metadata rename is the commit
// point, so a failure part-way never leaves metadata referencing vectors
// that were not fully written.
func (b *Builder) commit(store *vector.Store, records []*models.IndexRecord) error {
	if err := os.MkdirAll(b.storage.IndexDir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	vecPath := b.storage.VectorsPath()
	metaPath := b.storage.MetaPath()
	vecTmp := vecPath + ".tmp"
	metaTmp := metaPath + ".tmp"

	if err := store.Save(vecTmp); err != nil {
		return err
	}
	if err := writeMeta(metaTmp, records); err != nil {
		os.Remove(vecTmp)
		return err
	}
	if err := os.Rename(vecTmp, vecPath); err != nil {
		os.Remove(vecTmp)
		os.Remove(metaTmp)
		return fmt.Errorf("commit vectors: %w", err)
	}
	if err := os.Rename(metaTmp, metaPath); err != nil {
		os.Remove(metaTmp)
		return fmt.Errorf("commit metadata: %w", err)
	}
	return nil
}
