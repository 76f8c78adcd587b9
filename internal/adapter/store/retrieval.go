package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"paperrag/internal/adapter/index"
	"paperrag/internal/domain"
	"paperrag/internal/port"
)

// Options locates the store artifacts and fixes the embedding dimension.
type Options struct {
	IndexPath     string
	DocumentsPath string
	Dimension     int
	// Concurrency bounds parallel embedding calls in AddDocuments.
	Concurrency int
}

// ProgressFunc is called after each document of a batch has been embedded.
type ProgressFunc func(done, total int)

// RetrievalStore keeps a flat L2 index and the document list aligned by
// position. Mutations are serialised; searches read an immutable snapshot.
type RetrievalStore struct {
	opts     Options
	embedder port.Embedder
	logger   *zap.Logger

	writeMu sync.Mutex

	mu   sync.RWMutex
	idx  *index.FlatL2
	docs []domain.Document
	gen  uint64
}

// Open loads the persisted artifacts, or starts empty if there are none.
func Open(opts Options, embedder port.Embedder, logger *zap.Logger) (*RetrievalStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidArgument, opts.Dimension)
	}
	if embedder.Dimension() != opts.Dimension {
		return nil, fmt.Errorf("%w: embedder %s produces %d dimensions, store expects %d",
			domain.ErrDimensionMismatch, embedder.ModelName(), embedder.Dimension(), opts.Dimension)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	a, err := LoadArtifacts(opts.IndexPath, opts.DocumentsPath, opts.Dimension)
	if err != nil {
		return nil, err
	}

	logger.Debug("store opened",
		zap.String("index", opts.IndexPath),
		zap.Int("documents", len(a.Documents)),
		zap.Int("dimension", opts.Dimension))

	return &RetrievalStore{
		opts:     opts,
		embedder: embedder,
		logger:   logger,
		idx:      a.Index,
		docs:     a.Documents,
	}, nil
}

// AddDocuments embeds docs and appends them to the store.
func (s *RetrievalStore) AddDocuments(ctx context.Context, docs []domain.Document) error {
	return s.AddDocumentsWithProgress(ctx, docs, nil)
}

// AddDocumentsWithProgress embeds docs in parallel, appends vectors and
// documents in input order and persists both artifacts. On any failure
// nothing is committed.
func (s *RetrievalStore) AddDocumentsWithProgress(ctx context.Context, docs []domain.Document, progress ProgressFunc) error {
	if len(docs) == 0 {
		return nil
	}
	for i, d := range docs {
		if d.Content == "" {
			return fmt.Errorf("%w: document %d (%s) has empty content", domain.ErrInvalidArgument, i, d.SourceFile())
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	vectors, err := s.embedAll(ctx, docs, progress)
	if err != nil {
		return err
	}

	s.mu.RLock()
	prevIdx, prevDocs := s.idx, s.docs
	s.mu.RUnlock()

	nextIdx := prevIdx.Clone()
	if err := nextIdx.Add(vectors...); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	nextDocs := make([]domain.Document, 0, len(prevDocs)+len(docs))
	nextDocs = append(nextDocs, prevDocs...)
	nextDocs = append(nextDocs, docs...)

	if err := s.persist(&Artifacts{Index: nextIdx, Documents: nextDocs}); err != nil {
		s.restore(&Artifacts{Index: prevIdx, Documents: prevDocs})
		return err
	}

	s.mu.Lock()
	s.idx = nextIdx
	s.docs = nextDocs
	s.gen++
	s.mu.Unlock()

	s.logger.Info("documents added",
		zap.Int("added", len(docs)),
		zap.Int("total", len(nextDocs)))
	return nil
}

func (s *RetrievalStore) embedAll(ctx context.Context, docs []domain.Document, progress ProgressFunc) ([][]float32, error) {
	vectors := make([][]float32, len(docs))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i := range docs {
		i := i
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, docs[i].Content)
			if err != nil {
				return fmt.Errorf("%w: document %d (%s): %v", domain.ErrEmbedding, i, docs[i].SourceFile(), err)
			}
			if len(vec) != s.opts.Dimension {
				return fmt.Errorf("%w: document %d: %w: got %d, want %d",
					domain.ErrEmbedding, i, domain.ErrDimensionMismatch, len(vec), s.opts.Dimension)
			}
			vectors[i] = vec
			if progress != nil {
				progress(int(done.Add(1)), len(docs))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (s *RetrievalStore) persist(a *Artifacts) error {
	for _, p := range []string{s.opts.IndexPath, s.opts.DocumentsPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
	}
	return SaveArtifacts(s.opts.IndexPath, s.opts.DocumentsPath, a)
}

// restore rewrites the previous state after a failed save so that a half
// written pair does not survive on disk.
func (s *RetrievalStore) restore(prev *Artifacts) {
	if err := SaveArtifacts(s.opts.IndexPath, s.opts.DocumentsPath, prev); err != nil {
		s.logger.Error("failed to restore previous store artifacts", zap.Error(err))
	}
}

// Search returns up to topK documents nearest to query.
func (s *RetrievalStore) Search(ctx context.Context, query string, topK int) ([]domain.Document, error) {
	scored, err := s.SearchScored(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, len(scored))
	for i, sd := range scored {
		docs[i] = sd.Document
	}
	return docs, nil
}

// SearchScored is Search with index positions and squared L2 distances.
// An empty store yields an empty result whatever topK is.
func (s *RetrievalStore) SearchScored(ctx context.Context, query string, topK int) ([]domain.ScoredDocument, error) {
	s.mu.RLock()
	idx, docs := s.idx, s.docs
	s.mu.RUnlock()

	if idx.Len() == 0 {
		return []domain.ScoredDocument{}, nil
	}
	if topK < 1 {
		return nil, fmt.Errorf("%w: top_k must be at least 1, got %d", domain.ErrInvalidArgument, topK)
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrEmbedding, err)
	}

	hits, err := idx.Search(vec, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrEmbedding, err)
	}

	return collect(hits, docs, s.logger), nil
}

// collect maps index hits to documents, skipping positions that have no
// document.
func collect(hits []index.Neighbor, docs []domain.Document, logger *zap.Logger) []domain.ScoredDocument {
	out := make([]domain.ScoredDocument, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 || h.Position >= len(docs) {
			logger.Warn("index position out of range, skipping",
				zap.Int("position", h.Position),
				zap.Int("documents", len(docs)))
			continue
		}
		out = append(out, domain.ScoredDocument{
			Document: docs[h.Position],
			Position: h.Position,
			Distance: h.Distance,
		})
	}
	return out
}

// Len returns the number of stored documents.
func (s *RetrievalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Generation increases with every successful AddDocuments call.
func (s *RetrievalStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Documents returns a copy of the stored documents in position order.
func (s *RetrievalStore) Documents() []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

func (s *RetrievalStore) Dimension() int {
	return s.opts.Dimension
}
