package usecase

import (
	"context"

	"go.uber.org/zap"

	"paperrag/internal/adapter/cache"
	"paperrag/internal/domain"
)

// Searcher is the read side of the retrieval store.
type Searcher interface {
	SearchScored(ctx context.Context, query string, topK int) ([]domain.ScoredDocument, error)
	Generation() uint64
}

// RetrieveUseCase handles search and retrieval operations.
type RetrieveUseCase struct {
	searcher Searcher
	cache    *cache.QueryCache
	logger   *zap.Logger
}

// NewRetrieveUseCase creates a new retrieve use case. queryCache may be nil.
func NewRetrieveUseCase(searcher Searcher, queryCache *cache.QueryCache, logger *zap.Logger) *RetrieveUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrieveUseCase{
		searcher: searcher,
		cache:    queryCache,
		logger:   logger,
	}
}

// Retrieve returns up to topK documents ranked nearest-first.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, topK int) ([]domain.ScoredDocument, error) {
	gen := u.searcher.Generation()

	if u.cache != nil {
		if results, hit := u.cache.Get(query, topK, gen); hit {
			u.logger.Debug("query cache hit", zap.String("query", query), zap.Int("top_k", topK))
			return results, nil
		}
	}

	results, err := u.searcher.SearchScored(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	if u.cache != nil {
		u.cache.Put(query, topK, gen, results)
	}
	return results, nil
}

// DocumentResult is a simplified result for CLI output.
type DocumentResult struct {
	Rank       int      `json:"rank"`
	Position   int      `json:"position"`
	Distance   float32  `json:"distance"`
	Title      string   `json:"title"`
	DOI        string   `json:"doi"`
	Keywords   []string `json:"keywords"`
	SourceFile string   `json:"source_file"`
	Citation   string   `json:"citation_info"`
	Excerpt    string   `json:"excerpt"`
}

// ToResults flattens scored documents, truncating content to excerptLen runes.
func ToResults(scored []domain.ScoredDocument, excerptLen int) []DocumentResult {
	out := make([]DocumentResult, len(scored))
	for i, sd := range scored {
		d := sd.Document
		out[i] = DocumentResult{
			Rank:       i + 1,
			Position:   sd.Position,
			Distance:   sd.Distance,
			Title:      d.Title,
			DOI:        d.DOI,
			Keywords:   d.Keywords,
			SourceFile: d.SourceFile(),
			Citation:   d.Metadata[domain.MetaCitationInfo],
			Excerpt:    excerpt(d.Content, excerptLen),
		}
	}
	return out
}

func excerpt(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
