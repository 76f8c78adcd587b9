package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"paperrag/config"
	"paperrag/internal/adapter/cache"
	"paperrag/internal/adapter/embedding"
	"paperrag/internal/adapter/store"
	"paperrag/internal/port"
	"paperrag/internal/usecase"
)

// app holds the components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	embedder port.Embedder
	store    *store.RetrievalStore
	manifest *store.Manifest
}

// openApp opens the store and manifest and checks that the configured
// embedding model matches the one the store was built with.
func openApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	if err := cfg.EnsureStoreDir(); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	emb, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	st, err := store.Open(store.Options{
		IndexPath:     cfg.IndexPath(),
		DocumentsPath: cfg.DocumentsPath(),
		Dimension:     cfg.Embedding.Dimension,
		Concurrency:   cfg.Embedding.Concurrency,
	}, emb, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	m, err := store.OpenManifest(cfg.ManifestPath())
	if err != nil {
		return nil, err
	}

	if dropped, err := m.Prune(st.Len()); err != nil {
		m.Close()
		return nil, err
	} else if dropped > 0 {
		logger.Warn("dropped manifest records beyond the stored documents", zap.Int("records", dropped))
	}

	fp := store.EmbeddingFingerprint(cfg.Embedding.Provider, emb.ModelName(), cfg.Embedding.Dimension)
	if err := m.CheckEmbedding(fp, st.Len()); err != nil {
		m.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, embedder: emb, store: st, manifest: m}, nil
}

func (a *app) Close() error {
	return a.manifest.Close()
}

func (a *app) retrieveUseCase() *usecase.RetrieveUseCase {
	qc := cache.NewQueryCache(a.cfg.Retrieve.CacheSize, a.cfg.Retrieve.CacheTTL)
	return usecase.NewRetrieveUseCase(a.store, qc, a.logger)
}

// topK picks the flag value when set, else the configured default.
func topK(flag int) int {
	if flag > 0 {
		return flag
	}
	return cfg.Retrieve.TopK
}
