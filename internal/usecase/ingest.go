package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"paperrag/internal/adapter/metadata"
	"paperrag/internal/adapter/store"
	"paperrag/internal/domain"
	"paperrag/internal/port"
)

var (
	lineBreaks = regexp.MustCompile(`\s*\n\s*`)
	multiSpace = regexp.MustCompile(`\s{2,}`)
)

// CleanText collapses line breaks and runs of whitespace into single spaces.
func CleanText(text string) string {
	text = lineBreaks.ReplaceAllString(text, " ")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Ingestion progress stages.
const (
	StageParse = "parse"
	StageEmbed = "embed"
)

// ProgressFunc reports progress of one ingestion stage.
type ProgressFunc func(stage string, done, total int)

// IngestOptions tune a single ingestion run.
type IngestOptions struct {
	// Force re-ingests sources already recorded in the manifest.
	Force    bool
	Progress ProgressFunc
}

// IngestResult contains the results of an ingestion run.
type IngestResult struct {
	FilesFound    int
	FilesIngested int
	FilesSkipped  int
	FilesFailed   int
	TotalDocs     int
	Errors        []string
}

// IngestUseCase turns a directory of PDFs into stored documents.
type IngestUseCase struct {
	reader   port.LayoutReader
	walker   port.FileWalker
	store    *store.RetrievalStore
	manifest *store.Manifest
	logger   *zap.Logger
	now      func() time.Time
}

// NewIngestUseCase creates a new ingest use case. manifest may be nil, in
// which case every run ingests every file.
func NewIngestUseCase(
	reader port.LayoutReader,
	walker port.FileWalker,
	st *store.RetrievalStore,
	manifest *store.Manifest,
	logger *zap.Logger,
) *IngestUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestUseCase{
		reader:   reader,
		walker:   walker,
		store:    st,
		manifest: manifest,
		logger:   logger,
		now:      time.Now,
	}
}

// IngestFile reads and parses one PDF into a Document.
func (u *IngestUseCase) IngestFile(ctx context.Context, path string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	return u.BuildDocument(filepath.Base(path), data)
}

// BuildDocument parses PDF bytes and derives the Document fields. A PDF
// without extractable text is an extraction failure.
func (u *IngestUseCase) BuildDocument(name string, data []byte) (domain.Document, error) {
	parsed, err := u.reader.Read(name, data)
	if err != nil {
		return domain.Document{}, err
	}

	texts := make([]string, len(parsed.Pages))
	for i, p := range parsed.Pages {
		texts[i] = p.Text
	}
	content := CleanText(strings.Join(texts, "\n"))
	if content == "" {
		return domain.Document{}, fmt.Errorf("%w: %s: no extractable text", domain.ErrExtraction, name)
	}

	meta := metadata.Extract(parsed.Pages)
	return domain.Document{
		Title:    meta.Title,
		Content:  content,
		DOI:      meta.DOI,
		Keywords: meta.Keywords,
		Metadata: map[string]string{
			domain.MetaCitationInfo: meta.CitationInfo,
			domain.MetaSourceFile:   name,
		},
	}, nil
}

type pendingSource struct {
	doc    domain.Document
	record store.SourceRecord
}

// Run ingests every PDF under root. Files that fail to parse are logged and
// counted; the successfully parsed ones are added to the store as one batch.
func (u *IngestUseCase) Run(ctx context.Context, root string, opts IngestOptions) (*IngestResult, error) {
	result := &IngestResult{}

	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	result.FilesFound = len(files)

	if u.manifest != nil {
		dropped, err := u.manifest.Prune(u.store.Len())
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile manifest: %w", err)
		}
		if dropped > 0 {
			u.logger.Warn("manifest listed sources missing from the store, re-ingesting them",
				zap.Int("stale_records", dropped),
				zap.Int("store_docs", u.store.Len()))
		}
	}

	var pending []pendingSource
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.Progress != nil {
			opts.Progress(StageParse, i+1, len(files))
		}

		src, skipped, err := u.prepare(root, file, opts.Force)
		if err != nil {
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file.Path, err))
			u.logger.Warn("skipping file", zap.String("file", file.Path), zap.Error(err))
			continue
		}
		if skipped {
			result.FilesSkipped++
			continue
		}
		pending = append(pending, src)
	}

	if len(pending) == 0 {
		result.TotalDocs = u.store.Len()
		return result, nil
	}

	docs := make([]domain.Document, len(pending))
	for i, p := range pending {
		docs[i] = p.doc
	}

	var embedProgress store.ProgressFunc
	if opts.Progress != nil {
		embedProgress = func(done, total int) { opts.Progress(StageEmbed, done, total) }
	}

	base := u.store.Len()
	if err := u.store.AddDocumentsWithProgress(ctx, docs, embedProgress); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}
	result.FilesIngested = len(docs)
	result.TotalDocs = u.store.Len()

	if u.manifest != nil {
		now := u.now().UTC()
		records := make([]store.SourceRecord, len(pending))
		for i, p := range pending {
			records[i] = p.record
			records[i].Position = base + i
			records[i].IngestedAt = now
		}
		if err := u.manifest.Record(records...); err != nil {
			return result, fmt.Errorf("failed to record ingested sources: %w", err)
		}
	}

	u.logger.Info("ingestion finished",
		zap.Int("ingested", result.FilesIngested),
		zap.Int("skipped", result.FilesSkipped),
		zap.Int("failed", result.FilesFailed),
		zap.Int("total_docs", result.TotalDocs))

	return result, nil
}

// prepare reads one file, consults the manifest and parses it.
func (u *IngestUseCase) prepare(root string, file port.FileInfo, force bool) (pendingSource, bool, error) {
	path := file.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, filepath.FromSlash(path))
	}

	key := sourceKey(root, path)

	data, err := os.ReadFile(path)
	if err != nil {
		return pendingSource{}, false, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	hash := contentHash(data)

	if u.manifest != nil && !force {
		rec, found, err := u.manifest.Lookup(key)
		if err != nil {
			return pendingSource{}, false, fmt.Errorf("manifest lookup: %w", err)
		}
		if found && rec.SHA256 == hash {
			u.logger.Debug("already ingested", zap.String("file", file.Path))
			return pendingSource{}, true, nil
		}
		if found {
			u.logger.Warn("source changed since last ingestion, appending new version",
				zap.String("file", file.Path),
				zap.Int("previous_position", rec.Position))
		}
	}

	doc, err := u.BuildDocument(filepath.Base(path), data)
	if err != nil {
		return pendingSource{}, false, err
	}

	return pendingSource{
		doc: doc,
		record: store.SourceRecord{
			Name:   key,
			SHA256: hash,
			Size:   int64(len(data)),
			Title:  doc.Title,
		},
	}, false, nil
}

// sourceKey names a source by its slash-separated path relative to the
// corpus root, so a moved corpus directory keeps its manifest entries.
func sourceKey(root, path string) string {
	if absRoot, err := filepath.Abs(root); err == nil {
		if rel, err := filepath.Rel(absRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
