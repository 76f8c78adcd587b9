package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"paperrag/internal/adapter/index"
	"paperrag/internal/domain"
)

// Artifacts is the pair persisted on disk: the binary vector index and the
// position-aligned document list.
type Artifacts struct {
	Index     *index.FlatL2
	Documents []domain.Document
}

// LoadArtifacts reads both artifacts. When neither exists an empty index of
// dimension dim is returned. One artifact without the other, a count
// mismatch or a foreign dimension is reported as inconsistent state.
func LoadArtifacts(indexPath, docsPath string, dim int) (*Artifacts, error) {
	idxExists, err := exists(indexPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	docsExists, err := exists(docsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	switch {
	case !idxExists && !docsExists:
		return &Artifacts{Index: index.NewFlatL2(dim), Documents: []domain.Document{}}, nil
	case !idxExists:
		return nil, fmt.Errorf("%w: %s exists but %s is missing", domain.ErrInconsistentState, docsPath, indexPath)
	case !docsExists:
		return nil, fmt.Errorf("%w: %s exists but %s is missing", domain.ErrInconsistentState, indexPath, docsPath)
	}

	idx, err := index.ReadFile(indexPath)
	if err != nil {
		if errors.Is(err, index.ErrBadFormat) {
			return nil, fmt.Errorf("%w: %v", domain.ErrInconsistentState, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	docs, err := readDocuments(docsPath)
	if err != nil {
		return nil, err
	}

	if idx.Dim() != dim {
		return nil, fmt.Errorf("%w: index has dimension %d, configured %d",
			domain.ErrDimensionMismatch, idx.Dim(), dim)
	}
	if idx.Len() != len(docs) {
		return nil, fmt.Errorf("%w: index holds %d vectors but %d documents are stored",
			domain.ErrInconsistentState, idx.Len(), len(docs))
	}

	return &Artifacts{Index: idx, Documents: docs}, nil
}

// SaveArtifacts writes the full index and the full document list, each
// replaced atomically.
func SaveArtifacts(indexPath, docsPath string, a *Artifacts) error {
	if a.Index.Len() != len(a.Documents) {
		return fmt.Errorf("%w: refusing to save %d vectors with %d documents",
			domain.ErrInconsistentState, a.Index.Len(), len(a.Documents))
	}

	data, err := json.MarshalIndent(normalize(a.Documents), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode documents: %v", domain.ErrPersistence, err)
	}

	if err := a.Index.WriteFile(indexPath); err != nil {
		return fmt.Errorf("%w: write index: %v", domain.ErrPersistence, err)
	}
	if err := index.WriteFileAtomic(docsPath, data, 0644); err != nil {
		return fmt.Errorf("%w: write documents: %v", domain.ErrPersistence, err)
	}
	return nil
}

func readDocuments(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	var docs []domain.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInconsistentState, path, err)
	}
	return normalize(docs), nil
}

// normalize makes sure keyword lists and metadata serialize as [] and {}.
func normalize(docs []domain.Document) []domain.Document {
	if docs == nil {
		return []domain.Document{}
	}
	for i := range docs {
		if docs[i].Keywords == nil {
			docs[i].Keywords = []string{}
		}
		if docs[i].Metadata == nil {
			docs[i].Metadata = map[string]string{}
		}
	}
	return docs
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
