package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"paperrag/internal/domain"
)

// CurrentSchemaVersion is the current manifest schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion        = []byte("schema_version")
	keyEmbeddingFingerprint = []byte("embedding_fingerprint")
)

// SchemaInfo stores the schema version and the embedding space the store
// was built in.
type SchemaInfo struct {
	Version              int    `json:"version"`
	EmbeddingFingerprint string `json:"embedding_fingerprint"`
}

// EmbeddingFingerprint identifies an embedding space. Vectors from
// different fingerprints must never share an index.
func EmbeddingFingerprint(provider, model string, dim int) string {
	relevant := struct {
		Provider  string `json:"provider"`
		Model     string `json:"model"`
		Dimension int    `json:"dimension"`
	}{provider, model, dim}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// GetSchemaInfo reads the schema info. A fresh manifest reports version 0.
func (m *Manifest) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := m.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}
		if data := b.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &info.Version); err != nil {
				return fmt.Errorf("bad schema version: %w", err)
			}
		}
		if data := b.Get(keyEmbeddingFingerprint); data != nil {
			info.EmbeddingFingerprint = string(data)
		}
		return nil
	})
	return &info, err
}

// SetSchemaInfo stores the schema info.
func (m *Manifest) SetSchemaInfo(info *SchemaInfo) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		data, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, data); err != nil {
			return err
		}
		return b.Put(keyEmbeddingFingerprint, []byte(info.EmbeddingFingerprint))
	})
}

// Migrate brings the manifest up to CurrentSchemaVersion.
func (m *Manifest) Migrate() error {
	info, err := m.GetSchemaInfo()
	if err != nil {
		return err
	}
	if info.Version > CurrentSchemaVersion {
		return fmt.Errorf("manifest created by a newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
	}
	if info.Version == CurrentSchemaVersion {
		return nil
	}

	for v := info.Version; v < CurrentSchemaVersion; v++ {
		if err := m.runMigration(v, v+1); err != nil {
			return fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
		}
	}
	info.Version = CurrentSchemaVersion
	return m.SetSchemaInfo(info)
}

func (m *Manifest) runMigration(from, to int) error {
	switch {
	case from == 0 && to == 1:
		return m.db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketSources)
			return err
		})
	default:
		return nil
	}
}

// CheckEmbedding verifies that a store holding storeLen documents was built
// with the embedding space identified by fingerprint. An empty store, or one
// that was never stamped, adopts the fingerprint.
func (m *Manifest) CheckEmbedding(fingerprint string, storeLen int) error {
	info, err := m.GetSchemaInfo()
	if err != nil {
		return err
	}
	if info.EmbeddingFingerprint == fingerprint {
		return nil
	}
	if storeLen > 0 && info.EmbeddingFingerprint != "" {
		return fmt.Errorf("%w: store was built with embedding %s, configured embedding is %s; rebuild the store from the source PDFs",
			domain.ErrEmbeddingSpace, info.EmbeddingFingerprint, fingerprint)
	}
	info.EmbeddingFingerprint = fingerprint
	return m.SetSchemaInfo(info)
}
