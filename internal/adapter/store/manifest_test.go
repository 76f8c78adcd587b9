package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperrag/internal/domain"
)

func openTestManifest(t *testing.T, path string) *Manifest {
	t.Helper()
	m, err := OpenManifest(path)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManifest_RecordLookupList(t *testing.T) {
	m := openTestManifest(t, filepath.Join(t.TempDir(), "manifest.db"))

	_, found, err := m.Lookup("missing.pdf")
	require.NoError(t, err)
	assert.False(t, found)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, m.Record(
		SourceRecord{Name: "b.pdf", SHA256: "bb", Size: 20, Position: 1, Title: "B", IngestedAt: now},
		SourceRecord{Name: "a.pdf", SHA256: "aa", Size: 10, Position: 0, Title: "A", IngestedAt: now},
	))

	rec, found, err := m.Lookup("b.pdf")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "bb", rec.SHA256)
	assert.Equal(t, 1, rec.Position)
	assert.True(t, now.Equal(rec.IngestedAt))

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.pdf", list[0].Name)
	assert.Equal(t, "b.pdf", list[1].Name)
}

func TestManifest_RecordReplacesByName(t *testing.T) {
	m := openTestManifest(t, filepath.Join(t.TempDir(), "manifest.db"))

	require.NoError(t, m.Record(SourceRecord{Name: "a.pdf", SHA256: "old", Position: 0}))
	require.NoError(t, m.Record(SourceRecord{Name: "a.pdf", SHA256: "new", Position: 3}))

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].SHA256)
}

func TestManifest_PruneDropsRecordsBeyondStore(t *testing.T) {
	m := openTestManifest(t, filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, m.Record(
		SourceRecord{Name: "a.pdf", Position: 0},
		SourceRecord{Name: "b.pdf", Position: 1},
		SourceRecord{Name: "c.pdf", Position: 2},
	))

	dropped, err := m.Prune(3)
	require.NoError(t, err)
	assert.Zero(t, dropped)

	dropped, err = m.Prune(1)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a.pdf", list[0].Name)

	dropped, err = m.Prune(0)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	list, err = m.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestManifest_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.db")

	m, err := OpenManifest(path)
	require.NoError(t, err)
	require.NoError(t, m.Record(SourceRecord{Name: "a.pdf", SHA256: "aa"}))
	require.NoError(t, m.Close())

	reopened := openTestManifest(t, path)
	_, found, err := reopened.Lookup("a.pdf")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestManifest_MigrateStampsVersion(t *testing.T) {
	m := openTestManifest(t, filepath.Join(t.TempDir(), "manifest.db"))

	info, err := m.GetSchemaInfo()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, info.Version)
}

func TestManifest_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.db")

	m, err := OpenManifest(path)
	require.NoError(t, err)
	require.NoError(t, m.SetSchemaInfo(&SchemaInfo{Version: CurrentSchemaVersion + 1}))
	require.NoError(t, m.Close())

	_, err = OpenManifest(path)
	assert.ErrorContains(t, err, "newer version")
}

func TestManifest_CheckEmbedding(t *testing.T) {
	gemini := EmbeddingFingerprint("googleai", "embedding-001", 768)
	nomic := EmbeddingFingerprint("ollama", "nomic-embed-text", 768)
	require.NotEqual(t, gemini, nomic)
	assert.Equal(t, gemini, EmbeddingFingerprint("googleai", "embedding-001", 768))

	t.Run("empty store adopts fingerprint", func(t *testing.T) {
		m := openTestManifest(t, filepath.Join(t.TempDir(), "manifest.db"))
		require.NoError(t, m.CheckEmbedding(gemini, 0))

		info, err := m.GetSchemaInfo()
		require.NoError(t, err)
		assert.Equal(t, gemini, info.EmbeddingFingerprint)
	})

	t.Run("same fingerprint passes", func(t *testing.T) {
		m := openTestManifest(t, filepath.Join(t.TempDir(), "manifest.db"))
		require.NoError(t, m.CheckEmbedding(gemini, 0))
		assert.NoError(t, m.CheckEmbedding(gemini, 12))
	})

	t.Run("different fingerprint on populated store fails", func(t *testing.T) {
		m := openTestManifest(t, filepath.Join(t.TempDir(), "manifest.db"))
		require.NoError(t, m.CheckEmbedding(gemini, 0))
		assert.ErrorIs(t, m.CheckEmbedding(nomic, 12), domain.ErrEmbeddingSpace)
	})

	t.Run("unstamped populated store adopts fingerprint", func(t *testing.T) {
		m := openTestManifest(t, filepath.Join(t.TempDir(), "manifest.db"))
		require.NoError(t, m.CheckEmbedding(nomic, 5))
		assert.ErrorIs(t, m.CheckEmbedding(gemini, 5), domain.ErrEmbeddingSpace)
	})
}
