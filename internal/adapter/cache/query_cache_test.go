package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperrag/internal/domain"
)

func results(titles ...string) []domain.ScoredDocument {
	out := make([]domain.ScoredDocument, len(titles))
	for i, t := range titles {
		out[i] = domain.ScoredDocument{Document: domain.Document{Title: t}, Position: i}
	}
	return out
}

func TestQueryCache_HitAndMiss(t *testing.T) {
	c := NewQueryCache(10, time.Minute)

	_, ok := c.Get("heart", 3, 0)
	assert.False(t, ok)

	c.Put("heart", 3, 0, results("a", "b"))

	got, ok := c.Get("heart", 3, 0)
	require.True(t, ok)
	assert.Equal(t, results("a", "b"), got)

	_, ok = c.Get("heart", 2, 0)
	assert.False(t, ok, "top_k is part of the key")
}

func TestQueryCache_GenerationChangeIsMiss(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("heart", 3, 1, results("a"))

	_, ok := c.Get("heart", 3, 2)
	assert.False(t, ok)
	assert.Zero(t, c.Size(), "stale entries are dropped")
}

func TestQueryCache_TTLExpiry(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("heart", 3, 0, results("a"))
	now = now.Add(59 * time.Second)
	_, ok := c.Get("heart", 3, 0)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("heart", 3, 0)
	assert.False(t, ok)
}

func TestQueryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("q1", 1, 0, results("1"))
	c.Put("q2", 1, 0, results("2"))

	// Touch q1 so q2 becomes the eviction candidate.
	_, ok := c.Get("q1", 1, 0)
	require.True(t, ok)

	c.Put("q3", 1, 0, results("3"))
	assert.Equal(t, 2, c.Size())

	_, ok = c.Get("q2", 1, 0)
	assert.False(t, ok)
	_, ok = c.Get("q1", 1, 0)
	assert.True(t, ok)
}

func TestQueryCache_ReturnsCopies(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("q", 1, 0, results("a"))

	got, _ := c.Get("q", 1, 0)
	got[0].Document.Title = "mutated"

	again, _ := c.Get("q", 1, 0)
	assert.Equal(t, "a", again[0].Document.Title)
}

func TestQueryCache_Invalidate(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("q", 1, 0, results("a"))
	c.Invalidate()
	assert.Zero(t, c.Size())
}
