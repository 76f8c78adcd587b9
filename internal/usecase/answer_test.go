package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperrag/internal/adapter/cache"
	"paperrag/internal/domain"
)

type searcherStub struct {
	results []domain.ScoredDocument
	err     error
	gen     uint64
	calls   int
}

func (s *searcherStub) SearchScored(_ context.Context, _ string, topK int) ([]domain.ScoredDocument, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if topK < len(s.results) {
		return s.results[:topK], nil
	}
	return s.results, nil
}

func (s *searcherStub) Generation() uint64 { return s.gen }

type llmStub struct {
	prompt string
	reply  string
	err    error
}

func (l *llmStub) Generate(_ context.Context, prompt string) (string, error) {
	l.prompt = prompt
	return l.reply, l.err
}

func (l *llmStub) ModelName() string { return "stub" }

func paper(title, content, doi string) domain.ScoredDocument {
	return domain.ScoredDocument{Document: domain.Document{
		Title:    title,
		Content:  content,
		DOI:      doi,
		Keywords: []string{},
		Metadata: map[string]string{domain.MetaSourceFile: title + ".pdf"},
	}}
}

func TestRetrieve_UsesCacheUntilGenerationChanges(t *testing.T) {
	s := &searcherStub{results: []domain.ScoredDocument{paper("A", "a", domain.DOINotFound)}}
	u := NewRetrieveUseCase(s, cache.NewQueryCache(10, time.Minute), nil)
	ctx := context.Background()

	first, err := u.Retrieve(ctx, "insulin", 3)
	require.NoError(t, err)
	second, err := u.Retrieve(ctx, "insulin", 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, s.calls)

	s.gen++
	_, err = u.Retrieve(ctx, "insulin", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, s.calls)
}

func TestRetrieve_WithoutCacheAndErrors(t *testing.T) {
	s := &searcherStub{err: domain.ErrEmbedding}
	u := NewRetrieveUseCase(s, nil, nil)

	_, err := u.Retrieve(context.Background(), "q", 1)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestBuildPrompt(t *testing.T) {
	docs := []domain.Document{
		{Title: "Statins", Content: "Statins lower LDL."},
		{Title: "Aspirin", Content: "Aspirin prevents clots."},
	}

	prompt, err := BuildPrompt("What lowers LDL?", docs)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(prompt, "You are a medical research assistant."))
	assert.Contains(t, prompt, "Title: Statins\nContent: Statins lower LDL.\n\nTitle: Aspirin\nContent: Aspirin prevents clots.")
	assert.Contains(t, prompt, "Question: What lowers LDL?")
	assert.Contains(t, prompt, "list all relevant DOI references")
}

func TestDOILinks(t *testing.T) {
	docs := []domain.Document{
		{DOI: "http://dx.doi.org/10.1/a"},
		{DOI: domain.DOINotFound},
		{DOI: ""},
		{DOI: "http://dx.doi.org/10.1/b"},
	}
	assert.Equal(t, []string{"http://dx.doi.org/10.1/a", "http://dx.doi.org/10.1/b"}, DOILinks(docs))
	assert.Equal(t, []string{}, DOILinks(nil))
}

func TestAnswer(t *testing.T) {
	s := &searcherStub{results: []domain.ScoredDocument{
		paper("Statins", "Statins lower LDL.", "http://dx.doi.org/10.1/s"),
		paper("Diet", "Diet matters.", domain.DOINotFound),
	}}
	llm := &llmStub{reply: "Statins lower LDL [1]."}
	u := NewAnswerUseCase(NewRetrieveUseCase(s, nil, nil), llm, nil)

	ans, err := u.Answer(context.Background(), "What lowers LDL?", 2)
	require.NoError(t, err)

	assert.Equal(t, "What lowers LDL?", ans.Query)
	assert.Equal(t, "Statins lower LDL [1].", ans.Text)
	assert.Len(t, ans.Documents, 2)
	assert.Equal(t, []string{"http://dx.doi.org/10.1/s"}, ans.DOILinks)
	assert.Contains(t, llm.prompt, "Title: Diet")
}

func TestAnswer_NoDocuments(t *testing.T) {
	llm := &llmStub{}
	u := NewAnswerUseCase(NewRetrieveUseCase(&searcherStub{}, nil, nil), llm, nil)

	_, err := u.Answer(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, domain.ErrNoDocuments)
	assert.Empty(t, llm.prompt, "the model is not called without context")
}

func TestAnswer_GenerationError(t *testing.T) {
	s := &searcherStub{results: []domain.ScoredDocument{paper("A", "a", domain.DOINotFound)}}
	u := NewAnswerUseCase(NewRetrieveUseCase(s, nil, nil), &llmStub{err: errors.New("quota")}, nil)

	_, err := u.Answer(context.Background(), "q", 1)
	assert.ErrorContains(t, err, "quota")
}

func TestPrompt_WithoutLLM(t *testing.T) {
	s := &searcherStub{results: []domain.ScoredDocument{paper("A", "alpha", domain.DOINotFound)}}
	u := NewAnswerUseCase(NewRetrieveUseCase(s, nil, nil), nil, nil)

	prompt, docs, err := u.Prompt(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Contains(t, prompt, "Content: alpha")

	_, err = u.Answer(context.Background(), "q", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestToResults(t *testing.T) {
	sd := paper("Long", strings.Repeat("é", 30), domain.DOINotFound)
	sd.Position = 4
	sd.Distance = 0.25

	res := ToResults([]domain.ScoredDocument{sd}, 10)
	require.Len(t, res, 1)
	assert.Equal(t, 1, res[0].Rank)
	assert.Equal(t, 4, res[0].Position)
	assert.Equal(t, "Long.pdf", res[0].SourceFile)
	assert.Equal(t, strings.Repeat("é", 10)+"...", res[0].Excerpt)
}
