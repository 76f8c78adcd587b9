package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"paperrag/internal/domain"
	"paperrag/internal/port"
)

//go:embed templates/answer_prompt.txt
var answerPrompt string

var answerTemplate = template.Must(template.New("answer").Funcs(template.FuncMap{
	"formatContext": formatContext,
}).Parse(answerPrompt))

// PromptData is the input of the answer prompt template.
type PromptData struct {
	Query     string
	Documents []domain.Document
}

// BuildPrompt renders the answer prompt for query over docs.
func BuildPrompt(query string, docs []domain.Document) (string, error) {
	var buf bytes.Buffer
	if err := answerTemplate.Execute(&buf, PromptData{Query: query, Documents: docs}); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

func formatContext(docs []domain.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = fmt.Sprintf("Title: %s\nContent: %s", d.Title, d.Content)
	}
	return strings.Join(parts, "\n\n")
}

// DOILinks returns the DOIs of docs in order, leaving out documents without one.
func DOILinks(docs []domain.Document) []string {
	links := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.HasDOI() {
			links = append(links, d.DOI)
		}
	}
	return links
}

// AnswerUseCase retrieves supporting documents and asks an LLM to answer
// from them.
type AnswerUseCase struct {
	retrieve *RetrieveUseCase
	llm      port.LLM
	logger   *zap.Logger
}

// NewAnswerUseCase creates an answer use case. llm may be nil when only
// Prompt is used.
func NewAnswerUseCase(retrieve *RetrieveUseCase, llm port.LLM, logger *zap.Logger) *AnswerUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerUseCase{retrieve: retrieve, llm: llm, logger: logger}
}

// Prompt retrieves documents for query and renders the prompt without
// calling the model.
func (u *AnswerUseCase) Prompt(ctx context.Context, query string, topK int) (string, []domain.Document, error) {
	scored, err := u.retrieve.Retrieve(ctx, query, topK)
	if err != nil {
		return "", nil, err
	}
	if len(scored) == 0 {
		return "", nil, domain.ErrNoDocuments
	}

	docs := make([]domain.Document, len(scored))
	for i, sd := range scored {
		docs[i] = sd.Document
	}

	prompt, err := BuildPrompt(query, docs)
	if err != nil {
		return "", nil, err
	}
	return prompt, docs, nil
}

// Answer retrieves documents, generates an answer and collects DOI links.
func (u *AnswerUseCase) Answer(ctx context.Context, query string, topK int) (*domain.Answer, error) {
	if u.llm == nil {
		return nil, fmt.Errorf("%w: no language model configured", domain.ErrInvalidArgument)
	}

	prompt, docs, err := u.Prompt(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	u.logger.Debug("generating answer",
		zap.String("model", u.llm.ModelName()),
		zap.Int("documents", len(docs)),
		zap.Int("prompt_bytes", len(prompt)))

	text, err := u.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	return &domain.Answer{
		Query:     query,
		Text:      text,
		Documents: docs,
		DOILinks:  DOILinks(docs),
	}, nil
}
