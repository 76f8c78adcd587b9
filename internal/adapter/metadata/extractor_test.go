package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"paperrag/internal/domain"
)

func span(text string, size, y float64) domain.Span {
	return domain.Span{
		Text: text,
		Size: size,
		BBox: domain.Rect{X0: 50, Y0: y, X1: 500, Y1: y + size},
	}
}

func block(y float64, lines ...string) domain.Block {
	b := domain.Block{BBox: domain.Rect{X0: 50, Y0: y, X1: 500, Y1: y + 12*float64(len(lines))}}
	for i, l := range lines {
		b.Lines = append(b.Lines, domain.Line{Spans: []domain.Span{span(l, 10, y+12*float64(i))}})
	}
	return b
}

func pageWithSpans(spans ...domain.Span) domain.PageLayout {
	var blocks []domain.Block
	for _, s := range spans {
		blocks = append(blocks, domain.Block{
			Lines: []domain.Line{{Spans: []domain.Span{s}, BBox: s.BBox}},
			BBox:  s.BBox,
		})
	}
	return domain.PageLayout{Number: 1, Blocks: blocks}
}

func TestExtractTitle(t *testing.T) {
	page := pageWithSpans(
		span("Journal of Medicine, Vol 3", 10, 10),
		span("A Randomized Trial of X", 24, 50),
	)
	assert.Equal(t, "A Randomized Trial of X", ExtractTitle(page))
}

func TestExtractTitle_LargerFontWinsOverPosition(t *testing.T) {
	page := pageWithSpans(
		span("Running head for this short paper", 9, 5),
		span("Effects of Exercise on Insulin Resistance", 18, 120),
	)
	assert.Equal(t, "Effects of Exercise on Insulin Resistance", ExtractTitle(page))
}

func TestExtractTitle_TieBreakByTop(t *testing.T) {
	page := pageWithSpans(
		span("second line of a long title", 16, 90),
		span("first line of a long title", 16, 70),
	)
	assert.Equal(t, "first line of a long title", ExtractTitle(page))
}

func TestExtractTitle_FiltersHeadersAndShortSpans(t *testing.T) {
	page := pageWithSpans(
		span("Abstract", 20, 10),
		span("Volume 12 Issue 4 of the series", 22, 20),
		span("Page 3 of the manuscript draft", 22, 30),
		span("  ", 30, 40),
	)
	assert.Equal(t, domain.UnknownTitle, ExtractTitle(page))
}

func TestExtractTitle_TrimsWhitespace(t *testing.T) {
	page := pageWithSpans(span("  Sleep and Memory in Adolescents  ", 20, 40))
	assert.Equal(t, "Sleep and Memory in Adolescents", ExtractTitle(page))
}

func TestExtractCitation(t *testing.T) {
	page := domain.PageLayout{Blocks: []domain.Block{
		block(40, "Effects of Exercise"),
		block(700, "Afr J Med. 2021; Vol. 4, No. 2", "ISSN 1234-5678"),
		block(760, "© The Authors 2021"),
	}}
	assert.Equal(t, "Afr J Med. 2021; Vol. 4, No. 2\nISSN 1234-5678", ExtractCitation(page))
}

func TestExtractCitation_FallsBackToBottomBlock(t *testing.T) {
	page := domain.PageLayout{Blocks: []domain.Block{
		block(40, "Effects of Exercise"),
		block(760, "  Corresponding author: someone@example.org  "),
		block(300, "Methods"),
	}}
	assert.Equal(t, "Corresponding author: someone@example.org", ExtractCitation(page))
}

func TestExtractCitation_NoBlocks(t *testing.T) {
	assert.Equal(t, domain.UnknownCitationInfo, ExtractCitation(domain.PageLayout{}))
}

func TestExtractDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"trailing period", "... see 10.1001/jama.2020.1234.", "http://dx.doi.org/10.1001/jama.2020.1234"},
		{"trailing punctuation", "doi:10.1371/journal.pone.0123456;,", "http://dx.doi.org/10.1371/journal.pone.0123456"},
		{"first match wins", "10.1000/first and 10.2000/second", "http://dx.doi.org/10.1000/first"},
		{"stops at quote", `href="10.5555/abc"`, "http://dx.doi.org/10.5555/abc"},
		{"too few registrant digits", "10.12/abc", domain.DOINotFound},
		{"absent", "no identifier here", domain.DOINotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDOI(tt.text))
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"colon", "Keywords: diabetes, insulin; exercise.\nIntroduction...", []string{"diabetes", "insulin", "exercise"}},
		{"key words dash", "KEY WORDS - malaria; vaccine\nBackground", []string{"malaria", "vaccine"}},
		{"index terms en dash", "Index Terms – deep learning, retrieval.", []string{"deep learning", "retrieval"}},
		{"no separator", "Keywords HIV, adherence", []string{"HIV", "adherence"}},
		{"empty pieces dropped", "Keywords: a, , b;.", []string{"a", "b"}},
		{"absent", "Abstract\nWe study things.", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKeywords(tt.text))
		})
	}
}

func TestExtract(t *testing.T) {
	first := pageWithSpans(span("Malaria Prevalence in Rural Districts", 20, 60))
	first.Text = "Malaria Prevalence in Rural Districts\nKeywords: malaria, prevalence\n"
	second := domain.PageLayout{Number: 2, Text: "Received 2020. https://doi.org/10.4102/phcfm.v12i1.2209"}
	third := domain.PageLayout{Number: 3, Text: "10.9999/ignored.beyond.second.page"}

	meta := Extract([]domain.PageLayout{first, second, third})

	assert.Equal(t, "Malaria Prevalence in Rural Districts", meta.Title)
	assert.Equal(t, "Malaria Prevalence in Rural Districts", meta.CitationInfo)
	assert.Equal(t, "http://dx.doi.org/10.4102/phcfm.v12i1.2209", meta.DOI)
	assert.Equal(t, []string{"malaria", "prevalence"}, meta.Keywords)
}

func TestExtract_NoPages(t *testing.T) {
	meta := Extract(nil)
	assert.Equal(t, domain.UnknownTitle, meta.Title)
	assert.Equal(t, domain.UnknownCitationInfo, meta.CitationInfo)
	assert.Equal(t, domain.DOINotFound, meta.DOI)
	assert.Empty(t, meta.Keywords)
}
