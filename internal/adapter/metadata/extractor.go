// Package metadata derives title, citation footer, DOI and keywords from
// the layout of a paper's first pages.
//
// The heuristics are best effort: they hold no guarantee for any single
// document but are deterministic for identical layout input.
package metadata

import (
	"regexp"
	"sort"
	"strings"

	"paperrag/internal/domain"
)

const doiResolver = "http://dx.doi.org/"

// metadataPages is how many leading pages feed the DOI and keyword search.
const metadataPages = 2

var (
	// Running headers that look like titles but are not.
	headerPattern   = regexp.MustCompile(`(?i)(journal|doi|volume|issue|page \d+)`)
	citationPattern = regexp.MustCompile(`(?i)(journal|volume|issue|vol\.|no\.|doi|issn)`)
	doiPattern      = regexp.MustCompile(`\b(10\.\d{4,9}/[^\s"'<>]*)`)
	keywordsPattern = regexp.MustCompile(`(?i)\b(?:keywords|key\s+words|index\s+terms)[ \t]*[:\-–]?[ \t]*([^\r\n]+)`)
	keywordSplit    = regexp.MustCompile(`[,;]`)
)

// Extract runs every heuristic over the leading pages of a document.
func Extract(pages []domain.PageLayout) domain.PaperMetadata {
	var first domain.PageLayout
	if len(pages) > 0 {
		first = pages[0]
	}

	text := LeadingText(pages, metadataPages)

	return domain.PaperMetadata{
		Title:        ExtractTitle(first),
		CitationInfo: ExtractCitation(first),
		DOI:          ExtractDOI(text),
		Keywords:     ExtractKeywords(text),
	}
}

// LeadingText concatenates the plain text of the first n pages.
func LeadingText(pages []domain.PageLayout, n int) string {
	var sb strings.Builder
	for i := 0; i < len(pages) && i < n; i++ {
		sb.WriteString(pages[i].Text)
		if !strings.HasSuffix(pages[i].Text, "\n") {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

type titleCandidate struct {
	text string
	size float64
	top  float64
}

// ExtractTitle picks the largest-font span of more than three words on the
// page, preferring the one nearest the top on equal size.
func ExtractTitle(page domain.PageLayout) string {
	var candidates []titleCandidate
	for _, span := range page.Spans() {
		text := strings.TrimSpace(span.Text)
		if text == "" || len(strings.Fields(text)) <= 3 {
			continue
		}
		if headerPattern.MatchString(text) {
			continue
		}
		candidates = append(candidates, titleCandidate{
			text: text,
			size: span.Size,
			top:  span.BBox.Y0,
		})
	}

	if len(candidates) == 0 {
		return domain.UnknownTitle
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].size != candidates[j].size {
			return candidates[i].size > candidates[j].size
		}
		return candidates[i].top < candidates[j].top
	})

	return candidates[0].text
}

// ExtractCitation scans blocks bottom-up for citation-looking text.
func ExtractCitation(page domain.PageLayout) string {
	if len(page.Blocks) == 0 {
		return domain.UnknownCitationInfo
	}

	blocks := make([]domain.Block, len(page.Blocks))
	copy(blocks, page.Blocks)
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].BBox.Y0 > blocks[j].BBox.Y0
	})

	for _, b := range blocks {
		text := b.Text()
		if citationPattern.MatchString(text) {
			return strings.TrimSpace(text)
		}
	}

	return strings.TrimSpace(blocks[0].Text())
}

// ExtractDOI returns the first DOI in text as a resolver URL.
func ExtractDOI(text string) string {
	m := doiPattern.FindStringSubmatch(text)
	if m == nil {
		return domain.DOINotFound
	}
	doi := strings.TrimRight(m[1], ".,;")
	if doi == "" {
		return domain.DOINotFound
	}
	return doiResolver + doi
}

// ExtractKeywords returns the comma or semicolon separated terms that follow
// a keyword label, up to the end of that line.
func ExtractKeywords(text string) []string {
	m := keywordsPattern.FindStringSubmatch(text)
	if m == nil {
		return []string{}
	}

	keywords := []string{}
	for _, part := range keywordSplit.Split(m[1], -1) {
		kw := strings.TrimRight(strings.TrimSpace(part), ".")
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		keywords = append(keywords, kw)
	}
	return keywords
}
