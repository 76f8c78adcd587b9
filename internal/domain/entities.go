package domain

import "strings"

// Sentinel values used when a heuristic cannot find the field.
const (
	UnknownTitle        = "Unknown Title"
	UnknownCitationInfo = "Unknown Citation Info"
	DOINotFound         = "DOI not found"
)

// Metadata keys always present on an ingested Document.
const (
	MetaCitationInfo = "citation_info"
	MetaSourceFile   = "source_file"
)

// Document is one ingested source paper.
type Document struct {
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	DOI      string            `json:"doi"`
	Keywords []string          `json:"keywords"`
	Metadata map[string]string `json:"metadata"`
}

// HasDOI reports whether the document carries a resolvable DOI.
func (d Document) HasDOI() bool {
	return d.DOI != "" && d.DOI != DOINotFound
}

// SourceFile returns the base name of the PDF the document came from.
func (d Document) SourceFile() string {
	return d.Metadata[MetaSourceFile]
}

type ScoredDocument struct {
	Document Document `json:"document"`
	Position int      `json:"position"`
	Distance float32  `json:"distance"`
}

// PaperMetadata is the output of the metadata heuristics.
type PaperMetadata struct {
	Title        string
	CitationInfo string
	DOI          string
	Keywords     []string
}

// Answer is a generated response together with its supporting documents.
type Answer struct {
	Query     string     `json:"query"`
	Text      string     `json:"answer"`
	Documents []Document `json:"documents"`
	DOILinks  []string   `json:"doi_links"`
}

// Rect is a bounding box with a top-left origin; Y grows down the page.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Union returns the smallest rect containing both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: min(r.X0, o.X0),
		Y0: min(r.Y0, o.Y0),
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
	}
}

// Span is a run of text sharing one font and size.
type Span struct {
	Text string
	Font string
	Size float64
	BBox Rect
}

type Line struct {
	Spans []Span
	BBox  Rect
}

// Text concatenates the spans of the line.
func (l Line) Text() string {
	var sb strings.Builder
	for _, s := range l.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Block is a group of vertically adjacent lines.
type Block struct {
	Lines []Line
	BBox  Rect
}

// Text joins the block's lines with newlines.
func (b Block) Text() string {
	lines := make([]string, len(b.Lines))
	for i, l := range b.Lines {
		lines[i] = l.Text()
	}
	return strings.Join(lines, "\n")
}

// PageLayout is the parsed layout and plain text of one page.
type PageLayout struct {
	Number int
	Width  float64
	Height float64
	Blocks []Block
	Text   string
}

// Spans returns every span on the page in reading order.
func (p PageLayout) Spans() []Span {
	var spans []Span
	for _, b := range p.Blocks {
		for _, l := range b.Lines {
			spans = append(spans, l.Spans...)
		}
	}
	return spans
}

type ParsedPDF struct {
	Name  string
	Pages []PageLayout
}
