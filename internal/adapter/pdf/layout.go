package pdf

import (
	"math"
	"strings"

	"paperrag/internal/domain"
)

// Glyph is one positioned text run as emitted by the PDF content stream.
// X and Y use PDF user space: origin bottom-left, Y is the baseline.
type Glyph struct {
	Text string
	Font string
	Size float64
	X    float64
	Y    float64
	W    float64
}

const (
	// baselineTolerance is the fraction of the font size two glyphs' baselines
	// may differ by and still sit on one line.
	baselineTolerance = 0.5
	// wordGap is the horizontal gap, as a fraction of the font size, above
	// which a space is inserted between adjacent glyphs.
	wordGap = 0.15
	// blockGap is the vertical gap, as a fraction of the previous line
	// height, above which a new block starts.
	blockGap = 0.6
)

// BuildBlocks groups glyphs into spans, lines and blocks and converts
// coordinates to a top-left origin. Glyph order is preserved.
func BuildBlocks(glyphs []Glyph, pageHeight float64) []domain.Block {
	if pageHeight <= 0 {
		pageHeight = estimateHeight(glyphs)
	}
	return groupBlocks(groupLines(glyphs, pageHeight))
}

func estimateHeight(glyphs []Glyph) float64 {
	var h float64
	for _, g := range glyphs {
		h = math.Max(h, g.Y+g.Size)
	}
	return h
}

func glyphRect(g Glyph, pageHeight float64) domain.Rect {
	return domain.Rect{
		X0: g.X,
		Y0: pageHeight - g.Y - g.Size,
		X1: g.X + g.W,
		Y1: pageHeight - g.Y,
	}
}

func groupLines(glyphs []Glyph, pageHeight float64) []domain.Line {
	var (
		lines    []domain.Line
		cur      *domain.Line
		baseline float64
	)

	for _, g := range glyphs {
		if g.Text == "" {
			continue
		}
		rect := glyphRect(g, pageHeight)

		tol := math.Max(1, g.Size*baselineTolerance)
		if cur == nil || math.Abs(g.Y-baseline) > tol {
			if cur != nil {
				lines = append(lines, *cur)
			}
			cur = &domain.Line{BBox: rect}
			baseline = g.Y
		}

		appendGlyph(cur, g, rect)
	}
	if cur != nil {
		lines = append(lines, *cur)
	}

	return lines
}

func appendGlyph(line *domain.Line, g Glyph, rect domain.Rect) {
	line.BBox = line.BBox.Union(rect)

	n := len(line.Spans)
	if n == 0 {
		line.Spans = append(line.Spans, domain.Span{Text: g.Text, Font: g.Font, Size: g.Size, BBox: rect})
		return
	}

	last := &line.Spans[n-1]
	gap := g.X - last.BBox.X1
	needSpace := gap > g.Size*wordGap &&
		!strings.HasSuffix(last.Text, " ") &&
		!strings.HasPrefix(g.Text, " ")

	if last.Font == g.Font && last.Size == g.Size {
		if needSpace {
			last.Text += " "
		}
		last.Text += g.Text
		last.BBox = last.BBox.Union(rect)
		return
	}

	if needSpace {
		last.Text += " "
	}
	line.Spans = append(line.Spans, domain.Span{Text: g.Text, Font: g.Font, Size: g.Size, BBox: rect})
}

func groupBlocks(lines []domain.Line) []domain.Block {
	var blocks []domain.Block

	for _, line := range lines {
		n := len(blocks)
		if n > 0 {
			last := &blocks[n-1]
			prev := last.Lines[len(last.Lines)-1].BBox
			height := prev.Y1 - prev.Y0
			gap := line.BBox.Y0 - prev.Y1
			if gap <= height*blockGap && gap >= -height {
				last.Lines = append(last.Lines, line)
				last.BBox = last.BBox.Union(line.BBox)
				continue
			}
		}
		blocks = append(blocks, domain.Block{Lines: []domain.Line{line}, BBox: line.BBox})
	}

	return blocks
}

// PageText renders blocks as plain text: lines joined with a newline, blocks
// separated by a newline. Line breaks come from glyph positions, so they do
// not depend on which text-positioning operators the producer used.
func PageText(blocks []domain.Block) string {
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text()
	}
	return strings.Join(texts, "\n")
}
