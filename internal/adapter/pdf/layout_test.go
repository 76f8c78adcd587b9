package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// word emits one glyph per character the way the content stream does,
// advancing by half the font size per character.
func word(text, font string, size, x, y float64) []Glyph {
	var glyphs []Glyph
	for _, r := range text {
		if r != ' ' {
			glyphs = append(glyphs, Glyph{Text: string(r), Font: font, Size: size, X: x, Y: y, W: size / 2})
		}
		x += size / 2
	}
	return glyphs
}

func TestBuildBlocks_SpansAndSpaces(t *testing.T) {
	glyphs := word("A Randomized Trial", "Helvetica-Bold", 24, 72, 700)

	blocks := BuildBlocks(glyphs, 792)
	require.Len(t, blocks, 1)
	require.Len(t, blocks[0].Lines, 1)
	require.Len(t, blocks[0].Lines[0].Spans, 1)

	span := blocks[0].Lines[0].Spans[0]
	assert.Equal(t, "A Randomized Trial", span.Text)
	assert.Equal(t, 24.0, span.Size)
	assert.InDelta(t, 792-700-24, span.BBox.Y0, 0.001)
	assert.InDelta(t, 92, span.BBox.Y1, 0.001)
}

func TestBuildBlocks_FontChangeStartsSpan(t *testing.T) {
	var glyphs []Glyph
	glyphs = append(glyphs, word("Keywords:", "Helvetica-Bold", 10, 72, 500)...)
	glyphs = append(glyphs, word(" malaria", "Helvetica", 10, 72+9*5, 500)...)

	blocks := BuildBlocks(glyphs, 792)
	require.Len(t, blocks, 1)
	line := blocks[0].Lines[0]
	require.Len(t, line.Spans, 2)
	assert.Equal(t, "Keywords: ", line.Spans[0].Text)
	assert.Equal(t, "malaria", line.Spans[1].Text)
	assert.Equal(t, "Keywords: malaria", line.Text())
}

func TestBuildBlocks_GroupsLinesIntoBlocks(t *testing.T) {
	var glyphs []Glyph
	// two tightly spaced body lines
	glyphs = append(glyphs, word("first body line", "Helvetica", 10, 72, 600)...)
	glyphs = append(glyphs, word("second body line", "Helvetica", 10, 72, 588)...)
	// footer far below
	glyphs = append(glyphs, word("Vol. 3 No. 2", "Helvetica", 8, 72, 40)...)

	blocks := BuildBlocks(glyphs, 792)
	require.Len(t, blocks, 2)
	assert.Equal(t, "first body line\nsecond body line", blocks[0].Text())
	assert.Equal(t, "Vol. 3 No. 2", blocks[1].Text())
	assert.Greater(t, blocks[1].BBox.Y0, blocks[0].BBox.Y1)
}

func TestBuildBlocks_EstimatesHeight(t *testing.T) {
	blocks := BuildBlocks(word("Title", "Helvetica", 20, 72, 100), 0)
	require.Len(t, blocks, 1)
	assert.InDelta(t, 0, blocks[0].BBox.Y0, 0.001)
}

func TestBuildBlocks_Empty(t *testing.T) {
	assert.Empty(t, BuildBlocks(nil, 792))
	assert.Empty(t, BuildBlocks([]Glyph{{Text: ""}}, 792))
}

func TestPageText(t *testing.T) {
	var glyphs []Glyph
	glyphs = append(glyphs, word("Keywords: asthma", "Helvetica", 10, 72, 600)...)
	glyphs = append(glyphs, word("Introduction", "Helvetica", 10, 72, 588)...)
	glyphs = append(glyphs, word("Vol. 3 No. 2", "Helvetica", 8, 72, 40)...)

	assert.Equal(t, "Keywords: asthma\nIntroduction\nVol. 3 No. 2", PageText(BuildBlocks(glyphs, 792)))
	assert.Equal(t, "", PageText(nil))
}
