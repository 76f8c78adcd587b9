// Package pdf reads page text and text layout from PDF files.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"paperrag/internal/domain"
)

// Reader parses PDFs with github.com/ledongthuc/pdf.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// Read parses every page of the PDF in data. The PDF library panics on some
// malformed input; those panics are returned as extraction errors.
func (r *Reader) Read(name string, data []byte) (parsed *domain.ParsedPDF, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			parsed = nil
			err = fmt.Errorf("%w: %s: pdf parser panic: %v", domain.ErrExtraction, name, rec)
		}
	}()

	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrExtraction, name, err)
	}

	parsed = &domain.ParsedPDF{Name: name}
	for i := 1; i <= rd.NumPage(); i++ {
		page := rd.Page(i)
		if page.V.IsNull() {
			continue
		}

		parsed.Pages = append(parsed.Pages, readPage(page, i))
	}

	return parsed, nil
}

func readPage(page pdf.Page, number int) domain.PageLayout {
	width, height := mediaBox(page.V)

	content := page.Content()
	glyphs := make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, Glyph{
			Text: t.S,
			Font: t.Font,
			Size: t.FontSize,
			X:    t.X,
			Y:    t.Y,
			W:    t.W,
		})
	}

	blocks := BuildBlocks(glyphs, height)
	return domain.PageLayout{
		Number: number,
		Width:  width,
		Height: height,
		Blocks: blocks,
		Text:   PageText(blocks),
	}
}

// mediaBox returns the page size, following inherited attributes up the
// page tree. Zero means unknown.
func mediaBox(v pdf.Value) (width, height float64) {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			return box.Index(2).Float64() - box.Index(0).Float64(),
				box.Index(3).Float64() - box.Index(1).Float64()
		}
		v = v.Key("Parent")
	}
	return 0, 0
}
