// Package pdftest builds small, valid PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Line is one line of text placed on a page.
type Line struct {
	Text string
	Size float64
	X    float64
	Y    float64 // baseline, PDF user space (origin bottom-left)
}

// Page lists the lines drawn on one page.
type Page []Line

// Build renders pages into a single-font PDF with a US Letter media box.
func Build(pages ...Page) []byte {
	var (
		buf     bytes.Buffer
		offsets []int
	)

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	// 1: catalog, 2: page tree, 3: font, then page/content pairs.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>",
		strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding" +
		" /FirstChar 32 /LastChar 126 /Widths [" + widths() + "] >>")

	for i, page := range pages {
		stream := contentStream(page)
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

// contentStream places every line with an absolute text matrix and never
// emits T*, the way most producers lay out text.
func contentStream(page Page) string {
	var sb strings.Builder
	sb.WriteString("BT\n")
	for _, l := range page {
		size := l.Size
		if size == 0 {
			size = 10
		}
		x := l.X
		if x == 0 {
			x = 72
		}
		fmt.Fprintf(&sb, "/F1 %g Tf\n1 0 0 1 %g %g Tm\n(%s) Tj\n", size, x, l.Y, escape(l.Text))
	}
	sb.WriteString("ET")
	return sb.String()
}

func widths() string {
	w := make([]string, 126-32+1)
	for i := range w {
		w[i] = "500"
	}
	return strings.Join(w, " ")
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
