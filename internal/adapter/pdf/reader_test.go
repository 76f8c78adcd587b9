package pdf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperrag/internal/adapter/metadata"
	"paperrag/internal/adapter/pdf/pdftest"
	"paperrag/internal/domain"
)

func TestReader_Read(t *testing.T) {
	data := pdftest.Build(
		pdftest.Page{
			{Text: "Journal of Medicine, Vol 3", Size: 10, Y: 770},
			{Text: "A Randomized Trial of X", Size: 24, Y: 700},
			{Text: "Keywords: diabetes, insulin; exercise.", Size: 10, Y: 640},
		},
		pdftest.Page{
			{Text: "Available at 10.1001/jama.2020.1234.", Size: 10, Y: 700},
		},
	)

	parsed, err := NewReader().Read("trial.pdf", data)
	require.NoError(t, err)
	require.Len(t, parsed.Pages, 2)
	assert.Equal(t, "trial.pdf", parsed.Name)

	first := parsed.Pages[0]
	assert.Equal(t, 1, first.Number)
	assert.InDelta(t, 612, first.Width, 0.001)
	assert.InDelta(t, 792, first.Height, 0.001)
	assert.Contains(t, first.Text, "Randomized")
	assert.NotEmpty(t, first.Blocks)

	assert.Equal(t, "A Randomized Trial of X", metadata.ExtractTitle(first))

	meta := metadata.Extract(parsed.Pages)
	assert.Equal(t, "http://dx.doi.org/10.1001/jama.2020.1234", meta.DOI)
	assert.Equal(t, []string{"diabetes", "insulin", "exercise"}, meta.Keywords)
}

func TestReader_LineBreaksFollowLayout(t *testing.T) {
	data := pdftest.Build(pdftest.Page{
		{Text: "Keywords: diabetes, insulin; exercise.", Size: 10, Y: 700},
		{Text: "Introduction", Size: 10, Y: 688},
		{Text: "Diabetes is a chronic disease affecting millions.", Size: 10, Y: 676},
		{Text: "DOI: 10.1000/x.1", Size: 10, Y: 664},
		{Text: "Received 12 May 2020", Size: 10, Y: 652},
	})

	parsed, err := NewReader().Read("td.pdf", data)
	require.NoError(t, err)
	require.Len(t, parsed.Pages, 1)

	text := parsed.Pages[0].Text
	assert.Contains(t, text, "exercise.\nIntroduction\nDiabetes")
	assert.Contains(t, text, "10.1000/x.1\nReceived")

	meta := metadata.Extract(parsed.Pages)
	assert.Equal(t, []string{"diabetes", "insulin", "exercise"}, meta.Keywords)
	assert.Equal(t, "http://dx.doi.org/10.1000/x.1", meta.DOI)
}

func TestReader_ReadCorrupt(t *testing.T) {
	_, err := NewReader().Read("broken.pdf", []byte("this is not a pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.True(t, strings.Contains(err.Error(), "broken.pdf"))
}

func TestReader_ReadTruncated(t *testing.T) {
	data := pdftest.Build(pdftest.Page{{Text: "Some text here", Y: 700}})

	_, err := NewReader().Read("short.pdf", data[:len(data)/2])
	assert.ErrorIs(t, err, domain.ErrExtraction)
}
