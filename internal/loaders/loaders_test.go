package loaders

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/backend/pkg/apperr"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRegistry_ForFilename(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		filename string
		format   string
	}{
		{"report.pdf", "pdf"},
		{"Report.PDF", "pdf"},
		{"memo.docx", "docx"},
		{"deck.pptx", "pptx"},
		{"sheet.xlsx", "xlsx"},
		{"notes.txt", "text"},
		{"readme.md", "text"},
		{"page.html", "html"},
		{"page.htm", "html"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			l, err := r.ForFilename(tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.format, l.Format())
		})
	}
}

func TestRegistry_UnsupportedFormat(t *testing.T) {
	r := NewRegistry()

	_, err := r.ForFilename("archive.tar.gz")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnsupportedFormat))

	_, err = r.ForFilename("noextension")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnsupportedFormat))

	// Legacy binary .xls is not parseable as OOXML.
	_, err = r.ForFilename("legacy.xls")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnsupportedFormat))
}

func TestTextLoader(t *testing.T) {
	l := &TextLoader{}

	units, err := l.Load([]byte("hello world\nsecond line"), "notes.txt")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "hello world\nsecond line", units[0].Text)
	assert.Zero(t, units[0].Page)
}

func TestTextLoader_RejectsBinary(t *testing.T) {
	l := &TextLoader{}

	_, err := l.Load([]byte{0xff, 0xfe, 0x00, 0x80}, "bad.txt")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindExtractionError))
}

func TestTextLoader_EmptyFile(t *testing.T) {
	l := &TextLoader{}

	units, err := l.Load([]byte("   \n  "), "empty.txt")
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestDocxLoader(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
<w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
</w:body>
</w:document>`

	data := buildZip(t, map[string]string{"word/document.xml": docXML})

	l := &DocxLoader{}
	units, err := l.Load(data, "memo.docx")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "First paragraph.\nSecond paragraph.", units[0].Text)
	assert.Zero(t, units[0].Page)
}

func TestDocxLoader_NotAZip(t *testing.T) {
	l := &DocxLoader{}

	_, err := l.Load([]byte("plain text pretending"), "fake.docx")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindExtractionError))
}

func TestDocxLoader_MissingBody(t *testing.T) {
	data := buildZip(t, map[string]string{"other.xml": "<x/>"})

	l := &DocxLoader{}
	_, err := l.Load(data, "broken.docx")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindExtractionError))
}

func TestPptxLoader_SlidesInNumericOrder(t *testing.T) {
	slideXML := func(text string) string {
		return `<?xml version="1.0"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
<a:t>` + text + `</a:t>
</p:sld>`
	}

	// Archive entry order deliberately scrambled; slide10 would sort before
	// slide2 lexically.
	data := buildZip(t, map[string]string{
		"ppt/slides/slide10.xml": slideXML("tenth slide"),
		"ppt/slides/slide2.xml":  slideXML("second slide"),
		"ppt/slides/slide1.xml":  slideXML("first slide"),
		"ppt/media/image1.png":   "binary",
	})

	l := &PptxLoader{}
	units, err := l.Load(data, "deck.pptx")
	require.NoError(t, err)
	require.Len(t, units, 3)

	assert.Equal(t, "first slide", units[0].Text)
	assert.Equal(t, 1, units[0].Page)
	assert.Equal(t, "second slide", units[1].Text)
	assert.Equal(t, 2, units[1].Page)
	assert.Equal(t, "tenth slide", units[2].Text)
	assert.Equal(t, 10, units[2].Page)
}

func TestPptxLoader_SkipsEmptySlides(t *testing.T) {
	data := buildZip(t, map[string]string{
		"ppt/slides/slide1.xml": `<p:sld><a:t>  </a:t></p:sld>`,
		"ppt/slides/slide2.xml": `<p:sld><a:t>content</a:t></p:sld>`,
	})

	l := &PptxLoader{}
	units, err := l.Load(data, "deck.pptx")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, 2, units[0].Page)
}

func TestHTMLLoader(t *testing.T) {
	html := `<html><head><title>t</title><script>var x = 1;</script></head>
<body><nav>menu</nav><p>Visible content here.</p><footer>foot</footer></body></html>`

	l := &HTMLLoader{}
	units, err := l.Load([]byte(html), "page.html")
	require.NoError(t, err)
	require.Len(t, units, 1)

	assert.Contains(t, units[0].Text, "Visible content here.")
	assert.NotContains(t, units[0].Text, "var x = 1")
	assert.NotContains(t, units[0].Text, "menu")
	assert.NotContains(t, units[0].Text, "foot")
}
