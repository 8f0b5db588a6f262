// Package loaders extracts text from uploaded files. Each supported format
// produces an ordered sequence of units at its natural granularity: PDF pages,
// PPTX slides, XLSX rows, and whole documents for DOCX, HTML and plain text.
package loaders

import (
	"path/filepath"
	"strings"

	"github.com/docqa/backend/pkg/apperr"
)

// Unit is one extracted piece of a document. Page is the format's positional
// ordinal (PDF page, slide number, spreadsheet row); 0 means the format has no
// positional unit.
type Unit struct {
	Text string
	Page int
}

// Loader extracts units from a file of one format. Implementations must not
// write anywhere; a failed extraction leaves no partial state behind.
type Loader interface {
	Format() string
	Load(data []byte, filename string) ([]Unit, error)
}

// Registry maps file extensions to loaders.
type Registry struct {
	byExt map[string]Loader
}

// NewRegistry returns a registry with all built-in loaders registered.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Loader)}
	r.Register(&PDFLoader{}, ".pdf")
	r.Register(&DocxLoader{}, ".docx")
	r.Register(&PptxLoader{}, ".pptx")
	// Legacy binary .xls is not OOXML and stays unsupported.
	r.Register(&XlsxLoader{}, ".xlsx")
	r.Register(&TextLoader{}, ".txt", ".md")
	r.Register(&HTMLLoader{}, ".html", ".htm")
	return r
}

// Register associates a loader with one or more extensions.
func (r *Registry) Register(l Loader, exts ...string) {
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = l
	}
}

// ForFilename selects a loader by extension.
func (r *Registry) ForFilename(filename string) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	l, ok := r.byExt[ext]
	if !ok {
		return nil, apperr.Newf(apperr.KindUnsupportedFormat, "unsupported file type %q", ext)
	}
	return l, nil
}

// SupportedExtensions lists registered extensions, for error messages and the
// API surface.
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}
