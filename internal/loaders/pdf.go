package loaders

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/docqa/backend/pkg/apperr"
)

// PDFLoader extracts one unit per page, so answers can cite exact pages.
type PDFLoader struct{}

func (l *PDFLoader) Format() string { return "pdf" }

func (l *PDFLoader) Load(data []byte, filename string) ([]Unit, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExtractionError, "failed to parse PDF "+filename, err)
	}

	var units []Unit
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the document.
			continue
		}

		if strings.TrimSpace(text) == "" {
			continue
		}
		units = append(units, Unit{Text: text, Page: i})
	}

	return units, nil
}
