package loaders

import (
	"strings"
	"unicode/utf8"

	"github.com/docqa/backend/pkg/apperr"
)

// TextLoader treats the whole file as a single unit.
type TextLoader struct{}

func (l *TextLoader) Format() string { return "text" }

func (l *TextLoader) Load(data []byte, filename string) ([]Unit, error) {
	if !utf8.Valid(data) {
		return nil, apperr.New(apperr.KindExtractionError, "file is not valid UTF-8 text: "+filename)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return []Unit{{Text: text}}, nil
}
