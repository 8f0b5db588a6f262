package loaders

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/docqa/backend/pkg/apperr"
)

var whitespacePattern = regexp.MustCompile(`[ \t]+`)

// HTMLLoader extracts the visible text of an HTML document as a single unit,
// dropping boilerplate elements.
type HTMLLoader struct{}

func (l *HTMLLoader) Format() string { return "html" }

func (l *HTMLLoader) Load(data []byte, filename string) ([]Unit, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExtractionError, "failed to parse HTML "+filename, err)
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()
	text = whitespacePattern.ReplaceAllString(text, " ")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	text = strings.Join(lines, "\n")

	if text == "" {
		return nil, nil
	}
	return []Unit{{Text: text}}, nil
}
