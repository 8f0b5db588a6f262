package loaders

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/docqa/backend/pkg/apperr"
)

var slidePathPattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// PptxLoader extracts one unit per slide for granular retrieval.
type PptxLoader struct{}

func (l *PptxLoader) Format() string { return "pptx" }

func (l *PptxLoader) Load(data []byte, filename string) ([]Unit, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExtractionError, "failed to open PPTX "+filename, err)
	}

	type slide struct {
		number int
		file   *zip.File
	}
	var slides []slide

	for _, file := range reader.File {
		m := slidePathPattern.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slide{number: n, file: file})
	}

	// Archive entry order is not slide order.
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	var units []Unit
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindExtractionError, "failed to read slide in "+filename, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindExtractionError, "failed to read slide in "+filename, err)
		}

		text := extractSlideText(content)
		if strings.TrimSpace(text) == "" {
			continue
		}
		units = append(units, Unit{Text: text, Page: s.number})
	}

	return units, nil
}

// extractSlideText collects the character data of every <a:t> element, which
// holds the visible text runs of a slide.
func extractSlideText(content []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var runs []string
	inText := false

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				if s := strings.TrimSpace(string(t)); s != "" {
					runs = append(runs, s)
				}
			}
		}
	}

	return strings.Join(runs, "\n")
}
