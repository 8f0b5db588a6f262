package loaders

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/docqa/backend/pkg/apperr"
)

// DocxLoader extracts a Word document as a single unit. Word files have no
// strict page boundaries, so there is no positional metadata to preserve.
type DocxLoader struct{}

func (l *DocxLoader) Format() string { return "docx" }

func (l *DocxLoader) Load(data []byte, filename string) ([]Unit, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExtractionError, "failed to open DOCX "+filename, err)
	}

	content, err := readZipFile(reader, "word/document.xml")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExtractionError, "failed to read DOCX body of "+filename, err)
	}
	if content == nil {
		return nil, apperr.New(apperr.KindExtractionError, "DOCX has no document body: "+filename)
	}

	text := parseDocxXML(content)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return []Unit{{Text: text}}, nil
}

// docxDocument mirrors the parts of word/document.xml we care about. XML
// namespaces are matched by local name.
type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []struct {
		Text string `xml:"t"`
	} `xml:"r"`
}

func parseDocxXML(content []byte) string {
	var doc docxDocument
	if err := xml.Unmarshal(content, &doc); err != nil {
		return ""
	}

	var lines []string
	for _, p := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, r := range p.Runs {
			sb.WriteString(r.Text)
		}
		if line := strings.TrimSpace(sb.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func readZipFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, nil
}
