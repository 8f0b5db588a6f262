package loaders

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/docqa/backend/pkg/apperr"
)

// XlsxLoader extracts one unit per spreadsheet row, rendered as
// "Column: Value | Column: Value" so tabular data reads as text.
type XlsxLoader struct{}

func (l *XlsxLoader) Format() string { return "xlsx" }

func (l *XlsxLoader) Load(data []byte, filename string) ([]Unit, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExtractionError, "failed to open spreadsheet "+filename, err)
	}
	defer f.Close()

	var units []Unit
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindExtractionError, "failed to read sheet "+sheet+" of "+filename, err)
		}
		if len(rows) < 2 {
			continue
		}

		header := rows[0]
		for i, row := range rows[1:] {
			var parts []string
			for col, val := range row {
				if strings.TrimSpace(val) == "" {
					continue
				}
				name := fmt.Sprintf("Column %d", col+1)
				if col < len(header) && strings.TrimSpace(header[col]) != "" {
					name = header[col]
				}
				parts = append(parts, fmt.Sprintf("%s: %s", name, val))
			}
			if len(parts) == 0 {
				continue
			}

			// Spreadsheet rows are 1-indexed and row 1 is the header.
			units = append(units, Unit{
				Text: strings.Join(parts, " | "),
				Page: i + 2,
			})
		}
	}

	return units, nil
}
