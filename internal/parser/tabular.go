package parser

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/boq-cli/internal/model"
)

// Format identifies the tabular encoding of an uploaded document.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// xlsxMagic is the ZIP local-file-header signature; XLSX files are ZIP
// containers.
var xlsxMagic = []byte{'P', 'K', 0x03, 0x04}

// DetectFormat sniffs the tabular format from filename extension and
// content, preferring content.
func DetectFormat(filename string, data []byte) Format {
	if bytes.HasPrefix(data, xlsxMagic) {
		return FormatXLSX
	}
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// ParseTabular converts raw spreadsheet bytes into a ParseResult. It never
// returns a Go error: structural problems (no sheet, no rows, no description
// column) yield an empty result carrying one user-facing message, and
// row-level problems yield flagged items.
func ParseTabular(data []byte, format Format) model.ParseResult {
	rows, err := readRows(data, format)
	if err != nil {
		return model.EmptyResult(err.Error())
	}
	if len(rows) == 0 {
		return model.EmptyResult("document contains no rows")
	}

	cols, err := MapColumns(rows[0])
	if err != nil {
		return model.EmptyResult("could not identify a description column in the header row")
	}

	st := parseState{}
	for _, row := range rows[1:] {
		st = foldRow(st, row, cols)
	}

	result := model.ParseResult{
		Items:    st.items,
		Sections: st.sections,
	}
	if result.Items == nil {
		result.Items = []model.ParsedLineItem{}
	}
	if result.Sections == nil {
		result.Sections = []string{}
	}
	result.Finalize()
	return result
}

func readRows(data []byte, format Format) ([][]string, error) {
	switch format {
	case FormatXLSX:
		return readXLSXRows(data)
	case FormatCSV:
		return readCSVRows(data)
	default:
		return nil, eris.Errorf("unsupported document format %q", format)
	}
}

func readXLSXRows(data []byte) ([][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.New("could not read the spreadsheet file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("spreadsheet contains no sheets")
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readCSVRows(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.New("could not read the CSV file")
		}
		rows = append(rows, record)
	}
	return rows, nil
}
