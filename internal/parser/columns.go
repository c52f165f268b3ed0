package parser

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Field names the semantic role a document column can play.
type Field string

const (
	FieldCode        Field = "code"
	FieldDescription Field = "description"
	FieldUnit        Field = "unit"
	FieldQuantity    Field = "quantity"
	FieldRate        Field = "rate"
	FieldAmount      Field = "amount"
	FieldSection     Field = "section"
)

// headerVariants maps each semantic field to lower-cased substring variants
// tried in priority order. These tables are fixed configuration: they are
// never mutated at runtime.
var headerVariants = map[Field][]string{
	FieldCode:        {"item no", "item code", "sr no", "sr.no", "s.no", "sl no", "code", "no."},
	FieldDescription: {"description", "particular", "item of work", "work item", "item", "activity", "detail"},
	FieldUnit:        {"uom", "unit"},
	FieldQuantity:    {"qty", "quantity", "nos"},
	FieldRate:        {"rate", "unit price", "unit cost", "price"},
	FieldAmount:      {"amount", "total", "value", "cost"},
	FieldSection:     {"section", "category", "group", "head"},
}

// fieldOrder fixes the field evaluation sequence so mapping is deterministic
// for any header ordering.
var fieldOrder = []Field{
	FieldCode,
	FieldDescription,
	FieldUnit,
	FieldQuantity,
	FieldRate,
	FieldAmount,
	FieldSection,
}

// ColumnMap resolves semantic fields to zero-based column indexes within a
// parsed row. Absent fields map to -1.
type ColumnMap struct {
	indexes map[Field]int
	headers map[Field]string
}

// Index returns the column index for a field, or -1 if no header matched.
func (m ColumnMap) Index(f Field) int {
	if i, ok := m.indexes[f]; ok {
		return i
	}
	return -1
}

// Header returns the original header text a field was matched to.
func (m ColumnMap) Header(f Field) string {
	return m.headers[f]
}

// Cell returns the raw cell for a field from a row, or "" when the field is
// unmapped or the row is short.
func (m ColumnMap) Cell(row []string, f Field) string {
	i := m.Index(f)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// MapColumns infers the semantic role of each header. Each field
// independently claims at most one header: variants are tried in priority
// order, and within a variant headers are scanned left to right, so the
// mapping is invariant under header permutation of distinct headers. A
// document with no description column is unparseable and aborts with a
// structural error.
func MapColumns(headers []string) (ColumnMap, error) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	m := ColumnMap{
		indexes: make(map[Field]int, len(fieldOrder)),
		headers: make(map[Field]string, len(fieldOrder)),
	}

	for _, field := range fieldOrder {
	variants:
		for _, variant := range headerVariants[field] {
			for i, h := range normalized {
				if h != "" && strings.Contains(h, variant) {
					m.indexes[field] = i
					m.headers[field] = headers[i]
					break variants
				}
			}
		}
	}

	if m.Index(FieldDescription) < 0 {
		return ColumnMap{}, eris.New("parser: no description column found in header row")
	}
	return m, nil
}
