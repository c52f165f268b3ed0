package parser

import (
	"strings"

	"github.com/sells-group/boq-cli/internal/model"
)

// rowKind is the classification of a single document row.
type rowKind int

const (
	rowBlank rowKind = iota
	rowSectionHeader
	rowLineItem
)

// maxHeaderLen bounds how long a description can be and still pass for a
// section heading. Real section names in authored BOQs are short.
const maxHeaderLen = 100

// parseState is the immutable accumulator threaded through row iteration.
// Carrying the active section here (rather than in a loop variable) keeps
// the classifier's two states visible: armed-for-items vs just-updated-
// section.
type parseState struct {
	section  string
	items    []model.ParsedLineItem
	sections []string
}

// classifyRow decides whether a row is blank, a section heading, or a line
// item. A non-blank description under maxHeaderLen characters with no
// "TOTAL" token and all-zero quantity/rate/amount is treated as a section
// heading. A genuine zero-quantity placeholder item is therefore read as a
// heading; that is the intended reading of authored BOQ documents.
func classifyRow(row []string, cols ColumnMap) rowKind {
	desc := strings.TrimSpace(cols.Cell(row, FieldDescription))
	if desc == "" {
		return rowBlank
	}

	qty := ParseNumeric(cols.Cell(row, FieldQuantity))
	rate := ParseNumeric(cols.Cell(row, FieldRate))
	amount := ParseNumeric(cols.Cell(row, FieldAmount))

	if qty == 0 && rate == 0 && amount == 0 &&
		len(desc) < maxHeaderLen &&
		!strings.Contains(strings.ToUpper(desc), "TOTAL") {
		return rowSectionHeader
	}
	return rowLineItem
}

// foldRow advances the accumulator by one row and returns the new state.
func foldRow(st parseState, row []string, cols ColumnMap) parseState {
	switch classifyRow(row, cols) {
	case rowBlank:
		return st

	case rowSectionHeader:
		name := strings.TrimSpace(cols.Cell(row, FieldDescription))
		next := st
		next.section = name
		if !containsString(st.sections, name) {
			next.sections = append(append([]string(nil), st.sections...), name)
		}
		return next

	default:
		item := buildItem(row, cols, st.section)
		next := st
		next.items = append(append([]model.ParsedLineItem(nil), st.items...), item)
		return next
	}
}

// buildItem extracts, triangulates, flags, and categorizes one line item.
func buildItem(row []string, cols ColumnMap, section string) model.ParsedLineItem {
	desc := strings.TrimSpace(cols.Cell(row, FieldDescription))
	unit := strings.TrimSpace(cols.Cell(row, FieldUnit))
	if unit == "" {
		unit = model.DefaultUnit
	}

	item := model.ParsedLineItem{
		Code:        strings.TrimSpace(cols.Cell(row, FieldCode)),
		Description: desc,
		Unit:        unit,
		SectionName: section,
	}

	obs := observed{
		Quantity: ParseNumeric(cols.Cell(row, FieldQuantity)),
		Rate:     ParseNumeric(cols.Cell(row, FieldRate)),
		Amount:   ParseNumeric(cols.Cell(row, FieldAmount)),
	}
	qty, rate := triangulate(obs)
	item.IsReviewFlagged, item.FlagReason = applyFlag(qty, rate, obs.Amount > 0, item.Unit, item.Description)
	item.Quantity, item.Rate = ensureMinimal(qty, rate)
	item.Category = ClassifyCategory(item.Description, section)
	return item
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
