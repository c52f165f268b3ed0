// Package review holds the editable working set between parsing and commit.
// A Session is a single-writer, in-memory projection of one ParseResult:
// every mutation returns a new Session value, so a partially-applied change
// is never observable and totals recomputed from any returned value are
// always consistent with its items.
package review

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sells-group/boq-cli/internal/model"
)

// OtherBucket is the section name under which items carrying no section are
// grouped for select-all/none operations and display.
const OtherBucket = "Other"

// Item is a parsed line item staged for review, with a stable synthetic
// identity and session-local state.
type Item struct {
	ID                   string `json:"id" yaml:"id"`
	model.ParsedLineItem `yaml:",inline"`
	Selected             bool   `json:"selected" yaml:"selected"`
	Editing              bool   `json:"editing" yaml:"editing"`
	StageID              string `json:"stage_id,omitempty" yaml:"stage_id,omitempty"`
}

// Edit carries the caller-editable fields of an item; applying one replaces
// those fields wholesale.
type Edit struct {
	Code        string         `json:"code" yaml:"code"`
	Category    model.Category `json:"category" yaml:"category"`
	Description string         `json:"description" yaml:"description"`
	Unit        string         `json:"unit" yaml:"unit"`
	Quantity    float64        `json:"quantity" yaml:"quantity"`
	Rate        float64        `json:"rate" yaml:"rate"`
}

// Session is the staged state of one import under review.
type Session struct {
	ProjectID string   `json:"project_id" yaml:"project_id"`
	Items     []Item   `json:"items" yaml:"items"`
	Errors    []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// SectionGroup is a named slice of items for section-wise display.
type SectionGroup struct {
	Name  string
	Items []Item
}

// NewSession stages a ParseResult for review. Every item starts selected.
func NewSession(projectID string, result model.ParseResult) Session {
	items := make([]Item, len(result.Items))
	for i, p := range result.Items {
		items[i] = Item{
			ID:             uuid.New().String(),
			ParsedLineItem: p,
			Selected:       true,
		}
	}
	return Session{
		ProjectID: projectID,
		Items:     items,
		Errors:    append([]string(nil), result.Errors...),
	}
}

// ToggleSelect flips one item's selection.
func (s Session) ToggleSelect(id string) Session {
	return s.mapItems(func(it Item) Item {
		if it.ID == id {
			it.Selected = !it.Selected
		}
		return it
	})
}

// SetSectionSelected selects or deselects every item in a section.
// OtherBucket addresses items that carry no section name.
func (s Session) SetSectionSelected(section string, selected bool) Session {
	return s.mapItems(func(it Item) Item {
		if bucketFor(it) == section {
			it.Selected = selected
		}
		return it
	})
}

// SetEditing marks an item as being edited inline.
func (s Session) SetEditing(id string, editing bool) Session {
	return s.mapItems(func(it Item) Item {
		if it.ID == id {
			it.Editing = editing
		}
		return it
	})
}

// UpdateItem applies an inline edit. Saving an edit resolves any review
// flag: the flag and reason are cleared unconditionally, and the edited
// values are not re-validated even if they reintroduce an invalid state.
// That asymmetry is a product decision carried over from the review UX.
func (s Session) UpdateItem(id string, edit Edit) Session {
	return s.mapItems(func(it Item) Item {
		if it.ID != id {
			return it
		}
		it.Code = edit.Code
		if edit.Category.Valid() {
			it.Category = edit.Category
		}
		it.Description = edit.Description
		it.Unit = edit.Unit
		if it.Unit == "" {
			it.Unit = model.DefaultUnit
		}
		it.Quantity = edit.Quantity
		it.Rate = edit.Rate
		it.IsReviewFlagged = false
		it.FlagReason = ""
		it.Editing = false
		return it
	})
}

// AssignStage sets the stage reference on every currently selected item.
func (s Session) AssignStage(stageID string) Session {
	return s.mapItems(func(it Item) Item {
		if it.Selected {
			it.StageID = stageID
		}
		return it
	})
}

// Selected returns the currently selected items.
func (s Session) Selected() []Item {
	var out []Item
	for _, it := range s.Items {
		if it.Selected {
			out = append(out, it)
		}
	}
	return out
}

// SelectedTotal recomputes the selected-only amount subtotal in exact
// decimal. It is derived, never cached.
func (s Session) SelectedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		if !it.Selected {
			continue
		}
		amount := decimal.NewFromFloat(it.Quantity).Mul(decimal.NewFromFloat(it.Rate))
		total = total.Add(amount)
	}
	return total
}

// FlaggedCount reports how many staged items still carry a review flag.
func (s Session) FlaggedCount() int {
	n := 0
	for _, it := range s.Items {
		if it.IsReviewFlagged {
			n++
		}
	}
	return n
}

// Sections groups items by section name in first-appearance order, with the
// OtherBucket group last when any item has no section.
func (s Session) Sections() []SectionGroup {
	var order []string
	grouped := make(map[string][]Item)
	hasOther := false

	for _, it := range s.Items {
		bucket := bucketFor(it)
		if bucket == OtherBucket {
			hasOther = true
			continue
		}
		if _, ok := grouped[bucket]; !ok {
			order = append(order, bucket)
		}
		grouped[bucket] = append(grouped[bucket], it)
	}

	groups := make([]SectionGroup, 0, len(order)+1)
	for _, name := range order {
		groups = append(groups, SectionGroup{Name: name, Items: grouped[name]})
	}
	if hasOther {
		var others []Item
		for _, it := range s.Items {
			if bucketFor(it) == OtherBucket {
				others = append(others, it)
			}
		}
		groups = append(groups, SectionGroup{Name: OtherBucket, Items: others})
	}
	return groups
}

// mapItems returns a new Session whose items are fn applied to a copy of
// each item. The receiver is never mutated.
func (s Session) mapItems(fn func(Item) Item) Session {
	next := s
	next.Items = make([]Item, len(s.Items))
	for i, it := range s.Items {
		next.Items[i] = fn(it)
	}
	return next
}

func bucketFor(it Item) string {
	if it.SectionName == "" {
		return OtherBucket
	}
	return it.SectionName
}
