// Package model defines the BOQ domain types shared across the parse,
// review, import, and variance subsystems.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultUnit is the unit-less placeholder assigned when a document does not
// specify a unit for a line item. It is user-facing and must stay stable.
const DefaultUnit = "unit"

// FlagReason values are shown verbatim to reviewers; keep them stable.
const (
	FlagReasonQuantityMissing = "Quantity is zero or missing"
	FlagReasonRateMissing     = "Rate and amount are both zero or missing"
	FlagReasonUnitUnverified  = "Unit may need verification"
)

// ParsedLineItem is a single line item extracted from a BOQ document.
// It is transient: it lives only between parse and commit.
type ParsedLineItem struct {
	Code            string   `json:"code,omitempty" yaml:"code,omitempty"`
	Category        Category `json:"category" yaml:"category"`
	Description     string   `json:"description" yaml:"description"`
	Unit            string   `json:"unit" yaml:"unit"`
	Quantity        float64  `json:"quantity" yaml:"quantity"`
	Rate            float64  `json:"rate" yaml:"rate"`
	SectionName     string   `json:"section_name,omitempty" yaml:"section_name,omitempty"`
	IsReviewFlagged bool     `json:"is_review_flagged" yaml:"is_review_flagged"`
	FlagReason      string   `json:"flag_reason,omitempty" yaml:"flag_reason,omitempty"`
}

// Amount returns quantity × rate for display and subtotals. Persisted
// amounts are recomputed in decimal by the importer; this float form is for
// transient review math only.
func (p ParsedLineItem) Amount() float64 {
	return p.Quantity * p.Rate
}

// ParseResult is the output of one parse attempt over one uploaded document.
// Created once per upload, consumed by review staging, never persisted.
type ParseResult struct {
	Items        []ParsedLineItem `json:"items" yaml:"items"`
	Sections     []string         `json:"sections" yaml:"sections"`
	TotalItems   int              `json:"total_items" yaml:"total_items"`
	FlaggedItems int              `json:"flagged_items" yaml:"flagged_items"`
	Errors       []string         `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// EmptyResult builds a ParseResult carrying no items and a single
// user-facing error message. Structural and collaborator failures both
// surface this shape (never a Go error) so callers have one code path.
func EmptyResult(msg string) ParseResult {
	return ParseResult{
		Items:    []ParsedLineItem{},
		Sections: []string{},
		Errors:   []string{msg},
	}
}

// Finalize recomputes counts and the distinct section set from the item
// slice so they can never drift from the items actually returned.
func (r *ParseResult) Finalize() {
	r.TotalItems = len(r.Items)
	r.FlaggedItems = 0
	seen := make(map[string]bool, len(r.Sections))
	for _, s := range r.Sections {
		seen[s] = true
	}
	for _, it := range r.Items {
		if it.IsReviewFlagged {
			r.FlaggedItems++
		}
		if it.SectionName != "" && !seen[it.SectionName] {
			seen[it.SectionName] = true
			r.Sections = append(r.Sections, it.SectionName)
		}
	}
}

// BudgetLineItem is a committed line item owned by the surrounding system.
// Quantity and rate are exact decimals; float never touches persisted money.
type BudgetLineItem struct {
	ID             string          `json:"id"`
	ProjectID      string          `json:"project_id"`
	CategoryItemID string          `json:"category_item_id"`
	StageID        *string         `json:"stage_id,omitempty"`
	Code           string          `json:"code,omitempty"`
	Description    string          `json:"description"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `json:"quantity"`
	Rate           decimal.Decimal `json:"rate"`
	SectionName    string          `json:"section_name,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// QuotedAmount returns quantity × rate in exact decimal.
func (b BudgetLineItem) QuotedAmount() decimal.Decimal {
	return b.Quantity.Mul(b.Rate)
}

// CategoryItem is an external category entity the committer links against.
// Lookups are always scoped to the owning project.
type CategoryItem struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"project_id"`
	Name      string   `json:"name"`
	Category  Category `json:"category"`
}

// Stage is an external project-stage entity; linking to one is optional.
type Stage struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

// Expense is an actual-cost record linked to a budget line item. Owned by
// the expense-tracking subsystem; read-only here.
type Expense struct {
	ID           string          `json:"id"`
	ProjectID    string          `json:"project_id"`
	BudgetItemID string          `json:"budget_item_id"`
	Description  string          `json:"description,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	Rate         decimal.Decimal `json:"rate"`
	IncurredAt   time.Time       `json:"incurred_at"`
}

// ActualAmount returns rate × quantity for one expense record.
func (e Expense) ActualAmount() decimal.Decimal {
	return e.Rate.Mul(e.Quantity)
}
