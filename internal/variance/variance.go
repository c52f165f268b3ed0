// Package variance computes quoted-versus-actual cost reports for committed
// budget line items. All money math is exact decimal; percentages are
// computed raw and clamped only for display.
package variance

import (
	"github.com/shopspring/decimal"

	"github.com/sells-group/boq-cli/internal/model"
)

var hundred = decimal.NewFromInt(100)

// ItemVariance is the per-line comparison of quoted amount against the
// actual spend recorded as expenses.
type ItemVariance struct {
	Item         model.BudgetLineItem `json:"item"`
	QuotedAmount decimal.Decimal      `json:"quoted_amount"`
	ActualAmount decimal.Decimal      `json:"actual_amount"`
	Variance     decimal.Decimal      `json:"variance"`
	ExpenseCount int                  `json:"expense_count"`

	// UsagePercent is actual/quoted in percent, unclamped; overruns exceed
	// 100. A zero quoted amount with spend reports 100.
	UsagePercent decimal.Decimal `json:"usage_percent"`
}

// UsagePercentDisplay clamps usage into [0, 100] for progress-bar style
// rendering. The raw percentage stays available for overrun reporting.
func (v ItemVariance) UsagePercentDisplay() decimal.Decimal {
	if v.UsagePercent.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if v.UsagePercent.GreaterThan(hundred) {
		return hundred
	}
	return v.UsagePercent
}

// Overrun reports whether actual spend exceeds the quoted amount.
func (v ItemVariance) Overrun() bool {
	return v.ActualAmount.GreaterThan(v.QuotedAmount)
}

// Rollup aggregates quoted and actual amounts under one grouping key.
type Rollup struct {
	Key      string          `json:"key"`
	Name     string          `json:"name,omitempty"`
	Quoted   decimal.Decimal `json:"quoted"`
	Actual   decimal.Decimal `json:"actual"`
	Variance decimal.Decimal `json:"variance"`
}

// UnstagedKey is the stage-rollup key for items not linked to any stage.
const UnstagedKey = "unstaged"

// Report is a full variance report for one project.
type Report struct {
	Items         []ItemVariance `json:"items"`
	Categories    []Rollup       `json:"categories"`
	Stages        []Rollup       `json:"stages"`
	TotalQuoted   decimal.Decimal `json:"total_quoted"`
	TotalActual   decimal.Decimal `json:"total_actual"`
	TotalVariance decimal.Decimal `json:"total_variance"`
}

// Compute builds the variance report. Item order follows the input; rollups
// appear in first-occurrence order. Expenses referencing unknown budget
// items are ignored.
func Compute(items []model.BudgetLineItem, expenses []model.Expense) Report {
	byItem := make(map[string][]model.Expense, len(items))
	for _, e := range expenses {
		byItem[e.BudgetItemID] = append(byItem[e.BudgetItemID], e)
	}

	report := Report{
		Items:         make([]ItemVariance, 0, len(items)),
		TotalQuoted:   decimal.Zero,
		TotalActual:   decimal.Zero,
		TotalVariance: decimal.Zero,
	}

	catAgg := newRollupSet()
	stageAgg := newRollupSet()

	for _, item := range items {
		quoted := item.QuotedAmount()
		actual := decimal.Zero
		linked := byItem[item.ID]
		for _, e := range linked {
			actual = actual.Add(e.ActualAmount())
		}

		iv := ItemVariance{
			Item:         item,
			QuotedAmount: quoted,
			ActualAmount: actual,
			Variance:     quoted.Sub(actual),
			ExpenseCount: len(linked),
			UsagePercent: usagePercent(quoted, actual),
		}
		report.Items = append(report.Items, iv)

		report.TotalQuoted = report.TotalQuoted.Add(quoted)
		report.TotalActual = report.TotalActual.Add(actual)

		catAgg.add(item.CategoryItemID, quoted, actual)
		stageAgg.add(stageKey(item.StageID), quoted, actual)
	}

	report.TotalVariance = report.TotalQuoted.Sub(report.TotalActual)
	report.Categories = catAgg.rollups()
	report.Stages = stageAgg.rollups()
	return report
}

func usagePercent(quoted, actual decimal.Decimal) decimal.Decimal {
	if quoted.IsZero() {
		if actual.IsZero() {
			return decimal.Zero
		}
		return hundred
	}
	return actual.Div(quoted).Mul(hundred)
}

func stageKey(stageID *string) string {
	if stageID == nil {
		return UnstagedKey
	}
	return *stageID
}

// rollupSet accumulates rollups in first-occurrence order.
type rollupSet struct {
	order []string
	byKey map[string]*Rollup
}

func newRollupSet() *rollupSet {
	return &rollupSet{byKey: make(map[string]*Rollup)}
}

func (rs *rollupSet) add(key string, quoted, actual decimal.Decimal) {
	r, ok := rs.byKey[key]
	if !ok {
		r = &Rollup{Key: key, Quoted: decimal.Zero, Actual: decimal.Zero}
		rs.byKey[key] = r
		rs.order = append(rs.order, key)
	}
	r.Quoted = r.Quoted.Add(quoted)
	r.Actual = r.Actual.Add(actual)
}

func (rs *rollupSet) rollups() []Rollup {
	out := make([]Rollup, 0, len(rs.order))
	for _, key := range rs.order {
		r := rs.byKey[key]
		r.Variance = r.Quoted.Sub(r.Actual)
		out = append(out, *r)
	}
	return out
}
