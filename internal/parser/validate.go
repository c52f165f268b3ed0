package parser

import (
	"strings"

	"github.com/sells-group/boq-cli/internal/model"
)

// observed carries the numeric values as they appeared in the source row,
// before any derivation or defaulting.
type observed struct {
	Quantity float64
	Rate     float64
	Amount   float64
}

// unitImplyingTokens are area/length/weight/volume words whose presence in a
// description suggests the document intended a real unit of measure.
var unitImplyingTokens = []string{
	"sqm", "sq.m", "sq m", "sqft", "sq.ft", "sq ft",
	"cum", "cu.m", "cft", "cu.ft",
	"rmt", "rft", "metre", "meter",
	"kg", "tonne", "ton", "quintal",
	"litre", "ltr",
}

// triangulate derives the missing one of quantity/rate from amount. At most
// one derivation is attempted: rate from amount/quantity, or quantity from
// amount/rate. When both are zero no derivation is possible and both pass
// through unchanged; defaulting happens after flagging so the flag reflects
// what the document actually said.
func triangulate(obs observed) (quantity, rate float64) {
	quantity, rate = obs.Quantity, obs.Rate
	switch {
	case obs.Amount > 0 && rate == 0 && quantity > 0:
		rate = obs.Amount / quantity
	case obs.Amount > 0 && rate > 0 && quantity == 0:
		quantity = obs.Amount / rate
	}
	return quantity, rate
}

// applyFlag evaluates the review-flag rules in order, first match wins.
// quantity and rate are the triangulated (but not defaulted) values;
// hasAmount reports whether the source row carried a positive amount.
// Reasons are user-facing text shown to the document reviewer.
func applyFlag(quantity, rate float64, hasAmount bool, unit, description string) (bool, string) {
	if quantity <= 0 {
		return true, model.FlagReasonQuantityMissing
	}
	if rate <= 0 && !hasAmount {
		return true, model.FlagReasonRateMissing
	}
	if unit == model.DefaultUnit && impliesUnit(description) {
		return true, model.FlagReasonUnitUnverified
	}
	return false, ""
}

// ensureMinimal applies the reviewable fallback state for items where
// neither quantity nor rate could be established: quantity=1, rate=0. The
// quantity-missing flag set by applyFlag is what marks the default as
// untrusted.
func ensureMinimal(quantity, rate float64) (float64, float64) {
	if quantity <= 0 && rate <= 0 {
		return 1, 0
	}
	return quantity, rate
}

func impliesUnit(description string) bool {
	lower := strings.ToLower(description)
	for _, tok := range unitImplyingTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
