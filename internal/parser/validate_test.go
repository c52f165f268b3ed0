package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/boq-cli/internal/model"
)

func TestTriangulate_RateFromAmount(t *testing.T) {
	qty, rate := triangulate(observed{Quantity: 10, Rate: 0, Amount: 500})
	assert.Equal(t, 10.0, qty)
	assert.Equal(t, 50.0, rate)
}

func TestTriangulate_QuantityFromAmount(t *testing.T) {
	qty, rate := triangulate(observed{Quantity: 0, Rate: 50, Amount: 500})
	assert.Equal(t, 10.0, qty)
	assert.Equal(t, 50.0, rate)
}

func TestTriangulate_NoDerivationWithoutQuantityAndRate(t *testing.T) {
	// Amount alone is not enough: deriving rate needs a positive quantity
	// and deriving quantity needs a positive rate.
	qty, rate := triangulate(observed{Quantity: 0, Rate: 0, Amount: 1000})
	assert.Equal(t, 0.0, qty)
	assert.Equal(t, 0.0, rate)
}

func TestTriangulate_BothPresentUntouched(t *testing.T) {
	qty, rate := triangulate(observed{Quantity: 10, Rate: 45, Amount: 999})
	assert.Equal(t, 10.0, qty)
	assert.Equal(t, 45.0, rate)
}

func TestApplyFlag_QuantityMissing(t *testing.T) {
	flagged, reason := applyFlag(0, 0, true, "cum", "Excavation")
	assert.True(t, flagged)
	assert.Equal(t, model.FlagReasonQuantityMissing, reason)
}

func TestApplyFlag_RateAndAmountMissing(t *testing.T) {
	flagged, reason := applyFlag(10, 0, false, "cum", "Excavation")
	assert.True(t, flagged)
	assert.Equal(t, model.FlagReasonRateMissing, reason)
}

func TestApplyFlag_DerivedRateUnflagged(t *testing.T) {
	// quantity=10, rate=0, amount=500 → rate derived to 50 before flagging.
	qty, rate := triangulate(observed{Quantity: 10, Rate: 0, Amount: 500})
	flagged, reason := applyFlag(qty, rate, true, "cum", "Excavation")
	assert.False(t, flagged)
	assert.Empty(t, reason)
}

func TestApplyFlag_UnitVerification(t *testing.T) {
	flagged, reason := applyFlag(10, 50, false, model.DefaultUnit, "Brickwork 230mm in cum")
	assert.True(t, flagged)
	assert.Equal(t, model.FlagReasonUnitUnverified, reason)

	// A real unit suppresses the check even with unit-implying words.
	flagged, _ = applyFlag(10, 50, false, "cum", "Brickwork 230mm in cum")
	assert.False(t, flagged)
}

func TestApplyFlag_CleanItem(t *testing.T) {
	flagged, reason := applyFlag(100, 450, false, "bag", "Cement 43 Grade")
	assert.False(t, flagged)
	assert.Empty(t, reason)
}

func TestEnsureMinimal(t *testing.T) {
	qty, rate := ensureMinimal(0, 0)
	assert.Equal(t, 1.0, qty)
	assert.Equal(t, 0.0, rate)

	qty, rate = ensureMinimal(10, 0)
	assert.Equal(t, 10.0, qty)
	assert.Equal(t, 0.0, rate)
}

func TestFlagThenMinimalState(t *testing.T) {
	// All-zero sources end up quantity=1, rate=0 with the quantity flag:
	// the default is reviewable, never silently trusted.
	obs := observed{Quantity: 0, Rate: 0, Amount: 1000}
	qty, rate := triangulate(obs)
	flagged, reason := applyFlag(qty, rate, obs.Amount > 0, "cum", "Excavation")
	qty, rate = ensureMinimal(qty, rate)

	assert.True(t, flagged)
	assert.Equal(t, model.FlagReasonQuantityMissing, reason)
	assert.Equal(t, 1.0, qty)
	assert.Equal(t, 0.0, rate)
}
