package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"MATERIAL", CategoryMaterial},
		{"labour", CategoryLabour},
		{" Sub_Work ", CategorySubWork},
		{"EQUIPMENT", CategoryEquipment},
		{"other", CategoryOther},
		{"", CategoryMaterial},
		{"plumbing", CategoryMaterial},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCategory(tt.in), "input %q", tt.in)
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, c.Valid())
	}
	assert.False(t, Category("PLUMBING").Valid())
	assert.False(t, Category("").Valid())
}

func TestFinalize_RecomputesCounts(t *testing.T) {
	r := ParseResult{
		Items: []ParsedLineItem{
			{Description: "a", SectionName: "S1"},
			{Description: "b", SectionName: "S1", IsReviewFlagged: true, FlagReason: FlagReasonQuantityMissing},
			{Description: "c"},
		},
	}
	r.Finalize()

	assert.Equal(t, 3, r.TotalItems)
	assert.Equal(t, 1, r.FlaggedItems)
	assert.Equal(t, []string{"S1"}, r.Sections)
}
