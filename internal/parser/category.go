package parser

import (
	"strings"

	"github.com/sells-group/boq-cli/internal/model"
)

// categoryKeywords maps each category to substring keywords, scanned in the
// fixed order of model.Categories. First category with any keyword present
// in description+section wins; no match defaults to MATERIAL. A keyword
// scan, not a statistical model: reviewers must be able to see exactly why
// an item was categorized the way it was.
var categoryKeywords = map[model.Category][]string{
	model.CategoryMaterial: {
		"cement", "steel", "sand", "aggregate", "brick", "concrete",
		"paint", "tile", "pipe", "wire", "timber", "wood", "glass",
		"bitumen", "supply", "material",
	},
	model.CategoryLabour: {
		"labour", "labor", "mason", "carpenter", "wages", "worker",
		"manpower", "helper", "fitter", "welder",
	},
	model.CategorySubWork: {
		"subcontract", "sub-contract", "sub contract", "sub work",
		"sub-work", "subwork", "outsourc",
	},
	model.CategoryEquipment: {
		"equipment", "machinery", "rental", "hire", "crane",
		"excavator", "generator", "compressor", "scaffold", "shuttering plant",
	},
	model.CategoryOther: {
		"overhead", "transport", "freight", "insurance", "contingency",
		"miscellaneous", "misc", "tax", "fees",
	},
}

// ClassifyCategory assigns a work category from the item description and its
// enclosing section name.
func ClassifyCategory(description, sectionName string) model.Category {
	text := strings.ToLower(description + " " + sectionName)
	for _, cat := range model.Categories {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(text, kw) {
				return cat
			}
		}
	}
	return model.CategoryMaterial
}
