package model

import "strings"

// Category classifies a BOQ line item by the kind of work it represents.
type Category string

const (
	CategoryMaterial  Category = "MATERIAL"
	CategoryLabour    Category = "LABOUR"
	CategorySubWork   Category = "SUB_WORK"
	CategoryEquipment Category = "EQUIPMENT"
	CategoryOther     Category = "OTHER"
)

// Categories lists all valid categories in their fixed evaluation order.
// The order matters: keyword classification picks the first category whose
// keywords match, and MATERIAL is the explicit default.
var Categories = []Category{
	CategoryMaterial,
	CategoryLabour,
	CategorySubWork,
	CategoryEquipment,
	CategoryOther,
}

// ParseCategory maps a string to a Category, defaulting unknown or empty
// values to MATERIAL so that external input can never inject an invalid
// category into the pipeline.
func ParseCategory(s string) Category {
	switch Category(strings.ToUpper(strings.TrimSpace(s))) {
	case CategoryMaterial:
		return CategoryMaterial
	case CategoryLabour:
		return CategoryLabour
	case CategorySubWork:
		return CategorySubWork
	case CategoryEquipment:
		return CategoryEquipment
	case CategoryOther:
		return CategoryOther
	default:
		return CategoryMaterial
	}
}

// Valid reports whether c is one of the fixed category values.
func (c Category) Valid() bool {
	switch c {
	case CategoryMaterial, CategoryLabour, CategorySubWork, CategoryEquipment, CategoryOther:
		return true
	}
	return false
}
