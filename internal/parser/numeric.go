// Package parser converts unstructured BOQ documents (XLSX, CSV) into
// validated ParseResults. The whole package is pure and deterministic: the
// same input bytes always produce the same result, and nothing here performs
// I/O beyond reading the supplied buffer.
package parser

import (
	"strconv"
	"strings"
)

// currencyReplacer strips currency markers and grouping commas before
// decimal parsing. Rs/INR prefixes appear in most of the source documents;
// the symbols cover the rest.
var currencyReplacer = strings.NewReplacer(
	"₹", "",
	"$", "",
	"£", "",
	"€", "",
	",", "",
	"Rs.", "",
	"Rs", "",
	"INR", "",
)

// ParseNumeric normalizes a cell value of unknown type into a non-negative
// number. It is a total function: absent, malformed, or negative input all
// yield 0, and distinguishing "0 because missing" from "0 because zero" is
// the validator's job, not this one's.
func ParseNumeric(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		if t < 0 {
			return 0
		}
		return t
	case float32:
		return ParseNumeric(float64(t))
	case int:
		return ParseNumeric(float64(t))
	case int64:
		return ParseNumeric(float64(t))
	case string:
		return parseNumericString(t)
	default:
		return 0
	}
}

func parseNumericString(s string) float64 {
	cleaned := strings.TrimSpace(currencyReplacer.Replace(s))
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
