package workbook

import "regexp"

// Rewrites only apply right before a unit suffix (percent, yen, count),
// whitespace, or the end of the string.
const unitBoundary = `([%円件\s\x{00A0}\x{3000}]|$)`

var (
	zeroFraction  = regexp.MustCompile(`\.00+` + unitBoundary)
	trailingZeros = regexp.MustCompile(`(\.\d*?[1-9])0+` + unitBoundary)
	danglingPoint = regexp.MustCompile(`\.` + unitBoundary)
)

// NormalizeDisplay strips rendering noise from a numeric display string:
// "100.00%" -> "100%", "12.340円" -> "12.34円", "5.件" -> "5件". The order
// matters: whole zero fractions go first, then trailing zeros, then any
// point left dangling. Magnitude never changes.
func NormalizeDisplay(s string) string {
	s = zeroFraction.ReplaceAllString(s, "${1}")
	s = trailingZeros.ReplaceAllString(s, "${1}${2}")
	return danglingPoint.ReplaceAllString(s, "${1}")
}

// NormalizeValue applies NormalizeDisplay to strings and returns any other
// value unchanged.
func NormalizeValue(v any) any {
	if s, ok := v.(string); ok {
		return NormalizeDisplay(s)
	}
	return v
}
