package workbook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ColumnLabel converts a zero-based column index to its spreadsheet letters
// (0 -> A, 25 -> Z, 26 -> AA). Labels are bijective base-26: every step
// subtracts one before dividing, so there is no zero digit.
func ColumnLabel(index int) string {
	if index < 0 {
		return ""
	}
	var buf []byte
	for i := index; i >= 0; i = i/26 - 1 {
		buf = append(buf, byte('A'+i%26))
	}
	for l, r := 0, len(buf)-1; l < r; l, r = l+1, r-1 {
		buf[l], buf[r] = buf[r], buf[l]
	}
	return string(buf)
}

// ColumnIndex is the inverse of ColumnLabel. It is case-insensitive and has
// no upper bound other than int overflow.
func ColumnIndex(label string) (int, error) {
	label = strings.ToUpper(strings.TrimSpace(label))
	if label == "" {
		return 0, fmt.Errorf("workbook: empty column label")
	}
	n := 0
	for _, ch := range label {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("workbook: invalid column label %q", label)
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, nil
}

// CellName renders a coordinate as an "A1"-style address.
func CellName(c Coord) string {
	return ColumnLabel(c.Col) + strconv.Itoa(c.Row+1)
}

// ParseCellName parses an "A1"-style address (absolute markers allowed).
func ParseCellName(address string) (Coord, error) {
	col, row, err := excelize.CellNameToCoordinates(strings.ReplaceAll(strings.TrimSpace(address), "$", ""))
	if err != nil {
		return Coord{}, fmt.Errorf("workbook: parse address %q: %w", address, err)
	}
	return Coord{Row: row - 1, Col: col - 1}, nil
}

// ParseRange parses "A1:Z100" or a single "A1" into a normalized range.
func ParseRange(ref string) (Range, error) {
	parts := strings.SplitN(strings.TrimSpace(ref), ":", 2)
	start, err := ParseCellName(parts[0])
	if err != nil {
		return Range{}, err
	}
	end := start
	if len(parts) == 2 {
		if end, err = ParseCellName(parts[1]); err != nil {
			return Range{}, err
		}
	}
	return Range{
		Start: Coord{Row: min(start.Row, end.Row), Col: min(start.Col, end.Col)},
		End:   Coord{Row: max(start.Row, end.Row), Col: max(start.Col, end.Col)},
	}, nil
}
