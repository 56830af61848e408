package workbook

import (
	"fmt"
	"sort"
	"strings"
)

// ResolveSheet picks the first sheet whose trimmed name contains hint and
// falls back to the literal hint. Earlier sheets win ties.
func (wb *Workbook) ResolveSheet(hint string) string {
	for _, s := range wb.Sheets {
		if strings.Contains(strings.TrimSpace(s.Name), hint) {
			return s.Name
		}
	}
	return hint
}

func (wb *Workbook) lookup(hint string) *Sheet {
	return wb.Sheet(wb.ResolveSheet(hint))
}

// ReadCell returns the normalized display value at address on the sheet
// matching sheetHint. Missing sheets, cells, or bad addresses yield "".
func (wb *Workbook) ReadCell(sheetHint, address string) string {
	sh := wb.lookup(sheetHint)
	if sh == nil {
		return ""
	}
	pos, err := ParseCellName(address)
	if err != nil {
		return ""
	}
	return sh.Display(pos)
}

// Direction is where the value sits relative to its label.
type Direction int

const (
	Below Direction = iota
	Right
)

func (d Direction) String() string {
	if d == Right {
		return "right"
	}
	return "below"
}

// ParseDirection accepts "below" (or "bottom") and "right".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "below", "bottom":
		return Below, nil
	case "right":
		return Right, nil
	}
	return Below, fmt.Errorf("workbook: unknown direction %q (use below|right)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Match is the result of a label search.
type Match struct {
	Anchor  Coord
	Address string
	Value   string
}

// FindByLabel scans the sheet bounds row by row, left to right, for the first
// cell whose raw value contains label, and returns the cell one step in dir
// from it. The topmost, then leftmost, occurrence wins. A label with an empty
// neighbour is still a match, with Value "".
func (wb *Workbook) FindByLabel(sheetHint, label string, dir Direction) (Match, bool) {
	sh := wb.lookup(sheetHint)
	if sh == nil || label == "" {
		return Match{}, false
	}
	for _, pos := range sh.scanOrder() {
		if !strings.Contains(stringify(sh.Cells[pos].Value), label) {
			continue
		}
		target := pos
		if dir == Right {
			target.Col++
		} else {
			target.Row++
		}
		return Match{Anchor: pos, Address: CellName(target), Value: sh.Display(target)}, true
	}
	return Match{}, false
}

// scanOrder lists populated coordinates inside the bounds in row-major order.
func (s *Sheet) scanOrder() []Coord {
	bounds := s.Bounds()
	out := make([]Coord, 0, len(s.Cells))
	for pos := range s.Cells {
		if bounds.Contains(pos) {
			out = append(out, pos)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}
