// Package workbook is a read-only, in-memory view of an .xlsx workbook. Each
// cell keeps its raw value next to the display text the authoring application
// last rendered, because KPI sheets are read the way a person sees them.
package workbook

import (
	"fmt"
	"strconv"
	"time"
)

// Coord is a zero-based (row, column) position.
type Coord struct {
	Row int
	Col int
}

// Range is an inclusive rectangle of cells.
type Range struct {
	Start Coord
	End   Coord
}

// DefaultRange is scanned when a sheet declares no populated range (A1:Z100).
var DefaultRange = Range{Start: Coord{0, 0}, End: Coord{99, 25}}

// Contains reports whether c lies inside r.
func (r Range) Contains(c Coord) bool {
	return c.Row >= r.Start.Row && c.Row <= r.End.Row &&
		c.Col >= r.Start.Col && c.Col <= r.End.Col
}

// String renders the range as "A1:Z100".
func (r Range) String() string {
	return CellName(r.Start) + ":" + CellName(r.End)
}

func (r Range) union(o Range) Range {
	return Range{
		Start: Coord{Row: min(r.Start.Row, o.Start.Row), Col: min(r.Start.Col, o.Start.Col)},
		End:   Coord{Row: max(r.End.Row, o.End.Row), Col: max(r.End.Col, o.End.Col)},
	}
}

// Cell holds a raw value (float64, string, bool or time.Time) and the
// optional pre-formatted display text.
type Cell struct {
	Value any
	Text  string
}

// Display prefers the pre-formatted text and falls back to the raw value.
func (c Cell) Display() string {
	if c.Text != "" {
		return c.Text
	}
	return stringify(c.Value)
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return fmt.Sprint(x)
	}
}

// Sheet is a sparse grid of cells plus the declared populated range.
type Sheet struct {
	Name  string
	Cells map[Coord]Cell
	// Ref is nil when the sheet declares no range; see Bounds.
	Ref *Range
}

// NewSheet returns an empty sheet.
func NewSheet(name string) *Sheet {
	return &Sheet{Name: name, Cells: make(map[Coord]Cell)}
}

// Set stores a cell at an "A1"-style address.
func (s *Sheet) Set(address string, c Cell) error {
	pos, err := ParseCellName(address)
	if err != nil {
		return err
	}
	s.Cells[pos] = c
	return nil
}

// Bounds returns the declared range, or DefaultRange when none is declared.
func (s *Sheet) Bounds() Range {
	if s.Ref != nil {
		return *s.Ref
	}
	return DefaultRange
}

// Display returns the normalized display value at c, or "" when absent.
func (s *Sheet) Display(c Coord) string {
	cell, ok := s.Cells[c]
	if !ok {
		return ""
	}
	return NormalizeDisplay(cell.Display())
}

// Workbook is an ordered collection of sheets. It is built once per load
// and never mutated afterwards.
type Workbook struct {
	Name   string
	Sheets []*Sheet
}

// New assembles a workbook from sheets in authored order.
func New(name string, sheets ...*Sheet) *Workbook {
	return &Workbook{Name: name, Sheets: sheets}
}

// SheetNames lists sheet names in authored order.
func (wb *Workbook) SheetNames() []string {
	names := make([]string, 0, len(wb.Sheets))
	for _, s := range wb.Sheets {
		names = append(names, s.Name)
	}
	return names
}

// Sheet returns the sheet with exactly this name, or nil.
func (wb *Workbook) Sheet(name string) *Sheet {
	for _, s := range wb.Sheets {
		if s.Name == name {
			return s
		}
	}
	return nil
}
