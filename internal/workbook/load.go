package workbook

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// SheetError reports a failure while reading one sheet.
type SheetError struct {
	Sheet string
	Err   error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("workbook: sheet %q: %v", e.Sheet, e.Err)
}

func (e *SheetError) Unwrap() error { return e.Err }

// Open loads the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("workbook: %w", err)
	}
	defer f.Close()
	wb, err := Load(f)
	if err != nil {
		return nil, err
	}
	wb.Name = filepath.Base(path)
	return wb, nil
}

// Load parses xlsx bytes. Formulas are not recalculated: cells carry whatever
// value and display text the authoring application cached on its last save.
func Load(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("workbook: open: %w", err)
	}
	defer f.Close()

	wb := &Workbook{}
	for _, name := range f.GetSheetList() {
		sh, err := loadSheet(f, name)
		if err != nil {
			return nil, &SheetError{Sheet: name, Err: err}
		}
		wb.Sheets = append(wb.Sheets, sh)
	}
	return wb, nil
}

func loadSheet(f *excelize.File, name string) (*Sheet, error) {
	text, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read formatted rows: %w", err)
	}
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read raw rows: %w", err)
	}

	sh := NewSheet(name)
	var extent *Range
	for r := 0; r < max(len(text), len(raw)); r++ {
		width := max(rowLen(text, r), rowLen(raw, r))
		for c := 0; c < width; c++ {
			t, v := at(text, r, c), at(raw, r, c)
			if t == "" && v == "" {
				continue
			}
			pos := Coord{Row: r, Col: c}
			sh.Cells[pos] = Cell{Value: typedValue(f, name, pos, v), Text: t}
			cell := Range{Start: pos, End: pos}
			if extent == nil {
				extent = &cell
			} else {
				grown := extent.union(cell)
				extent = &grown
			}
		}
	}

	// Declared dimensions can be stale or absent, so the populated extent
	// is always included.
	if dim, err := f.GetSheetDimension(name); err == nil && dim != "" {
		if declared, err := ParseRange(dim); err == nil {
			if extent == nil {
				extent = &declared
			} else {
				grown := extent.union(declared)
				extent = &grown
			}
		}
	}
	sh.Ref = extent
	return sh, nil
}

func typedValue(f *excelize.File, sheet string, pos Coord, raw string) any {
	if raw == "" {
		return nil
	}
	typ, err := f.GetCellType(sheet, CellName(pos))
	if err != nil {
		return raw
	}
	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || raw == "TRUE" || raw == "true"
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return raw
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return raw
}

func rowLen(rows [][]string, r int) int {
	if r >= len(rows) {
		return 0
	}
	return len(rows[r])
}

func at(rows [][]string, r, c int) string {
	if r >= len(rows) || c >= len(rows[r]) {
		return ""
	}
	return rows[r][c]
}
