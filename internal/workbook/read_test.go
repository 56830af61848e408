package workbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sheetWith(t *testing.T, name string, cells map[string]Cell) *Sheet {
	t.Helper()
	sh := NewSheet(name)
	for addr, c := range cells {
		require.NoError(t, sh.Set(addr, c))
	}
	return sh
}

func TestResolveSheetFirstContainingMatchWins(t *testing.T) {
	wb := New("book.xlsx",
		NewSheet("  月次サマリー  "),
		NewSheet("週次サマリー"),
		NewSheet("Data"),
	)
	assert.Equal(t, "  月次サマリー  ", wb.ResolveSheet("サマリー"))
	assert.Equal(t, "Data", wb.ResolveSheet("Dat"))
	assert.Equal(t, "missing", wb.ResolveSheet("missing"))
}

func TestReadCell(t *testing.T) {
	wb := New("book.xlsx", sheetWith(t, "サマリー", map[string]Cell{
		"E8":  {Value: 1.2, Text: "120.00%"},
		"R8":  {Value: 12.0},
		"AT8": {Value: "3,450.50円"},
	}))

	assert.Equal(t, "120%", wb.ReadCell("サマリー", "E8"))
	assert.Equal(t, "12", wb.ReadCell("サマリー", "R8"))
	assert.Equal(t, "3,450.5円", wb.ReadCell("サマ", "AT8"))
	assert.Equal(t, "", wb.ReadCell("サマリー", "Z99"), "absent cell")
	assert.Equal(t, "", wb.ReadCell("Other", "E8"), "absent sheet")
	assert.Equal(t, "", wb.ReadCell("サマリー", "not-an-address"))
}

func TestFindByLabelBelowAndRight(t *testing.T) {
	wb := New("book.xlsx", sheetWith(t, "Sheet1", map[string]Cell{
		"B3": {Value: "コンバージョン数"},
		"B4": {Value: 42.0, Text: "42.00"},
		"D6": {Value: "クリック率"},
		"E6": {Value: 0.031, Text: "3.10%"},
	}))

	m, ok := wb.FindByLabel("Sheet1", "コンバージョン", Below)
	require.True(t, ok)
	assert.Equal(t, "B4", m.Address)
	assert.Equal(t, "42", m.Value)
	assert.Equal(t, Coord{Row: 2, Col: 1}, m.Anchor)

	m, ok = wb.FindByLabel("Sheet1", "クリック率", Right)
	require.True(t, ok)
	assert.Equal(t, "E6", m.Address)
	assert.Equal(t, "3.1%", m.Value)

	_, ok = wb.FindByLabel("Sheet1", "目標値", Below)
	assert.False(t, ok)
	_, ok = wb.FindByLabel("Nope", "クリック率", Below)
	assert.False(t, ok)
	_, ok = wb.FindByLabel("Sheet1", "", Below)
	assert.False(t, ok)
}

func TestFindByLabelScanOrderIsRowMajor(t *testing.T) {
	wb := New("book.xlsx", sheetWith(t, "S", map[string]Cell{
		"C2": {Value: "目標値 (right)"},
		"C3": {Value: "right"},
		"A5": {Value: "目標値 (left, lower)"},
		"A6": {Value: "lower"},
		"B2": {Value: "目標値 (left, top)"},
		"B3": {Value: "top-left"},
	}))
	m, ok := wb.FindByLabel("S", "目標値", Below)
	require.True(t, ok)
	assert.Equal(t, "B3", m.Address)
	assert.Equal(t, "top-left", m.Value)
}

func TestFindByLabelEmptyNeighbourIsStillAMatch(t *testing.T) {
	wb := New("book.xlsx", sheetWith(t, "S", map[string]Cell{
		"A1": {Value: "目標達成率"},
	}))
	m, ok := wb.FindByLabel("S", "目標達成率", Below)
	require.True(t, ok)
	assert.Equal(t, "A2", m.Address)
	assert.Equal(t, "", m.Value)
}

func TestFindByLabelRespectsBounds(t *testing.T) {
	sh := sheetWith(t, "S", map[string]Cell{
		"AB3": {Value: "クリック率"},
		"AB4": {Value: "2%"},
	})
	wb := New("book.xlsx", sh)
	_, ok := wb.FindByLabel("S", "クリック率", Below)
	assert.False(t, ok, "column AB is outside the default A1:Z100 scan")

	wide, err := ParseRange("A1:AZ10")
	require.NoError(t, err)
	sh.Ref = &wide
	m, ok := wb.FindByLabel("S", "クリック率", Below)
	require.True(t, ok)
	assert.Equal(t, "2%", m.Value)
}

func TestFindByLabelMatchesRawNumbers(t *testing.T) {
	wb := New("book.xlsx", sheetWith(t, "S", map[string]Cell{
		"A1": {Value: 2024.0, Text: "2024年"},
		"A2": {Value: "ok"},
	}))
	m, ok := wb.FindByLabel("S", "2024", Below)
	require.True(t, ok)
	assert.Equal(t, "ok", m.Value)
	_, ok = wb.FindByLabel("S", "年", Below)
	assert.False(t, ok, "labels match the raw value, not the display text")
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("bottom")
	require.NoError(t, err)
	assert.Equal(t, Below, d)
	d, err = ParseDirection("Right")
	require.NoError(t, err)
	assert.Equal(t, Right, d)
	_, err = ParseDirection("up")
	assert.Error(t, err)
}
