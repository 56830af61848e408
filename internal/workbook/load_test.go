package workbook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "月次サマリー"))
	_, err := f.NewSheet("Raw")
	require.NoError(t, err)

	pct, err := f.NewStyle(&excelize.Style{NumFmt: 10}) // 0.00%
	require.NoError(t, err)

	require.NoError(t, f.SetCellValue("月次サマリー", "A1", "目標達成率"))
	require.NoError(t, f.SetCellValue("月次サマリー", "A2", 0.5))
	require.NoError(t, f.SetCellStyle("月次サマリー", "A2", "A2", pct))
	require.NoError(t, f.SetCellValue("月次サマリー", "C3", 12))
	require.NoError(t, f.SetCellValue("月次サマリー", "D4", true))
	require.NoError(t, f.SetCellValue("Raw", "B2", "検索"))

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestOpenPreservesOrderValuesAndDisplayText(t *testing.T) {
	wb, err := Open(writeFixture(t))
	require.NoError(t, err)

	assert.Equal(t, "report.xlsx", wb.Name)
	assert.Equal(t, []string{"月次サマリー", "Raw"}, wb.SheetNames())

	sh := wb.Sheet("月次サマリー")
	require.NotNil(t, sh)

	pct := sh.Cells[Coord{Row: 1, Col: 0}]
	assert.Equal(t, 0.5, pct.Value)
	assert.Equal(t, "50.00%", pct.Text)
	assert.Equal(t, "50%", wb.ReadCell("サマリー", "A2"))

	assert.Equal(t, 12.0, sh.Cells[Coord{Row: 2, Col: 2}].Value)
	assert.Equal(t, true, sh.Cells[Coord{Row: 3, Col: 3}].Value)
	assert.Equal(t, "目標達成率", sh.Cells[Coord{Row: 0, Col: 0}].Value)

	require.NotNil(t, sh.Ref)
	assert.True(t, sh.Ref.Contains(Coord{Row: 3, Col: 3}), "extent must cover populated cells, got %s", sh.Ref)

	m, ok := wb.FindByLabel("サマリー", "達成率", Below)
	require.True(t, ok)
	assert.Equal(t, "50%", m.Value)
}

func TestLoadRejectsNonWorkbook(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "garbage.xlsx")
	require.NoError(t, writeFile(path, []byte("not a zip")))
	_, err = Open(path)
	assert.ErrorContains(t, err, "workbook: open")
}

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}
