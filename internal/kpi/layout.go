package kpi

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/adreport-cli/internal/workbook"
	"gopkg.in/yaml.v3"
)

// Target says where a KPI normally lives and how to find it if it moved.
type Target struct {
	Field     Field              `yaml:"field"`
	Address   string             `yaml:"address"`
	Label     string             `yaml:"label"`
	Direction workbook.Direction `yaml:"direction"`
}

// BreakdownLayout describes the per-channel conversion table. Rows are
// 1-based, as shown in the spreadsheet.
type BreakdownLayout struct {
	FirstRow    int    `yaml:"first_row"`
	LastRow     int    `yaml:"last_row"`
	NameColumn  string `yaml:"name_column"`
	CountColumn string `yaml:"count_column"`
	Separator   string `yaml:"separator"`
	Unit        string `yaml:"unit"`
}

// Layout is the full extraction schedule for one report template.
type Layout struct {
	SummarySheet string          `yaml:"summary_sheet"`
	Targets      []Target        `yaml:"targets"`
	Breakdown    BreakdownLayout `yaml:"breakdown"`
}

// DefaultLayout is the monthly summary template exported by the ad console.
func DefaultLayout() Layout {
	return Layout{
		SummarySheet: "サマリー",
		Targets: []Target{
			{Field: Achievement, Address: "E8", Label: "目標達成率"},
			{Field: TotalConversions, Address: "R8", Label: "コンバージョン数"},
			{Field: ConversionRate, Address: "AF8", Label: "コンバージョン率"},
			{Field: CostPerAcquisition, Address: "AT8", Label: "コンバージョン単価"},
			{Field: ClickThroughRate, Address: "AF19", Label: "クリック率"},
			{Field: GoalConversions, Address: "BH38", Label: "目標値"},
		},
		Breakdown: BreakdownLayout{
			FirstRow:    10,
			LastRow:     15,
			NameColumn:  "R",
			CountColumn: "Z",
			Separator:   "・",
			Unit:        "件",
		},
	}
}

// LoadLayout reads a YAML override. Keys left out keep their default value;
// a targets list, when present, replaces the default schedule entirely.
func LoadLayout(path string) (Layout, error) {
	l := DefaultLayout()
	b, err := os.ReadFile(path)
	if err != nil {
		return l, fmt.Errorf("read layout: %w", err)
	}
	var over Layout
	if err := yaml.Unmarshal(b, &over); err != nil {
		return l, fmt.Errorf("parse layout %s: %w", path, err)
	}
	if over.SummarySheet != "" {
		l.SummarySheet = over.SummarySheet
	}
	if len(over.Targets) > 0 {
		l.Targets = over.Targets
	}
	bd := over.Breakdown
	if bd.FirstRow > 0 {
		l.Breakdown.FirstRow = bd.FirstRow
	}
	if bd.LastRow > 0 {
		l.Breakdown.LastRow = bd.LastRow
	}
	if bd.NameColumn != "" {
		l.Breakdown.NameColumn = bd.NameColumn
	}
	if bd.CountColumn != "" {
		l.Breakdown.CountColumn = bd.CountColumn
	}
	if bd.Separator != "" {
		l.Breakdown.Separator = bd.Separator
	}
	if bd.Unit != "" {
		l.Breakdown.Unit = bd.Unit
	}
	if err := l.Validate(); err != nil {
		return l, fmt.Errorf("layout %s: %w", path, err)
	}
	return l, nil
}

// Validate checks addresses, columns and row bounds.
func (l Layout) Validate() error {
	seen := map[Field]bool{}
	for _, t := range l.Targets {
		if !t.Field.Valid() {
			return fmt.Errorf("unknown field %q", t.Field)
		}
		if seen[t.Field] {
			return fmt.Errorf("field %q listed twice", t.Field)
		}
		seen[t.Field] = true
		if _, err := workbook.ParseCellName(t.Address); err != nil {
			return err
		}
	}
	bd := l.Breakdown
	if bd.FirstRow < 1 || bd.LastRow < bd.FirstRow {
		return fmt.Errorf("breakdown rows %d..%d are not a valid range", bd.FirstRow, bd.LastRow)
	}
	if _, err := workbook.ColumnIndex(bd.NameColumn); err != nil {
		return err
	}
	if _, err := workbook.ColumnIndex(bd.CountColumn); err != nil {
		return err
	}
	return nil
}
