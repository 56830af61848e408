package kpi

import (
	"strconv"
	"strings"

	"github.com/KaramelBytes/adreport-cli/internal/logging"
	"github.com/KaramelBytes/adreport-cli/internal/workbook"
	"go.uber.org/zap"
)

// Result is everything one extraction produced.
type Result struct {
	Sheet  string     `json:"sheet"`
	Record Record     `json:"kpi"`
	Log    []LogEntry `json:"log"`
}

// Extractor applies a Layout to workbooks. It is safe for concurrent use.
type Extractor struct {
	layout Layout
	logger *zap.Logger
}

// NewExtractor returns an extractor for layout. A nil logger discards output.
func NewExtractor(layout Layout, logger *zap.Logger) *Extractor {
	return &Extractor{layout: layout, logger: logging.OrNop(logger)}
}

// Layout returns the schedule in use.
func (e *Extractor) Layout() Layout { return e.layout }

// SummarySheet picks the first sheet whose name contains the layout marker,
// or the first sheet when none does. An empty workbook yields "".
func (e *Extractor) SummarySheet(wb *workbook.Workbook) string {
	for _, s := range wb.Sheets {
		if strings.Contains(s.Name, e.layout.SummarySheet) {
			return s.Name
		}
	}
	if len(wb.Sheets) == 0 {
		return ""
	}
	e.logger.Debug("no summary sheet, using the first",
		zap.String("marker", e.layout.SummarySheet),
		zap.Strings("sheets", wb.SheetNames()),
	)
	return wb.Sheets[0].Name
}

// Field reads one KPI. The direct address is tried first; an empty, "0" or
// "0%" reading falls back to a label search. A label hit is returned as is,
// even when the neighbouring cell is empty.
func (e *Extractor) Field(wb *workbook.Workbook, sheet string, t Target) (string, LogEntry) {
	entry := LogEntry{Field: t.Field, Label: t.Label}
	if v := wb.ReadCell(sheet, t.Address); !untrusted(v) {
		entry.Outcome, entry.Address, entry.Value = OutcomeDirect, t.Address, v
	} else if m, ok := wb.FindByLabel(sheet, t.Label, t.Direction); ok {
		entry.Outcome, entry.Address, entry.Value = OutcomeFallback, m.Address, m.Value
	} else {
		entry.Outcome = OutcomeMiss
	}
	e.logger.Debug(entry.String(),
		zap.String("field", string(t.Field)),
		zap.String("outcome", string(entry.Outcome)),
		zap.String("address", entry.Address),
	)
	return entry.Value, entry
}

// Extract runs the whole schedule against wb. The log has one entry per
// target, in schedule order.
func (e *Extractor) Extract(wb *workbook.Workbook) Result {
	sheet := e.SummarySheet(wb)
	res := Result{Sheet: sheet, Log: make([]LogEntry, 0, len(e.layout.Targets))}
	for _, t := range e.layout.Targets {
		v, entry := e.Field(wb, sheet, t)
		if err := res.Record.Set(t.Field, v); err != nil {
			e.logger.Warn("layout target dropped", zap.String("address", t.Address), zap.Error(err))
		}
		res.Log = append(res.Log, entry)
	}
	res.Record.Breakdown = e.breakdown(wb, sheet)
	e.logger.Debug("extraction finished",
		zap.String("workbook", wb.Name),
		zap.String("sheet", sheet),
		zap.Int("misses", Counts(res.Log)[OutcomeMiss]),
	)
	return res
}

func (e *Extractor) breakdown(wb *workbook.Workbook, sheet string) string {
	bd := e.layout.Breakdown
	var items []string
	for row := bd.FirstRow; row <= bd.LastRow; row++ {
		r := strconv.Itoa(row)
		name := wb.ReadCell(sheet, bd.NameColumn+r)
		count := wb.ReadCell(sheet, bd.CountColumn+r)
		if name == "" || count == "" || count == "0" {
			continue
		}
		items = append(items, name+count+bd.Unit)
	}
	return strings.Join(items, bd.Separator)
}
