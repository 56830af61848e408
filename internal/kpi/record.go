// Package kpi pulls the monthly advertising KPIs out of a report workbook.
//
// Every value is kept as the display string a person would read in the
// sheet. Nothing here converts to numbers; ParseNumber exists for callers
// that need arithmetic.
package kpi

import "fmt"

// Field names one KPI slot of a Record.
type Field string

const (
	Achievement        Field = "achievement"
	TotalConversions   Field = "totalCV"
	ConversionRate     Field = "cvr"
	CostPerAcquisition Field = "cpa"
	ClickThroughRate   Field = "ctr"
	GoalConversions    Field = "goal"
)

// Fields lists the scalar KPI slots in report order.
var Fields = []Field{
	Achievement,
	TotalConversions,
	ConversionRate,
	CostPerAcquisition,
	ClickThroughRate,
	GoalConversions,
}

// Valid reports whether f is a known slot.
func (f Field) Valid() bool {
	for _, k := range Fields {
		if f == k {
			return true
		}
	}
	return false
}

// Record is one month's KPIs as display strings. An empty string means the
// value could not be found.
type Record struct {
	Achievement        string `json:"achievement"`
	TotalConversions   string `json:"totalCV"`
	ConversionRate     string `json:"cvr"`
	CostPerAcquisition string `json:"cpa"`
	ClickThroughRate   string `json:"ctr"`
	GoalConversions    string `json:"goal"`
	Breakdown          string `json:"cvBreakdown"`
}

// Get returns the value stored for f.
func (r Record) Get(f Field) string {
	switch f {
	case Achievement:
		return r.Achievement
	case TotalConversions:
		return r.TotalConversions
	case ConversionRate:
		return r.ConversionRate
	case CostPerAcquisition:
		return r.CostPerAcquisition
	case ClickThroughRate:
		return r.ClickThroughRate
	case GoalConversions:
		return r.GoalConversions
	}
	return ""
}

// Set stores v in the slot for f.
func (r *Record) Set(f Field, v string) error {
	switch f {
	case Achievement:
		r.Achievement = v
	case TotalConversions:
		r.TotalConversions = v
	case ConversionRate:
		r.ConversionRate = v
	case CostPerAcquisition:
		r.CostPerAcquisition = v
	case ClickThroughRate:
		r.ClickThroughRate = v
	case GoalConversions:
		r.GoalConversions = v
	default:
		return fmt.Errorf("kpi: unknown field %q", f)
	}
	return nil
}

// untrusted reports whether a read value should not be taken at face value.
// Freshly exported reports show 0 until the workbook is recalculated.
func untrusted(v string) bool {
	return v == "" || v == "0" || v == "0%"
}
