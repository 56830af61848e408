package kpi

import (
	"strconv"
	"strings"
)

// Number is a KPI display string split into magnitude and unit.
// "120%" parses to {120, "%"}, not 1.2.
type Number struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

var units = []string{"%", "円", "件"}

// ParseNumber reads display strings such as "1,234円", "¥3,450.5", "3.1%"
// or "12件". Thousands separators (comma, NBSP, ideographic space) are
// dropped. It reports false for anything that is not a single number.
func ParseNumber(s string) (Number, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimLeft(raw, "¥￥")
	var n Number
	for _, u := range units {
		if strings.HasSuffix(raw, u) {
			n.Unit = u
			raw = strings.TrimSpace(strings.TrimSuffix(raw, u))
			break
		}
	}
	raw = strings.NewReplacer(",", "", " ", "", "　", "", " ", "").Replace(raw)
	if raw == "" {
		return Number{}, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Number{}, false
	}
	n.Value = f
	return n, true
}

// Numbers parses every scalar field that holds a single number. Empty and
// unparseable fields are left out.
func (r Record) Numbers() map[Field]Number {
	out := make(map[Field]Number, len(Fields))
	for _, f := range Fields {
		if n, ok := ParseNumber(r.Get(f)); ok {
			out[f] = n
		}
	}
	return out
}
