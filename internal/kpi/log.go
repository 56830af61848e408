package kpi

import "fmt"

// Outcome records which strategy produced a value.
type Outcome string

const (
	OutcomeDirect   Outcome = "direct"
	OutcomeFallback Outcome = "fallback"
	OutcomeMiss     Outcome = "miss"
)

// LogEntry is one line of the extraction log.
type LogEntry struct {
	Field   Field   `json:"field"`
	Label   string  `json:"label"`
	Outcome Outcome `json:"outcome"`
	Address string  `json:"address,omitempty"`
	Value   string  `json:"value"`
}

func (e LogEntry) String() string {
	switch e.Outcome {
	case OutcomeDirect:
		return fmt.Sprintf("[Success] %s: %s (%s)", e.Label, e.Address, e.Value)
	case OutcomeFallback:
		return fmt.Sprintf("[Smart] %s: %s (%s)", e.Label, e.Address, e.Value)
	}
	return fmt.Sprintf("[Failed] %s: Not found", e.Label)
}

// Counts tallies outcomes across a log.
func Counts(log []LogEntry) map[Outcome]int {
	out := map[Outcome]int{}
	for _, e := range log {
		out[e.Outcome]++
	}
	return out
}
