package ai

import "sort"

// ModelInfo holds the numbers used for dry-run cost estimates.
// Prices are list prices per 1K tokens in USD and drift over time.
type ModelInfo struct {
	Name          string
	ContextTokens int
	InputPerK     float64
	OutputPerK    float64
}

var models = map[string]ModelInfo{
	"gemini-2.5-flash": {
		Name:          "gemini-2.5-flash",
		ContextTokens: 1048576,
		InputPerK:     0.0003,
		OutputPerK:    0.0025,
	},
	"gemini-2.5-flash-lite": {
		Name:          "gemini-2.5-flash-lite",
		ContextTokens: 1048576,
		InputPerK:     0.0001,
		OutputPerK:    0.0004,
	},
	"gemini-2.5-pro": {
		Name:          "gemini-2.5-pro",
		ContextTokens: 1048576,
		InputPerK:     0.00125,
		OutputPerK:    0.01,
	},
	"gemini-2.0-flash": {
		Name:          "gemini-2.0-flash",
		ContextTokens: 1048576,
		InputPerK:     0.0001,
		OutputPerK:    0.0004,
	},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// ModelNames lists known models alphabetically.
func ModelNames() []string {
	out := make([]string, 0, len(models))
	for k := range models {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
