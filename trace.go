package pagestate

import (
	"encoding/json"
)

// Trace captures a computed route for logging or transport helpers.
type Trace struct {
	Target string      `json:"target"`
	Cost   int         `json:"cost"`
	Steps  []StepTrace `json:"steps"`
}

// StepTrace describes one edge of a traced route.
type StepTrace struct {
	From string `json:"from"`
	To   string `json:"to"`
	Cost int    `json:"cost"`
}

// TraceFromPath serialises a computed path into a Trace.
func TraceFromPath(target string, path Path) Trace {
	steps := make([]StepTrace, 0, len(path))
	for _, step := range path {
		steps = append(steps, StepTrace{
			From: step.From.Key(),
			To:   step.To.Key(),
			Cost: step.Cost,
		})
	}
	return Trace{
		Target: target,
		Cost:   path.TotalCost(),
		Steps:  steps,
	}
}

// ToJSON serialises the trace into JSON.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
