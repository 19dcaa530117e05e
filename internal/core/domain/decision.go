package domain

type Action string

const (
	ActionRetrieve Action = "retrieve"
	ActionCompute  Action = "compute"
	ActionBoth     Action = "both"
	ActionError    Action = "error"
)

// ParamNames are the calculator parameters the decision stage extracts
// from a question. Absent values stay nil.
var ParamNames = []string{"B", "Df", "gamma", "phi", "load", "E"}

// Params maps a calculator parameter name to its extracted value,
// or nil when the question does not carry it.
type Params map[string]*float64

// EmptyParams returns a Params with every known name set to nil.
func EmptyParams() Params {
	p := make(Params, len(ParamNames))
	for _, name := range ParamNames {
		p[name] = nil
	}
	return p
}

// Value returns the parameter value and whether it is present (non-nil).
func (p Params) Value(name string) (float64, bool) {
	v, ok := p[name]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// DecisionOutcome is the routing decision for one question.
// Produced per question, never persisted.
type DecisionOutcome struct {
	Action    Action `json:"action"`
	Params    Params `json:"params"`
	Reasoning string `json:"reasoning"`
}

// NeedsRetrieval reports whether the decided action includes knowledge search.
func (d DecisionOutcome) NeedsRetrieval() bool {
	return d.Action == ActionRetrieve || d.Action == ActionBoth
}

// NeedsComputation reports whether the decided action includes a calculation.
func (d DecisionOutcome) NeedsComputation() bool {
	return d.Action == ActionCompute || d.Action == ActionBoth
}
