package domain

const (
	CalcTerzaghi   = "terzaghi"
	CalcSettlement = "settlement"
)

// CalcOutput is what a calculator produces: the named numeric result
// plus a human-readable derivation.
type CalcOutput struct {
	Value   float64            `json:"value"`
	Units   string             `json:"units"`
	Formula string             `json:"formula"`
	Inputs  map[string]float64 `json:"inputs"`
	Factors map[string]float64 `json:"factors,omitempty"`
	Steps   []string           `json:"steps"`
	Notes   []string           `json:"notes,omitempty"`
}

// ComputeResult pairs a calculator run with the decision parameters
// that triggered it. Produced per question when the action includes
// computation.
type ComputeResult struct {
	CalcType   string     `json:"calc_type"`
	Result     CalcOutput `json:"result"`
	Parameters Params     `json:"parameters"`
}
