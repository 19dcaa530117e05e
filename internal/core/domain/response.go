package domain

// PipelineResponse is the final per-question answer shape assembled by
// the orchestrator. Ephemeral.
type PipelineResponse struct {
	Answer         string     `json:"answer"`
	Citations      []Citation `json:"citations"`
	ActionTaken    Action     `json:"action_taken"`
	HasCalculation bool       `json:"has_calculation"`
	RetrievalCount int        `json:"retrieval_count"`
}
