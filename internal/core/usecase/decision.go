package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dosipov/geotech-qa/internal/core/domain"
	"github.com/dosipov/geotech-qa/internal/core/ports"
)

// Question vocabulary that signals numeric input worth routing to a
// calculator.
var numericalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d+\.?\d*\s*(kPa|kN/m²|kN/m2|m|mm|cm|degrees?|°)\b`),
	regexp.MustCompile(`(?i)\b\d+\.?\d*\s*(B|Df|gamma|γ|phi|φ|load|E|E_s)\b`),
	regexp.MustCompile(`(?i)\b\d+\.?\d*\s*(width|depth|thickness|diameter)\b`),
	regexp.MustCompile(`(?i)\b\d+\.?\d*\s*(foundation|footing|pile|wall)\b`),
}

// DecisionStage classifies a question into retrieve/compute/both and
// extracts any calculator parameters it carries. It never fails: every
// error path resolves to a deterministic fallback outcome.
type DecisionStage struct {
	generator ports.TextGenerator
	logger    *slog.Logger
}

func NewDecisionStage(generator ports.TextGenerator, logger *slog.Logger) *DecisionStage {
	return &DecisionStage{generator: generator, logger: logger}
}

func (s *DecisionStage) Analyze(ctx context.Context, question string) domain.DecisionOutcome {
	hasNumerical := hasNumericalData(question)

	if !s.generator.Configured() {
		s.logger.Warn("decision_fallback", "reason", "generator not configured")
		return fallbackOutcome(hasNumerical)
	}

	raw, err := s.generator.Generate(ctx, buildDecisionPrompt(question, hasNumerical))
	if err != nil {
		s.logger.Error("decision_generate_failed", "error", err)
		return fallbackOutcome(hasNumerical)
	}

	if outcome, ok := parseDecisionJSON(raw); ok {
		s.logger.Info("decision_parsed", "action", outcome.Action)
		return outcome
	}

	if action, ok := scanActionWords(raw); ok {
		s.logger.Info("decision_scanned", "action", action)
		return domain.DecisionOutcome{
			Action:    action,
			Params:    domain.EmptyParams(),
			Reasoning: "extracted action keyword from model text",
		}
	}

	s.logger.Warn("decision_fallback", "reason", "unparseable model output")
	return fallbackOutcome(hasNumerical)
}

func hasNumericalData(question string) bool {
	for _, pattern := range numericalPatterns {
		if pattern.MatchString(question) {
			return true
		}
	}
	return false
}

func fallbackOutcome(hasNumerical bool) domain.DecisionOutcome {
	action := domain.ActionRetrieve
	if hasNumerical {
		action = domain.ActionBoth
	}
	return domain.DecisionOutcome{
		Action:    action,
		Params:    domain.EmptyParams(),
		Reasoning: fmt.Sprintf("fallback analysis: has_numerical=%t", hasNumerical),
	}
}

func buildDecisionPrompt(question string, hasNumerical bool) string {
	return fmt.Sprintf(`You are a geotechnical engineering expert. Analyze the question below and output only valid JSON.

Follow these rules:
- action: "retrieve", "compute", or "both"
- params: include any identified numerical parameters (B, Df, gamma, phi, load, E). Use null if not present.
- reasoning: brief explanation
- No extra text, no markdown, only JSON

Examples:

Question: "What is Terzaghi's bearing capacity equation?"
Contains numerical data: false
Expected JSON:
{"action": "retrieve", "params": {"B": null, "Df": null, "gamma": null, "phi": null, "load": null, "E": null}, "reasoning": "Theoretical question"}

Question: "Calculate settlement for load=100 kN and E=20000 kPa"
Contains numerical data: true
Expected JSON:
{"action": "compute", "params": {"B": null, "Df": null, "gamma": null, "phi": null, "load": 100, "E": 20000}, "reasoning": "Contains numerical data, calculation requested"}

Question: %q
Contains numerical data: %t
Expected JSON:
`, question, hasNumerical)
}

// parseDecisionJSON strips code fences, cuts the substring between the
// first '{' and the last '}' and attempts a strict decode.
func parseDecisionJSON(raw string) (domain.DecisionOutcome, bool) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return domain.DecisionOutcome{}, false
	}
	cleaned = cleaned[start : end+1]

	var parsed struct {
		Action    string              `json:"action"`
		Params    map[string]*float64 `json:"params"`
		Reasoning string              `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return domain.DecisionOutcome{}, false
	}

	action := domain.Action(strings.ToLower(strings.TrimSpace(parsed.Action)))
	switch action {
	case domain.ActionRetrieve, domain.ActionCompute, domain.ActionBoth:
	default:
		return domain.DecisionOutcome{}, false
	}

	params := domain.EmptyParams()
	for _, name := range domain.ParamNames {
		if v, ok := parsed.Params[name]; ok && v != nil {
			value := *v
			params[name] = &value
		}
	}

	return domain.DecisionOutcome{
		Action:    action,
		Params:    params,
		Reasoning: parsed.Reasoning,
	}, true
}

func scanActionWords(raw string) (domain.Action, bool) {
	lower := strings.ToLower(raw)
	hasRetrieve := strings.Contains(lower, "retrieve")
	hasCompute := strings.Contains(lower, "compute")
	switch {
	case hasRetrieve && hasCompute:
		return domain.ActionBoth, true
	case hasRetrieve:
		return domain.ActionRetrieve, true
	case hasCompute:
		return domain.ActionCompute, true
	default:
		return "", false
	}
}
