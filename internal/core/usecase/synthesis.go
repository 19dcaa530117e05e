package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dosipov/geotech-qa/internal/core/domain"
	"github.com/dosipov/geotech-qa/internal/core/ports"
)

// Chunks longer than this are truncated in the synthesis context,
// unless they carry an equation-like marker.
const chunkContextLimit = 500

// SynthesisStage turns retrieval and computation results into the
// final answer plus citations. Like the decision stage it never fails:
// without a configured generator it emits a canned, task-specific
// answer.
type SynthesisStage struct {
	generator ports.TextGenerator
	logger    *slog.Logger
}

func NewSynthesisStage(generator ports.TextGenerator, logger *slog.Logger) *SynthesisStage {
	return &SynthesisStage{generator: generator, logger: logger}
}

func (s *SynthesisStage) Synthesize(
	ctx context.Context,
	question string,
	results []domain.SearchResult,
	compute *domain.ComputeResult,
	action domain.Action,
) (string, []domain.Citation) {
	contextText := buildSynthesisContext(question, results, compute, action)
	citations := extractCitations(results)

	if !s.generator.Configured() {
		s.logger.Warn("synthesis_fallback", "reason", "generator not configured")
		return cannedAnswer(question, contextText, action), citations
	}

	answer, err := s.generator.Generate(ctx, buildSynthesisPrompt(contextText, action))
	if err != nil {
		s.logger.Error("synthesis_generate_failed", "error", err)
		return cannedAnswer(question, contextText, action), citations
	}

	answer = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(answer), "Answer:"))
	s.logger.Info("synthesis_completed", "answer_length", len(answer), "citations", len(citations))
	return answer, citations
}

func buildSynthesisContext(
	question string,
	results []domain.SearchResult,
	compute *domain.ComputeResult,
	action domain.Action,
) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Question: %s\n", question))

	switch action {
	case domain.ActionCompute:
		parts = append(parts, "TASK: Focus on calculation results.", "")
	case domain.ActionBoth:
		parts = append(parts, "TASK: Use both knowledge base and calculation results.", "")
	}

	if len(results) > 0 && (action == domain.ActionRetrieve || action == domain.ActionBoth) {
		parts = append(parts, "Relevant Knowledge Base Information:")
		ordered := results
		if action == domain.ActionBoth {
			ordered = prioritizeFormulaChunks(results)
		}
		for i, result := range ordered {
			if i >= 2 {
				break
			}
			content := result.Content
			if !containsFormulaMarker(content) && len(content) > chunkContextLimit {
				content = truncateRunes(content, chunkContextLimit)
			}
			parts = append(parts, fmt.Sprintf("%d. From %s (chunk_id: %s): %s", i+1, result.Source, result.ChunkID, content))
		}
		parts = append(parts, "")
	}

	if compute != nil && (action == domain.ActionCompute || action == domain.ActionBoth) {
		parts = append(parts, "Calculation Results:")
		switch compute.CalcType {
		case domain.CalcTerzaghi:
			parts = append(parts,
				fmt.Sprintf("Terzaghi Bearing Capacity: %.2f kPa", compute.Result.Value),
				fmt.Sprintf("Formula: %s", compute.Result.Formula),
				fmt.Sprintf("Factors: Nq=%.2f, Nr=%.2f", compute.Result.Factors["Nq"], compute.Result.Factors["Nr"]),
			)
		case domain.CalcSettlement:
			parts = append(parts,
				fmt.Sprintf("Settlement: %.3f mm", compute.Result.Value),
				fmt.Sprintf("Formula: %s", compute.Result.Formula),
			)
		}
		parts = append(parts, "")
	}

	return strings.Join(parts, "\n")
}

// truncateRunes cuts s to at most limit bytes without splitting a
// multi-byte rune such as γ or φ.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// prioritizeFormulaChunks moves chunks carrying equation-like markers
// ahead of the rest, preserving relative order within each group.
func prioritizeFormulaChunks(results []domain.SearchResult) []domain.SearchResult {
	formula := make([]domain.SearchResult, 0, len(results))
	other := make([]domain.SearchResult, 0, len(results))
	for _, result := range results {
		if containsFormulaMarker(result.Content) {
			formula = append(formula, result)
		} else {
			other = append(other, result)
		}
	}
	return append(formula, other...)
}

func containsFormulaMarker(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "q_ult") ||
		strings.Contains(lower, "=") ||
		strings.Contains(lower, "equation")
}

func buildSynthesisPrompt(contextText string, action domain.Action) string {
	var instructions string
	switch action {
	case domain.ActionRetrieve:
		instructions = `Instructions:
- Answer based on knowledge base information only
- Keep response concise (under 150 words)
- Use simple, clear language
- No prefixes like "Answer:" or "Based on"`
	case domain.ActionCompute:
		instructions = `Instructions:
- Focus on the calculation result and key formula
- Keep response concise (under 150 words)
- Show the main result and what it means
- No prefixes like "Answer:" or "Based on"`
	case domain.ActionBoth:
		instructions = `Instructions:
- Combine knowledge base info with calculation results
- Keep response concise (under 150 words)
- Focus on practical application
- No prefixes like "Answer:" or "Based on"`
	default:
		instructions = `Instructions:
- Answer directly and clearly
- Keep response concise (under 150 words)
- Use simple language
- No prefixes like "Answer:" or "Based on"`
	}

	return fmt.Sprintf("You are a geotechnical engineering expert. Answer the question concisely.\n\n%s\n\n%s\n\nAnswer:\n", contextText, instructions)
}

func cannedAnswer(question, contextText string, action domain.Action) string {
	switch action {
	case domain.ActionCompute:
		switch {
		case strings.Contains(contextText, "Settlement:"):
			return "The settlement has been calculated using the elastic settlement formula. The result shows the expected vertical deformation under the applied load."
		case strings.Contains(contextText, "Terzaghi Bearing Capacity:"):
			return "The ultimate bearing capacity has been calculated using Terzaghi's equation. This represents the maximum load the foundation can support."
		default:
			return "A calculation has been performed based on the provided parameters. The results show the calculated values for your specific case."
		}
	case domain.ActionRetrieve:
		lower := strings.ToLower(question)
		switch {
		case strings.Contains(strings.ToUpper(question), "CPT"):
			return "CPT (Cone Penetration Test) is a geotechnical investigation method that determines soil properties by pushing a cone-shaped probe into the ground and measuring resistance."
		case strings.Contains(lower, "bearing capacity"):
			return "Bearing capacity is the maximum load a foundation can support without failure. It depends on soil properties, foundation geometry, and loading conditions."
		case strings.Contains(lower, "settlement"):
			return "Settlement is the vertical deformation of soil under applied loads. It can be immediate (elastic) or long-term (consolidation)."
		default:
			return "This is a geotechnical engineering question. Please provide more specific details about your inquiry."
		}
	default:
		return "This question involves both theoretical knowledge and practical calculations in geotechnical engineering."
	}
}

// extractCitations returns one citation per result that carries both a
// usable source and a chunk id. Anything else is dropped silently.
func extractCitations(results []domain.SearchResult) []domain.Citation {
	citations := make([]domain.Citation, 0, len(results))
	for _, result := range results {
		if result.Source == "" || result.Source == "unknown" || result.ChunkID == "" {
			continue
		}
		citations = append(citations, domain.Citation{
			Source:     result.Source + ".md",
			Confidence: result.Confidence,
			ChunkID:    result.ChunkID,
		})
	}
	return citations
}
