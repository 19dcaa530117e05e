package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/dosipov/geotech-qa/internal/core/domain"
	"github.com/dosipov/geotech-qa/internal/core/ports"
)

const degradedAnswer = "I apologize, but I encountered an error while processing your question. Please try again."

const defaultTopK = 3

// PipelineMetrics is what the orchestrator records about each run.
type PipelineMetrics interface {
	RecordPipeline(service, action string, retrieved int, duration time.Duration)
	RecordDegraded(service, stage string)
}

type noopMetrics struct{}

func (noopMetrics) RecordPipeline(string, string, int, time.Duration) {}
func (noopMetrics) RecordDegraded(string, string)                     {}

// Orchestrator sequences decision, retrieval, computation and
// synthesis. It is the single boundary where failures become a
// well-formed degraded response instead of an error: Ask never fails.
type Orchestrator struct {
	service   string
	decision  *DecisionStage
	searcher  ports.KnowledgeSearcher
	compute   *ComputeDispatch
	synthesis *SynthesisStage
	topK      int
	metrics   PipelineMetrics
	logger    *slog.Logger
}

func NewOrchestrator(
	service string,
	decision *DecisionStage,
	searcher ports.KnowledgeSearcher,
	compute *ComputeDispatch,
	synthesis *SynthesisStage,
	topK int,
	metrics PipelineMetrics,
	logger *slog.Logger,
) *Orchestrator {
	if topK <= 0 {
		topK = defaultTopK
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Orchestrator{
		service:   service,
		decision:  decision,
		searcher:  searcher,
		compute:   compute,
		synthesis: synthesis,
		topK:      topK,
		metrics:   metrics,
		logger:    logger,
	}
}

func (o *Orchestrator) Ask(ctx context.Context, question string) (response domain.PipelineResponse) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline_panic", "panic", r)
			o.metrics.RecordDegraded(o.service, "orchestrator")
			response = degradedResponse()
		}
		o.metrics.RecordPipeline(o.service, string(response.ActionTaken), response.RetrievalCount, time.Since(start))
	}()

	o.logger.Info("pipeline_started", "question_length", len(question))

	outcome := o.decision.Analyze(ctx, question)
	o.logger.Info("pipeline_decision", "action", outcome.Action, "reasoning", outcome.Reasoning)

	var results []domain.SearchResult
	if outcome.NeedsRetrieval() {
		found, err := o.searcher.Search(ctx, question, o.topK)
		if err != nil {
			// Missing index artifacts or embedding failure: the run
			// continues without retrieval context.
			o.logger.Error("pipeline_retrieval_failed", "error", err)
			o.metrics.RecordDegraded(o.service, "retrieval")
		} else {
			results = found
		}
	}

	var computeResult *domain.ComputeResult
	if outcome.NeedsComputation() {
		computeResult = o.compute.Dispatch(outcome)
	}

	answer, citations := o.synthesis.Synthesize(ctx, question, results, computeResult, outcome.Action)

	response = domain.PipelineResponse{
		Answer:         answer,
		Citations:      citations,
		ActionTaken:    outcome.Action,
		HasCalculation: computeResult != nil,
		RetrievalCount: len(results),
	}

	o.logger.Info("pipeline_completed",
		"action", response.ActionTaken,
		"answer_length", len(response.Answer),
		"citations", len(response.Citations),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return response
}

func degradedResponse() domain.PipelineResponse {
	return domain.PipelineResponse{
		Answer:         degradedAnswer,
		Citations:      []domain.Citation{},
		ActionTaken:    domain.ActionError,
		HasCalculation: false,
		RetrievalCount: 0,
	}
}
