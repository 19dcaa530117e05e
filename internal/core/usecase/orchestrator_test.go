package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dosipov/geotech-qa/internal/core/domain"
	"github.com/dosipov/geotech-qa/internal/infrastructure/calculators"
)

type searcherFake struct {
	results     []domain.SearchResult
	err         error
	panicSearch bool
	calls       int
}

func (s *searcherFake) Search(_ context.Context, _ string, _ int) ([]domain.SearchResult, error) {
	s.calls++
	if s.panicSearch {
		panic("index corrupted")
	}
	return s.results, s.err
}

func (s *searcherFake) IsInitialized() bool { return true }

type metricsFake struct {
	pipelines int
	degraded  []string
}

func (m *metricsFake) RecordPipeline(_, _ string, _ int, _ time.Duration) { m.pipelines++ }
func (m *metricsFake) RecordDegraded(_, stage string)                     { m.degraded = append(m.degraded, stage) }

func newOrchestrator(gen *generatorFake, searcher *searcherFake, metrics *metricsFake) *Orchestrator {
	logger := testLogger()
	return NewOrchestrator(
		"test",
		NewDecisionStage(gen, logger),
		searcher,
		NewComputeDispatch("test", nil, logger, calculators.NewBearing(), calculators.NewSettlement()),
		NewSynthesisStage(gen, logger),
		3,
		metrics,
		logger,
	)
}

func TestAskTheoreticalQuestionRetrievesOnly(t *testing.T) {
	searcher := &searcherFake{results: []domain.SearchResult{
		{ChunkID: "cpt_chunk_0", Source: "cpt", Content: "CPT soundings.", Confidence: 0.9},
	}}
	metrics := &metricsFake{}
	orch := newOrchestrator(&generatorFake{configured: false}, searcher, metrics)

	response := orch.Ask(context.Background(), "What is CPT?")

	if response.ActionTaken != domain.ActionRetrieve {
		t.Fatalf("action = %q", response.ActionTaken)
	}
	if response.HasCalculation {
		t.Fatal("theoretical question must not calculate")
	}
	if response.RetrievalCount != 1 {
		t.Fatalf("retrieval count = %d", response.RetrievalCount)
	}
	if len(response.Citations) != 1 || response.Citations[0].Source != "cpt.md" {
		t.Fatalf("citations = %+v", response.Citations)
	}
	if response.Answer == "" {
		t.Fatal("expected a non-empty answer")
	}
	if metrics.pipelines != 1 {
		t.Fatalf("pipeline metric recorded %d times", metrics.pipelines)
	}
}

func TestAskComputeQuestionRunsCalculator(t *testing.T) {
	gen := &generatorFake{
		configured: true,
		response:   `{"action": "compute", "params": {"load": 500, "E": 20000}, "reasoning": "calc"}`,
	}
	searcher := &searcherFake{}
	orch := newOrchestrator(gen, searcher, &metricsFake{})

	response := orch.Ask(context.Background(), "Calculate settlement for load=500 kN and E=20000 kPa")

	if response.ActionTaken != domain.ActionCompute {
		t.Fatalf("action = %q", response.ActionTaken)
	}
	if !response.HasCalculation {
		t.Fatal("expected a calculation")
	}
	if searcher.calls != 0 {
		t.Fatal("compute action must not search")
	}
	if response.RetrievalCount != 0 || len(response.Citations) != 0 {
		t.Fatalf("unexpected retrieval artifacts: %+v", response)
	}
}

func TestAskContinuesWhenRetrievalFails(t *testing.T) {
	searcher := &searcherFake{err: errors.New("index not initialized")}
	metrics := &metricsFake{}
	orch := newOrchestrator(&generatorFake{configured: false}, searcher, metrics)

	response := orch.Ask(context.Background(), "What is bearing capacity?")

	if response.ActionTaken != domain.ActionRetrieve {
		t.Fatalf("action = %q", response.ActionTaken)
	}
	if response.RetrievalCount != 0 {
		t.Fatalf("retrieval count = %d", response.RetrievalCount)
	}
	if response.Answer == "" {
		t.Fatal("expected a degraded but non-empty answer")
	}
	if len(metrics.degraded) != 1 || metrics.degraded[0] != "retrieval" {
		t.Fatalf("degraded stages = %v", metrics.degraded)
	}
}

func TestAskConvertsPanicToDegradedResponse(t *testing.T) {
	searcher := &searcherFake{panicSearch: true}
	metrics := &metricsFake{}
	orch := newOrchestrator(&generatorFake{configured: false}, searcher, metrics)

	response := orch.Ask(context.Background(), "What is CPT?")

	if response.ActionTaken != domain.ActionError {
		t.Fatalf("action = %q, want error", response.ActionTaken)
	}
	if response.Answer != degradedAnswer {
		t.Fatalf("answer = %q", response.Answer)
	}
	if response.HasCalculation || response.RetrievalCount != 0 || len(response.Citations) != 0 {
		t.Fatalf("degraded response not uniform: %+v", response)
	}
	if metrics.pipelines != 1 {
		t.Fatalf("pipeline metric recorded %d times", metrics.pipelines)
	}
}

func TestAskBothActionCombinesRetrievalAndComputation(t *testing.T) {
	gen := &generatorFake{
		configured: true,
		response:   `{"action": "both", "params": {"B": 2, "Df": 1, "gamma": 18, "phi": 30}, "reasoning": "theory plus calc"}`,
	}
	searcher := &searcherFake{results: []domain.SearchResult{
		{ChunkID: "terzaghi_chunk_0", Source: "terzaghi", Content: "q_ult = γ*Df*Nq + 0.5*γ*B*Nr", Confidence: 0.95},
	}}
	orch := newOrchestrator(gen, searcher, &metricsFake{})

	response := orch.Ask(context.Background(), "Calculate q_ult for B=2 m, Df=1 m, gamma=18, phi=30 and explain")

	if response.ActionTaken != domain.ActionBoth {
		t.Fatalf("action = %q", response.ActionTaken)
	}
	if !response.HasCalculation {
		t.Fatal("expected a calculation")
	}
	if response.RetrievalCount != 1 {
		t.Fatalf("retrieval count = %d", response.RetrievalCount)
	}
}
