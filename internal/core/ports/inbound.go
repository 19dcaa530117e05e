package ports

import (
	"context"

	"github.com/dosipov/geotech-qa/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for pipeline execution.
// Ask never fails: every failure class resolves to a well-formed
// degraded response.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string) domain.PipelineResponse
}

// IndexBuilder is the inbound contract for the one-shot administrative
// index build. Assumed not to overlap with queries (build-then-serve).
type IndexBuilder interface {
	BuildIndex(ctx context.Context) error
}
