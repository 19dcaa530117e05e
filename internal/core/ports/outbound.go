package ports

import (
	"context"

	"github.com/dosipov/geotech-qa/internal/core/domain"
)

// TextGenerator is the generative-model boundary. Generate blocks for at
// most the configured timeout per attempt; the implementation owns the
// one-retry contract and degrades to a static apology string instead of
// returning transport errors.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Configured() bool
}

// Embedder builds vectors for chunk batches and query text.
// Dimension must be stable for the lifetime of one index.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkEmbedder maps chunks to vectors, optionally through an on-disk cache.
type ChunkEmbedder interface {
	GetEmbeddings(ctx context.Context, chunks []domain.Chunk, useCache bool) (map[string][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// DocumentSource yields knowledge base documents. The core does not care
// how they are stored or fetched.
type DocumentSource interface {
	Load(ctx context.Context) ([]domain.Document, error)
}

// Chunker splits one document into overlapping, size-bounded chunks.
type Chunker interface {
	Split(doc domain.Document) []domain.Chunk
}

// KnowledgeSearcher performs semantic search over the built index.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
	IsInitialized() bool
}

// Calculator is a pluggable numeric capability: given named inputs it
// returns a named result plus a human-readable derivation, or a
// validation failure.
type Calculator interface {
	Name() string
	RequiredParams() []string
	Compute(params map[string]float64) (domain.CalcOutput, error)
}
