package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dosipov/geotech-qa/internal/core/domain"
	"github.com/dosipov/geotech-qa/internal/core/ports"
)

// Manager maps chunks to vectors through the embedding provider, with an
// on-disk cache to skip re-embedding unchanged chunk sets.
type Manager struct {
	embedder ports.Embedder
	cache    *Cache
	logger   *slog.Logger
}

func NewManager(embedder ports.Embedder, cache *Cache, logger *slog.Logger) *Manager {
	return &Manager{
		embedder: embedder,
		cache:    cache,
		logger:   logger,
	}
}

// GetEmbeddings returns one vector per chunk id. With useCache set and a
// valid cache the provider is not called at all; otherwise all chunks
// are embedded in one batched call and written back when caching is
// requested.
func (m *Manager) GetEmbeddings(ctx context.Context, chunks []domain.Chunk, useCache bool) (map[string][]float32, error) {
	if len(chunks) == 0 {
		return map[string][]float32{}, nil
	}

	if useCache {
		if cached, ok := m.cache.Load(chunks); ok {
			m.logger.Info("using_cached_embeddings", "chunks", len(chunks))
			return cached, nil
		}
	}

	m.logger.Info("generating_embeddings", "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	embeddings := make(map[string][]float32, len(chunks))
	for i, chunk := range chunks {
		embeddings[chunk.ChunkID] = vectors[i]
	}

	if useCache {
		m.cache.Save(embeddings, chunks)
	}

	return embeddings, nil
}

// EmbedQuery embeds a single query through the same provider as the
// chunk set, keeping index and query dimensions aligned.
func (m *Manager) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := m.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vector, nil
}
