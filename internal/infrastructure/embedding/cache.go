package embedding

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dosipov/geotech-qa/internal/core/domain"
)

const (
	embeddingsFile = "embeddings.json"
	metadataFile   = "chunks.json"
)

// Cache persists chunk embeddings and chunk metadata as two JSON
// artifacts. Validity is exact chunk-id key-set equality across both
// artifacts and the current chunk set; any read failure degrades to a
// cache miss.
type Cache struct {
	dir    string
	logger *slog.Logger
}

func NewCache(dir string, logger *slog.Logger) *Cache {
	return &Cache{dir: dir, logger: logger}
}

func (c *Cache) embeddingsPath() string { return filepath.Join(c.dir, embeddingsFile) }
func (c *Cache) metadataPath() string   { return filepath.Join(c.dir, metadataFile) }

// Load returns the cached embeddings when both artifacts read cleanly
// and both key sets equal exactly the chunk-id set of chunks. Supersets
// and subsets invalidate, as does a missing or corrupt artifact: any
// failure is a cache miss, never an error.
func (c *Cache) Load(chunks []domain.Chunk) (map[string][]float32, bool) {
	metadata, err := readJSONFile[map[string]domain.ChunkMetadata](c.metadataPath())
	if err != nil {
		return nil, false
	}
	embeddings, err := readJSONFile[map[string][]float32](c.embeddingsPath())
	if err != nil {
		c.logger.Warn("embedding_cache_read_failed", "path", c.embeddingsPath(), "error", err)
		return nil, false
	}
	if len(metadata) != len(chunks) || len(embeddings) != len(chunks) {
		return nil, false
	}
	for _, chunk := range chunks {
		if _, ok := metadata[chunk.ChunkID]; !ok {
			return nil, false
		}
		if _, ok := embeddings[chunk.ChunkID]; !ok {
			return nil, false
		}
	}
	return embeddings, true
}

// Save writes embeddings and chunk metadata back to disk. Failures are
// logged, not returned: a cold cache is always acceptable.
func (c *Cache) Save(embeddings map[string][]float32, chunks []domain.Chunk) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Warn("embedding_cache_mkdir_failed", "dir", c.dir, "error", err)
		return
	}

	metadata := make(map[string]domain.ChunkMetadata, len(chunks))
	for _, chunk := range chunks {
		metadata[chunk.ChunkID] = chunk.Metadata
	}

	if err := writeJSONFile(c.embeddingsPath(), embeddings); err != nil {
		c.logger.Warn("embedding_cache_write_failed", "path", c.embeddingsPath(), "error", err)
		return
	}
	if err := writeJSONFile(c.metadataPath(), metadata); err != nil {
		c.logger.Warn("embedding_cache_write_failed", "path", c.metadataPath(), "error", err)
		return
	}
	c.logger.Info("embedding_cache_saved", "entries", len(embeddings), "dir", c.dir)
}

// Clear removes both cache artifacts.
func (c *Cache) Clear() {
	for _, path := range []string{c.embeddingsPath(), c.metadataPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("embedding_cache_clear_failed", "path", path, "error", err)
		}
	}
}

func readJSONFile[T any](path string) (T, error) {
	var out T
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}
