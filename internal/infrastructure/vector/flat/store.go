package flat

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/dosipov/geotech-qa/internal/core/domain"
	"github.com/dosipov/geotech-qa/internal/core/ports"
)

const (
	indexFile    = "index.gob"
	idsFile      = "ids.json"
	metadataFile = "metadata.json"
	textsFile    = "texts.json"
)

// storedMeta is the per-id chunk metadata persisted alongside the index.
type storedMeta struct {
	ChunkID     string `json:"chunk_id"`
	Source      string `json:"source"`
	Title       string `json:"title"`
	FilePath    string `json:"file_path"`
	ChunkIndex  int    `json:"chunk_index"`
	WordCount   int    `json:"word_count"`
	ChunkLength int    `json:"chunk_length"`
}

// persistedIndex is the serialized flat inner-product index: all row
// vectors L2-normalized so that inner product equals cosine similarity.
type persistedIndex struct {
	Dim     int
	Vectors [][]float32
}

// Store is a flat inner-product vector index over the knowledge base.
// Built once by BuildIndex, persisted as four artifacts, loaded lazily
// on first search and held in memory until process restart. Reads are
// concurrent-safe after load; index build is a one-shot administrative
// operation assumed not to overlap with queries.
type Store struct {
	dir        string
	source     ports.DocumentSource
	chunker    ports.Chunker
	embeddings ports.ChunkEmbedder
	logger     *slog.Logger

	mu      sync.RWMutex
	loaded  bool
	index   *persistedIndex
	idMeta  map[int]storedMeta
	idTexts map[int]string
}

func NewStore(
	dir string,
	source ports.DocumentSource,
	chunker ports.Chunker,
	embeddings ports.ChunkEmbedder,
	logger *slog.Logger,
) *Store {
	return &Store{
		dir:        dir,
		source:     source,
		chunker:    chunker,
		embeddings: embeddings,
		logger:     logger,
	}
}

func (s *Store) indexPath() string    { return filepath.Join(s.dir, indexFile) }
func (s *Store) idsPath() string      { return filepath.Join(s.dir, idsFile) }
func (s *Store) metadataPath() string { return filepath.Join(s.dir, metadataFile) }
func (s *Store) textsPath() string    { return filepath.Join(s.dir, textsFile) }

// IsInitialized reports whether all four persisted artifacts exist.
func (s *Store) IsInitialized() bool {
	for _, path := range []string{s.indexPath(), s.idsPath(), s.metadataPath(), s.textsPath()} {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// BuildIndex loads and chunks the knowledge base, embeds every chunk
// with the cache disabled, normalizes the vectors and persists the four
// index artifacts.
func (s *Store) BuildIndex(ctx context.Context) error {
	s.logger.Info("building_vector_index", "dir", s.dir)

	docs, err := s.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}

	var chunks []domain.Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.chunker.Split(doc)...)
	}
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrNoKnowledge, "build index", errors.New("no chunks produced"))
	}

	embeddings, err := s.embeddings.GetEmbeddings(ctx, chunks, false)
	if err != nil {
		return fmt.Errorf("embed knowledge base: %w", err)
	}

	index := &persistedIndex{}
	idMeta := make(map[int]storedMeta)
	idTexts := make(map[int]string)
	ids := make([]int, 0, len(chunks))

	for _, chunk := range chunks {
		vector, ok := embeddings[chunk.ChunkID]
		if !ok || len(vector) == 0 {
			s.logger.Warn("chunk_without_embedding", "chunk_id", chunk.ChunkID)
			continue
		}
		if index.Dim != 0 && len(vector) != index.Dim {
			return domain.WrapError(
				domain.ErrInvalidInput,
				"build index",
				fmt.Errorf("chunk %s: embedding dimension %d, index dimension %d", chunk.ChunkID, len(vector), index.Dim),
			)
		}
		id := len(index.Vectors)
		index.Vectors = append(index.Vectors, normalize(vector))
		index.Dim = len(vector)
		idMeta[id] = storedMeta{
			ChunkID:     chunk.ChunkID,
			Source:      chunk.Metadata.Source,
			Title:       chunk.Metadata.Title,
			FilePath:    chunk.Metadata.FilePath,
			ChunkIndex:  chunk.Metadata.ChunkIndex,
			WordCount:   chunk.Metadata.WordCount,
			ChunkLength: chunk.Metadata.ChunkLength,
		}
		idTexts[id] = chunk.Content
		ids = append(ids, id)
	}

	if len(index.Vectors) == 0 {
		return domain.WrapError(domain.ErrNoKnowledge, "build index", errors.New("no embeddings generated"))
	}

	if err := s.persist(index, ids, idMeta, idTexts); err != nil {
		return err
	}

	s.mu.Lock()
	s.index = index
	s.idMeta = idMeta
	s.idTexts = idTexts
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("vector_index_built", "vectors", len(index.Vectors), "dim", index.Dim)
	return nil
}

func (s *Store) persist(index *persistedIndex, ids []int, idMeta map[int]storedMeta, idTexts map[int]string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	f, err := os.Create(s.indexPath())
	if err != nil {
		return fmt.Errorf("create index artifact: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(index); err != nil {
		f.Close()
		return fmt.Errorf("encode index artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close index artifact: %w", err)
	}

	if err := writeJSONFile(s.idsPath(), ids); err != nil {
		return err
	}
	if err := writeJSONFile(s.metadataPath(), idMeta); err != nil {
		return err
	}
	return writeJSONFile(s.textsPath(), idTexts)
}

// normalize returns the L2-normalized copy of v. The epsilon keeps a
// zero vector from dividing by zero.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum) + 1e-12
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
