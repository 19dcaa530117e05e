package flat

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dosipov/geotech-qa/internal/core/domain"
)

const (
	minTopK = 1
	maxTopK = 10
)

// Search embeds the query, runs inner-product top-k over the normalized
// index and maps hits back to chunk metadata and text. Results come
// back in descending similarity order; equal scores keep index order.
func (s *Store) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if k < minTopK {
		k = minTopK
	}
	if k > maxTopK {
		k = maxTopK
	}

	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	vector, err := s.embeddings.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	queryVec := normalize(vector)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(queryVec) != s.index.Dim {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"search",
			fmt.Errorf("query dimension %d does not match index dimension %d", len(queryVec), s.index.Dim),
		)
	}

	ids, scores := s.topK(queryVec, k)

	results := make([]domain.SearchResult, 0, len(ids))
	for i, id := range ids {
		if id == -1 {
			continue
		}
		meta := s.idMeta[id]
		results = append(results, domain.SearchResult{
			ChunkID:    meta.ChunkID,
			Source:     meta.Source,
			Title:      meta.Title,
			Content:    s.idTexts[id],
			Score:      scores[i],
			Confidence: domain.ToConfidence(scores[i]),
		})
	}
	return results, nil
}

// topK scores every indexed vector and returns the k best ids with
// their similarities. Slots beyond the index size carry the -1
// sentinel.
func (s *Store) topK(query []float32, k int) ([]int, []float64) {
	type hit struct {
		id    int
		score float64
	}

	hits := make([]hit, len(s.index.Vectors))
	for id, row := range s.index.Vectors {
		var dot float64
		for i, x := range row {
			dot += float64(x) * float64(query[i])
		}
		hits[id] = hit{id: id, score: dot}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	ids := make([]int, k)
	scores := make([]float64, k)
	for i := 0; i < k; i++ {
		if i < len(hits) {
			ids[i] = hits[i].id
			scores[i] = hits[i].score
			continue
		}
		ids[i] = -1
	}
	return ids, scores
}

// ensureLoaded lazily loads the persisted artifacts on first use.
// A failed load is retried on the next call, so a rebuild between
// requests becomes visible without a restart.
func (s *Store) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	if !s.IsInitialized() {
		return domain.WrapError(
			domain.ErrNotInitialized,
			"load index",
			fmt.Errorf("missing artifacts in %s", s.dir),
		)
	}

	f, err := os.Open(s.indexPath())
	if err != nil {
		return domain.WrapError(domain.ErrNotInitialized, "load index", err)
	}
	defer f.Close()

	index := &persistedIndex{}
	if err := gob.NewDecoder(f).Decode(index); err != nil {
		return domain.WrapError(domain.ErrNotInitialized, "decode index", err)
	}

	var ids []int
	if err := readJSONArtifact(s.idsPath(), &ids); err != nil {
		return err
	}
	idMeta := make(map[int]storedMeta)
	if err := readJSONArtifact(s.metadataPath(), &idMeta); err != nil {
		return err
	}
	idTexts := make(map[int]string)
	if err := readJSONArtifact(s.textsPath(), &idTexts); err != nil {
		return err
	}

	if len(ids) != len(index.Vectors) {
		return domain.WrapError(
			domain.ErrNotInitialized,
			"load index",
			fmt.Errorf("ids/vectors mismatch: %d/%d", len(ids), len(index.Vectors)),
		)
	}

	s.index = index
	s.idMeta = idMeta
	s.idTexts = idTexts
	s.loaded = true

	s.logger.Info("vector_index_loaded", "vectors", len(index.Vectors), "dim", index.Dim)
	return nil
}

func readJSONArtifact(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.WrapError(domain.ErrNotInitialized, "read "+filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.WrapError(domain.ErrNotInitialized, "decode "+filepath.Base(path), err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
