package domain

// SearchResult is one semantic search hit. Score is raw inner-product
// similarity in [-1,1]; Confidence is (score+1)/2 clamped to [0,1].
type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	Source     string  `json:"source"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Citation points the answer back at a retrieved chunk.
type Citation struct {
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
	ChunkID    string  `json:"chunk_id,omitempty"`
}

// ToConfidence maps a cosine similarity in [-1,1] to [0,1].
// Monotonic in the score and clamped at both ends.
func ToConfidence(score float64) float64 {
	c := (score + 1.0) / 2.0
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
