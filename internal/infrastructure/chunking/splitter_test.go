package chunking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dosipov/geotech-qa/internal/core/domain"
)

func testDoc(content string) domain.Document {
	return domain.Document{
		Content: content,
		Metadata: domain.DocumentMetadata{
			Source:   "bearing_capacity",
			Title:    "Bearing Capacity",
			FilePath: "data/kb/bearing_capacity.md",
		},
	}
}

func TestSplitEmptyDocumentYieldsNoChunks(t *testing.T) {
	s := NewSplitter(50, 10)
	if chunks := s.Split(testDoc("")); len(chunks) != 0 {
		t.Fatalf("expected zero chunks for empty input, got %d", len(chunks))
	}
	if chunks := s.Split(testDoc("   \n\t  ")); len(chunks) != 0 {
		t.Fatalf("expected zero chunks for whitespace input, got %d", len(chunks))
	}
}

func TestSplitSingleSmallDocument(t *testing.T) {
	s := NewSplitter(50, 10)
	chunks := s.Split(testDoc("Bearing capacity is the maximum load a foundation can support. It depends on soil properties."))
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
	if chunks[0].ChunkID != "bearing_capacity_chunk_0" {
		t.Fatalf("unexpected chunk id %q", chunks[0].ChunkID)
	}
	if chunks[0].Metadata.ChunkIndex != 0 {
		t.Fatalf("expected chunk index 0, got %d", chunks[0].Metadata.ChunkIndex)
	}
	if chunks[0].Metadata.WordCount == 0 || chunks[0].Metadata.ChunkLength == 0 {
		t.Fatalf("expected populated word count and length, got %+v", chunks[0].Metadata)
	}
}

func TestSplitAssignsSequentialIndexes(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString(fmt.Sprintf("Sentence number %d has exactly six words. ", i))
	}

	s := NewSplitter(30, 10)
	chunks := s.Split(testDoc(sb.String()))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Metadata.ChunkIndex != i {
			t.Fatalf("chunk %d has index %d", i, chunk.Metadata.ChunkIndex)
		}
		want := fmt.Sprintf("bearing_capacity_chunk_%d", i)
		if chunk.ChunkID != want {
			t.Fatalf("chunk %d has id %q, want %q", i, chunk.ChunkID, want)
		}
	}
}

func TestSplitPreservesSentenceOrder(t *testing.T) {
	var sentences []string
	for i := 0; i < 30; i++ {
		sentences = append(sentences, fmt.Sprintf("Ordered sentence %02d follows the one before", i))
	}
	doc := testDoc(strings.Join(sentences, ". ") + ".")

	s := NewSplitter(25, 8)
	chunks := s.Split(doc)

	// Walking the chunks and deduplicating overlap must reproduce the
	// original sentence order.
	seen := -1
	for _, chunk := range chunks {
		for _, sentence := range strings.Split(chunk.Content, ". ") {
			var n int
			if _, err := fmt.Sscanf(sentence, "Ordered sentence %d", &n); err != nil {
				t.Fatalf("unparseable sentence %q: %v", sentence, err)
			}
			// Overlap may repeat recent sentences but never skip ahead.
			if n > seen+1 {
				t.Fatalf("sentence %d skipped ahead of %d", n, seen)
			}
			if n > seen {
				seen = n
			}
		}
	}
	if seen != 29 {
		t.Fatalf("expected all 30 sentences covered, last seen %d", seen)
	}
}

func TestSplitRespectsSizeAndOverlapBounds(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("The cone penetration test measures soil resistance with depth. ")
	}

	const (
		chunkSize = 40
		overlap   = 15
	)
	s := NewSplitter(chunkSize, overlap)
	chunks := s.Split(testDoc(sb.String()))
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		words := len(strings.Fields(chunk.Content))
		// Only the final chunk may exceed the budget via its seeded overlap.
		if i < len(chunks)-1 && words > chunkSize+overlap {
			t.Fatalf("chunk %d has %d words, budget %d+%d", i, words, chunkSize, overlap)
		}
	}

	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Content)
		cur := strings.Fields(chunks[i].Content)

		shared := 0
		for n := 1; n <= len(prev) && n <= len(cur); n++ {
			if strings.Join(prev[len(prev)-n:], " ") == strings.Join(cur[:n], " ") {
				shared = n
			}
		}
		if shared > overlap {
			t.Fatalf("chunks %d/%d share %d words, overlap budget %d", i-1, i, shared, overlap)
		}
	}
}

func TestSplitOversizedSentenceBecomesOwnChunk(t *testing.T) {
	long := strings.Repeat("word ", 80)
	doc := testDoc("Short lead sentence. " + long + ". Short tail sentence.")

	s := NewSplitter(40, 10)
	chunks := s.Split(doc)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	found := false
	for _, chunk := range chunks {
		if len(strings.Fields(chunk.Content)) >= 80 {
			found = true
		}
	}
	if !found {
		t.Fatal("oversized sentence should be emitted whole")
	}
}

func TestNewSplitterNormalizesArguments(t *testing.T) {
	s := NewSplitter(0, -5)
	if s.ChunkSize != 400 || s.Overlap != 0 {
		t.Fatalf("unexpected normalized splitter %+v", s)
	}
	s = NewSplitter(100, 200)
	if s.Overlap != 25 {
		t.Fatalf("overlap >= size should clamp to quarter, got %d", s.Overlap)
	}
}
