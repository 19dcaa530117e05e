package chunking

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dosipov/geotech-qa/internal/core/domain"
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Splitter groups sentences into overlapping, word-count-bounded chunks.
// ChunkSize bounds the words per chunk; Overlap is the maximum number of
// words carried from the end of one chunk into the next.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 400
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Split chunks one document. Empty input yields zero chunks; the caller
// treats that as a no-op for the document, not an error.
func (s *Splitter) Split(doc domain.Document) []domain.Chunk {
	sentences := splitSentences(doc.Content)
	if len(sentences) == 0 {
		return nil
	}

	var (
		chunks     []domain.Chunk
		current    []string
		curWords   int
		chunkIndex int
	)

	for _, sentence := range sentences {
		words := wordCount(sentence)
		if curWords+words > s.ChunkSize && len(current) > 0 {
			chunks = append(chunks, newChunk(current, doc.Metadata, chunkIndex))
			chunkIndex++

			overlap := s.overlapSuffix(current)
			current = append(overlap, sentence)
			curWords = 0
			for _, sent := range current {
				curWords += wordCount(sent)
			}
			continue
		}
		current = append(current, sentence)
		curWords += words
	}

	if len(current) > 0 {
		chunks = append(chunks, newChunk(current, doc.Metadata, chunkIndex))
	}

	return chunks
}

// overlapSuffix takes sentences from the end of a closed chunk whose
// cumulative word count stays within Overlap, preserving order.
func (s *Splitter) overlapSuffix(sentences []string) []string {
	var (
		suffix []string
		words  int
	)
	for i := len(sentences) - 1; i >= 0; i-- {
		count := wordCount(sentences[i])
		if words+count > s.Overlap {
			break
		}
		suffix = append([]string{sentences[i]}, suffix...)
		words += count
	}
	return suffix
}

func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			sentences = append(sentences, part)
		}
	}
	return sentences
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func newChunk(sentences []string, meta domain.DocumentMetadata, index int) domain.Chunk {
	content := strings.Join(sentences, " ")
	source := meta.Source
	if source == "" {
		source = "unknown"
	}
	return domain.Chunk{
		ChunkID: fmt.Sprintf("%s_chunk_%d", source, index),
		Content: content,
		Metadata: domain.ChunkMetadata{
			Source:      source,
			Title:       meta.Title,
			FilePath:    meta.FilePath,
			ChunkIndex:  index,
			WordCount:   wordCount(content),
			ChunkLength: len(content),
		},
	}
}
