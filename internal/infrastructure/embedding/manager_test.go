package embedding

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dosipov/geotech-qa/internal/core/domain"
)

type embedderFake struct {
	batchCalls int
	queryCalls int
	err        error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testChunks(ids ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(ids))
	for i, id := range ids {
		chunks = append(chunks, domain.Chunk{
			ChunkID: id,
			Content: "content for " + id,
			Metadata: domain.ChunkMetadata{
				Source:     "notes",
				ChunkIndex: i,
			},
		})
	}
	return chunks
}

func newTestManager(t *testing.T) (*Manager, *embedderFake, string) {
	t.Helper()
	dir := t.TempDir()
	fake := &embedderFake{}
	m := NewManager(fake, NewCache(dir, discardLogger()), discardLogger())
	return m, fake, dir
}

func TestGetEmbeddingsEmptyChunkSet(t *testing.T) {
	m, fake, _ := newTestManager(t)
	got, err := m.GetEmbeddings(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("GetEmbeddings() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(got))
	}
	if fake.batchCalls != 0 {
		t.Fatalf("expected no provider calls, got %d", fake.batchCalls)
	}
}

func TestGetEmbeddingsIdenticalSetUsesCache(t *testing.T) {
	m, fake, _ := newTestManager(t)
	chunks := testChunks("notes_chunk_0", "notes_chunk_1")

	first, err := m.GetEmbeddings(context.Background(), chunks, true)
	if err != nil {
		t.Fatalf("first GetEmbeddings() error = %v", err)
	}
	if fake.batchCalls != 1 {
		t.Fatalf("expected one batched call, got %d", fake.batchCalls)
	}

	second, err := m.GetEmbeddings(context.Background(), chunks, true)
	if err != nil {
		t.Fatalf("second GetEmbeddings() error = %v", err)
	}
	if fake.batchCalls != 1 {
		t.Fatalf("identical chunk set must not re-embed, provider calls = %d", fake.batchCalls)
	}
	if len(second) != len(first) {
		t.Fatalf("cache returned %d entries, want %d", len(second), len(first))
	}
	for id := range first {
		if _, ok := second[id]; !ok {
			t.Fatalf("cache missing chunk %s", id)
		}
	}
}

func TestGetEmbeddingsChangedSetRegeneratesFully(t *testing.T) {
	m, fake, _ := newTestManager(t)

	if _, err := m.GetEmbeddings(context.Background(), testChunks("a_chunk_0", "a_chunk_1"), true); err != nil {
		t.Fatalf("seed GetEmbeddings() error = %v", err)
	}

	// Added chunk id: full regeneration.
	if _, err := m.GetEmbeddings(context.Background(), testChunks("a_chunk_0", "a_chunk_1", "a_chunk_2"), true); err != nil {
		t.Fatalf("grow GetEmbeddings() error = %v", err)
	}
	if fake.batchCalls != 2 {
		t.Fatalf("expected regeneration after key-set growth, calls = %d", fake.batchCalls)
	}

	// Removed chunk id: subset is also invalid.
	if _, err := m.GetEmbeddings(context.Background(), testChunks("a_chunk_0"), true); err != nil {
		t.Fatalf("shrink GetEmbeddings() error = %v", err)
	}
	if fake.batchCalls != 3 {
		t.Fatalf("expected regeneration after key-set shrink, calls = %d", fake.batchCalls)
	}
}

func TestGetEmbeddingsCacheDisabled(t *testing.T) {
	m, fake, dir := newTestManager(t)
	chunks := testChunks("notes_chunk_0")

	if _, err := m.GetEmbeddings(context.Background(), chunks, false); err != nil {
		t.Fatalf("GetEmbeddings() error = %v", err)
	}
	if _, err := m.GetEmbeddings(context.Background(), chunks, false); err != nil {
		t.Fatalf("GetEmbeddings() error = %v", err)
	}
	if fake.batchCalls != 2 {
		t.Fatalf("cache disabled must embed every time, calls = %d", fake.batchCalls)
	}
	if _, err := os.Stat(filepath.Join(dir, embeddingsFile)); !os.IsNotExist(err) {
		t.Fatal("cache disabled must not write the embeddings artifact")
	}
}

func TestGetEmbeddingsCorruptCacheDegradesToMiss(t *testing.T) {
	m, fake, dir := newTestManager(t)
	chunks := testChunks("notes_chunk_0")

	if _, err := m.GetEmbeddings(context.Background(), chunks, true); err != nil {
		t.Fatalf("seed GetEmbeddings() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, metadataFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt cache: %v", err)
	}

	if _, err := m.GetEmbeddings(context.Background(), chunks, true); err != nil {
		t.Fatalf("corrupt cache must not be fatal: %v", err)
	}
	if fake.batchCalls != 2 {
		t.Fatalf("corrupt cache should force regeneration, calls = %d", fake.batchCalls)
	}
}

func TestGetEmbeddingsCorruptEmbeddingsArtifactRegenerates(t *testing.T) {
	m, fake, dir := newTestManager(t)
	chunks := testChunks("notes_chunk_0", "notes_chunk_1")

	if _, err := m.GetEmbeddings(context.Background(), chunks, true); err != nil {
		t.Fatalf("seed GetEmbeddings() error = %v", err)
	}

	// Chunk metadata stays intact; only the vectors artifact is corrupt.
	if err := os.WriteFile(filepath.Join(dir, embeddingsFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt cache: %v", err)
	}

	got, err := m.GetEmbeddings(context.Background(), chunks, true)
	if err != nil {
		t.Fatalf("corrupt embeddings artifact must not be fatal: %v", err)
	}
	if fake.batchCalls != 2 {
		t.Fatalf("corrupt embeddings artifact should force regeneration, calls = %d", fake.batchCalls)
	}
	if len(got) != len(chunks) {
		t.Fatalf("regeneration returned %d vectors for %d chunks", len(got), len(chunks))
	}

	// Regeneration also rewrites the artifacts, so the next call hits.
	if _, err := m.GetEmbeddings(context.Background(), chunks, true); err != nil {
		t.Fatalf("post-regeneration GetEmbeddings() error = %v", err)
	}
	if fake.batchCalls != 2 {
		t.Fatalf("rewritten cache should serve the next call, calls = %d", fake.batchCalls)
	}
}

func TestGetEmbeddingsMissingVectorKeyRegenerates(t *testing.T) {
	m, fake, dir := newTestManager(t)
	chunks := testChunks("notes_chunk_0", "notes_chunk_1")

	if _, err := m.GetEmbeddings(context.Background(), chunks, true); err != nil {
		t.Fatalf("seed GetEmbeddings() error = %v", err)
	}

	// Valid JSON whose key set no longer matches the chunk set.
	if err := os.WriteFile(filepath.Join(dir, embeddingsFile), []byte(`{"notes_chunk_0":[1,0]}`), 0o644); err != nil {
		t.Fatalf("rewrite cache: %v", err)
	}

	if _, err := m.GetEmbeddings(context.Background(), chunks, true); err != nil {
		t.Fatalf("GetEmbeddings() error = %v", err)
	}
	if fake.batchCalls != 2 {
		t.Fatalf("vector key-set mismatch should force regeneration, calls = %d", fake.batchCalls)
	}
}

func TestGetEmbeddingsProviderErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	fake := &embedderFake{err: errors.New("provider down")}
	m := NewManager(fake, NewCache(dir, discardLogger()), discardLogger())

	if _, err := m.GetEmbeddings(context.Background(), testChunks("x_chunk_0"), true); err == nil {
		t.Fatal("expected provider error to propagate")
	}
}
