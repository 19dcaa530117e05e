package gemini

import (
	"context"
	"fmt"
)

// Embedder issues batch embedding requests against the same client.
// Embedding is not retried: index builds are operator-driven and a
// failed batch should surface immediately.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

type embedBatchRequest struct {
	Requests []embedRequest `json:"requests"`
}

type embedRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type embedBatchResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if !e.client.Configured() {
		return nil, fmt.Errorf("gemini: api key is not set")
	}

	request := embedBatchRequest{
		Requests: make([]embedRequest, 0, len(texts)),
	}
	for _, text := range texts {
		request.Requests = append(request.Requests, embedRequest{
			Model:   "models/" + e.client.embedModel,
			Content: content{Parts: []part{{Text: text}}},
		})
	}

	var response embedBatchResponse
	path := "/models/" + e.client.embedModel + ":batchEmbedContents"
	if err := e.client.postJSON(ctx, path, request, &response, "embed"); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(response.Embeddings))
	for i, emb := range response.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("gemini: empty embedding result")
	}
	return vectors[0], nil
}
