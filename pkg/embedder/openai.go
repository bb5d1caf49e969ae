package embedder

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder implements Client against the OpenAI embeddings endpoint
// or any OpenAI-compatible service reachable via Config.BaseURL.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
	batch  int
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder. It never returns an
// error: an empty or invalid API key surfaces as a request-time failure
// from the provider instead. Config.BaseURL is not validated here, unlike
// llmclient.NewOpenAIClient, which rejects an invalid base URL.
func NewOpenAIEmbedder(apiKey string, cfg Config) *OpenAIEmbedder {
	var client *openai.Client
	if cfg.BaseURL != "" {
		clientCfg := openai.DefaultConfig(apiKey)
		clientCfg.BaseURL = cfg.BaseURL
		client = openai.NewClientWithConfig(clientCfg)
	} else {
		client = openai.NewClient(apiKey)
	}

	return &OpenAIEmbedder{
		client: client,
		model:  resolveModel(cfg),
		dims:   resolveDimensions(cfg),
		batch:  resolveBatchSize(cfg),
	}
}

// Embed generates embeddings for texts, batching requests at
// Config.BatchSize to stay under provider request-size limits.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batch {
		end := start + e.batch
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts[start:end],
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, fmt.Errorf("embedder: create embeddings: %w", err)
		}
		for _, d := range resp.Data {
			out = append(out, d.Embedding)
		}
	}

	return out, nil
}

// EmbedSingle is a convenience wrapper around Embed for one text.
func (e *OpenAIEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedder: no embedding returned")
	}
	return embeddings[0], nil
}

// Dimensions reports the vector length this embedder produces.
func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

// Close implements Client; the underlying HTTP client needs no teardown.
func (e *OpenAIEmbedder) Close() error { return nil }
