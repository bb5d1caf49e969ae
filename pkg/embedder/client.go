package embedder

import "context"

// Client generates vector embeddings for text (spec §4.1's Entity.Embedding
// and RelationEdge.Embedding, populated on create and used for vector kNN
// search in pkg/search).
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}

// Config holds provider-agnostic embedding parameters.
type Config struct {
	Model      string
	BaseURL    string
	Dimensions int
	BatchSize  int
}

// modelDimensions is the default dimensionality for known OpenAI embedding
// models, used when Config.Dimensions is left at zero.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

func resolveDimensions(cfg Config) int {
	if cfg.Dimensions > 0 {
		return cfg.Dimensions
	}
	if d, ok := modelDimensions[cfg.Model]; ok {
		return d
	}
	return 1536
}

func resolveModel(cfg Config) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return "text-embedding-3-small"
}

func resolveBatchSize(cfg Config) int {
	if cfg.BatchSize > 0 {
		return cfg.BatchSize
	}
	return 100
}
