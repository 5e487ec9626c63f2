package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ParameterExtractor turns a natural-language search request into structured
// search parameters.
// Implementations must be thread-safe for concurrent use.
type ParameterExtractor interface {
	// ExtractParameters analyzes text and returns a parameter object in which
	// every key of ParameterKeys is present. Keys the text does not mention hold
	// nil (scalars) or an empty list (list keys).
	// Values are raw model output; callers must validate them.
	ExtractParameters(ctx context.Context, text string) (ExtractedParameters, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// ParameterExtractor returns the natural-language parameter extractor.
	// The returned ParameterExtractor is safe for concurrent use.
	ParameterExtractor() ParameterExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
