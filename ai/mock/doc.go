// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.ParameterExtractor,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Canned extraction results
//	extractor := mock.NewMockParameterExtractor()
//	extractor.Responses["condos with pool"] = ai.ExtractedParameters{
//	    ai.KeyHomeType:    []any{"condo"},
//	    ai.KeyDescription: "pool",
//	}
//
//	// Check call counts
//	count := extractor.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockParameterExtractor: Returns the canned response for the text, or an
//     object whose description is the text itself
//   - MockProvider: Aggregates mock embedder and extractor
//
// All mocks are safe for concurrent use.
package mock
