// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ai provides abstractions for the AI services used by homesearch.
//
// This package defines interfaces for text embeddings and for turning
// natural-language search requests into structured parameters. Search and
// ingestion code depend on these abstractions rather than on a concrete model
// server.
//
// The package is designed around three interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - ParameterExtractor: Extracts search parameters from a natural-language query
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/cache: A caching ParameterExtractor decorator backed by Redis or memory
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behaviour and assert on call counts.
//
// # Extraction Contract
//
// An extractor always returns every key in ParameterKeys. Keys the query does
// not mention are nil, or an empty list for list keys. Numeric keys carry the
// phrase as written ("under 500k", "100 sqm") or a number; callers resolve
// them with the normalize package. Values are never trusted: callers validate
// every value against the closed category sets before use.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config, schema)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	params, err := provider.ParameterExtractor().ExtractParameters(ctx, "condos in oakland under 800k")
package ai
