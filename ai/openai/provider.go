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

package openai

import (
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/homesearch/ai"
)

// Provider implements ai.AIProvider using OpenAI-compatible services.
// The embedder and the parameter extractor may point at different hosts.
type Provider struct {
	config    *ai.Config
	schema    ai.ExtractionSchema
	embedder  *Embedder
	extractor *ParameterExtractor
	closed    atomic.Bool
	logger    *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use; schema supplies the
// closed value sets rendered into the extraction prompt.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config, schema ai.ExtractionSchema) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	extractor, err := newParameterExtractor(config, schema)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		config:    config,
		schema:    schema,
		embedder:  embedder,
		extractor: extractor,
		logger:    slog.Default().With("component", "openai-provider"),
	}
	p.logger.Debug("provider ready",
		"embeddingHost", config.EmbeddingHost,
		"embeddingModel", config.EmbeddingModel,
		"extractorHost", config.ExtractorHost,
		"extractorModel", config.ExtractorModel,
		"homeTypes", len(schema.HomeTypes),
		"levels", len(schema.Levels))
	return p, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// ParameterExtractor returns the natural-language parameter extractor.
func (p *Provider) ParameterExtractor() ai.ParameterExtractor {
	return p.extractor
}

// Schema returns the closed value sets rendered into the extraction prompt.
func (p *Provider) Schema() ai.ExtractionSchema {
	return p.schema
}

// Close releases resources held by the provider. The HTTP clients hold no
// connections that need closing; repeated calls are no-ops.
func (p *Provider) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.logger.Debug("closing OpenAI provider")
	return nil
}
