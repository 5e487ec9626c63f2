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

// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// This package implements the ai.AIProvider interface using the langchaingo
// library to communicate with OpenAI or OpenAI-compatible services (such as
// Mistral, Ollama, LocalAI, vLLM or a text-embeddings-inference server).
//
// The embedder and the parameter extractor may live on different hosts:
// embeddings usually come from a small local model while extraction is
// delegated to a hosted chat model.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:8080"),  // /v1 added automatically
//	    ai.WithExtractorHost("https://api.mistral.ai"),
//	    ai.WithAPIKey(os.Getenv("MISTRAL_API_KEY")),
//	)
//
//	schema := ai.ExtractionSchema{
//	    States:    normalize.StateCodes(),
//	    HomeTypes: vocab.Allowed(core.FieldHomeType),
//	}
//
//	provider, err := openai.NewProvider(config, schema)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "sunny kitchen with a view")
//	params, err := provider.ParameterExtractor().ExtractParameters(ctx, "condos in san francisco with pool")
package openai
