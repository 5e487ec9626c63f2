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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/homesearch/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrMalformedResponse indicates the model never produced a parseable parameter object.
var ErrMalformedResponse = errors.New("malformed extraction response")

// ParameterExtractor implements ai.ParameterExtractor using OpenAI-compatible chat APIs.
type ParameterExtractor struct {
	client       llms.Model
	temperature  float64
	maxAttempts  int
	systemPrompt string
	logger       *slog.Logger
}

// newParameterExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newParameterExtractor(config *ai.Config, schema ai.ExtractionSchema) (*ParameterExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken(token(config.APIKey)),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return newParameterExtractorWithModel(client, config, schema), nil
}

func newParameterExtractorWithModel(client llms.Model, config *ai.Config, schema ai.ExtractionSchema) *ParameterExtractor {
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &ParameterExtractor{
		client:       client,
		temperature:  config.Temperature,
		maxAttempts:  attempts,
		systemPrompt: buildSystemPrompt(schema),
		logger:       slog.Default().With("component", "openai-extractor"),
	}
}

// NewParameterExtractor creates a new parameter extractor using the provided
// configuration. The schema's closed value sets are rendered into the prompt.
//
// Returns ai.ParameterExtractor interface to enforce abstraction.
func NewParameterExtractor(config *ai.Config, schema ai.ExtractionSchema) (ai.ParameterExtractor, error) {
	return newParameterExtractor(config, schema)
}

// token returns the API token, using "none" for local OpenAI-compatible
// services that don't require authentication.
func token(apiKey string) string {
	if apiKey == "" {
		return "none"
	}
	return apiKey
}

// ExtractParameters asks the model for a parameter object describing text.
// Every key of ai.ParameterKeys is present in the result; keys the model left
// out are filled with their null value and logged.
func (e *ParameterExtractor) ExtractParameters(ctx context.Context, text string) (ai.ExtractedParameters, error) {
	text = scrubString(text)
	if text == "" {
		return ai.EmptyParameters(), nil
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(e.systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(text)},
		},
	}

	var params ai.ExtractedParameters
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(e.temperature), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			lastErr = fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
			e.logger.Warn("no choices returned from model", "attempt", attempt+1)
			continue
		}

		responseText := repairJSON(stripFences(response.Choices[0].Content))

		params = nil
		if err := json.Unmarshal([]byte(responseText), &params); err != nil || params == nil {
			if err == nil {
				err = errors.New("response is not an object")
			}
			lastErr = fmt.Errorf("%w: %w", ErrMalformedResponse, err)
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extractor response after retries", "attempts", e.maxAttempts, "err", lastErr)
		return nil, lastErr
	}

	for k := range params {
		if !isParameterKey(k) {
			e.logger.Debug("ignoring unknown key", "key", k)
			delete(params, k)
		}
	}
	if missing := params.FillMissing(); len(missing) > 0 {
		e.logger.Warn("extractor response is missing keys", "missing", missing)
	}

	e.logger.Debug("extracted parameters", "mentioned", params.Mentioned())
	return params, nil
}

func isParameterKey(k string) bool {
	for _, key := range ai.ParameterKeys {
		if k == key {
			return true
		}
	}
	return false
}
