package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/homesearch/ai"
)

// scriptedModel returns canned responses in order and records the prompts it saw.
type scriptedModel struct {
	responses []string
	err       error
	calls     int
	messages  []llms.MessageContent
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	if m.calls >= len(m.responses) {
		return &llms.ContentResponse{}, nil
	}
	content := m.responses[m.calls]
	m.calls++
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func testSchema() ai.ExtractionSchema {
	return ai.ExtractionSchema{
		States:    []string{"ca", "ga"},
		HomeTypes: []string{"condo", "single_family"},
		Events:    []string{"listed for sale"},
		Levels:    []string{"1", "2"},
	}
}

func TestExtractParameters(t *testing.T) {
	ctx := context.Background()

	t.Run("complete response", func(t *testing.T) {
		model := &scriptedModel{responses: []string{`{
			"id": null, "description": "pool", "street_address": null,
			"city": ["san francisco"], "state": [], "county": [],
			"home_type": ["condo"], "event": [], "levels": [],
			"price": null, "price_per_sqft": null, "living_area": null,
			"bedrooms": null, "bathrooms": null}`}}
		e := newParameterExtractorWithModel(model, ai.DefaultConfig(), testSchema())

		params, err := e.ExtractParameters(ctx, "condos in san francisco with pool")
		require.NoError(t, err)
		assert.Equal(t, []any{"san francisco"}, params[ai.KeyCity])
		assert.Equal(t, []any{"condo"}, params[ai.KeyHomeType])
		assert.Equal(t, "pool", params[ai.KeyDescription])
		assert.Nil(t, params[ai.KeyPrice])
		assert.Len(t, params, len(ai.ParameterKeys))

		require.Len(t, model.messages, 2)
		assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
		assert.Equal(t, llms.TextPart("condos in san francisco with pool"), model.messages[1].Parts[0])
	})

	t.Run("missing keys are filled", func(t *testing.T) {
		model := &scriptedModel{responses: []string{"```json\n{\"price\": \"under 500k\"}\n```"}}
		e := newParameterExtractorWithModel(model, ai.DefaultConfig(), testSchema())

		params, err := e.ExtractParameters(ctx, "under 500k")
		require.NoError(t, err)
		assert.Equal(t, "under 500k", params[ai.KeyPrice])
		for _, k := range ai.ParameterKeys {
			_, ok := params[k]
			assert.True(t, ok, k)
		}
		assert.Equal(t, []any{}, params[ai.KeyLevels])
	})

	t.Run("unknown keys are dropped", func(t *testing.T) {
		model := &scriptedModel{responses: []string{`{"bedrooms": "3", "garden": "yes"}`}}
		e := newParameterExtractorWithModel(model, ai.DefaultConfig(), testSchema())

		params, err := e.ExtractParameters(ctx, "3 bedrooms with garden")
		require.NoError(t, err)
		assert.NotContains(t, params, "garden")
		assert.Equal(t, "3", params[ai.KeyBedrooms])
	})

	t.Run("retries malformed json", func(t *testing.T) {
		model := &scriptedModel{responses: []string{"not json", `{"city": ["atlanta"],}`}}
		e := newParameterExtractorWithModel(model, ai.DefaultConfig(), testSchema())

		params, err := e.ExtractParameters(ctx, "homes in atlanta")
		require.NoError(t, err)
		assert.Equal(t, 2, model.calls)
		assert.Equal(t, []any{"atlanta"}, params[ai.KeyCity])
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		model := &scriptedModel{responses: []string{"nope", "still nope", "[1, 2]"}}
		e := newParameterExtractorWithModel(model, ai.NewConfig(ai.WithMaxAttempts(3)), testSchema())

		_, err := e.ExtractParameters(ctx, "homes")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedResponse)
		assert.Equal(t, 3, model.calls)
	})

	t.Run("transport errors are returned", func(t *testing.T) {
		boom := errors.New("connection refused")
		model := &scriptedModel{err: boom}
		e := newParameterExtractorWithModel(model, ai.DefaultConfig(), testSchema())

		_, err := e.ExtractParameters(ctx, "homes")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("blank text skips the model", func(t *testing.T) {
		model := &scriptedModel{}
		e := newParameterExtractorWithModel(model, ai.DefaultConfig(), testSchema())

		params, err := e.ExtractParameters(ctx, "  \n ")
		require.NoError(t, err)
		assert.False(t, params.Mentioned())
		assert.Nil(t, model.messages)
	})
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := buildSystemPrompt(testSchema())

	assert.Contains(t, prompt, "California and Georgia")
	assert.Contains(t, prompt, `"condo", "single_family"`)
	assert.Contains(t, prompt, `"ca", "ga"`)
	assert.Contains(t, prompt, `"levels": []`)
	assert.Contains(t, prompt, `"price": "between 400k and 600k"`)
	assert.Contains(t, prompt, `"living_area": "100 square meters"`)
	assert.NotContains(t, prompt, "%!")
	for _, k := range ai.ParameterKeys {
		assert.Contains(t, prompt, `"`+k+`"`)
	}

	custom := buildSystemPrompt(ai.ExtractionSchema{Region: "Oregon"})
	assert.Contains(t, custom, "The listings come from Oregon.")
	assert.Contains(t, custom, "home_type values must be one of: any value.")
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"valid json untouched", `{"city": ["oakland"]}`, `{"city": ["oakland"]}`},
		{"missing opening quote", `{"city": [], home_type": ["condo"]}`, `{"city": [], "home_type": ["condo"]}`},
		{"trailing comma", `{"city": ["a", "b",], "price": null,}`, `{"city": ["a", "b"], "price": null}`},
		{"comma inside string kept", `{"description": "pool, spa,}"}`, `{"description": "pool, spa,}"}`},
		{"python none", `{"price": None}`, `{"price": null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.in))
		})
	}
}

func TestScrubString(t *testing.T) {
	assert.Equal(t, "condos between $400k-600k, 2+ baths", scrubString("  condos \"between\" $400k-600k,\n\t2+ baths "))
	assert.Equal(t, "", scrubString("\x00 \x07"))
}
