package mock

import (
	"context"
	"maps"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/poiesic/homesearch/ai"
)

// MockParameterExtractor is a test double for ai.ParameterExtractor.
// It allows custom behavior injection via function fields or canned responses.
type MockParameterExtractor struct {
	// ExtractParametersFunc is called by ExtractParameters if set.
	ExtractParametersFunc func(ctx context.Context, text string) (ai.ExtractedParameters, error)

	// Responses maps a request text to the parameters returned for it.
	// Keys missing from a response are filled with their null value.
	Responses map[string]ai.ExtractedParameters

	mu        sync.Mutex
	texts     []string
	callCount atomic.Int64
}

// NewMockParameterExtractor creates a mock parameter extractor with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockExtractor().
func NewMockParameterExtractor() *MockParameterExtractor {
	return &MockParameterExtractor{Responses: make(map[string]ai.ExtractedParameters)}
}

// ExtractParameters returns the canned response for text when one exists.
// Default behavior: every key null except description, which holds the text.
func (m *MockParameterExtractor) ExtractParameters(ctx context.Context, text string) (ai.ExtractedParameters, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.ExtractParametersFunc != nil {
		return m.ExtractParametersFunc(ctx, text)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if canned, ok := m.Responses[text]; ok {
		params := maps.Clone(canned)
		params.FillMissing()
		return params, nil
	}

	params := ai.EmptyParameters()
	if text = strings.TrimSpace(text); text != "" {
		params[ai.KeyDescription] = text
	}
	return params, nil
}

// CallCount returns the number of times ExtractParameters was called.
func (m *MockParameterExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Texts returns the request texts seen so far, in call order.
func (m *MockParameterExtractor) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Reset clears the call count, recorded texts and custom behavior.
func (m *MockParameterExtractor) Reset() {
	m.callCount.Store(0)
	m.mu.Lock()
	m.texts = nil
	m.mu.Unlock()
	m.ExtractParametersFunc = nil
	m.Responses = make(map[string]ai.ExtractedParameters)
}
