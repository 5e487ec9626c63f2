// Package cache decorates a parameter extractor with a result cache so
// repeated natural-language requests skip the language model.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/homesearch/ai"
)

// keyPrefix namespaces extraction entries inside a shared cache.
const keyPrefix = "extract:"

// Extractor implements ai.ParameterExtractor by consulting a cache before
// delegating to the wrapped extractor. Cache failures are logged and ignored.
type Extractor struct {
	next   ai.ParameterExtractor
	client Client
	model  string
	ttl    time.Duration
	logger *slog.Logger
}

// NewExtractor wraps next with a cache. model distinguishes entries produced
// by different extraction models; ttl of zero keeps entries forever.
func NewExtractor(next ai.ParameterExtractor, client Client, model string, ttl time.Duration) *Extractor {
	return &Extractor{
		next:   next,
		client: client,
		model:  model,
		ttl:    ttl,
		logger: slog.Default().With("component", "extraction-cache"),
	}
}

// Key returns the cache key for a request text.
func (e *Extractor) Key(text string) string {
	sum := sha256.Sum256([]byte(e.model + "\x00" + strings.TrimSpace(text)))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// ExtractParameters returns the cached parameters for text, extracting and
// storing them on a miss.
func (e *Extractor) ExtractParameters(ctx context.Context, text string) (ai.ExtractedParameters, error) {
	key := e.Key(text)

	raw, err := e.client.Get(ctx, key)
	switch {
	case err == nil:
		var params ai.ExtractedParameters
		if err := json.Unmarshal(raw, &params); err == nil && params != nil {
			params.FillMissing()
			e.logger.Debug("cache hit", "key", key)
			return params, nil
		}
		e.logger.Warn("discarding unreadable cache entry", "key", key)
	case errors.Is(err, ErrCacheMiss):
	default:
		e.logger.Warn("cache lookup failed", "err", err)
	}

	params, err := e.next.ExtractParameters(ctx, text)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(params); err != nil {
		e.logger.Warn("failed to encode parameters for cache", "err", err)
	} else if err := e.client.Set(ctx, key, raw, e.ttl); err != nil {
		e.logger.Warn("cache store failed", "err", err)
	}
	return params, nil
}

// Purge removes every cached extraction.
func (e *Extractor) Purge(ctx context.Context) error {
	return e.client.DeleteByPrefix(ctx, keyPrefix)
}
