package aisvc

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/feedback"
)

// Providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderDummy  = "dummy"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewGenerator returns the generator of the configured provider, instrumented and bounded by the AI timeout.
// The returned closer releases the provider's client.
func NewGenerator(ctx context.Context, conf *core.Config, logger core.Logger) (feedback.Generator, io.Closer, error) {
	var (
		gen    feedback.Generator
		closer io.Closer = nopCloser{}
	)

	switch conf.AI.Provider {
	case ProviderOpenAI:
		g, err := newOpenAIGenerator(conf)
		if err != nil {
			return nil, nil, err
		}
		gen = g
	case ProviderGemini:
		g, err := newGeminiGenerator(ctx, conf)
		if err != nil {
			return nil, nil, err
		}
		gen, closer = g, g
	case ProviderDummy:
		gen = DummyGenerator{}
	default:
		return nil, nil, errors.Errorf("unknown AI provider %q", conf.AI.Provider)
	}

	logger.Info("AI provider: " + conf.AI.Provider)
	return instrumented{provider: conf.AI.Provider, timeout: conf.AI.Timeout, next: gen}, closer, nil
}
