package aisvc

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/feedback"
)

type geminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int
}

var _ feedback.Generator = (*geminiGenerator)(nil)

func newGeminiGenerator(ctx context.Context, conf *core.Config) (*geminiGenerator, error) {
	if conf.AI.GeminiKey == "" {
		return nil, errors.New("missing Gemini API key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(conf.AI.GeminiKey))
	if err != nil {
		return nil, errors.Wrap(err, "creating Gemini client")
	}
	return &geminiGenerator{
		client:      client,
		model:       conf.AI.GeminiModel,
		temperature: conf.AI.Temperature,
		maxTokens:   conf.AI.MaxTokens,
	}, nil
}

func (g geminiGenerator) Generate(ctx context.Context, prompt feedback.Prompt) (string, error) {
	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}

	// settings vary per prompt, so each call gets its own model handle
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)
	model.SetMaxOutputTokens(int32(maxTokens))
	if prompt.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.System)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt.User))
	if err != nil {
		return "", errors.Wrap(err, "Gemini API call failed")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("Gemini returned no candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String(), nil
}

func (g geminiGenerator) Close() error {
	return g.client.Close()
}
