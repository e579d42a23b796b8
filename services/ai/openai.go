package aisvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/feedback"
)

type openAIGenerator struct {
	client       *openai.Client
	model        string
	summaryModel string
	temperature  float32
	maxTokens    int
}

var _ feedback.Generator = (*openAIGenerator)(nil)

func newOpenAIGenerator(conf *core.Config) (*openAIGenerator, error) {
	if conf.AI.OpenAIKey == "" {
		return nil, errors.New("missing OpenAI API key")
	}
	cfg := openai.DefaultConfig(conf.AI.OpenAIKey)
	if conf.AI.OpenAIBaseURL != "" {
		cfg.BaseURL = conf.AI.OpenAIBaseURL
	}
	return &openAIGenerator{
		client:       openai.NewClientWithConfig(cfg),
		model:        conf.AI.Model,
		summaryModel: conf.AI.SummaryModel,
		temperature:  conf.AI.Temperature,
		maxTokens:    conf.AI.MaxTokens,
	}, nil
}

// modelFor uses the main model for submission feedback and the summary model for the rest.
func (g openAIGenerator) modelFor(kind feedback.Kind) string {
	if kind != feedback.KindSubmission && g.summaryModel != "" {
		return g.summaryModel
	}
	return g.model
}

func (g openAIGenerator) Generate(ctx context.Context, prompt feedback.Prompt) (string, error) {
	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}

	req := openai.ChatCompletionRequest{
		Model: g.modelFor(prompt.Kind),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		Temperature: g.temperature,
		MaxTokens:   maxTokens,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "OpenAI API call failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
