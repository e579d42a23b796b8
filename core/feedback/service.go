package feedback

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	ErrEmptyContent  = core.NewValidationError(errors.New("no content to process"))
	ErrInvalidAction = core.NewValidationError(errors.New("invalid action specified"))
)

const (
	ActionSummarize = "summarize"
	ActionEvaluate  = "evaluate"
)

type (
	// Generator is any external text-generation service.
	Generator interface {
		Generate(ctx context.Context, prompt Prompt) (string, error)
	}

	ServiceInterface interface {
		SubmissionFeedback(ctx context.Context, in SubmissionInput) (string, error)
		Summarize(ctx context.Context, content string) (string, error)
		Evaluate(ctx context.Context, descriptor, work string) (string, error)
	}

	Service struct {
		gen Generator
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(gen Generator) *Service {
	return &Service{gen: gen}
}

func (svc *Service) generate(ctx context.Context, prompt Prompt, fallback string) (string, error) {
	text, err := svc.gen.Generate(ctx, prompt)
	if err != nil {
		return "", errors.Wrapf(err, "generating %s", prompt.Kind)
	}
	if strings.TrimSpace(text) == "" {
		return fallback, nil
	}
	return text, nil
}

func (svc *Service) SubmissionFeedback(ctx context.Context, in SubmissionInput) (string, error) {
	return svc.generate(ctx, SubmissionPrompt(in), "No feedback generated")
}

func (svc *Service) Summarize(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}
	return svc.generate(ctx, SummaryPrompt(content), "No summary generated")
}

func (svc *Service) Evaluate(ctx context.Context, descriptor, work string) (string, error) {
	if strings.TrimSpace(work) == "" {
		return "", ErrEmptyContent
	}
	return svc.generate(ctx, EvaluationPrompt(descriptor, work), "No evaluation generated")
}
