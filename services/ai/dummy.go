package aisvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/darasa/core/feedback"
)

// DummyGenerator answers every prompt with a canned text. Used in development and tests.
type DummyGenerator struct {
	// Err, if set, is returned by every call.
	Err error
}

var _ feedback.Generator = (*DummyGenerator)(nil)

func (g DummyGenerator) Generate(ctx context.Context, prompt feedback.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.Err != nil {
		return "", g.Err
	}

	kind := string(prompt.Kind)
	if kind != "" {
		kind = strings.ToUpper(kind[:1]) + kind[1:]
	}
	lines := strings.SplitN(strings.TrimSpace(prompt.User), "\n", 2)
	return fmt.Sprintf("## %s\n\n- %s", kind, lines[0]), nil
}
