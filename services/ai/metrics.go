package aisvc

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trezcool/darasa/core/feedback"
)

var (
	generationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "darasa",
		Subsystem: "ai",
		Name:      "generations_total",
		Help:      "Text generations by provider, prompt kind and outcome.",
	}, []string{"provider", "kind", "outcome"})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "darasa",
		Subsystem: "ai",
		Name:      "generation_duration_seconds",
		Help:      "Duration of text generations.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
	}, []string{"provider", "kind"})
)

// instrumented bounds each generation by timeout and records its metrics.
type instrumented struct {
	provider string
	timeout  time.Duration
	next     feedback.Generator
}

var _ feedback.Generator = (*instrumented)(nil)

func (g instrumented) Generate(ctx context.Context, prompt feedback.Prompt) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.next.Generate(ctx, prompt)
	generationDuration.WithLabelValues(g.provider, string(prompt.Kind)).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	generationTotal.WithLabelValues(g.provider, string(prompt.Kind), outcome).Inc()
	return text, err
}
