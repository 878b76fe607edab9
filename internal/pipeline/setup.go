package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/bhnan/Long-text-evaluation/internal/config"
	"github.com/bhnan/Long-text-evaluation/internal/llm"
	"github.com/bhnan/Long-text-evaluation/internal/ratelimit"
	"github.com/bhnan/Long-text-evaluation/internal/rubric"
)

// Stack is the set of shared components a binary builds once.
type Stack struct {
	Runner  *Runner
	Gateway *llm.Gateway
	Limiter *ratelimit.Limiter
}

// Build wires the model client, shared limiter, gateway and runner from cfg.
func Build(cfg config.Config, log *slog.Logger) (*Stack, error) {
	rb, err := loadRubric(cfg.RubricFile)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewClient(cfg.LLMSettings())
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	limiter := ratelimit.New(cfg.RateLimitRPM, cfg.RateLimitTPM)
	gw := llm.NewGateway(client, limiter, cfg.LLMTimeout, log)

	return &Stack{
		Runner: &Runner{
			Gateway:       gw,
			Rubric:        rb,
			Granularity:   cfg.Granularity,
			MaxAttempts:   cfg.LLMMaxAttempts,
			CheckpointDir: cfg.CheckpointDir,
			ResultsDir:    cfg.ResultsDir,
			ReportDir:     cfg.ReportDir,
			Log:           log,
		},
		Gateway: gw,
		Limiter: limiter,
	}, nil
}

func loadRubric(path string) (*rubric.Rubric, error) {
	if path == "" {
		return rubric.Default()
	}
	return rubric.Load(path)
}
