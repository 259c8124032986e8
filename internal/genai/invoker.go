package genai

import (
	"context"
	"time"

	"github.com/medicloud/portal/pkg/config"
	"github.com/medicloud/portal/pkg/logger"
	"github.com/medicloud/portal/pkg/monitoring"
	"github.com/medicloud/portal/pkg/types"
)

// Invoker implements the model invocation layer: select the first viable
// backend candidate, submit the request once, and map failures to the
// recoverable ModelUnavailable / GenerationFailed classes. There are no
// retries beyond the candidate list.
type Invoker struct {
	candidates []string
	factory    BackendFactory
	timeout    time.Duration
	smokeTest  bool
	logger     *logger.Logger
}

// NewInvoker creates an invoker from the generative-model configuration
func NewInvoker(cfg *config.GenAIConfig, factory BackendFactory, log *logger.Logger) *Invoker {
	return &Invoker{
		candidates: cfg.Models,
		factory:    factory,
		timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		smokeTest:  cfg.SmokeTest,
		logger:     log,
	}
}

// Generate produces a single text result for the prompt and optional
// attachment. The returned model names the backend that produced it.
func (inv *Invoker) Generate(ctx context.Context, req *types.GenerationRequest) (string, string, error) {
	if req == nil || req.Prompt == "" {
		return "", "", types.NewValidationError(types.ErrCodeEmptyInput, "prompt must not be empty")
	}

	selectCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	backend, err := SelectFirstViable(selectCtx, inv.candidates, inv.factory, inv.smokeTest, inv.logger)
	if err != nil {
		monitoring.RecordModelInvocation("none", "unavailable", 0)
		return "", "", err
	}

	genCtx, cancelGen := context.WithTimeout(ctx, inv.timeout)
	defer cancelGen()

	start := time.Now()
	result, err := backend.Generate(genCtx, req)
	duration := time.Since(start)

	if err != nil {
		monitoring.RecordModelInvocation(backend.Name(), "failed", duration)
		inv.logger.WithField("model", backend.Name()).WithError(err).Error("Model generation failed")
		return "", backend.Name(), types.NewModelError(
			types.ErrCodeGenerationFailed,
			"model generation failed",
			err,
		)
	}

	monitoring.RecordModelInvocation(backend.Name(), "ok", duration)
	return result, backend.Name(), nil
}
