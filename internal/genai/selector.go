package genai

import (
	"context"

	"github.com/medicloud/portal/pkg/logger"
	"github.com/medicloud/portal/pkg/types"
)

// SelectFirstViable walks the candidate list in preference order and returns
// the first backend that can be constructed and, when smokeTest is set,
// answers a probe generation. When no candidate is viable it returns a
// ModelUnavailable error.
func SelectFirstViable(ctx context.Context, candidates []string, factory BackendFactory, smokeTest bool, log *logger.Logger) (Backend, error) {
	for _, model := range candidates {
		backend, err := factory(model)
		if err != nil {
			log.WithFields(map[string]interface{}{
				"model": model,
			}).WithError(err).Warn("Model candidate failed to initialize")
			continue
		}

		if smokeTest {
			if err := backend.Probe(ctx); err != nil {
				log.WithFields(map[string]interface{}{
					"model": model,
				}).WithError(err).Warn("Model candidate failed smoke test")
				continue
			}
		}

		log.WithField("model", backend.Name()).Info("Selected model backend")
		return backend, nil
	}

	return nil, types.NewModelError(
		types.ErrCodeModelUnavailable,
		"no model backend available",
		nil,
	)
}
