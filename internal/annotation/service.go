package annotation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medicloud/portal/pkg/interfaces"
	"github.com/medicloud/portal/pkg/logger"
	"github.com/medicloud/portal/pkg/types"
)

// Service implements the annotation pipeline: one doctor submission turns
// into one durable history entry, or into a recoverable error and no entry
// at all.
type Service struct {
	invoker interfaces.ModelInvoker
	ledger  interfaces.HistoryLedger
	now     func() time.Time
	logger  *logger.Logger
}

// NewService creates a new annotation service
func NewService(invoker interfaces.ModelInvoker, ledger interfaces.HistoryLedger, log *logger.Logger) *Service {
	return &Service{
		invoker: invoker,
		ledger:  ledger,
		now:     time.Now,
		logger:  log,
	}
}

// Annotate runs the validate, generate, append sequence for one submission.
// Validation failures happen before any side effect; the append happens only
// after generation (and, in structured mode, parsing) fully succeeded, so a
// failed attempt leaves the history untouched and never half-written.
func (s *Service) Annotate(ctx context.Context, req *types.AnnotationRequest) (*types.AnnotationResult, error) {
	if strings.TrimSpace(req.Notes) == "" && req.Attachment == nil {
		return nil, types.NewValidationError(
			types.ErrCodeEmptyInput,
			"provide notes, an uploaded report, or both",
		)
	}

	prompt := buildPrompt(req.Notes, req.Structured)

	genReq := &types.GenerationRequest{
		Prompt:     prompt,
		Attachment: req.Attachment,
	}

	raw, model, err := s.invoker.Generate(ctx, genReq)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"login_id": req.PatientLoginID,
		}).WithError(err).Warn("Annotation generation failed")
		return nil, err
	}

	summary := raw
	var alerts []string
	if req.Structured {
		summary, alerts, err = parseStructuredOutput(raw)
		if err != nil {
			s.logger.WithFields(map[string]interface{}{
				"login_id": req.PatientLoginID,
				"model":    model,
			}).Warn("Model output failed structured parse")
			return nil, err
		}
	}

	entry := types.HistoryEntry{
		EntryID: uuid.New().String(),
		Date:    s.now().Format(types.HistoryDateFormat),
		Summary: summary,
		Alerts:  alerts,
	}

	if err := s.ledger.Append(ctx, req.PatientLoginID, entry); err != nil {
		return nil, err
	}

	s.logger.Audit("", "annotate_patient", req.PatientLoginID, true, map[string]interface{}{
		"entry_id": entry.EntryID,
		"model":    model,
	})

	return &types.AnnotationResult{
		Summary: summary,
		Alerts:  alerts,
		Entry:   entry,
		Model:   model,
	}, nil
}

// History returns a patient's history in stored chronological order
func (s *Service) History(ctx context.Context, loginID string) ([]types.HistoryEntry, error) {
	return s.ledger.Read(ctx, loginID)
}
