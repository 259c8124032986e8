package ledger

import (
	"context"

	"github.com/medicloud/portal/pkg/interfaces"
	"github.com/medicloud/portal/pkg/logger"
	"github.com/medicloud/portal/pkg/monitoring"
	"github.com/medicloud/portal/pkg/types"
)

// casAttempts bounds version-conflict retries on a single append
const casAttempts = 3

// Ledger is the append-only per-patient history abstraction. Entries are
// only ever appended at the tail; stored order is chronological order, and
// callers wanting reverse-chronological display invert it themselves.
type Ledger struct {
	patients interfaces.PatientRepository
	logger   *logger.Logger
}

// New creates a ledger over the patient repository
func New(patients interfaces.PatientRepository, log *logger.Logger) *Ledger {
	return &Ledger{
		patients: patients,
		logger:   log,
	}
}

// Append reads the current history, appends entry at the tail, and writes
// the sequence back under a version check. A concurrent writer moves the
// version and the attempt is retried from a fresh read, so a lost update
// cannot occur. Either the full new sequence becomes visible or the stored
// sequence is unchanged.
func (l *Ledger) Append(ctx context.Context, loginID string, entry types.HistoryEntry) error {
	for attempt := 0; attempt < casAttempts; attempt++ {
		patient, err := l.patients.GetByLoginID(ctx, loginID)
		if err != nil {
			return err
		}

		history := append(patient.MedicalHistory, entry)

		swapped, err := l.patients.CompareAndSwapHistory(ctx, loginID, history, patient.Version)
		if err != nil {
			return err
		}

		if swapped {
			l.logger.WithFields(map[string]interface{}{
				"login_id": loginID,
				"entries":  len(history),
			}).Info("History entry appended")
			return nil
		}

		monitoring.RecordAppendConflict()
		l.logger.WithFields(map[string]interface{}{
			"login_id": loginID,
			"attempt":  attempt + 1,
		}).Warn("History append version conflict, retrying")
	}

	return types.NewStoreError(
		types.ErrCodeStoreUnavailable,
		"history append kept conflicting with concurrent writers",
		nil,
	)
}

// Read returns the full history in stored chronological order
func (l *Ledger) Read(ctx context.Context, loginID string) ([]types.HistoryEntry, error) {
	patient, err := l.patients.GetByLoginID(ctx, loginID)
	if err != nil {
		return nil, err
	}
	return patient.MedicalHistory, nil
}
