package interfaces

import (
	"context"

	"github.com/medicloud/portal/pkg/types"
)

// PatientRepository defines the interface for patient record persistence
type PatientRepository interface {
	Create(ctx context.Context, patient *types.PatientRecord) (*types.PatientRecord, error)
	GetByLoginID(ctx context.Context, loginID string) (*types.PatientRecord, error)
	List(ctx context.Context) ([]*types.PatientSummary, error)
	// CompareAndSwapHistory replaces the stored history only when the row
	// still carries expectedVersion. Returns true when the swap took effect.
	CompareAndSwapHistory(ctx context.Context, loginID string, history []types.HistoryEntry, expectedVersion int) (bool, error)
}

// UserRepository defines the interface for doctor account persistence
type UserRepository interface {
	Create(ctx context.Context, user *types.User) error
	GetByUsername(ctx context.Context, username string) (*types.User, error)
}

// ModelInvoker defines the model invocation layer: try candidates in
// preference order, return a normalized text result or a typed failure.
type ModelInvoker interface {
	Generate(ctx context.Context, req *types.GenerationRequest) (result string, model string, err error)
}

// HistoryLedger defines the append-only per-patient history
type HistoryLedger interface {
	Append(ctx context.Context, loginID string, entry types.HistoryEntry) error
	Read(ctx context.Context, loginID string) ([]types.HistoryEntry, error)
}

// PasswordManager defines password hashing and verification
type PasswordManager interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hashedPassword, password string) (bool, error)
}
