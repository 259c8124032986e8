package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/medicloud/portal/pkg/logger"
	"github.com/medicloud/portal/pkg/types"
)

// PatientRepository handles patient record persistence over Postgres.
// The history column is JSONB; summaries are stored byte-identical with no
// escaping applied on top of JSON encoding.
type PatientRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *sql.DB, log *logger.Logger) *PatientRepository {
	return &PatientRepository{
		db:     db,
		logger: log,
	}
}

// Create inserts a new patient record with an empty history
func (r *PatientRepository) Create(ctx context.Context, patient *types.PatientRecord) (*types.PatientRecord, error) {
	patient.ID = uuid.New().String()
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = patient.CreatedAt
	if patient.MedicalHistory == nil {
		patient.MedicalHistory = []types.HistoryEntry{}
	}

	historyJSON, err := json.Marshal(patient.MedicalHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}

	query := `
		INSERT INTO patients (
			id, login_id, name, password_hash, medical_history,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.ExecContext(ctx, query,
		patient.ID,
		patient.LoginID,
		patient.Name,
		patient.PasswordHash,
		historyJSON,
		patient.Version,
		patient.CreatedAt,
		patient.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, &types.PortalError{
				Type:    types.ErrorTypeValidation,
				Code:    types.ErrCodeDuplicateLoginID,
				Message: "Login ID already exists",
			}
		}
		return nil, types.NewStoreError(types.ErrCodeStoreUnavailable, "failed to create patient", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"patient_id": patient.ID,
		"login_id":   patient.LoginID,
	}).Info("Created patient record")
	return patient, nil
}

// GetByLoginID retrieves a patient by login ID. A null or absent stored
// history decodes as an empty sequence.
func (r *PatientRepository) GetByLoginID(ctx context.Context, loginID string) (*types.PatientRecord, error) {
	query := `
		SELECT id, login_id, name, password_hash, medical_history,
			   version, created_at, updated_at
		FROM patients
		WHERE login_id = $1`

	var patient types.PatientRecord
	var historyJSON []byte

	err := r.db.QueryRowContext(ctx, query, loginID).Scan(
		&patient.ID,
		&patient.LoginID,
		&patient.Name,
		&patient.PasswordHash,
		&historyJSON,
		&patient.Version,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &types.PortalError{
				Type:    types.ErrorTypeNotFound,
				Code:    types.ErrCodePatientNotFound,
				Message: fmt.Sprintf("Patient not found: %s", loginID),
			}
		}
		return nil, types.NewStoreError(types.ErrCodeStoreUnavailable, "failed to get patient", err)
	}

	patient.MedicalHistory = decodeHistory(historyJSON)
	return &patient, nil
}

// decodeHistory decodes the stored history defensively: null, absent, or
// undecodable values become an empty sequence rather than a nil slice.
func decodeHistory(raw []byte) []types.HistoryEntry {
	if len(raw) == 0 || string(raw) == "null" {
		return []types.HistoryEntry{}
	}

	var history []types.HistoryEntry
	if err := json.Unmarshal(raw, &history); err != nil || history == nil {
		return []types.HistoryEntry{}
	}
	return history
}

// List returns name and login ID for every registered patient, newest first
func (r *PatientRepository) List(ctx context.Context) ([]*types.PatientSummary, error) {
	query := `
		SELECT login_id, name
		FROM patients
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, types.NewStoreError(types.ErrCodeStoreUnavailable, "failed to list patients", err)
	}
	defer rows.Close()

	var patients []*types.PatientSummary
	for rows.Next() {
		var p types.PatientSummary
		if err := rows.Scan(&p.LoginID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan patient row: %w", err)
		}
		patients = append(patients, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patient rows: %w", err)
	}

	return patients, nil
}

// CompareAndSwapHistory writes the full history back only when the stored
// version still matches expectedVersion. Either the whole new sequence is
// visible afterwards or the row is untouched.
func (r *PatientRepository) CompareAndSwapHistory(ctx context.Context, loginID string, history []types.HistoryEntry, expectedVersion int) (bool, error) {
	if history == nil {
		history = []types.HistoryEntry{}
	}

	historyJSON, err := json.Marshal(history)
	if err != nil {
		return false, fmt.Errorf("failed to marshal history: %w", err)
	}

	query := `
		UPDATE patients
		SET medical_history = $1, version = version + 1, updated_at = $2
		WHERE login_id = $3 AND version = $4`

	result, err := r.db.ExecContext(ctx, query, historyJSON, time.Now(), loginID, expectedVersion)
	if err != nil {
		return false, types.NewStoreError(types.ErrCodeStoreUnavailable, "failed to write history", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}
