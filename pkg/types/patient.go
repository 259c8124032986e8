package types

import "time"

// HistoryDateFormat is the wall-clock format recorded on history entries,
// minute granularity.
const HistoryDateFormat = "2006-01-02 15:04"

// PatientRecord represents a registered patient and their annotation history
type PatientRecord struct {
	ID             string         `json:"id" db:"id"`
	LoginID        string         `json:"login_id" db:"login_id"`
	Name           string         `json:"name" db:"name"`
	PasswordHash   string         `json:"-" db:"password_hash"`
	MedicalHistory []HistoryEntry `json:"medical_history"`
	// Version guards history writes: every successful append increments it,
	// and writers must present the version they read.
	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HistoryEntry is one timestamped AI-generated annotation in a patient's
// history. Entries are append-only: never reordered, never deleted.
type HistoryEntry struct {
	EntryID string   `json:"entry_id"`
	Date    string   `json:"date"`
	Summary string   `json:"summary"`
	Alerts  []string `json:"alerts,omitempty"`
}

// PatientSummary carries the fields the doctor menu needs to populate its
// patient selector.
type PatientSummary struct {
	LoginID string `json:"login_id"`
	Name    string `json:"name"`
}

// PatientRegistrationRequest represents doctor-side registration input
type PatientRegistrationRequest struct {
	Name string `json:"name"`
}

// PatientRegistrationResult returns the generated credentials. The plaintext
// password exists only in this response; the store keeps a bcrypt hash.
type PatientRegistrationResult struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
