package types

import "time"

// UserRole represents the two portal roles
type UserRole string

const (
	RoleDoctor  UserRole = "doctor"
	RolePatient UserRole = "patient"
)

// User represents a doctor account. Patients authenticate against their
// PatientRecord instead.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Credentials represents login input
type Credentials struct {
	Role     UserRole `json:"role"`
	LoginID  string   `json:"login_id"`
	Password string   `json:"password"`
}

// Session is the per-session context created at login and threaded through
// every handler. There is deliberately no process-wide session state.
type Session struct {
	SubjectID string    `json:"subject_id"`
	LoginID   string    `json:"login_id"`
	Name      string    `json:"name"`
	Role      UserRole  `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
}

// AuthToken represents the login response
type AuthToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	Role        UserRole  `json:"role"`
	Name        string    `json:"name"`
	IssuedAt    time.Time `json:"issued_at"`
}
