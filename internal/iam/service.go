package iam

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medicloud/portal/pkg/config"
	"github.com/medicloud/portal/pkg/interfaces"
	"github.com/medicloud/portal/pkg/logger"
	"github.com/medicloud/portal/pkg/monitoring"
	"github.com/medicloud/portal/pkg/types"
)

// registrationAttempts bounds retries when a freshly generated login ID
// collides with an existing one
const registrationAttempts = 5

// Service implements the login gate and patient registration
type Service struct {
	config      *config.Config
	logger      *logger.Logger
	users       interfaces.UserRepository
	patients    interfaces.PatientRepository
	passwords   interfaces.PasswordManager
	credentials *CredentialGenerator
}

// NewService creates a new IAM service instance
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	users interfaces.UserRepository,
	patients interfaces.PatientRepository,
	passwords interfaces.PasswordManager,
) *Service {
	return &Service{
		config:      cfg,
		logger:      log,
		users:       users,
		patients:    patients,
		passwords:   passwords,
		credentials: NewCredentialGenerator(),
	}
}

// EnsureDoctorAccount seeds the configured doctor account when it does not
// exist yet. Called once at startup, before serving.
func (s *Service) EnsureDoctorAccount(ctx context.Context) error {
	if existing, _ := s.users.GetByUsername(ctx, s.config.Doctor.Username); existing != nil {
		return nil
	}

	hash, err := s.passwords.HashPassword(s.config.Doctor.InitialPassword)
	if err != nil {
		return fmt.Errorf("failed to hash doctor password: %w", err)
	}

	now := time.Now()
	user := &types.User{
		ID:           uuid.New().String(),
		Username:     s.config.Doctor.Username,
		PasswordHash: hash,
		Role:         types.RoleDoctor,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to seed doctor account: %w", err)
	}

	s.logger.WithField("username", user.Username).Info("Seeded doctor account")
	return nil
}

// Login authenticates either role and returns a session token. Invalid
// credentials produce the same error regardless of which check failed.
func (s *Service) Login(ctx context.Context, credentials *types.Credentials) (*types.AuthToken, error) {
	invalid := types.NewAuthenticationError(
		types.ErrCodeInvalidCredentials,
		"Invalid login ID or password",
	)

	var session *types.Session

	switch credentials.Role {
	case types.RoleDoctor:
		user, err := s.users.GetByUsername(ctx, credentials.LoginID)
		if err != nil || !user.IsActive {
			monitoring.RecordAuthAttempt(string(types.RoleDoctor), "failed")
			return nil, invalid
		}

		ok, err := s.passwords.VerifyPassword(user.PasswordHash, credentials.Password)
		if err != nil || !ok {
			monitoring.RecordAuthAttempt(string(types.RoleDoctor), "failed")
			s.logger.Security("doctor_login_failed", credentials.LoginID, nil)
			return nil, invalid
		}

		session = &types.Session{
			SubjectID: user.ID,
			LoginID:   user.Username,
			Name:      user.Username,
			Role:      types.RoleDoctor,
			IssuedAt:  time.Now(),
		}

	case types.RolePatient:
		patient, err := s.patients.GetByLoginID(ctx, credentials.LoginID)
		if err != nil {
			monitoring.RecordAuthAttempt(string(types.RolePatient), "failed")
			return nil, invalid
		}

		ok, err := s.passwords.VerifyPassword(patient.PasswordHash, credentials.Password)
		if err != nil || !ok {
			monitoring.RecordAuthAttempt(string(types.RolePatient), "failed")
			s.logger.Security("patient_login_failed", credentials.LoginID, nil)
			return nil, invalid
		}

		session = &types.Session{
			SubjectID: patient.ID,
			LoginID:   patient.LoginID,
			Name:      patient.Name,
			Role:      types.RolePatient,
			IssuedAt:  time.Now(),
		}

	default:
		return nil, types.NewValidationError("INVALID_ROLE", "Role must be doctor or patient")
	}

	token, err := s.issueToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	monitoring.RecordAuthAttempt(string(session.Role), "ok")
	s.logger.Audit(session.SubjectID, "login", string(session.Role), true, nil)

	return &types.AuthToken{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.config.JWT.AccessTokenTTL),
		Role:        session.Role,
		Name:        session.Name,
		IssuedAt:    session.IssuedAt,
	}, nil
}

// RegisterPatient creates a patient record with generated credentials and
// an empty history. The returned plaintext password exists only in this
// response.
func (s *Service) RegisterPatient(ctx context.Context, req *types.PatientRegistrationRequest) (*types.PatientRegistrationResult, error) {
	if req.Name == "" {
		return nil, types.NewValidationError(types.ErrCodeEmptyInput, "Patient name is required")
	}

	password, err := s.credentials.GeneratePassword()
	if err != nil {
		return nil, err
	}

	hash, err := s.passwords.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash patient password: %w", err)
	}

	for attempt := 0; attempt < registrationAttempts; attempt++ {
		loginID, err := s.credentials.GenerateLoginID()
		if err != nil {
			return nil, err
		}

		patient := &types.PatientRecord{
			LoginID:        loginID,
			Name:           req.Name,
			PasswordHash:   hash,
			MedicalHistory: []types.HistoryEntry{},
		}

		_, err = s.patients.Create(ctx, patient)
		if err == nil {
			s.logger.Audit("", "register_patient", loginID, true, nil)
			return &types.PatientRegistrationResult{
				LoginID:  loginID,
				Password: password,
				Name:     req.Name,
			}, nil
		}

		if types.IsCode(err, types.ErrCodeDuplicateLoginID) {
			continue
		}
		return nil, err
	}

	return nil, types.NewInternalError(
		types.ErrCodeInternalError,
		"could not allocate a unique login ID",
		nil,
	)
}

// ListPatients returns the doctor-menu patient listing
func (s *Service) ListPatients(ctx context.Context) ([]*types.PatientSummary, error) {
	return s.patients.List(ctx)
}

// issueToken signs a session JWT
func (s *Service) issueToken(session *types.Session) (string, error) {
	claims := jwt.MapClaims{
		"sub":      session.SubjectID,
		"login_id": session.LoginID,
		"name":     session.Name,
		"role":     string(session.Role),
		"iss":      s.config.JWT.Issuer,
		"iat":      session.IssuedAt.Unix(),
		"exp":      session.IssuedAt.Add(time.Duration(s.config.JWT.AccessTokenTTL) * time.Second).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWT.SecretKey))
}

// ParseToken validates a session JWT and rebuilds the session context
func (s *Service) ParseToken(tokenString string) (*types.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWT.SecretKey), nil
	})

	if err != nil || !token.Valid {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid token claims")
	}

	subjectID, _ := claims["sub"].(string)
	loginID, _ := claims["login_id"].(string)
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)

	if subjectID == "" || role == "" {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid token claims")
	}

	iat := time.Time{}
	if issued, ok := claims["iat"].(float64); ok {
		iat = time.Unix(int64(issued), 0)
	}

	return &types.Session{
		SubjectID: subjectID,
		LoginID:   loginID,
		Name:      name,
		Role:      types.UserRole(role),
		IssuedAt:  iat,
	}, nil
}
