package iam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medicloud/portal/pkg/config"
	"github.com/medicloud/portal/pkg/logger"
	"github.com/medicloud/portal/pkg/types"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

type MockPatientRepository struct {
	mock.Mock
}

func (m *MockPatientRepository) Create(ctx context.Context, patient *types.PatientRecord) (*types.PatientRecord, error) {
	args := m.Called(ctx, patient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PatientRecord), args.Error(1)
}

func (m *MockPatientRepository) GetByLoginID(ctx context.Context, loginID string) (*types.PatientRecord, error) {
	args := m.Called(ctx, loginID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PatientRecord), args.Error(1)
}

func (m *MockPatientRepository) List(ctx context.Context) ([]*types.PatientSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.PatientSummary), args.Error(1)
}

func (m *MockPatientRepository) CompareAndSwapHistory(ctx context.Context, loginID string, history []types.HistoryEntry, expectedVersion int) (bool, error) {
	args := m.Called(ctx, loginID, history, expectedVersion)
	return args.Bool(0), args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			SecretKey:      "test-secret-key",
			AccessTokenTTL: 3600,
			Issuer:         "medicloud-portal",
		},
		Doctor: config.DoctorConfig{
			Username:        "admin",
			InitialPassword: "admin1234",
		},
	}
}

func setupTestService() (*Service, *MockUserRepository, *MockPatientRepository, *PasswordManager) {
	users := new(MockUserRepository)
	patients := new(MockPatientRepository)
	passwords := NewPasswordManager()
	svc := NewService(testConfig(), logger.New("debug"), users, patients, passwords)
	return svc, users, patients, passwords
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("doctor login succeeds with correct password", func(t *testing.T) {
		svc, users, _, passwords := setupTestService()

		hash, err := passwords.HashPassword("doctorpass")
		require.NoError(t, err)

		users.On("GetByUsername", ctx, "admin").Return(&types.User{
			ID:           "doc-1",
			Username:     "admin",
			PasswordHash: hash,
			Role:         types.RoleDoctor,
			IsActive:     true,
		}, nil)

		token, err := svc.Login(ctx, &types.Credentials{
			Role:     types.RoleDoctor,
			LoginID:  "admin",
			Password: "doctorpass",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, token.AccessToken)
		assert.Equal(t, "Bearer", token.TokenType)
		assert.Equal(t, types.RoleDoctor, token.Role)
	})

	t.Run("doctor login fails with wrong password", func(t *testing.T) {
		svc, users, _, passwords := setupTestService()

		hash, err := passwords.HashPassword("doctorpass")
		require.NoError(t, err)

		users.On("GetByUsername", ctx, "admin").Return(&types.User{
			ID:           "doc-1",
			Username:     "admin",
			PasswordHash: hash,
			IsActive:     true,
		}, nil)

		_, err = svc.Login(ctx, &types.Credentials{
			Role:     types.RoleDoctor,
			LoginID:  "admin",
			Password: "wrong",
		})

		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrCodeInvalidCredentials))
	})

	t.Run("inactive doctor account is rejected", func(t *testing.T) {
		svc, users, _, passwords := setupTestService()

		hash, err := passwords.HashPassword("doctorpass")
		require.NoError(t, err)

		users.On("GetByUsername", ctx, "admin").Return(&types.User{
			ID:           "doc-1",
			Username:     "admin",
			PasswordHash: hash,
			IsActive:     false,
		}, nil)

		_, err = svc.Login(ctx, &types.Credentials{
			Role:     types.RoleDoctor,
			LoginID:  "admin",
			Password: "doctorpass",
		})

		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrCodeInvalidCredentials))
	})

	t.Run("patient login succeeds with correct password", func(t *testing.T) {
		svc, _, patients, passwords := setupTestService()

		hash, err := passwords.HashPassword("abc12def")
		require.NoError(t, err)

		patients.On("GetByLoginID", ctx, "PAT-AB12CD").Return(&types.PatientRecord{
			ID:           "pat-1",
			LoginID:      "PAT-AB12CD",
			Name:         "Jordan Reyes",
			PasswordHash: hash,
		}, nil)

		token, err := svc.Login(ctx, &types.Credentials{
			Role:     types.RolePatient,
			LoginID:  "PAT-AB12CD",
			Password: "abc12def",
		})

		require.NoError(t, err)
		assert.Equal(t, types.RolePatient, token.Role)
		assert.Equal(t, "Jordan Reyes", token.Name)
	})

	t.Run("unknown patient and wrong password yield the same error", func(t *testing.T) {
		svc, _, patients, passwords := setupTestService()

		hash, err := passwords.HashPassword("abc12def")
		require.NoError(t, err)

		patients.On("GetByLoginID", ctx, "PAT-MISSING").Return(nil,
			types.NewNotFoundError(types.ErrCodePatientNotFound, "patient not found"))
		patients.On("GetByLoginID", ctx, "PAT-AB12CD").Return(&types.PatientRecord{
			ID:           "pat-1",
			LoginID:      "PAT-AB12CD",
			PasswordHash: hash,
		}, nil)

		_, errMissing := svc.Login(ctx, &types.Credentials{
			Role: types.RolePatient, LoginID: "PAT-MISSING", Password: "abc12def",
		})
		_, errWrongPass := svc.Login(ctx, &types.Credentials{
			Role: types.RolePatient, LoginID: "PAT-AB12CD", Password: "nope",
		})

		require.Error(t, errMissing)
		require.Error(t, errWrongPass)
		assert.Equal(t, errMissing.Error(), errWrongPass.Error())
		assert.True(t, types.IsCode(errMissing, types.ErrCodeInvalidCredentials))
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		svc, _, _, _ := setupTestService()

		_, err := svc.Login(ctx, &types.Credentials{
			Role: "nurse", LoginID: "x", Password: "y",
		})

		require.Error(t, err)
		assert.True(t, types.IsCode(err, "INVALID_ROLE"))
	})
}

func TestService_ParseToken(t *testing.T) {
	ctx := context.Background()

	t.Run("issued token round-trips to the session context", func(t *testing.T) {
		svc, users, _, passwords := setupTestService()

		hash, err := passwords.HashPassword("doctorpass")
		require.NoError(t, err)

		users.On("GetByUsername", ctx, "admin").Return(&types.User{
			ID:           "doc-1",
			Username:     "admin",
			PasswordHash: hash,
			IsActive:     true,
		}, nil)

		token, err := svc.Login(ctx, &types.Credentials{
			Role: types.RoleDoctor, LoginID: "admin", Password: "doctorpass",
		})
		require.NoError(t, err)

		session, err := svc.ParseToken(token.AccessToken)

		require.NoError(t, err)
		assert.Equal(t, "doc-1", session.SubjectID)
		assert.Equal(t, "admin", session.LoginID)
		assert.Equal(t, types.RoleDoctor, session.Role)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		svc, _, _, _ := setupTestService()

		_, err := svc.ParseToken("not.a.token")

		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrCodeUnauthorized))
	})

	t.Run("token signed with a different key is rejected", func(t *testing.T) {
		svc, users, _, passwords := setupTestService()

		hash, err := passwords.HashPassword("doctorpass")
		require.NoError(t, err)
		users.On("GetByUsername", ctx, "admin").Return(&types.User{
			ID: "doc-1", Username: "admin", PasswordHash: hash, IsActive: true,
		}, nil)

		token, err := svc.Login(ctx, &types.Credentials{
			Role: types.RoleDoctor, LoginID: "admin", Password: "doctorpass",
		})
		require.NoError(t, err)

		other := NewService(&config.Config{
			JWT: config.JWTConfig{SecretKey: "different-secret", AccessTokenTTL: 3600, Issuer: "medicloud-portal"},
		}, logger.New("debug"), users, nil, passwords)

		_, err = other.ParseToken(token.AccessToken)

		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrCodeUnauthorized))
	})
}

func TestService_RegisterPatient(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a patient with generated credentials and a hashed password", func(t *testing.T) {
		svc, _, patients, passwords := setupTestService()

		var created *types.PatientRecord
		patients.On("Create", ctx, mock.AnythingOfType("*types.PatientRecord")).Run(func(args mock.Arguments) {
			created = args.Get(1).(*types.PatientRecord)
		}).Return(&types.PatientRecord{}, nil)

		result, err := svc.RegisterPatient(ctx, &types.PatientRegistrationRequest{Name: "Jordan Reyes"})

		require.NoError(t, err)
		assert.Regexp(t, `^PAT-[A-Z0-9]{6}$`, result.LoginID)
		assert.Regexp(t, `^[a-z0-9]{8}$`, result.Password)
		assert.Equal(t, "Jordan Reyes", result.Name)

		require.NotNil(t, created)
		assert.NotEqual(t, result.Password, created.PasswordHash)
		ok, err := passwords.VerifyPassword(created.PasswordHash, result.Password)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NotNil(t, created.MedicalHistory)
		assert.Empty(t, created.MedicalHistory)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		svc, _, patients, _ := setupTestService()

		_, err := svc.RegisterPatient(ctx, &types.PatientRegistrationRequest{Name: ""})

		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrCodeEmptyInput))
		patients.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("retries when the generated login ID collides", func(t *testing.T) {
		svc, _, patients, _ := setupTestService()

		patients.On("Create", ctx, mock.AnythingOfType("*types.PatientRecord")).Return(nil,
			types.NewValidationError(types.ErrCodeDuplicateLoginID, "login ID exists")).Once()
		patients.On("Create", ctx, mock.AnythingOfType("*types.PatientRecord")).Return(&types.PatientRecord{}, nil).Once()

		result, err := svc.RegisterPatient(ctx, &types.PatientRegistrationRequest{Name: "Jordan Reyes"})

		require.NoError(t, err)
		assert.Regexp(t, `^PAT-[A-Z0-9]{6}$`, result.LoginID)
		patients.AssertNumberOfCalls(t, "Create", 2)
	})

	t.Run("persistent collisions surface an internal error", func(t *testing.T) {
		svc, _, patients, _ := setupTestService()

		patients.On("Create", ctx, mock.AnythingOfType("*types.PatientRecord")).Return(nil,
			types.NewValidationError(types.ErrCodeDuplicateLoginID, "login ID exists"))

		_, err := svc.RegisterPatient(ctx, &types.PatientRegistrationRequest{Name: "Jordan Reyes"})

		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrCodeInternalError))
		patients.AssertNumberOfCalls(t, "Create", registrationAttempts)
	})

	t.Run("store failures are not retried", func(t *testing.T) {
		svc, _, patients, _ := setupTestService()

		patients.On("Create", ctx, mock.AnythingOfType("*types.PatientRecord")).Return(nil,
			types.NewStoreError(types.ErrCodeStoreUnavailable, "db down", nil))

		_, err := svc.RegisterPatient(ctx, &types.PatientRegistrationRequest{Name: "Jordan Reyes"})

		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrCodeStoreUnavailable))
		patients.AssertNumberOfCalls(t, "Create", 1)
	})
}

func TestService_EnsureDoctorAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds the account when absent", func(t *testing.T) {
		svc, users, _, passwords := setupTestService()

		users.On("GetByUsername", ctx, "admin").Return(nil,
			types.NewNotFoundError("USER_NOT_FOUND", "user not found"))

		var created *types.User
		users.On("Create", ctx, mock.AnythingOfType("*types.User")).Run(func(args mock.Arguments) {
			created = args.Get(1).(*types.User)
		}).Return(nil)

		require.NoError(t, svc.EnsureDoctorAccount(ctx))

		require.NotNil(t, created)
		assert.Equal(t, "admin", created.Username)
		assert.Equal(t, types.RoleDoctor, created.Role)
		assert.True(t, created.IsActive)
		ok, err := passwords.VerifyPassword(created.PasswordHash, "admin1234")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("leaves an existing account alone", func(t *testing.T) {
		svc, users, _, _ := setupTestService()

		users.On("GetByUsername", ctx, "admin").Return(&types.User{
			ID: "doc-1", Username: "admin",
		}, nil)

		require.NoError(t, svc.EnsureDoctorAccount(ctx))
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
