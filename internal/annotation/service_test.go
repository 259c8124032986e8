package annotation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medicloud/portal/pkg/logger"
	"github.com/medicloud/portal/pkg/types"
)

// MockModelInvoker mocks the model invocation layer
type MockModelInvoker struct {
	mock.Mock
}

func (m *MockModelInvoker) Generate(ctx context.Context, req *types.GenerationRequest) (string, string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.String(1), args.Error(2)
}

// MockHistoryLedger mocks the history ledger
type MockHistoryLedger struct {
	mock.Mock
}

func (m *MockHistoryLedger) Append(ctx context.Context, loginID string, entry types.HistoryEntry) error {
	args := m.Called(ctx, loginID, entry)
	return args.Error(0)
}

func (m *MockHistoryLedger) Read(ctx context.Context, loginID string) ([]types.HistoryEntry, error) {
	args := m.Called(ctx, loginID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.HistoryEntry), args.Error(1)
}

func setupTestService() (*Service, *MockModelInvoker, *MockHistoryLedger) {
	mockInvoker := &MockModelInvoker{}
	mockLedger := &MockHistoryLedger{}
	log := logger.New("debug")

	service := NewService(mockInvoker, mockLedger, log)
	service.now = func() time.Time {
		return time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	}

	return service, mockInvoker, mockLedger
}

func TestService_Annotate(t *testing.T) {
	t.Run("empty input performs no side effects", func(t *testing.T) {
		service, mockInvoker, mockLedger := setupTestService()

		result, err := service.Annotate(context.Background(), &types.AnnotationRequest{
			PatientLoginID: "PAT-ABC123",
			Notes:          "   ",
		})

		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, types.IsCode(err, types.ErrCodeEmptyInput))
		mockInvoker.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
		mockLedger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("notes only produce an appended entry", func(t *testing.T) {
		service, mockInvoker, mockLedger := setupTestService()

		mockInvoker.On("Generate", mock.Anything, mock.MatchedBy(func(req *types.GenerationRequest) bool {
			return req.Attachment == nil
		})).Return("You are doing fine.", "gemini-1.5-flash", nil)

		mockLedger.On("Append", mock.Anything, "PAT-ABC123", mock.MatchedBy(func(entry types.HistoryEntry) bool {
			return entry.Summary == "You are doing fine." && entry.Date == "2024-03-15 09:30"
		})).Return(nil)

		result, err := service.Annotate(context.Background(), &types.AnnotationRequest{
			PatientLoginID: "PAT-ABC123",
			Notes:          "Patient showing signs of fatigue",
		})

		require.NoError(t, err)
		assert.Equal(t, "You are doing fine.", result.Summary)
		assert.Equal(t, "gemini-1.5-flash", result.Model)
		assert.NotEmpty(t, result.Entry.EntryID)

		mockInvoker.AssertExpectations(t)
		mockLedger.AssertExpectations(t)
	})

	t.Run("attachment alone is valid input", func(t *testing.T) {
		service, mockInvoker, mockLedger := setupTestService()

		mockInvoker.On("Generate", mock.Anything, mock.MatchedBy(func(req *types.GenerationRequest) bool {
			return req.Attachment != nil && req.Attachment.MIMEType == "application/pdf"
		})).Return("Report looks normal.", "gemini-1.5-flash", nil)

		mockLedger.On("Append", mock.Anything, "PAT-ABC123", mock.Anything).Return(nil)

		result, err := service.Annotate(context.Background(), &types.AnnotationRequest{
			PatientLoginID: "PAT-ABC123",
			Attachment: &types.Attachment{
				Data:     []byte("%PDF-1.4"),
				MIMEType: "application/pdf",
			},
		})

		require.NoError(t, err)
		assert.Equal(t, "Report looks normal.", result.Summary)
	})

	t.Run("structured output is parsed before append", func(t *testing.T) {
		service, mockInvoker, mockLedger := setupTestService()

		mockInvoker.On("Generate", mock.Anything, mock.Anything).
			Return("ALERTS: - risk A\nSUMMARY: take it easy", "gemini-1.5-pro", nil)

		mockLedger.On("Append", mock.Anything, "PAT-ABC123", mock.MatchedBy(func(entry types.HistoryEntry) bool {
			return entry.Summary == "take it easy" && len(entry.Alerts) == 1 && entry.Alerts[0] == "- risk A"
		})).Return(nil)

		result, err := service.Annotate(context.Background(), &types.AnnotationRequest{
			PatientLoginID: "PAT-ABC123",
			Notes:          "check vitals",
			Structured:     true,
		})

		require.NoError(t, err)
		assert.Equal(t, "take it easy", result.Summary)
		assert.Equal(t, []string{"- risk A"}, result.Alerts)

		mockLedger.AssertExpectations(t)
	})

	t.Run("malformed structured output writes nothing", func(t *testing.T) {
		service, mockInvoker, mockLedger := setupTestService()

		mockInvoker.On("Generate", mock.Anything, mock.Anything).
			Return("just some prose with no sections", "gemini-1.5-pro", nil)

		result, err := service.Annotate(context.Background(), &types.AnnotationRequest{
			PatientLoginID: "PAT-ABC123",
			Notes:          "check vitals",
			Structured:     true,
		})

		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, types.IsCode(err, types.ErrCodeMalformedModelOutput))
		mockLedger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("model unavailable leaves history untouched", func(t *testing.T) {
		service, mockInvoker, mockLedger := setupTestService()

		mockInvoker.On("Generate", mock.Anything, mock.Anything).
			Return("", "", types.NewModelError(types.ErrCodeModelUnavailable, "no model backend available", nil))

		result, err := service.Annotate(context.Background(), &types.AnnotationRequest{
			PatientLoginID: "PAT-ABC123",
			Notes:          "check vitals",
		})

		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, types.IsCode(err, types.ErrCodeModelUnavailable))
		mockLedger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("generation failure leaves history untouched", func(t *testing.T) {
		service, mockInvoker, mockLedger := setupTestService()

		mockInvoker.On("Generate", mock.Anything, mock.Anything).
			Return("", "gemini-1.5-flash", types.NewModelError(types.ErrCodeGenerationFailed, "model generation failed", assert.AnError))

		_, err := service.Annotate(context.Background(), &types.AnnotationRequest{
			PatientLoginID: "PAT-ABC123",
			Notes:          "check vitals",
		})

		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrCodeGenerationFailed))
		mockLedger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("append failure is surfaced", func(t *testing.T) {
		service, mockInvoker, mockLedger := setupTestService()

		mockInvoker.On("Generate", mock.Anything, mock.Anything).
			Return("summary text", "gemini-1.5-flash", nil)
		mockLedger.On("Append", mock.Anything, "PAT-MISSING", mock.Anything).
			Return(&types.PortalError{
				Type:    types.ErrorTypeNotFound,
				Code:    types.ErrCodePatientNotFound,
				Message: "Patient not found",
			})

		_, err := service.Annotate(context.Background(), &types.AnnotationRequest{
			PatientLoginID: "PAT-MISSING",
			Notes:          "check vitals",
		})

		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrCodePatientNotFound))
	})
}

func TestService_History(t *testing.T) {
	service, _, mockLedger := setupTestService()

	entries := []types.HistoryEntry{
		{EntryID: "e1", Date: "2024-03-14 10:00", Summary: "first"},
		{EntryID: "e2", Date: "2024-03-15 09:30", Summary: "second"},
	}
	mockLedger.On("Read", mock.Anything, "PAT-ABC123").Return(entries, nil)

	history, err := service.History(context.Background(), "PAT-ABC123")

	require.NoError(t, err)
	assert.Equal(t, entries, history)
}
