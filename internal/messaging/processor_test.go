package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/procurement/internal/domain"
)

type MockScanCompleter struct {
	mock.Mock
}

func (m *MockScanCompleter) CompleteScan(ctx context.Context, fileID uuid.UUID, result domain.VirusScanStatus) error {
	args := m.Called(ctx, fileID, result)
	return args.Error(0)
}

func scanResultBody(t *testing.T, fileID uuid.UUID, result string) []byte {
	t.Helper()

	body, err := json.Marshal(ScanResultMessage{
		FileID:    fileID,
		Result:    result,
		Engine:    "clamav",
		ScannedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return body
}

func TestProcessScanResult(t *testing.T) {
	fileID := uuid.New()
	completer := new(MockScanCompleter)
	completer.On("CompleteScan", mock.Anything, fileID, domain.ScanClean()).Return(nil)

	processor := NewScanResultProcessor(completer)
	err := processor.ProcessMessage(context.Background(), &azservicebus.ReceivedMessage{
		Body: scanResultBody(t, fileID, "CLEAN"),
	})

	require.NoError(t, err)
	completer.AssertExpectations(t)
}

func TestProcessScanResultInfected(t *testing.T) {
	fileID := uuid.New()
	completer := new(MockScanCompleter)
	completer.On("CompleteScan", mock.Anything, fileID, domain.ScanInfected()).Return(nil)

	processor := NewScanResultProcessor(completer)
	err := processor.ProcessMessage(context.Background(), &azservicebus.ReceivedMessage{
		Body: scanResultBody(t, fileID, "INFECTED"),
	})

	require.NoError(t, err)
	completer.AssertExpectations(t)
}

func TestProcessScanResultDropsDuplicate(t *testing.T) {
	fileID := uuid.New()
	completer := new(MockScanCompleter)
	completer.On("CompleteScan", mock.Anything, fileID, domain.ScanClean()).
		Return(domain.NewImmutableEntityError("FileAttachment", "scan already completed"))

	processor := NewScanResultProcessor(completer)
	err := processor.ProcessMessage(context.Background(), &azservicebus.ReceivedMessage{
		Body: scanResultBody(t, fileID, "CLEAN"),
	})

	// Duplicate deliveries must not be returned to the queue
	require.NoError(t, err)
}

func TestProcessScanResultRejectsUnknownStatus(t *testing.T) {
	completer := new(MockScanCompleter)

	processor := NewScanResultProcessor(completer)
	err := processor.ProcessMessage(context.Background(), &azservicebus.ReceivedMessage{
		Body: scanResultBody(t, uuid.New(), "MAYBE"),
	})

	require.Error(t, err)
	completer.AssertNotCalled(t, "CompleteScan", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessScanResultRejectsMalformedBody(t *testing.T) {
	completer := new(MockScanCompleter)

	processor := NewScanResultProcessor(completer)
	err := processor.ProcessMessage(context.Background(), &azservicebus.ReceivedMessage{
		Body: []byte("not json"),
	})

	require.Error(t, err)
}

func TestProcessScanResultPropagatesFailure(t *testing.T) {
	fileID := uuid.New()
	completer := new(MockScanCompleter)
	completer.On("CompleteScan", mock.Anything, fileID, domain.ScanClean()).
		Return(errors.New("database unavailable"))

	processor := NewScanResultProcessor(completer)
	err := processor.ProcessMessage(context.Background(), &azservicebus.ReceivedMessage{
		Body: scanResultBody(t, fileID, "CLEAN"),
	})

	require.Error(t, err)
}
