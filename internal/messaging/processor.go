package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/procurement/internal/domain"
)

// ScanResultMessage is the payload the virus scanner posts for every
// finished scan.
type ScanResultMessage struct {
	FileID    uuid.UUID `json:"file_id"`
	Result    string    `json:"result"`
	Engine    string    `json:"engine"`
	ScannedAt time.Time `json:"scanned_at"`
}

// ScanCompleter applies a scan result to the file it belongs to
type ScanCompleter interface {
	CompleteScan(ctx context.Context, fileID uuid.UUID, result domain.VirusScanStatus) error
}

// MessageProcessor handles a single received message
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, message *azservicebus.ReceivedMessage) error
}

// ScanResultProcessor consumes scan result messages and completes the
// matching file's scan lifecycle.
type ScanResultProcessor struct {
	files ScanCompleter
}

// NewScanResultProcessor creates a new scan result processor
func NewScanResultProcessor(files ScanCompleter) *ScanResultProcessor {
	return &ScanResultProcessor{files: files}
}

// ProcessMessage decodes and applies one scan result. Duplicate
// results are treated as processed so the broker does not redeliver
// them forever.
func (p *ScanResultProcessor) ProcessMessage(ctx context.Context, message *azservicebus.ReceivedMessage) error {
	var msg ScanResultMessage
	if err := json.Unmarshal(message.Body, &msg); err != nil {
		return fmt.Errorf("error unmarshalling scan result: %w", err)
	}

	log.Info().
		Str("file_id", msg.FileID.String()).
		Str("result", msg.Result).
		Str("engine", msg.Engine).
		Msg("Processing scan result")

	result, err := domain.NewVirusScanStatus(msg.Result)
	if err != nil {
		return fmt.Errorf("scan result carries unknown status %q: %w", msg.Result, err)
	}

	err = p.files.CompleteScan(ctx, msg.FileID, result)
	if err != nil {
		if domain.IsImmutableEntityError(err) {
			// A duplicate delivery; the first result already stands
			log.Warn().
				Str("file_id", msg.FileID.String()).
				Msg("Scan already completed, dropping duplicate result")
			return nil
		}
		return err
	}

	return nil
}

// Receiver pulls messages off a Service Bus queue and feeds them to a
// processor.
type Receiver struct {
	client    *azservicebus.Client
	queueName string
}

// NewReceiver creates a new queue receiver
func NewReceiver(connectionString, queueName string) (*Receiver, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
	}

	return &Receiver{client: client, queueName: queueName}, nil
}

// Run receives messages in batches until the context is cancelled.
// Failed messages are abandoned and returned to the queue.
func (r *Receiver) Run(ctx context.Context, processor MessageProcessor) error {
	log.Info().Msgf("Starting consumer for queue %s", r.queueName)

	receiver, err := r.client.NewReceiverForQueue(r.queueName, nil)
	if err != nil {
		return fmt.Errorf("failed to create Service Bus receiver: %w", err)
	}
	defer func() {
		if err := receiver.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error closing receiver")
		}
	}()

	for {
		messages, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("Error receiving messages")
			continue
		}

		for _, message := range messages {
			err := processor.ProcessMessage(ctx, message)
			if err != nil {
				log.Error().Err(err).Msgf("Error processing message '%s'", message.MessageID)
				// Return the message to the queue
				err = receiver.AbandonMessage(ctx, message, nil)
				if err != nil {
					log.Error().Err(err).Msgf("(AbandonMessage) err: %v", err)
				}
				continue
			}

			err = receiver.CompleteMessage(ctx, message, nil)
			if err != nil {
				log.Error().Err(err).Msgf("(CompleteMessage) err: %v", err)
			}
		}
	}
}

// Close closes the underlying Service Bus client
func (r *Receiver) Close() error {
	return r.client.Close(context.Background())
}
