package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event type constants
const (
	DeliveryNoteCreated   = "V1_DELIVERY_NOTE_CREATED"
	DeliveryNoteConfirmed = "V1_DELIVERY_NOTE_CONFIRMED"
	FileUploaded          = "V1_FILE_UPLOADED"
	FileScanCompleted     = "V1_FILE_SCAN_COMPLETED"
	FileReplaced          = "V1_FILE_REPLACED"
)

// Event is the envelope for a domain event. Events are plain data
// records: the service layer constructs them from the aggregate's
// post-mutation state and publishes them; aggregates never emit.
type Event struct {
	ID            string      `json:"id"`
	AggregateID   string      `json:"aggregate_id"`
	AggregateType string      `json:"aggregate_type"`
	Type          string      `json:"type"`
	Timestamp     time.Time   `json:"timestamp"`
	Data          interface{} `json:"data"`
}

// NewEvent wraps event data in an envelope
func NewEvent(aggregateID uuid.UUID, aggregateType, eventType string, data interface{}) Event {
	return Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID.String(),
		AggregateType: aggregateType,
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		Data:          data,
	}
}

// DeliveryNoteCreatedEvent records a delivery note entering the system
type DeliveryNoteCreatedEvent struct {
	ID              string    `json:"id"`
	Number          string    `json:"delivery_note_number"`
	PurchaseOrderID string    `json:"purchase_order_id"`
	VendorID        string    `json:"vendor_id"`
	ReceivedBy      string    `json:"received_by"`
	DeliveryDate    time.Time `json:"delivery_date"`
	ItemCount       int       `json:"item_count"`
	TotalDelivered  int       `json:"total_delivered"`
}

// DeliveryNoteConfirmedEvent records a successful goods-receipt confirmation
type DeliveryNoteConfirmedEvent struct {
	ID                string `json:"id"`
	Number            string `json:"delivery_note_number"`
	VendorID          string `json:"vendor_id"`
	TotalDelivered    int    `json:"total_delivered"`
	EffectiveQuantity int    `json:"effective_quantity"`
	HasIssues         bool   `json:"has_issues"`
}

// FileUploadedEvent records a new file entering storage, pending scan
type FileUploadedEvent struct {
	ID         string `json:"id"`
	S3Key      string `json:"s3_key"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
	Checksum   string `json:"checksum"`
	UploadedBy string `json:"uploaded_by"`
}

// FileScanCompletedEvent records the terminal result of a virus scan
type FileScanCompletedEvent struct {
	ID     string `json:"id"`
	S3Key  string `json:"s3_key"`
	Result string `json:"result"`
	Safe   bool   `json:"safe"`
}

// FileReplacedEvent records a file being superseded by a new version
type FileReplacedEvent struct {
	ID         string `json:"id"`
	OldS3Key   string `json:"old_s3_key"`
	NewS3Key   string `json:"new_s3_key"`
	OldVersion int    `json:"old_version"`
	NewVersion int    `json:"new_version"`
	ReplacedBy string `json:"replaced_by"`
	Reason     string `json:"reason,omitempty"`
}
