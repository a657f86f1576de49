package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeliveryNoteRepository is the storage contract for delivery notes.
// The domain layer depends on it but never implements it; Save fails
// with ErrAlreadyExists on an id collision and Update fails with
// ErrNotFound when the note does not exist.
type DeliveryNoteRepository interface {
	Save(ctx context.Context, note *DeliveryNote) error
	Update(ctx context.Context, note *DeliveryNote) error
	FindByID(ctx context.Context, id uuid.UUID) (*DeliveryNote, error)
	FindByNumber(ctx context.Context, number string) (*DeliveryNote, error)
	FindByStatus(ctx context.Context, status DeliveryNoteStatus) ([]*DeliveryNote, error)
	FindByVendorID(ctx context.Context, vendorID uuid.UUID) ([]*DeliveryNote, error)
	FindByDeliveryDateRange(ctx context.Context, from, to time.Time) ([]*DeliveryNote, error)
	FindWithIssues(ctx context.Context) ([]*DeliveryNote, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	CountByStatus(ctx context.Context, status DeliveryNoteStatus) (int64, error)
	SumDeliveredByVendor(ctx context.Context, vendorID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// FileAttachmentRepository is the storage contract for file
// attachments and their version history.
type FileAttachmentRepository interface {
	Save(ctx context.Context, file *FileAttachment) error
	Update(ctx context.Context, file *FileAttachment) error
	FindByID(ctx context.Context, id uuid.UUID) (*FileAttachment, error)
	FindByS3Key(ctx context.Context, key S3ObjectKey) (*FileAttachment, error)
	FindByVirusScanStatus(ctx context.Context, status VirusScanStatus) ([]*FileAttachment, error)
	FindByUploadedBy(ctx context.Context, uploadedBy string) ([]*FileAttachment, error)
	FindByUploadDateRange(ctx context.Context, from, to time.Time) ([]*FileAttachment, error)
	FindPendingScans(ctx context.Context) ([]*FileAttachment, error)
	FindInfectedFiles(ctx context.Context) ([]*FileAttachment, error)
	ExistsByS3Key(ctx context.Context, key S3ObjectKey) (bool, error)
	CountByVirusScanStatus(ctx context.Context, status VirusScanStatus) (int64, error)
	TotalSizeByUploadedBy(ctx context.Context, uploadedBy string) (int64, error)
	SaveVersion(ctx context.Context, version FileVersion) error
	FindVersionsByFileID(ctx context.Context, fileID uuid.UUID) ([]FileVersion, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
