package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/procurement/internal/cache"
	"example.com/backstage/services/procurement/internal/domain"
	"example.com/backstage/services/procurement/internal/messaging"
	"example.com/backstage/services/procurement/internal/models"
	"example.com/backstage/services/procurement/internal/storage"
	"example.com/backstage/services/procurement/internal/tracing"
)

// FileAttachmentIndexer pushes file attachments into the search index
type FileAttachmentIndexer interface {
	IndexFileAttachment(ctx context.Context, file *domain.FileAttachment) error
}

// InvoiceLinker exposes the invoice rows attachments are linked to
type InvoiceLinker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	AttachFile(ctx context.Context, invoiceID, attachmentID uuid.UUID) error
}

// UploadFileCommand carries a fresh upload
type UploadFileCommand struct {
	Prefix     string
	Filename   string
	MimeType   string
	Content    []byte
	UploadedBy string
}

// ReplaceFileCommand supersedes a file's current content
type ReplaceFileCommand struct {
	Filename   string
	MimeType   string
	Content    []byte
	ReplacedBy string
	Reason     string
}

// FileService handles file attachment business logic
type FileService struct {
	fileRepo  domain.FileAttachmentRepository
	invoices  InvoiceLinker
	store     storage.ObjectStore
	publisher messaging.ServiceBusClient
	indexer   FileAttachmentIndexer
	cache     *cache.RedisCache
	tracer    tracing.Tracer
}

// NewFileService creates a new file service
func NewFileService(
	fileRepo domain.FileAttachmentRepository,
	invoices InvoiceLinker,
	store storage.ObjectStore,
	publisher messaging.ServiceBusClient,
	indexer FileAttachmentIndexer,
	cache *cache.RedisCache,
	tracer tracing.Tracer,
) *FileService {
	return &FileService{
		fileRepo:  fileRepo,
		invoices:  invoices,
		store:     store,
		publisher: publisher,
		indexer:   indexer,
		cache:     cache,
		tracer:    tracer,
	}
}

// Upload stores new content and registers the attachment with a
// pending virus scan.
func (s *FileService) Upload(ctx context.Context, cmd UploadFileCommand) (*domain.FileAttachment, error) {
	txn := s.tracer.StartTransaction("upload-file")
	defer s.tracer.EndTransaction(txn)

	checksum := domain.ChecksumOf(cmd.Content)
	file, err := domain.CreateFileAttachment(uuid.New(), cmd.Prefix, cmd.Filename,
		cmd.MimeType, int64(len(cmd.Content)), checksum, cmd.UploadedBy)
	if err != nil {
		return nil, err
	}

	span := s.tracer.StartSpan("store-object", txn)
	err = s.store.Upload(ctx, file.Key(), cmd.Content, file.Metadata().MimeType())
	span.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	if err := s.fileRepo.Save(ctx, file); err != nil {
		s.tracer.RecordError(txn, err)
		// The blob is orphaned if this fails; remove it again
		if delErr := s.store.Delete(ctx, file.Key()); delErr != nil {
			log.Error().Err(delErr).Str("s3_key", file.Key().String()).
				Msg("Failed to remove orphaned object")
		}
		return nil, err
	}

	log.Info().
		Str("file_id", file.ID().String()).
		Str("s3_key", file.Key().String()).
		Str("uploaded_by", file.UploadedBy()).
		Int64("size_bytes", file.Metadata().SizeBytes()).
		Msg("File uploaded, awaiting scan")

	s.publishEvent(ctx, domain.NewEvent(file.ID(), "FileAttachment", domain.FileUploaded,
		domain.FileUploadedEvent{
			ID:         file.ID().String(),
			S3Key:      file.Key().String(),
			Filename:   file.Metadata().Filename(),
			MimeType:   file.Metadata().MimeType(),
			SizeBytes:  file.Metadata().SizeBytes(),
			Checksum:   file.Checksum().String(),
			UploadedBy: file.UploadedBy(),
		}))
	s.indexFile(ctx, file)

	return file, nil
}

// CompleteScan applies a terminal scan result to the file. Completion
// is one-shot; a concurrent completion loses with ErrConflict and a
// repeated one with an immutability violation.
func (s *FileService) CompleteScan(ctx context.Context, fileID uuid.UUID, result domain.VirusScanStatus) error {
	txn := s.tracer.StartTransaction("complete-file-scan")
	defer s.tracer.EndTransaction(txn)

	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return err
	}

	if err := file.MarkScanComplete(result); err != nil {
		return err
	}

	if err := s.fileRepo.Update(ctx, file); err != nil {
		s.tracer.RecordError(txn, err)
		return err
	}

	log.Info().
		Str("file_id", file.ID().String()).
		Str("result", result.String()).
		Bool("safe", file.IsSafe()).
		Msg("File scan completed")

	s.publishEvent(ctx, domain.NewEvent(file.ID(), "FileAttachment", domain.FileScanCompleted,
		domain.FileScanCompletedEvent{
			ID:     file.ID().String(),
			S3Key:  file.Key().String(),
			Result: result.String(),
			Safe:   file.IsSafe(),
		}))
	s.invalidate(ctx, file.ID())
	s.indexFile(ctx, file)

	return nil
}

// Replace supersedes the file's content with a new upload. The current
// state is frozen as a version record and the scan lifecycle restarts
// at PENDING.
func (s *FileService) Replace(ctx context.Context, fileID uuid.UUID, cmd ReplaceFileCommand) (*domain.FileAttachment, error) {
	txn := s.tracer.StartTransaction("replace-file")
	defer s.tracer.EndTransaction(txn)

	current, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if current.IsPendingScan() {
		return nil, domain.NewBusinessRuleViolationError("virus_scan_status",
			"file cannot be replaced while a scan is in progress")
	}

	now := time.Now().UTC()
	snapshot, err := domain.NewFileVersion(uuid.New(), fileID, current.Version(),
		current.Key(), current.Checksum(), current.Metadata().SizeBytes(),
		cmd.ReplacedBy, now, cmd.Reason)
	if err != nil {
		return nil, err
	}

	checksum := domain.ChecksumOf(cmd.Content)
	metadata, err := domain.NewFileMetadata(cmd.Filename, cmd.MimeType, int64(len(cmd.Content)))
	if err != nil {
		return nil, err
	}
	key, err := domain.GenerateS3ObjectKey(current.Key().Prefix(), metadata.Filename())
	if err != nil {
		return nil, err
	}
	replacement, err := domain.ReconstituteFileAttachment(fileID, key, metadata, checksum,
		domain.ScanPending(), cmd.ReplacedBy, now, current.Version()+1)
	if err != nil {
		return nil, err
	}

	span := s.tracer.StartSpan("store-object", txn)
	err = s.store.Upload(ctx, replacement.Key(), cmd.Content, metadata.MimeType())
	span.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	if err := s.fileRepo.Update(ctx, replacement); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}
	if err := s.fileRepo.SaveVersion(ctx, snapshot); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "replacement stored but version snapshot failed")
	}

	log.Info().
		Str("file_id", fileID.String()).
		Int("old_version", current.Version()).
		Int("new_version", replacement.Version()).
		Msg("File replaced")

	s.publishEvent(ctx, domain.NewEvent(fileID, "FileAttachment", domain.FileReplaced,
		domain.FileReplacedEvent{
			ID:         fileID.String(),
			OldS3Key:   current.Key().String(),
			NewS3Key:   replacement.Key().String(),
			OldVersion: current.Version(),
			NewVersion: replacement.Version(),
			ReplacedBy: cmd.ReplacedBy,
			Reason:     cmd.Reason,
		}))
	s.invalidate(ctx, fileID)
	s.indexFile(ctx, replacement)

	return replacement, nil
}

// GetFile gets a file attachment by id
func (s *FileService) GetFile(ctx context.Context, id uuid.UUID) (*domain.FileAttachment, error) {
	return s.fileRepo.FindByID(ctx, id)
}

// DownloadURL returns a presigned download URL. Only files whose scan
// came back clean may be served.
func (s *FileService) DownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	file, err := s.fileRepo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !file.IsReady() {
		if file.IsQuarantined() {
			return "", domain.NewBusinessRuleViolationError("virus_scan_status",
				"file is quarantined and cannot be downloaded")
		}
		return "", domain.NewBusinessRuleViolationError("virus_scan_status",
			"file has not been scanned yet")
	}
	return s.store.PresignDownload(ctx, file.Key())
}

// Download fetches the content and verifies it against the recorded
// checksum.
func (s *FileService) Download(ctx context.Context, id uuid.UUID) ([]byte, *domain.FileAttachment, error) {
	file, err := s.fileRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !file.IsReady() {
		return nil, nil, domain.NewBusinessRuleViolationError("virus_scan_status",
			"file is not available for download")
	}

	content, err := s.store.Download(ctx, file.Key())
	if err != nil {
		return nil, nil, err
	}
	if !file.Checksum().Matches(content) {
		return nil, nil, errors.New("stored content does not match recorded checksum")
	}
	return content, file, nil
}

// AttachToInvoice links a clean file to an invoice. Pending and
// quarantined files stay unlinked, and an invoice only carries one
// attachment.
func (s *FileService) AttachToInvoice(ctx context.Context, invoiceID, fileID uuid.UUID) error {
	txn := s.tracer.StartTransaction("attach-file-to-invoice")
	defer s.tracer.EndTransaction(txn)

	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return err
	}
	if !file.IsSafe() {
		return domain.NewBusinessRuleViolationError("virus_scan_status",
			"only clean files may be attached to an invoice")
	}

	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.AttachmentID != nil {
		return domain.NewBusinessRuleViolationError("invoice_attachment",
			"invoice already has an attachment")
	}

	if err := s.invoices.AttachFile(ctx, invoiceID, file.ID()); err != nil {
		s.tracer.RecordError(txn, err)
		return err
	}

	log.Info().
		Str("invoice_id", invoiceID.String()).
		Str("file_id", fileID.String()).
		Msg("File attached to invoice")
	return nil
}

// StorageMetadata reports what the object store actually holds for the
// file, for reconciling the record against the blob.
func (s *FileService) StorageMetadata(ctx context.Context, fileID uuid.UUID) (*storage.ObjectMetadata, error) {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return s.store.GetMetadata(ctx, file.Key())
}

// ListPendingScans lists files still waiting for a scan result
func (s *FileService) ListPendingScans(ctx context.Context) ([]*domain.FileAttachment, error) {
	return s.fileRepo.FindPendingScans(ctx)
}

// ListInfected lists quarantined files
func (s *FileService) ListInfected(ctx context.Context) ([]*domain.FileAttachment, error) {
	return s.fileRepo.FindInfectedFiles(ctx)
}

// ListByUploader lists files uploaded by one user
func (s *FileService) ListByUploader(ctx context.Context, uploadedBy string) ([]*domain.FileAttachment, error) {
	return s.fileRepo.FindByUploadedBy(ctx, uploadedBy)
}

// ListByUploadDateRange lists files uploaded within [from, to]
func (s *FileService) ListByUploadDateRange(ctx context.Context, from, to time.Time) ([]*domain.FileAttachment, error) {
	return s.fileRepo.FindByUploadDateRange(ctx, from, to)
}

// Versions lists a file's prior versions, oldest first
func (s *FileService) Versions(ctx context.Context, fileID uuid.UUID) ([]domain.FileVersion, error) {
	if _, err := s.fileRepo.FindByID(ctx, fileID); err != nil {
		return nil, err
	}
	return s.fileRepo.FindVersionsByFileID(ctx, fileID)
}

// UploaderUsage sums the stored bytes for one uploader
func (s *FileService) UploaderUsage(ctx context.Context, uploadedBy string) (int64, error) {
	return s.fileRepo.TotalSizeByUploadedBy(ctx, uploadedBy)
}

// RequeueStaleScans republishes scan requests for files whose scan has
// been pending longer than the cutoff. Run periodically as a fallback
// against lost scanner messages.
func (s *FileService) RequeueStaleScans(ctx context.Context, pendingSince time.Duration) (int, error) {
	txn := s.tracer.StartTransaction("requeue-stale-scans")
	defer s.tracer.EndTransaction(txn)

	pending, err := s.fileRepo.FindPendingScans(ctx)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-pendingSince)
	requeued := 0
	for _, file := range pending {
		if file.UploadedAt().After(cutoff) {
			continue
		}
		s.publishEvent(ctx, domain.NewEvent(file.ID(), "FileAttachment", domain.FileUploaded,
			domain.FileUploadedEvent{
				ID:         file.ID().String(),
				S3Key:      file.Key().String(),
				Filename:   file.Metadata().Filename(),
				MimeType:   file.Metadata().MimeType(),
				SizeBytes:  file.Metadata().SizeBytes(),
				Checksum:   file.Checksum().String(),
				UploadedBy: file.UploadedBy(),
			}))
		requeued++
	}

	if requeued > 0 {
		log.Info().Int("count", requeued).Msg("Re-queued stale scan requests")
	}
	return requeued, nil
}

func (s *FileService) publishEvent(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.SendMessage(ctx, event); err != nil {
		log.Error().Err(err).
			Str("event_type", event.Type).
			Str("aggregate_id", event.AggregateID).
			Msg("Failed to publish event")
	}
}

func (s *FileService) indexFile(ctx context.Context, file *domain.FileAttachment) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexFileAttachment(ctx, file); err != nil {
		log.Error().Err(err).
			Str("file_id", file.ID().String()).
			Msg("Failed to index file attachment")
	}
}

func (s *FileService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, cache.GetFileAttachmentCacheKey(id)); err != nil {
		log.Debug().Err(err).Str("file_id", id.String()).Msg("failed to invalidate cache")
	}
}
