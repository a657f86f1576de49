package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/procurement/internal/domain"
	"example.com/backstage/services/procurement/internal/models"
)

// FileAttachmentRepository persists file attachment aggregates and
// their version history.
type FileAttachmentRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewFileAttachmentRepository creates a new file attachment repository
func NewFileAttachmentRepository(db *gorm.DB, readOnlyDB *gorm.DB) *FileAttachmentRepository {
	return &FileAttachmentRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Save inserts a new file attachment
func (r *FileAttachmentRepository) Save(ctx context.Context, file *domain.FileAttachment) error {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.FileAttachment{}).
		Where("id = ?", file.ID()).
		Count(&count).Error
	if err != nil {
		return errors.Wrap(err, "failed to check file attachment existence")
	}
	if count > 0 {
		return domain.ErrAlreadyExists
	}

	// Use write DB for writes
	if err := r.db.WithContext(ctx).Create(fileAttachmentToRow(file)).Error; err != nil {
		return errors.Wrap(err, "failed to save file attachment")
	}
	return nil
}

// Update rewrites an existing file attachment. The update is guarded
// by the row's lock version so two writers racing on the same state,
// for example duplicate scan result messages, cannot both win; the
// loser gets ErrConflict.
func (r *FileAttachmentRepository) Update(ctx context.Context, file *domain.FileAttachment) error {
	var current models.FileAttachment
	err := r.db.WithContext(ctx).First(&current, file.ID()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return errors.Wrap(err, "failed to load file attachment for update")
	}

	row := fileAttachmentToRow(file)
	result := r.db.WithContext(ctx).
		Model(&models.FileAttachment{}).
		Where("id = ? AND lock_version = ?", file.ID(), current.LockVersion).
		Updates(map[string]interface{}{
			"s3_key":            row.S3Key,
			"filename":          row.Filename,
			"mime_type":         row.MimeType,
			"size_bytes":        row.SizeBytes,
			"checksum":          row.Checksum,
			"virus_scan_status": row.VirusScanStatus,
			"version":           row.Version,
			"lock_version":      current.LockVersion + 1,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update file attachment")
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

// FindByID gets a file attachment by its id
func (r *FileAttachmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.FileAttachment, error) {
	var row models.FileAttachment
	// Use read-only DB for reads
	err := r.readOnlyDB.WithContext(ctx).First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get file attachment by id")
	}
	return fileAttachmentFromRow(&row)
}

// FindByS3Key gets a file attachment by its storage key
func (r *FileAttachmentRepository) FindByS3Key(ctx context.Context, key domain.S3ObjectKey) (*domain.FileAttachment, error) {
	var row models.FileAttachment
	err := r.readOnlyDB.WithContext(ctx).
		Where("s3_key = ?", key.String()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get file attachment by storage key")
	}
	return fileAttachmentFromRow(&row)
}

// FindByVirusScanStatus lists file attachments in the given scan status
func (r *FileAttachmentRepository) FindByVirusScanStatus(ctx context.Context, status domain.VirusScanStatus) ([]*domain.FileAttachment, error) {
	return r.findAll(ctx, r.readOnlyDB.WithContext(ctx).Where("virus_scan_status = ?", status.String()))
}

// FindByUploadedBy lists file attachments uploaded by the given user
func (r *FileAttachmentRepository) FindByUploadedBy(ctx context.Context, uploadedBy string) ([]*domain.FileAttachment, error) {
	return r.findAll(ctx, r.readOnlyDB.WithContext(ctx).Where("uploaded_by = ?", uploadedBy))
}

// FindByUploadDateRange lists file attachments uploaded within [from, to]
func (r *FileAttachmentRepository) FindByUploadDateRange(ctx context.Context, from, to time.Time) ([]*domain.FileAttachment, error) {
	return r.findAll(ctx, r.readOnlyDB.WithContext(ctx).
		Where("uploaded_at >= ? AND uploaded_at <= ?", from, to))
}

// FindPendingScans lists file attachments still waiting for a scan result
func (r *FileAttachmentRepository) FindPendingScans(ctx context.Context) ([]*domain.FileAttachment, error) {
	return r.FindByVirusScanStatus(ctx, domain.ScanPending())
}

// FindInfectedFiles lists quarantined file attachments
func (r *FileAttachmentRepository) FindInfectedFiles(ctx context.Context) ([]*domain.FileAttachment, error) {
	return r.FindByVirusScanStatus(ctx, domain.ScanInfected())
}

func (r *FileAttachmentRepository) findAll(ctx context.Context, query *gorm.DB) ([]*domain.FileAttachment, error) {
	var rows []models.FileAttachment
	err := query.Order("uploaded_at DESC").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list file attachments")
	}

	files := make([]*domain.FileAttachment, 0, len(rows))
	for i := range rows {
		file, err := fileAttachmentFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

// ExistsByS3Key reports whether a file attachment with the key exists
func (r *FileAttachmentRepository) ExistsByS3Key(ctx context.Context, key domain.S3ObjectKey) (bool, error) {
	var count int64
	err := r.readOnlyDB.WithContext(ctx).
		Model(&models.FileAttachment{}).
		Where("s3_key = ?", key.String()).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check file attachment key")
	}
	return count > 0, nil
}

// CountByVirusScanStatus counts file attachments in the given scan status
func (r *FileAttachmentRepository) CountByVirusScanStatus(ctx context.Context, status domain.VirusScanStatus) (int64, error) {
	var count int64
	err := r.readOnlyDB.WithContext(ctx).
		Model(&models.FileAttachment{}).
		Where("virus_scan_status = ?", status.String()).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count file attachments by scan status")
	}
	return count, nil
}

// TotalSizeByUploadedBy sums the stored bytes for one uploader
func (r *FileAttachmentRepository) TotalSizeByUploadedBy(ctx context.Context, uploadedBy string) (int64, error) {
	var total int64
	err := r.readOnlyDB.WithContext(ctx).
		Model(&models.FileAttachment{}).
		Select("COALESCE(SUM(size_bytes), 0)").
		Where("uploaded_by = ?", uploadedBy).
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum file sizes by uploader")
	}
	return total, nil
}

// SaveVersion inserts a frozen prior version record
func (r *FileAttachmentRepository) SaveVersion(ctx context.Context, version domain.FileVersion) error {
	row := models.FileVersion{
		ID:            version.ID(),
		FileID:        version.FileID(),
		VersionNumber: version.VersionNumber(),
		S3Key:         version.Key().String(),
		Checksum:      version.Checksum().String(),
		SizeBytes:     version.SizeBytes(),
		ReplacedBy:    version.ReplacedBy(),
		ReplacedAt:    version.ReplacedAt(),
		Reason:        version.Reason(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrap(err, "failed to save file version")
	}
	return nil
}

// FindVersionsByFileID lists a file's prior versions, oldest first
func (r *FileAttachmentRepository) FindVersionsByFileID(ctx context.Context, fileID uuid.UUID) ([]domain.FileVersion, error) {
	var rows []models.FileVersion
	err := r.readOnlyDB.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("version_number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list file versions")
	}

	versions := make([]domain.FileVersion, 0, len(rows))
	for _, row := range rows {
		key, err := domain.ParseS3ObjectKey(row.S3Key)
		if err != nil {
			return nil, errors.Wrap(err, "stored file version has invalid storage key")
		}
		checksum, err := domain.NewFileChecksum(row.Checksum)
		if err != nil {
			return nil, errors.Wrap(err, "stored file version has invalid checksum")
		}
		version, err := domain.NewFileVersion(
			row.ID,
			row.FileID,
			row.VersionNumber,
			key,
			checksum,
			row.SizeBytes,
			row.ReplacedBy,
			row.ReplacedAt,
			row.Reason,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to rebuild file version")
		}
		versions = append(versions, version)
	}
	return versions, nil
}

// Delete soft-deletes a file attachment
func (r *FileAttachmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.FileAttachment{}, id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete file attachment")
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func fileAttachmentToRow(file *domain.FileAttachment) *models.FileAttachment {
	return &models.FileAttachment{
		ID:              file.ID(),
		S3Key:           file.Key().String(),
		Filename:        file.Metadata().Filename(),
		MimeType:        file.Metadata().MimeType(),
		SizeBytes:       file.Metadata().SizeBytes(),
		Checksum:        file.Checksum().String(),
		VirusScanStatus: file.ScanStatus().String(),
		UploadedBy:      file.UploadedBy(),
		UploadedAt:      file.UploadedAt(),
		Version:         file.Version(),
	}
}

func fileAttachmentFromRow(row *models.FileAttachment) (*domain.FileAttachment, error) {
	key, err := domain.ParseS3ObjectKey(row.S3Key)
	if err != nil {
		return nil, errors.Wrap(err, "stored file attachment has invalid storage key")
	}
	metadata, err := domain.NewFileMetadata(row.Filename, row.MimeType, row.SizeBytes)
	if err != nil {
		return nil, errors.Wrap(err, "stored file attachment has invalid metadata")
	}
	checksum, err := domain.NewFileChecksum(row.Checksum)
	if err != nil {
		return nil, errors.Wrap(err, "stored file attachment has invalid checksum")
	}
	scanStatus, err := domain.NewVirusScanStatus(row.VirusScanStatus)
	if err != nil {
		return nil, errors.Wrap(err, "stored file attachment has invalid scan status")
	}

	file, err := domain.ReconstituteFileAttachment(
		row.ID,
		key,
		metadata,
		checksum,
		scanStatus,
		row.UploadedBy,
		row.UploadedAt,
		row.Version,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to rebuild file attachment")
	}
	return file, nil
}
