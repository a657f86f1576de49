package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileAttachmentDisplayInfo is a presentation projection of a file
// attachment's scalar state.
type FileAttachmentDisplayInfo struct {
	Filename   string `json:"filename"`
	Extension  string `json:"extension"`
	Size       string `json:"size"`
	MimeType   string `json:"mime_type"`
	ScanStatus string `json:"scan_status"`
	UploadedBy string `json:"uploaded_by"`
	UploadedAt string `json:"uploaded_at"`
	Version    int    `json:"version"`
	Safe       bool   `json:"safe"`
}

// FileAttachment is the aggregate root for one uploaded file and its
// lifecycle. The only mutation it permits after construction is
// completing the virus scan, exactly once.
type FileAttachment struct {
	id         uuid.UUID
	key        S3ObjectKey
	metadata   FileMetadata
	checksum   FileChecksum
	scanStatus VirusScanStatus
	uploadedBy string
	uploadedAt time.Time
	version    int
}

// CreateFileAttachment builds a new attachment for a fresh upload. It
// validates the metadata, mints a new storage key under the given
// prefix, and starts the scan lifecycle at PENDING with version 1.
func CreateFileAttachment(
	id uuid.UUID,
	prefix string,
	filename string,
	mimeType string,
	sizeBytes int64,
	checksum FileChecksum,
	uploadedBy string,
) (*FileAttachment, error) {
	metadata, err := NewFileMetadata(filename, mimeType, sizeBytes)
	if err != nil {
		return nil, err
	}
	key, err := GenerateS3ObjectKey(prefix, metadata.Filename())
	if err != nil {
		return nil, err
	}
	return ReconstituteFileAttachment(id, key, metadata, checksum,
		ScanPending(), uploadedBy, time.Now().UTC(), 1)
}

// ReconstituteFileAttachment rebuilds an attachment from storage with
// its known key, metadata, scan status and version.
func ReconstituteFileAttachment(
	id uuid.UUID,
	key S3ObjectKey,
	metadata FileMetadata,
	checksum FileChecksum,
	scanStatus VirusScanStatus,
	uploadedBy string,
	uploadedAt time.Time,
	version int,
) (*FileAttachment, error) {
	if id == uuid.Nil {
		return nil, NewValidationError("id", "file id is required")
	}
	if key == (S3ObjectKey{}) {
		return nil, NewValidationError("s3_key", "storage key is required")
	}
	if metadata == (FileMetadata{}) {
		return nil, NewValidationError("metadata", "file metadata is required")
	}
	if checksum == (FileChecksum{}) {
		return nil, NewValidationError("checksum", "checksum is required")
	}
	if scanStatus == (VirusScanStatus{}) {
		return nil, NewValidationError("virus_scan_status", "scan status is required")
	}
	if strings.TrimSpace(uploadedBy) == "" {
		return nil, NewValidationError("uploaded_by", "uploader identity is required")
	}
	if uploadedAt.IsZero() {
		return nil, NewValidationError("uploaded_at", "upload time is required")
	}
	if version < 1 {
		return nil, NewValidationError("version", "version must be at least 1")
	}
	return &FileAttachment{
		id:         id,
		key:        key,
		metadata:   metadata,
		checksum:   checksum,
		scanStatus: scanStatus,
		uploadedBy: strings.TrimSpace(uploadedBy),
		uploadedAt: uploadedAt,
		version:    version,
	}, nil
}

// MarkScanComplete records the scan result. This is the sole permitted
// mutation: a second call is an immutability violation, and callers
// needing idempotent completion must check IsPendingScan first.
func (f *FileAttachment) MarkScanComplete(result VirusScanStatus) error {
	if f.scanStatus.IsComplete() {
		return NewImmutableEntityError("FileAttachment",
			"virus scan has already completed")
	}
	next, err := f.scanStatus.TransitionTo(result)
	if err != nil {
		return err
	}
	f.scanStatus = next
	return nil
}

// IsSafe reports whether the file may be served. True for CLEAN only.
func (f *FileAttachment) IsSafe() bool { return f.scanStatus.IsSafe() }

// IsReady reports whether the file is ready for use. Currently defined
// identically to IsSafe; kept separate as the seam for any future
// readiness condition beyond the scan.
func (f *FileAttachment) IsReady() bool { return f.IsSafe() }

// IsQuarantined reports whether the scan found the file infected
func (f *FileAttachment) IsQuarantined() bool { return f.scanStatus.IsInfected() }

// IsPendingScan reports whether the scan has not completed yet
func (f *FileAttachment) IsPendingScan() bool { return f.scanStatus.IsPending() }

// IsOriginalVersion reports whether the file has never been replaced
func (f *FileAttachment) IsOriginalVersion() bool { return f.version == 1 }

// FileExtension returns the lowercase filename extension
func (f *FileAttachment) FileExtension() string { return f.metadata.Extension() }

// HumanReadableSize formats the file size for display
func (f *FileAttachment) HumanReadableSize() string { return f.metadata.HumanReadableSize() }

// DisplayInfo returns a presentation projection of the attachment
func (f *FileAttachment) DisplayInfo() FileAttachmentDisplayInfo {
	return FileAttachmentDisplayInfo{
		Filename:   f.metadata.Filename(),
		Extension:  f.metadata.Extension(),
		Size:       f.metadata.HumanReadableSize(),
		MimeType:   f.metadata.MimeType(),
		ScanStatus: f.scanStatus.String(),
		UploadedBy: f.uploadedBy,
		UploadedAt: f.uploadedAt.Format(time.RFC3339),
		Version:    f.version,
		Safe:       f.IsSafe(),
	}
}

// ID returns the file id
func (f *FileAttachment) ID() uuid.UUID { return f.id }

// Key returns the storage key
func (f *FileAttachment) Key() S3ObjectKey { return f.key }

// Metadata returns the file metadata
func (f *FileAttachment) Metadata() FileMetadata { return f.metadata }

// Checksum returns the content checksum
func (f *FileAttachment) Checksum() FileChecksum { return f.checksum }

// ScanStatus returns the virus scan status
func (f *FileAttachment) ScanStatus() VirusScanStatus { return f.scanStatus }

// UploadedBy returns the uploader identity
func (f *FileAttachment) UploadedBy() string { return f.uploadedBy }

// UploadedAt returns the upload timestamp
func (f *FileAttachment) UploadedAt() time.Time { return f.uploadedAt }

// Version returns the current version number
func (f *FileAttachment) Version() int { return f.version }
