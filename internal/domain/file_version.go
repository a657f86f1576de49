package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileVersion is a frozen snapshot of a prior file state, retained
// when a file is replaced. It is fully immutable once constructed.
type FileVersion struct {
	id            uuid.UUID
	fileID        uuid.UUID
	versionNumber int
	key           S3ObjectKey
	checksum      FileChecksum
	sizeBytes     int64
	replacedBy    string
	replacedAt    time.Time
	reason        string
}

// NewFileVersion validates and creates a version snapshot. The reason
// is optional free text.
func NewFileVersion(
	id uuid.UUID,
	fileID uuid.UUID,
	versionNumber int,
	key S3ObjectKey,
	checksum FileChecksum,
	sizeBytes int64,
	replacedBy string,
	replacedAt time.Time,
	reason string,
) (FileVersion, error) {
	if id == uuid.Nil {
		return FileVersion{}, NewValidationError("id", "file version id is required")
	}
	if fileID == uuid.Nil {
		return FileVersion{}, NewValidationError("file_id", "file id is required")
	}
	if versionNumber < 1 {
		return FileVersion{}, NewValidationError("version_number", "version number must be at least 1")
	}
	if key == (S3ObjectKey{}) {
		return FileVersion{}, NewValidationError("s3_key", "storage key is required")
	}
	if checksum == (FileChecksum{}) {
		return FileVersion{}, NewValidationError("checksum", "checksum is required")
	}
	if sizeBytes <= 0 {
		return FileVersion{}, NewValidationError("size_bytes", "size must be positive")
	}
	if strings.TrimSpace(replacedBy) == "" {
		return FileVersion{}, NewValidationError("replaced_by", "replacer identity is required")
	}
	if replacedAt.IsZero() {
		return FileVersion{}, NewValidationError("replaced_at", "replacement time is required")
	}
	trimmedReason, err := normalizeNotes(reason)
	if err != nil {
		return FileVersion{}, NewValidationError("reason", "reason cannot be blank when provided")
	}
	return FileVersion{
		id:            id,
		fileID:        fileID,
		versionNumber: versionNumber,
		key:           key,
		checksum:      checksum,
		sizeBytes:     sizeBytes,
		replacedBy:    strings.TrimSpace(replacedBy),
		replacedAt:    replacedAt,
		reason:        trimmedReason,
	}, nil
}

// ID returns the version record id
func (v FileVersion) ID() uuid.UUID { return v.id }

// FileID returns the id of the file this snapshot belongs to
func (v FileVersion) FileID() uuid.UUID { return v.fileID }

// VersionNumber returns the historical version number
func (v FileVersion) VersionNumber() int { return v.versionNumber }

// Key returns the storage key the snapshot was stored under
func (v FileVersion) Key() S3ObjectKey { return v.key }

// Checksum returns the content checksum of the snapshot
func (v FileVersion) Checksum() FileChecksum { return v.checksum }

// SizeBytes returns the snapshot size in bytes
func (v FileVersion) SizeBytes() int64 { return v.sizeBytes }

// ReplacedBy returns who replaced this version
func (v FileVersion) ReplacedBy() string { return v.replacedBy }

// ReplacedAt returns when this version was replaced
func (v FileVersion) ReplacedAt() time.Time { return v.replacedAt }

// Reason returns the optional replacement reason, empty when absent
func (v FileVersion) Reason() string { return v.reason }
