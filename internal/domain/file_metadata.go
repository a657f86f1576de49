package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// MaxFileSizeBytes is the hard upload cap of 10 MiB
	MaxFileSizeBytes = 10 * 1024 * 1024

	maxFilenameLength = 255
)

var mimeTypePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+-]*/[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+-]*$`)

var documentMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"text/plain": true,
	"text/csv":   true,
}

// FileMetadata describes an uploaded file: name, MIME type and size.
type FileMetadata struct {
	filename  string
	mimeType  string
	sizeBytes int64
}

// NewFileMetadata validates and creates file metadata
func NewFileMetadata(filename, mimeType string, sizeBytes int64) (FileMetadata, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return FileMetadata{}, NewValidationError("filename", "filename cannot be empty")
	}
	if len(filename) > maxFilenameLength {
		return FileMetadata{}, NewValidationError("filename",
			fmt.Sprintf("filename cannot exceed %d characters", maxFilenameLength))
	}
	if !mimeTypePattern.MatchString(mimeType) {
		return FileMetadata{}, NewValidationError("mime_type",
			fmt.Sprintf("MIME type %q does not match type/subtype", mimeType))
	}
	if sizeBytes <= 0 {
		return FileMetadata{}, NewValidationError("size_bytes", "file cannot be empty")
	}
	if sizeBytes > MaxFileSizeBytes {
		return FileMetadata{}, NewValidationError("size_bytes",
			fmt.Sprintf("file size %d exceeds the %d byte limit", sizeBytes, MaxFileSizeBytes))
	}
	return FileMetadata{filename: filename, mimeType: mimeType, sizeBytes: sizeBytes}, nil
}

// Filename returns the original filename
func (m FileMetadata) Filename() string { return m.filename }

// MimeType returns the declared MIME type
func (m FileMetadata) MimeType() string { return m.mimeType }

// SizeBytes returns the file size in bytes
func (m FileMetadata) SizeBytes() int64 { return m.sizeBytes }

// Extension returns the lowercase filename extension without the dot,
// or an empty string when the filename has none.
func (m FileMetadata) Extension() string {
	ext := filepath.Ext(m.filename)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImage reports whether the MIME type is an image type
func (m FileMetadata) IsImage() bool {
	return strings.HasPrefix(m.mimeType, "image/")
}

// IsPDF reports whether the file is a PDF
func (m FileMetadata) IsPDF() bool {
	return m.mimeType == "application/pdf"
}

// IsDocument reports whether the MIME type is a known document type
func (m FileMetadata) IsDocument() bool {
	return documentMimeTypes[m.mimeType]
}

// HumanReadableSize formats the size for display, e.g. "2.5 MB"
func (m FileMetadata) HumanReadableSize() string {
	const unit = 1024
	if m.sizeBytes < unit {
		return fmt.Sprintf("%d B", m.sizeBytes)
	}
	div, exp := int64(unit), 0
	for n := m.sizeBytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(m.sizeBytes)/float64(div), "KMG"[exp])
}

// IsNearSizeLimit reports whether the file size is at or above the
// given percentage of the hard cap.
func (m FileMetadata) IsNearSizeLimit(thresholdPercent float64) bool {
	return float64(m.sizeBytes) >= float64(MaxFileSizeBytes)*thresholdPercent/100
}

// Equals reports structural equality
func (m FileMetadata) Equals(other FileMetadata) bool {
	return m.filename == other.filename &&
		m.mimeType == other.mimeType &&
		m.sizeBytes == other.sizeBytes
}
