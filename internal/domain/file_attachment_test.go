package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestAttachment(t *testing.T) *FileAttachment {
	t.Helper()
	checksum, err := NewFileChecksum(strings.Repeat("ab", 32))
	require.NoError(t, err)
	file, err := CreateFileAttachment(uuid.New(), "invoices", "invoice.pdf",
		"application/pdf", 2048, checksum, "buyer@example.com")
	require.NoError(t, err)
	return file
}

func TestCreateFileAttachment(t *testing.T) {
	file := newTestAttachment(t)

	require.True(t, file.IsPendingScan())
	require.False(t, file.IsSafe())
	require.False(t, file.IsQuarantined())
	require.Equal(t, 1, file.Version())
	require.True(t, file.IsOriginalVersion())
	require.Equal(t, "invoices", file.Key().Prefix())
	require.Equal(t, "invoice.pdf", file.Key().Filename())
	require.Equal(t, "pdf", file.FileExtension())
}

func TestCreateFileAttachmentValidatesMetadata(t *testing.T) {
	checksum := ChecksumOf([]byte("x"))

	_, err := CreateFileAttachment(uuid.New(), "invoices", "f.pdf",
		"application/pdf", 11*1024*1024, checksum, "buyer")
	require.True(t, IsValidationError(err))

	_, err = CreateFileAttachment(uuid.New(), "invoices", "f.pdf",
		"not-a-mime", 100, checksum, "buyer")
	require.True(t, IsValidationError(err))

	_, err = CreateFileAttachment(uuid.New(), "invoices", "f.pdf",
		"application/pdf", 100, checksum, "  ")
	require.True(t, IsValidationError(err))
}

func TestMarkScanCompleteIsOneShot(t *testing.T) {
	file := newTestAttachment(t)

	require.NoError(t, file.MarkScanComplete(ScanClean()))
	require.True(t, file.IsSafe())
	require.True(t, file.IsReady())

	err := file.MarkScanComplete(ScanInfected())
	require.Error(t, err)
	require.True(t, IsImmutableEntityError(err))
	// The first result stands
	require.True(t, file.IsSafe())
}

func TestMarkScanCompleteInfected(t *testing.T) {
	file := newTestAttachment(t)

	require.NoError(t, file.MarkScanComplete(ScanInfected()))
	require.True(t, file.IsQuarantined())
	require.False(t, file.IsSafe())
	require.False(t, file.IsReady())

	err := file.MarkScanComplete(ScanClean())
	require.True(t, IsImmutableEntityError(err))
}

func TestMarkScanCompleteRejectsPendingResult(t *testing.T) {
	file := newTestAttachment(t)

	err := file.MarkScanComplete(ScanPending())
	require.Error(t, err)
	require.True(t, IsInvalidStateTransitionError(err))
	require.True(t, file.IsPendingScan())
}

func TestReconstituteFileAttachment(t *testing.T) {
	key, err := ParseS3ObjectKey("invoices/" + uuid.New().String() + "/a.pdf")
	require.NoError(t, err)
	metadata, err := NewFileMetadata("a.pdf", "application/pdf", 512)
	require.NoError(t, err)
	checksum := ChecksumOf([]byte("a"))

	file, err := ReconstituteFileAttachment(uuid.New(), key, metadata, checksum,
		ScanClean(), "buyer", time.Now(), 3)
	require.NoError(t, err)
	require.True(t, file.IsSafe())
	require.Equal(t, 3, file.Version())
	require.False(t, file.IsOriginalVersion())

	// Reconstitution keeps the stored key, it never regenerates
	require.True(t, key.Equals(file.Key()))

	_, err = ReconstituteFileAttachment(uuid.New(), key, metadata, checksum,
		ScanClean(), "buyer", time.Now(), 0)
	require.True(t, IsValidationError(err))
}

func TestDisplayInfo(t *testing.T) {
	file := newTestAttachment(t)
	info := file.DisplayInfo()

	require.Equal(t, "invoice.pdf", info.Filename)
	require.Equal(t, "pdf", info.Extension)
	require.Equal(t, "2.0 KB", info.Size)
	require.Equal(t, "PENDING", info.ScanStatus)
	require.Equal(t, 1, info.Version)
	require.False(t, info.Safe)
}

func TestFileVersionSnapshot(t *testing.T) {
	key, err := GenerateS3ObjectKey("invoices", "old.pdf")
	require.NoError(t, err)
	checksum := ChecksumOf([]byte("old"))

	version, err := NewFileVersion(uuid.New(), uuid.New(), 1, key, checksum,
		1024, "buyer", time.Now(), "superseded by corrected scan")
	require.NoError(t, err)
	require.Equal(t, 1, version.VersionNumber())
	require.Equal(t, "superseded by corrected scan", version.Reason())

	_, err = NewFileVersion(uuid.New(), uuid.New(), 0, key, checksum,
		1024, "buyer", time.Now(), "")
	require.True(t, IsValidationError(err))

	_, err = NewFileVersion(uuid.New(), uuid.New(), 1, key, checksum,
		1024, "", time.Now(), "")
	require.True(t, IsValidationError(err))
}
