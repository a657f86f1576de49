package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// S3ObjectKey is a content-addressed storage key of the fixed shape
// "prefix/uuid/filename". Keys are generated with a fresh random UUID;
// reconstruction from a stored string validates the shape strictly.
type S3ObjectKey struct {
	prefix   string
	objectID uuid.UUID
	filename string
}

// GenerateS3ObjectKey mints a new key under the given prefix. Path
// separators in the filename are replaced with underscores so a crafted
// filename cannot traverse out of its key segment.
func GenerateS3ObjectKey(prefix, filename string) (S3ObjectKey, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return S3ObjectKey{}, NewValidationError("prefix", "key prefix cannot be empty")
	}
	if strings.Contains(prefix, "/") {
		return S3ObjectKey{}, NewValidationError("prefix", "key prefix cannot contain a path separator")
	}
	sanitized := sanitizeFilename(filename)
	if sanitized == "" {
		return S3ObjectKey{}, NewValidationError("filename", "filename cannot be empty")
	}
	return S3ObjectKey{
		prefix:   prefix,
		objectID: uuid.New(),
		filename: sanitized,
	}, nil
}

// ParseS3ObjectKey reconstructs a key from its stored string form,
// rejecting anything that is not exactly prefix/uuid/filename.
func ParseS3ObjectKey(raw string) (S3ObjectKey, error) {
	segments := strings.Split(raw, "/")
	if len(segments) != 3 {
		return S3ObjectKey{}, NewValidationError("s3_key",
			fmt.Sprintf("key %q must have exactly three segments", raw))
	}
	prefix, idSegment, filename := segments[0], segments[1], segments[2]
	if prefix == "" || filename == "" {
		return S3ObjectKey{}, NewValidationError("s3_key", "key segments cannot be empty")
	}
	if len(idSegment) != 36 {
		return S3ObjectKey{}, NewValidationError("s3_key",
			fmt.Sprintf("key segment %q is not a canonical UUID", idSegment))
	}
	objectID, err := uuid.Parse(idSegment)
	if err != nil {
		return S3ObjectKey{}, NewValidationError("s3_key",
			fmt.Sprintf("key segment %q is not a valid UUID", idSegment))
	}
	return S3ObjectKey{prefix: prefix, objectID: objectID, filename: filename}, nil
}

func sanitizeFilename(filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, `\`, "_")
	return filename
}

// String renders the key in its stored form
func (k S3ObjectKey) String() string {
	return k.prefix + "/" + k.objectID.String() + "/" + k.filename
}

// Prefix returns the key prefix
func (k S3ObjectKey) Prefix() string { return k.prefix }

// ObjectID returns the random UUID segment
func (k S3ObjectKey) ObjectID() uuid.UUID { return k.objectID }

// Filename returns the sanitized filename segment
func (k S3ObjectKey) Filename() string { return k.filename }

// Equals reports structural equality
func (k S3ObjectKey) Equals(other S3ObjectKey) bool {
	return k.prefix == other.prefix &&
		k.objectID == other.objectID &&
		k.filename == other.filename
}
