package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var checksumPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// FileChecksum is a SHA-256 content digest, normalized to 64 lowercase
// hexadecimal characters.
type FileChecksum struct {
	value string
}

// NewFileChecksum creates a checksum from its hex string form. Input is
// case-insensitive and normalized to lowercase.
func NewFileChecksum(value string) (FileChecksum, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if !checksumPattern.MatchString(normalized) {
		return FileChecksum{}, NewValidationError("checksum",
			"checksum must be a 64 character hexadecimal SHA-256 digest")
	}
	return FileChecksum{value: normalized}, nil
}

// ChecksumOf computes the checksum of the given content
func ChecksumOf(content []byte) FileChecksum {
	sum := sha256.Sum256(content)
	return FileChecksum{value: hex.EncodeToString(sum[:])}
}

// String returns the normalized hex digest
func (c FileChecksum) String() string { return c.value }

// Equals reports structural equality
func (c FileChecksum) Equals(other FileChecksum) bool { return c.value == other.value }

// Matches reports whether the given content hashes to this checksum
func (c FileChecksum) Matches(content []byte) bool {
	return ChecksumOf(content).value == c.value
}
