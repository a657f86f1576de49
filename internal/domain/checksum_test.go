package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileChecksumRoundTrip(t *testing.T) {
	digest := strings.Repeat("ab", 32)
	c, err := NewFileChecksum(digest)
	require.NoError(t, err)
	require.Equal(t, digest, c.String())
}

func TestFileChecksumNormalizesCase(t *testing.T) {
	upper := strings.Repeat("AB", 32)
	c, err := NewFileChecksum(upper)
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(upper), c.String())
}

func TestFileChecksumRejectsMalformedInput(t *testing.T) {
	cases := []string{
		"zz" + strings.Repeat("0", 62), // non-hex
		strings.Repeat("0", 63),        // too short
		strings.Repeat("0", 65),        // too long
		"",
	}
	for _, input := range cases {
		_, err := NewFileChecksum(input)
		require.Error(t, err, "input %q", input)
		require.True(t, IsValidationError(err))
	}
}

func TestChecksumOfContent(t *testing.T) {
	content := []byte("invoice body")
	c := ChecksumOf(content)
	require.Len(t, c.String(), 64)
	require.True(t, c.Matches(content))
	require.False(t, c.Matches([]byte("tampered")))

	same := ChecksumOf(content)
	require.True(t, c.Equals(same))
}
