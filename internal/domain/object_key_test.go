package domain

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateS3ObjectKey(t *testing.T) {
	key, err := GenerateS3ObjectKey("invoices", "a.pdf")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^invoices/[0-9a-f-]{36}/a\.pdf$`), key.String())
	require.Equal(t, "invoices", key.Prefix())
	require.Equal(t, "a.pdf", key.Filename())
}

func TestGenerateS3ObjectKeySanitizesPathSeparators(t *testing.T) {
	key, err := GenerateS3ObjectKey("invoices", `../etc/passwd`)
	require.NoError(t, err)
	require.Equal(t, ".._etc_passwd", key.Filename())

	key, err = GenerateS3ObjectKey("invoices", `dir\file.pdf`)
	require.NoError(t, err)
	require.Equal(t, "dir_file.pdf", key.Filename())
}

func TestGenerateS3ObjectKeyValidation(t *testing.T) {
	_, err := GenerateS3ObjectKey("", "a.pdf")
	require.True(t, IsValidationError(err))

	_, err = GenerateS3ObjectKey("inv/oices", "a.pdf")
	require.True(t, IsValidationError(err))

	_, err = GenerateS3ObjectKey("invoices", "")
	require.True(t, IsValidationError(err))
}

func TestParseS3ObjectKeyRoundTrip(t *testing.T) {
	generated, err := GenerateS3ObjectKey("invoices", "a.pdf")
	require.NoError(t, err)

	parsed, err := ParseS3ObjectKey(generated.String())
	require.NoError(t, err)
	require.True(t, generated.Equals(parsed))
	require.Equal(t, generated.String(), parsed.String())
}

func TestParseS3ObjectKeyRejectsMalformedKeys(t *testing.T) {
	cases := []string{
		"bad/key",                             // wrong segment count
		"a/b/c/d",                             // wrong segment count
		"invoices/not-a-uuid/a.pdf",           // bad uuid
		"/00000000-0000-0000-0000-000000000000/a.pdf", // empty prefix
		"invoices/00000000-0000-0000-0000-000000000000/", // empty filename
		"",
	}
	for _, raw := range cases {
		_, err := ParseS3ObjectKey(raw)
		require.Error(t, err, "key %q", raw)
		require.True(t, IsValidationError(err))
	}
}
