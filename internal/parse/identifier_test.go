package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"visitor-system-backend/internal/apperr"
)

func TestNIK(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  string
		expectErr bool
	}{
		{name: "Full NIK", raw: "3171000001000001", expected: "3171000001000001"},
		{name: "Short numeric", raw: "123", expected: "123"},
		{name: "Trimmed", raw: "  3171000001 ", expected: "3171000001"},
		{name: "Letters", raw: "31710A", expectErr: true},
		{name: "Too short", raw: "12", expectErr: true},
		{name: "Too long", raw: "123456789012345678901", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
		{name: "Inner space", raw: "317 100", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NIK(tc.raw)
			if tc.expectErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestUsername(t *testing.T) {
	_, err := Username("admin01")
	assert.NoError(t, err)

	_, err = Username("admin 01")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = Username("ad")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDisplayText(t *testing.T) {
	got, err := DisplayText("full_name", "  Budi   Santoso ", true, 0)
	assert.NoError(t, err)
	assert.Equal(t, "Budi Santoso", got)

	_, err = DisplayText("full_name", "   ", true, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err = DisplayText("phone", "", false, 0)
	assert.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = DisplayText("name", "abcdef", true, 5)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStoredName(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expectErr bool
	}{
		{name: "Generated pdf", raw: "1b4e28ba-2fa1-11d2-883f-0016d3cca427.pdf"},
		{name: "Generated jpg upper", raw: "1B4E28BA-2FA1-11D2-883F-0016D3CCA427.JPG"},
		{name: "Traversal", raw: "../etc/passwd", expectErr: true},
		{name: "Slash", raw: "a/1b4e28ba-2fa1-11d2-883f-0016d3cca427.pdf", expectErr: true},
		{name: "Backslash", raw: `..\\x.pdf`, expectErr: true},
		{name: "Unknown extension", raw: "1b4e28ba-2fa1-11d2-883f-0016d3cca427.exe", expectErr: true},
		{name: "Not generated", raw: "surat.pdf", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := StoredName(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExtensionAndOriginalFilename(t *testing.T) {
	assert.Equal(t, ".pdf", Extension("Surat Tugas.PDF"))
	assert.Equal(t, "", Extension("noext"))
	assert.Equal(t, "surat.pdf", OriginalFilename(`C:\Users\budi\surat.pdf`))
	assert.Equal(t, "surat.pdf", OriginalFilename("/tmp/surat.pdf"))
	assert.Equal(t, "file", OriginalFilename(".."))
}
