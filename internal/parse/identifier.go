package parse

import (
	"path/filepath"
	"regexp"
	"strings"

	"visitor-system-backend/internal/apperr"
)

var (
	nikRe      = regexp.MustCompile(`^\d{3,20}$`)
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9]{3,64}$`)
	// Stored blob names are generated by the server: uuid + lowercase extension.
	storedNameRe = regexp.MustCompile(`^[0-9a-f-]{36}\.(?:jpg|jpeg|png|pdf)$`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// NIK normalizes and validates a visitor identifier (digits only, 3-20 chars).
func NIK(raw string) (string, error) {
	nik := strings.TrimSpace(raw)
	if !nikRe.MatchString(nik) {
		return "", apperr.NewValidationError("nik", "must be 3-20 digits")
	}
	return nik, nil
}

// Username validates an admin username (alphanumeric, no spaces).
func Username(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if !usernameRe.MatchString(u) {
		return "", apperr.NewValidationError("username", "must be 3-64 alphanumeric characters")
	}
	return u, nil
}

// DisplayText collapses whitespace and trims a free-text field.
// Empty results are rejected when required is set.
func DisplayText(field, raw string, required bool, maxLen int) (string, error) {
	s := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
	if required && s == "" {
		return "", apperr.NewValidationError(field, "is required")
	}
	if maxLen > 0 && len([]rune(s)) > maxLen {
		return "", apperr.NewValidationError(field, "is too long")
	}
	return s, nil
}

// StoredName validates a blob name received from a client before it is used
// to address storage. Anything that could escape the upload directory fails.
func StoredName(raw string) (string, error) {
	if raw == "" || strings.Contains(raw, "..") || strings.ContainsAny(raw, `/\`) {
		return "", apperr.NewValidationError("filename", "invalid file name")
	}
	name := strings.ToLower(raw)
	if !storedNameRe.MatchString(name) {
		return "", apperr.NewValidationError("filename", "invalid file name")
	}
	return name, nil
}

// Extension returns the lowercase extension of a client supplied file name,
// including the dot. "JPEG" is folded to ".jpeg".
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
}

// OriginalFilename strips any client path components from an uploaded file name.
func OriginalFilename(raw string) string {
	name := strings.TrimSpace(raw)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}
