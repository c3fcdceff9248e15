package document

import (
	"fmt"
	"slices"

	"github.com/gabriel-vasile/mimetype"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/parse"
)

// Kind selects which content types an upload may have.
type Kind int

const (
	// TaskLetter uploads must be PDF.
	TaskLetter Kind = iota
	// Identity uploads (photo, ID card) may be JPEG, PNG or PDF.
	Identity
)

func (k Kind) String() string {
	switch k {
	case TaskLetter:
		return "task_letter"
	case Identity:
		return "identity"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type format struct {
	mime string
	exts []string
	// ext is the extension used for stored blob names.
	ext string
}

var (
	pdfFormat  = format{mime: "application/pdf", exts: []string{".pdf"}, ext: ".pdf"}
	jpegFormat = format{mime: "image/jpeg", exts: []string{".jpg", ".jpeg"}, ext: ".jpg"}
	pngFormat  = format{mime: "image/png", exts: []string{".png"}, ext: ".png"}
)

func (k Kind) formats() []format {
	if k == Identity {
		return []format{jpegFormat, pngFormat, pdfFormat}
	}
	return []format{pdfFormat}
}

// Upload is a file received from a client. Filename and ContentType are
// untrusted; only Data decides the accepted type.
type Upload struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

func (u Upload) field() string {
	if u.Field != "" {
		return u.Field
	}
	return "file"
}

// Validate checks size, then extension and declared content type as a fast
// reject, then the sniffed content. It returns the extension to store under.
func Validate(kind Kind, u Upload, maxSize int64) (string, error) {
	field := u.field()
	if len(u.Data) == 0 {
		return "", apperr.NewValidationError(field, "file is empty")
	}
	if maxSize > 0 && int64(len(u.Data)) > maxSize {
		return "", apperr.NewValidationError(field, fmt.Sprintf("file exceeds %d bytes", maxSize))
	}

	ext := parse.Extension(u.Filename)
	idx := slices.IndexFunc(kind.formats(), func(f format) bool {
		return slices.Contains(f.exts, ext)
	})
	if idx < 0 {
		return "", apperr.NewValidationError(field, fmt.Sprintf("extension %q is not allowed for %s", ext, kind))
	}
	f := kind.formats()[idx]

	if u.ContentType != "" && !mimetype.EqualsAny(u.ContentType, "application/octet-stream", f.mime) {
		return "", apperr.NewValidationError(field, fmt.Sprintf("declared content type %q does not match %s", u.ContentType, ext))
	}

	detected := mimetype.Detect(u.Data)
	if !detected.Is(f.mime) {
		return "", apperr.NewValidationError(field, fmt.Sprintf("content is %s, expected %s", detected.String(), f.mime))
	}
	return f.ext, nil
}
