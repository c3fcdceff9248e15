package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/document"
)

const dateParamLayout = "2006-01-02"

func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}

// queryDate parses a YYYY-MM-DD local date.
func queryDate(c *gin.Context, name string, loc *time.Location) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateParamLayout, raw, loc)
	if err != nil {
		return time.Time{}, apperr.NewValidationError(name, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

// optionalID reads an optional numeric form field. Browser forms send
// "null" or "NaN" for an unselected option; both count as absent.
func optionalID(c *gin.Context, name string) (*int64, error) {
	raw := strings.TrimSpace(c.PostForm(name))
	switch raw {
	case "", "null", "undefined", "NaN":
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperr.NewValidationError(name, "must be a positive integer")
	}
	return &id, nil
}

// optionalForm returns a pointer to the field's value if it was sent.
func optionalForm(c *gin.Context, name string) *string {
	if v, ok := c.GetPostForm(name); ok {
		return &v
	}
	return nil
}

func optionalBool(c *gin.Context, name string) (*bool, error) {
	raw, ok := c.GetPostForm(name)
	if !ok {
		return nil, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, apperr.NewValidationError(name, "must be true or false")
	}
	return &b, nil
}

func missingFile(err error) bool {
	return errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart)
}

// formFile reads an optional uploaded file. Content beyond the size limit is
// not read; validation rejects the upload as too large.
func (h *Handler) formFile(c *gin.Context, field string) (*document.Upload, error) {
	fh, err := c.FormFile(field)
	if missingFile(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", field, err)
	}
	return h.readUpload(field, fh)
}

// formFiles reads every file sent under field.
func (h *Handler) formFiles(c *gin.Context, field string) ([]document.Upload, error) {
	form, err := c.MultipartForm()
	if missingFile(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read multipart form: %w", err)
	}
	uploads := make([]document.Upload, 0, len(form.File[field]))
	for _, fh := range form.File[field] {
		u, err := h.readUpload(field, fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *u)
	}
	return uploads, nil
}

func (h *Handler) readUpload(field string, fh *multipart.FileHeader) (*document.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", field, err)
	}
	return &document.Upload{
		Field:       field,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// disposition builds a Content-Disposition value with a safely quoted name.
func disposition(kind, filename string) string {
	if v := mime.FormatMediaType(kind, map[string]string{"filename": filename}); v != "" {
		return v
	}
	return kind
}
