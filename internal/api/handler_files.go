package api

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"visitor-system-backend/internal/parse"
)

var fileTypes = map[string]struct {
	contentType string
	disposition string
}{
	".jpg":  {"image/jpeg", "inline"},
	".jpeg": {"image/jpeg", "inline"},
	".png":  {"image/png", "inline"},
	".pdf":  {"application/pdf", "attachment"},
}

// GetUpload handles GET /api/uploads/:filename. Only server generated names
// are accepted; images are shown inline and PDFs downloaded.
func (h *Handler) GetUpload(c *gin.Context) {
	name, err := parse.StoredName(c.Param("filename"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	rc, err := h.blobs.Open(c.Request.Context(), name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer rc.Close()

	ft := fileTypes[filepath.Ext(name)]
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Disposition", disposition(ft.disposition, name))
	c.Header("Cache-Control", "private, max-age=300")
	c.Header("Content-Type", ft.contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.log.Warn("failed to stream upload", zap.String("file", name), zap.Error(err))
	}
}
