package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/model"
)

// ListTaskLetters handles GET /api/admin/visits/:id/task-letters.
func (h *Handler) ListTaskLetters(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	letters, err := h.docs.List(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if letters == nil {
		letters = []model.TaskLetter{}
	}
	c.JSON(http.StatusOK, gin.H{
		"visit_id":     id,
		"task_letters": letters,
		"max_allowed":  h.docs.MaxPerVisit(),
	})
}

// UploadTaskLetters handles POST /api/admin/visits/:id/task-letters. Files
// are sent as "task_letters" (repeatable) or a single "file". The batch is
// stored as a whole or not at all.
func (h *Handler) UploadTaskLetters(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	uploads, err := h.formFiles(c, "task_letters")
	if err != nil {
		h.writeError(c, err)
		return
	}
	single, err := h.formFile(c, "file")
	if err != nil {
		h.writeError(c, err)
		return
	}
	if single != nil {
		uploads = append(uploads, *single)
	}
	if len(uploads) == 0 {
		h.writeError(c, apperr.NewValidationError("task_letters", "no file uploaded"))
		return
	}

	attached, err := h.docs.AttachBatch(c.Request.Context(), id, uploads)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "task_letters": attached})
}

// DownloadTaskLetter handles GET /api/admin/task-letters/:letter_id.
func (h *Handler) DownloadTaskLetter(c *gin.Context) {
	id, err := idParam(c, "letter_id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	letter, rc, err := h.docs.Open(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer rc.Close()

	c.Header("X-Content-Type-Options", "nosniff")
	c.DataFromReader(http.StatusOK, letter.FileSize, "application/pdf", rc, map[string]string{
		"Content-Disposition": disposition("attachment", letter.OriginalFilename),
	})
}

// DeleteTaskLetter handles DELETE /api/admin/task-letters/:letter_id.
func (h *Handler) DeleteTaskLetter(c *gin.Context) {
	id, err := idParam(c, "letter_id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.docs.Detach(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Surat tugas dihapus"})
}

// ArchiveTaskLetters handles GET /api/admin/visits/:id/task-letters/archive.
// The zip is built in memory so a failure can still be reported as JSON.
func (h *Handler) ArchiveTaskLetters(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	var buf bytes.Buffer
	n, err := h.docs.Archive(c.Request.Context(), id, &buf)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", disposition("attachment", fmt.Sprintf("surat_tugas_kunjungan_%d.zip", id)))
	c.Header("X-Archive-Entries", strconv.Itoa(n))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}
