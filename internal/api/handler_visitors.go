package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"visitor-system-backend/internal/ctxutil"
	"visitor-system-backend/internal/model"
	"visitor-system-backend/internal/registry"
)

// visitorResponse is the public view of a visitor.
type visitorResponse struct {
	NIK          string        `json:"nik"`
	FullName     string        `json:"full_name"`
	Institution  string        `json:"institution"`
	PhotoFile    *string       `json:"photo_file"`
	IsCheckedIn  bool          `json:"is_checked_in"`
	CurrentVisit *openVisitRef `json:"current_visit"`

	// Admin only.
	Phone          *string `json:"phone,omitempty"`
	KTPFile        *string `json:"ktp_file,omitempty"`
	TaskLetterFile *string `json:"task_letter_file,omitempty"`
}

type openVisitRef struct {
	ID           int64     `json:"id"`
	VisitDate    string    `json:"visit_date"`
	CheckInTime  time.Time `json:"check_in_time"`
	VisitPurpose *string   `json:"visit_purpose"`
	RoomID       *int64    `json:"room_id"`
	CompanionID  *int64    `json:"companion_id"`
}

func (h *Handler) visitorView(c *gin.Context, p *registry.Profile) visitorResponse {
	v := p.Visitor
	resp := visitorResponse{
		NIK:         v.NIK,
		FullName:    v.FullName,
		Institution: v.Institution,
		PhotoFile:   v.PhotoFile,
		IsCheckedIn: p.IsCheckedIn,
	}
	if p.OpenVisit != nil {
		resp.CurrentVisit = h.openVisitView(p.OpenVisit)
	}
	if _, ok := ctxutil.PrincipalFromCtx(c.Request.Context()); ok {
		resp.Phone = v.Phone
		resp.KTPFile = v.KTPFile
		resp.TaskLetterFile = v.TaskLetterFile
	}
	return resp
}

func (h *Handler) openVisitView(v *model.Visit) *openVisitRef {
	return &openVisitRef{
		ID:           v.ID,
		VisitDate:    v.VisitDate.Format(dateParamLayout),
		CheckInTime:  h.tracker.Zone().Local(v.CheckInTime),
		VisitPurpose: v.VisitPurpose,
		RoomID:       v.RoomID,
		CompanionID:  v.CompanionID,
	}
}

// CreateVisitor handles POST /api/visitors (multipart).
func (h *Handler) CreateVisitor(c *gin.Context) {
	req := registry.RegisterRequest{
		NIK:         c.PostForm("nik"),
		FullName:    c.PostForm("full_name"),
		Institution: c.PostForm("institution"),
		Phone:       c.PostForm("phone"),
	}
	var err error
	if req.Photo, err = h.formFile(c, "photo"); err != nil {
		h.writeError(c, err)
		return
	}
	if req.KTP, err = h.formFile(c, "ktp"); err != nil {
		h.writeError(c, err)
		return
	}
	if req.TaskLetter, err = h.formFile(c, "task_letter"); err != nil {
		h.writeError(c, err)
		return
	}

	v, err := h.registry.Register(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Registrasi Tamu Berhasil",
		"visitor": v,
	})
}

// GetVisitor handles GET /api/visitors/:nik.
func (h *Handler) GetVisitor(c *gin.Context) {
	p, err := h.registry.Get(c.Request.Context(), c.Param("nik"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.visitorView(c, p))
}

// ListVisitors handles GET /api/visitors?search=&limit=&offset=.
func (h *Handler) ListVisitors(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		h.writeError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		h.writeError(c, err)
		return
	}
	visitors, total, err := h.registry.List(c.Request.Context(), c.Query("search"), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if visitors == nil {
		visitors = []model.Visitor{}
	}
	c.JSON(http.StatusOK, gin.H{"items": visitors, "total": total})
}

// UpdateVisitor handles PUT /api/visitors/:nik (multipart). Fields that are
// not sent stay unchanged.
func (h *Handler) UpdateVisitor(c *gin.Context) {
	req := registry.UpdateRequest{
		FullName:    optionalForm(c, "full_name"),
		Institution: optionalForm(c, "institution"),
		Phone:       optionalForm(c, "phone"),
	}
	var err error
	if req.Photo, err = h.formFile(c, "photo"); err != nil {
		h.writeError(c, err)
		return
	}
	if req.KTP, err = h.formFile(c, "ktp"); err != nil {
		h.writeError(c, err)
		return
	}
	if req.TaskLetter, err = h.formFile(c, "task_letter"); err != nil {
		h.writeError(c, err)
		return
	}

	v, err := h.registry.Update(c.Request.Context(), c.Param("nik"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Data tamu diperbarui",
		"visitor": v,
	})
}

// DeleteVisitor handles DELETE /api/visitors/:nik.
func (h *Handler) DeleteVisitor(c *gin.Context) {
	if err := h.registry.Delete(c.Request.Context(), c.Param("nik")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Data tamu dihapus"})
}

// VisitorHistory handles GET /api/visitors/:nik/history.
func (h *Handler) VisitorHistory(c *gin.Context) {
	history, err := h.tracker.History(c.Request.Context(), c.Param("nik"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
