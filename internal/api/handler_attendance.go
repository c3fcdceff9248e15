package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"visitor-system-backend/internal/attendance"
)

type attendanceResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Time    string        `json:"time"`
	Visit   *openVisitRef `json:"visit,omitempty"`
}

// CheckIn handles POST /api/check-in (multipart). A visitor who is already
// inside gets status "info" and nothing changes.
func (h *Handler) CheckIn(c *gin.Context) {
	req := attendance.CheckInRequest{
		NIK:     c.PostForm("nik"),
		Purpose: c.PostForm("visit_purpose"),
	}
	var err error
	if req.RoomID, err = optionalID(c, "room_id"); err != nil {
		h.writeError(c, err)
		return
	}
	if req.CompanionID, err = optionalID(c, "companion_id"); err != nil {
		h.writeError(c, err)
		return
	}
	if req.TaskLetters, err = h.formFiles(c, "task_letters"); err != nil {
		h.writeError(c, err)
		return
	}

	res, err := h.tracker.CheckIn(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	zone := h.tracker.Zone()
	resp := attendanceResponse{
		Status:  "success",
		Message: fmt.Sprintf("Selamat Datang %s!", res.Visitor.FullName),
		Time:    zone.Format(res.Visit.CheckInTime, attendance.TimeLayout),
		Visit:   h.openVisitView(res.Visit),
	}
	if res.AlreadyCheckedIn {
		resp.Status = "info"
		resp.Message = "Sudah masuk."
	}
	c.JSON(http.StatusOK, resp)
}

// CheckOut handles POST /api/check-out.
func (h *Handler) CheckOut(c *gin.Context) {
	visit, err := h.tracker.CheckOut(c.Request.Context(), c.PostForm("nik"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attendanceResponse{
		Status:  "success",
		Message: "Hati-hati di jalan!",
		Time:    h.tracker.Zone().Format(*visit.CheckOutTime, attendance.TimeLayout),
	})
}

// logQuery reads nik, from, to, limit and offset.
func (h *Handler) logQuery(c *gin.Context) (attendance.LogQuery, error) {
	var (
		q   attendance.LogQuery
		err error
	)
	loc := h.tracker.Zone().Location()
	q.NIK = c.Query("nik")
	if q.From, err = queryDate(c, "from", loc); err != nil {
		return q, err
	}
	if q.To, err = queryDate(c, "to", loc); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(c, "limit", 0); err != nil {
		return q, err
	}
	if q.Offset, err = queryInt(c, "offset", 0); err != nil {
		return q, err
	}
	return q, nil
}

// AdminLogs handles GET /api/admin/logs.
func (h *Handler) AdminLogs(c *gin.Context) {
	q, err := h.logQuery(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	logs, err := h.tracker.Logs(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// ForceCheckOut handles PUT /api/admin/visits/:id/checkout.
func (h *Handler) ForceCheckOut(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	visit, err := h.tracker.ForceCheckOut(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Check-out berhasil",
		"time":    h.tracker.Zone().Format(*visit.CheckOutTime, attendance.TimeLayout),
	})
}

// DeleteVisit handles DELETE /api/admin/visits/:id.
func (h *Handler) DeleteVisit(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.tracker.DeleteVisit(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Kunjungan dihapus"})
}
