package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visitor-system-backend/internal/report"
)

func (h *Handler) sendExport(c *gin.Context, export *report.Export) {
	c.Header("Content-Disposition", disposition("attachment", export.Filename))
	c.Data(http.StatusOK, report.XLSXContentType, export.Data)
}

// ExportVisits handles GET /api/admin/export-excel. It accepts the same
// nik, from and to filters as the admin log.
func (h *Handler) ExportVisits(c *gin.Context) {
	q, err := h.logQuery(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	q.Limit, q.Offset = 0, 0
	export, err := h.reports.ExportVisits(c.Request.Context(), h.tracker.Filter(q))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.sendExport(c, export)
}

// ExportMasterData handles GET /api/admin/export-master-data.
func (h *Handler) ExportMasterData(c *gin.Context) {
	export, err := h.reports.ExportMasterData(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.sendExport(c, export)
}

// Dashboard handles GET /api/analytics/dashboard?days=7|30|90.
func (h *Handler) Dashboard(c *gin.Context) {
	days, err := queryInt(c, "days", 7)
	if err != nil {
		h.writeError(c, err)
		return
	}
	d, err := h.reports.Dashboard(c.Request.Context(), days)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
