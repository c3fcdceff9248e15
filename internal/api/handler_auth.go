package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Login handles POST /api/token with form fields username and password.
func (h *Handler) Login(c *gin.Context) {
	token, err := h.auth.Login(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// SetupAdmin handles POST /api/setup-admin.
func (h *Handler) SetupAdmin(c *gin.Context) {
	admin, err := h.auth.SetupAdmin(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("Admin %s berhasil dibuat", admin.Username),
	})
}

// Health reports whether the database is reachable.
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "online"})
}
