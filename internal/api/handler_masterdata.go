package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visitor-system-backend/internal/masterdata"
	"visitor-system-backend/internal/model"
)

func (h *Handler) listRooms(c *gin.Context, activeOnly bool) {
	rooms, err := h.master.ListRooms(c.Request.Context(), activeOnly)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	c.JSON(http.StatusOK, rooms)
}

// GetActiveRooms handles GET /api/rooms.
func (h *Handler) GetActiveRooms(c *gin.Context) { h.listRooms(c, true) }

// GetAllRooms handles GET /api/admin/rooms.
func (h *Handler) GetAllRooms(c *gin.Context) { h.listRooms(c, false) }

func roomInput(c *gin.Context) (masterdata.RoomInput, error) {
	active, err := optionalBool(c, "is_active")
	if err != nil {
		return masterdata.RoomInput{}, err
	}
	return masterdata.RoomInput{
		Name:        optionalForm(c, "name"),
		Description: optionalForm(c, "description"),
		IsActive:    active,
	}, nil
}

// CreateRoom handles POST /api/admin/rooms.
func (h *Handler) CreateRoom(c *gin.Context) {
	in, err := roomInput(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	room, err := h.master.CreateRoom(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// UpdateRoom handles PUT /api/admin/rooms/:id.
func (h *Handler) UpdateRoom(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	in, err := roomInput(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	room, err := h.master.UpdateRoom(c.Request.Context(), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// ToggleRoom handles PATCH /api/admin/rooms/:id/toggle.
func (h *Handler) ToggleRoom(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	room, err := h.master.ToggleRoom(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// DeleteRoom handles DELETE /api/admin/rooms/:id. Rooms are deactivated, not
// removed, so past visits keep their reference.
func (h *Handler) DeleteRoom(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	if _, err := h.master.DeactivateRoom(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Ruangan dinonaktifkan"})
}

func (h *Handler) listCompanions(c *gin.Context, activeOnly bool) {
	companions, err := h.master.ListCompanions(c.Request.Context(), activeOnly)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if companions == nil {
		companions = []model.Companion{}
	}
	c.JSON(http.StatusOK, companions)
}

// GetActiveCompanions handles GET /api/companions.
func (h *Handler) GetActiveCompanions(c *gin.Context) { h.listCompanions(c, true) }

// GetAllCompanions handles GET /api/admin/companions.
func (h *Handler) GetAllCompanions(c *gin.Context) { h.listCompanions(c, false) }

func companionInput(c *gin.Context) (masterdata.CompanionInput, error) {
	active, err := optionalBool(c, "is_active")
	if err != nil {
		return masterdata.CompanionInput{}, err
	}
	return masterdata.CompanionInput{
		Name:     optionalForm(c, "name"),
		Position: optionalForm(c, "position"),
		IsActive: active,
	}, nil
}

// CreateCompanion handles POST /api/admin/companions.
func (h *Handler) CreateCompanion(c *gin.Context) {
	in, err := companionInput(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	companion, err := h.master.CreateCompanion(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, companion)
}

// UpdateCompanion handles PUT /api/admin/companions/:id.
func (h *Handler) UpdateCompanion(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	in, err := companionInput(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	companion, err := h.master.UpdateCompanion(c.Request.Context(), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, companion)
}

// ToggleCompanion handles PATCH /api/admin/companions/:id/toggle.
func (h *Handler) ToggleCompanion(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	companion, err := h.master.ToggleCompanion(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, companion)
}

// DeleteCompanion handles DELETE /api/admin/companions/:id.
func (h *Handler) DeleteCompanion(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	if _, err := h.master.DeactivateCompanion(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Pendamping dinonaktifkan"})
}
