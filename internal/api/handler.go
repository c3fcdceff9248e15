package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"visitor-system-backend/internal/attendance"
	"visitor-system-backend/internal/auth"
	"visitor-system-backend/internal/blob"
	"visitor-system-backend/internal/document"
	"visitor-system-backend/internal/logger"
	"visitor-system-backend/internal/masterdata"
	"visitor-system-backend/internal/registry"
	"visitor-system-backend/internal/report"
	"visitor-system-backend/internal/store"
)

// Deps lists the services the handlers call.
type Deps struct {
	Store       store.Store
	Auth        *auth.Service
	Registry    *registry.Registry
	Tracker     *attendance.Tracker
	Documents   *document.Manager
	MasterData  *masterdata.Service
	Reports     *report.Service
	Blobs       blob.Store
	WebPush     *webpush.Options
	MaxFileSize int64
	Log         *zap.Logger
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store       store.Store
	auth        *auth.Service
	registry    *registry.Registry
	tracker     *attendance.Tracker
	docs        *document.Manager
	master      *masterdata.Service
	reports     *report.Service
	blobs       blob.Store
	webpush     *webpush.Options
	maxFileSize int64
	log         *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		store:       d.Store,
		auth:        d.Auth,
		registry:    d.Registry,
		tracker:     d.Tracker,
		docs:        d.Documents,
		master:      d.MasterData,
		reports:     d.Reports,
		blobs:       d.Blobs,
		webpush:     d.WebPush,
		maxFileSize: d.MaxFileSize,
		log:         logger.OrNop(d.Log).Named("api"),
	}
}
