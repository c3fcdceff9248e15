package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
	"go.uber.org/zap"

	"visitor-system-backend/internal/logger"
	"visitor-system-backend/internal/mw"
)

// RouterConfig holds the HTTP layer settings.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	LoginPerMinute  int
	CORSOrigins     []string
	// Cache backs the public lookup lists. The master data service flushes
	// it on every change.
	Cache    *cache.Cache
	CacheTTL time.Duration
	// MaxBodyBytes caps request bodies, uploads included.
	MaxBodyBytes int64
	Log          *zap.Logger
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	log := logger.OrNop(cfg.Log)

	r := gin.New()
	r.Use(mw.Recovery(log), mw.RequestID(), mw.RequestLogger(log.Named("http")))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSOrigins))
	}
	if cfg.MaxBodyBytes > 0 {
		r.MaxMultipartMemory = cfg.MaxBodyBytes
	}

	if cfg.Cache == nil {
		cfg.Cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	caching := mw.Cache(cfg.Cache, cfg.CacheTTL)
	admin := mw.RequireAdmin()

	r.GET("/", h.Health)

	api := r.Group("/api")
	api.Use(mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst), mw.Auth(h.auth))
	if cfg.MaxBodyBytes > 0 {
		api.Use(mw.BodyLimit(cfg.MaxBodyBytes))
	}
	{
		api.GET("/health", h.Health)

		// Authentication
		api.POST("/token", mw.PerMinute(cfg.LoginPerMinute), h.Login)
		api.POST("/setup-admin", mw.PerMinute(cfg.LoginPerMinute), h.SetupAdmin)

		// Visitors
		api.POST("/visitors", admin, h.CreateVisitor)
		api.GET("/visitors", admin, h.ListVisitors)
		api.GET("/visitors/:nik", h.GetVisitor)
		api.PUT("/visitors/:nik", admin, h.UpdateVisitor)
		api.DELETE("/visitors/:nik", admin, h.DeleteVisitor)
		api.GET("/visitors/:nik/history", h.VisitorHistory)

		// Attendance
		api.POST("/check-in", h.CheckIn)
		api.POST("/check-out", h.CheckOut)

		// Public lookup lists
		api.GET("/rooms", caching, h.GetActiveRooms)
		api.GET("/companions", caching, h.GetActiveCompanions)

		// Push notifications
		api.GET("/subscriptions", admin, h.GetSubscription)
		api.PUT("/subscriptions", admin, h.PutSubscription)
		api.DELETE("/subscriptions", admin, h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		api.GET("/uploads/:filename", admin, h.GetUpload)
		api.GET("/analytics/dashboard", admin, h.Dashboard)
	}

	adm := api.Group("/admin", admin)
	{
		adm.GET("/logs", h.AdminLogs)
		adm.GET("/export-excel", h.ExportVisits)
		adm.GET("/export-master-data", h.ExportMasterData)

		adm.PUT("/visits/:id/checkout", h.ForceCheckOut)
		adm.DELETE("/visits/:id", h.DeleteVisit)

		adm.GET("/visits/:id/task-letters", h.ListTaskLetters)
		adm.POST("/visits/:id/task-letters", h.UploadTaskLetters)
		adm.GET("/visits/:id/task-letters/archive", h.ArchiveTaskLetters)
		adm.GET("/task-letters/:letter_id", h.DownloadTaskLetter)
		adm.DELETE("/task-letters/:letter_id", h.DeleteTaskLetter)

		adm.GET("/rooms", h.GetAllRooms)
		adm.POST("/rooms", h.CreateRoom)
		adm.PUT("/rooms/:id", h.UpdateRoom)
		adm.PATCH("/rooms/:id/toggle", h.ToggleRoom)
		adm.DELETE("/rooms/:id", h.DeleteRoom)

		adm.GET("/companions", h.GetAllCompanions)
		adm.POST("/companions", h.CreateCompanion)
		adm.PUT("/companions/:id", h.UpdateCompanion)
		adm.PATCH("/companions/:id/toggle", h.ToggleCompanion)
		adm.DELETE("/companions/:id", h.DeleteCompanion)
	}

	return r
}
