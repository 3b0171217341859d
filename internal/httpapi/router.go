package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/calegrette/leaseguard/internal/common"
	"github.com/calegrette/leaseguard/internal/config"
	"github.com/calegrette/leaseguard/internal/httpapi/handlers"
	"github.com/calegrette/leaseguard/internal/httpapi/middleware"
	"github.com/calegrette/leaseguard/internal/storage"
	"github.com/calegrette/leaseguard/internal/store/rabbitmq"
	"github.com/calegrette/leaseguard/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, uploader storage.Uploader, rabbit *rabbitmq.Publisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(db, cfg, rds, uploader, rabbit)

	r.GET("/ping", h.Ping)

	// captcha
	r.POST("/captcha", h.SendCaptcha)

	// CRUD users register
	r.POST("/users", h.CreateUser)
	r.GET("/users/:id", h.GetUserByID)

	// auth
	r.POST("/login", h.Login)
	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)

	// Incidents (JWT required)
	authGroup.POST("/incidents", h.CreateIncident)
	authGroup.GET("/incidents", h.ListIncidents)
	authGroup.GET("/incidents/:id", h.GetIncident)
	authGroup.PATCH("/incidents/:id/status", h.UpdateIncidentStatus)

	// Evidence logs and uploads
	authGroup.POST("/incidents/:id/logs", h.CreateLog)
	authGroup.GET("/incidents/:id/logs", h.ListLogs)
	authGroup.POST("/incidents/:id/files", h.UploadFile)

	// Evidence views
	authGroup.GET("/incidents/:id/timeline", h.GetTimeline)
	authGroup.GET("/incidents/:id/file-groups", h.GetFileGroups)

	// Chat (JWT required)
	authGroup.POST("/incidents/:id/chat/messages", h.SendChatMessage)
	authGroup.POST("/incidents/:id/chat/messages/stream", h.SendChatMessageStream)

	// Exports
	authGroup.GET("/incidents/:id/report.pdf", h.ExportReportPDF)
	authGroup.POST("/incidents/:id/analysis", h.CreateAnalysisJob)
	authGroup.GET("/analysis/jobs/:job_id", h.GetAnalysisJob)

	return r
}
