package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/calegrette/leaseguard/internal/ai"
	"github.com/calegrette/leaseguard/internal/analysis"
	"github.com/calegrette/leaseguard/internal/chat"
	"github.com/calegrette/leaseguard/internal/common"
	"github.com/calegrette/leaseguard/internal/config"
	"github.com/calegrette/leaseguard/internal/email"
	"github.com/calegrette/leaseguard/internal/httpapi/middleware"
	"github.com/calegrette/leaseguard/internal/incident"
	"github.com/calegrette/leaseguard/internal/notify"
	"github.com/calegrette/leaseguard/internal/report"
	"github.com/calegrette/leaseguard/internal/storage"
	"github.com/calegrette/leaseguard/internal/store/rabbitmq"
	"github.com/calegrette/leaseguard/internal/store/redisstore"
)

type Handler struct {
	DB          *gorm.DB
	Cfg         config.Config
	Redis       *redisstore.Store
	SMTPSetting email.SMTPConfig

	Incidents    *incident.Service
	ChatSvc      *chat.Service
	AnalysisRepo *analysis.Repo
	Generator    *report.Generator
	Uploader     storage.Uploader
	Rabbit       *rabbitmq.Publisher
	Notifier     notify.Notifier
}

// NewRegistry wires the configured AI providers. Shared by the API and the
// worker so both route requests identically.
func NewRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	})
	reg.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenRouterModel
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, m,
			cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})
	return reg
}

func DefaultModel(cfg config.Config) string {
	switch strings.ToLower(cfg.AIProvider) {
	case "openrouter":
		return cfg.OpenRouterModel
	default:
		return cfg.OllamaModel
	}
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, uploader storage.Uploader, rabbit *rabbitmq.Publisher) *Handler {
	incidents := incident.NewService(incident.NewRepo(db), rds)
	reg := NewRegistry(cfg)
	chatSvc := chat.NewService(incidents, reg, cfg.AIProvider, DefaultModel(cfg), cfg.ChatContextWindowSize)

	return &Handler{
		DB:    db,
		Cfg:   cfg,
		Redis: rds,
		SMTPSetting: email.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		},
		Incidents:    incidents,
		ChatSvc:      chatSvc,
		AnalysisRepo: analysis.NewRepo(db),
		Generator:    report.NewGenerator(cfg.BrandName, report.NewHTTPImageFetcher(cfg.ImageFetchTimeout)),
		Uploader:     uploader,
		Rabbit:       rabbit,
		Notifier:     notify.LogNotifier{},
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"message": "pong"})
}

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

func incidentIDParam(c *gin.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
