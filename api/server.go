package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pricemonitor/config"
	"pricemonitor/notify"
	"pricemonitor/services"
	"pricemonitor/storage"
)

type Server struct {
	cfg       *config.Config
	store     *storage.PostgresStore
	products  *services.ProductService
	cleanup   *services.Cleanup
	analytics *services.AnalyticsService
	email     *notify.Email
}

func NewServer(cfg *config.Config, store *storage.PostgresStore,
	products *services.ProductService, cleanup *services.Cleanup,
	analytics *services.AnalyticsService, email *notify.Email) *Server {

	return &Server{
		cfg:       cfg,
		store:     store,
		products:  products,
		cleanup:   cleanup,
		analytics: analytics,
		email:     email,
	}
}

func (s *Server) Router() *gin.Engine {
	if s.cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", s.register)
	auth.POST("/login", s.login)
	auth.GET("/verify-email", s.verifyEmail)

	authed := api.Group("", s.requireAuth)

	authed.GET("/products", s.listProducts)
	authed.POST("/products", s.addProduct)
	authed.POST("/products/refresh", s.refreshAllProducts)
	authed.POST("/products/cleanup-history", s.cleanupAllHistory)
	authed.GET("/products/analytics", s.analyticsReport)
	authed.GET("/products/:id", s.getProduct)
	authed.DELETE("/products/:id", s.deleteProduct)
	authed.POST("/products/:id/refresh", s.refreshProduct)
	authed.GET("/products/:id/history", s.productHistory)
	authed.PUT("/products/:id/notifications", s.updateProductPrefs)
	authed.POST("/products/:id/cleanup-history", s.cleanupProductHistory)

	authed.GET("/notifications", s.listNotifications)
	authed.GET("/notifications/unread-count", s.unreadCount)
	authed.POST("/notifications/:id/read", s.markRead)
	authed.POST("/notifications/read-all", s.markAllRead)
	authed.DELETE("/notifications", s.deleteNotifications)

	authed.POST("/telegram/link-code", s.telegramLinkCode)
	authed.GET("/telegram/status", s.telegramStatus)
	authed.DELETE("/telegram/link", s.telegramUnlink)

	return r
}

// serviceError maps service-layer sentinels onto HTTP responses so handlers
// stay thin.
func serviceError(c *gin.Context, err error) {
	var quota *services.QuotaError
	switch {
	case errors.As(err, &quota):
		c.JSON(http.StatusForbidden, gin.H{
			"error":        "Verifique seu e-mail para adicionar mais produtos",
			"code":         "EMAIL_NOT_VERIFIED",
			"limit":        quota.Limit,
			"currentCount": quota.Current,
		})
	case errors.Is(err, services.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "URL de produto inválida ou não suportada",
			"code":  "INVALID_URL",
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Produto não encontrado"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Acesso negado"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro interno"})
	}
}
