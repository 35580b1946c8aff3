package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/fhe-content-hub/config"
	_ "github.com/d60-Lab/fhe-content-hub/docs"
	"github.com/d60-Lab/fhe-content-hub/internal/api/handler"
	"github.com/d60-Lab/fhe-content-hub/internal/api/middleware"
	"github.com/d60-Lab/fhe-content-hub/pkg/jwt"
)

// Setup builds the gateway engine. sessions is consulted on every
// wallet-bound request to reject tokens of a replaced session.
func Setup(cfg *config.Config, h *handler.Handler, tokens *jwt.Manager, sessions middleware.SessionSource) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(
		middleware.RequestLogger(),
		middleware.Recovery(),
		otelgin.Middleware(cfg.Tracing.ServiceName),
		gzip.Gzip(gzip.DefaultCompression),
	)

	r.GET("/healthz", h.Health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1", middleware.RateLimit(cfg.RateLimit))
	{
		v1.POST("/wallet/connect", h.ConnectWallet)
		v1.GET("/contents", h.ListContents)
		v1.GET("/contents/:id/access", h.CheckAccess)
		v1.GET("/stats", h.Stats)
		v1.GET("/status", h.Status)
		v1.GET("/categories", h.Categories)

		auth := v1.Group("", middleware.WalletAuth(tokens, sessions))
		auth.GET("/wallet", h.GetWallet)
		auth.POST("/wallet/disconnect", h.DisconnectWallet)
		auth.POST("/wallet/account", h.SwitchAccount)
		auth.POST("/contents", h.SubmitContent)
		auth.POST("/contents/:id/decrypt", h.DecryptContent)
		auth.POST("/contents/reconcile", h.ReconcileContents)
	}

	return r
}
