package api

import (
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/api/handler"
	"github.com/d60-Lab/microblog/internal/api/middleware"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/logger"
)

// NewRouter wires middleware and routes.
func NewRouter(cfg *config.Config, h *handler.Handler, identity service.IdentityService) *gin.Engine {
	gin.SetMode(ginMode(cfg.Server.Mode))
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	r.Use(middleware.RateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	v1.POST("/auth/login", h.Login)
	v1.GET("/profiles/:nickname", h.GetUser)

	auth := v1.Group("")
	auth.Use(middleware.Auth(cfg.Auth.JWTSecret, identity))
	auth.PUT("/me", h.UpdateProfile)
	auth.POST("/relations/follow", h.Follow)
	auth.POST("/relations/unfollow", h.Unfollow)
	auth.GET("/relations/:user_id/following", h.IsFollowing)
	auth.GET("/users/:user_id/following", h.ListFollowing)
	auth.GET("/users/:user_id/fans", h.ListFans)
	auth.GET("/users/:user_id/posts", h.ListUserPosts)
	auth.POST("/posts", h.CreatePost)
	auth.GET("/timeline", h.Timeline)

	return r
}

func ginMode(mode string) string {
	if mode == "release" {
		return gin.ReleaseMode
	}
	return gin.DebugMode
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
