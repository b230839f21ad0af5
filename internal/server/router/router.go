package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"salakbook/internal/server/handlers"
	"salakbook/internal/service/users"
	"salakbook/internal/session"
)

// New wires the Gin engine with required routes and middlewares.
func New(auth *handlers.AuthHandler, production *handlers.ProductionHandler, revenue *handlers.RevenueHandler, tokens *users.TokenService, sessions *session.Manager, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.POST("/api/auth/register", auth.Register)
	r.POST("/api/auth/login", auth.Login)

	authorized := r.Group("/api", authMiddleware(tokens, sessions))
	{
		authorized.POST("/auth/logout", auth.Logout)

		authorized.GET("/production", production.List)
		authorized.PUT("/production", production.Save)
		authorized.GET("/production/export", production.Export)

		authorized.GET("/revenue", revenue.List)
		authorized.PUT("/revenue", revenue.Save)
		authorized.POST("/revenue/estimates", revenue.Build)
		authorized.GET("/revenue/estimates/:id", revenue.Detail)
		authorized.POST("/revenue/estimates/:id/scenario", revenue.Scenario)
		authorized.GET("/prices/reference", revenue.ReferenceRates)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func authMiddleware(tokens *users.TokenService, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(handlers.SessionKey, sessions.Start(claims.Username))
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
