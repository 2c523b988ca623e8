package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fundportal/internal/handler"
	"fundportal/pkg/rbac"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *handler.AuthHandler,
	escalationHandler *handler.EscalationHandler,
	notificationHandler *handler.NotificationHandler,
	jwtSecret string,
	db *pgxpool.Pool,
) *Router {
	r := gin.Default()
	r.Use(TraceMiddleware())
	r.Use(MetricsMiddleware())

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/api/auth/login", authHandler.Login)

	// Protected
	api := r.Group("/api")
	api.Use(AuthMiddleware(jwtSecret))
	{
		escalations := api.Group("/escalations")
		{
			escalations.GET("",
				RequirePermission(rbac.PermissionViewEscalation), escalationHandler.List)
			escalations.GET("/stats",
				RequirePermission(rbac.PermissionViewEscalation), escalationHandler.Stats)
			escalations.GET("/:id",
				RequirePermission(rbac.PermissionViewEscalation), escalationHandler.Get)
			escalations.POST("",
				RequirePermission(rbac.PermissionCreateEscalation), escalationHandler.Create)
			escalations.POST("/:id/resolve",
				RequirePermission(rbac.PermissionResolveEscalation), escalationHandler.Resolve)
			escalations.POST("/trigger-check",
				RequirePermission(rbac.PermissionRunSweep), escalationHandler.TriggerCheck)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.POST("/:id/read", notificationHandler.MarkAsRead)
		}
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
