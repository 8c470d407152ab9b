package handlers

import (
	"context"
	"net/http"
	"slices"

	"github.com/beamdash/backend/internal/config"
	"github.com/beamdash/backend/internal/middleware"
	"github.com/beamdash/backend/internal/models"
	"github.com/beamdash/backend/internal/observability"
	"github.com/beamdash/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps is everything the router needs.
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics
	// Redis backs the rate limiters and the admin block; nil falls back to
	// in-process counters and disables blocking.
	Redis *redis.Client

	Auth      *services.AuthService
	Admin     *services.AdminService
	Audit     *services.AuditService
	Media     *services.MediaService
	Upload    *services.UploadService
	Todos     *services.TodoService
	Reminders *services.ReminderService
	Users     *services.UserService

	// FilesRoot is served under /files when objects live on local disk.
	FilesRoot string
	// Ready reports whether the backing stores answer.
	Ready func(ctx context.Context) error
}

// routedMethods are the methods answered with 405 on known paths. CORS
// preflights never reach the 405: the CORS middleware answers them first.
var routedMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodOptions,
}

type endpoint struct {
	method string
	chain  []gin.HandlerFunc
}

func on(method string, chain ...gin.HandlerFunc) endpoint {
	return endpoint{method: method, chain: chain}
}

// mount registers the endpoints of one path and rejects every other method
// before authentication runs.
func mount(g *gin.RouterGroup, path string, endpoints ...endpoint) {
	allowed := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		g.Handle(e.method, path, e.chain...)
		allowed = append(allowed, e.method)
	}
	reject := middleware.MethodNotAllowed(allowed...)
	for _, m := range routedMethods {
		if !slices.Contains(allowed, m) {
			g.Handle(m, path, reject)
		}
	}
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) *gin.Engine {
	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	counter := middleware.NewCounter(d.Redis)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(d.Logger))
	router.Use(middleware.RequestLogger(d.Logger))
	router.Use(middleware.HTTPMetrics(d.Metrics))
	router.Use(middleware.CORS(d.Config))
	router.Use(middleware.RateLimiter(counter, d.Config.RateLimitRequests, d.Config.RateLimitDuration, d.Logger))

	health := func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(c.Request.Context()); err != nil {
				d.Logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
	router.GET("/health", health)
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	if d.FilesRoot != "" {
		router.Static("/files", d.FilesRoot)
	}

	authHandler := NewAuthHandler(d.Auth, d.Logger)
	adminHandler := NewAdminHandler(d.Admin, d.Audit, d.Logger)
	mediaHandler := NewMediaHandler(d.Media, d.Upload, d.Config.MaxUploadSize, d.Logger)
	todoHandler := NewTodoHandler(d.Todos, d.Logger)
	reminderHandler := NewReminderHandler(d.Reminders, d.Logger)
	userHandler := NewUserHandler(d.Users, d.Logger)

	authed := middleware.Auth(d.Auth)
	loadCaller := middleware.LoadCaller(d.Admin, d.Logger)
	protected := func(h ...gin.HandlerFunc) []gin.HandlerFunc {
		return append([]gin.HandlerFunc{authed, loadCaller}, h...)
	}
	adminOnly := middleware.RequireAccess(models.AccessAdmin)
	superAdminOnly := middleware.RequireAccess(models.AccessSuperAdmin)
	adminLimit := func(action string) gin.HandlerFunc {
		return middleware.AdminActionRateLimit(d.Audit, d.Redis, action,
			d.Config.AdminRateLimitActions, d.Config.AdminRateLimitWindowMinutes, d.Logger)
	}

	api := router.Group("/api/v1")
	api.GET("/health", health)

	// Auth routes
	auth := api.Group("/auth")
	mount(auth, "/register", on(http.MethodPost, authHandler.Register))
	mount(auth, "/login", on(http.MethodPost, authHandler.Login))
	mount(auth, "/refresh", on(http.MethodPost, authHandler.Refresh))
	mount(auth, "/logout", on(http.MethodPost, authed, authHandler.Logout))

	// Identity and role management
	adminUsers := api.Group("/admin-users")
	mount(adminUsers, "/list-users",
		on(http.MethodGet, protected(adminOnly, adminHandler.ListUsers)...))
	mount(adminUsers, "/promote-customer-to-admin",
		on(http.MethodPost, protected(adminLimit(models.ActionPromoteUser), adminHandler.PromoteCustomer)...))
	mount(adminUsers, "/update-admin-role",
		on(http.MethodPost, protected(adminLimit(models.ActionUpdateRole), adminHandler.UpdateAdminRole)...))
	mount(adminUsers, "/audit-logs",
		on(http.MethodGet, protected(superAdminOnly, adminHandler.GetAuditLogs)...))

	// Media
	media := api.Group("/media-uploads")
	mount(media, "/list-media",
		on(http.MethodGet, protected(mediaHandler.ListMedia)...))
	mount(media, "/upload-media",
		on(http.MethodPost, protected(
			middleware.UploadRateLimit(counter, d.Config.UploadMaxPerDay, d.Logger),
			mediaHandler.UploadMedia)...))
	mount(media, "/update-media",
		on(http.MethodPut, protected(mediaHandler.UpdateMedia)...))
	mount(media, "/delete-media",
		on(http.MethodDelete, protected(adminLimit(models.ActionDeleteMedia), mediaHandler.DeleteMedia)...))

	// Productivity widgets
	mount(api, "/todos",
		on(http.MethodGet, protected(todoHandler.List)...),
		on(http.MethodPost, protected(todoHandler.Create)...))
	mount(api, "/todos/reorder", on(http.MethodPost, protected(todoHandler.Reorder)...))
	mount(api, "/todos/move", on(http.MethodPost, protected(todoHandler.Move)...))
	mount(api, "/todos/:id",
		on(http.MethodPut, protected(todoHandler.Update)...),
		on(http.MethodDelete, protected(todoHandler.Delete)...))

	mount(api, "/reminders",
		on(http.MethodGet, protected(reminderHandler.List)...),
		on(http.MethodPost, protected(reminderHandler.Create)...))
	mount(api, "/reminders/:id", on(http.MethodDelete, protected(reminderHandler.Delete)...))

	// Profile
	mount(api, "/profile",
		on(http.MethodGet, protected(userHandler.GetProfile)...),
		on(http.MethodPut, protected(userHandler.UpdateProfile)...))

	router.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "Not found")
	})

	return router
}
