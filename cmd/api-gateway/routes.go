package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/event-registration-api/internal/handler"
	"github.com/noah-isme/event-registration-api/internal/middleware"
	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/pkg/config"
	"github.com/noah-isme/event-registration-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/event-registration-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/event-registration-api/pkg/middleware/requestid"
)

var (
	staffRoles = []models.UserRole{models.RoleEventOrganizer, models.RoleRegistrationManager, models.RoleCashier}
	venueRoles = []models.UserRole{models.RoleEventOrganizer, models.RoleRegistrationManager}
)

func newRouter(cfg *config.Config, app *application, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins, cfg.CORS.MaxAge))
	r.Use(middleware.Metrics(app.metrics))

	r.GET("/health", app.health.Health)
	r.GET("/ready", app.health.Ready)
	r.GET("/metrics", app.health.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if cfg.Uploads.PublicBaseURL != "" && cfg.Uploads.PublicBaseURL[0] == '/' {
		r.Static(cfg.Uploads.PublicBaseURL, cfg.Uploads.StorageDir)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	authn := middleware.JWT(app.authService)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(app.audit, logr, action, resource)
	}

	auth := api.Group("/auth")
	auth.POST("/register", app.auth.Register)
	auth.POST("/login", app.auth.Login)
	auth.POST("/refresh", app.auth.Refresh)
	auth.POST("/logout", app.auth.Logout)
	auth.GET("/me", authn, app.auth.Me)
	auth.POST("/change-password", authn, app.auth.ChangePassword)

	users := api.Group("/users", authn)
	users.GET("", middleware.RequireRoles(), app.users.List)
	users.GET("/:id", middleware.RequireRolesOrSelf(), app.users.Get)
	users.PUT("/:id/role", middleware.RequireRoles(), app.users.UpdateRole)
	users.POST("/me/avatar", audit(models.AuditActionUpload, "user"), app.users.UploadAvatar)

	api.GET("/events/active", app.events.Active)
	events := api.Group("/events", authn)
	events.GET("", middleware.RequireRoles(staffRoles...), app.events.List)
	events.POST("", middleware.RequireRoles(models.RoleEventOrganizer), app.events.Create)
	events.PUT("/:id", middleware.RequireRoles(models.RoleEventOrganizer), app.events.Update)
	events.POST("/:id/activate", middleware.RequireRoles(models.RoleEventOrganizer), app.events.Activate)

	api.GET("/registrations/statuses", app.registrations.Statuses)
	api.POST("/registrations/quote", app.registrations.Quote)
	registrations := api.Group("/registrations", authn)
	registrations.GET("", middleware.RequireRoles(staffRoles...), app.registrations.List)
	registrations.GET("/mine", app.registrations.Mine)
	registrations.POST("", app.registrations.Create)
	registrations.GET("/:id", app.registrations.Get)
	registrations.PUT("/:id", app.registrations.Update)
	registrations.DELETE("/:id", app.registrations.Delete)
	registrations.POST("/:id/receipt", app.registrations.UploadReceipt)
	registrations.POST("/:id/transitions", app.registrations.Transition)

	registrants := api.Group("/registrants", authn)
	registrants.POST("/:id/check-in", middleware.RequireRoles(venueRoles...), app.registrants.CheckIn)
	registrants.POST("/:id/check-out", middleware.RequireRoles(venueRoles...), app.registrants.CheckOut)
	registrants.DELETE("/:id/check-in", middleware.RequireRoles(venueRoles...), app.registrants.UndoCheckIn)
	registrants.PUT("/:id/role", middleware.RequireRoles(models.RoleEventOrganizer), app.registrants.AssignRole)
	registrants.POST("/:id/portrait", audit(models.AuditActionUpload, "registrant"), app.registrants.UploadPortrait)

	analytics := api.Group("/analytics", authn, middleware.RequireRoles(staffRoles...))
	analytics.GET("/summary", app.analytics.Summary)
	analytics.GET("/breakdown/:dimension", app.analytics.Breakdown)
	analytics.GET("/dashboard", app.analytics.Dashboard)
	analytics.GET("/finance", middleware.RequireRoles(models.RoleCashier), app.analytics.Finance)
	analytics.GET("/system", middleware.RequireRoles(), app.analytics.System)

	api.GET("/exports/download/:token", app.exportsH.Download)
	api.POST("/exports/registrations", authn, middleware.RequireRoles(staffRoles...), app.exportsH.Registrations)

	api.GET("/badges/download/:token", app.badgesH.Download)
	badges := api.Group("/badges/jobs", authn, middleware.RequireRoles(venueRoles...))
	badges.POST("", audit(models.AuditActionBadgeJob, "badge_job"), app.badgesH.Start)
	badges.GET("/:id", app.badgesH.Get)
	badges.POST("/:id/cancel", app.badgesH.Cancel)

	finance := api.Group("/finance", authn)
	finance.GET("/expenses", middleware.RequireRoles(models.RoleCashier, models.RoleEventOrganizer), app.finance.ListExpenses)
	finance.POST("/expenses", middleware.RequireRoles(models.RoleCashier, models.RoleEventOrganizer), app.finance.CreateExpense)
	finance.POST("/expenses/:id/transitions", middleware.RequireRoles(models.RoleCashier), app.finance.TransitionExpense)
	finance.GET("/incomes", middleware.RequireRoles(models.RoleCashier), app.finance.ListIncomes)
	finance.POST("/incomes", middleware.RequireRoles(models.RoleCashier), app.finance.CreateIncome)
	finance.POST("/incomes/:id/transitions", middleware.RequireRoles(models.RoleCashier), app.finance.TransitionIncome)

	teams := api.Group("", authn)
	teams.GET("/teams", app.teams.ListTeams)
	teams.GET("/roles", app.teams.ListRoles)
	teams.POST("/teams", middleware.RequireRoles(models.RoleEventOrganizer), audit(models.AuditActionTeamCreate, "team"), app.teams.CreateTeam)
	teams.POST("/teams/:id/roles", middleware.RequireRoles(models.RoleEventOrganizer), audit(models.AuditActionTeamCreate, "role"), app.teams.CreateRole)

	locations := api.Group("/locations")
	locations.GET("/provinces", handler.Provinces)
	locations.GET("/dioceses", handler.Dioceses)

	return r
}
