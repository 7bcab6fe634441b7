package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/event-registration-api/api/swagger"
	"github.com/noah-isme/event-registration-api/internal/handler"
	"github.com/noah-isme/event-registration-api/internal/repository"
	"github.com/noah-isme/event-registration-api/internal/service"
	"github.com/noah-isme/event-registration-api/pkg/cache"
	"github.com/noah-isme/event-registration-api/pkg/config"
	"github.com/noah-isme/event-registration-api/pkg/database"
	"github.com/noah-isme/event-registration-api/pkg/jobs"
	"github.com/noah-isme/event-registration-api/pkg/logger"
	"github.com/noah-isme/event-registration-api/pkg/messaging/rabbit"
	"github.com/noah-isme/event-registration-api/pkg/storage"
)

// @title Event Registration API
// @version 1.0.0
// @description Registration, payment, check-in, badge and finance API for the youth gathering
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		redisClient = nil
	}

	publisher := dialPublisher(cfg, logr)
	defer publisher.Close() //nolint:errcheck

	app, err := buildApp(cfg, db, redisClient, publisher, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}

	badgeQueue := jobs.NewQueue("badges", app.badges.Handle, jobs.QueueConfig{
		Workers:    cfg.Badges.WorkerConcurrency,
		MaxRetries: cfg.Badges.WorkerRetries,
		OnFailure:  app.badges.HandleFailure,
		Logger:     logr,
	})
	if cfg.Badges.Enabled {
		app.badges.UseQueue(badgeQueue)
		badgeQueue.Start(ctx)
		defer badgeQueue.Stop()
	}

	go runCleanup(ctx, cfg.Exports, app.exports, app.badges, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, app, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// application holds the handlers and the services with background duties.
type application struct {
	auth          *handler.AuthHandler
	users         *handler.UserHandler
	events        *handler.EventHandler
	registrations *handler.RegistrationHandler
	registrants   *handler.RegistrantHandler
	analytics     *handler.AnalyticsHandler
	exportsH      *handler.ExportHandler
	badgesH       *handler.BadgeHandler
	finance       *handler.FinanceHandler
	teams         *handler.TeamHandler
	health        *handler.MetricsHandler

	authService *service.AuthService
	metrics     *service.MetricsService
	audit       *repository.UserRepository
	exports     *service.ExportService
	badges      *service.BadgeService
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, publisher rabbit.Publisher, logr *zap.Logger) (*application, error) {
	validate := validator.New()
	registrantValidator := service.NewRegistrantValidator(validate)
	metrics := service.NewMetricsService()

	policy, err := service.ParseDiscountPolicy(cfg.Event.DiscountPolicy)
	if err != nil {
		return nil, err
	}

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir, cfg.Uploads.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("init upload storage: %w", err)
	}
	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventConfigRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	registrantRepo := repository.NewRegistrantRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	financeRepo := repository.NewFinanceRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	analyticsCache := service.NewResultCache(cacheRepo, metrics, "analytics", cfg.Analytics.CacheTTL, logr, cfg.Analytics.Enabled && redisClient != nil)
	analyticsService := service.NewAnalyticsService(analyticsRepo, financeRepo, eventRepo, analyticsCache, metrics, logr)
	uploads := service.NewUploadService(uploadStore, service.UploadConfig{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
	}, logr)
	notifier := service.NewNotificationService(publisher, cfg.Notifications.RoutingKey, metrics, logr)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "event-registration-api",
	})
	userService := service.NewUserService(userRepo, uploads, validate, logr)
	eventService := service.NewEventConfigService(eventRepo, userRepo, registrantValidator, analyticsService, logr)
	teamService := service.NewTeamService(teamRepo, eventRepo, registrantValidator, logr)
	financeService := service.NewFinanceService(financeRepo, eventRepo, userRepo, registrantValidator, analyticsService, logr)
	registrationService := service.NewRegistrationService(
		registrationRepo,
		registrantRepo,
		eventRepo,
		teamRepo,
		userRepo,
		registrantValidator,
		service.RegistrationSettings{
			Policy:        policy,
			AutoConfirm:   cfg.Event.AutoConfirmPaid,
			InvoicePrefix: cfg.Event.InvoicePrefix,
		},
		logr,
		service.WithRegistrationUploads(uploads),
		service.WithRegistrationNotifier(notifier),
		service.WithRegistrationMetrics(metrics),
		service.WithRegistrationCache(analyticsService),
	)
	exportService := service.NewExportService(analyticsService, teamService, exportStore, signer, userRepo, metrics, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.MaxAge,
		FontPath:  cfg.Exports.FontPath,
	}, logr)
	badgeService := service.NewBadgeService(analyticsService, teamService, exportStore, signer, userRepo, metrics, cfg.APIPrefix, logr)

	checks := map[string]handler.Pinger{
		"database": handler.PingFunc(db.PingContext),
		"redis":    cacheRepo,
	}

	return &application{
		auth:          handler.NewAuthHandler(authService),
		users:         handler.NewUserHandler(userService),
		events:        handler.NewEventHandler(eventService),
		registrations: handler.NewRegistrationHandler(registrationService),
		registrants:   handler.NewRegistrantHandler(registrationService),
		analytics:     handler.NewAnalyticsHandler(analyticsService),
		exportsH:      handler.NewExportHandler(exportService),
		badgesH:       handler.NewBadgeHandler(badgeService),
		finance:       handler.NewFinanceHandler(financeService),
		teams:         handler.NewTeamHandler(teamService),
		health:        handler.NewMetricsHandler(metrics.Handler(), checks),
		authService:   authService,
		metrics:       metrics,
		audit:         userRepo,
		exports:       exportService,
		badges:        badgeService,
	}, nil
}

func dialPublisher(cfg *config.Config, logr *zap.Logger) rabbit.Publisher {
	if !cfg.Notifications.Enabled {
		return rabbit.NopPublisher{}
	}
	client, err := rabbit.Dial(cfg.Notifications.URL, cfg.Notifications.Exchange, logr)
	if err != nil {
		logr.Warn("rabbitmq unavailable, status notifications disabled", zap.Error(err))
		return rabbit.NopPublisher{}
	}
	return client
}

func runCleanup(ctx context.Context, cfg config.ExportsConfig, exports *service.ExportService, badges *service.BadgeService, logr *zap.Logger) {
	if cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(cfg.MaxAge)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
			}
			pruned := badges.Prune(cfg.MaxAge)
			if len(removed) > 0 || pruned > 0 {
				logr.Info("expired files removed", zap.Int("files", len(removed)), zap.Int("badge_jobs", pruned))
			}
		}
	}
}
