package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"tracker/config"
	"tracker/handler"
	"tracker/logging"
	"tracker/middleware"
	"tracker/repository"
	"tracker/services"
	"tracker/usecase"
	"tracker/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	maxBodySize   = 1 << 20  // 1MB
	maxImportSize = 10 << 20 // 10MB
)

// app holds the long-lived services shared by every request.
type app struct {
	cfg      config.Config
	tokens   *services.TokenService
	gate     *usecase.Gate
	entities *usecase.EntityService
	sessions *usecase.SessionManager
	prefs    *repository.PreferenceRepo
}

func newApp(cfg config.Config, store repository.Store, identity usecase.IdentityProvider, prefs *repository.PreferenceRepo, clock utils.Clock) *app {
	entities := usecase.NewEntityService(store, clock)
	sessions := usecase.NewSessionManager(store, entities, clock, cfg.Reminders, cfg.Sessions)
	return &app{
		cfg:      cfg,
		tokens:   services.NewTokenService(cfg.Auth),
		gate:     usecase.NewGate(identity, sessions, clock),
		entities: entities,
		sessions: sessions,
		prefs:    prefs,
	}
}

// connect opens the backing stores for the configured mode. Preferences always
// live in Redis; entities and credentials follow the mode.
func connect(ctx context.Context, cfg config.Config) (*app, func(), error) {
	log := logging.For("main")

	redisClient, err := utils.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){func() { _ = redisClient.Close() }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	prefs := repository.NewPreferenceRepo(redisClient, cfg.Redis.KeyPrefix)

	var (
		store    repository.Store
		identity usecase.IdentityProvider
	)
	switch cfg.Mode {
	case config.StoreRemote:
		mongoClient, err := utils.NewMongoClient(ctx, cfg.Database)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { disconnectMongo(mongoClient) })

		if err := repository.SetupIndexes(mongoClient.Database(cfg.Database.DatabaseName)); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to set up indexes: %w", err)
		}
		store = repository.NewMongoStore(mongoClient, cfg.Database.DatabaseName, cfg.Breaker)
		identity = services.NewAccountIdentity(repository.GetUserRepo(mongoClient, cfg.Database.DatabaseName))
	default:
		store, identity = localBackend(redisClient, cfg.Redis.KeyPrefix)
	}

	log.WithField("mode", cfg.Mode).Info("Backing store connected")
	return newApp(cfg, store, identity, prefs, utils.RealClock{}), closeAll, nil
}

func localBackend(client *redis.Client, prefix string) (repository.Store, usecase.IdentityProvider) {
	store := repository.NewRedisStore(client, prefix, utils.RealClock{})
	identity := services.NewLocalIdentity(repository.NewCredentialRepo(client, prefix))
	return store, identity
}

func disconnectMongo(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logging.For("main").WithError(err).Warn("MongoDB disconnect failed")
	}
}

func setupRouter(a *app) *gin.Engine {
	router := gin.New()

	router.Use(middleware.EnhancedRecoveryMiddleware())
	router.Use(middleware.RequestTracingMiddleware())
	router.Use(middleware.RequestLoggerMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(a.cfg.AllowedOrigins))
	router.Use(middleware.SecurityHeadersMiddleware())

	healthHandler := handler.NewHealthHandler(a.cfg.Mode, a.sessions)
	authHandler := handler.NewAuthHandler(a.gate, a.tokens)
	entityHandler := handler.NewEntityHandler(a.entities)
	prefsHandler := handler.NewPreferencesHandler(a.prefs)

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limitBody := middleware.RequestSizeLimiter(maxBodySize)
	noStore := middleware.CacheControlMiddleware("no-store")

	// Public routes (no authentication required)
	public := router.Group("/api", limitBody)
	{
		public.POST("/auth/login", noStore, authHandler.Login)
		public.GET("/preferences/theme", middleware.OptionalAuthMiddleware(a.tokens, a.sessions), prefsHandler.GetTheme)
	}

	// Protected routes (authentication required)
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(a.tokens, a.sessions), noStore)
	{
		user := protected.Group("/user", limitBody)
		{
			user.POST("/logout", authHandler.Logout)
			user.POST("/change-password", authHandler.ChangePassword)
		}

		projects := protected.Group("/projects", limitBody)
		{
			projects.GET("", entityHandler.ListProjects)
			projects.POST("", entityHandler.CreateProject)
			projects.PUT("/:id", entityHandler.UpdateProject)
			projects.DELETE("/:id", entityHandler.DeleteProject)
		}

		tasks := protected.Group("/tasks", limitBody)
		{
			tasks.GET("", entityHandler.ListTasks)
			tasks.POST("", entityHandler.CreateTask)
			tasks.PUT("/:id", entityHandler.UpdateTask)
			tasks.DELETE("/:id", entityHandler.DeleteTask)
		}

		reminders := protected.Group("/reminders", limitBody)
		{
			reminders.GET("", entityHandler.ListReminders)
			reminders.POST("", entityHandler.CreateReminder)
			reminders.PUT("/:id", entityHandler.UpdateReminder)
			reminders.POST("/:id/notified", entityHandler.MarkReminderNotified)
			reminders.DELETE("/:id", entityHandler.DeleteReminder)
		}

		protected.PUT("/preferences/theme", limitBody, prefsHandler.SetTheme)

		protected.GET("/dashboard", entityHandler.Dashboard)
		protected.GET("/events", entityHandler.Events)

		backup := protected.Group("/backup")
		{
			backup.GET("/export", entityHandler.Export)
			backup.POST("/import", middleware.RequestSizeLimiter(maxImportSize), entityHandler.Import)
		}
	}

	return router
}

func main() {
	if err := godotenv.Load(); err != nil && os.Getenv("GO_ENV") != "test" {
		logging.Logger.WithError(err).Fatal("Error loading .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Logger.WithError(err).Fatal("Invalid configuration")
	}
	logging.InitLogger(cfg.Log)

	if os.Getenv("GO_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	a, closeStores, err := connect(ctx, cfg)
	cancel()
	if err != nil {
		logging.Logger.WithError(err).Fatal("Failed to connect to backing store")
	}

	a.sessions.StartReaper()
	runServer(setupRouter(a), cfg.Port, a.sessions.Shutdown, closeStores)
}
