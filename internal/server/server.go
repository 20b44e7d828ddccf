// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"arcade/internal/bootstrap"
	"arcade/internal/catalog"
	"arcade/internal/config"
	"arcade/internal/middleware"
	"arcade/internal/models"
	"arcade/internal/notifications"
	"arcade/internal/service"
	"arcade/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	stores         *bootstrap.Stores
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	sessions    *session.Manager
	rateLimiter *middleware.RateLimiter
	catalog     *catalog.Client
	notifier    *notifications.Notifier
	hub         *notifications.Hub
	feed        *notifications.FeedBroker

	authSvc      *service.AuthService
	userSvc      *service.UserService
	favoritesSvc *service.FavoritesService
	postSvc      *service.PostService
	avatarSvc    *service.AvatarService
}

// NewServer connects the configured store and Redis and builds a server on them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	stores, redisClient, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, stores, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes the store and Redis.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, stores *bootstrap.Stores, redisClient *redis.Client) (*Server, error) {
	sessions, err := session.NewManager(session.Options{
		Secret:   cfg.JWTSecret,
		TTL:      cfg.TokenTTL(),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}

	server := &Server{
		config:         cfg,
		stores:         stores,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("arcade-api"),
		sessions:       sessions,
		rateLimiter:    middleware.NewRateLimiter(redisClient, cfg.Env),
		catalog: catalog.New(catalog.Options{
			APIKey:        cfg.RAWGAPIKey,
			BaseURL:       cfg.RAWGBaseURL,
			RatePerSecond: cfg.RAWGRatePerSecond,
			CacheTTL:      cfg.CatalogCacheTTL(),
		}),
		notifier: notifications.NewNotifier(redisClient),
		hub:      notifications.NewHub(),
	}
	server.feed = notifications.NewFeedBroker(server.hub, server.notifier)

	server.authSvc = service.NewAuthService(stores.Users, sessions, cfg.BcryptCost)
	server.userSvc = service.NewUserService(stores.Users, cfg.BcryptCost)
	server.favoritesSvc = service.NewFavoritesService(stores.Users)
	server.postSvc = service.NewPostService(stores.Posts, stores.Comments, stores.Users, server.feed)
	server.avatarSvc = service.NewAvatarService(server.userSvc, cfg)

	return server, nil
}

// App builds the Fiber application with middleware and routes on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:      "Arcade API",
		BodyLimit:    int(s.avatarSvc.MaxUploadBytes()) + 1024*1024,
		ErrorHandler: s.ErrorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// ErrorHandler renders errors that escape handlers. Fiber's own errors keep
// their status; anything else is an internal error.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		// Oversized bodies are refused before routing; avatar clients get the
		// same size error the upload handler returns.
		if fe.Code == fiber.StatusRequestEntityTooLarge && s.isAvatarUpload(c) {
			return s.respondWithError(c, s.avatarSvc.TooLargeError())
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Msg: fe.Message})
	}
	return s.respondWithError(c, models.NewInternalError(err))
}

func (s *Server) isAvatarUpload(c *fiber.Ctx) bool {
	return s.avatarSvc != nil && s.config != nil &&
		c.Method() == fiber.MethodPost &&
		strings.TrimSuffix(c.Path(), "/") == s.config.APIBasePath+"/auth/avatar"
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers. Avatars are embedded by the web client from another origin.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://localhost:5173,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, " + middleware.TokenHeader + ", Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	}))

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			middleware.RateLimitRejections.WithLabelValues("global").Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Msg:  "Too many requests, please try again later",
				Code: "RATE_LIMITED",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health", s.HealthCheck)
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Uploaded avatars
	app.Static("/uploads", s.config.UploadDir)

	api := app.Group(s.config.APIBasePath)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Arcade Backend Metrics Dashboard",
	}))

	authRequired := middleware.AuthRequired(s.sessions)

	// Auth routes
	auth := api.Group("/auth")
	auth.Get("/test", s.AuthTest)
	auth.Post("/register", s.rateLimiter.Limit(5, 10*time.Minute, "register", middleware.FailOpen), s.Register)
	auth.Post("/login", s.rateLimiter.Limit(10, 5*time.Minute, "login", middleware.FailOpen), s.Login)
	auth.Get("/", authRequired, s.GetCurrentUser)
	auth.Put("/profile", authRequired, s.UpdateProfile)
	auth.Put("/password", authRequired, s.ChangePassword)
	auth.Delete("/account", authRequired, s.DeleteAccount)
	auth.Post("/avatar", authRequired, s.rateLimiter.Limit(10, 10*time.Minute, "avatar", middleware.FailOpen), s.UploadAvatar)

	// Game routes. Specific paths before the generic /:gameId route
	games := api.Group("/games", authRequired)
	games.Get("/favorites", s.GetFavorites)
	games.Put("/favorite", s.AddFavorite)
	games.Delete("/favorite/:gameId", s.RemoveFavorite)
	games.Get("/", s.SearchGames)
	games.Get("/:gameId", s.GetGame)

	// Post routes
	posts := api.Group("/posts", authRequired)
	posts.Get("/", s.GetPosts)
	posts.Post("/", s.rateLimiter.Limit(10, time.Minute, "create_post", middleware.FailOpen), s.CreatePost)
	posts.Put("/like/:id", s.ToggleLike)
	posts.Post("/comment/:id", s.rateLimiter.Limit(20, time.Minute, "create_comment", middleware.FailOpen), s.AddComment)
	posts.Delete("/comment/:id/:commentId", s.DeleteComment)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", s.DeletePost)

	// Live feed
	ws := api.Group("/ws")
	ws.Post("/ticket", authRequired, s.IssueWSTicket)
	ws.Get("/feed", s.WSTicketRequired(), s.FeedWebSocket())

	app.Use(s.NotFound)
}

// NotFound answers every unmatched route.
func (s *Server) NotFound(c *fiber.Ctx) error {
	middleware.Logger.WarnContext(c.UserContext(), "route not found", "method", c.Method(), "path", c.OriginalURL())
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":           "Not Found",
		"message":         fmt.Sprintf("Cannot %s %s", c.Method(), c.OriginalURL()),
		"availableRoutes": s.availableRoutes(),
	})
}

func (s *Server) availableRoutes() []string {
	base := s.config.APIBasePath
	return []string{
		"GET /health",
		"GET " + base + "/auth/test",
		"POST " + base + "/auth/register",
		"POST " + base + "/auth/login",
		"GET " + base + "/auth",
		"PUT " + base + "/auth/profile",
		"PUT " + base + "/auth/password",
		"POST " + base + "/auth/avatar",
		"DELETE " + base + "/auth/account",
		"GET " + base + "/games",
		"GET " + base + "/games/favorites",
		"PUT " + base + "/games/favorite",
		"DELETE " + base + "/games/favorite/:gameId",
		"GET " + base + "/posts",
		"POST " + base + "/posts",
		"DELETE " + base + "/posts/:id",
		"PUT " + base + "/posts/like/:id",
		"POST " + base + "/posts/comment/:id",
		"DELETE " + base + "/posts/comment/:id/:commentId",
		"POST " + base + "/ws/ticket",
		"GET " + base + "/ws/feed",
	}
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	status, checks := s.dependencyChecks(c.UserContext())
	body := fiber.Map{
		"status":  "ok",
		"message": "Server is running",
		"checks":  checks,
		"time":    time.Now(),
	}
	if status != fiber.StatusOK {
		body["status"] = "error"
		body["message"] = "Server is degraded"
	}
	return c.Status(status).JSON(body)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	status, checks := s.dependencyChecks(c.UserContext())
	overall := "healthy"
	if status != fiber.StatusOK {
		overall = "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": checks,
		"time":   time.Now(),
	})
}

// dependencyChecks pings the store and Redis. Only the store is required;
// without Redis the server runs without cache, tickets and fan-out.
func (s *Server) dependencyChecks(ctx context.Context) (int, fiber.Map) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.stores == nil {
		dbStatus = "unavailable"
	} else if err := s.stores.Ping(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return status, fiber.Map{
		"database": dbStatus,
		"redis":    redisStatus,
		"catalog":  s.catalog.Enabled(),
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	// Fan feed events from Redis out to this instance's sockets
	if s.notifier.Enabled() {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring", "hub", s.hub.Name(), "error", err)
			}
		}()
	}

	middleware.Logger.Info("Server starting", "port", s.config.Port, "driver", s.config.DBDriver)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop all wiring goroutines
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	// Shutdown the HTTP/WS server
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	// Close WebSocket connections gracefully
	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", "hub", s.hub.Name(), "error", err)
	}

	if s.stores != nil {
		if err := s.stores.Close(ctx); err != nil {
			middleware.Logger.Error("error closing store", "error", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err)
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
