// Package server contains the HTTP and WebSocket handlers of the blog API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "inkwell/docs" // swagger docs
	"inkwell/internal/auth"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/featureflags"
	"inkwell/internal/mail"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// backgroundWorker is a long-lived component stopped on shutdown.
type backgroundWorker interface {
	Name() string
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo  repository.UserRepository
	tokens    *auth.Manager
	blacklist auth.Blacklist

	authService     *service.AuthService
	profileService  *service.ProfileService
	userService     *service.UserService
	postService     *service.PostService
	categoryService *service.CategoryService
	tagService      *service.TagService
	commentService  *service.CommentService
	imageService    *service.ImageService

	mailDispatcher *mail.Dispatcher
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	events         *notifications.Publisher
	tickets        *notifications.TicketStore
	featureFlags   *featureflags.Manager
	workers        []backgroundWorker
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// The bootstrap layer establishes DB and Redis; tests pass SQLite and miniredis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	var blacklist auth.Blacklist
	if redisClient != nil {
		blacklist = auth.NewRedisBlacklist(redisClient)
	} else {
		blacklist = auth.NewMemoryBlacklist()
	}

	dispatcher := mail.NewDispatcher(mail.NewFromConfig(cfg), 0, 0)
	tokens := auth.NewManager(cfg)
	hub := notifications.NewHub()
	hub.SetStaffCheck(func(ctx context.Context, userID uint) bool {
		state, err := userRepo.GetAuthState(ctx, userID)
		if err != nil {
			// Only a vanished account loses delivery on a lookup error.
			return !models.IsCode(err, models.CodeNotFound)
		}
		return state.IsStaff && state.IsActive
	})
	notifier := notifications.NewNotifier(redisClient)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("inkwell-api"),
		userRepo:       userRepo,
		tokens:         tokens,
		blacklist:      blacklist,
		mailDispatcher: dispatcher,
		notifier:       notifier,
		hub:            hub,
		events:         notifications.NewPublisher(hub, notifier),
		tickets:        notifications.NewTicketStore(redisClient),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	s.authService = service.NewAuthService(userRepo, tokens, blacklist, mail.NewOutbox(dispatcher, cfg.SiteURL))
	s.profileService = service.NewProfileService(repository.NewProfileRepository(db))
	s.userService = service.NewUserService(userRepo)
	s.categoryService = service.NewCategoryService(repository.NewCategoryRepository(db))
	s.tagService = service.NewTagService(repository.NewTagRepository(db))
	s.postService = service.NewPostService(postRepo, s.categoryService, s.tagService)
	s.commentService = service.NewCommentService(commentRepo, postRepo)
	s.imageService = service.NewImageService(cfg)

	// Sockets close before the mail queue drains.
	s.workers = []backgroundWorker{hub, dispatcher}
	return s, nil
}

// newApp builds the fiber application with middleware and routes.
func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Inkwell API",
		BodyLimit: int(s.imageService.MaxUploadSizeBytes()) + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, models.NewValidationError(fe.Message))
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
				slog.String("path", c.Path()), slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(middleware.TracingMiddleware())

	// Swagger UI needs inline scripts.
	app.Use(helmet.New(helmet.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/swagger")
		},
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"detail": "Request was throttled."})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	mediaURL := s.config.MediaURL
	if mediaURL == "" {
		mediaURL = service.DefaultMediaURL
	}
	mediaDir := s.config.MediaDir
	if mediaDir == "" {
		mediaDir = service.DefaultMediaDir
	}
	app.Static(mediaURL, mediaDir, fiber.Static{MaxAge: 3600})

	app.Get("/api/swagger/*", swagger.HandlerDefault)

	v1 := app.Group("/api/v1")

	// Accounts
	accounts := v1.Group("/accounts")
	accounts.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	accounts.Get("/activation/confirm/:token", s.ActivationConfirm)
	accounts.Post("/activation/resend", middleware.RateLimit(s.redis, 3, 10*time.Minute, "activation_resend"), s.ActivationResend)
	accounts.Post("/jwt/create", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	accounts.Post("/jwt/refresh", s.RefreshToken)
	accounts.Post("/jwt/verify", s.VerifyToken)
	accounts.Post("/logout", s.Logout)
	accounts.Put("/change-password", s.AuthRequired(), s.ChangePassword)
	accounts.Post("/password-reset", middleware.RateLimit(s.redis, 3, 10*time.Minute, "password_reset"), s.PasswordResetRequest)
	accounts.Post("/password-reset/confirm/:token", s.PasswordResetConfirm)

	profile := accounts.Group("/profile", s.AuthRequired())
	profile.Get("/", s.GetProfile)
	profile.Put("/", s.UpdateProfile)
	profile.Patch("/", s.UpdateProfile)
	profile.Post("/image", middleware.RateLimit(s.redis, 10, time.Minute, "profile_image"), s.UploadProfileImage)

	// Blog: reads are public, writes need a user.
	blog := v1.Group("/blog", s.Authenticate())

	posts := blog.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Post("/", requireUser, s.CreatePost)
	// Specific /:slug/:resource routes before the generic /:slug route
	posts.Post("/:slug/image", requireUser, middleware.RateLimit(s.redis, 10, time.Minute, "post_image"), s.UploadPostImage)
	posts.Get("/:slug", s.GetPost)
	posts.Put("/:slug", requireUser, s.UpdatePost)
	posts.Patch("/:slug", requireUser, s.UpdatePost)
	posts.Delete("/:slug", requireUser, s.DeletePost)

	categories := blog.Group("/category")
	categories.Get("/", s.ListCategories)
	categories.Post("/", requireUser, s.CreateCategory)
	categories.Get("/:slug", s.GetCategory)
	categories.Put("/:slug", requireUser, s.UpdateCategory)
	categories.Patch("/:slug", requireUser, s.UpdateCategory)
	categories.Delete("/:slug", requireUser, s.DeleteCategory)

	tags := blog.Group("/tags")
	tags.Get("/", s.ListTags)
	tags.Post("/", requireUser, s.CreateTag)
	tags.Get("/:slug", s.GetTag)
	tags.Put("/:slug", requireUser, s.UpdateTag)
	tags.Patch("/:slug", requireUser, s.UpdateTag)
	tags.Delete("/:slug", requireUser, s.DeleteTag)

	comments := blog.Group("/comments")
	comments.Get("/", s.ListComments)
	comments.Post("/", requireUser, middleware.RateLimit(s.redis, 5, time.Minute, "create_comment"), s.CreateComment)
	comments.Post("/:id/approve", requireUser, requireStaff, s.ApproveComment)
	comments.Get("/:id", s.GetComment)
	comments.Put("/:id", requireUser, s.UpdateComment)
	comments.Patch("/:id", requireUser, s.UpdateComment)
	comments.Delete("/:id", requireUser, s.DeleteComment)

	// Admin
	admin := v1.Group("/admin", s.AuthRequired(), requireStaff)
	admin.Get("/users", s.AdminListUsers)
	admin.Patch("/users/:id", s.AdminUpdateUser)
	admin.Get("/comments/pending", s.AdminPendingComments)
	admin.Post("/comments/approve", s.AdminApproveComments)
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Inkwell API Metrics",
	}))

	// WebSocket notifications
	v1.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	v1.Get("/ws", s.WSTicketRequired(), s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database and Redis answer.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: without it the API runs on in-process fallbacks.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start wires the notification hub to Redis and serves HTTP until the app shuts down.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.newApp()

	if s.redis != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// stopWorkers shuts down the hub and the mail dispatcher.
func (s *Server) stopWorkers(ctx context.Context) {
	for _, w := range s.workers {
		if err := w.Shutdown(ctx); err != nil {
			middleware.Logger.Warn("worker shutdown failed",
				slog.String("worker", w.Name()), slog.String("error", err.Error()))
		}
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	s.stopWorkers(ctx)

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", slog.String("error", err.Error()))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
