// Package server wires repositories, services and HTTP handlers into the
// SideWidth API.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/digitalmaniak/sidewidth/internal/cache"
	"github.com/digitalmaniak/sidewidth/internal/config"
	"github.com/digitalmaniak/sidewidth/internal/database"
	"github.com/digitalmaniak/sidewidth/internal/middleware"
	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/repository"
	"github.com/digitalmaniak/sidewidth/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Per-route limits on top of the global limit.
var (
	voteLimit       = middleware.Limit{Name: "vote", Requests: 30, Window: time.Minute}
	createPostLimit = middleware.Limit{Name: "create_post", Requests: 5, Window: 10 * time.Minute}
)

// writeLimit returns l with the failure policy for cfg. In production the
// write routes refuse traffic while the limiter cannot count it.
func writeLimit(cfg *config.Config, l middleware.Limit) middleware.Limit {
	if cfg.IsProduction() {
		l.Policy = middleware.FailClosed
	}
	return l
}

// Repositories bundles the storage the server runs on.
type Repositories struct {
	Posts    repository.PostRepository
	Votes    repository.VoteRepository
	Profiles repository.ProfileRepository
}

// GormRepositories returns the Postgres-backed repositories for db.
func GormRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Posts:    repository.NewPostRepository(db),
		Votes:    repository.NewVoteRepository(db),
		Profiles: repository.NewProfileRepository(db),
	}
}

// Server represents the API server
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	feedService    *service.FeedService
	postService    *service.PostService
	voteService    *service.VoteService
	profileService *service.ProfileService
}

// NewServerWithDeps creates a server from already initialized connections.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return newServer(cfg, db, redisClient, GormRepositories(db)), nil
}

func newServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, repos Repositories) *Server {
	middleware.InitMiddleware(cfg)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("sidewidth-api"),
		feedService: service.NewFeedService(repos.Posts, repos.Votes, repos.Profiles, service.FeedOptions{
			PageSize:        cfg.FeedPageSize,
			DefaultRadiusKm: float64(cfg.DefaultLocalRadiusKm),
			CacheTTL:        time.Duration(cfg.FeedCacheTTLSeconds) * time.Second,
		}),
		postService:    service.NewPostService(repos.Posts, repos.Votes, repos.Profiles),
		voteService:    service.NewVoteService(repos.Posts, repos.Votes, repos.Profiles),
		profileService: service.NewProfileService(repos.Profiles),
	}
}

// NewApp builds the fiber application with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "SideWidth API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{
					Error: fe.Message,
					Code:  models.CodeFor(fe.Code),
				})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
				"path", c.Path(), "error", err.Error())
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures global middleware
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, OPTIONS",
	}))

	if s.config.RateLimitPerMinute > 0 {
		global := middleware.Limit{Name: "global", Requests: s.config.RateLimitPerMinute, Window: time.Minute}
		app.Use(global.Handler(s.redis))
	}
}

// SetupRoutes configures all API routes
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/categories", s.GetCategories)
	api.Get("/feed", middleware.OptionalAuth, s.GetFeed)

	posts := api.Group("/posts")
	posts.Get("/:id", middleware.OptionalAuth, s.GetPost)
	posts.Post("/", middleware.AuthRequired,
		writeLimit(s.config, createPostLimit).Handler(s.redis),
		s.CreatePost)
	posts.Post("/:id/vote", middleware.AuthRequired,
		writeLimit(s.config, voteLimit).Handler(s.redis),
		s.SubmitVote)

	profile := api.Group("/profile", middleware.AuthRequired)
	profile.Get("/", s.GetProfile)
	profile.Put("/", s.UpdateProfile)
}

// Start serves the API until Shutdown is called.
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err.Error())
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", "error", cerr.Error())
			}
		}
	}

	if s.redis != nil {
		if s.redis == cache.GetClient() {
			cache.SetClient(nil)
		}
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr.Error())
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}

// LivenessCheck handles liveness probe requests
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" {
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
