package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/dancymeals/backend/config"
	"github.com/dancymeals/backend/internal/api"
	"github.com/dancymeals/backend/internal/middleware"
	"github.com/dancymeals/backend/internal/service"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger zerolog.Logger
}

// New assembles the gin engine, middleware and handlers.
func New(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, logger zerolog.Logger) *Server {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Metrics())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	repo := service.NewScheduleRepository(db)
	validator := service.NewScheduleValidationService(repo)
	scheduling := service.NewOrderSchedulingService(repo, service.NewSystemClock(), logger)

	scheduleHandler := api.NewScheduleHandler(repo, validator, logger)
	storefrontHandler := api.NewStorefrontHandler(scheduling, logger)

	v1 := router.Group("/api/v1")
	scheduleHandler.RegisterRoutes(v1)

	storefrontGroup := v1
	if redisClient != nil {
		limiter := middleware.NewStorefrontRateLimiter(redisClient)
		storefrontGroup = v1.Group("")
		storefrontGroup.Use(limiter.RateLimitMiddleware())
	}
	storefrontHandler.RegisterRoutes(storefrontGroup)

	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{
		router: router,
		logger: logger,
	}
}

// Start begins serving and blocks until the listener fails or closes.
func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	s.logger.Info().Str("port", port).Msg("http server listening")

	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}

// Router exposes the gin engine, used by tests to drive requests through
// the full middleware stack.
func (s *Server) Router() *gin.Engine {
	return s.router
}
