package server

import (
	"context"

	"backend-skitrack/internal/archive"
	"backend-skitrack/internal/auth"
	"backend-skitrack/internal/config"
	"backend-skitrack/internal/stream"
	"backend-skitrack/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	Archive  archive.Store
	Redis    *redis.Client
	Stream   *stream.Hub
	Tracking *tracking.Service
}

func NewServer(cfg config.Config, store archive.Store, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	hub := stream.NewHub(redisClient)
	opts := cfg.SessionOptions()
	opts.Observers = append(opts.Observers, hub)

	s := &Server{
		App:      app,
		Cfg:      cfg,
		Archive:  store,
		Redis:    redisClient,
		Stream:   hub,
		Tracking: tracking.NewService(store, opts),
	}

	registerRoutes(s)
	return s
}

// Close stops running sessions, archiving their summaries, and detaches from redis.
func (s *Server) Close(ctx context.Context) error {
	err := s.Tracking.Shutdown(ctx)
	if cerr := s.Stream.Close(); err == nil {
		err = cerr
	}
	return err
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Tracking, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, s.Stream.Snapshot(s.Tracking), jwtMiddleware, tracking.WatchAccess(s.Tracking))
}
