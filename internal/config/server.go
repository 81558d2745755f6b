package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	inferenceHandler "nuyolo/internal/api/inference/handler"
	inferenceRepository "nuyolo/internal/api/inference/repository"
	inferenceService "nuyolo/internal/api/inference/service"
	"nuyolo/internal/middleware"
	"nuyolo/pkg/database"
	"nuyolo/pkg/detector"
	"nuyolo/pkg/redis"
	"nuyolo/pkg/s3"
	"nuyolo/pkg/utils"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	env         *Env
	db          *sqlx.DB
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	detector    detector.IDetector
	handlers    []handler
	redisServer redis.IRedis
	s3Client    s3.ItfS3
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.env == nil {
		return nil, fmt.Errorf("environment is required")
	}
	if server.validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if server.middleware == nil {
		return nil, fmt.Errorf("middleware is required")
	}
	if server.utils == nil {
		server.utils = utils.New(int64(server.env.MaxUploadMB) * 1024 * 1024)
	}
	if server.detector == nil {
		server.detector = detector.New(server.env.Detector, server.log)
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithEnv(env *Env) ServerOption {
	return func(s *Server) error {
		s.env = env
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := database.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithDB(db *sqlx.DB) ServerOption {
	return func(s *Server) error {
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New(s3.ConfigFromEnv())
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithDetector(det detector.IDetector) ServerOption {
	return func(s *Server) error {
		s.detector = det
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		if s.env == nil {
			return fmt.Errorf("environment must be loaded before middleware")
		}
		s.middleware = middleware.New(s.log, middleware.Config{
			RateLimit: s.env.RateLimit,
			Burst:     s.env.RateBurst,
		})
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		if s.env == nil {
			return fmt.Errorf("environment must be loaded before utils")
		}
		s.utils = utils.New(int64(s.env.MaxUploadMB) * 1024 * 1024)
		return nil
	}
}

func (s *Server) RegisterHandler() error {
	if err := os.MkdirAll(s.env.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	classes, err := s.env.Classes()
	if err != nil {
		return fmt.Errorf("load class names: %w", err)
	}

	// Inference Domain
	var inferenceRepo inferenceRepository.Repository
	if s.db != nil {
		inferenceRepo = inferenceRepository.New(s.db, s.log)
	}
	inferenceServices := inferenceService.NewInferenceService(s.log, inferenceRepo, s.detector, s.redisServer, s.s3Client, s.utils, inferenceService.Config{
		DownloadDir: s.env.DownloadDir,
		RenderBoxes: s.env.RenderBoxes,
		CacheTTL:    s.env.CacheTTL,
		Classes:     classes,
	})
	inferenceHandlers := inferenceHandler.New(s.log, s.validator, s.middleware, inferenceServices, s.env.SubmitTimeout)

	s.engine.Use(s.middleware.NewRequestIDMiddleware(), s.middleware.NewLoggingMiddleware())
	s.setupHealthCheck()
	s.handlers = append(s.handlers, inferenceHandlers)

	for _, h := range s.handlers {
		h.Start(s.engine)
	}

	return nil
}

func (s *Server) Run() error {
	return s.engine.Listen(fmt.Sprintf(":%s", s.env.AppPort))
}

func (s *Server) Shutdown(timeout time.Duration) error {
	err := s.engine.ShutdownWithTimeout(timeout)
	if s.db != nil {
		if dbErr := s.db.Close(); err == nil {
			err = dbErr
		}
	}
	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/health", func(ctx *fiber.Ctx) error {
		if s.db != nil {
			c, cancel := context.WithTimeout(ctx.UserContext(), 2*time.Second)
			defer cancel()
			if err := s.db.PingContext(c); err != nil {
				return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"message": "Database unavailable",
				})
			}
		}
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
