package inferenceHandler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/sirupsen/logrus"
	inferenceService "nuyolo/internal/api/inference/service"
	"nuyolo/internal/middleware"
	"nuyolo/internal/view"
)

type InferenceHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	inferenceService inferenceService.IInferenceService
	submitTimeout    time.Duration
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	is inferenceService.IInferenceService,
	submitTimeout time.Duration,
) *InferenceHandler {
	if submitTimeout <= 0 {
		submitTimeout = 10 * time.Minute
	}
	return &InferenceHandler{
		log:              log,
		validator:        validate,
		middleware:       middleware,
		inferenceService: is,
		submitTimeout:    submitTimeout,
	}
}

func (h *InferenceHandler) Start(srv fiber.Router) {
	// Pages
	srv.Get("/", h.Home)
	srv.Post("/", h.middleware.NewRateLimiter, h.Submit)
	srv.Get("/inference", h.Inference)
	srv.Get("/download", h.Download)
	srv.Get("/image", h.Image)
	srv.Get("/about", h.About)
	srv.Use("/templates", filesystem.New(filesystem.Config{
		Root:   view.Static(),
		MaxAge: 3600,
	}))

	// JSON API
	runs := srv.Group("/api/v1/inferences")
	runs.Get("", h.ListRuns)
	runs.Get("/:tag", h.GetRun)
}
