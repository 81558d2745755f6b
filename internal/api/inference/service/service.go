package inferenceService

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/sirupsen/logrus"
	"nuyolo/internal/api/inference"
	inferenceRepository "nuyolo/internal/api/inference/repository"
	"nuyolo/pkg/detector"
	"nuyolo/pkg/redis"
	"nuyolo/pkg/s3"
	"nuyolo/pkg/utils"
)

type IInferenceService interface {
	Submit(ctx context.Context, req inference.SubmitRequest, file *multipart.FileHeader) (*inference.SubmitResult, error)
	Result(ctx context.Context, tag string) (*inference.Result, error)
	LabelFile(tag string) (string, error)
	ImageFile(tag string) (string, error)
	ListRuns(ctx context.Context, limit int) (*inference.RunListResponse, error)
	GetRun(ctx context.Context, tag string) (*inference.RunResponse, error)
	Classes() []string
}

type Config struct {
	DownloadDir string
	RenderBoxes bool
	CacheTTL    time.Duration
	Classes     []string
}

type inferenceService struct {
	log      *logrus.Logger
	repo     inferenceRepository.Repository
	detector detector.IDetector
	cache    redis.IRedis
	s3Client s3.ItfS3
	utils    utils.IUtils
	cfg      Config
}

// NewInferenceService wires the service. cache and s3Client may be nil.
func NewInferenceService(
	log *logrus.Logger,
	repo inferenceRepository.Repository,
	det detector.IDetector,
	cache redis.IRedis,
	s3Client s3.ItfS3,
	utils utils.IUtils,
	cfg Config,
) IInferenceService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &inferenceService{
		log:      log,
		repo:     repo,
		detector: det,
		cache:    cache,
		s3Client: s3Client,
		utils:    utils,
		cfg:      cfg,
	}
}
