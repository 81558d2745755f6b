package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"nuyolo/internal/dataset"
	"nuyolo/pkg/detector"
)

// Env is the server configuration, read from the process environment
// after godotenv has loaded any .env file.
type Env struct {
	AppName       string
	AppPort       string
	AppEnv        string
	DownloadDir   string
	MaxUploadMB   int
	RenderBoxes   bool
	SubmitTimeout time.Duration
	CacheTTL      time.Duration
	RateLimit     float64
	RateBurst     int
	ManifestPath  string
	RedisEnabled  bool
	S3Enabled     bool
	Detector      detector.Config
}

func LoadEnv() (*Env, error) {
	var errs []string
	p := envParser{errs: &errs}

	env := &Env{
		AppName:       getEnv("APP_NAME", "nuyolo"),
		AppPort:       getEnv("APP_PORT", "3000"),
		AppEnv:        getEnv("APP_ENV", "development"),
		DownloadDir:   getEnv("DOWNLOAD_DIR", "./data/fastapi_download"),
		MaxUploadMB:   p.int("MAX_UPLOAD_MB", 20),
		RenderBoxes:   p.bool("RENDER_BOXES", false),
		SubmitTimeout: p.duration("SUBMIT_TIMEOUT", 10*time.Minute),
		CacheTTL:      p.duration("CACHE_TTL", 24*time.Hour),
		RateLimit:     p.float("RATE_LIMIT", 2),
		RateBurst:     p.int("RATE_BURST", 5),
		ManifestPath:  os.Getenv("MANIFEST_PATH"),
		RedisEnabled:  os.Getenv("REDIS_ADDRESS") != "",
		S3Enabled:     os.Getenv("AWS_BUCKET_NAME") != "",
	}

	det := detector.DefaultConfig()
	det.Program = getEnv("DETECTOR_PROGRAM", det.Program)
	det.Script = getEnv("DETECTOR_SCRIPT", det.Script)
	det.Device = getEnv("DETECTOR_DEVICE", det.Device)
	det.WorkDir = os.Getenv("DETECTOR_WORKDIR")
	det.ExtraArgs = strings.Fields(os.Getenv("DETECTOR_EXTRA_ARGS"))
	det.Timeout = p.duration("DETECTOR_TIMEOUT", det.Timeout)
	det.MaxConcurrent = int64(p.int("DETECTOR_MAX_CONCURRENT", int(det.MaxConcurrent)))
	env.Detector = det

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}

	dir, err := filepath.Abs(env.DownloadDir)
	if err != nil {
		return nil, err
	}
	env.DownloadDir = dir

	return env, nil
}

// Classes returns the class names the detector was trained with.
func (e *Env) Classes() ([]string, error) {
	if e.ManifestPath == "" {
		return dataset.DefaultClassMap().Classes(), nil
	}
	m, err := dataset.LoadManifest(e.ManifestPath)
	if err != nil {
		return nil, err
	}
	return m.Names, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type envParser struct {
	errs *[]string
}

func (p envParser) fail(key, v string, err error) {
	*p.errs = append(*p.errs, fmt.Sprintf("%s=%q: %v", key, v, err))
}

func (p envParser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p envParser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p envParser) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p envParser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}
