package detector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

var ErrTimeout = errors.New("detector timed out")

// ExitError is returned when the detector exits with a non-zero status.
// Stderr holds the tail of the process output.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("detector exited with status %d: %s", e.Code, e.Stderr)
	}
	return fmt.Sprintf("detector exited with status %d", e.Code)
}

type Config struct {
	Program       string
	Script        string
	Device        string
	WorkDir       string
	ExtraArgs     []string
	Timeout       time.Duration
	MaxConcurrent int64
}

func DefaultConfig() Config {
	return Config{
		Program:       "python",
		Script:        "detect.py",
		Device:        "0",
		Timeout:       5 * time.Minute,
		MaxConcurrent: 1,
	}
}

type Request struct {
	Weights string
	Source  string
	Tag     string
}

type IDetector interface {
	Detect(ctx context.Context, req Request) error
}

type Detector struct {
	cfg Config
	sem *semaphore.Weighted
	log *logrus.Logger
}

func New(cfg Config, log *logrus.Logger) *Detector {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Detector{
		cfg: cfg,
		sem: semaphore.NewWeighted(cfg.MaxConcurrent),
		log: log,
	}
}

// Args is the argument vector passed to Program.
func (d *Detector) Args(req Request) []string {
	args := make([]string, 0, 12+len(d.cfg.ExtraArgs))
	if d.cfg.Script != "" {
		args = append(args, d.cfg.Script)
	}
	args = append(args,
		"--weights", req.Weights,
		"--source", req.Source,
		"--device", d.cfg.Device,
		"--agnostic-nms", "--save-txt",
		"--fastapi-outtag", req.Tag,
	)
	return append(args, d.cfg.ExtraArgs...)
}

// Detect runs one detector process and waits for it to finish.
func (d *Detector) Detect(ctx context.Context, req Request) error {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer d.sem.Release(1)

	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, d.cfg.Program, d.Args(req)...)
	cmd.Dir = d.cfg.WorkDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	err := cmd.Run()
	fields := logrus.Fields{
		"tag":      req.Tag,
		"weights":  req.Weights,
		"duration": time.Since(start).String(),
	}

	if ctx.Err() == context.DeadlineExceeded {
		d.log.WithFields(fields).Warn("detector timed out")
		return ErrTimeout
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e := &ExitError{Code: exitErr.ExitCode(), Stderr: lastLines(stderr.String(), 20)}
			fields["code"] = e.Code
			fields["stderr"] = e.Stderr
			d.log.WithFields(fields).Error("detector failed")
			return e
		}
		d.log.WithFields(fields).WithError(err).Error("failed to start detector")
		return err
	}

	d.log.WithFields(fields).Debug("detector finished")
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
