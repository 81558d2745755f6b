package detector

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeDetect = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    --weights) weights="$2"; shift 2;;
    --fastapi-outtag) tag="$2"; shift 2;;
    *) shift;;
  esac
done
case "$weights" in
  fail.pt) echo "weights not found" >&2; exit 3;;
  slow.pt) exec sleep 5;;
esac
printf '0 0.5 0.5 0.2 0.2\n' > "$tag.txt"
`

func newTestDetector(t *testing.T, timeout time.Duration) (*Detector, string) {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "detect.sh")
	require.NoError(t, os.WriteFile(script, []byte(fakeDetect), 0o755))

	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(Config{
		Program:       sh,
		Script:        script,
		Device:        "cpu",
		WorkDir:       dir,
		Timeout:       timeout,
		MaxConcurrent: 2,
	}, log), dir
}

func TestArgs(t *testing.T) {
	d := New(DefaultConfig(), logrus.New())
	args := d.Args(Request{Weights: "yolov5s.pt", Source: "data/a.png", Tag: "a"})
	assert.Equal(t, []string{
		"detect.py",
		"--weights", "yolov5s.pt",
		"--source", "data/a.png",
		"--device", "0",
		"--agnostic-nms", "--save-txt",
		"--fastapi-outtag", "a",
	}, args)
}

func TestDetect(t *testing.T) {
	d, dir := newTestDetector(t, 10*time.Second)

	err := d.Detect(context.Background(), Request{Weights: "yolov5s.pt", Source: "x.png", Tag: "abc"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "abc.txt"))
	require.NoError(t, err)
	assert.Equal(t, "0 0.5 0.5 0.2 0.2\n", string(data))
}

func TestDetectExitError(t *testing.T) {
	d, _ := newTestDetector(t, 10*time.Second)

	err := d.Detect(context.Background(), Request{Weights: "fail.pt", Source: "x.png", Tag: "abc"})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "weights not found", exitErr.Stderr)
	assert.Contains(t, err.Error(), "weights not found")
}

func TestDetectTimeout(t *testing.T) {
	d, _ := newTestDetector(t, 100*time.Millisecond)

	start := time.Now()
	err := d.Detect(context.Background(), Request{Weights: "slow.pt", Source: "x.png", Tag: "abc"})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestDetectCancelled(t *testing.T) {
	d, _ := newTestDetector(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Detect(ctx, Request{Weights: "yolov5s.pt", Source: "x.png", Tag: "abc"})
	assert.Error(t, err)
}
