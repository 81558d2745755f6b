package utils

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxImagePixels bounds width*height of decoded uploads.
const MaxImagePixels = 8000 * 6000

var (
	ErrNoFile       = errors.New("no file uploaded")
	ErrFileTooLarge = errors.New("file size exceeds limit")
	ErrNotAnImage   = errors.New("uploaded file is not a supported image")
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	NewTag() string
	ValidTag(tag string) bool
	ValidateImageFile(file *multipart.FileHeader) error
	DecodeImage(r io.Reader) (image.Image, string, error)
	SavePNG(filename string, img image.Image) error
}

type utils struct {
	maxFileSize int64
}

func New(maxFileSize int64) IUtils {
	if maxFileSize <= 0 {
		maxFileSize = 20 * 1024 * 1024
	}
	return &utils{
		maxFileSize: maxFileSize,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// NewTag returns a random identifier for an uploaded image and its detector outputs
func (u *utils) NewTag() string {
	return uuid.NewString()
}

// ValidTag is true for the canonical UUID form produced by NewTag. Tags end up in
// file paths, so nothing else is accepted.
func (u *utils) ValidTag(tag string) bool {
	if len(tag) != 36 {
		return false
	}
	id, err := uuid.Parse(tag)
	return err == nil && id.String() == tag
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFile
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	if file.Size == 0 {
		return ErrNotAnImage
	}

	return nil
}

// DecodeImage decodes any registered format (jpeg, png, gif, bmp, tiff, webp).
// The header is checked first so an image declaring more than MaxImagePixels
// is rejected before its pixels are allocated.
func (u *utils) DecodeImage(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, u.maxFileSize+1))
	if err != nil {
		return nil, "", err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrNotAnImage, cfg.Width, cfg.Height, MaxImagePixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	return img, format, nil
}

// SavePNG writes img atomically, so readers never observe a partial file.
func (u *utils) SavePNG(filename string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".tmp-*.png")
	if err != nil {
		return err
	}
	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filename)
}
