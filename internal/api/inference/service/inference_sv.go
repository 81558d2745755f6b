package inferenceService

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"nuyolo/internal/api/inference"
	"nuyolo/internal/entity"
	contextPkg "nuyolo/pkg/context"
	"nuyolo/pkg/detector"
	"nuyolo/pkg/render"
	"nuyolo/pkg/response"
	"nuyolo/pkg/utils"
	"nuyolo/pkg/yolo"
)

func (s *inferenceService) Submit(ctx context.Context, req inference.SubmitRequest, file *multipart.FileHeader) (*inference.SubmitResult, error) {
	requestID := contextPkg.GetRequestID(ctx)
	start := time.Now()

	if err := s.utils.ValidateImageFile(file); err != nil {
		return nil, uploadError(err)
	}

	src, err := file.Open()
	if err != nil {
		return nil, response.Wrap(inference.ErrInvalidImage, "%v", err)
	}
	defer src.Close()

	img, format, err := s.utils.DecodeImage(src)
	if err != nil {
		return nil, response.Wrap(inference.ErrInvalidImage, "%v", err)
	}

	tag := s.utils.NewTag()
	imagePath := s.imagePath(tag)
	if err := s.utils.SavePNG(imagePath, img); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"tag":        tag,
			"error":      err.Error(),
		}).Error("Failed to save uploaded image")
		return nil, inference.ErrStorage
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"tag":        tag,
		"format":     format,
		"model_name": req.ModelName,
	}).Info("Running detector")

	runID, err := s.utils.NewULIDFromTimestamp(start)
	if err != nil {
		return nil, err
	}
	run := entity.InferenceRun{
		ID:             runID,
		Tag:            tag,
		ModelName:      req.ModelName,
		ResponseMethod: req.ResponseMethod,
		ImageName:      filepath.Base(file.Filename),
		RequestID:      requestID,
		CreatedAt:      start.UTC(),
	}

	boxes, err := s.detect(ctx, req, tag, imagePath)
	run.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		run.Status = entity.RunStatusFailed
		run.Error = err.Error()
		s.saveRun(ctx, run)
		return nil, err
	}
	run.Status = entity.RunStatusDone
	run.ObjectCount = len(boxes)

	if s.cfg.RenderBoxes {
		if err := s.renderBoxes(imagePath, img, boxes); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"tag":        tag,
				"error":      err.Error(),
			}).Warn("Failed to draw boxes on result image")
		}
	}

	run.Archived = s.archive(ctx, tag)
	s.saveRun(ctx, run)
	s.cacheBoxes(ctx, tag, boxes)

	return &inference.SubmitResult{
		Tag:         tag,
		RedirectURL: redirectURL(req, tag),
		ObjectCount: len(boxes),
	}, nil
}

func (s *inferenceService) Result(ctx context.Context, tag string) (*inference.Result, error) {
	if !s.utils.ValidTag(tag) {
		return nil, inference.ErrInvalidTag
	}

	boxes, err := s.loadBoxes(ctx, tag)
	if err != nil {
		return nil, err
	}

	return &inference.Result{
		Tag:        tag,
		Detections: s.detections(boxes),
	}, nil
}

func (s *inferenceService) LabelFile(tag string) (string, error) {
	if !s.utils.ValidTag(tag) {
		return "", inference.ErrInvalidTag
	}
	return existing(s.labelPath(tag))
}

func (s *inferenceService) ImageFile(tag string) (string, error) {
	if !s.utils.ValidTag(tag) {
		return "", inference.ErrInvalidTag
	}
	return existing(s.imagePath(tag))
}

func (s *inferenceService) ListRuns(ctx context.Context, limit int) (*inference.RunListResponse, error) {
	if limit <= 0 {
		limit = inference.DefaultListLimit
	}
	if limit > inference.MaxListLimit {
		limit = inference.MaxListLimit
	}
	if s.repo == nil {
		return &inference.RunListResponse{Runs: []inference.RunResponse{}}, nil
	}

	client, err := s.repo.NewClient(false)
	if err != nil {
		return nil, err
	}

	runs, total, err := client.Runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}

	resp := &inference.RunListResponse{
		Runs:  make([]inference.RunResponse, 0, len(runs)),
		Total: total,
	}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, makeRunResponse(run))
	}
	return resp, nil
}

func (s *inferenceService) GetRun(ctx context.Context, tag string) (*inference.RunResponse, error) {
	if !s.utils.ValidTag(tag) {
		return nil, inference.ErrInvalidTag
	}
	if s.repo == nil {
		return nil, inference.ErrRunNotFound
	}

	client, err := s.repo.NewClient(false)
	if err != nil {
		return nil, err
	}

	run, err := client.Runs.GetRunByTag(ctx, tag)
	if err != nil {
		return nil, err
	}

	resp := makeRunResponse(run)
	if run.Status == entity.RunStatusDone {
		boxes, err := s.loadBoxes(ctx, tag)
		switch {
		case err == nil:
			resp.Detections = s.detections(boxes)
		case errors.Is(err, inference.ErrNotFound):
		default:
			return nil, err
		}
	}

	if run.Archived && s.s3Client != nil {
		resp.ImageURL, _ = s.s3Client.PresignUrl(archiveKey(tag, ".png"))
		resp.LabelURL, _ = s.s3Client.PresignUrl(archiveKey(tag, ".txt"))
	}

	return &resp, nil
}

func (s *inferenceService) Classes() []string {
	return s.cfg.Classes
}

func (s *inferenceService) detect(ctx context.Context, req inference.SubmitRequest, tag, imagePath string) ([]yolo.Box, error) {
	err := s.detector.Detect(ctx, detector.Request{
		Weights: req.ModelName,
		Source:  imagePath,
		Tag:     tag,
	})

	// detector output stays in the logs; clients only see the sentinel
	var exitErr *detector.ExitError
	switch {
	case errors.Is(err, detector.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return nil, inference.ErrDetectorTimeout
	case errors.As(err, &exitErr):
		return nil, inference.ErrDetectorFailed
	case errors.Is(err, context.Canceled):
		return nil, err
	case err != nil:
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"tag":        tag,
			"error":      err.Error(),
		}).Error("Detector could not run")
		return nil, inference.ErrDetectorFailed
	}

	labelPath := s.labelPath(tag)
	boxes, err := yolo.ReadLabelFile(labelPath)
	if errors.Is(err, fs.ErrNotExist) {
		// nothing detected; the detector only writes a file when it finds objects
		if err := os.WriteFile(labelPath, nil, 0o644); err != nil {
			return nil, inference.ErrStorage
		}
		return []yolo.Box{}, nil
	}
	if err != nil {
		return nil, response.Wrap(inference.ErrDetectorOutput, "%v", err)
	}

	return boxes, nil
}

func (s *inferenceService) loadBoxes(ctx context.Context, tag string) ([]yolo.Box, error) {
	if s.cache != nil {
		if boxes, err := s.cache.GetBoxes(ctx, tag); err == nil {
			return boxes, nil
		}
	}

	boxes, err := yolo.ReadLabelFile(s.labelPath(tag))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, inference.ErrNotFound
	}
	if err != nil {
		return nil, response.Wrap(inference.ErrDetectorOutput, "%v", err)
	}

	s.cacheBoxes(ctx, tag, boxes)
	return boxes, nil
}

func (s *inferenceService) cacheBoxes(ctx context.Context, tag string, boxes []yolo.Box) {
	if s.cache == nil {
		return
	}
	// failures are logged by the cache and reads fall back to disk
	_ = s.cache.SetBoxes(ctx, tag, boxes, s.cfg.CacheTTL)
}

func (s *inferenceService) renderBoxes(imagePath string, img image.Image, boxes []yolo.Box) error {
	if len(boxes) == 0 {
		return nil
	}
	opt := render.DefaultOptions()
	opt.Classes = s.cfg.Classes
	return s.utils.SavePNG(imagePath, render.Boxes(img, boxes, opt))
}

func (s *inferenceService) archive(ctx context.Context, tag string) bool {
	if s.s3Client == nil {
		return false
	}

	uploads := []struct {
		path, ext, contentType string
	}{
		{s.imagePath(tag), ".png", "image/png"},
		{s.labelPath(tag), ".txt", "text/plain"},
	}
	for _, u := range uploads {
		if _, err := s.s3Client.UploadFile(ctx, archiveKey(tag, u.ext), u.path, u.contentType); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": contextPkg.GetRequestID(ctx),
				"tag":        tag,
				"error":      err.Error(),
			}).Warn("Failed to archive inference artifacts")
			return false
		}
	}
	return true
}

func (s *inferenceService) saveRun(ctx context.Context, run entity.InferenceRun) {
	if s.repo == nil {
		return
	}
	// the run is recorded even when the request was cancelled
	ctx = context.WithoutCancel(ctx)

	client, err := s.repo.NewClient(false)
	if err == nil {
		err = client.Runs.CreateRun(ctx, run)
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": run.RequestID,
			"tag":        run.Tag,
			"error":      err.Error(),
		}).Warn("Failed to record inference run")
	}
}

func (s *inferenceService) detections(boxes []yolo.Box) []inference.Detection {
	out := make([]inference.Detection, 0, len(boxes))
	for i, b := range boxes {
		out = append(out, inference.Detection{
			Index:      i,
			Class:      b.Class,
			ClassName:  s.className(b.Class),
			X:          b.X,
			Y:          b.Y,
			W:          b.W,
			H:          b.H,
			Confidence: b.Confidence,
		})
	}
	return out
}

func (s *inferenceService) className(class int) string {
	if class >= 0 && class < len(s.cfg.Classes) {
		return s.cfg.Classes[class]
	}
	return fmt.Sprintf("%d", class)
}

func (s *inferenceService) imagePath(tag string) string {
	return filepath.Join(s.cfg.DownloadDir, tag+".png")
}

func (s *inferenceService) labelPath(tag string) string {
	return filepath.Join(s.cfg.DownloadDir, tag+".txt")
}

func archiveKey(tag, ext string) string {
	return tag + "/" + tag + ext
}

func redirectURL(req inference.SubmitRequest, tag string) string {
	q := url.Values{"tag": {tag}}.Encode()
	if req.View() {
		return "/inference?" + q
	}
	return "/download?" + q
}

func existing(filename string) (string, error) {
	info, err := os.Stat(filename)
	if err != nil || info.IsDir() {
		return "", inference.ErrNotFound
	}
	return filename, nil
}

func uploadError(err error) error {
	switch {
	case errors.Is(err, utils.ErrNoFile):
		return inference.ErrNoFile
	case errors.Is(err, utils.ErrFileTooLarge):
		return inference.ErrFileTooLarge
	default:
		return response.Wrap(inference.ErrInvalidImage, "%v", err)
	}
}

func makeRunResponse(run entity.InferenceRun) inference.RunResponse {
	return inference.RunResponse{
		ID:             run.ID,
		Tag:            run.Tag,
		ModelName:      run.ModelName,
		ResponseMethod: run.ResponseMethod,
		ImageName:      run.ImageName,
		ObjectCount:    run.ObjectCount,
		Status:         run.Status,
		Error:          run.Error,
		DurationMs:     run.DurationMs,
		CreatedAt:      run.CreatedAt,
	}
}
