package inferenceHandler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"nuyolo/internal/api/inference"
	contextPkg "nuyolo/pkg/context"
	"nuyolo/pkg/handlerUtil"
	"nuyolo/pkg/log"
)

func (h *InferenceHandler) Submit(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.submitTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req inference.SubmitRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	// a missing file is reported by the service
	file, _ := ctx.FormFile("file")

	h.log.WithFields(log.Fields{
		"request_id":      requestID,
		"model_name":      req.ModelName,
		"response_method": req.ResponseMethod,
	}).Debug("Processing inference request")

	res, err := h.inferenceService.Submit(c, req, file)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "submit_inference")
	}

	return ctx.Redirect(res.RedirectURL, fiber.StatusFound)
}

func (h *InferenceHandler) Inference(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	result, err := h.inferenceService.Result(c, ctx.Query("tag"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "view_inference")
	}

	return ctx.Render("inference", fiber.Map{
		"Title":      "Results " + result.Tag,
		"Tag":        result.Tag,
		"Detections": result.Detections,
	})
}

func (h *InferenceHandler) Download(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	tag := ctx.Query("tag")
	filename, err := h.inferenceService.LabelFile(tag)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "download_labels")
	}

	return ctx.Download(filename, tag+".txt")
}

func (h *InferenceHandler) Image(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	filename, err := h.inferenceService.ImageFile(ctx.Query("tag"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_image")
	}

	return ctx.SendFile(filename)
}

func (h *InferenceHandler) ListRuns(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	runs, err := h.inferenceService.ListRuns(c, ctx.QueryInt("limit", inference.DefaultListLimit))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_runs")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, runs)
	}
}

func (h *InferenceHandler) GetRun(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	run, err := h.inferenceService.GetRun(c, ctx.Params("tag"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_run")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, run)
	}
}
