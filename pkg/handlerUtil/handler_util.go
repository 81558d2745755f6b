package handlerUtil

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
	"nuyolo/pkg/log"
	"nuyolo/pkg/response"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// Handle reports err to the client, as JSON for API callers and as the error
// page for browsers.
func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		fields["code"] = respErr.Code
		if respErr.Code >= fiber.StatusInternalServerError {
			h.logger.WithFields(fields).Error("Operation failed with error response")
		} else {
			h.logger.WithFields(fields).Warn("Operation failed with error response")
		}
		return h.respond(c, respErr.Code, requestID, err.Error(), "")
	}

	if errors.Is(err, context.DeadlineExceeded) {
		h.logger.WithFields(fields).Warn("Request timed out")
		return h.respond(c, fiber.StatusGatewayTimeout, requestID, utils.StatusMessage(fiber.StatusGatewayTimeout), "TIMEOUT")
	}

	h.logger.WithFields(fields).Error("Unexpected error")

	return h.respond(c, fiber.StatusInternalServerError, requestID, "An unexpected error occurred", "")
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return h.respond(c, fiber.StatusBadRequest, requestID, "Validation failed: "+err.Error(), "VALIDATION_ERROR")
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}

func (h *ErrorHandler) respond(c *fiber.Ctx, status int, requestID, message, code string) error {
	c.Status(status)
	if WantsHTML(c) {
		return c.Render("error", fiber.Map{
			"Title":     fmt.Sprintf("Error %d", status),
			"Status":    status,
			"Message":   message,
			"RequestID": requestID,
		})
	}
	return c.JSON(ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestID,
	})
}

// WantsHTML is true for browser requests outside the JSON API.
func WantsHTML(c *fiber.Ctx) bool {
	if strings.HasPrefix(c.Path(), "/api/") {
		return false
	}
	return c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextHTML) == fiber.MIMETextHTML
}
