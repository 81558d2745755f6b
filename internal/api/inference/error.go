package inference

import "nuyolo/pkg/response"

var (
	ErrInvalidTag      = response.NewError(400, "invalid tag")
	ErrNoFile          = response.NewError(400, "an image file is required")
	ErrFileTooLarge    = response.NewError(400, "file too large")
	ErrInvalidImage    = response.NewError(400, "uploaded file is not a supported image")
	ErrInvalidRequest  = response.NewError(400, "invalid request")
	ErrNotFound        = response.NewError(404, "no results for tag")
	ErrRunNotFound     = response.NewError(404, "inference run not found")
	ErrDetectorFailed  = response.NewError(502, "detector failed")
	ErrDetectorOutput  = response.NewError(502, "detector produced unreadable output")
	ErrDetectorTimeout = response.NewError(504, "detector timed out")
	ErrStorage         = response.NewError(500, "failed to store inference artifacts")
)
