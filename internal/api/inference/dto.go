package inference

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	MethodView     = "view"
	MethodDownload = "download"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type SubmitRequest struct {
	ModelName      string `form:"model_name" validate:"required,max=256,weights"`
	ResponseMethod string `form:"response_method" validate:"required,max=32"`
}

// View reports whether the caller asked to see results in the browser.
// Any other method is treated as download.
func (r SubmitRequest) View() bool {
	return r.ResponseMethod == MethodView
}

type SubmitResult struct {
	Tag         string `json:"tag"`
	RedirectURL string `json:"redirect_url"`
	ObjectCount int    `json:"object_count"`
}

type Detection struct {
	Index      int     `json:"index"`
	Class      int     `json:"class"`
	ClassName  string  `json:"class_name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"confidence,omitempty"`
}

type Result struct {
	Tag        string      `json:"tag"`
	Detections []Detection `json:"detections"`
}

type RunResponse struct {
	ID             string      `json:"id"`
	Tag            string      `json:"tag"`
	ModelName      string      `json:"model_name"`
	ResponseMethod string      `json:"response_method"`
	ImageName      string      `json:"image_name"`
	ObjectCount    int         `json:"object_count"`
	Status         string      `json:"status"`
	Error          string      `json:"error,omitempty"`
	DurationMs     int64       `json:"duration_ms"`
	CreatedAt      time.Time   `json:"created_at"`
	ImageURL       string      `json:"image_url,omitempty"`
	LabelURL       string      `json:"label_url,omitempty"`
	Detections     []Detection `json:"detections,omitempty"`
}

type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Total int           `json:"total"`
}

var weightsPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._/-]*$`)

// RegisterValidations adds the "weights" tag: a weights file name or relative
// path that cannot be mistaken for a detector flag or escape the work dir.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("weights", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return weightsPattern.MatchString(s) && !strings.Contains(s, "..")
	})
}
