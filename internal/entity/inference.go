package entity

import "time"

const (
	RunStatusDone   = "done"
	RunStatusFailed = "failed"
)

type InferenceRun struct {
	ID             string    `db:"id"`
	Tag            string    `db:"tag"`
	ModelName      string    `db:"model_name"`
	ResponseMethod string    `db:"response_method"`
	ImageName      string    `db:"image_name"`
	ObjectCount    int       `db:"object_count"`
	Status         string    `db:"status"`
	Error          string    `db:"error"`
	DurationMs     int64     `db:"duration_ms"`
	RequestID      string    `db:"request_id"`
	Archived       bool      `db:"archived"`
	CreatedAt      time.Time `db:"created_at"`
}
