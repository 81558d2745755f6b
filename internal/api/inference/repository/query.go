package inferenceRepository

const (
	queryCreateRun = `
		INSERT INTO inference_runs (
			id,
			tag,
			model_name,
			response_method,
			image_name,
			object_count,
			status,
			error,
			duration_ms,
			request_id,
			archived,
			created_at
		) VALUES (
			:id,
			:tag,
			:model_name,
			:response_method,
			:image_name,
			:object_count,
			:status,
			:error,
			:duration_ms,
			:request_id,
			:archived,
			:created_at
		)
	`

	queryGetRunByTag = `
		SELECT
			id,
			tag,
			model_name,
			response_method,
			image_name,
			object_count,
			status,
			error,
			duration_ms,
			request_id,
			archived,
			created_at
		FROM inference_runs
		WHERE tag = :tag
	`

	queryCountRuns = `
		SELECT COUNT(*) FROM inference_runs
	`

	queryListRuns = `
		SELECT
			id,
			tag,
			model_name,
			response_method,
			image_name,
			object_count,
			status,
			error,
			duration_ms,
			request_id,
			archived,
			created_at
		FROM inference_runs
		ORDER BY created_at DESC, id DESC
		LIMIT :limit
	`
)
