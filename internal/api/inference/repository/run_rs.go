package inferenceRepository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"nuyolo/internal/api/inference"
	"nuyolo/internal/entity"
	contextPkg "nuyolo/pkg/context"
)

// created_at is kept as unix milliseconds so the same schema works on sqlite and postgres
type RunDB struct {
	ID             string         `db:"id"`
	Tag            string         `db:"tag"`
	ModelName      string         `db:"model_name"`
	ResponseMethod string         `db:"response_method"`
	ImageName      sql.NullString `db:"image_name"`
	ObjectCount    int            `db:"object_count"`
	Status         string         `db:"status"`
	Error          sql.NullString `db:"error"`
	DurationMs     int64          `db:"duration_ms"`
	RequestID      sql.NullString `db:"request_id"`
	Archived       bool           `db:"archived"`
	CreatedAt      int64          `db:"created_at"`
}

func (r *runsRepository) CreateRun(ctx context.Context, run entity.InferenceRun) error {
	requestID := contextPkg.GetRequestID(ctx)
	argsKV := map[string]interface{}{
		"id":              run.ID,
		"tag":             run.Tag,
		"model_name":      run.ModelName,
		"response_method": run.ResponseMethod,
		"image_name":      run.ImageName,
		"object_count":    run.ObjectCount,
		"status":          run.Status,
		"error":           run.Error,
		"duration_ms":     run.DurationMs,
		"request_id":      run.RequestID,
		"archived":        run.Archived,
		"created_at":      run.CreatedAt.UnixMilli(),
	}

	query, args, err := sqlx.Named(queryCreateRun, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateRun")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"tag":        run.Tag,
			"error":      err.Error(),
		}).Error("Database error when creating inference run")
		return err
	}

	return nil
}

func (r *runsRepository) GetRunByTag(ctx context.Context, tag string) (entity.InferenceRun, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var run RunDB

	query, args, err := sqlx.Named(queryGetRunByTag, map[string]interface{}{
		"tag": tag,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRunByTag named query preparation err")
		return entity.InferenceRun{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).StructScan(&run); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"tag":        tag,
			}).Warn("GetRunByTag no rows found")
			return entity.InferenceRun{}, inference.ErrRunNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRunByTag execution err")
		return entity.InferenceRun{}, err
	}

	return r.makeRun(run), nil
}

func (r *runsRepository) ListRuns(ctx context.Context, limit int) ([]entity.InferenceRun, int, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var total int

	if err := r.q.QueryRowxContext(ctx, queryCountRuns).Scan(&total); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountRuns execution err")
		return nil, 0, err
	}

	query, args, err := sqlx.Named(queryListRuns, map[string]interface{}{
		"limit": limit,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListRuns named query preparation err")
		return nil, 0, err
	}
	query = r.q.Rebind(query)

	var rows []RunDB
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListRuns execution err")
		return nil, 0, err
	}

	runs := make([]entity.InferenceRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, r.makeRun(row))
	}

	return runs, total, nil
}

func (r *runsRepository) makeRun(run RunDB) entity.InferenceRun {
	return entity.InferenceRun{
		ID:             run.ID,
		Tag:            run.Tag,
		ModelName:      run.ModelName,
		ResponseMethod: run.ResponseMethod,
		ImageName:      run.ImageName.String,
		ObjectCount:    run.ObjectCount,
		Status:         run.Status,
		Error:          run.Error.String,
		DurationMs:     run.DurationMs,
		RequestID:      run.RequestID.String,
		Archived:       run.Archived,
		CreatedAt:      time.UnixMilli(run.CreatedAt).UTC(),
	}
}
