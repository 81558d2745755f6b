package inferenceRepository

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nuyolo/internal/api/inference"
	"nuyolo/internal/entity"
	"nuyolo/pkg/database"
)

func newTestRepository(t *testing.T) Repository {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(db, log)
}

func TestCreateAndGetRun(t *testing.T) {
	repo := newTestRepository(t)
	client, err := repo.NewClient(false)
	require.NoError(t, err)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := entity.InferenceRun{
		ID:             "01HQ0000000000000000000001",
		Tag:            "8a3c6e1e-7c1a-4f59-9d43-3f0e8c1f2b10",
		ModelName:      "yolov5s.pt",
		ResponseMethod: "view",
		ImageName:      "street.jpg",
		ObjectCount:    4,
		Status:         entity.RunStatusDone,
		DurationMs:     1520,
		RequestID:      "req-1",
		Archived:       true,
		CreatedAt:      created,
	}
	require.NoError(t, client.Runs.CreateRun(context.Background(), run))

	got, err := client.Runs.GetRunByTag(context.Background(), run.Tag)
	require.NoError(t, err)
	assert.Equal(t, run, got)

	_, err = client.Runs.GetRunByTag(context.Background(), "missing")
	assert.ErrorIs(t, err, inference.ErrRunNotFound)

	assert.Error(t, client.Runs.CreateRun(context.Background(), run), "tag is unique")
}

func TestListRuns(t *testing.T) {
	repo := newTestRepository(t)
	client, err := repo.NewClient(false)
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, client.Runs.CreateRun(context.Background(), entity.InferenceRun{
			ID:             fmt.Sprintf("id-%d", i),
			Tag:            fmt.Sprintf("tag-%d", i),
			ModelName:      "yolov5s.pt",
			ResponseMethod: "download",
			Status:         entity.RunStatusDone,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, total, err := client.Runs.ListRuns(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, runs, 3)
	assert.Equal(t, "tag-4", runs[0].Tag)
	assert.Equal(t, "tag-2", runs[2].Tag)
}

func TestTransactionRollback(t *testing.T) {
	repo := newTestRepository(t)
	tx, err := repo.NewClient(true)
	require.NoError(t, err)

	require.NoError(t, tx.Runs.CreateRun(context.Background(), entity.InferenceRun{
		ID: "id-1", Tag: "tag-1", ModelName: "m.pt", ResponseMethod: "view",
		Status: entity.RunStatusFailed, CreatedAt: time.Now(),
	}))
	require.NoError(t, tx.Rollback())

	client, err := repo.NewClient(false)
	require.NoError(t, err)
	_, total, err := client.Runs.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}
