package nuimages_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nuyolo/internal/nuimages"
	"nuyolo/internal/nuimages/nuimagestest"
)

func TestLoad(t *testing.T) {
	root := t.TempDir()
	nuimagestest.Write(t, root, "val", []nuimagestest.Sample{
		{Width: 64, Height: 36, Objects: []nuimagestest.Object{
			{Category: "vehicle.car", BBox: [4]float64{1, 2, 10, 20}},
			{Category: "human.pedestrian.adult", BBox: [4]float64{5, 5, 8, 30}},
		}},
		{Width: 64, Height: 36},
	})

	db, err := nuimages.Load(root, "val")
	require.NoError(t, err)
	require.Len(t, db.Samples(), 2)

	s0 := db.Samples()[0]
	sd, err := db.KeyCamera(s0)
	require.NoError(t, err)
	assert.True(t, sd.IsKeyFrame)
	assert.Equal(t, 64, sd.Width)
	assert.FileExists(t, db.ImagePath(sd))

	anns := db.ListObjectAnns(s0)
	require.Len(t, anns, 2)
	assert.Equal(t, [4]float64{1, 2, 10, 20}, anns[0].BBox)
	cat, err := db.Category(anns[1].CategoryToken)
	require.NoError(t, err)
	assert.Equal(t, "human.pedestrian.adult", cat.Name)

	assert.Empty(t, db.ListObjectAnns(db.Samples()[1]))

	_, err = db.SampleData("nope")
	assert.Error(t, err)
	_, err = db.Category("nope")
	assert.Error(t, err)
}

func TestLoadMissingTable(t *testing.T) {
	root := t.TempDir()
	nuimagestest.Write(t, root, "train", []nuimagestest.Sample{{Width: 8, Height: 8}})
	require.NoError(t, os.Remove(filepath.Join(nuimages.VersionDir(root, "train"), "object_ann.json")))

	_, err := nuimages.Load(root, "train")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object_ann")
}

func TestLoadMalformedTable(t *testing.T) {
	root := t.TempDir()
	nuimagestest.Write(t, root, "train", []nuimagestest.Sample{{Width: 8, Height: 8}})
	fn := filepath.Join(nuimages.VersionDir(root, "train"), "category.json")
	require.NoError(t, os.WriteFile(fn, []byte("{not json"), 0644))

	_, err := nuimages.Load(root, "train")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category")
}
