// Package nuimages reads the JSON tables of the nuImages dataset.
//
// A dataset version lives in {dataroot}/v1.0-{version}/ with one JSON array per
// table. Only the tables needed to export 2D object labels are loaded.
package nuimages

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Sample struct {
	Token          string `json:"token"`
	Timestamp      int64  `json:"timestamp"`
	LogToken       string `json:"log_token"`
	KeyCameraToken string `json:"key_camera_token"`
}

type SampleData struct {
	Token                 string `json:"token"`
	SampleToken           string `json:"sample_token"`
	EgoPoseToken          string `json:"ego_pose_token"`
	CalibratedSensorToken string `json:"calibrated_sensor_token"`
	Filename              string `json:"filename"`
	FileFormat            string `json:"fileformat"`
	Width                 int    `json:"width"`
	Height                int    `json:"height"`
	Timestamp             int64  `json:"timestamp"`
	IsKeyFrame            bool   `json:"is_key_frame"`
}

// ObjectAnn is a 2D object annotation. BBox is (xmin, ymin, xmax, ymax) in pixels.
type ObjectAnn struct {
	Token           string     `json:"token"`
	SampleDataToken string     `json:"sample_data_token"`
	CategoryToken   string     `json:"category_token"`
	AttributeTokens []string   `json:"attribute_tokens"`
	BBox            [4]float64 `json:"bbox"`
}

type Category struct {
	Token       string `json:"token"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Table names, as files under the version directory
const (
	TableSample     = "sample"
	TableSampleData = "sample_data"
	TableObjectAnn  = "object_ann"
	TableCategory   = "category"
)

// VersionDir returns the directory holding the tables of a dataset version such as "train".
func VersionDir(dataroot, version string) string {
	return filepath.Join(dataroot, "v1.0-"+version)
}

func loadTable(dir, table string, dst any) error {
	fn := filepath.Join(dir, table+".json")
	f, err := os.Open(fn)
	if err != nil {
		return fmt.Errorf("open table %v: %w", table, err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(dst); err != nil {
		return fmt.Errorf("decode table %v: %w", table, err)
	}
	return nil
}
