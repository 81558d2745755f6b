package nuimages

import (
	"fmt"
	"path/filepath"
)

// DB holds the loaded tables of one dataset version, with token indexes.
type DB struct {
	DataRoot string
	Version  string

	samples    []Sample
	sampleData map[string]*SampleData
	categories map[string]*Category
	// sample_data token -> object annotations, in table order
	objectsBySampleData map[string][]ObjectAnn
}

// Load reads the tables of dataroot/v1.0-{version}.
func Load(dataroot, version string) (*DB, error) {
	dir := VersionDir(dataroot, version)
	var (
		samples    []Sample
		sampleData []SampleData
		objectAnns []ObjectAnn
		categories []Category
	)
	if err := loadTable(dir, TableSample, &samples); err != nil {
		return nil, err
	}
	if err := loadTable(dir, TableSampleData, &sampleData); err != nil {
		return nil, err
	}
	if err := loadTable(dir, TableObjectAnn, &objectAnns); err != nil {
		return nil, err
	}
	if err := loadTable(dir, TableCategory, &categories); err != nil {
		return nil, err
	}

	db := &DB{
		DataRoot:            dataroot,
		Version:             version,
		samples:             samples,
		sampleData:          make(map[string]*SampleData, len(sampleData)),
		categories:          make(map[string]*Category, len(categories)),
		objectsBySampleData: map[string][]ObjectAnn{},
	}
	for i := range sampleData {
		db.sampleData[sampleData[i].Token] = &sampleData[i]
	}
	for i := range categories {
		db.categories[categories[i].Token] = &categories[i]
	}
	for _, o := range objectAnns {
		db.objectsBySampleData[o.SampleDataToken] = append(db.objectsBySampleData[o.SampleDataToken], o)
	}
	return db, nil
}

// Samples returns all samples in table order
func (db *DB) Samples() []Sample {
	return db.samples
}

func (db *DB) SampleData(token string) (*SampleData, error) {
	sd, ok := db.sampleData[token]
	if !ok {
		return nil, fmt.Errorf("sample_data %v not found", token)
	}
	return sd, nil
}

func (db *DB) Category(token string) (*Category, error) {
	c, ok := db.categories[token]
	if !ok {
		return nil, fmt.Errorf("category %v not found", token)
	}
	return c, nil
}

// KeyCamera returns the key camera frame of a sample
func (db *DB) KeyCamera(s Sample) (*SampleData, error) {
	return db.SampleData(s.KeyCameraToken)
}

// ListObjectAnns returns the object annotations of the sample's key camera frame.
func (db *DB) ListObjectAnns(s Sample) []ObjectAnn {
	return db.objectsBySampleData[s.KeyCameraToken]
}

// ImagePath returns the absolute path of the image file of a sample_data record
func (db *DB) ImagePath(sd *SampleData) string {
	return filepath.Join(db.DataRoot, filepath.FromSlash(sd.Filename))
}
