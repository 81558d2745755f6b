package dataset

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFilename is the dataset description read by the YOLO trainer
const ManifestFilename = "nuimages.yaml"

// Manifest is the trainer's dataset file. Field order is the key order in the YAML output.
type Manifest struct {
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`
}

func NewManifest(outRoot string, classes []string) *Manifest {
	return &Manifest{
		Train: filepath.Join(outRoot, "images", "train"),
		Val:   filepath.Join(outRoot, "images", "val"),
		NC:    len(classes),
		Names: classes,
	}
}

func WriteManifest(filename string, m *Manifest) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(filename, buf.Bytes(), 0644)
}

func LoadManifest(filename string) (*Manifest, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("parse manifest %v: %w", filename, err)
	}
	if m.NC != 0 && m.NC != len(m.Names) {
		return nil, fmt.Errorf("manifest %v: nc is %v but %v names are listed", filename, m.NC, len(m.Names))
	}
	return m, nil
}
