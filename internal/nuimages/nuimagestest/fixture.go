// Package nuimagestest builds small synthetic nuImages dataset roots for tests.
package nuimagestest

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"nuyolo/internal/nuimages"
)

// Object is an annotation to place on a fixture sample
type Object struct {
	Category string
	BBox     [4]float64
}

// Sample describes one fixture sample. Its key camera image is Width x Height.
type Sample struct {
	Width   int
	Height  int
	Objects []Object
}

// Write creates dataroot/v1.0-{version} tables and sample images for the given samples.
func Write(t *testing.T, dataroot, version string, samples []Sample) {
	t.Helper()
	dir := nuimages.VersionDir(dataroot, version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	categories := []nuimages.Category{}
	catToken := map[string]string{}
	sampleRows := []nuimages.Sample{}
	sdRows := []nuimages.SampleData{}
	objRows := []nuimages.ObjectAnn{}

	for i, s := range samples {
		sampleToken := fmt.Sprintf("%v-sample-%v", version, i)
		sdToken := fmt.Sprintf("%v-sd-%v", version, i)
		filename := fmt.Sprintf("samples/CAM_FRONT/%v-%v.jpg", version, i)

		// A non-key sweep frame, which must never be exported
		sdRows = append(sdRows, nuimages.SampleData{
			Token:       sdToken + "-sweep",
			SampleToken: sampleToken,
			Filename:    "sweeps/CAM_FRONT/unused.jpg",
			FileFormat:  "jpg",
			Width:       s.Width,
			Height:      s.Height,
		})
		sdRows = append(sdRows, nuimages.SampleData{
			Token:       sdToken,
			SampleToken: sampleToken,
			Filename:    filename,
			FileFormat:  "jpg",
			Width:       s.Width,
			Height:      s.Height,
			IsKeyFrame:  true,
		})
		sampleRows = append(sampleRows, nuimages.Sample{
			Token:          sampleToken,
			Timestamp:      int64(1000 + i),
			LogToken:       "log",
			KeyCameraToken: sdToken,
		})
		writeImage(t, filepath.Join(dataroot, filepath.FromSlash(filename)), s.Width, s.Height)

		for j, o := range s.Objects {
			tok, ok := catToken[o.Category]
			if !ok {
				tok = fmt.Sprintf("cat-%v", len(categories))
				catToken[o.Category] = tok
				categories = append(categories, nuimages.Category{Token: tok, Name: o.Category})
			}
			objRows = append(objRows, nuimages.ObjectAnn{
				Token:           fmt.Sprintf("%v-obj-%v-%v", version, i, j),
				SampleDataToken: sdToken,
				CategoryToken:   tok,
				AttributeTokens: []string{},
				BBox:            o.BBox,
			})
		}
	}

	writeTable(t, dir, nuimages.TableSample, sampleRows)
	writeTable(t, dir, nuimages.TableSampleData, sdRows)
	writeTable(t, dir, nuimages.TableObjectAnn, objRows)
	writeTable(t, dir, nuimages.TableCategory, categories)
}

func writeTable(t *testing.T, dir, table string, rows any) {
	t.Helper()
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(rows, "", " ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, table+".json"), b, 0644); err != nil {
		t.Fatal(err)
	}
}

func writeImage(t *testing.T, filename string, width, height int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 100, 255})
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
}
