package dataset

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nfnt/resize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"nuyolo/internal/nuimages"
	"nuyolo/pkg/render"
	"nuyolo/pkg/yolo"
)

// nuImages camera frames all share this size
const (
	DefaultImageWidth  = 1600
	DefaultImageHeight = 900
)

var DefaultVersions = []string{"train", "val"}

type Options struct {
	DataRoot     string   // nuImages root, holding v1.0-{version}/ and samples/
	OutRoot      string   // Output root for images/, labels/, previews/ and the manifest
	Versions     []string // Dataset versions to export, eg "train", "val"
	ImageWidth   int      // Width used to normalize boxes
	ImageHeight  int      // Height used to normalize boxes
	UseFrameSize bool     // Normalize by each frame's recorded size instead of ImageWidth x ImageHeight
	Workers      int      // Number of samples processed concurrently
	Limit        int      // If > 0, export at most this many samples per version
	ResizeWidth  int      // If > 0, exported images are scaled to this width
	JPEGQuality  int
	PreviewEvery int // If > 0, every Nth sample also gets a preview with boxes drawn
	LogEvery     int // Log progress every N samples
	ClassMap     ClassMap
}

func DefaultOptions() Options {
	return Options{
		Versions:    DefaultVersions,
		ImageWidth:  DefaultImageWidth,
		ImageHeight: DefaultImageHeight,
		Workers:     4,
		JPEGQuality: 95,
		LogEvery:    1000,
		ClassMap:    DefaultClassMap(),
	}
}

// Stats counts what happened during an export
type Stats struct {
	Samples    int64 `json:"samples"`
	Objects    int64 `json:"objects"`    // Label lines written
	Ignored    int64 `json:"ignored"`    // Objects whose category maps to Ignore
	Unknown    int64 `json:"unknown"`    // Objects whose category is not in the class map
	Degenerate int64 `json:"degenerate"` // Objects with an empty box after clipping
}

func (s *Stats) add(o *Stats) {
	s.Samples += o.Samples
	s.Objects += o.Objects
	s.Ignored += o.Ignored
	s.Unknown += o.Unknown
	s.Degenerate += o.Degenerate
}

// Converter exports nuImages samples as a YOLO image + label directory tree.
type Converter struct {
	log      *logrus.Logger
	opt      Options
	resolver *Resolver

	unknownMu sync.Mutex
	unknown   map[string]bool
}

func NewConverter(log *logrus.Logger, opt Options) (*Converter, error) {
	if opt.DataRoot == "" {
		return nil, fmt.Errorf("dataset root is required")
	}
	if opt.OutRoot == "" {
		opt.OutRoot = opt.DataRoot
	}
	// the manifest paths are resolved by the trainer from its own working directory
	outRoot, err := filepath.Abs(opt.OutRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve output root: %w", err)
	}
	opt.OutRoot = outRoot
	if len(opt.Versions) == 0 {
		opt.Versions = DefaultVersions
	}
	if opt.ImageWidth <= 0 || opt.ImageHeight <= 0 {
		return nil, fmt.Errorf("invalid image size %vx%v", opt.ImageWidth, opt.ImageHeight)
	}
	if opt.Workers <= 0 {
		opt.Workers = 1
	}
	if opt.JPEGQuality <= 0 || opt.JPEGQuality > 100 {
		opt.JPEGQuality = 95
	}
	if opt.ClassMap == nil {
		opt.ClassMap = DefaultClassMap()
	}
	return &Converter{
		log:      log,
		opt:      opt,
		resolver: NewResolver(opt.ClassMap),
		unknown:  map[string]bool{},
	}, nil
}

func (c *Converter) Classes() []string {
	return c.resolver.Classes()
}

// Run writes the manifest, then exports every requested version.
func (c *Converter) Run(ctx context.Context) (map[string]*Stats, error) {
	manifest := NewManifest(c.opt.OutRoot, c.resolver.Classes())
	if err := os.MkdirAll(c.opt.OutRoot, 0755); err != nil {
		return nil, err
	}
	manifestPath := filepath.Join(c.opt.OutRoot, ManifestFilename)
	if err := WriteManifest(manifestPath, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	c.log.WithFields(logrus.Fields{
		"path":    manifestPath,
		"classes": manifest.Names,
	}).Info("Wrote dataset manifest")

	all := map[string]*Stats{}
	total := &Stats{}
	for _, version := range c.opt.Versions {
		stats, err := c.ConvertVersion(ctx, version)
		if err != nil {
			return all, fmt.Errorf("version %v: %w", version, err)
		}
		all[version] = stats
		total.add(stats)
	}
	all["total"] = total
	return all, nil
}

// ConvertVersion exports a single dataset version, such as "train".
func (c *Converter) ConvertVersion(ctx context.Context, version string) (*Stats, error) {
	c.log.Infof("Processing %v set...", version)

	imageDir := filepath.Join(c.opt.OutRoot, "images", version)
	labelDir := filepath.Join(c.opt.OutRoot, "labels", version)
	previewDir := filepath.Join(c.opt.OutRoot, "previews", version)
	for _, dir := range []string{imageDir, labelDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	if c.opt.PreviewEvery > 0 {
		if err := os.MkdirAll(previewDir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := nuimages.Load(c.opt.DataRoot, version)
	if err != nil {
		return nil, err
	}
	samples := db.Samples()
	if c.opt.Limit > 0 && c.opt.Limit < len(samples) {
		samples = samples[:c.opt.Limit]
	}

	stats := &Stats{}
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opt.Workers)
	for idx, sample := range samples {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			st, err := c.convertSample(db, sample, idx, imageDir, labelDir, previewDir)
			if err != nil {
				return fmt.Errorf("sample %v (%v): %w", idx, sample.Token, err)
			}
			atomic.AddInt64(&stats.Samples, st.Samples)
			atomic.AddInt64(&stats.Objects, st.Objects)
			atomic.AddInt64(&stats.Ignored, st.Ignored)
			atomic.AddInt64(&stats.Unknown, st.Unknown)
			atomic.AddInt64(&stats.Degenerate, st.Degenerate)
			if n := done.Add(1); c.opt.LogEvery > 0 && n%int64(c.opt.LogEvery) == 0 {
				c.log.WithFields(logrus.Fields{
					"version": version,
					"done":    n,
					"total":   len(samples),
				}).Info("Export progress")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"version":    version,
		"samples":    stats.Samples,
		"objects":    stats.Objects,
		"ignored":    stats.Ignored,
		"unknown":    stats.Unknown,
		"degenerate": stats.Degenerate,
	}).Info("Finished exporting set")
	return stats, nil
}

func (c *Converter) convertSample(db *nuimages.DB, sample nuimages.Sample, idx int, imageDir, labelDir, previewDir string) (*Stats, error) {
	st := &Stats{Samples: 1}
	sd, err := db.KeyCamera(sample)
	if err != nil {
		return nil, err
	}

	imgW, imgH := c.opt.ImageWidth, c.opt.ImageHeight
	if c.opt.UseFrameSize && sd.Width > 0 && sd.Height > 0 {
		imgW, imgH = sd.Width, sd.Height
	}

	boxes := []yolo.Box{}
	for _, ann := range db.ListObjectAnns(sample) {
		cat, err := db.Category(ann.CategoryToken)
		if err != nil {
			return nil, err
		}
		class, res := c.resolver.Lookup(cat.Name)
		switch res {
		case LookupIgnored:
			st.Ignored++
			continue
		case LookupUnknown:
			st.Unknown++
			c.warnUnknown(cat.Name)
			continue
		}
		box := yolo.FromCorners(class, ann.BBox[0], ann.BBox[1], ann.BBox[2], ann.BBox[3], imgW, imgH).Clamp()
		if !box.Valid() {
			st.Degenerate++
			continue
		}
		boxes = append(boxes, box)
	}

	name := fmt.Sprintf("%v", idx)
	preview := c.opt.PreviewEvery > 0 && idx%c.opt.PreviewEvery == 0
	img, err := c.exportImage(db.ImagePath(sd), filepath.Join(imageDir, name+".jpg"), preview)
	if err != nil {
		return nil, err
	}
	if err := writeLabelFile(filepath.Join(labelDir, name+".txt"), boxes); err != nil {
		return nil, err
	}
	if preview {
		drawn := render.Boxes(img, boxes, render.Options{LineWidth: 2, Labels: true, Classes: c.resolver.Classes()})
		if err := writeJPEG(filepath.Join(previewDir, name+".jpg"), drawn, c.opt.JPEGQuality); err != nil {
			return nil, err
		}
	}
	st.Objects = int64(len(boxes))
	return st, nil
}

// exportImage writes the key camera frame to dst. A JPEG source that needs no
// resizing is copied verbatim. The decoded image is returned when needDecoded is true.
func (c *Converter) exportImage(src, dst string, needDecoded bool) (image.Image, error) {
	isJPEG := strings.EqualFold(filepath.Ext(src), ".jpg") || strings.EqualFold(filepath.Ext(src), ".jpeg")
	if isJPEG && c.opt.ResizeWidth <= 0 && !needDecoded {
		return nil, copyFile(dst, src)
	}

	img, err := decodeFile(src)
	if err != nil {
		return nil, err
	}
	if c.opt.ResizeWidth > 0 && img.Bounds().Dx() != c.opt.ResizeWidth {
		img = resize.Resize(uint(c.opt.ResizeWidth), 0, img, resize.Lanczos3)
	}
	if isJPEG && c.opt.ResizeWidth <= 0 {
		return img, copyFile(dst, src)
	}
	return img, writeJPEG(dst, img, c.opt.JPEGQuality)
}

func (c *Converter) warnUnknown(name string) {
	c.unknownMu.Lock()
	defer c.unknownMu.Unlock()
	if !c.unknown[name] {
		c.unknown[name] = true
		c.log.WithField("category", name).Warn("Category is not in the class map, dropping its objects")
	}
}

func writeLabelFile(filename string, boxes []yolo.Box) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := yolo.WriteLabels(f, boxes); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func decodeFile(filename string) (image.Image, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %v: %w", filename, err)
	}
	return img, nil
}

func writeJPEG(filename string, img image.Image, quality int) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
