package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/akamensky/argparse"
	"github.com/joho/godotenv"
	"nuyolo/internal/dataset"
	"nuyolo/pkg/log"
)

func main() {
	parser := argparse.NewParser("convert", "Export nuImages samples as a YOLO image + label dataset")
	dataRoot := parser.String("d", "dataroot", &argparse.Options{Help: "nuImages root directory (holds v1.0-train, v1.0-val, samples)", Required: true})
	outRoot := parser.String("o", "out", &argparse.Options{Help: "Output directory (defaults to the dataset root)", Required: false, Default: ""})
	versions := parser.String("v", "versions", &argparse.Options{Help: "Comma-separated dataset versions to export", Required: false, Default: "train,val"})
	classMap := parser.String("c", "classmap", &argparse.Options{Help: "YAML file overriding the category remap", Required: false, Default: ""})
	workers := parser.Int("w", "workers", &argparse.Options{Help: "Number of samples processed concurrently", Required: false, Default: 4})
	limit := parser.Int("n", "limit", &argparse.Options{Help: "Export at most this many samples per version (0 = all)", Required: false, Default: 0})
	width := parser.Int("", "width", &argparse.Options{Help: "Image width used to normalize boxes", Required: false, Default: dataset.DefaultImageWidth})
	height := parser.Int("", "height", &argparse.Options{Help: "Image height used to normalize boxes", Required: false, Default: dataset.DefaultImageHeight})
	frameSize := parser.Flag("", "frame-size", &argparse.Options{Help: "Normalize boxes by each frame's recorded size instead of --width/--height"})
	resizeWidth := parser.Int("", "resize", &argparse.Options{Help: "Scale exported images to this width (0 = keep)", Required: false, Default: 0})
	quality := parser.Int("q", "quality", &argparse.Options{Help: "JPEG quality of re-encoded images", Required: false, Default: 95})
	previewEvery := parser.Int("p", "preview", &argparse.Options{Help: "Write a preview with boxes drawn for every Nth sample (0 = none)", Required: false, Default: 0})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	_ = godotenv.Load()
	logger := log.NewLogger()

	opt := dataset.DefaultOptions()
	opt.DataRoot = *dataRoot
	opt.OutRoot = *outRoot
	opt.Versions = splitList(*versions)
	opt.Workers = *workers
	opt.Limit = *limit
	opt.ImageWidth = *width
	opt.ImageHeight = *height
	opt.UseFrameSize = *frameSize
	opt.ResizeWidth = *resizeWidth
	opt.JPEGQuality = *quality
	opt.PreviewEvery = *previewEvery
	if *classMap != "" {
		m, err := dataset.LoadClassMap(*classMap)
		if err != nil {
			logger.Fatalf("Failed to load class map: %v", err)
		}
		opt.ClassMap = m
	}

	converter, err := dataset.NewConverter(logger, opt)
	if err != nil {
		logger.Fatalf("Invalid options: %v", err)
	}
	logger.Infof("Classes: %v", converter.Classes())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := converter.Run(ctx)
	if err != nil {
		logger.Fatalf("Export failed: %v", err)
	}
	total := stats["total"]
	logger.WithFields(log.Fields{
		"samples":    total.Samples,
		"objects":    total.Objects,
		"ignored":    total.Ignored,
		"unknown":    total.Unknown,
		"degenerate": total.Degenerate,
	}).Info("Export complete")
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
