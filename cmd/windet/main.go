// Package main is the windet command: sliding-window object localization with an
// ONNX image classifier.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	// Global flags.
	flagConfig   = "config"
	flagDebug    = "debug"
	flagModel    = "model"
	flagMetadata = "metadata"
	flagORTLib   = "ort-lib"
	flagBackend  = "backend"

	// Command flags.
	flagImage     = "image"
	flagDir       = "dir"
	flagTop       = "top"
	flagWidth     = "width"
	flagHeight    = "height"
	flagStep      = "step"
	flagScale     = "scale"
	flagThreshold = "threshold"
	flagOverlap   = "overlap"
	flagGeometry  = "geometry"
	flagWorkers   = "workers"
	flagOutputDir = "output-dir"
	flagNoRender  = "no-render"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "windet: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	var logger *zap.Logger

	detectFlags := []cli.Flag{
		&cli.IntFlag{Name: flagWidth, Usage: "window width in pixels"},
		&cli.IntFlag{Name: flagHeight, Usage: "window height in pixels"},
		&cli.IntFlag{Name: flagStep, Usage: "window stride in pixels"},
		&cli.Float64Flag{Name: flagScale, Usage: "pyramid downscale factor between levels"},
		&cli.Float64Flag{Name: flagThreshold, Usage: "minimum top-1 confidence of a window"},
		&cli.Float64Flag{Name: flagOverlap, Usage: "NMS overlap threshold"},
		&cli.StringFlag{Name: flagGeometry, Usage: "box mapping, `reference` or `scaled`"},
		&cli.IntFlag{Name: flagWorkers, Usage: "windows classified concurrently"},
		&cli.StringFlag{Name: flagOutputDir, Usage: "write overlays to `DIR` instead of next to the input"},
		&cli.BoolFlag{Name: flagNoRender, Usage: "skip writing the overlay image"},
	}

	return &cli.App{
		Name:  "windet",
		Usage: "localize objects by classifying windows of an image pyramid",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:    flagModel,
				Usage:   "classifier model `FILE` (.onnx)",
				EnvVars: []string{"WINDET_MODEL"},
			},
			&cli.StringFlag{
				Name:    flagMetadata,
				Usage:   "classifier metadata `FILE` (.json)",
				EnvVars: []string{"WINDET_METADATA"},
			},
			&cli.StringFlag{
				Name:  flagORTLib,
				Usage: "onnxruntime shared library `FILE`",
			},
			&cli.StringFlag{
				Name:  flagBackend,
				Usage: "execution provider: cpu, coreml, cuda or openvino",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			if c.Bool(flagDebug) {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			return err
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				_ = logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "classify",
				Usage: "classify a whole image and print the top predictions",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagImage, Usage: "image `FILE`", Required: true},
					&cli.IntFlag{Name: flagTop, Usage: "number of predictions", Value: 3},
				},
				Action: func(c *cli.Context) error {
					return runClassify(c, logger)
				},
			},
			{
				Name:   "detect",
				Usage:  "run sliding-window detection on one image",
				Flags:  append([]cli.Flag{&cli.StringFlag{Name: flagImage, Usage: "image `FILE`", Required: true}}, detectFlags...),
				Action: func(c *cli.Context) error {
					return runDetect(c, logger)
				},
			},
			{
				Name:   "batch",
				Usage:  "run sliding-window detection on every image of a directory",
				Flags:  append([]cli.Flag{&cli.StringFlag{Name: flagDir, Usage: "input `DIR`", Required: true}}, detectFlags...),
				Action: func(c *cli.Context) error {
					return runBatch(c, logger)
				},
			},
		},
	}
}
