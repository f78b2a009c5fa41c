package main

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"

	"github.com/malonaz/meme-api/go/flags"
	"github.com/malonaz/meme-api/go/layout"
	"github.com/malonaz/meme-api/go/logging"
)

var opts struct {
	Logging *logging.Opts `group:"Logging" namespace:"logging" env-namespace:"LOGGING"`

	Format          string `long:"format" description:"png or svg" required:"true"`
	Output          string `long:"output" description:"output file path" required:"true"`
	LayoutFile      string `long:"layout-file" description:"Optional YAML layout overriding the default regions"`
	Width           int    `long:"width" description:"Template width in pixels" default:"1772"`
	Height          int    `long:"height" description:"Template height in pixels" default:"1300"`
	BackgroundColor string `long:"background-color" description:"Hex background color" default:"#F4E8D8"`
	AccentColor     string `long:"accent-color" description:"Hex color for region outlines and labels" default:"#C04040"`
}

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		slog.ErrorContext(ctx, "running", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := flags.Parse(&opts); err != nil {
		return err
	}
	if err := logging.Init(opts.Logging); err != nil {
		return err
	}

	l := layout.Default()
	if opts.LayoutFile != "" {
		var err error
		if l, err = layout.Load(opts.LayoutFile); err != nil {
			return err
		}
	}

	switch opts.Format {
	case "svg":
		svgData, err := generateSVG(l)
		if err != nil {
			return fmt.Errorf("generating SVG: %v", err)
		}
		if err := os.WriteFile(opts.Output, svgData, 0644); err != nil {
			return fmt.Errorf("saving SVG file: %v", err)
		}

	case "png":
		rgba, err := generatePNG(l)
		if err != nil {
			return fmt.Errorf("generating PNG: %v", err)
		}
		pngFile, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("creating PNG file: %v", err)
		}
		defer pngFile.Close()
		if err := png.Encode(pngFile, rgba); err != nil {
			return fmt.Errorf("saving PNG file: %v", err)
		}

	default:
		return fmt.Errorf("unsupported format: %v", opts.Format)
	}

	slog.InfoContext(ctx, "generated placeholder template", "format", opts.Format, "output", opts.Output)
	return nil
}
