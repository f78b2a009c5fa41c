package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"github.com/malonaz/meme-api/go/layout"
)

func hexToRGBA(hex string) (color.Color, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("expected 6 hex digits, got %q", hex)
	}
	r, err := strconv.ParseUint(hex[0:2], 16, 8)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("parsing r: %v", err)
	}
	g, err := strconv.ParseUint(hex[2:4], 16, 8)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("parsing g: %v", err)
	}
	b, err := strconv.ParseUint(hex[4:6], 16, 8)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("parsing b: %v", err)
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}, nil
}

// strokeBox outlines the box edges at the given thickness, clamped to the
// image bounds.
func strokeBox(img *image.RGBA, box layout.Box, stroke color.Color, thickness int) {
	uniform := image.NewUniform(stroke)
	edges := []image.Rectangle{
		image.Rect(box.X0, box.Y0, box.X1, box.Y0+thickness),
		image.Rect(box.X0, box.Y1-thickness, box.X1, box.Y1),
		image.Rect(box.X0, box.Y0, box.X0+thickness, box.Y1),
		image.Rect(box.X1-thickness, box.Y0, box.X1, box.Y1),
	}
	for _, edge := range edges {
		draw.Draw(img, edge.Intersect(img.Bounds()), uniform, image.Point{}, draw.Src)
	}
}
