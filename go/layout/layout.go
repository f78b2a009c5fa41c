// Package layout positions the caption and avatar regions on the template
// image and bounds the caption fit.
package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Box is a pixel-space rectangle on the template image.
type Box struct {
	X0 int `yaml:"x0"`
	Y0 int `yaml:"y0"`
	X1 int `yaml:"x1"`
	Y1 int `yaml:"y1"`
}

// Width returns the box width in pixels.
func (b Box) Width() int { return b.X1 - b.X0 }

// Height returns the box height in pixels.
func (b Box) Height() int { return b.Y1 - b.Y0 }

// Expanded returns the box grown by p pixels on every side.
func (b Box) Expanded(p int) Box {
	return Box{X0: b.X0 - p, Y0: b.Y0 - p, X1: b.X1 + p, Y1: b.Y1 + p}
}

// Inset returns the box shrunk by p pixels on every side.
func (b Box) Inset(p int) Box {
	return Box{X0: b.X0 + p, Y0: b.Y0 + p, X1: b.X1 - p, Y1: b.Y1 - p}
}

// Layout holds the region geometry and the caption fit bounds.
type Layout struct {
	// CaptionBox is the region the caption is fitted and centered in.
	CaptionBox Box `yaml:"caption_box"`
	// AvatarBox is the region the avatar is composited into.
	AvatarBox Box `yaml:"avatar_box"`
	// Padding expands erased regions and insets the avatar.
	Padding int `yaml:"padding"`
	// MinFontSize and MaxFontSize bound the caption font size search.
	MinFontSize int `yaml:"min_font_size"`
	MaxFontSize int `yaml:"max_font_size"`
	// MaxLines caps the number of caption lines.
	MaxLines int `yaml:"max_lines"`
	// LineSpacingRatio scales the font size into inter-line spacing.
	LineSpacingRatio float64 `yaml:"line_spacing_ratio"`
}

// Default returns the layout tuned for the stock template image.
func Default() Layout {
	return Layout{
		CaptionBox:       Box{X0: 60, Y0: 30, X1: 1695, Y1: 260},
		AvatarBox:        Box{X0: 250, Y0: 260, X1: 1504, Y1: 1245},
		Padding:          12,
		MinFontSize:      14,
		MaxFontSize:      220,
		MaxLines:         2,
		LineSpacingRatio: 0.24,
	}
}

// Load reads a YAML layout file over the defaults: absent fields keep their
// default values.
func Load(path string) (Layout, error) {
	layout := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("reading layout file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &layout); err != nil {
		return Layout{}, fmt.Errorf("parsing layout file: %w", err)
	}
	if err := layout.Validate(); err != nil {
		return Layout{}, fmt.Errorf("validating layout file %s: %w", path, err)
	}
	return layout, nil
}

// Validate checks the layout invariants.
func (l Layout) Validate() error {
	if l.CaptionBox.Width() <= 0 || l.CaptionBox.Height() <= 0 {
		return fmt.Errorf("caption box %+v is empty", l.CaptionBox)
	}
	if l.AvatarBox.Width() <= 0 || l.AvatarBox.Height() <= 0 {
		return fmt.Errorf("avatar box %+v is empty", l.AvatarBox)
	}
	if l.Padding < 0 {
		return fmt.Errorf("padding %d is negative", l.Padding)
	}
	if l.MinFontSize < 1 {
		return fmt.Errorf("min font size %d must be at least 1", l.MinFontSize)
	}
	if l.MaxFontSize < l.MinFontSize {
		return fmt.Errorf("max font size %d is below min font size %d", l.MaxFontSize, l.MinFontSize)
	}
	if l.MaxLines < 1 {
		return fmt.Errorf("max lines %d must be at least 1", l.MaxLines)
	}
	if l.LineSpacingRatio < 0 {
		return fmt.Errorf("line spacing ratio %g is negative", l.LineSpacingRatio)
	}
	return nil
}

// LineSpacing returns the inter-line spacing in pixels at the given font
// size, rounded down.
func (l Layout) LineSpacing(size int) int {
	return int(float64(size) * l.LineSpacingRatio)
}
