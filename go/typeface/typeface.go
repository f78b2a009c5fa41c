// Package typeface loads the caption fonts, measures text, and serves the
// color emoji bitmaps used to draw emoji clusters.
package typeface

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/malonaz/meme-api/go/grapheme"
)

// Config locates the font files.
type Config struct {
	// FontPath is the caption font. The built-in face is used when the file
	// does not exist.
	FontPath string
	// EmojiFontPath is an optional color emoji font. Color drawing is
	// disabled when absent or unusable.
	EmojiFontPath string
}

// Provider owns the parsed fonts, a size-keyed face cache, and the color
// emoji probe result. Faces carry mutable rasterization state, so the cache
// and all measurements share one lock.
type Provider struct {
	scalar   *truetype.Font
	builtin  bool
	emoji    *emojiFont
	emojiErr error

	mu    sync.Mutex
	faces map[int]font.Face
}

// New loads the configured fonts. A missing caption font falls back to the
// built-in face; an existing but unparseable file is an error. The emoji
// font is probed once here and never again: any failure disables color
// emoji for the process lifetime.
func New(config Config) (*Provider, error) {
	provider := &Provider{faces: map[int]font.Face{}}

	data, err := os.ReadFile(config.FontPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		provider.builtin = true
		data = goregular.TTF
	case err != nil:
		return nil, fmt.Errorf("reading font %s: %w", config.FontPath, err)
	}
	if provider.scalar, err = truetype.Parse(data); err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", config.FontPath, err)
	}

	switch {
	case config.EmojiFontPath == "":
		provider.emojiErr = errors.New("no emoji font configured")
	default:
		emojiData, err := os.ReadFile(config.EmojiFontPath)
		if err != nil {
			provider.emojiErr = err
		} else if provider.emoji, err = newEmojiFont(emojiData); err != nil {
			provider.emojiErr = err
		}
	}
	return provider, nil
}

// Builtin reports whether the caption font fell back to the built-in face.
func (p *Provider) Builtin() bool { return p.builtin }

// Font returns the parsed caption font, for use with a drawing context.
func (p *Provider) Font() *truetype.Font { return p.scalar }

// ColorEmoji reports whether color emoji drawing is available.
func (p *Provider) ColorEmoji() bool { return p.emoji != nil }

// EmojiError returns why color emoji is unavailable, nil when it is.
func (p *Provider) EmojiError() error { return p.emojiErr }

// EmojiCapability returns the probed emoji font capability, zero when no
// usable emoji font is loaded.
func (p *Provider) EmojiCapability() Capability {
	if p.emoji == nil {
		return Capability{}
	}
	return p.emoji.capability
}

// face returns the cached face for a size. Callers hold p.mu.
func (p *Provider) face(size int) font.Face {
	if face, ok := p.faces[size]; ok {
		return face
	}
	face := truetype.NewFace(p.scalar, &truetype.Options{Size: float64(size), DPI: 72})
	p.faces[size] = face
	return face
}

// Advance returns the pixel advance of text at a font size, and whether the
// caption font can actually measure it. Joiners have no glyphs and are
// skipped; any other code point without a glyph makes the measurement
// unreliable and the caller should estimate instead.
func (p *Provider) Advance(text string, size int) (int, bool) {
	for _, r := range text {
		if grapheme.Joiner(r) {
			continue
		}
		if p.scalar.Index(r) == 0 {
			return 0, false
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return font.MeasureString(p.face(size), text).Ceil(), true
}

// LineHeight returns the face line height in pixels at a font size.
func (p *Provider) LineHeight(size int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.face(size).Metrics().Height.Ceil()
}

// Ascent returns the baseline offset from the line top at a font size.
func (p *Provider) Ascent(size int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.face(size).Metrics().Ascent.Ceil()
}

// EmojiImages returns the decoded color bitmaps for an emoji cluster, one
// image per shaped glyph, or false when color emoji is unavailable or the
// emoji font cannot form the cluster.
func (p *Provider) EmojiImages(cluster string, size int) ([]image.Image, bool) {
	if p.emoji == nil {
		return nil, false
	}
	return p.emoji.Images(cluster, size)
}
