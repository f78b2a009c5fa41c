// Package render sequences the meme pipeline: normalize the display name,
// build the caption, erase template regions, composite the avatar, fit and
// draw the caption, and encode the result.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/malonaz/meme-api/go/avatar"
	"github.com/malonaz/meme-api/go/canonicalize"
	"github.com/malonaz/meme-api/go/caption"
	"github.com/malonaz/meme-api/go/compose"
	"github.com/malonaz/meme-api/go/grapheme"
	"github.com/malonaz/meme-api/go/health"
	"github.com/malonaz/meme-api/go/layout"
	"github.com/malonaz/meme-api/go/textfit"
	"github.com/malonaz/meme-api/go/typeface"
)

// ErrTemplateMissing marks renders attempted without a template image.
var ErrTemplateMissing = errors.New("template image not found")

// MinIdentity and MaxIdentity bound valid identities.
const (
	MinIdentity int64 = 10000
	MaxIdentity int64 = 99999999999
)

// Opts holds render options.
type Opts struct {
	CaptionPattern string `long:"caption-pattern" env:"CAPTION_PATTERN" description:"Caption sentence template; {{.Name}} receives the display name" default:"请问你看到{{.Name}}了吗"`
	LayoutFile     string `long:"layout-file" env:"LAYOUT_FILE" description:"Optional YAML file overriding the default layout"`
}

// AssetOpts locates the template image and fonts.
type AssetOpts struct {
	Dir           string `long:"dir" env:"DIR" description:"Directory holding the template image" default:"assets"`
	FontPath      string `long:"font-path" env:"FONT_PATH" description:"Caption font file; a built-in face is used when absent" default:"assets/font.ttf"`
	EmojiFontPath string `long:"emoji-font-path" env:"EMOJI_FONT_PATH" description:"Color emoji font file; emoji bitmaps are disabled when absent" default:"assets/emoji.ttf"`
}

// Renderer renders memes. It is constructed once at startup and is safe for
// concurrent use: each render works on its own canvas.
type Renderer struct {
	log          *slog.Logger
	layout       layout.Layout
	caption      *caption.Template
	faces        *typeface.Provider
	avatars      *avatar.Fetcher
	template     image.Image
	templateName string
}

// New builds a renderer: parses the caption pattern, loads the layout, the
// typefaces and the template image. A missing template is tolerated (the
// renderer starts degraded); a corrupt one is a configuration error.
func New(opts *Opts, assets *AssetOpts, avatars *avatar.Fetcher) (*Renderer, error) {
	captionTemplate, err := caption.New(opts.CaptionPattern)
	if err != nil {
		return nil, err
	}
	l := layout.Default()
	if opts.LayoutFile != "" {
		if l, err = layout.Load(opts.LayoutFile); err != nil {
			return nil, err
		}
	}
	faces, err := typeface.New(typeface.Config{FontPath: assets.FontPath, EmojiFontPath: assets.EmojiFontPath})
	if err != nil {
		return nil, fmt.Errorf("loading typefaces: %w", err)
	}
	templateImage, templateName, err := LoadTemplate(assets.Dir)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		log:          slog.Default(),
		layout:       l,
		caption:      captionTemplate,
		faces:        faces,
		avatars:      avatars,
		template:     templateImage,
		templateName: templateName,
	}, nil
}

// WithLogger sets this renderer's logger.
func (r *Renderer) WithLogger(logger *slog.Logger) *Renderer {
	r.log = logger
	return r
}

// Faces returns the typeface provider.
func (r *Renderer) Faces() *typeface.Provider {
	return r.faces
}

// Render produces the meme PNG for the identity and optional display name.
func (r *Renderer) Render(ctx context.Context, identity int64, name string) ([]byte, error) {
	start := time.Now()
	payload, err := r.render(ctx, identity, name)
	outcome := "success"
	switch {
	case errors.Is(err, ErrTemplateMissing):
		outcome = "template_missing"
	case errors.Is(err, avatar.ErrFetch):
		outcome = "avatar_fetch_failed"
	case err != nil:
		outcome = "error"
	}
	rendersTotal.WithLabelValues(outcome).Inc()
	renderDurationSeconds.Observe(time.Since(start).Seconds())
	return payload, err
}

func (r *Renderer) render(ctx context.Context, identity int64, name string) ([]byte, error) {
	if r.template == nil {
		return nil, fmt.Errorf("%w: tried %s", ErrTemplateMissing, strings.Join(templateCandidates, ", "))
	}

	displayName := canonicalize.DisplayName(name)
	if strings.TrimSpace(displayName) == "" {
		displayName = strconv.FormatInt(identity, 10)
	}
	text, err := r.caption.Render(displayName)
	if err != nil {
		return nil, err
	}

	// The avatar comes first so a fetch failure produces no partial output.
	avatarImage, err := r.avatars.Get(ctx, identity)
	if err != nil {
		return nil, err
	}

	canvas := compose.NewCanvas(r.template)
	compose.EraseBox(canvas, r.layout.CaptionBox, r.layout.Padding)
	compose.EraseBox(canvas, r.layout.AvatarBox, r.layout.Padding)
	compose.DrawAvatar(canvas, avatarImage, r.layout.AvatarBox, r.layout.Padding)

	// The caption lives in the box's padded interior, both for fitting and
	// for drawing.
	interior := r.layout.CaptionBox.Inset(r.layout.Padding)
	fit := textfit.Fit(grapheme.Split(text), textfit.Constraints{
		BoxWidth:    interior.Width(),
		BoxHeight:   interior.Height(),
		MaxLines:    r.layout.MaxLines,
		MinSize:     r.layout.MinFontSize,
		MaxSize:     r.layout.MaxFontSize,
		LineSpacing: r.layout.LineSpacing,
	}, r.faces)
	if !fit.Fits {
		r.log.WarnContext(ctx, "caption does not fit, drawing at minimum size", "identity", identity, "size", fit.Size)
	}
	fontFitSize.Observe(float64(fit.Size))
	if err := compose.DrawCaption(canvas, fit, interior, r.layout.LineSpacing(fit.Size), r.faces); err != nil {
		return nil, err
	}

	buffer := &bytes.Buffer{}
	if err := png.Encode(buffer, canvas); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buffer.Bytes(), nil
}

// Health is the operator-facing snapshot served by the health route.
type Health struct {
	OK       bool   `json:"ok"`
	Template string `json:"template"`
	Emoji    bool   `json:"emoji"`
}

// Health reports template presence and color-emoji capability.
func (r *Renderer) Health() Health {
	return Health{
		OK:       r.template != nil,
		Template: r.templateName,
		Emoji:    r.faces.ColorEmoji(),
	}
}

// HealthCheck returns a readiness check failing while the template is missing.
func (r *Renderer) HealthCheck() health.Check {
	return func(context.Context) error {
		if r.template == nil {
			return ErrTemplateMissing
		}
		return nil
	}
}
