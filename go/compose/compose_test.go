package compose

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malonaz/meme-api/go/grapheme"
	"github.com/malonaz/meme-api/go/layout"
	"github.com/malonaz/meme-api/go/textfit"
	"github.com/malonaz/meme-api/go/typeface"
)

func solid(width, height int, fill color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)
	return img
}

func channels(c color.Color) [4]int {
	r, g, b, a := c.RGBA()
	return [4]int{int(r >> 8), int(g >> 8), int(b >> 8), int(a >> 8)}
}

func requireShade(t *testing.T, got, want color.Color) {
	t.Helper()
	g, w := channels(got), channels(want)
	for i := range g {
		require.InDelta(t, w[i], g[i], 2)
	}
}

func TestNewCanvas(t *testing.T) {
	template := image.NewRGBA(image.Rect(2, 2, 6, 6))
	template.Set(3, 3, color.NRGBA{R: 255, A: 255})

	canvas := NewCanvas(template)

	require.Equal(t, image.Rect(0, 0, 4, 4), canvas.Bounds())
	requireShade(t, canvas.At(1, 1), color.NRGBA{R: 255, A: 255})
	requireShade(t, canvas.At(0, 0), color.NRGBA{})

	canvas.Set(1, 1, color.NRGBA{G: 255, A: 255})
	requireShade(t, template.At(3, 3), color.NRGBA{R: 255, A: 255})
}

func TestEraseBox(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	canvas := solid(20, 20, red)

	EraseBox(canvas, layout.Box{X0: 5, Y0: 5, X1: 10, Y1: 10}, 2)

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	requireShade(t, canvas.At(3, 3), white)
	requireShade(t, canvas.At(11, 11), white)
	requireShade(t, canvas.At(2, 3), red)
	requireShade(t, canvas.At(12, 12), red)
}

func TestEraseBoxClampsToBounds(t *testing.T) {
	canvas := solid(10, 10, color.NRGBA{R: 255, A: 255})

	EraseBox(canvas, layout.Box{X0: -5, Y0: -5, X1: 30, Y1: 30}, 4)

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	requireShade(t, canvas.At(0, 0), white)
	requireShade(t, canvas.At(9, 9), white)
}

func TestDrawAvatar(t *testing.T) {
	black := color.NRGBA{A: 255}
	blue := color.NRGBA{B: 255, A: 255}
	tests := []struct {
		name    string
		box     layout.Box
		inside  []image.Point
		outside []image.Point
	}{
		{
			name:    "wide interior centers square horizontally and vertically",
			box:     layout.Box{X0: 10, Y0: 10, X1: 90, Y1: 90},
			inside:  []image.Point{{20, 20}, {50, 50}, {79, 79}},
			outside: []image.Point{{19, 20}, {80, 80}, {5, 5}},
		},
		{
			name:    "short interior uses height as side",
			box:     layout.Box{X0: 10, Y0: 10, X1: 90, Y1: 40},
			inside:  []image.Point{{50, 25}},
			outside: []image.Point{{30, 25}, {70, 25}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canvas := solid(100, 100, black)
			avatar := solid(50, 10, blue)

			DrawAvatar(canvas, avatar, tt.box, 5)

			for _, p := range tt.inside {
				requireShade(t, canvas.At(p.X, p.Y), blue)
			}
			for _, p := range tt.outside {
				requireShade(t, canvas.At(p.X, p.Y), black)
			}
		})
	}
}

func TestDrawAvatarDegenerateInterior(t *testing.T) {
	black := color.NRGBA{A: 255}
	canvas := solid(10, 10, black)
	avatar := solid(4, 4, color.NRGBA{B: 255, A: 255})

	DrawAvatar(canvas, avatar, layout.Box{X0: 0, Y0: 0, X1: 10, Y1: 10}, 5)

	requireShade(t, canvas.At(5, 5), black)
}

func TestDrawCaption(t *testing.T) {
	faces, err := typeface.New(typeface.Config{})
	require.NoError(t, err)

	canvas := solid(400, 200, color.White)
	box := layout.Box{X0: 10, Y0: 10, X1: 390, Y1: 190}
	clusters := grapheme.Split("Hello")
	fit := textfit.Fit(clusters, textfit.Constraints{
		BoxWidth:    box.Width(),
		BoxHeight:   box.Height(),
		MaxLines:    2,
		MinSize:     14,
		MaxSize:     80,
		LineSpacing: func(size int) int { return size / 4 },
	}, faces)
	require.True(t, fit.Fits)

	require.NoError(t, DrawCaption(canvas, fit, box, fit.Size/4, faces))

	dark := 0
	for y := box.Y0; y < box.Y1; y++ {
		for x := box.X0; x < box.X1; x++ {
			if channels(canvas.At(x, y))[0] < 128 {
				dark++
			}
		}
	}
	require.Greater(t, dark, 0)

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	requireShade(t, canvas.At(0, 0), white)
	requireShade(t, canvas.At(399, 199), white)
}

func TestDrawCaptionEmpty(t *testing.T) {
	faces, err := typeface.New(typeface.Config{})
	require.NoError(t, err)
	canvas := solid(50, 50, color.White)

	require.NoError(t, DrawCaption(canvas, textfit.Result{Fits: true}, layout.Box{X1: 50, Y1: 50}, 4, faces))

	requireShade(t, canvas.At(25, 25), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
}

func TestDrawCaptionUnmappedGlyphs(t *testing.T) {
	faces, err := typeface.New(typeface.Config{})
	require.NoError(t, err)
	canvas := solid(400, 200, color.White)
	box := layout.Box{X0: 10, Y0: 10, X1: 390, Y1: 190}
	clusters := grapheme.Split("你好")
	fit := textfit.Fit(clusters, textfit.Constraints{
		BoxWidth:    box.Width(),
		BoxHeight:   box.Height(),
		MaxLines:    2,
		MinSize:     14,
		MaxSize:     80,
		LineSpacing: func(size int) int { return size / 4 },
	}, faces)

	require.NoError(t, DrawCaption(canvas, fit, box, fit.Size/4, faces))
}
