package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/malonaz/meme-api/go/avatar"
)

const testLayout = `
caption_box: {x0: 10, y0: 5, x1: 190, y1: 60}
avatar_box: {x0: 40, y0: 70, x1: 160, y1: 140}
padding: 4
max_lines: 2
min_font_size: 14
max_font_size: 40
line_spacing_ratio: 0.24
`

var templateFill = color.NRGBA{R: 255, G: 200, B: 50, A: 255}

func writeTemplate(t *testing.T, dir string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 200, 150))
	draw.Draw(img, img.Bounds(), image.NewUniform(templateFill), image.Point{}, draw.Src)
	file, err := os.Create(filepath.Join(dir, "template.png"))
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, png.Encode(file, img))
}

func avatarPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{B: 255, A: 255}), image.Point{}, draw.Src)
	var buffer bytes.Buffer
	require.NoError(t, png.Encode(&buffer, img))
	return buffer.Bytes()
}

func newTestRenderer(t *testing.T, withTemplate bool, avatarHandler http.HandlerFunc) *Renderer {
	t.Helper()
	assetDir := t.TempDir()
	if withTemplate {
		writeTemplate(t, assetDir)
	}
	layoutFile := filepath.Join(assetDir, "layout.yaml")
	require.NoError(t, os.WriteFile(layoutFile, []byte(testLayout), 0o644))

	server := httptest.NewServer(avatarHandler)
	t.Cleanup(server.Close)
	avatars, err := avatar.NewFetcher(&avatar.Opts{
		CacheDir:     t.TempDir(),
		TTL:          time.Hour,
		FetchTimeout: time.Second,
		URLTemplate:  server.URL + "/headimg_dl?dst_uin=%d",
	})
	require.NoError(t, err)

	renderer, err := New(
		&Opts{CaptionPattern: "请问你看到{{.Name}}了吗", LayoutFile: layoutFile},
		&AssetOpts{
			Dir:           assetDir,
			FontPath:      filepath.Join(assetDir, "font.ttf"),
			EmojiFontPath: filepath.Join(assetDir, "emoji.ttf"),
		},
		avatars,
	)
	require.NoError(t, err)
	return renderer
}

func serveAvatar(t *testing.T) http.HandlerFunc {
	payload := avatarPNG(t)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}
}

func shade(c color.Color) [4]int {
	r, g, b, a := c.RGBA()
	return [4]int{int(r >> 8), int(g >> 8), int(b >> 8), int(a >> 8)}
}

func TestRenderProducesTemplateSizedPNG(t *testing.T) {
	renderer := newTestRenderer(t, true, serveAvatar(t))

	payload, err := renderer.Render(context.Background(), 12345, "")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 200, 150), img.Bounds())

	// Untouched template pixel outside both regions.
	require.Equal(t, [4]int{255, 200, 50, 255}, shade(img.At(2, 148)))
	// Erased caption region edge is white.
	require.Equal(t, [4]int{255, 255, 255, 255}, shade(img.At(7, 2)))
	// The avatar square is centered in the padded interior.
	avatarShade := shade(img.At(100, 105))
	require.Less(t, avatarShade[0], 10)
	require.Greater(t, avatarShade[2], 245)
	// Caption pixels were drawn inside the caption box.
	dark := 0
	for y := 5; y < 60; y++ {
		for x := 10; x < 190; x++ {
			if shade(img.At(x, y))[0] < 128 {
				dark++
			}
		}
	}
	require.Greater(t, dark, 0)
}

func TestRenderDefaultsNameToIdentityDigits(t *testing.T) {
	renderer := newTestRenderer(t, true, serveAvatar(t))

	unnamed, err := renderer.Render(context.Background(), 12345, "")
	require.NoError(t, err)
	named, err := renderer.Render(context.Background(), 12345, "12345")
	require.NoError(t, err)
	blank, err := renderer.Render(context.Background(), 12345, "   ")
	require.NoError(t, err)

	require.Equal(t, named, unnamed)
	require.Equal(t, named, blank)
}

func TestRenderWithJoinedEmojiName(t *testing.T) {
	renderer := newTestRenderer(t, true, serveAvatar(t))

	payload, err := renderer.Render(context.Background(), 12345, "👨‍👩‍👧")
	require.NoError(t, err)

	_, err = png.Decode(bytes.NewReader(payload))
	require.NoError(t, err)
}

func TestRenderWithoutTemplate(t *testing.T) {
	renderer := newTestRenderer(t, false, serveAvatar(t))

	require.False(t, renderer.Health().OK)
	require.Empty(t, renderer.Health().Template)

	_, err := renderer.Render(context.Background(), 12345, "")
	require.ErrorIs(t, err, ErrTemplateMissing)
}

func TestRenderAvatarFailure(t *testing.T) {
	renderer := newTestRenderer(t, true, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	_, err := renderer.Render(context.Background(), 12345, "")
	require.ErrorIs(t, err, avatar.ErrFetch)
}

func TestHealth(t *testing.T) {
	renderer := newTestRenderer(t, true, serveAvatar(t))

	health := renderer.Health()
	require.True(t, health.OK)
	require.Equal(t, "template.png", health.Template)
	require.False(t, health.Emoji)

	require.NoError(t, renderer.HealthCheck()(context.Background()))
}

func TestHealthCheckFailsWithoutTemplate(t *testing.T) {
	renderer := newTestRenderer(t, false, serveAvatar(t))

	require.ErrorIs(t, renderer.HealthCheck()(context.Background()), ErrTemplateMissing)
}

func TestNewRejectsBadCaptionPattern(t *testing.T) {
	_, err := New(&Opts{CaptionPattern: "{{.Name"}, &AssetOpts{Dir: t.TempDir()}, nil)
	require.Error(t, err)
}

func TestNewRejectsBadLayoutFile(t *testing.T) {
	dir := t.TempDir()
	layoutFile := filepath.Join(dir, "layout.yaml")
	require.NoError(t, os.WriteFile(layoutFile, []byte("max_lines: 0"), 0o644))

	_, err := New(&Opts{CaptionPattern: "{{.Name}}", LayoutFile: layoutFile}, &AssetOpts{Dir: dir}, nil)
	require.Error(t, err)
}

func TestLoadTemplate(t *testing.T) {
	writePNG := func(t *testing.T, path string) {
		img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
		file, err := os.Create(path)
		require.NoError(t, err)
		defer file.Close()
		require.NoError(t, png.Encode(file, img))
	}
	writeJPEG := func(t *testing.T, path string) {
		img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
		file, err := os.Create(path)
		require.NoError(t, err)
		defer file.Close()
		require.NoError(t, jpeg.Encode(file, img, nil))
	}

	t.Run("empty directory resolves to no template", func(t *testing.T) {
		img, name, err := LoadTemplate(t.TempDir())
		require.NoError(t, err)
		require.Nil(t, img)
		require.Empty(t, name)
	})
	t.Run("png is preferred over jpg", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "template.png"))
		writeJPEG(t, filepath.Join(dir, "template.jpg"))
		img, name, err := LoadTemplate(dir)
		require.NoError(t, err)
		require.NotNil(t, img)
		require.Equal(t, "template.png", name)
	})
	t.Run("jpg is used when png is absent", func(t *testing.T) {
		dir := t.TempDir()
		writeJPEG(t, filepath.Join(dir, "template.jpg"))
		img, name, err := LoadTemplate(dir)
		require.NoError(t, err)
		require.NotNil(t, img)
		require.Equal(t, "template.jpg", name)
	})
	t.Run("corrupt template is a configuration error", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "template.png"), []byte("not an image"), 0o644))
		_, _, err := LoadTemplate(dir)
		require.Error(t, err)
	})
}
