package avatar

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, fill color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		switch i % 4 {
		case 0:
			img.Pix[i] = fill.R
		case 1:
			img.Pix[i] = fill.G
		case 2:
			img.Pix[i] = fill.B
		case 3:
			img.Pix[i] = fill.A
		}
	}
	var buffer bytes.Buffer
	require.NoError(t, png.Encode(&buffer, img))
	return buffer.Bytes()
}

func newTestFetcher(t *testing.T, handler http.HandlerFunc) (*Fetcher, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	fetcher, err := NewFetcher(&Opts{
		CacheDir:     t.TempDir(),
		TTL:          time.Hour,
		FetchTimeout: time.Second,
		URLTemplate:  server.URL + "/headimg_dl?dst_uin=%d",
	})
	require.NoError(t, err)
	return fetcher, server
}

func TestNewFetcherCreatesCacheDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")

	_, err := NewFetcher(&Opts{CacheDir: dir})

	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestGetFetchesAndCaches(t *testing.T) {
	var requests atomic.Int32
	payload := pngBytes(t, color.NRGBA{R: 200, A: 255})
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		require.Equal(t, "8400251", r.URL.Query().Get("dst_uin"))
		w.Write(payload)
	})

	img, err := fetcher.Get(context.Background(), 8400251)
	require.NoError(t, err)
	require.Equal(t, 8, img.Bounds().Dx())
	require.Equal(t, int32(1), requests.Load())
	require.FileExists(t, filepath.Join(fetcher.opts.CacheDir, "avatar_8400251.png"))

	_, err = fetcher.Get(context.Background(), 8400251)
	require.NoError(t, err)
	require.Equal(t, int32(1), requests.Load())
}

func TestGetRefetchesStaleEntry(t *testing.T) {
	var requests atomic.Int32
	fresh := pngBytes(t, color.NRGBA{G: 200, A: 255})
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write(fresh)
	})
	path := fetcher.cachePath(12345)
	require.NoError(t, os.WriteFile(path, pngBytes(t, color.NRGBA{B: 200, A: 255}), 0o644))
	staleTime := time.Now().Add(-25 * time.Hour)
	require.NoError(t, os.Chtimes(path, staleTime, staleTime))

	img, err := fetcher.Get(context.Background(), 12345)

	require.NoError(t, err)
	require.Equal(t, int32(1), requests.Load())
	_, g, _, _ := img.At(0, 0).RGBA()
	require.Equal(t, uint32(200), g>>8)
}

func TestGetTreatsCorruptCacheAsMiss(t *testing.T) {
	var requests atomic.Int32
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write(pngBytes(t, color.NRGBA{R: 10, A: 255}))
	})
	require.NoError(t, os.WriteFile(fetcher.cachePath(12345), []byte("not an image"), 0o644))

	img, err := fetcher.Get(context.Background(), 12345)

	require.NoError(t, err)
	require.NotNil(t, img)
	require.Equal(t, int32(1), requests.Load())
}

func TestGetPropagatesRemoteFailure(t *testing.T) {
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	_, err := fetcher.Get(context.Background(), 12345)

	require.ErrorIs(t, err, ErrFetch)
	require.NoFileExists(t, fetcher.cachePath(12345))
}

func TestGetRejectsUndecodablePayload(t *testing.T) {
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not an image"))
	})

	_, err := fetcher.Get(context.Background(), 12345)

	require.ErrorIs(t, err, ErrFetch)
	// The payload is persisted before decoding; the next request refetches.
	require.FileExists(t, fetcher.cachePath(12345))
}

func TestSweep(t *testing.T) {
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {})
	dir := fetcher.opts.CacheDir
	staleTime := time.Now().Add(-25 * time.Hour)

	stale := filepath.Join(dir, "avatar_1.png")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))
	require.NoError(t, os.Chtimes(stale, staleTime, staleTime))
	fresh := filepath.Join(dir, "avatar_2.png")
	require.NoError(t, os.WriteFile(fresh, []byte("fresh"), 0o644))
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("keep"), 0o644))
	require.NoError(t, os.Chtimes(other, staleTime, staleTime))

	require.NoError(t, fetcher.Sweep(context.Background()))

	require.NoFileExists(t, stale)
	require.FileExists(t, fresh)
	require.FileExists(t, other)
}
