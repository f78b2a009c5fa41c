// Package avatar fetches identity-keyed avatar images from a remote endpoint,
// caching the raw bytes on disk with a freshness window.
package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrFetch wraps failures of the remote avatar endpoint: transport errors,
// non-success statuses, and undecodable payloads.
var ErrFetch = errors.New("avatar fetch failed")

// Opts holds avatar fetching and caching options.
type Opts struct {
	CacheDir      string        `long:"cache-dir" env:"CACHE_DIR" description:"Directory holding cached avatar images" default:"avatar_cache"`
	TTL           time.Duration `long:"ttl" env:"TTL" description:"Cached avatar freshness window" default:"24h"`
	FetchTimeout  time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" description:"Remote avatar fetch timeout" default:"8s"`
	URLTemplate   string        `long:"url-template" env:"URL_TEMPLATE" description:"Avatar endpoint; %d receives the identity" default:"https://q.qlogo.cn/headimg_dl?dst_uin=%d&spec=640"`
	SweepInterval time.Duration `long:"sweep-interval" env:"SWEEP_INTERVAL" description:"Interval between sweeps removing stale cache entries; 0 disables sweeping" default:"1h"`
}

// Fetcher retrieves avatars, serving fresh cache entries without a network
// call. Concurrent fetches of the same identity race benignly: the cache
// write is last-writer-wins and a stale or partial file only triggers a
// refetch.
type Fetcher struct {
	opts   *Opts
	log    *slog.Logger
	client *http.Client
}

// NewFetcher creates a fetcher, creating the cache directory if needed.
func NewFetcher(opts *Opts) (*Fetcher, error) {
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating avatar cache directory: %w", err)
	}
	return &Fetcher{
		opts:   opts,
		log:    slog.Default(),
		client: &http.Client{Timeout: opts.FetchTimeout},
	}, nil
}

// WithLogger sets this fetcher's logger.
func (f *Fetcher) WithLogger(logger *slog.Logger) *Fetcher {
	f.log = logger
	return f
}

// Get returns the avatar image for the identity, from cache when fresh,
// fetching and caching otherwise.
func (f *Fetcher) Get(ctx context.Context, identity int64) (image.Image, error) {
	path := f.cachePath(identity)
	if img, ok := f.cached(ctx, path); ok {
		cacheHits.Inc()
		return img, nil
	}
	cacheMisses.Inc()

	raw, err := f.fetch(ctx, identity)
	if err != nil {
		fetchFailures.Inc()
		return nil, err
	}
	// Persist before decoding, so an interrupted decode does not lose the fetch.
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return nil, fmt.Errorf("writing avatar cache file: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		fetchFailures.Inc()
		return nil, fmt.Errorf("%w: decoding avatar payload: %v", ErrFetch, err)
	}
	return img, nil
}

// Sweep removes cache entries aged past the TTL. It runs periodically from a
// background routine; Get never depends on it.
func (f *Fetcher) Sweep(ctx context.Context) error {
	entries, err := os.ReadDir(f.opts.CacheDir)
	if err != nil {
		return fmt.Errorf("reading avatar cache directory: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "avatar_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) < f.opts.TTL {
			continue
		}
		if err := os.Remove(filepath.Join(f.opts.CacheDir, entry.Name())); err != nil {
			f.log.WarnContext(ctx, "removing stale avatar", "file", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		f.log.InfoContext(ctx, "swept avatar cache", "removed", removed)
	}
	return nil
}

// cached loads a fresh cache entry. Any failure reads as a miss.
func (f *Fetcher) cached(ctx context.Context, path string) (image.Image, bool) {
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) >= f.opts.TTL {
		return nil, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		f.log.WarnContext(ctx, "ignoring corrupt cached avatar", "path", path, "error", err)
		return nil, false
	}
	return img, true
}

func (f *Fetcher) fetch(ctx context.Context, identity int64) ([]byte, error) {
	url := fmt.Sprintf(f.opts.URLTemplate, identity)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building avatar request: %w", err)
	}
	response, err := f.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from avatar endpoint", ErrFetch, response.StatusCode)
	}
	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading avatar payload: %v", ErrFetch, err)
	}
	f.log.InfoContext(ctx, "fetched avatar", "identity", identity, "bytes", len(raw))
	return raw, nil
}

func (f *Fetcher) cachePath(identity int64) string {
	return filepath.Join(f.opts.CacheDir, fmt.Sprintf("avatar_%d.png", identity))
}
