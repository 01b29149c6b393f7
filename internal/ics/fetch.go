package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "agendamail/internal/log"
)

// Fetcher retrieves ICS feed bodies with conditional requests (ETag /
// Last-Modified) backed by an on-disk cache, so a daily run does not
// re-download unchanged feeds and a flaky network can fall back to the
// last known body.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// feedMeta is the cache metadata stored next to each feed body.
type feedMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewFetcher creates a Fetcher caching under cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
	}
}

// Fetch returns the feed body for url, from the network when it changed
// and from the cache otherwise. A network failure with a cached body on
// disk degrades to the cached body.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("feed URL is empty")
	}

	dir := filepath.Join(f.cacheDir, cacheKey(url))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	meta := loadMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			appLog.Warn("feed fetch failed; using cached body", "url", RedactURL(url), "reason", err)
			return cached, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		f.store(dir, feedMeta{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}, body)
		return body, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return nil, errors.New("304 Not Modified but no cached body")
		}
		return cached, nil

	default:
		if len(cached) > 0 {
			appLog.Warn("feed fetch returned non-OK; using cached body",
				"url", RedactURL(url), "status", resp.StatusCode)
			return cached, nil
		}
		return nil, errors.New(resp.Status)
	}
}

// store persists body and metadata; failures are logged, not fatal, since
// the fresh body is still usable this run.
func (f *Fetcher) store(dir string, meta feedMeta, body []byte) {
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		appLog.Warn("feed cache write failed", "url", RedactURL(meta.URL), "reason", err)
		return
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err == nil {
		err = os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
	}
	if err != nil {
		appLog.Warn("feed cache metadata write failed", "url", RedactURL(meta.URL), "reason", err)
	}
}

func loadMeta(dir string) feedMeta {
	var meta feedMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return feedMeta{}
	}
	if json.Unmarshal(data, &meta) != nil {
		return feedMeta{}
	}
	return meta
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:8])
}

// RedactURL hides the path and query of a feed URL in logs; private feed
// URLs routinely embed access tokens.
func RedactURL(u string) string {
	const redacted = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "ics://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redacted
}
