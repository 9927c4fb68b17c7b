package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

const cacheTTL = time.Hour

// ErrFetchFailed is returned when the catalog document cannot be retrieved.
// The upstream status or transport failure is attached, never reinterpreted.
var ErrFetchFailed = zerr.New("catalog fetch failed")

// Client retrieves catalog listing documents over HTTP, keeping a short-lived
// disk cache so repeated runs against the same repository skip the network.
type Client struct {
	httpClient *http.Client
	cacheDir   string
	refresh    bool
}

// NewClient creates a catalog client caching documents under cacheDir.
// With refresh set, cached documents are ignored and re-fetched.
func NewClient(cacheDir string, refresh bool) *Client {
	return &Client{
		httpClient: &http.Client{},
		cacheDir:   cacheDir,
		refresh:    refresh,
	}
}

// Fetch returns the listing document at url, from cache when fresh.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	cachePath := c.cachePath(url)

	if !c.refresh {
		if doc, ok := readFresh(cachePath); ok {
			return doc, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Join(ErrFetchFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Join(ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := zerr.Wrap(ErrFetchFailed, fmt.Sprintf("GET %s returned %s", url, resp.Status))
		return "", zerr.With(zerr.With(err, "url", url), "status", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Join(ErrFetchFailed, err)
	}

	c.store(cachePath, body)
	return string(body), nil
}

// store writes the fetched document to the cache. The cache is best-effort;
// a failed write never fails the fetch.
func (c *Client) store(path string, body []byte) {
	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0644); err != nil {
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
	}
}

func (c *Client) cachePath(url string) string {
	return filepath.Join(c.cacheDir, fmt.Sprintf("catalog-%016x.html", xxhash.Sum64String(url)))
}

// readFresh returns a cached document if it exists and is younger than the
// cache TTL.
func readFresh(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) >= cacheTTL {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}
