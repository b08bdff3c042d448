// Package fetch downloads webcam snapshots into weekly capture folders.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sierracams/snowlapse/internal/catalog"
	"github.com/sierracams/snowlapse/internal/errors"
	"github.com/sierracams/snowlapse/internal/util"
	"github.com/sierracams/snowlapse/internal/weekly"
)

// Result describes one stored snapshot.
type Result struct {
	Path       string
	MirrorPath string
	Size       int64
	CapturedAt time.Time
}

// Client downloads snapshots from a webcam endpoint and files them by week.
// The stored filename carries the capture timestamp so the cataloger can
// order the frame later.
type Client struct {
	URL       string
	Root      string
	MirrorDir string
	Prefix    string
	TZ        *time.Location
	HTTP      *http.Client
	Now       func() time.Time
}

// NewClient returns a snapshot client with the given request timeout.
func NewClient(url, root string, tz *time.Location, timeout time.Duration) *Client {
	return &Client{
		URL:  url,
		Root: root,
		TZ:   tz,
		HTTP: &http.Client{Timeout: timeout},
	}
}

// Snap downloads one snapshot and writes it under the weekly folder for the
// current UTC time. An optional mirror copy goes to MirrorDir.
func (c *Client) Snap(ctx context.Context) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, errors.NewDownloadError("building snapshot request", err)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, errors.NewDownloadError("requesting snapshot", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewDownloadError(fmt.Sprintf("snapshot endpoint returned HTTP %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewDownloadError("reading snapshot body", err)
	}
	if len(data) == 0 {
		return nil, errors.NewDownloadError("snapshot body was empty", nil)
	}

	now := c.nowUTC()
	name := fmt.Sprintf("%s_%s%s", c.prefix(), catalog.FormatStampShort(now), extensionFor(resp.Header.Get("Content-Type")))

	dir := weekly.FolderFor(c.Root, now, c.tz())
	if err := util.EnsureDirectory(dir); err != nil {
		return nil, errors.NewIOError("creating weekly folder", err)
	}
	path := util.UniquePath(dir, name)
	if err := util.WriteFileAtomic(path, data, 0644); err != nil {
		return nil, errors.NewIOError("writing snapshot", err)
	}

	res := &Result{Path: path, Size: int64(len(data)), CapturedAt: now}

	if c.MirrorDir != "" {
		if err := util.EnsureDirectory(c.MirrorDir); err != nil {
			return nil, errors.NewIOError("creating mirror folder", err)
		}
		mirror := util.UniquePath(c.MirrorDir, name)
		if err := util.WriteFileAtomic(mirror, data, 0644); err != nil {
			return nil, errors.NewIOError("writing mirror copy", err)
		}
		res.MirrorPath = mirror
	}

	return res, nil
}

// extensionFor maps a Content-Type header to a file extension. Unknown types
// fall back to .jpg, which is what the webcam serves in practice.
func extensionFor(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) prefix() string {
	if c.Prefix != "" {
		return c.Prefix
	}
	return "image"
}

func (c *Client) tz() *time.Location {
	if c.TZ != nil {
		return c.TZ
	}
	return time.UTC
}

func (c *Client) nowUTC() time.Time {
	if c.Now != nil {
		return c.Now().UTC().Truncate(time.Second)
	}
	return time.Now().UTC().Truncate(time.Second)
}
