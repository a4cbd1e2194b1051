// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog downloads per-year table-of-contents listings for the
// tracked venues from the dblp search API and stores them as XML files, one
// per venue year, for the normalizer to read.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/paper-harvest/internal/httputil"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

// dblpAPIBase is the publication search endpoint. Declared as a var so
// tests can substitute an httptest server.
var dblpAPIBase = "https://dblp.org/search/publ/api"

// maxListingBytes caps one catalog response.
var maxListingBytes int64 = 64 << 20

// ErrListingTooLarge means a catalog response exceeded maxListingBytes and
// was not written.
var ErrListingTooLarge = errors.New("catalog listing too large")

// RangeResult counts the years fetched by FetchRange.
type RangeResult struct {
	Succeeded int
	Failed    int
	Paths     []string
}

// Total returns the number of years attempted.
func (r RangeResult) Total() int { return r.Succeeded + r.Failed }

// Crawler fetches catalog listings one year at a time.
type Crawler struct {
	cfg    types.CatalogConfig
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration)
	logger *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithSleeper replaces the real wait between years.
func WithSleeper(s func(ctx context.Context, d time.Duration)) Option {
	return func(c *Crawler) { c.sleep = s }
}

// WithLogger sets the advisory logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) { c.logger = l }
}

// NewCrawler builds a crawler. Zero config fields fall back to
// types.DefaultCatalogConfig.
func NewCrawler(cfg types.CatalogConfig, client *http.Client, opts ...Option) *Crawler {
	def := types.DefaultCatalogConfig()
	if cfg.Dir == "" {
		cfg.Dir = def.Dir
	}
	if cfg.MaxHits <= 0 {
		cfg.MaxHits = def.MaxHits
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if client == nil {
		client = &http.Client{}
	}
	c := &Crawler{cfg: cfg, client: client, sleep: sleepContext, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchYear downloads one venue year and returns the written file path.
func (c *Crawler) FetchYear(ctx context.Context, conf types.Conference, year int) (string, error) {
	query, volume, err := TOCQuery(conf, year)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqURL := dblpAPIBase + "?" + queryParams(conf, query, c.cfg.MaxHits).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := httputil.DoWithRetry(ctx, c.client, req, httputil.Policy{Logger: c.logger})
	if err != nil {
		return "", fmt.Errorf("catalog request for %s %d: %w", conf, year, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("catalog returned HTTP %d for %s %d", resp.StatusCode, conf, year)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading catalog response: %w", err)
	}
	if int64(len(body)) > maxListingBytes {
		return "", fmt.Errorf("%w: %s %d exceeds %d bytes", ErrListingTooLarge, conf, year, maxListingBytes)
	}

	dest := filepath.Join(VenueDir(c.cfg.Dir, conf), FileName(conf, year, volume))
	if err := writeFile(dest, body); err != nil {
		return "", err
	}
	c.logger.Debug("catalog listing saved", "conference", conf, "year", year, "path", dest, "bytes", len(body))
	return dest, nil
}

// FetchRange downloads every year in [from, to] in order. A failed year is
// reported and the range continues. Between years it waits SuccessWait
// after a success and FailureWait after a failure; nothing after the last.
func (c *Crawler) FetchRange(ctx context.Context, conf types.Conference, from, to int, w io.Writer) (RangeResult, error) {
	var res RangeResult
	if from > to {
		return res, fmt.Errorf("start year %d is after end year %d", from, to)
	}
	if !conf.Valid() {
		return res, fmt.Errorf("unknown conference %q", conf)
	}

	for year := from; year <= to; year++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		fmt.Fprintf(w, "fetching: %s %d\n", conf, year)
		path, err := c.FetchYear(ctx, conf, year)

		wait := c.cfg.SuccessWait
		if err != nil {
			res.Failed++
			wait = c.cfg.FailureWait
			fmt.Fprintf(w, "failed:  %s %d: %v\n", conf, year, err)
		} else {
			res.Succeeded++
			res.Paths = append(res.Paths, path)
			fmt.Fprintf(w, "saved:   %s\n", path)
		}

		if year != to {
			c.sleep(ctx, wait)
		}
	}

	fmt.Fprintf(w, "\nCatalog summary: %d succeeded, %d failed (total: %d)\n", res.Succeeded, res.Failed, res.Total())
	return res, nil
}

// writeFile writes data via a temp file and rename so a partial listing is
// never left at dest.
func writeFile(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".listing-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing listing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming listing: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
