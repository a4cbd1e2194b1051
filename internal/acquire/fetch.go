// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// MaxPayloadBytes caps a single PDF transfer.
var MaxPayloadBytes int64 = 256 << 20

// maxPageBytes caps a mirror landing page.
const maxPageBytes = 8 << 20

var pdfMagic = []byte("%PDF")

// Payload is a validated PDF body.
type Payload struct {
	URL         string
	ContentType string
	Data        []byte
}

// Fetcher performs timed GETs against the mirror network. All requests pass
// through a shared rate limiter.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	userAgent string
}

// NewFetcher wires an HTTP client. A nil limiter disables the rate cap and
// a zero timeout falls back to 30s.
func NewFetcher(client *http.Client, limiter *rate.Limiter, timeout time.Duration, userAgent string) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Fetcher{client: client, limiter: limiter, timeout: timeout, userAgent: userAgent}
}

// NewLimiter returns a limiter allowing rps requests per second with a burst
// of one. rps <= 0 means unlimited.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// Page retrieves a mirror landing page. Any failure is an ErrTransfer.
func (f *Fetcher) Page(ctx context.Context, pageURL string) ([]byte, error) {
	body, _, err := f.get(ctx, pageURL, "text/html,application/xhtml+xml", maxPageBytes)
	return body, err
}

// Fetch retrieves url and checks that the body is a PDF. Network and HTTP
// failures wrap ErrTransfer; a body that is not a PDF wraps ErrValidation.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Payload, error) {
	body, contentType, err := f.get(ctx, url, pdfMediaType+",*/*;q=0.8", MaxPayloadBytes)
	if err != nil {
		return nil, err
	}
	if !Validate(contentType, body) {
		return nil, validationError(url, contentType)
	}
	return &Payload{URL: url, ContentType: contentType, Data: body}, nil
}

func (f *Fetcher) get(ctx context.Context, url, accept string, limit int64) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, "", transferError(url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", transferError(url, fmt.Errorf("creating request: %w", err))
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", transferError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, "", statusError(url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", transferError(url, fmt.Errorf("reading body: %w", err))
	}
	if int64(len(body)) > limit {
		return nil, "", transferError(url, fmt.Errorf("body exceeds %d bytes", limit))
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// Validate reports whether a body is a PDF: either the declared content
// type mentions pdf or the body starts with the %PDF signature.
func Validate(contentType string, data []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return bytes.HasPrefix(data, pdfMagic)
}
