// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const pdfMediaType = "application/pdf"

// Location is a resolved PDF URL and the heuristic that found it.
type Location struct {
	URL       string
	Heuristic string
}

// heuristic extracts a raw (possibly relative) link from a mirror page.
// An empty result means no match.
type heuristic struct {
	name string
	find func(doc *goquery.Document) string
}

// heuristics run in priority order; the first non-empty match wins.
var heuristics = []heuristic{
	{"iframe", findViewerFrame},
	{"embed", findEmbed},
	{"download-link", findDownloadLink},
	{"object", findObject},
}

// Locate parses a mirror page and returns the best candidate PDF URL,
// resolved against pageURL. The boolean is false when no heuristic matched,
// which is an expected outcome for mirrors that do not carry the paper.
func Locate(page io.Reader, pageURL string) (Location, bool) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return Location{}, false
	}
	for _, h := range heuristics {
		raw := strings.TrimSpace(h.find(doc))
		if raw == "" {
			continue
		}
		resolved, ok := resolveLink(raw, pageURL)
		if !ok {
			continue
		}
		return Location{URL: resolved, Heuristic: h.name}, true
	}
	return Location{}, false
}

func findViewerFrame(doc *goquery.Document) string {
	src, _ := doc.Find("iframe#pdf").First().Attr("src")
	return src
}

func findEmbed(doc *goquery.Document) string {
	return firstTypedAttr(doc, "embed", "src")
}

func findObject(doc *goquery.Document) string {
	return firstTypedAttr(doc, "object", "data")
}

// firstTypedAttr returns attr of the first tag whose type attribute is the
// PDF media type (compared case-insensitively).
func firstTypedAttr(doc *goquery.Document, tag, attr string) string {
	var found string
	doc.Find(tag).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		typ, _ := s.Attr("type")
		if !strings.EqualFold(strings.TrimSpace(typ), pdfMediaType) {
			return true
		}
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			found = v
			return false
		}
		return true
	})
	return found
}

func findDownloadLink(doc *goquery.Document) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(s.Text()), "download") {
			return true
		}
		href, _ := s.Attr("href")
		if strings.TrimSpace(href) == "" || strings.HasPrefix(strings.TrimSpace(href), "#") {
			return true
		}
		found = href
		return false
	})
	return found
}

// resolveLink expands protocol-relative links to https, resolves relative
// links against base and passes absolute links through.
func resolveLink(raw, base string) (string, bool) {
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw, true
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if ref.IsAbs() {
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return "", false
		}
		return raw, true
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	return b.ResolveReference(ref).String(), true
}
