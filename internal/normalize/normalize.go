// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize turns catalog listings into canonical paper records.
package normalize

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-harvest/internal/catalog"
	"github.com/pdiddy/paper-harvest/internal/records"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

// fileNamePattern matches icde_2020.xml, sigmod_1999.xml, vldb_2005.xml and
// vldb_2020_vol13.xml.
var fileNamePattern = regexp.MustCompile(`^(icde|sigmod|vldb)_(\d{4})(?:_vol(\d+))?\.xml$`)

// dblpResult mirrors the parts of a dblp search response we read.
type dblpResult struct {
	XMLName xml.Name  `xml:"result"`
	Hits    []dblpHit `xml:"hits>hit"`
}

type dblpHit struct {
	Info *dblpInfo `xml:"info"`
}

type dblpInfo struct {
	Authors []dblpAuthor `xml:"authors>author"`
	Title   string       `xml:"title"`
	Venue   []string     `xml:"venue"`
	Pages   string       `xml:"pages"`
	Year    string       `xml:"year"`
	Type    string       `xml:"type"`
	Access  string       `xml:"access"`
	Key     string       `xml:"key"`
	DOI     string       `xml:"doi"`
	EE      []string     `xml:"ee"`
	URL     string       `xml:"url"`
}

type dblpAuthor struct {
	PID  string `xml:"pid,attr"`
	Name string `xml:",chardata"`
}

// Source is the venue, year and optional volume encoded in a catalog file
// name.
type Source struct {
	Conference types.Conference
	Year       int
	Volume     *int
}

// ParseFileName infers the source of a catalog file from its base name.
func ParseFileName(name string) (Source, error) {
	m := fileNamePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return Source{}, fmt.Errorf("unrecognized catalog file name %q", filepath.Base(name))
	}
	conf, err := types.ParseConference(m[1])
	if err != nil {
		return Source{}, err
	}
	year, _ := strconv.Atoi(m[2])
	src := Source{Conference: conf, Year: year}
	if m[3] != "" {
		vol, _ := strconv.Atoi(m[3])
		src.Volume = &vol
	}
	return src, nil
}

// Parse decodes one dblp listing into records for src. Hits without an
// info element are dropped.
func Parse(r io.Reader, src Source) ([]types.PaperRecord, error) {
	var res dblpResult
	if err := xml.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}

	recs := make([]types.PaperRecord, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if hit.Info == nil {
			continue
		}
		recs = append(recs, toRecord(*hit.Info, src))
	}
	return recs, nil
}

func toRecord(info dblpInfo, src Source) types.PaperRecord {
	rec := types.PaperRecord{
		Conference:    src.Conference,
		Year:          src.Year,
		Volume:        src.Volume,
		Title:         strings.TrimSpace(info.Title),
		Authors:       make([]types.Author, 0, len(info.Authors)),
		DOI:           strings.TrimSpace(info.DOI),
		URL:           strings.TrimSpace(info.URL),
		Pages:         info.Pages,
		Type:          info.Type,
		Key:           info.Key,
		PublishedYear: info.Year,
		Access:        info.Access,
	}
	for _, a := range info.Authors {
		rec.Authors = append(rec.Authors, types.Author{Name: strings.TrimSpace(a.Name), PID: a.PID})
	}
	if len(info.Venue) > 0 {
		rec.Venue = info.Venue[0]
	}
	if len(info.EE) > 0 {
		rec.EE = strings.TrimSpace(info.EE[0])
	}
	return rec
}

// ParseFile reads one catalog file, inferring its source from the name.
func ParseFile(path string) ([]types.PaperRecord, error) {
	src, err := ParseFileName(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	recs, err := Parse(f, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// Result counts what NormalizeDir did.
type Result struct {
	Files   int
	Failed  int
	Records int
}

// NormalizeDir parses every listing under the per-venue directories of
// catalogDir in sorted path order and writes the records to out as JSON
// lines. Files that cannot be parsed are reported on w and skipped.
func NormalizeDir(catalogDir string, out, w io.Writer) (Result, error) {
	var res Result
	var files []string
	for _, conf := range types.Conferences {
		matches, err := filepath.Glob(filepath.Join(catalog.VenueDir(catalogDir, conf), "*.xml"))
		if err != nil {
			return res, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	for _, path := range files {
		res.Files++
		recs, err := ParseFile(path)
		if err != nil {
			res.Failed++
			fmt.Fprintf(w, "failed:  %s: %v\n", path, err)
			continue
		}
		if err := records.WriteJSONL(out, recs); err != nil {
			return res, fmt.Errorf("writing records: %w", err)
		}
		res.Records += len(recs)
		fmt.Fprintf(w, "parsed:  %s (%d records)\n", path, len(recs))
	}

	fmt.Fprintf(w, "\nParse summary: %d files, %d failed, %d records\n", res.Files, res.Failed, res.Records)
	return res, nil
}
