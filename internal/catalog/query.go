// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// journalEraStart is the first VLDB year published as PVLDB volumes.
const journalEraStart = 2008

// PVLDBVolume maps a journal-era year onto its PVLDB volume number
// (2024 is volume 17). It returns 0 for years before volume 1.
func PVLDBVolume(year int) int {
	vol := 17 - (2024 - year)
	if vol < 1 {
		return 0
	}
	return vol
}

// yearToken renders a year the way proceedings keys spell it: two digits
// before 2000, four after.
func yearToken(year int) string {
	if year < 2000 {
		return fmt.Sprintf("%02d", year%100)
	}
	return strconv.Itoa(year)
}

// TOCQuery returns the table-of-contents query for one venue year. volume
// is non-zero only for journal-era VLDB.
func TOCQuery(conf types.Conference, year int) (query string, volume int, err error) {
	if year <= 0 {
		return "", 0, fmt.Errorf("invalid year %d", year)
	}
	switch conf {
	case types.ConferenceICDE:
		return "toc:db/conf/icde/icde" + yearToken(year) + ".bht:", 0, nil
	case types.ConferenceSIGMOD:
		if year >= 2023 {
			return fmt.Sprintf("toc:db/conf/sigmod/sigmod%dc.bht:", year), 0, nil
		}
		return "toc:db/conf/sigmod/sigmod" + yearToken(year) + ".bht:", 0, nil
	case types.ConferenceVLDB:
		if year >= journalEraStart {
			vol := PVLDBVolume(year)
			if vol == 0 {
				return "", 0, fmt.Errorf("no PVLDB volume for %d", year)
			}
			return fmt.Sprintf("toc:db/journals/pvldb/pvldb%d.bht:", vol), vol, nil
		}
		return "toc:db/conf/vldb/vldb" + yearToken(year) + ".bht:", 0, nil
	default:
		return "", 0, fmt.Errorf("unknown conference %q", conf)
	}
}

// queryParams builds the search parameters for one venue year.
func queryParams(conf types.Conference, query string, maxHits int) url.Values {
	v := url.Values{}
	v.Set("q", query)
	v.Set("h", strconv.Itoa(maxHits))
	v.Set("format", "xml")
	if conf == types.ConferenceSIGMOD {
		v.Set("rd", "1")
	}
	return v
}

// VenueDir is the per-venue subdirectory of the catalog directory.
func VenueDir(dir string, conf types.Conference) string {
	return filepath.Join(dir, string(conf)+"_PAPER")
}

// FileName returns the catalog file name for one venue year:
// <conf>_<year>.xml, or <conf>_<year>_vol<N>.xml for PVLDB volumes.
func FileName(conf types.Conference, year, volume int) string {
	if volume > 0 {
		return fmt.Sprintf("%s_%d_vol%d.xml", conf.Lower(), year, volume)
	}
	return fmt.Sprintf("%s_%d.xml", conf.Lower(), year)
}
