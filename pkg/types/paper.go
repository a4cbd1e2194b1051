// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the records and configuration shared by the
// paper-harvest pipeline stages.
package types

import (
	"fmt"
	"strings"
)

// Conference identifies one of the database-systems venues tracked by the
// catalog crawler.
type Conference string

const (
	ConferenceICDE   Conference = "ICDE"
	ConferenceSIGMOD Conference = "SIGMOD"
	ConferenceVLDB   Conference = "VLDB"
)

// Conferences lists every supported venue in catalog order.
var Conferences = []Conference{ConferenceICDE, ConferenceSIGMOD, ConferenceVLDB}

// ParseConference accepts a venue name in any case ("vldb", "Sigmod").
func ParseConference(s string) (Conference, error) {
	c := Conference(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown conference %q: use ICDE, SIGMOD, or VLDB", s)
	}
	return c, nil
}

// Valid reports whether c is one of the supported venues.
func (c Conference) Valid() bool {
	switch c {
	case ConferenceICDE, ConferenceSIGMOD, ConferenceVLDB:
		return true
	default:
		return false
	}
}

// Lower returns the lowercase venue name used in catalog file names.
func (c Conference) Lower() string {
	return strings.ToLower(string(c))
}

// Author is one entry of a paper's author list.
type Author struct {
	// Name is the display name as printed by the catalog (e.g. "A. Smith").
	Name string `json:"name" yaml:"name"`

	// PID is the catalog person identifier, empty when unknown.
	PID string `json:"pid,omitempty" yaml:"pid,omitempty"`
}

// PaperRecord is the canonical, conference-agnostic representation of one
// catalog entry. Records are read-only once loaded.
type PaperRecord struct {
	Conference Conference `json:"conference" yaml:"conference"`
	Year       int        `json:"year" yaml:"year"`

	// Volume is set only for VLDB journal-era (PVLDB) records.
	Volume *int `json:"volume" yaml:"volume,omitempty"`

	Title   string   `json:"title" yaml:"title"`
	Authors []Author `json:"authors" yaml:"authors"`

	// DOI is the primary identifier handed to mirrors.
	DOI string `json:"doi" yaml:"doi"`

	// EE is the electronic-edition URL, used when DOI is empty.
	EE string `json:"ee,omitempty" yaml:"ee,omitempty"`

	// URL is the catalog record page.
	URL string `json:"url" yaml:"url"`

	Pages string `json:"pages" yaml:"pages"`
	Type  string `json:"type" yaml:"type"`

	// Key is the stable catalog key (e.g. "conf/icde/SmithJ20").
	Key   string `json:"key" yaml:"key"`
	Venue string `json:"venue" yaml:"venue"`

	PublishedYear string `json:"published_year,omitempty" yaml:"published_year,omitempty"`
	Access        string `json:"access,omitempty" yaml:"access,omitempty"`
}

// Identifier returns the value sent to mirrors: the DOI when present,
// otherwise the electronic-edition URL. Empty means the record cannot be
// acquired.
func (p PaperRecord) Identifier() string {
	if doi := strings.TrimSpace(p.DOI); doi != "" {
		return doi
	}
	return strings.TrimSpace(p.EE)
}

// Eligible reports whether the record carries at least one identifier.
func (p PaperRecord) Eligible() bool {
	return p.Identifier() != ""
}

// FirstAuthor returns the first author's display name or "Unknown".
func (p PaperRecord) FirstAuthor() string {
	if len(p.Authors) == 0 || strings.TrimSpace(p.Authors[0].Name) == "" {
		return "Unknown"
	}
	return p.Authors[0].Name
}

// AuthorNames returns display names in catalog order.
func (p PaperRecord) AuthorNames() []string {
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		names = append(names, a.Name)
	}
	return names
}

// RecordKey returns the key used to track the record across runs: the
// catalog key, falling back to the identifier.
func (p PaperRecord) RecordKey() string {
	if p.Key != "" {
		return p.Key
	}
	return p.Identifier()
}

// Validate checks the fields every loaded record must carry.
func (p PaperRecord) Validate() error {
	if !p.Conference.Valid() {
		return fmt.Errorf("unknown conference %q", p.Conference)
	}
	if p.Year <= 0 {
		return fmt.Errorf("invalid year %d", p.Year)
	}
	return nil
}

// OutcomeStatus is the record-level result of an acquisition run.
type OutcomeStatus string

const (
	StatusDownloaded OutcomeStatus = "downloaded"
	StatusSkipped    OutcomeStatus = "skipped"
	StatusExhausted  OutcomeStatus = "exhausted"
)

// AcquisitionOutcome is what the acquisition ledger stores per record.
type AcquisitionOutcome struct {
	RecordKey  string        `json:"record_key" yaml:"record_key"`
	Conference Conference    `json:"conference" yaml:"conference"`
	Year       int           `json:"year" yaml:"year"`
	Identifier string        `json:"identifier" yaml:"identifier"`
	Status     OutcomeStatus `json:"status" yaml:"status"`

	// Mirror is the base URL that served the artifact (or the last one tried).
	Mirror   string `json:"mirror,omitempty" yaml:"mirror,omitempty"`
	Attempts int    `json:"attempts" yaml:"attempts"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`

	// Pages is the page count read from the PDF, 0 when it could not be parsed.
	Pages int `json:"pages,omitempty" yaml:"pages,omitempty"`

	// LastError describes the final attempt's failure for exhausted records.
	LastError string `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}
