// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package records loads canonical paper records from line-delimited JSON.
package records

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// maxLineCapacity bounds a single JSONL line (1 MiB).
const maxLineCapacity = 1024 * 1024

// Store is an in-memory, read-only collection of records in file order.
type Store struct {
	records []types.PaperRecord
}

// Load reads every record in path. Any malformed line aborts the load with
// an error naming the line; records are never silently dropped here.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening records file: %w", err)
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Read decodes records from r. Blank lines are ignored.
func Read(r io.Reader) (*Store, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxLineCapacity)

	var recs []types.PaperRecord
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec types.PaperRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	return &Store{records: recs}, nil
}

// New wraps already-decoded records.
func New(recs []types.PaperRecord) *Store {
	return &Store{records: append([]types.PaperRecord(nil), recs...)}
}

// Len returns the number of loaded records, eligible or not.
func (s *Store) Len() int { return len(s.records) }

// All returns a copy of every loaded record.
func (s *Store) All() []types.PaperRecord {
	return append([]types.PaperRecord(nil), s.records...)
}

// Filter selects records for acquisition.
type Filter struct {
	Conference types.Conference
	Year       int
}

func (f Filter) match(rec types.PaperRecord) bool {
	if f.Conference != "" && rec.Conference != f.Conference {
		return false
	}
	if f.Year != 0 && rec.Year != f.Year {
		return false
	}
	return true
}

// Select returns every record that matches f, in file order.
func (s *Store) Select(f Filter) []types.PaperRecord {
	var out []types.PaperRecord
	for _, rec := range s.records {
		if f.match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Eligible returns the records that match f and carry a DOI or an
// electronic-edition URL, plus the number of matching records excluded for
// having neither.
func (s *Store) Eligible(f Filter) (eligible []types.PaperRecord, excluded int) {
	for _, rec := range s.records {
		if !f.match(rec) {
			continue
		}
		if !rec.Eligible() {
			excluded++
			continue
		}
		eligible = append(eligible, rec)
	}
	return eligible, excluded
}

// WriteJSONL encodes recs one per line to w.
func WriteJSONL(w io.Writer, recs []types.PaperRecord) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
	}
	return nil
}
