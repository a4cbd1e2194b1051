// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// PaperText joins the fields that describe a paper into one string:
// "title | Authors: a, b | Conference: ICDE 2020 | Venue: v". Empty parts
// are left out.
func PaperText(rec types.PaperRecord) string {
	var parts []string
	if rec.Title != "" {
		parts = append(parts, rec.Title)
	}
	if names := rec.AuthorNames(); len(names) > 0 {
		parts = append(parts, "Authors: "+strings.Join(names, ", "))
	}
	if rec.Conference != "" {
		parts = append(parts, "Conference: "+string(rec.Conference)+" "+strconv.Itoa(rec.Year))
	}
	if rec.Venue != "" {
		parts = append(parts, "Venue: "+rec.Venue)
	}
	return strings.Join(parts, " | ")
}

// Key returns the map key for rec: its DOI, else its catalog URL. Empty
// means the record is not embedded.
func Key(rec types.PaperRecord) string {
	if rec.DOI != "" {
		return rec.DOI
	}
	return rec.URL
}

// Generate embeds every keyed record. Later records with the same key
// replace earlier ones. Progress goes to w every 100 records.
func Generate(ctx context.Context, p Provider, recs []types.PaperRecord, w io.Writer) (map[string][]float32, error) {
	byKey := make(map[string]types.PaperRecord)
	var order []string
	for _, rec := range recs {
		k := Key(rec)
		if k == "" {
			continue
		}
		if _, seen := byKey[k]; !seen {
			order = append(order, k)
		}
		byKey[k] = rec
	}

	out := make(map[string][]float32, len(order))
	for i, k := range order {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		vec, err := p.Embed(ctx, PaperText(byKey[k]))
		if err != nil {
			return out, fmt.Errorf("embedding %s: %w", k, err)
		}
		out[k] = vec
		if (i+1)%100 == 0 || i == len(order)-1 {
			fmt.Fprintf(w, "embedded: %d/%d\n", i+1, len(order))
		}
	}
	return out, nil
}

// Save writes the embeddings as indented JSON.
func Save(path string, embeddings map[string][]float32) error {
	data, err := json.MarshalIndent(embeddings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling embeddings: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
