// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// titlePrefixLen is the number of title characters kept in artifact names.
const titlePrefixLen = 50

// SanitizeTitle keeps the first 50 characters of title and drops anything
// that is not a letter, digit, space, hyphen or underscore.
func SanitizeTitle(title string) string {
	runes := []rune(title)
	if len(runes) > titlePrefixLen {
		runes = runes[:titlePrefixLen]
	}
	var b strings.Builder
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ArtifactName returns the file name for rec:
// <sanitized-title-prefix>_<first-author>.pdf with spaces as underscores.
func ArtifactName(rec types.PaperRecord) string {
	author := strings.NewReplacer("/", "_", `\`, "_").Replace(rec.FirstAuthor())
	name := SanitizeTitle(rec.Title) + "_" + author + ".pdf"
	return strings.ReplaceAll(name, " ", "_")
}

// ArtifactPath returns <base>/<conference>/<year>/<name>. The same record
// always maps to the same path.
func ArtifactPath(base string, rec types.PaperRecord) string {
	return filepath.Join(base, string(rec.Conference), strconv.Itoa(rec.Year), ArtifactName(rec))
}
