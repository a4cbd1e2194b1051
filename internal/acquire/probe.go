// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"

	"github.com/ledongthuc/pdf"
)

// PageCount returns the number of pages in a PDF body, or 0 when the body
// cannot be parsed. The parser panics on some malformed inputs; those are
// reported as 0 as well.
func PageCount(data []byte) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return r.NumPage()
}
