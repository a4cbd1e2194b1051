// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
)

// Rand is the randomness used for mirror choice and delay jitter.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// globalRand forwards to the math/rand/v2 top-level functions, which are
// safe for concurrent use and seeded per process.
type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// Mirror is one endpoint of the mirror network.
type Mirror struct {
	BaseURL string
}

// RequestURL returns the landing page URL for identifier: <base>/<identifier>.
func (m Mirror) RequestURL(identifier string) string {
	return strings.TrimRight(m.BaseURL, "/") + "/" + strings.TrimLeft(identifier, "/")
}

func (m Mirror) String() string { return m.BaseURL }

// Selector picks the mirror for the next attempt.
type Selector interface {
	Choose() Mirror
}

// RandomSelector chooses uniformly from a static mirror set. Choices are
// independent: a mirror that just failed may be chosen again.
type RandomSelector struct {
	mirrors []Mirror
	rnd     Rand
}

// NewRandomSelector validates the configured base URLs. An empty set is a
// configuration error (ErrNoMirrors). A nil rnd uses the process source.
func NewRandomSelector(bases []string, rnd Rand) (*RandomSelector, error) {
	var mirrors []Mirror
	for _, b := range bases {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		u, err := url.Parse(b)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid mirror URL %q", b)
		}
		mirrors = append(mirrors, Mirror{BaseURL: b})
	}
	if len(mirrors) == 0 {
		return nil, ErrNoMirrors
	}
	if rnd == nil {
		rnd = globalRand{}
	}
	return &RandomSelector{mirrors: mirrors, rnd: rnd}, nil
}

// Choose returns one mirror chosen uniformly at random.
func (s *RandomSelector) Choose() Mirror {
	return s.mirrors[s.rnd.IntN(len(s.mirrors))]
}

// Mirrors returns the configured set.
func (s *RandomSelector) Mirrors() []Mirror {
	return append([]Mirror(nil), s.mirrors...)
}
