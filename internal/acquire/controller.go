// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// DefaultMaxAttempts bounds tries per record when the config leaves it unset.
const DefaultMaxAttempts = 3

// State is the per-record controller state.
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateSuccess
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateSuccess:
		return "success"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Attempt describes one try against one mirror. Attempts are not persisted.
type Attempt struct {
	Number     int
	Mirror     Mirror
	RequestURL string

	// PDFURL and Heuristic are set once the locator matched.
	PDFURL    string
	Heuristic string

	Outcome Outcome
	Err     error
	Elapsed time.Duration
}

// Result is the controller's verdict for one identifier.
type Result struct {
	State    State
	Payload  *Payload
	Attempts []Attempt
}

// Last returns the final attempt, or false if none was made.
func (r Result) Last() (Attempt, bool) {
	if len(r.Attempts) == 0 {
		return Attempt{}, false
	}
	return r.Attempts[len(r.Attempts)-1], true
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// jitter draws a duration uniformly from [d.Min, d.Max].
func jitter(rnd Rand, d types.Delay) time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rnd.Float64()*float64(d.Max-d.Min))
}

// Controller drives bounded attempts for one identifier across mirrors.
type Controller struct {
	selector    Selector
	fetcher     *Fetcher
	maxAttempts int
	retryDelay  types.Delay
	rnd         Rand
	sleep       Sleeper
	logger      *slog.Logger
}

// NewController assembles a controller. maxAttempts <= 0 uses the default.
func NewController(selector Selector, fetcher *Fetcher, maxAttempts int, retryDelay types.Delay, rnd Rand, sleep Sleeper, logger *slog.Logger) *Controller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if rnd == nil {
		rnd = globalRand{}
	}
	if sleep == nil {
		sleep = sleepContext
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		selector:    selector,
		fetcher:     fetcher,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		rnd:         rnd,
		sleep:       sleep,
		logger:      logger,
	}
}

// Acquire tries up to maxAttempts mirrors for identifier. Per-attempt
// failures become attempt outcomes and never escape; the result is either
// StateSuccess with a payload or StateExhausted.
//
// Attempts ignore cancellation of ctx: a stop request takes effect between
// records, never in the middle of a transfer. Each request is still bounded
// by the fetcher's timeout.
func (c *Controller) Acquire(ctx context.Context, identifier string) Result {
	ctx = context.WithoutCancel(ctx)
	res := Result{State: StateAttempting}

	for n := 1; n <= c.maxAttempts; n++ {
		att, payload := c.attempt(ctx, n, identifier)
		res.Attempts = append(res.Attempts, att)

		log := c.logger.With("identifier", identifier, "attempt", n, "mirror", att.Mirror.BaseURL)
		if payload != nil {
			log.Debug("attempt succeeded", "pdf_url", att.PDFURL, "heuristic", att.Heuristic, "elapsed", att.Elapsed)
			res.State = StateSuccess
			res.Payload = payload
			return res
		}
		log.Info("attempt failed", "outcome", att.Outcome.String(), "error", att.Err, "elapsed", att.Elapsed)

		if n < c.maxAttempts {
			c.sleep(ctx, jitter(c.rnd, c.retryDelay))
		}
	}

	res.State = StateExhausted
	return res
}

func (c *Controller) attempt(ctx context.Context, n int, identifier string) (Attempt, *Payload) {
	start := time.Now()
	mirror := c.selector.Choose()
	att := Attempt{Number: n, Mirror: mirror, RequestURL: mirror.RequestURL(identifier)}

	finish := func(err error) (Attempt, *Payload) {
		att.Err = err
		att.Outcome = outcomeOf(err)
		att.Elapsed = time.Since(start)
		return att, nil
	}

	page, err := c.fetcher.Page(ctx, att.RequestURL)
	if err != nil {
		return finish(err)
	}

	loc, ok := Locate(bytes.NewReader(page), att.RequestURL)
	if !ok {
		return finish(ErrLocatorMiss)
	}
	att.PDFURL = loc.URL
	att.Heuristic = loc.Heuristic

	payload, err := c.fetcher.Fetch(ctx, loc.URL)
	if err != nil {
		return finish(err)
	}

	att.Outcome = OutcomeSuccess
	att.Elapsed = time.Since(start)
	return att, payload
}
