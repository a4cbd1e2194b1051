// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire downloads full-text PDFs for catalog records from a
// network of mirror sites. A single worker processes one record at a time:
// it skips records whose artifact already exists, tries up to N randomly
// chosen mirrors per record, locates the PDF link on each mirror page,
// validates the payload and writes it to a deterministic path, pacing
// itself between records.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// ErrIneligible is returned for records with neither DOI nor EE.
var ErrIneligible = errors.New("record has no DOI or electronic-edition URL")

// Recorder persists record-level outcomes. Failures to record are logged
// and never stop a run.
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome types.AcquisitionOutcome) error
}

// Summary accumulates a run's outcomes.
type Summary struct {
	Downloaded int `json:"downloaded" yaml:"downloaded"`
	Skipped    int `json:"skipped" yaml:"skipped"`
	Exhausted  int `json:"exhausted" yaml:"exhausted"`
	Ineligible int `json:"ineligible" yaml:"ineligible"`

	// Stopped is set when the run ended early on a stop request.
	Stopped bool `json:"stopped" yaml:"stopped"`

	Outcomes []types.AcquisitionOutcome `json:"outcomes" yaml:"outcomes"`
}

// Total returns the number of records processed.
func (s Summary) Total() int {
	return s.Downloaded + s.Skipped + s.Exhausted + s.Ineligible
}

// HasFailures reports whether any record was exhausted.
func (s Summary) HasFailures() bool {
	return s.Exhausted > 0
}

// ExhaustedKeys lists the record keys that could not be acquired.
func (s Summary) ExhaustedKeys() []string {
	var keys []string
	for _, o := range s.Outcomes {
		if o.Status == types.StatusExhausted {
			keys = append(keys, o.RecordKey)
		}
	}
	return keys
}

// Engine ties the controller, artifact writer and pacing together.
type Engine struct {
	cfg        types.AcquisitionConfig
	selector   Selector
	controller *Controller
	writer     *ArtifactWriter
	recorder   Recorder
	rnd        Rand
	sleep      Sleeper
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder persists each record's outcome.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithSleeper replaces the real wait between attempts and records.
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) { e.sleep = s }
}

// WithRand fixes the randomness used for mirror choice and jitter.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rnd = r }
}

// WithLogger sets the advisory logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSelector replaces the random mirror selector built from cfg.Mirrors.
func WithSelector(s Selector) Option {
	return func(e *Engine) { e.selector = s }
}

// New validates cfg and builds an engine. An empty mirror set returns
// ErrNoMirrors before any record is touched.
func New(cfg types.AcquisitionConfig, client *http.Client, opts ...Option) (*Engine, error) {
	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.rnd == nil {
		e.rnd = globalRand{}
	}
	if e.sleep == nil {
		e.sleep = sleepContext
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.selector == nil {
		sel, err := NewRandomSelector(cfg.Mirrors, e.rnd)
		if err != nil {
			return nil, err
		}
		e.selector = sel
	}
	if cfg.BaseDir == "" {
		return nil, ErrNoBaseDir
	}

	fetcher := NewFetcher(client, NewLimiter(cfg.RequestsPerSecond), cfg.Timeout, cfg.UserAgent)
	e.controller = NewController(e.selector, fetcher, cfg.MaxAttempts, cfg.RetryDelay, e.rnd, e.sleep, e.logger.With("component", "controller"))
	e.writer = NewArtifactWriter(cfg.BaseDir)
	return e, nil
}

// AcquireRecord acquires a single record. An existing artifact is reported
// as skipped without any network activity. The returned error is non-nil
// only for ineligible records and artifact write failures; exhausting all
// attempts is an outcome, not an error.
func (e *Engine) AcquireRecord(ctx context.Context, rec types.PaperRecord, w io.Writer) (types.AcquisitionOutcome, error) {
	out := types.AcquisitionOutcome{
		RecordKey:  rec.RecordKey(),
		Conference: rec.Conference,
		Year:       rec.Year,
		Identifier: rec.Identifier(),
	}
	if !rec.Eligible() {
		return out, ErrIneligible
	}

	if path, ok := e.writer.Exists(rec); ok {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", path)
		out.Status = types.StatusSkipped
		out.Path = path
		e.record(ctx, out)
		return out, nil
	}

	fmt.Fprintf(w, "downloading: %s (%s)\n", out.RecordKey, out.Identifier)

	res := e.controller.Acquire(ctx, out.Identifier)
	out.Attempts = len(res.Attempts)
	last, _ := res.Last()
	out.Mirror = last.Mirror.BaseURL

	if res.State != StateSuccess {
		out.Status = types.StatusExhausted
		if last.Err != nil {
			out.LastError = last.Err.Error()
		}
		fmt.Fprintf(w, "failed:  %s (%d attempts, last: %s)\n", out.RecordKey, out.Attempts, last.Outcome)
		e.record(ctx, out)
		return out, nil
	}

	path, written, err := e.writer.Write(rec, res.Payload.Data)
	if err != nil {
		return out, fmt.Errorf("writing artifact for %s: %w", out.RecordKey, err)
	}
	out.Path = path
	out.Pages = PageCount(res.Payload.Data)
	if written {
		out.Status = types.StatusDownloaded
		fmt.Fprintf(w, "saved:   %s (%d bytes, %s via %s)\n", path, len(res.Payload.Data), last.Heuristic, out.Mirror)
	} else {
		out.Status = types.StatusSkipped
		fmt.Fprintf(w, "skipped: %s (placed by another writer)\n", path)
	}
	e.record(ctx, out)
	return out, nil
}

// Run processes recs in order, one at a time, and returns the accumulated
// summary. Ineligible records are counted without any attempt. After a
// download the engine waits cfg.SuccessDelay, after an exhausted record
// cfg.FailureDelay; skips cost no wait. ctx is checked only between
// records: on cancellation the run stops before the next record and
// returns the partial summary with ctx.Err().
func (e *Engine) Run(ctx context.Context, recs []types.PaperRecord, w io.Writer) (Summary, error) {
	var sum Summary
	last := lastEligible(recs)
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			sum.Stopped = true
			fmt.Fprintf(w, "stopped: %d record(s) not started\n", len(recs)-i)
			printSummary(w, sum)
			return sum, err
		}

		if !rec.Eligible() {
			sum.Ineligible++
			e.logger.Debug("record excluded", "key", rec.RecordKey())
			continue
		}

		out, err := e.AcquireRecord(ctx, rec, w)
		if err != nil {
			printSummary(w, sum)
			return sum, err
		}
		sum.Outcomes = append(sum.Outcomes, out)

		var pause types.Delay
		switch out.Status {
		case types.StatusDownloaded:
			sum.Downloaded++
			pause = e.cfg.SuccessDelay
		case types.StatusExhausted:
			sum.Exhausted++
			pause = e.cfg.FailureDelay
		default:
			sum.Skipped++
			continue
		}
		if i < last {
			e.sleep(ctx, jitter(e.rnd, pause))
		}
	}
	printSummary(w, sum)
	return sum, nil
}

// lastEligible returns the index of the last record that can be acquired,
// or -1. Pacing stops there since trailing ineligible records use no network.
func lastEligible(recs []types.PaperRecord) int {
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].Eligible() {
			return i
		}
	}
	return -1
}

func (e *Engine) record(ctx context.Context, out types.AcquisitionOutcome) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordOutcome(context.WithoutCancel(ctx), out); err != nil {
		e.logger.Warn("recording outcome failed", "key", out.RecordKey, "error", err)
	}
}

func printSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d skipped, %d exhausted, %d ineligible (total: %d)\n",
		s.Downloaded, s.Skipped, s.Exhausted, s.Ineligible, s.Total())
}
