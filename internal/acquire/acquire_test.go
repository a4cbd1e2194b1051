// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

type memRecorder struct {
	outcomes []types.AcquisitionOutcome
	err      error
}

func (m *memRecorder) RecordOutcome(_ context.Context, o types.AcquisitionOutcome) error {
	m.outcomes = append(m.outcomes, o)
	return m.err
}

func testRecord(doi, title string) types.PaperRecord {
	return types.PaperRecord{
		Conference: types.ConferenceVLDB,
		Year:       2020,
		DOI:        doi,
		Title:      title,
		Authors:    []types.Author{{Name: "A. Smith"}},
		Key:        "journals/pvldb/" + title,
	}
}

func testConfig(n *mirrorNet, base string, names ...string) types.AcquisitionConfig {
	cfg := types.DefaultAcquisitionConfig()
	cfg.Mirrors = nil
	for _, name := range names {
		cfg.Mirrors = append(cfg.Mirrors, n.base(name))
	}
	cfg.BaseDir = base
	cfg.RequestsPerSecond = 0
	cfg.Timeout = time.Second
	return cfg
}

func newTestEngine(t *testing.T, cfg types.AcquisitionConfig, n *mirrorNet, sl *sleepRecorder, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithSleeper(sl.sleep), WithRand(&seqRand{f: 0.5})}, opts...)
	e, err := New(cfg, n.ts.Client(), opts...)
	require.NoError(t, err)
	return e
}

func TestNew_NoMirrors(t *testing.T) {
	cfg := types.DefaultAcquisitionConfig()
	cfg.Mirrors = nil
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, ErrNoMirrors)
}

func TestNew_NoBaseDir(t *testing.T) {
	cfg := types.DefaultAcquisitionConfig()
	cfg.Mirrors = []string{"https://mirror.example"}
	cfg.BaseDir = ""
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, ErrNoBaseDir)
}

func TestAcquireRecord_Downloads(t *testing.T) {
	n := newMirrorNet(t)
	n.pages["m1"] = `<iframe id="pdf" src="/files/p.pdf"></iframe>`
	n.filesPath["/files/p.pdf"] = fakePDF
	base := t.TempDir()
	rec := &memRecorder{}
	e := newTestEngine(t, testConfig(n, base, "m1"), n, &sleepRecorder{}, WithRecorder(rec))

	var buf bytes.Buffer
	out, err := e.AcquireRecord(context.Background(), testRecord("10.1/X", "A New Index Structure!!"), &buf)
	require.NoError(t, err)

	want := filepath.Join(base, "VLDB", "2020", "A_New_Index_Structure_A._Smith.pdf")
	assert.Equal(t, types.StatusDownloaded, out.Status)
	assert.Equal(t, want, out.Path)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, n.base("m1"), out.Mirror)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, fakePDF, string(data))
	assert.Contains(t, buf.String(), "downloading: journals/pvldb/A New Index Structure!! (10.1/X)")
	assert.Contains(t, buf.String(), "saved:")

	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, types.StatusDownloaded, rec.outcomes[0].Status)
}

func TestAcquireRecord_ExistingArtifactMakesNoRequests(t *testing.T) {
	n := newMirrorNet(t)
	n.pages["m1"] = `<iframe id="pdf" src="/files/p.pdf"></iframe>`
	n.filesPath["/files/p.pdf"] = fakePDF
	base := t.TempDir()
	e := newTestEngine(t, testConfig(n, base, "m1"), n, &sleepRecorder{})

	r := testRecord("10.1/X", "Existing")
	path := ArtifactPath(base, r)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	var buf bytes.Buffer
	out, err := e.AcquireRecord(context.Background(), r, &buf)
	require.NoError(t, err)

	assert.Equal(t, types.StatusSkipped, out.Status)
	assert.Equal(t, 0, out.Attempts)
	assert.Equal(t, 0, n.hits("m1"))
	assert.Equal(t, 0, n.fileRequests())
	assert.Contains(t, buf.String(), "skipped: "+path+" (already exists)")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data), "existing artifact untouched")
}

func TestAcquireRecord_Ineligible(t *testing.T) {
	n := newMirrorNet(t)
	e := newTestEngine(t, testConfig(n, t.TempDir(), "m1"), n, &sleepRecorder{})

	out, err := e.AcquireRecord(context.Background(), testRecord("", "No Identifier"), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrIneligible)
	assert.Equal(t, 0, out.Attempts)
	assert.Equal(t, 0, n.hits("m1"))
}

func TestAcquireRecord_FallsBackToEE(t *testing.T) {
	n := newMirrorNet(t)
	n.pages["m1"] = `<iframe id="pdf" src="/files/p.pdf"></iframe>`
	n.filesPath["/files/p.pdf"] = fakePDF
	e := newTestEngine(t, testConfig(n, t.TempDir(), "m1"), n, &sleepRecorder{})

	r := testRecord("", "EE Only")
	r.EE = "https://doi.org/10.2/Y"
	out, err := e.AcquireRecord(context.Background(), r, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "https://doi.org/10.2/Y", out.Identifier)
	assert.Equal(t, types.StatusDownloaded, out.Status)
}

func TestAcquireRecord_Exhausted(t *testing.T) {
	n := newMirrorNet(t)
	n.pages["m1"] = "nothing"
	base := t.TempDir()
	e := newTestEngine(t, testConfig(n, base, "m1"), n, &sleepRecorder{})

	r := testRecord("10.1/X", "Missing Paper")
	var buf bytes.Buffer
	out, err := e.AcquireRecord(context.Background(), r, &buf)
	require.NoError(t, err)

	assert.Equal(t, types.StatusExhausted, out.Status)
	assert.Equal(t, 3, out.Attempts)
	assert.NotEmpty(t, out.LastError)
	assert.Contains(t, buf.String(), "failed:  journals/pvldb/Missing Paper (3 attempts, last: locator_miss)")

	_, statErr := os.Stat(ArtifactPath(base, r))
	assert.True(t, os.IsNotExist(statErr), "no artifact for exhausted record")
}

func TestAcquireRecord_WriteFailureIsFatal(t *testing.T) {
	n := newMirrorNet(t)
	n.pages["m1"] = `<iframe id="pdf" src="/files/p.pdf"></iframe>`
	n.filesPath["/files/p.pdf"] = fakePDF

	// A regular file where the base directory should be.
	base := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(base, nil, 0o644))
	e := newTestEngine(t, testConfig(n, base, "m1"), n, &sleepRecorder{})

	_, err := e.AcquireRecord(context.Background(), testRecord("10.1/X", "Blocked"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing artifact")
}

func TestAcquireRecord_RecorderErrorIsAdvisory(t *testing.T) {
	n := newMirrorNet(t)
	n.pages["m1"] = "nothing"
	rec := &memRecorder{err: errors.New("disk full")}
	e := newTestEngine(t, testConfig(n, t.TempDir(), "m1"), n, &sleepRecorder{}, WithRecorder(rec))

	out, err := e.AcquireRecord(context.Background(), testRecord("10.1/X", "P"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, types.StatusExhausted, out.Status)
	assert.Len(t, rec.outcomes, 1)
}

func TestRun_MixedBatch(t *testing.T) {
	n := newMirrorNet(t)
	n.pages["m1"] = `<iframe id="pdf" src="/files/p.pdf"></iframe>`
	n.filesPath["/files/p.pdf"] = fakePDF
	base := t.TempDir()
	sl := &sleepRecorder{}
	cfg := testConfig(n, base, "m1")
	e := newTestEngine(t, cfg, n, sl)

	existing := testRecord("10.1/E", "Already Here")
	path := ArtifactPath(base, existing)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(fakePDF), 0o644))

	recs := []types.PaperRecord{
		testRecord("10.1/A", "First"),
		testRecord("", "No Id"),
		existing,
		testRecord("10.1/B", "Second"),
	}

	var buf bytes.Buffer
	sum, err := e.Run(context.Background(), recs, &buf)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Downloaded)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Ineligible)
	assert.Equal(t, 0, sum.Exhausted)
	assert.Equal(t, 4, sum.Total())
	assert.False(t, sum.HasFailures())
	assert.False(t, sum.Stopped)
	assert.Len(t, sum.Outcomes, 3)

	// One pause after the first download; the skip and the final record
	// cost nothing.
	require.Equal(t, 1, sl.count())
	assert.Equal(t, 12500*time.Millisecond, sl.waits[0])
	assert.Contains(t, buf.String(), "Batch summary: 2 downloaded, 1 skipped, 0 exhausted, 1 ineligible (total: 4)")
}

func TestRun_FailurePacing(t *testing.T) {
	n := newMirrorNet(t)
	n.pages["m1"] = "nothing"
	sl := &sleepRecorder{}
	cfg := testConfig(n, t.TempDir(), "m1")
	cfg.MaxAttempts = 1
	e := newTestEngine(t, cfg, n, sl)

	sum, err := e.Run(context.Background(), []types.PaperRecord{
		testRecord("10.1/A", "A"),
		testRecord("10.1/B", "B"),
	}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Exhausted)
	assert.True(t, sum.HasFailures())
	assert.Equal(t, []string{"journals/pvldb/A", "journals/pvldb/B"}, sum.ExhaustedKeys())
	require.Equal(t, 1, sl.count())
	assert.Equal(t, 6500*time.Millisecond, sl.waits[0])
}

func TestRun_NoPacingBeforeTrailingIneligible(t *testing.T) {
	n := newMirrorNet(t)
	n.pages["m1"] = `<iframe id="pdf" src="/files/p.pdf"></iframe>`
	n.filesPath["/files/p.pdf"] = fakePDF
	sl := &sleepRecorder{}
	e := newTestEngine(t, testConfig(n, t.TempDir(), "m1"), n, sl)

	sum, err := e.Run(context.Background(), []types.PaperRecord{
		testRecord("10.1/A", "A"),
		testRecord("", "No Id"),
		testRecord("", "No Id Either"),
	}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Downloaded)
	assert.Equal(t, 2, sum.Ineligible)
	assert.Equal(t, 0, sl.count())
}

func TestLastEligible(t *testing.T) {
	assert.Equal(t, -1, lastEligible(nil))
	assert.Equal(t, -1, lastEligible([]types.PaperRecord{testRecord("", "x")}))
	assert.Equal(t, 1, lastEligible([]types.PaperRecord{
		testRecord("", "x"), testRecord("10.1/A", "A"), testRecord("", "y"),
	}))
}

func TestRun_StopsBetweenRecords(t *testing.T) {
	n := newMirrorNet(t)
	n.pages["m1"] = `<iframe id="pdf" src="/files/p.pdf"></iframe>`
	n.filesPath["/files/p.pdf"] = fakePDF

	ctx, cancel := context.WithCancel(context.Background())
	// Cancel during the pause after the first record.
	stopSleeper := func(context.Context, time.Duration) { cancel() }

	cfg := testConfig(n, t.TempDir(), "m1")
	e, err := New(cfg, n.ts.Client(), WithSleeper(stopSleeper), WithRand(&seqRand{}))
	require.NoError(t, err)

	var buf bytes.Buffer
	sum, err := e.Run(ctx, []types.PaperRecord{
		testRecord("10.1/A", "A"),
		testRecord("10.1/B", "B"),
		testRecord("10.1/C", "C"),
	}, &buf)

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, sum.Stopped)
	assert.Equal(t, 1, sum.Downloaded)
	assert.Contains(t, buf.String(), "stopped: 2 record(s) not started")
}

func TestReportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	in := Summary{
		Downloaded: 1,
		Exhausted:  1,
		Outcomes: []types.AcquisitionOutcome{
			{RecordKey: "k1", Status: types.StatusDownloaded, Attempts: 1},
			{RecordKey: "k2", Status: types.StatusExhausted, Attempts: 3, LastError: "no PDF link found on mirror page"},
		},
	}
	require.NoError(t, WriteReport(in, path))

	out, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, in.Downloaded, out.Downloaded)
	assert.Equal(t, []string{"k2"}, out.ExhaustedKeys())
}
