// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

func openTest(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "state", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func outcome(key string, conf types.Conference, year int, status types.OutcomeStatus) types.AcquisitionOutcome {
	return types.AcquisitionOutcome{
		RecordKey:  key,
		Conference: conf,
		Year:       year,
		Identifier: "10.1/" + key,
		Status:     status,
		Attempts:   1,
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.RecordOutcome(context.Background(), outcome("k", types.ConferenceICDE, 2020, types.StatusDownloaded)))
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()
	got, err := l.Query(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDefaultPathOutsideArtifactTree(t *testing.T) {
	t.Chdir(t.TempDir())
	base := types.DefaultAcquisitionConfig().BaseDir

	l, err := Open(DefaultPath)
	require.NoError(t, err)
	require.NoError(t, l.RecordOutcome(context.Background(), outcome("k", types.ConferenceICDE, 2020, types.StatusDownloaded)))
	require.NoError(t, l.Close())

	_, err = os.Stat(DefaultPath)
	require.NoError(t, err)
	_, err = os.Stat(base)
	assert.True(t, os.IsNotExist(err), "ledger created %s", base)
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	l := openTest(t)

	id, err := l.BeginRun(ctx, 5)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	require.NoError(t, l.RecordOutcome(ctx, outcome("a", types.ConferenceVLDB, 2020, types.StatusDownloaded)))
	require.NoError(t, l.FinishRun(ctx, id, RunTotals{Downloaded: 1, Ineligible: 4, Stopped: true}))

	runs, err := l.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, id, r.ID)
	assert.Equal(t, 5, r.Records)
	assert.Equal(t, 1, r.Downloaded)
	assert.Equal(t, 4, r.Ineligible)
	assert.True(t, r.Stopped)
	assert.NotNil(t, r.FinishedAt)
	assert.False(t, r.StartedAt.IsZero())

	assert.Error(t, l.FinishRun(ctx, "missing", RunTotals{}))
}

func TestRecordOutcome_Upsert(t *testing.T) {
	ctx := context.Background()
	l := openTest(t)

	failed := outcome("k", types.ConferenceICDE, 2020, types.StatusExhausted)
	failed.Attempts = 3
	failed.LastError = "no PDF link found on mirror page"
	require.NoError(t, l.RecordOutcome(ctx, failed))

	ok := outcome("k", types.ConferenceICDE, 2020, types.StatusDownloaded)
	ok.Mirror = "https://m1"
	ok.Path = "PDF_PAPERS/ICDE/2020/x.pdf"
	ok.Pages = 12
	require.NoError(t, l.RecordOutcome(ctx, ok))

	// A later skip keeps the download details.
	skip := outcome("k", types.ConferenceICDE, 2020, types.StatusSkipped)
	skip.Attempts = 0
	skip.Path = ok.Path
	require.NoError(t, l.RecordOutcome(ctx, skip))

	got, err := l.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.StatusDownloaded, got[0].Status)
	assert.Equal(t, "https://m1", got[0].Mirror)
	assert.Equal(t, 1, got[0].Attempts)
	assert.Equal(t, 12, got[0].Pages)
	assert.Empty(t, got[0].LastError)
}

func TestQueryAndCounts(t *testing.T) {
	ctx := context.Background()
	l := openTest(t)

	for _, o := range []types.AcquisitionOutcome{
		outcome("i1", types.ConferenceICDE, 2020, types.StatusDownloaded),
		outcome("i2", types.ConferenceICDE, 2020, types.StatusExhausted),
		outcome("i3", types.ConferenceICDE, 2021, types.StatusExhausted),
		outcome("v1", types.ConferenceVLDB, 2020, types.StatusSkipped),
	} {
		require.NoError(t, l.RecordOutcome(ctx, o))
	}

	got, err := l.Query(ctx, Filter{Status: types.StatusExhausted})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "i2", got[0].RecordKey)
	assert.Equal(t, "i3", got[1].RecordKey)

	got, err = l.Query(ctx, Filter{Conference: types.ConferenceICDE, Year: 2020})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = l.Query(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	counts, err := l.Counts(ctx, Filter{Conference: types.ConferenceICDE})
	require.NoError(t, err)
	assert.Equal(t, map[types.OutcomeStatus]int{
		types.StatusDownloaded: 1,
		types.StatusExhausted:  2,
	}, counts)
}
