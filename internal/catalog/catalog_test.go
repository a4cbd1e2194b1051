// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-harvest/internal/httputil"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

func TestTOCQuery(t *testing.T) {
	tests := []struct {
		conf    types.Conference
		year    int
		want    string
		wantVol int
	}{
		{types.ConferenceICDE, 1999, "toc:db/conf/icde/icde99.bht:", 0},
		{types.ConferenceICDE, 2020, "toc:db/conf/icde/icde2020.bht:", 0},
		{types.ConferenceSIGMOD, 1995, "toc:db/conf/sigmod/sigmod95.bht:", 0},
		{types.ConferenceSIGMOD, 2022, "toc:db/conf/sigmod/sigmod2022.bht:", 0},
		{types.ConferenceSIGMOD, 2023, "toc:db/conf/sigmod/sigmod2023c.bht:", 0},
		{types.ConferenceVLDB, 1998, "toc:db/conf/vldb/vldb98.bht:", 0},
		{types.ConferenceVLDB, 2005, "toc:db/conf/vldb/vldb2005.bht:", 0},
		{types.ConferenceVLDB, 2008, "toc:db/journals/pvldb/pvldb1.bht:", 1},
		{types.ConferenceVLDB, 2020, "toc:db/journals/pvldb/pvldb13.bht:", 13},
		{types.ConferenceVLDB, 2024, "toc:db/journals/pvldb/pvldb17.bht:", 17},
	}
	for _, tt := range tests {
		got, vol, err := TOCQuery(tt.conf, tt.year)
		require.NoError(t, err, "%s %d", tt.conf, tt.year)
		assert.Equal(t, tt.want, got, "%s %d", tt.conf, tt.year)
		assert.Equal(t, tt.wantVol, vol, "%s %d", tt.conf, tt.year)
	}
}

func TestTOCQuery_Errors(t *testing.T) {
	_, _, err := TOCQuery("KDD", 2020)
	assert.Error(t, err)
	_, _, err = TOCQuery(types.ConferenceICDE, 0)
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "icde_2020.xml", FileName(types.ConferenceICDE, 2020, 0))
	assert.Equal(t, "vldb_2020_vol13.xml", FileName(types.ConferenceVLDB, 2020, 13))
	assert.Equal(t, filepath.Join("cat", "SIGMOD_PAPER"), VenueDir("cat", types.ConferenceSIGMOD))
}

const listingXML = `<?xml version="1.0" encoding="UTF-8"?>
<result><hits total="1"><hit><info><title>T</title></info></hit></hits></result>`

type dblpStub struct {
	mu      sync.Mutex
	queries []url.Values
	fail    map[string]bool
}

func (s *dblpStub) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.queries = append(s.queries, r.URL.Query())
	fail := s.fail[r.URL.Query().Get("q")]
	s.mu.Unlock()

	if fail {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(listingXML))
}

func setup(t *testing.T, stub *dblpStub) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(stub.handler))
	t.Cleanup(ts.Close)

	orig := dblpAPIBase
	dblpAPIBase = ts.URL + "/search/publ/api"
	t.Cleanup(func() { dblpAPIBase = orig })

	origDelay := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = time.Millisecond
	t.Cleanup(func() { httputil.RetryBaseDelay = origDelay })
}

func TestFetchYear(t *testing.T) {
	stub := &dblpStub{}
	setup(t, stub)
	dir := t.TempDir()

	c := NewCrawler(types.CatalogConfig{Dir: dir}, nil)
	path, err := c.FetchYear(context.Background(), types.ConferenceVLDB, 2020)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "VLDB_PAPER", "vldb_2020_vol13.xml"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, listingXML, string(data))

	require.Len(t, stub.queries, 1)
	q := stub.queries[0]
	assert.Equal(t, "toc:db/journals/pvldb/pvldb13.bht:", q.Get("q"))
	assert.Equal(t, "1000", q.Get("h"))
	assert.Equal(t, "xml", q.Get("format"))
	assert.Empty(t, q.Get("rd"))
}

func TestFetchYear_SIGMODAddsRedirect(t *testing.T) {
	stub := &dblpStub{}
	setup(t, stub)

	c := NewCrawler(types.CatalogConfig{Dir: t.TempDir()}, nil)
	_, err := c.FetchYear(context.Background(), types.ConferenceSIGMOD, 2023)
	require.NoError(t, err)
	assert.Equal(t, "1", stub.queries[0].Get("rd"))
}

func TestFetchYear_HTTPError(t *testing.T) {
	stub := &dblpStub{fail: map[string]bool{"toc:db/conf/icde/icde2020.bht:": true}}
	setup(t, stub)
	dir := t.TempDir()

	c := NewCrawler(types.CatalogConfig{Dir: dir}, nil)
	_, err := c.FetchYear(context.Background(), types.ConferenceICDE, 2020)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")

	_, statErr := os.Stat(filepath.Join(dir, "ICDE_PAPER", "icde_2020.xml"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchYear_OversizedListingNotWritten(t *testing.T) {
	setup(t, &dblpStub{})
	orig := maxListingBytes
	maxListingBytes = int64(len(listingXML) - 1)
	t.Cleanup(func() { maxListingBytes = orig })
	dir := t.TempDir()

	c := NewCrawler(types.CatalogConfig{Dir: dir}, nil)
	_, err := c.FetchYear(context.Background(), types.ConferenceICDE, 2020)
	require.ErrorIs(t, err, ErrListingTooLarge)

	_, statErr := os.Stat(filepath.Join(dir, "ICDE_PAPER", "icde_2020.xml"))
	assert.True(t, os.IsNotExist(statErr), "partial listing must not be written")
}

func TestFetchYear_ListingAtLimit(t *testing.T) {
	setup(t, &dblpStub{})
	orig := maxListingBytes
	maxListingBytes = int64(len(listingXML))
	t.Cleanup(func() { maxListingBytes = orig })

	c := NewCrawler(types.CatalogConfig{Dir: t.TempDir()}, nil)
	path, err := c.FetchYear(context.Background(), types.ConferenceICDE, 2020)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, listingXML, string(data))
}

func TestFetchRange_Waits(t *testing.T) {
	stub := &dblpStub{fail: map[string]bool{"toc:db/conf/icde/icde2019.bht:": true}}
	setup(t, stub)

	var waits []time.Duration
	cfg := types.DefaultCatalogConfig()
	cfg.Dir = t.TempDir()
	c := NewCrawler(cfg, nil, WithSleeper(func(_ context.Context, d time.Duration) {
		waits = append(waits, d)
	}))

	var buf bytes.Buffer
	res, err := c.FetchRange(context.Background(), types.ConferenceICDE, 2018, 2020, &buf)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, res.Paths, 2)
	// 2018 ok -> 10s, 2019 failed -> 1s, nothing after 2020.
	assert.Equal(t, []time.Duration{10 * time.Second, time.Second}, waits)
	assert.Contains(t, buf.String(), "failed:  ICDE 2019")
	assert.Contains(t, buf.String(), "Catalog summary: 2 succeeded, 1 failed (total: 3)")
}

func TestFetchRange_InvalidRange(t *testing.T) {
	c := NewCrawler(types.CatalogConfig{Dir: t.TempDir()}, nil)
	_, err := c.FetchRange(context.Background(), types.ConferenceICDE, 2021, 2020, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestFetchRange_Cancelled(t *testing.T) {
	stub := &dblpStub{}
	setup(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	c := NewCrawler(types.CatalogConfig{Dir: t.TempDir()}, nil, WithSleeper(func(context.Context, time.Duration) { cancel() }))

	res, err := c.FetchRange(ctx, types.ConferenceICDE, 2018, 2020, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Succeeded)
}
