package extract

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kjannette/market-etl/internal/dataset"
	"github.com/kjannette/market-etl/internal/httputil"
)

const ratesJSON = `{
	"success": true,
	"terms": "https://example.com/terms",
	"privacy": "https://example.com/privacy",
	"historical": true,
	"date": "2024-01-01",
	"timestamp": 1704153599,
	"target": "USD",
	"rates": {"BTC": 0.0000236, "ETH": 0.000436}
}`

const newsHTML = `<html><body>
<h3 class="Mb(5px)"><a href="/news/fed-holds-rates">Fed holds rates steady</a></h3>
<h3 class="Mb(5px) Fz(18px)"><a href="https://example.com/oil">Oil slips</a></h3>
<h3 class="Mb(5px)">No link here</h3>
<h3 class="other"><a href="/ignored">Wrong class</a></h3>
<div class="Mb(5px)"><a href="/also-ignored">Wrong tag</a></div>
</body></html>`

func newTestExtractor(t *testing.T) (*Extractor, Options) {
	t.Helper()
	dir := t.TempDir()
	opts := Options{
		CryptoFile:    filepath.Join(dir, "raw", "crypto.csv"),
		ArticlesFile:  filepath.Join(dir, "raw", "scraped_articles.csv"),
		ScrapeTimeout: 2 * time.Second,
		HeadlineTag:   "h3",
		HeadlineClass: "Mb(5px)",
		Retry:         httputil.RetryConfig{MaxAttempts: 2, BaseDelay: 10 * time.Millisecond, MaxDelay: 20 * time.Millisecond},
	}
	return New(opts, slog.New(slog.NewTextHandler(io.Discard, nil))), opts
}

func TestFetchAPIDataset_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(ratesJSON))
	}))
	defer srv.Close()

	e, opts := newTestExtractor(t)
	frame, err := e.FetchAPIDataset(context.Background(), srv.URL+"/historical?access_key=secret")
	require.NoError(t, err)
	require.Equal(t, 1, frame.Len())
	require.True(t, frame.Has("rates.BTC"))
	require.True(t, frame.Has("success"))

	staged, err := dataset.ReadCSV(opts.CryptoFile)
	require.NoError(t, err)
	require.Equal(t, frame.Columns, staged.Columns)
	require.Equal(t, frame.Rows, staged.Rows)
}

func TestFetchAPIDataset_NonOKIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	e, opts := newTestExtractor(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(opts.CryptoFile), 0o755))
	require.NoError(t, os.WriteFile(opts.CryptoFile, []byte("stale\n"), 0o644))

	frame, err := e.FetchAPIDataset(context.Background(), srv.URL)
	require.Error(t, err)
	require.NotNil(t, frame)
	require.Zero(t, frame.Len())

	_, statErr := os.Stat(opts.CryptoFile)
	require.True(t, os.IsNotExist(statErr), "stale raw file should be removed")
}

func TestFetchAPIDataset_UnreachableIsEmpty(t *testing.T) {
	e, _ := newTestExtractor(t)

	frame, err := e.FetchAPIDataset(context.Background(), "http://127.0.0.1:1/unreachable")
	require.Error(t, err)
	require.NotNil(t, frame)
	require.Zero(t, frame.Len())
}

func TestFetchAPIDataset_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	e, _ := newTestExtractor(t)
	frame, err := e.FetchAPIDataset(context.Background(), srv.URL)
	require.Error(t, err)
	require.Zero(t, frame.Len())
}

func TestFetchAPIDataset_NoEndpoint(t *testing.T) {
	e, _ := newTestExtractor(t)
	frame, err := e.FetchAPIDataset(context.Background(), "")
	require.Error(t, err)
	require.Zero(t, frame.Len())
}

func TestScrapeHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(newsHTML))
	}))
	defer srv.Close()

	e, opts := newTestExtractor(t)
	frame, err := e.ScrapeHeadlines(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, []string{"Title", "Link"}, frame.Columns)
	require.Equal(t, [][]string{
		{"Fed holds rates steady", "/news/fed-holds-rates"},
		{"Oil slips", "https://example.com/oil"},
	}, frame.Rows)

	staged, err := dataset.ReadCSV(opts.ArticlesFile)
	require.NoError(t, err)
	require.Equal(t, 2, staged.Len())
}

func TestScrapeHeadlines_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	e, _ := newTestExtractor(t)
	e.webClient.Timeout = 50 * time.Millisecond

	frame, err := e.ScrapeHeadlines(context.Background(), srv.URL)
	require.Error(t, err)
	require.Zero(t, frame.Len())
}

func TestRedact(t *testing.T) {
	require.Equal(t, "https://api.example.com/historical", redact("https://user:pw@api.example.com/historical?access_key=abc"))
}
