package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/kjannette/market-etl/internal/dataset"
	"github.com/kjannette/market-etl/internal/httputil"
)

type Options struct {
	// Raw output files consumed by the transform stage.
	CryptoFile   string
	ArticlesFile string

	APITimeout    time.Duration
	ScrapeTimeout time.Duration

	// Headline elements are HeadlineTag elements carrying HeadlineClass.
	HeadlineTag   string
	HeadlineClass string

	Retry httputil.RetryConfig
}

// Extractor pulls raw datasets from remote sources and stages them on disk.
type Extractor struct {
	opts      Options
	apiClient *http.Client
	webClient *http.Client
	logger    *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ScrapeTimeout <= 0 {
		opts.ScrapeTimeout = 10 * time.Second
	}
	if opts.HeadlineTag == "" {
		opts.HeadlineTag = "h3"
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		}
	}
	logger = logger.With("component", "extract")
	opts.Retry.Logger = logger
	return &Extractor{
		opts:      opts,
		apiClient: &http.Client{Timeout: opts.APITimeout},
		webClient: &http.Client{Timeout: opts.ScrapeTimeout},
		logger:    logger,
	}
}

// FetchAPIDataset GETs endpoint, flattens the JSON body into a frame and
// stages it at the raw crypto path. On any failure it returns an empty,
// non-nil frame together with the cause.
func (e *Extractor) FetchAPIDataset(ctx context.Context, endpoint string) (*dataset.Frame, error) {
	frame, err := e.fetchAPI(ctx, endpoint)
	if err != nil {
		e.logger.Error("api extract failed", "endpoint", redact(endpoint), "error", err)
		e.discard(e.opts.CryptoFile)
		return dataset.Empty(), err
	}
	e.logger.Info("api dataset fetched", "endpoint", redact(endpoint), "rows", frame.Len(), "columns", len(frame.Columns))

	if err := e.stage(frame, e.opts.CryptoFile); err != nil {
		return dataset.Empty(), err
	}
	return frame, nil
}

func (e *Extractor) fetchAPI(ctx context.Context, endpoint string) (*dataset.Frame, error) {
	if endpoint == "" {
		return nil, errors.New("no api endpoint configured")
	}
	body, err := httputil.Get(ctx, e.apiClient, e.opts.Retry, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	frame, err := dataset.FromJSON(body)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return frame, nil
}

func (e *Extractor) stage(frame *dataset.Frame, path string) error {
	if path == "" {
		return nil
	}
	if err := frame.WriteCSV(path); err != nil {
		e.logger.Error("staging raw dataset failed", "path", path, "error", err)
		return fmt.Errorf("stage %s: %w", path, err)
	}
	e.logger.Debug("raw dataset staged", "path", path, "rows", frame.Len())
	return nil
}

// discard removes a stale raw file so the next transform sees no input rather
// than reprocessing a previous run's data.
func (e *Extractor) discard(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		e.logger.Warn("could not remove stale raw file", "path", path, "error", err)
	}
}
