package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kjannette/market-etl/internal/config"
	"github.com/kjannette/market-etl/internal/dag"
	"github.com/kjannette/market-etl/internal/dataset"
	"github.com/kjannette/market-etl/internal/models"
	"github.com/kjannette/market-etl/internal/transform"
)

// builder turns stage functions into DAG tasks and applies the fail policy
// at the task boundary: fail-open logs the error and hands an empty dataset
// downstream, fail-fast fails the task.
type builder struct {
	cfg      *config.Config
	failFast bool
	logger   *slog.Logger
}

func (b *builder) extract(fetch func(ctx context.Context) (*dataset.Frame, error)) dag.TaskFunc {
	return func(ctx context.Context, _ dag.Inputs) (any, error) {
		frame, err := fetch(ctx)
		if err != nil {
			if b.failFast {
				return nil, err
			}
			b.logger.Warn("extract failed, continuing with empty dataset", "error", err)
			return dataset.Empty(), nil
		}
		return frame, nil
	}
}

// process runs a transformer on a raw file and persists the normalized rows
// under the transformed directory.
func process[T dataset.Recorder](b *builder, src, out string, fn func(string) ([]T, error)) dag.TaskFunc {
	return func(ctx context.Context, _ dag.Inputs) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		rows, err := fn(src)
		if err != nil {
			if b.failFast {
				return nil, fmt.Errorf("transform %s: %w", src, err)
			}
			b.logger.Warn("transform failed, continuing with empty dataset", "source", src, "error", err)
			rows = nil
		}
		persist(b, out, rows)
		b.logger.Info("dataset transformed", "source", src, "rows", len(rows), "duration", time.Since(start))
		return rows, nil
	}
}

func (b *builder) processCardNetwork() dag.TaskFunc {
	return func(ctx context.Context, _ dag.Inputs) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		split, err := transform.CardNetwork(b.cfg.MVRFile)
		if err != nil {
			if b.failFast {
				return nil, fmt.Errorf("transform %s: %w", b.cfg.MVRFile, err)
			}
			b.logger.Warn("transform failed, continuing with empty dataset", "source", b.cfg.MVRFile, "error", err)
			split = models.CardNetworkSplit{}
		}
		persist(b, mastercardOut, split.Mastercard)
		persist(b, visaOut, split.Visa)
		b.logger.Info("dataset transformed", "source", b.cfg.MVRFile,
			"mastercard", len(split.Mastercard), "visa", len(split.Visa))
		return split, nil
	}
}

// load pulls the upstream output, narrows it with pick, and hands it to sink.
func load[U, T any](b *builder, upstream string, pick func(U) []T, sink Sink[T]) dag.TaskFunc {
	return func(ctx context.Context, in dag.Inputs) (any, error) {
		v, err := dag.Get[U](in, upstream)
		if err != nil {
			return nil, err
		}
		rows := pick(v)
		if sink == nil {
			return nil, fmt.Errorf("no sink configured for %s", upstream)
		}
		n, err := sink.Load(ctx, rows)
		if err != nil {
			if b.failFast {
				return nil, err
			}
			b.logger.Warn("load failed, dataset dropped", "upstream", upstream, "rows", len(rows), "error", err)
			return int64(0), nil
		}
		return n, nil
	}
}

// persist writes rows for inspection. Failures are logged only: the
// transformed file is a debugging artifact, not an input to any task.
func persist[T dataset.Recorder](b *builder, name string, rows []T) {
	if b.cfg.TransformedDir == "" {
		return
	}
	path := b.cfg.TransformedPath(name)
	if err := transform.WriteCSV(path, rows); err != nil {
		b.logger.Warn("writing transformed dataset failed", "path", path, "error", err)
	}
}
