package pipeline

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/bookscrape/internal/model"
)

// DefaultConcurrency is the number of categories processed at once when
// WithConcurrency is not given.
const DefaultConcurrency = 1

// CategoryProcessor runs a fresh pipeline for each category with bounded
// concurrency.
type CategoryProcessor struct {
	pipelineFactory func() *Pipeline

	concurrency int

	logger *slog.Logger

	// onStart is called before a category's pipeline runs.
	onStart func(slug string)
}

// ProcessorOption configures a CategoryProcessor.
type ProcessorOption func(*CategoryProcessor)

// WithProcessorLogger sets a custom logger for batch-level logging.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(cp *CategoryProcessor) {
		cp.logger = logger
	}
}

// WithConcurrency sets the number of categories processed at once.
// Non-positive values keep the default.
func WithConcurrency(n int) ProcessorOption {
	return func(cp *CategoryProcessor) {
		if n > 0 {
			cp.concurrency = n
		}
	}
}

// WithOnStart registers a hook called from the worker goroutine when a
// category starts.
func WithOnStart(fn func(slug string)) ProcessorOption {
	return func(cp *CategoryProcessor) {
		cp.onStart = fn
	}
}

// NewCategoryProcessor creates a processor. pipelineFactory is called once
// per category so no step state leaks between categories.
func NewCategoryProcessor(pipelineFactory func() *Pipeline, opts ...ProcessorOption) *CategoryProcessor {
	cp := &CategoryProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(cp)
	}

	if cp.logger == nil {
		cp.logger = slog.Default()
	}

	return cp
}

// Process runs every category and returns the results in input order.
// Categories skipped because ctx was cancelled before they started are
// left out.
func (cp *CategoryProcessor) Process(ctx context.Context, slugs []string) ([]*model.CategoryResult, error) {
	results := make([]*model.CategoryResult, len(slugs))

	// Each goroutine writes only its own index.
	err := cp.ProcessWithCallback(ctx, slugs, func(result *model.CategoryResult, index int) {
		results[index] = result
	})

	results = slices.DeleteFunc(results, func(r *model.CategoryResult) bool {
		return r == nil
	})
	return results, err
}

// ProcessWithCallback runs every category and calls callback with each
// finished result and its index in slugs. The callback runs on the worker
// goroutine, so it must be safe for concurrent use when concurrency > 1.
//
// A failed category never aborts the others. The returned error is only
// ever the context error.
func (cp *CategoryProcessor) ProcessWithCallback(
	ctx context.Context,
	slugs []string,
	callback func(result *model.CategoryResult, index int),
) error {
	cp.logger.Info("starting category processing",
		"total_categories", len(slugs),
		"concurrency", cp.concurrency,
	)
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cp.concurrency)

	for i, slug := range slugs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			if cp.onStart != nil {
				cp.onStart(slug)
			}

			result := model.NewCategoryResult(slug)
			if err := cp.pipelineFactory().Execute(gctx, result); err != nil {
				cp.logger.Warn("category failed",
					"category", slug,
					"error", err,
				)
			} else {
				cp.logger.Info("category completed",
					"category", slug,
					"products", len(result.Products),
					"failures", len(result.Failures),
				)
			}

			callback(result, i)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	cp.logger.Info("category processing complete",
		"total_categories", len(slugs),
		"elapsed", time.Since(startTime),
	)

	return err
}
