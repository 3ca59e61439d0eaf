package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/bookscrape/internal/log"
	"github.com/nao1215/bookscrape/internal/model"
)

func TestNewCategoryProcessor(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		cp := NewCategoryProcessor(func() *Pipeline { return New() })
		if cp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, cp.concurrency)
		}
		if cp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		cp := NewCategoryProcessor(func() *Pipeline { return New() }, WithConcurrency(4))
		if cp.concurrency != 4 {
			t.Errorf("expected concurrency 4, got %d", cp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		cp := NewCategoryProcessor(func() *Pipeline { return New() }, WithConcurrency(0))
		if cp.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, cp.concurrency)
		}
	})
}

func TestCategoryProcessorProcess(t *testing.T) {
	t.Parallel()

	t.Run("processes all categories in order", func(t *testing.T) {
		t.Parallel()

		var processed atomic.Int32
		cp := NewCategoryProcessor(func() *Pipeline {
			p := New(WithLogger(log.Discard()))
			p.AddStep(&mockStep{
				name: "counter",
				doFunc: func(_ context.Context, _ *model.CategoryResult) error {
					processed.Add(1)
					return nil
				},
			})
			return p
		}, WithProcessorLogger(log.Discard()), WithConcurrency(3))

		slugs := []string{"travel_2", "mystery_3", "poetry_23"}
		results, err := cp.Process(context.Background(), slugs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processed.Load() != 3 {
			t.Errorf("expected 3 processed, got %d", processed.Load())
		}

		got := make([]string, 0, len(results))
		for _, r := range results {
			got = append(got, r.Category.Slug)
		}
		if diff := cmp.Diff(slugs, got); diff != "" {
			t.Errorf("result order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("failed category does not stop others", func(t *testing.T) {
		t.Parallel()

		cp := NewCategoryProcessor(func() *Pipeline {
			p := New(WithLogger(log.Discard()))
			p.AddStep(&mockStep{
				name: "maybe-fail",
				doFunc: func(_ context.Context, r *model.CategoryResult) error {
					if r.Category.Slug == "broken_1" {
						return errors.New("boom")
					}
					return nil
				},
			})
			return p
		}, WithProcessorLogger(log.Discard()))

		results, err := cp.Process(context.Background(), []string{"broken_1", "travel_2"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if len(results[0].Failures) != 1 {
			t.Errorf("broken category should record a failure, got %+v", results[0].Failures)
		}
		if len(results[1].Failures) != 0 {
			t.Errorf("healthy category should have no failures, got %+v", results[1].Failures)
		}
	})

	t.Run("returns context error when cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		cp := NewCategoryProcessor(func() *Pipeline { return New(WithLogger(log.Discard())) },
			WithProcessorLogger(log.Discard()))

		results, err := cp.Process(ctx, []string{"travel_2", "poetry_23"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		for _, r := range results {
			if r == nil {
				t.Error("results should not contain nil entries")
			}
		}
	})
}

func TestCategoryProcessorConcurrencyLimit(t *testing.T) {
	t.Parallel()

	for _, limit := range []int{1, 2} {
		t.Run("limit", func(t *testing.T) {
			t.Parallel()

			var (
				mu      sync.Mutex
				running int
				peak    int
			)
			cp := NewCategoryProcessor(func() *Pipeline {
				p := New(WithLogger(log.Discard()))
				p.AddStep(&mockStep{
					name: "slow",
					doFunc: func(_ context.Context, _ *model.CategoryResult) error {
						mu.Lock()
						running++
						peak = max(peak, running)
						mu.Unlock()

						time.Sleep(20 * time.Millisecond)

						mu.Lock()
						running--
						mu.Unlock()
						return nil
					},
				})
				return p
			}, WithProcessorLogger(log.Discard()), WithConcurrency(limit))

			if _, err := cp.Process(context.Background(), []string{"a_1", "b_2", "c_3", "d_4"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if peak > limit {
				t.Errorf("peak concurrency %d exceeds limit %d", peak, limit)
			}
		})
	}
}

func TestCategoryProcessorCallbacks(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		started  []string
		finished = make(map[int]string)
	)
	cp := NewCategoryProcessor(func() *Pipeline { return New(WithLogger(log.Discard())) },
		WithProcessorLogger(log.Discard()),
		WithOnStart(func(slug string) {
			mu.Lock()
			started = append(started, slug)
			mu.Unlock()
		}),
	)

	slugs := []string{"travel_2", "poetry_23"}
	err := cp.ProcessWithCallback(context.Background(), slugs, func(r *model.CategoryResult, i int) {
		mu.Lock()
		finished[i] = r.Category.Slug
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// With the default concurrency of 1 categories start in input order.
	if diff := cmp.Diff(slugs, started); diff != "" {
		t.Errorf("start order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[int]string{0: "travel_2", 1: "poetry_23"}, finished); diff != "" {
		t.Errorf("callbacks mismatch (-want +got):\n%s", diff)
	}
}
