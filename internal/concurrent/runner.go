// Package concurrent runs the single-item comparison over many items with
// bounded concurrency.
package concurrent

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/guarzo/resellgap/internal/config"
	"github.com/guarzo/resellgap/internal/model"
)

// CompareFunc compares one item by ID.
type CompareFunc func(ctx context.Context, id string) (model.ComparisonResult, error)

// Reporter receives progress as items finish.
type Reporter interface {
	Update(done, failed int)
}

// RunnerConfig holds configuration for the batch runner.
type RunnerConfig struct {
	Workers     int        // concurrent items
	RateLimit   rate.Limit // item starts per second, 0 for unlimited
	ItemTimeout time.Duration
	Reporter    Reporter
	Logger      *slog.Logger
}

// ConfigFromBatch derives runner settings from the batch configuration.
func ConfigFromBatch(cfg config.BatchConfig) RunnerConfig {
	return RunnerConfig{
		Workers:     cfg.Workers,
		RateLimit:   rate.Limit(cfg.RequestsPerSecond),
		ItemTimeout: cfg.ItemTimeout,
	}
}

// Runner executes a CompareFunc across many IDs. One item's failure,
// panic or timeout never affects another item.
type Runner struct {
	workers  int
	limiter  *rate.Limiter
	timeout  time.Duration
	reporter Reporter
	logger   *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig) *Runner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 10 {
			workers = 10
		}
	}

	timeout := cfg.ItemTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(cfg.RateLimit, workers)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		workers:  workers,
		limiter:  limiter,
		timeout:  timeout,
		reporter: cfg.Reporter,
		logger:   logger,
	}
}

type job struct {
	index int
	id    string
}

type outcome struct {
	index  int
	id     string
	result model.ComparisonResult
	err    error
}

// Run compares every ID and returns the reconciled summary. Results and
// errors keep the input order.
func (r *Runner) Run(ctx context.Context, ids []string, compare CompareFunc) model.BatchSummary {
	start := time.Now()
	summary := model.BatchSummary{
		RunID:   uuid.NewString(),
		Total:   len(ids),
		Results: []model.ComparisonResult{},
		Errors:  []model.BatchError{},
	}
	if len(ids) == 0 {
		return summary
	}

	jobs := make(chan job)
	outcomes := make(chan outcome, len(ids))

	var wg sync.WaitGroup
	for w := 0; w < min(r.workers, len(ids)); w++ {
		wg.Add(1)
		go r.worker(ctx, jobs, outcomes, compare, &wg)
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			jobs <- job{index: i, id: id}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	collected := make([]outcome, len(ids))
	done, failed := 0, 0
	for o := range outcomes {
		collected[o.index] = o
		done++
		if o.err != nil {
			failed++
		}
		if r.reporter != nil {
			r.reporter.Update(done, failed)
		}
	}

	for _, o := range collected {
		if o.err != nil {
			summary.Errors = append(summary.Errors, model.BatchError{ItemID: o.id, Error: o.err.Error()})
			continue
		}
		summary.Results = append(summary.Results, o.result)
	}
	summary.Success = len(summary.Results)
	summary.Failed = len(summary.Errors)
	summary.Duration = time.Since(start)

	r.logger.Info("batch comparison finished",
		"run_id", summary.RunID,
		"total", summary.Total,
		"success", summary.Success,
		"failed", summary.Failed,
		"duration", summary.Duration)
	return summary
}

func (r *Runner) worker(ctx context.Context, jobs <-chan job, outcomes chan<- outcome, compare CompareFunc, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		o := outcome{index: j.index, id: j.id}
		if err := ctx.Err(); err != nil {
			o.err = fmt.Errorf("batch cancelled: %w", err)
		} else if err := r.wait(ctx); err != nil {
			o.err = fmt.Errorf("rate limit: %w", err)
		} else {
			o.result, o.err = r.compareWithTimeout(ctx, j.id, compare)
		}
		if o.err != nil {
			r.logger.Warn("batch item failed", "item", j.id, "error", o.err)
		}
		outcomes <- o
	}
}

func (r *Runner) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// compareWithTimeout bounds one item by the per-item timeout even when the
// compare function ignores its context. A panic becomes the item's error.
func (r *Runner) compareWithTimeout(ctx context.Context, id string, compare CompareFunc) (model.ComparisonResult, error) {
	itemCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type reply struct {
		result model.ComparisonResult
		err    error
	}
	ch := make(chan reply, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- reply{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		res, err := compare(itemCtx, id)
		ch <- reply{result: res, err: err}
	}()

	select {
	case rep := <-ch:
		return rep.result, rep.err
	case <-itemCtx.Done():
		return model.ComparisonResult{}, fmt.Errorf("item timed out after %s: %w", r.timeout, itemCtx.Err())
	}
}
