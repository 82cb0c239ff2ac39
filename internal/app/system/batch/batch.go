// Package batch writes a list of records through a per-record create call,
// grouped into report batches and run concurrently.
//
// Batches are a reporting unit, not a throttle. Concurrency is controlled
// separately by Persister.Workers:
//   - Workers == 0: every record is started at once (unbounded fan-out).
//   - Workers > 0: at most Workers creates are in flight at any moment.
//
// Completion order is never assumed. Results are keyed by input index.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultBatchSize is the report batch size used when BatchSize is unset.
const DefaultBatchSize = 10

// ErrSkipped marks records that were never submitted because the context was
// canceled or an earlier record failed with StopOnError set.
var ErrSkipped = errors.New("record not submitted")

// CreateFunc writes one record.
type CreateFunc[T any] func(ctx context.Context, item T) error

// Persister holds the knobs for Persist.
type Persister struct {
	BatchSize int // records per report batch (default 10)
	Workers   int // max concurrent creates; 0 means unbounded
	// StopOnError stops submitting new records after the first failure.
	// Records already in flight still finish.
	StopOnError bool
	Log         *zap.Logger
}

// ItemError is a failed create.
type ItemError struct {
	Index int
	Batch int
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("record %d (batch %d): %v", e.Index, e.Batch, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// BatchStats summarizes one report batch.
type BatchStats struct {
	Index   int
	Size    int
	Created int
	Failed  int
	Skipped int
	Elapsed time.Duration
}

// Report is the outcome of Persist.
type Report struct {
	Total   int
	Created []int // input indexes written successfully, ascending
	Errors  []ItemError
	Skipped []int // input indexes never submitted, ascending
	Batches []BatchStats
	Elapsed time.Duration
}

// OK reports whether every record was written.
func (r Report) OK() bool {
	return len(r.Errors) == 0 && len(r.Skipped) == 0 && len(r.Created) == r.Total
}

// BatchCount is the number of report batches.
func (r Report) BatchCount() int { return len(r.Batches) }

// AvgPerItem is the wall time divided by the number of records written.
func (r Report) AvgPerItem() time.Duration {
	if len(r.Created) == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(len(r.Created))
}

// Err joins every item error, or returns nil.
func (r Report) Err() error {
	if len(r.Errors) == 0 {
		if len(r.Skipped) > 0 {
			return fmt.Errorf("%d of %d records: %w", len(r.Skipped), r.Total, ErrSkipped)
		}
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

type outcome struct {
	submitted bool
	err       error
	start     time.Time
	end       time.Time
}

// Persist writes items with create and returns a Report.
//
// Cancellation of ctx stops new submissions. Writes already started run to
// completion on a context that ignores the cancellation, so a canceled run
// never leaves a write half-done with no record of its outcome.
func Persist[T any](ctx context.Context, p Persister, items []T, create CreateFunc[T]) Report {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	size := p.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	started := time.Now()
	outcomes := make([]outcome, len(items))

	issueCtx, stopIssuing := context.WithCancel(ctx)
	defer stopIssuing()

	var sem *semaphore.Weighted
	if p.Workers > 0 {
		sem = semaphore.NewWeighted(int64(p.Workers))
	}
	writeCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := range items {
		if issueCtx.Err() != nil {
			continue
		}
		if sem != nil {
			if err := sem.Acquire(issueCtx, 1); err != nil {
				continue
			}
			// Acquire can win a race with cancellation; honor the stop anyway.
			if issueCtx.Err() != nil {
				sem.Release(1)
				continue
			}
		}
		outcomes[i].submitted = true
		outcomes[i].start = time.Now()

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if sem != nil {
				defer sem.Release(1)
			}
			err := create(writeCtx, items[i])
			outcomes[i].err = err
			outcomes[i].end = time.Now()
			if err != nil && p.StopOnError {
				stopIssuing()
			}
		}(i)
	}
	wg.Wait()

	rep := Report{Total: len(items)}
	for b := 0; b*size < len(items); b++ {
		lo, hi := b*size, min((b+1)*size, len(items))
		st := BatchStats{Index: b, Size: hi - lo}
		var first, last time.Time
		for i := lo; i < hi; i++ {
			o := outcomes[i]
			if !o.submitted {
				st.Skipped++
				rep.Skipped = append(rep.Skipped, i)
				continue
			}
			if first.IsZero() || o.start.Before(first) {
				first = o.start
			}
			if o.end.After(last) {
				last = o.end
			}
			if o.err != nil {
				st.Failed++
				rep.Errors = append(rep.Errors, ItemError{Index: i, Batch: b, Err: o.err})
				continue
			}
			st.Created++
			rep.Created = append(rep.Created, i)
		}
		if !first.IsZero() {
			st.Elapsed = last.Sub(first)
		}
		rep.Batches = append(rep.Batches, st)
	}
	rep.Elapsed = time.Since(started)

	log.Info("batch persist finished",
		zap.Int("total", rep.Total),
		zap.Int("created", len(rep.Created)),
		zap.Int("failed", len(rep.Errors)),
		zap.Int("skipped", len(rep.Skipped)),
		zap.Int("batches", rep.BatchCount()),
		zap.Int("workers", p.Workers),
		zap.Duration("elapsed", rep.Elapsed),
		zap.Duration("avg_per_item", rep.AvgPerItem()))

	return rep
}
