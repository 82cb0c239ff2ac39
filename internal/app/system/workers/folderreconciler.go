// internal/app/system/workers/folderreconciler.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/therapytrack/internal/app/system/scheduling"
	"go.uber.org/zap"
)

// Sweeper repairs folders whose creation failed without a finished cleanup.
// scheduling.Service implements it.
type Sweeper interface {
	RepairIncomplete(ctx context.Context, limit int64) (scheduling.SweepResult, error)
}

// FolderReconciler is a background worker that periodically repairs
// incomplete folders and creations abandoned mid-write.
type FolderReconciler struct {
	sweeper  Sweeper
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	limit    int64
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewFolderReconciler creates a reconciler.
//
// Parameters:
//   - sweeper: usually the scheduling service
//   - logger: zap logger
//   - interval: how often to sweep (e.g., 5 minutes)
//   - timeout: deadline for one sweep
//   - limit: max folders repaired per sweep (0 = no limit)
func NewFolderReconciler(sweeper Sweeper, logger *zap.Logger, interval, timeout time.Duration, limit int64) *FolderReconciler {
	return &FolderReconciler{
		sweeper:  sweeper,
		log:      logger,
		interval: interval,
		timeout:  timeout,
		limit:    limit,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop. One sweep runs immediately so folders
// left incomplete or half-created by a previous process are handled at startup.
func (w *FolderReconciler) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("folder reconciler started",
		zap.Duration("interval", w.interval),
		zap.Int64("limit", w.limit))
}

// Stop signals the worker to stop and waits for the current sweep to finish.
func (w *FolderReconciler) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("folder reconciler stopped")
}

func (w *FolderReconciler) run() {
	defer w.wg.Done()

	w.Sweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs one reconciliation pass and returns its result.
func (w *FolderReconciler) Sweep() scheduling.SweepResult {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	res, err := w.sweeper.RepairIncomplete(ctx, w.limit)
	if err != nil {
		w.log.Error("folder reconciliation failed", zap.Error(err))
		return res
	}
	if res.Found > 0 {
		w.log.Info("folder reconciliation finished",
			zap.Int("found", res.Found),
			zap.Int("repaired", res.Repaired),
			zap.Int("failed", res.Failed))
	}
	return res
}
