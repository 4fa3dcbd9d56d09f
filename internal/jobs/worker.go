// Package jobs runs periodic background work inside docragd.
package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one pass of periodic work. Errors are logged and the next tick
// runs regardless.
type Task interface {
	Run(ctx context.Context) error
}

type Worker struct {
	task     Task
	interval time.Duration
	logger   *zap.Logger
	done     chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

func NewWorker(name string, task Task, interval time.Duration, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		task:     task,
		interval: interval,
		logger:   logger.With(zap.String("worker", name)),
		done:     make(chan struct{}),
	}
}

// Start runs the task once right away and then every interval. It blocks
// until ctx is cancelled or Stop is called, and must be called once.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()
	defer w.cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.logger.Info("worker started", zap.Duration("interval", w.interval))

	for {
		if err := w.task.Run(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("worker task failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the running task and waits for Start to return.
func (w *Worker) Stop() {
	w.mu.Lock()
	w.stopped = true
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()
	<-w.done
}
