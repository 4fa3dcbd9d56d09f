package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloo-solutions/docrag/internal/metrics"
	"go.uber.org/zap"
)

// StagingJanitor removes upload staging files older than MaxAge. Normal
// requests clean up after themselves; this catches files left by a process
// that was killed mid-request.
type StagingJanitor struct {
	dir     string
	prefix  string
	maxAge  time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewStagingJanitor(dir, prefix string, maxAge time.Duration, m *metrics.Metrics, logger *zap.Logger) *StagingJanitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = os.TempDir()
	}
	return &StagingJanitor{
		dir:     dir,
		prefix:  prefix,
		maxAge:  maxAge,
		now:     time.Now,
		metrics: m,
		logger:  logger,
	}
}

// Run performs one sweep of the staging directory.
func (j *StagingJanitor) Run(ctx context.Context) error {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return err
	}

	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), j.prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(j.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		j.metrics.AddStagingRemoved(removed)
		j.logger.Info("removed stale staging files", zap.Int("count", removed), zap.String("dir", j.dir))
	}
	return errors.Join(errs...)
}
