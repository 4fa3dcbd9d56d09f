package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTask struct {
	mock.Mock
}

func (m *mockTask) Run(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func startWorker(ctx context.Context, w *Worker) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Start(ctx)
	}()
	return &wg
}

func TestWorker_RunsUntilStopped(t *testing.T) {
	var runs atomic.Int32
	task := new(mockTask)
	task.On("Run", mock.Anything).Run(func(mock.Arguments) { runs.Add(1) }).Return(nil)

	w := NewWorker("test", task, 20*time.Millisecond, nil)
	wg := startWorker(context.Background(), w)

	// The first run is immediate, the rest follow the ticker.
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	w.Stop()
	wg.Wait()
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	task := new(mockTask)
	ran := make(chan struct{}, 1)
	task.On("Run", mock.Anything).Run(func(mock.Arguments) { ran <- struct{}{} }).Return(errors.New("transient"))

	w := NewWorker("test", task, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	wg := startWorker(ctx, w)

	<-ran
	cancel()
	wg.Wait()

	task.AssertNumberOfCalls(t, "Run", 1)
	w.Stop()
}

func TestWorker_StopBeforeStart(t *testing.T) {
	task := new(mockTask)
	w := NewWorker("test", task, time.Hour, nil)

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.stopped
	}, time.Second, time.Millisecond)

	select {
	case <-stopped:
		t.Fatal("Stop returned before Start")
	default:
	}

	w.Start(context.Background())
	<-stopped
	task.AssertNotCalled(t, "Run", mock.Anything)
}

func touch(t *testing.T, dir, name string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

func TestStagingJanitor_Run(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	stale := touch(t, dir, "docrag-upload-111.pdf", now.Add(-2*time.Hour))
	fresh := touch(t, dir, "docrag-upload-222.pdf", now.Add(-10*time.Minute))
	other := touch(t, dir, "unrelated.tmp", now.Add(-48*time.Hour))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "docrag-upload-dir"), 0o700))

	j := NewStagingJanitor(dir, "docrag-upload-", time.Hour, nil, nil)
	j.now = func() time.Time { return now }

	require.NoError(t, j.Run(context.Background()))

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
	assert.DirExists(t, filepath.Join(dir, "docrag-upload-dir"))
}

func TestStagingJanitor_MissingDir(t *testing.T) {
	j := NewStagingJanitor(filepath.Join(t.TempDir(), "nope"), "docrag-upload-", time.Hour, nil, nil)
	assert.Error(t, j.Run(context.Background()))
}
