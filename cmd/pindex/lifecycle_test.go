package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperengineering/pindex/internal/api"
	"github.com/hyperengineering/pindex/internal/export"
	"github.com/hyperengineering/pindex/internal/report"
	"github.com/hyperengineering/pindex/internal/store"
	"github.com/hyperengineering/pindex/internal/types"
	"github.com/hyperengineering/pindex/internal/worker"
)

// logCapture captures slog output for testing
type logCapture struct {
	mu      sync.Mutex
	entries []map[string]any
}

func (c *logCapture) handler() slog.Handler {
	return slog.NewJSONHandler(c, &slog.HandlerOptions{Level: slog.LevelDebug})
}

func (c *logCapture) Write(p []byte) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err == nil {
		c.entries = append(c.entries, entry)
	}
	return len(p), nil
}

func (c *logCapture) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var msgs []string
	for _, e := range c.entries {
		if msg, ok := e["msg"].(string); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func (c *logCapture) hasEntry(msg, key, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e["msg"] == msg && e[key] == value {
			return true
		}
	}
	return false
}

func captureDefault(t *testing.T) *logCapture {
	t.Helper()
	capture := &logCapture{}
	old := slog.Default()
	slog.SetDefault(slog.New(capture.handler()))
	t.Cleanup(func() { slog.SetDefault(old) })
	return capture
}

func TestStartWorker_LaunchesGoroutineAndTracksCompletion(t *testing.T) {
	capture := captureDefault(t)

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	workerRan := atomic.Bool{}
	startWorker(ctx, &wg, "test-worker", func(ctx context.Context) {
		workerRan.Store(true)
		<-ctx.Done()
	})

	time.Sleep(10 * time.Millisecond)
	if !workerRan.Load() {
		t.Error("worker function was not called")
	}

	cancel()
	wg.Wait()

	if !capture.hasEntry("worker started", "worker", "test-worker") {
		t.Error("expected 'worker started' log entry with worker name")
	}
	if !capture.hasEntry("worker stopped", "worker", "test-worker") {
		t.Error("expected 'worker stopped' log entry with worker name")
	}
}

func TestWorkerWaitGroupIntegration(t *testing.T) {
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	workerCompleted := atomic.Bool{}
	startWorker(ctx, &wg, "slow-worker", func(ctx context.Context) {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond) // Simulate cleanup work
		workerCompleted.Store(true)
	})

	cancel()
	wg.Wait()

	if !workerCompleted.Load() {
		t.Error("wg.Wait() returned before worker completed")
	}
}

// countingExporter counts export calls.
type countingExporter struct {
	calls atomic.Int32
}

func (e *countingExporter) Export(ctx context.Context, projectID string) (*types.ExportResult, error) {
	e.calls.Add(1)
	return &types.ExportResult{ProjectID: projectID}, nil
}

// TestServeShutdownOrder runs the serve wiring against an in-memory store and
// checks that the server drains, workers stop, and the store closes last.
func TestServeShutdownOrder(t *testing.T) {
	captureDefault(t)

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if _, err := db.CreateProject(context.Background(), types.NewProject{Name: "Harbour front"}); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	builder := report.NewBuilder(db, slog.Default())
	exporter := export.NewExporter(builder, &export.NoopUploader{}, t.TempDir(), slog.Default())
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(db, builder, exporter, "", "test")))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	counting := &countingExporter{}
	startWorker(ctx, &wg, "reconcile", worker.NewReconcileWorker(db, time.Hour, 10).Run)
	startWorker(ctx, &wg, "export", worker.NewExportCoordinator(db, counting, time.Hour, 2).Run)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}

	// The export coordinator runs once at startup.
	deadline := time.Now().Add(time.Second)
	for counting.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if counting.calls.Load() != 1 {
		t.Errorf("startup exports = %d, want 1", counting.calls.Load())
	}

	cancel()
	srv.Close()
	wg.Wait()

	if err := db.Close(); err != nil {
		t.Errorf("store close error = %v", err)
	}
}
