package worker

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/pindex/internal/pi"
	"github.com/hyperengineering/pindex/internal/store"
	"github.com/hyperengineering/pindex/internal/types"
)

func num(v float64) *float64 { return &v }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// mockReconcileStore implements ReconcileStore for testing
type mockReconcileStore struct {
	mu        sync.Mutex
	details   []types.ItemDetail
	scanErr   error
	updateErr error
	updates   map[string][2]*float64
	scans     int
}

func (m *mockReconcileStore) ScanDetails(ctx context.Context, afterID string, limit int) ([]types.ItemDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans++
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	sort.Slice(m.details, func(i, j int) bool { return m.details[i].ID < m.details[j].ID })
	var out []types.ItemDetail
	for _, d := range m.details {
		if d.ID > afterID {
			out = append(out, d)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockReconcileStore) UpdateDerived(ctx context.Context, detailID string, readAt time.Time, total, calculated *float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.updates == nil {
		m.updates = make(map[string][2]*float64)
	}
	m.updates[detailID] = [2]*float64{total, calculated}
	return nil
}

func (m *mockReconcileStore) scanCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scans
}

func driftFixture() []types.ItemDetail {
	return []types.ItemDetail{
		// correct
		{ID: "d1", AttendFA: num(1), TotalParticipationN: num(1), CalculatedPI: num(0.2)},
		// stored under an old formula
		{ID: "d2", AttendFA: num(2), EmpowerFEMP: num(2), TotalParticipationN: num(4), CalculatedPI: num(0.3)},
		// no data stored as zero instead of null
		{ID: "d3", AttendFA: num(0), TotalParticipationN: num(0), CalculatedPI: num(0)},
		// no counts at all, nothing derived
		{ID: "d4"},
		// missing derived values
		{ID: "d5", ConsultFC: num(3)},
	}
}

func TestReconcileWorker_RepairsDrift(t *testing.T) {
	store := &mockReconcileStore{details: driftFixture()}
	w := NewReconcileWorker(store, time.Hour, 2)

	res, err := w.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Scanned != 5 || res.Repaired != 3 || res.Failed != 0 {
		t.Errorf("result = %+v, want 5 scanned, 3 repaired", res)
	}
	if store.scanCount() != 3 {
		t.Errorf("scans = %d, want 3 pages of 2", store.scanCount())
	}

	if _, ok := store.updates["d1"]; ok {
		t.Error("d1 is consistent and must not be rewritten")
	}
	if got := store.updates["d2"]; got[1] == nil || !approx(*got[1], 0.6) || *got[0] != 4 {
		t.Errorf("d2 repaired to %v, want (4, 0.6)", got)
	}
	if got := store.updates["d3"]; got[1] != nil || got[0] == nil || *got[0] != 0 {
		t.Errorf("d3 repaired to %v, want (0, nil)", got)
	}
	if got := store.updates["d5"]; got[1] == nil || !approx(*got[1], 0.4) {
		t.Errorf("d5 repaired to %v, want PI 0.4", got)
	}
}

func TestReconcileWorker_CountsFailedRepairs(t *testing.T) {
	store := &mockReconcileStore{details: driftFixture(), updateErr: errors.New("locked")}
	w := NewReconcileWorker(store, time.Hour, 10)

	res, err := w.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Failed != 3 || res.Repaired != 0 {
		t.Errorf("result = %+v, want 3 failed", res)
	}
}

func TestReconcileWorker_SkipsStaleRows(t *testing.T) {
	mock := &mockReconcileStore{details: driftFixture(), updateErr: store.ErrStale}
	w := NewReconcileWorker(mock, time.Hour, 10)

	res, err := w.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Skipped != 3 || res.Failed != 0 || res.Repaired != 0 {
		t.Errorf("result = %+v, want 3 skipped", res)
	}
}

// savingStore saves new counts for one item right after each page is read,
// as a user would between the scan and the repair.
type savingStore struct {
	*store.SQLStore
	projectID, itemID string
	in                types.DetailInput
}

func (s *savingStore) ScanDetails(ctx context.Context, afterID string, limit int) ([]types.ItemDetail, error) {
	page, err := s.SQLStore.ScanDetails(ctx, afterID, limit)
	if err != nil {
		return nil, err
	}
	time.Sleep(time.Millisecond)
	if _, err := s.SaveDetail(ctx, s.projectID, s.itemID, s.in); err != nil {
		return nil, err
	}
	return page, nil
}

func TestReconcileWorker_KeepsConcurrentSave(t *testing.T) {
	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	p, err := db.CreateProject(ctx, types.NewProject{Name: "Harbour front"})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	items, err := db.ListItems(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	d, err := db.SaveDetail(ctx, p.ID, items[0].ID, types.DetailInput{AttendFA: num(1)})
	if err != nil {
		t.Fatalf("SaveDetail failed: %v", err)
	}
	// Drift the stored PI so the pass wants to repair it.
	if err := db.UpdateDerived(ctx, d.ID, d.UpdatedAt, num(7), num(0.5)); err != nil {
		t.Fatalf("UpdateDerived failed: %v", err)
	}

	racing := &savingStore{SQLStore: db, projectID: p.ID, itemID: items[0].ID, in: types.DetailInput{EmpowerFEMP: num(10)}}
	res, err := NewReconcileWorker(racing, time.Hour, 10).Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Skipped != 1 || res.Repaired != 0 {
		t.Errorf("result = %+v, want the stale repair skipped", res)
	}

	got, err := db.GetDetail(ctx, p.ID, items[0].ID)
	if err != nil {
		t.Fatalf("GetDetail failed: %v", err)
	}
	want, _ := pi.Compute(got.Counts())
	if got.CalculatedPI == nil || !approx(*got.CalculatedPI, want) || !approx(want, 1) {
		t.Errorf("stored PI = %v, want %v recomputed from the saved counts", got.CalculatedPI, want)
	}
}

func TestReconcileWorker_ScanError(t *testing.T) {
	scanErr := errors.New("database error")
	w := NewReconcileWorker(&mockReconcileStore{scanErr: scanErr}, time.Hour, 10)

	if _, err := w.Reconcile(context.Background()); !errors.Is(err, scanErr) {
		t.Errorf("Reconcile() error = %v, want %v", err, scanErr)
	}
}

func TestReconcileWorker_RunsOnSchedule(t *testing.T) {
	store := &mockReconcileStore{details: driftFixture()}
	w := NewReconcileWorker(store, 50*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	time.Sleep(130 * time.Millisecond)
	cancel()

	if store.scanCount() < 2 {
		t.Errorf("Expected at least 2 reconcile passes, got %d", store.scanCount())
	}
}

func TestReconcileWorker_DoesNotRunImmediately(t *testing.T) {
	store := &mockReconcileStore{details: driftFixture()}
	w := NewReconcileWorker(store, time.Hour, 10)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	cancel()

	if store.scanCount() != 0 {
		t.Errorf("Expected no pass before the first tick, got %d", store.scanCount())
	}
}

func TestReconcileWorker_GracefulShutdown(t *testing.T) {
	w := NewReconcileWorker(&mockReconcileStore{}, time.Hour, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Worker did not stop within 1 second")
	}
}
