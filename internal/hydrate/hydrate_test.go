package hydrate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/folio-media/folio/internal/models"
)

// fakeServer serves a folder split into pages of one item each.
type fakeServer struct {
	mu      sync.Mutex
	path    string
	pages   int
	failAt  int // page number that returns an error, 0 for none
	fetched []int
}

func (f *fakeServer) firstPage() models.FolderPage {
	return models.FolderPage{
		Path:        f.path,
		GeneratedAt: "g1",
		Items:       []models.Item{{Path: f.path + "/1"}},
		Page:        models.IntPtr(1),
		PageSize:    models.IntPtr(1),
		PageCount:   models.IntPtr(f.pages),
		TotalItems:  models.IntPtr(f.pages),
	}
}

func (f *fakeServer) fetch(_ context.Context, page, pageSize int) (*models.FolderPage, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, page)
	f.mu.Unlock()

	if page == f.failAt {
		return nil, errors.New("503 service unavailable")
	}
	return &models.FolderPage{
		Path:        f.path,
		GeneratedAt: fmt.Sprintf("g%d", page),
		Items:       []models.Item{{Path: fmt.Sprintf("%s/%d", f.path, page)}},
		Page:        models.IntPtr(page),
		PageSize:    models.IntPtr(pageSize),
		PageCount:   models.IntPtr(f.pages),
	}, nil
}

func TestHydrate_SinglePageDeliversOnce(t *testing.T) {
	srv := &fakeServer{path: "/one", pages: 1}
	var updates []models.FolderSnapshot

	res := Hydrate(context.Background(), srv.firstPage(), Options{
		DefaultPageSize: 10,
		FetchPage:       srv.fetch,
		OnUpdate:        func(s models.FolderSnapshot) { updates = append(updates, s) },
	})

	if len(updates) != 1 {
		t.Fatalf("Expected 1 update, got %d", len(updates))
	}
	if len(srv.fetched) != 0 {
		t.Errorf("Expected no fetches, got %v", srv.fetched)
	}
	if res.Reason != StopCompleted || res.Partial() {
		t.Errorf("Expected completed result, got %s", res.Reason)
	}
}

func TestHydrate_ProgressiveUpdatesEveryPage(t *testing.T) {
	srv := &fakeServer{path: "/cats", pages: 3}
	var counts []int

	res := Hydrate(context.Background(), srv.firstPage(), Options{
		DefaultPageSize: 10,
		FetchPage:       srv.fetch,
		OnUpdate:        func(s models.FolderSnapshot) { counts = append(counts, len(s.Items)) },
	})

	want := []int{1, 2, 3}
	if fmt.Sprint(counts) != fmt.Sprint(want) {
		t.Errorf("Expected update sizes %v, got %v", want, counts)
	}
	if fmt.Sprint(srv.fetched) != "[2 3]" {
		t.Errorf("Expected ascending fetches [2 3], got %v", srv.fetched)
	}
	if res.PagesMerged != 2 || res.Snapshot.GeneratedAt != "g3" {
		t.Errorf("Unexpected result: merged=%d generatedAt=%s", res.PagesMerged, res.Snapshot.GeneratedAt)
	}
}

func TestHydrate_BatchedCadence(t *testing.T) {
	srv := &fakeServer{path: "/cats", pages: 3}
	var counts []int

	Hydrate(context.Background(), srv.firstPage(), Options{
		FetchPage:          srv.fetch,
		ProgressiveUpdates: Bool(false),
		OnUpdate:           func(s models.FolderSnapshot) { counts = append(counts, len(s.Items)) },
	})

	// Once for page 1, once with the final merge of all three pages
	if fmt.Sprint(counts) != "[1 3]" {
		t.Errorf("Expected updates [1 3], got %v", counts)
	}
}

func TestHydrate_SkipInitialUpdateIfPaged(t *testing.T) {
	srv := &fakeServer{path: "/cats", pages: 3}
	var counts []int

	Hydrate(context.Background(), srv.firstPage(), Options{
		FetchPage:                srv.fetch,
		ProgressiveUpdates:       Bool(false),
		SkipInitialUpdateIfPaged: true,
		OnUpdate:                 func(s models.FolderSnapshot) { counts = append(counts, len(s.Items)) },
	})

	if fmt.Sprint(counts) != "[3]" {
		t.Errorf("Expected a single final update [3], got %v", counts)
	}
}

func TestHydrate_SkipInitialIgnoredForSinglePage(t *testing.T) {
	srv := &fakeServer{path: "/cats", pages: 1}
	calls := 0

	Hydrate(context.Background(), srv.firstPage(), Options{
		FetchPage:                srv.fetch,
		SkipInitialUpdateIfPaged: true,
		OnUpdate:                 func(models.FolderSnapshot) { calls++ },
	})

	if calls != 1 {
		t.Errorf("Expected complete single page to be delivered, got %d calls", calls)
	}
}

func TestHydrate_FetchFailureStopsQuietly(t *testing.T) {
	srv := &fakeServer{path: "/cats", pages: 4, failAt: 3}
	var counts []int

	res := Hydrate(context.Background(), srv.firstPage(), Options{
		FetchPage: srv.fetch,
		OnUpdate:  func(s models.FolderSnapshot) { counts = append(counts, len(s.Items)) },
	})

	if fmt.Sprint(counts) != "[1 2]" {
		t.Errorf("Expected updates [1 2], got %v", counts)
	}
	if fmt.Sprint(srv.fetched) != "[2 3]" {
		t.Errorf("Expected no fetch after failure, got %v", srv.fetched)
	}
	if res.Reason != StopFetchFailed || res.Err == nil {
		t.Errorf("Expected fetch-failed with error, got %s / %v", res.Reason, res.Err)
	}
	if len(res.Snapshot.Items) != 2 {
		t.Errorf("Expected last merged snapshot of 2 items, got %d", len(res.Snapshot.Items))
	}
}

func TestHydrate_BatchedFailureStillDeliversMergedPages(t *testing.T) {
	srv := &fakeServer{path: "/cats", pages: 4, failAt: 4}
	var counts []int

	Hydrate(context.Background(), srv.firstPage(), Options{
		FetchPage:          srv.fetch,
		ProgressiveUpdates: Bool(false),
		OnUpdate:           func(s models.FolderSnapshot) { counts = append(counts, len(s.Items)) },
	})

	if fmt.Sprint(counts) != "[1 3]" {
		t.Errorf("Expected updates [1 3], got %v", counts)
	}
}

func TestHydrate_ShouldContinueFalseDiscardsPage(t *testing.T) {
	srv := &fakeServer{path: "/cats", pages: 4}
	var gen Generation
	req := gen.Next("/cats")
	var counts []int

	res := Hydrate(context.Background(), srv.firstPage(), Options{
		FetchPage: func(ctx context.Context, page, size int) (*models.FolderPage, error) {
			p, err := srv.fetch(ctx, page, size)
			if page == 3 {
				// The user navigated away while page 3 was in flight
				gen.Next("/dogs")
			}
			return p, err
		},
		ShouldContinue: gen.ContinueFunc(req),
		OnUpdate:       func(s models.FolderSnapshot) { counts = append(counts, len(s.Items)) },
	})

	if fmt.Sprint(counts) != "[1 2]" {
		t.Errorf("Expected updates [1 2], got %v", counts)
	}
	if res.Reason != StopCancelled {
		t.Errorf("Expected cancelled, got %s", res.Reason)
	}
	if fmt.Sprint(srv.fetched) != "[2 3]" {
		t.Errorf("Expected no fetch after cancellation, got %v", srv.fetched)
	}
}

func TestHydrate_CancelledBatchedRunDeliversNoFinalUpdate(t *testing.T) {
	srv := &fakeServer{path: "/cats", pages: 3}
	calls := 0
	polls := 0

	Hydrate(context.Background(), srv.firstPage(), Options{
		FetchPage:                srv.fetch,
		ProgressiveUpdates:       Bool(false),
		SkipInitialUpdateIfPaged: true,
		ShouldContinue: func() bool {
			polls++
			return polls < 2
		},
		OnUpdate: func(models.FolderSnapshot) { calls++ },
	})

	if calls != 0 {
		t.Errorf("Expected no updates from a cancelled run, got %d", calls)
	}
}

func TestHydrate_ContextCancelled(t *testing.T) {
	srv := &fakeServer{path: "/cats", pages: 3}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	res := Hydrate(ctx, srv.firstPage(), Options{
		FetchPage: srv.fetch,
		OnUpdate:  func(models.FolderSnapshot) { calls++ },
	})

	if res.Reason != StopContextDone {
		t.Errorf("Expected context-done, got %s", res.Reason)
	}
	if len(srv.fetched) != 0 {
		t.Errorf("Expected no fetches, got %v", srv.fetched)
	}
	if calls != 1 {
		t.Errorf("Expected the initial update only, got %d", calls)
	}
}

func TestHydrate_FetchAbortedByCancellation(t *testing.T) {
	srv := &fakeServer{path: "/cats", pages: 3}
	ctx, cancel := context.WithCancel(context.Background())

	res := Hydrate(ctx, srv.firstPage(), Options{
		FetchPage: func(ctx context.Context, page, pageSize int) (*models.FolderPage, error) {
			cancel()
			return nil, ctx.Err()
		},
	})

	if res.Reason != StopContextDone {
		t.Errorf("Expected context-done for an aborted fetch, got %s", res.Reason)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", res.Err)
	}
}

func TestHydrate_ProgressReported(t *testing.T) {
	srv := &fakeServer{path: "/cats", pages: 3}
	var progress []Progress

	Hydrate(context.Background(), srv.firstPage(), Options{
		FetchPage:  srv.fetch,
		OnProgress: func(p Progress) { progress = append(progress, p) },
	})

	if len(progress) != 2 {
		t.Fatalf("Expected 2 progress callbacks, got %d", len(progress))
	}
	last := progress[1]
	if last.LoadedPages != 3 || last.TotalPages != 3 || last.LoadedItems != 3 {
		t.Errorf("Unexpected final progress: %+v", last)
	}
	// Later pages omit totalItems; the first page's total is used
	if last.TotalItems == nil || *last.TotalItems != 3 {
		t.Errorf("Expected total items 3, got %v", last.TotalItems)
	}
}

func TestHydrate_NilPageIsFailure(t *testing.T) {
	srv := &fakeServer{path: "/cats", pages: 2}

	res := Hydrate(context.Background(), srv.firstPage(), Options{
		FetchPage: func(context.Context, int, int) (*models.FolderPage, error) { return nil, nil },
	})

	if !errors.Is(res.Err, ErrEmptyPage) {
		t.Errorf("Expected ErrEmptyPage, got %v", res.Err)
	}
}

func TestGeneration_NextSupersedes(t *testing.T) {
	var gen Generation
	a := gen.Next("/a")
	b := gen.Next("/b")

	if gen.IsCurrent(a) {
		t.Error("Expected first request to be stale")
	}
	if !gen.IsCurrent(b) {
		t.Error("Expected latest request to be current")
	}

	gen.Invalidate()
	if gen.IsCurrent(b) {
		t.Error("Expected Invalidate to make request stale")
	}
	if gen.IsCurrent(Request{}) {
		t.Error("Zero request must never be current")
	}
}
