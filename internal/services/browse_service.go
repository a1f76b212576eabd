// Package services provides frontend-agnostic business logic for folio.
// This layer sits between the CLI (or an embedding UI) and the core packages,
// and reports everything that happens through the event bus.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/folio-media/folio/internal/constants"
	"github.com/folio-media/folio/internal/events"
	"github.com/folio-media/folio/internal/hydrate"
	"github.com/folio-media/folio/internal/layout"
	"github.com/folio-media/folio/internal/logging"
	"github.com/folio-media/folio/internal/models"
	"github.com/folio-media/folio/internal/progress"
	"github.com/folio-media/folio/internal/session"
	"github.com/folio-media/folio/internal/thumbs"
)

// ErrNoSource is returned when the service has no folder source.
var ErrNoSource = errors.New("folder source not configured")

// FolderSource fetches folder pages. *api.Client implements it.
type FolderSource interface {
	FetchFolderPage(ctx context.Context, folderPath string, page, pageSize int) (*models.FolderPage, error)
}

// BrowseConfig configures the BrowseService.
type BrowseConfig struct {
	// PageSize is requested for page 1 and used when the server omits pageSize.
	// Defaults to constants.DefaultPageSize.
	PageSize int

	// ProgressiveUpdates publishes a snapshot after every merged page.
	ProgressiveUpdates bool

	// SkipInitialUpdateIfCached suppresses the first-page snapshot when a
	// complete cached snapshot was already shown for the folder.
	SkipInitialUpdateIfCached bool
}

// Navigation is returned by Navigate.
type Navigation struct {
	Request hydrate.Request
	Cached  *models.FolderSnapshot // nil when nothing usable was cached
}

// BrowseService drives folder navigation: it serves cached snapshots at once,
// hydrates the folder in the background and keeps the session cache current.
// Only the latest navigation may write; older runs are discarded by generation.
type BrowseService struct {
	source     FolderSource
	store      *session.Store
	eventBus   *events.EventBus
	prefetcher *thumbs.Prefetcher
	logger     *logging.Logger
	config     BrowseConfig
	gen        hydrate.Generation

	mu      sync.Mutex
	current string
	cancel  context.CancelFunc
	results map[string]runResult
	wg      sync.WaitGroup
}

// runResult is the outcome of the run with the given request ID.
type runResult struct {
	id     uint64
	result hydrate.Result
}

// NewBrowseService creates a new BrowseService. eventBus and prefetcher may be nil.
func NewBrowseService(source FolderSource, store *session.Store, eventBus *events.EventBus, prefetcher *thumbs.Prefetcher, config BrowseConfig) *BrowseService {
	if config.PageSize <= 0 {
		config.PageSize = constants.DefaultPageSize
	}
	if store == nil {
		store = session.NewStore(eventBus)
	}
	return &BrowseService{
		source:     source,
		store:      store,
		eventBus:   eventBus,
		prefetcher: prefetcher,
		logger:     logging.NewLogger("browse-service", eventBus),
		config:     config,
		results:    make(map[string]runResult),
	}
}

// SetLogger replaces the service logger.
func (bs *BrowseService) SetLogger(logger *logging.Logger) {
	if logger != nil {
		bs.logger = logger
	}
}

// Store returns the session store backing the service.
func (bs *BrowseService) Store() *session.Store {
	return bs.store
}

// Current returns the folder of the latest navigation.
func (bs *BrowseService) Current() string {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.current
}

// Navigate switches to folderPath. Unrelated scopes drop the target's cached
// entry first; whatever remains cached is published immediately and returned.
// Hydration then runs in the background until it completes, fails, or is
// superseded by another Navigate or Retry.
func (bs *BrowseService) Navigate(ctx context.Context, folderPath string) (Navigation, error) {
	if bs.source == nil {
		return Navigation{}, ErrNoSource
	}
	key := session.NormalizePath(folderPath)

	bs.mu.Lock()
	prev := bs.current
	bs.current = key
	bs.mu.Unlock()

	if prev != "" {
		bs.store.Transition(prev, key)
	}

	cached := bs.store.State().GetSnapshot(key)
	req := bs.start(ctx, key, cached)

	bs.logger.Info().
		Str("path", key).
		Str("from", prev).
		Uint64("request_id", req.ID).
		Bool("cached", cached != nil).
		Msg("Navigate")

	return Navigation{Request: req, Cached: cached}, nil
}

// Retry re-runs hydration of the current folder without scope invalidation,
// typically after a fetch-failed run. Retrying another folder navigates to it.
func (bs *BrowseService) Retry(ctx context.Context, folderPath string) (hydrate.Request, error) {
	if bs.source == nil {
		return hydrate.Request{}, ErrNoSource
	}
	key := session.NormalizePath(folderPath)
	if key != bs.Current() {
		nav, err := bs.Navigate(ctx, key)
		return nav.Request, err
	}
	bs.logger.Info().Str("path", key).Msg("Retrying hydration")
	return bs.start(ctx, key, bs.store.State().GetSnapshot(key)), nil
}

// start supersedes any running hydration, publishes the cached snapshot if
// there is one, and launches a new hydration for key.
func (bs *BrowseService) start(parent context.Context, key string, cached *models.FolderSnapshot) hydrate.Request {
	ctx, cancel := context.WithCancel(parent)

	bs.mu.Lock()
	if bs.cancel != nil {
		bs.cancel()
	}
	bs.cancel = cancel
	req := bs.gen.Next(key)
	bs.mu.Unlock()

	// The cached snapshot must reach subscribers before any fresh page can.
	if cached != nil && bs.eventBus != nil {
		bs.eventBus.PublishSnapshot(key, req.ID, len(cached.Items), cached.GeneratedAt, cached.IsComplete(), true)
	}

	skipInitial := bs.config.SkipInitialUpdateIfCached && cached != nil && cached.IsComplete()

	bs.wg.Add(1)
	go func() {
		defer bs.wg.Done()
		defer cancel()
		bs.hydrate(ctx, req, skipInitial)
	}()
	return req
}

func (bs *BrowseService) hydrate(ctx context.Context, req hydrate.Request, skipInitial bool) {
	var reporter progress.Reporter = progress.NewNoOpProgress()
	if bs.eventBus != nil {
		reporter = progress.NewBusProgress(bs.eventBus, req.Path, req.ID)
	}

	first, err := bs.source.FetchFolderPage(ctx, req.Path, 1, bs.config.PageSize)
	if err == nil && first == nil {
		err = hydrate.ErrEmptyPage
	}
	if err != nil {
		reason := hydrate.StopFetchFailed
		if ctx.Err() != nil {
			reason = hydrate.StopContextDone
		}
		bs.logger.Warn().Err(err).Str("path", req.Path).Msg("First page fetch failed")
		bs.finish(req, reporter, hydrate.Result{Reason: reason, Err: fmt.Errorf("page 1: %w", err)})
		return
	}
	if !bs.gen.IsCurrent(req) {
		bs.finish(req, reporter, hydrate.Result{Reason: hydrate.StopCancelled})
		return
	}
	if first.Path == "" {
		first.Path = req.Path
	}

	reporter.Start(models.IntValue(first.PageCount, 1), req.Path)

	result := hydrate.Hydrate(ctx, *first, hydrate.Options{
		DefaultPageSize: bs.config.PageSize,
		FetchPage: func(ctx context.Context, page, pageSize int) (*models.FolderPage, error) {
			return bs.source.FetchFolderPage(ctx, req.Path, page, pageSize)
		},
		OnUpdate: func(snap models.FolderSnapshot) {
			bs.onUpdate(req, snap)
		},
		OnProgress:               progress.Hook(reporter),
		ShouldContinue:           bs.gen.ContinueFunc(req),
		ProgressiveUpdates:       hydrate.Bool(bs.config.ProgressiveUpdates),
		SkipInitialUpdateIfPaged: skipInitial,
		Logger:                   bs.logger,
	})

	bs.finish(req, reporter, result)
}

// onUpdate stores a delivered snapshot. Deliveries from a superseded run are
// dropped; the check and the write happen under bs.mu, which start also holds
// while issuing a new request.
func (bs *BrowseService) onUpdate(req hydrate.Request, snap models.FolderSnapshot) {
	bs.mu.Lock()
	if !bs.gen.IsCurrent(req) {
		bs.mu.Unlock()
		return
	}
	bs.store.RecordSnapshot(req.Path, snap)
	bs.mu.Unlock()

	if bs.eventBus != nil {
		bs.eventBus.PublishSnapshot(req.Path, req.ID, len(snap.Items), snap.GeneratedAt, snap.IsComplete(), false)
	}
}

func (bs *BrowseService) finish(req hydrate.Request, reporter progress.Reporter, result hydrate.Result) {
	// A run that finishes after a newer run for the same path keeps its
	// result out of LastResult.
	bs.mu.Lock()
	if prev, ok := bs.results[req.Path]; !ok || prev.id < req.ID {
		bs.results[req.Path] = runResult{id: req.ID, result: result}
	}
	bs.mu.Unlock()

	reporter.Finish(result)

	bs.logger.Debug().
		Str("path", req.Path).
		Uint64("request_id", req.ID).
		Str("reason", string(result.Reason)).
		Int("pages_merged", result.PagesMerged).
		Int("items", len(result.Snapshot.Items)).
		Msg("Hydration finished")
}

// LastResult returns the outcome of the most recent finished run for folderPath.
func (bs *BrowseService) LastResult(folderPath string) (hydrate.Result, bool) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	r, ok := bs.results[session.NormalizePath(folderPath)]
	return r.result, ok
}

// ReportViewport records what the renderer currently shows for folderPath:
// the top visible item becomes the folder's top anchor and the visible items
// are handed to the thumbnail prefetcher. It returns the visible paths.
func (bs *BrowseService) ReportViewport(folderPath string, items []models.Item, l layout.Layout, rows []layout.VirtualRow) []string {
	key := session.NormalizePath(folderPath)

	anchor, ok := layout.TopAnchorPathForVisibleRows(items, l, rows)
	if ok {
		bs.store.RecordTopAnchor(key, anchor)
	}

	visible := layout.VisiblePathList(items, l, rows)
	if bs.prefetcher != nil && len(visible) > 0 {
		bs.prefetcher.Enqueue(visible)
	}
	if bs.eventBus != nil {
		bs.eventBus.Publish(events.NewVisibleChanged(key, visible, anchor))
	}
	return visible
}

// Invalidate drops cached state for folderPath, or for its whole subtree.
// Thumbnails of dropped items are probed again the next time they are visible.
func (bs *BrowseService) Invalidate(folderPath string, subtree bool) bool {
	key := session.NormalizePath(folderPath)

	if bs.prefetcher != nil {
		state := bs.store.State()
		for _, p := range state.Paths() {
			if p != key && !(subtree && session.IsWithin(p, key)) {
				continue
			}
			if snap := state.GetSnapshot(p); snap != nil {
				bs.prefetcher.Forget(snap.ItemPaths())
			}
		}
	}

	changed := bs.store.Invalidate(key, subtree)
	if changed {
		bs.logger.Info().Str("path", key).Bool("subtree", subtree).Msg("Invalidated session cache")
	}
	return changed
}

// RestoreOffset resolves the pending restore in tracker against the current
// snapshot of folderPath and returns the scroll offset to apply.
// The caller marks the decision applied once it has scrolled.
func (bs *BrowseService) RestoreOffset(folderPath string, tracker *layout.RestoreTracker, l layout.Layout, meta map[int]layout.RowMeta) (*layout.RestoreDecision, float64, bool) {
	snap := bs.store.State().GetSnapshot(folderPath)
	if snap == nil {
		return nil, 0, false
	}
	index := layout.PathIndex(snap.Items)
	decision := tracker.Decide(func(p string) bool {
		_, ok := index[p]
		return ok
	})
	if decision == nil {
		return nil, 0, false
	}
	top, ok := layout.RestoreScrollTopForPath(layout.RestoreQuery{
		Path:            decision.Path,
		PathToIndex:     index,
		Layout:          l,
		AdaptiveRowMeta: meta,
	})
	return decision, top, ok
}

// Wait blocks until every hydration run started so far has finished.
func (bs *BrowseService) Wait() {
	bs.wg.Wait()
}

// Close cancels the running hydration and waits for it to stop.
func (bs *BrowseService) Close() {
	bs.mu.Lock()
	if bs.cancel != nil {
		bs.cancel()
	}
	bs.gen.Invalidate()
	bs.mu.Unlock()
	bs.Wait()
}
