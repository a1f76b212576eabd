package hydrate

import (
	"context"

	"github.com/folio-media/folio/internal/logging"
	"github.com/folio-media/folio/internal/models"
)

// PageFetcher retrieves one page of the folder being hydrated.
// Implementations should honor ctx; an aborted fetch is treated like any other failure.
type PageFetcher func(ctx context.Context, page, pageSize int) (*models.FolderPage, error)

// Progress describes how far a hydration run has come.
// TotalItems is nil when the server never reported a total.
type Progress struct {
	LoadedPages int // page number just merged
	TotalPages  int
	LoadedItems int
	TotalItems  *int
}

// Options configures a single Hydrate call.
type Options struct {
	// DefaultPageSize is used when the first page does not carry a page size.
	DefaultPageSize int

	FetchPage  PageFetcher
	OnUpdate   func(models.FolderSnapshot)
	OnProgress func(Progress)

	// ShouldContinue is polled after every completed fetch. Returning false
	// stops the run without delivering the fetched page. Nil means always continue.
	ShouldContinue func() bool

	// ProgressiveUpdates delivers a snapshot after every merged page when true,
	// or a single final snapshot when false. Nil means true.
	ProgressiveUpdates *bool

	// SkipInitialUpdateIfPaged suppresses the first-page update when more
	// pages follow, for callers already showing a cached snapshot.
	SkipInitialUpdateIfPaged bool

	Logger *logging.Logger
}

// StopReason records why a hydration run ended.
type StopReason string

const (
	StopCompleted   StopReason = "completed"
	StopCancelled   StopReason = "cancelled"
	StopFetchFailed StopReason = "fetch-failed"
	StopContextDone StopReason = "context-done"
)

// Result summarizes a hydration run. Snapshot is the last merged state,
// whether or not it was delivered.
type Result struct {
	Snapshot    models.FolderSnapshot
	PagesMerged int
	Reason      StopReason
	Err         error // fetch error for diagnostics when Reason is StopFetchFailed
}

// Partial reports whether the run ended before every planned page was merged.
func (r Result) Partial() bool {
	return r.Reason != StopCompleted
}

// Bool returns a pointer to v, for Options.ProgressiveUpdates.
func Bool(v bool) *bool {
	return &v
}

// Hydrate merges the remaining pages of a folder into one snapshot, starting
// from the already fetched first page.
//
// Pages are fetched strictly in ascending order, one at a time. A fetch
// failure ends the run quietly with the last merged snapshot kept.
// OnUpdate is called at least once unless the run is cancelled before the
// first opportunity to deliver.
func Hydrate(ctx context.Context, first models.FolderPage, opts Options) Result {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	progressive := opts.ProgressiveUpdates == nil || *opts.ProgressiveUpdates

	plan := PlanRemainingPages(first, opts.DefaultPageSize)
	merged := NormalizePage(first)
	result := Result{Snapshot: merged, Reason: StopCompleted}

	if plan == nil {
		deliver(opts, merged)
		return result
	}

	if !opts.SkipInitialUpdateIfPaged {
		deliver(opts, merged)
	}

	logger.Debug().
		Str("path", first.Path).
		Int("start_page", plan.StartPage).
		Int("end_page", plan.EndPage).
		Int("page_size", plan.PageSize).
		Msg("Hydrating remaining pages")

	for page := plan.StartPage; page <= plan.EndPage; page++ {
		if err := ctx.Err(); err != nil {
			result.Reason = StopContextDone
			break
		}
		if opts.FetchPage == nil {
			result.Reason = StopFetchFailed
			result.Err = ErrNoFetcher
			break
		}

		next, err := opts.FetchPage(ctx, page, plan.PageSize)
		if err == nil && next == nil {
			err = ErrEmptyPage
		}
		if err != nil && ctx.Err() != nil {
			result.Reason = StopContextDone
			result.Err = err
			break
		}
		if err != nil {
			logger.Warn().
				Err(err).
				Str("path", first.Path).
				Int("page", page).
				Int("merged_pages", result.PagesMerged).
				Msg("Page fetch failed, keeping partial snapshot")
			result.Reason = StopFetchFailed
			result.Err = err
			break
		}

		if ctx.Err() != nil {
			result.Reason = StopContextDone
			break
		}
		if opts.ShouldContinue != nil && !opts.ShouldContinue() {
			result.Reason = StopCancelled
			break
		}

		merged = MergePages(merged, *next)
		result.Snapshot = merged
		result.PagesMerged++

		if opts.OnProgress != nil {
			total := merged.TotalItems
			if total == nil {
				total = first.TotalItems
			}
			opts.OnProgress(Progress{
				LoadedPages: page,
				TotalPages:  plan.EndPage,
				LoadedItems: len(merged.Items),
				TotalItems:  total,
			})
		}

		logger.Debug().
			Str("path", merged.Path).
			Int("page", page).
			Int("items", len(merged.Items)).
			Msg("Merged page")

		if progressive {
			deliver(opts, merged)
		}
	}

	// A cancelled run delivers nothing more, not even the batched final update.
	cancelled := result.Reason == StopCancelled || result.Reason == StopContextDone
	if !progressive && result.PagesMerged > 0 && !cancelled {
		deliver(opts, merged)
	}

	return result
}

func deliver(opts Options, snap models.FolderSnapshot) {
	if opts.OnUpdate != nil {
		opts.OnUpdate(snap)
	}
}
