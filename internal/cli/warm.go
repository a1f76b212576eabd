package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/folio-media/folio/internal/api"
	"github.com/folio-media/folio/internal/hydrate"
	"github.com/folio-media/folio/internal/logging"
	"github.com/folio-media/folio/internal/progress"
	"github.com/folio-media/folio/internal/session"
	"github.com/folio-media/folio/internal/thumbs"
	"github.com/folio-media/folio/internal/validation"
)

// newWarmCmd creates the 'warm' command.
func newWarmCmd() *cobra.Command {
	var concurrency int
	var withThumbs bool

	cmd := &cobra.Command{
		Use:   "warm <folder>...",
		Short: "Hydrate several folders in parallel",
		Long: `Fetch every page of each folder given and report how each run ended.

Use this to warm server-side listing caches before a session, or to check
that large folders can be paged through end to end. With --thumbs every
item's thumbnail is probed once its folder is complete.

Examples:
  folio warm /photos/2023 /photos/2024
  folio warm /videos --thumbs`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, folder := range args {
				if err := validation.ValidateFolderPath(folder); err != nil {
					return err
				}
			}

			client, cfg, err := getAPIClient()
			if err != nil {
				return err
			}

			ctx := GetContext()
			var prefetcher *thumbs.Prefetcher
			if withThumbs {
				prefetcher, err = newPrefetcher(ctx, cfg)
				if err != nil {
					return err
				}
				if prefetcher != nil {
					defer prefetcher.Close()
				}
			}

			ui := progress.NewWarmUI(len(args))
			logger := GetLogger().Named("warm")
			if ui.IsTerminal() {
				logger.SetOutput(ui.Writer())
			}
			w := &warmer{
				logger:      logger,
				client:      client,
				store:       session.NewStore(nil),
				prefetcher:  prefetcher,
				pageSize:    cfg.PageSize,
				concurrency: concurrency,
			}
			results := w.run(ctx, ui, args)
			ui.Wait()

			return w.report(ctx, cmd.OutOrStdout(), args, results)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "Folders hydrated at the same time")
	cmd.Flags().BoolVar(&withThumbs, "thumbs", false, "Probe thumbnails of every hydrated item")

	return cmd
}

// warmer hydrates folders independently. Each folder gets its own run;
// one folder failing never stops the others.
type warmer struct {
	logger      *logging.Logger
	client      *api.Client
	store       *session.Store
	prefetcher  *thumbs.Prefetcher
	pageSize    int
	concurrency int
}

// run hydrates every folder and returns one result per folder, in order.
func (w *warmer) run(ctx context.Context, ui *progress.WarmUI, folders []string) []hydrate.Result {
	g := new(errgroup.Group)
	if w.concurrency > 0 {
		g.SetLimit(w.concurrency)
	}

	results := make([]hydrate.Result, len(folders))
	for i, folder := range folders {
		g.Go(func() error {
			bar := ui.AddFolderBar(i+1, folder)
			results[i] = w.hydrateFolder(ctx, bar, folder)
			bar.Complete(results[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (w *warmer) hydrateFolder(ctx context.Context, bar *progress.FolderBar, folder string) hydrate.Result {
	first, err := w.client.FetchFirstPage(ctx, folder, w.pageSize)
	if err != nil {
		reason := hydrate.StopFetchFailed
		if ctx.Err() != nil {
			reason = hydrate.StopContextDone
		}
		return hydrate.Result{Reason: reason, Err: fmt.Errorf("page 1: %w", err)}
	}

	pageCount := 1
	if first.PageCount != nil {
		pageCount = *first.PageCount
	}
	bar.Start(pageCount, len(first.Items))

	result := hydrate.Hydrate(ctx, *first, hydrate.Options{
		DefaultPageSize:    w.pageSize,
		FetchPage:          w.client.PageFetcher(folder),
		OnProgress:         bar.Update,
		ProgressiveUpdates: hydrate.Bool(false),
		Logger:             w.logger,
	})

	// Partial snapshots are still recorded; the cache marks them incomplete
	w.store.RecordSnapshot(folder, result.Snapshot)
	if w.prefetcher != nil {
		w.prefetcher.Enqueue(result.Snapshot.ItemPaths())
	}
	return result
}

func (w *warmer) report(ctx context.Context, out io.Writer, folders []string, results []hydrate.Result) error {
	logger := GetLogger().Named("warm")
	state := w.store.State()
	failed, total := 0, 0
	for i, folder := range folders {
		r := results[i]
		total += len(r.Snapshot.Items)
		if r.Reason != hydrate.StopCompleted {
			failed++
			logger.Warn().Str("path", folder).Str("reason", string(r.Reason)).Err(r.Err).Msg("Folder did not complete")
		}
		if entry, ok := state.GetEntry(folder); ok && entry.Overflowed() {
			fmt.Fprintf(out, "  %s: %d items, above the %d item cache ceiling\n", folder, entry.HydratedItemCount, session.MaxCachedSnapshotItems)
		}
	}

	calls, throttled := w.client.Stats()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Folders:     %d of %d complete\n", len(folders)-failed, len(folders))
	fmt.Fprintf(out, "Items:       %d\n", total)
	fmt.Fprintf(out, "API calls:   %d (%d throttled)\n", calls, throttled)

	if w.prefetcher != nil {
		flushCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if err := w.prefetcher.Flush(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("Thumbnail probes did not finish")
		}
		st := w.prefetcher.Stats()
		fmt.Fprintf(out, "Thumbnails:  %d warmed, %d missing, %d failed, %d dropped\n", st.Warmed, st.Missing, st.Failed, st.Dropped)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d folders did not complete", failed, len(folders))
	}
	return nil
}
