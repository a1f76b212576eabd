package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/folio-media/folio/internal/constants"
	"github.com/folio-media/folio/internal/events"
	"github.com/folio-media/folio/internal/filter"
	"github.com/folio-media/folio/internal/hydrate"
	"github.com/folio-media/folio/internal/layout"
	"github.com/folio-media/folio/internal/models"
	"github.com/folio-media/folio/internal/progress"
	"github.com/folio-media/folio/internal/services"
	"github.com/folio-media/folio/internal/session"
	"github.com/folio-media/folio/internal/thumbs"
	"github.com/folio-media/folio/internal/validation"
)

type browseOptions struct {
	listItems  bool
	jsonOutput bool
	noProgress bool
	thumbs     bool
	retries    int
	columns    int
	rows       int
	tileSize   float64

	include   string
	exclude   string
	search    string
	kinds     string
	minRating int
}

func (o browseOptions) filterConfig() filter.Config {
	return filter.Config{
		Include:   filter.ParsePatternList(o.include),
		Exclude:   filter.ParsePatternList(o.exclude),
		Search:    strings.Fields(o.search),
		Kinds:     filter.ParsePatternList(o.kinds),
		MinRating: o.minRating,
	}
}

// newBrowseCmd creates the 'browse' command.
func newBrowseCmd() *cobra.Command {
	opts := browseOptions{}

	cmd := &cobra.Command{
		Use:   "browse <folder>",
		Short: "Hydrate a catalog folder and print its contents",
		Long: `Fetch every page of a catalog folder and merge them into one snapshot.

Progress is shown page by page. A run that stops on a failed page keeps the
items merged so far; use --retries to try the remaining pages again.

With --columns and --rows the command also reports which items a grid of
that shape would show first, records the top anchor, and probes their
thumbnails when --thumbs is set.

Examples:
  folio browse /photos/2024
  folio browse /photos/2024 --items
  folio browse /photos/2024 --json > snapshot.json
  folio browse /photos --columns 6 --rows 4 --thumbs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(GetContext(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.listItems, "items", false, "List item paths")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the merged snapshot as JSON")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress bar")
	cmd.Flags().BoolVar(&opts.thumbs, "thumbs", false, "Probe thumbnails of the visible items")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "Retry a failed hydration this many times")
	cmd.Flags().IntVar(&opts.columns, "columns", 0, "Grid columns for the viewport report (0 = no report)")
	cmd.Flags().IntVar(&opts.rows, "rows", 3, "Grid rows visible in the viewport report")
	cmd.Flags().Float64Var(&opts.tileSize, "tile-size", constants.DefaultTargetRowHeight, "Grid row height in pixels")
	cmd.Flags().StringVar(&opts.include, "include", "", "Only items whose name matches these patterns (comma-separated, e.g. \"*.jpg,*.png\")")
	cmd.Flags().StringVar(&opts.exclude, "exclude", "", "Skip items whose name matches these patterns (comma-separated)")
	cmd.Flags().StringVar(&opts.search, "search", "", "Only items whose name contains all of these words")
	cmd.Flags().StringVar(&opts.kinds, "kind", "", "Only items of these kinds (comma-separated: image,video,audio,other)")
	cmd.Flags().IntVar(&opts.minRating, "min-rating", 0, "Only items rated at least this")

	return cmd
}

func runBrowse(ctx context.Context, out io.Writer, folder string, opts browseOptions) error {
	logger := GetLogger()

	if err := validation.ValidateFolderPath(folder); err != nil {
		return err
	}

	client, cfg, err := getAPIClient()
	if err != nil {
		return err
	}

	var prefetcher *thumbs.Prefetcher
	if opts.thumbs && opts.columns > 0 {
		prefetcher, err = newPrefetcher(ctx, cfg)
		if err != nil {
			return err
		}
		if prefetcher == nil {
			logger.Warn().Msg("Thumbnail provider is 'none', skipping thumbnail probes")
		} else {
			defer prefetcher.Close()
		}
	}

	bus := events.NewEventBus(0)
	defer bus.Close()
	progressCh := bus.Subscribe(events.EventHydrationProgress)

	svc := services.NewBrowseService(client, session.NewStore(bus), bus, prefetcher, services.BrowseConfig{
		PageSize:                  cfg.PageSize,
		ProgressiveUpdates:        cfg.ProgressiveUpdates,
		SkipInitialUpdateIfCached: cfg.SkipInitialUpdateIfCached,
	})
	svc.SetLogger(logger.Named("browse"))
	defer svc.Close()

	var reporter progress.Reporter = progress.NewCLIProgress()
	if opts.noProgress || opts.jsonOutput {
		reporter = progress.NewNoOpProgress()
	}

	start := time.Now()
	if _, err := svc.Navigate(ctx, folder); err != nil {
		return err
	}
	result := waitForRun(svc, folder, progressCh, reporter)

	for attempt := 1; attempt <= opts.retries && result.Reason == hydrate.StopFetchFailed; attempt++ {
		logger.Info().Int("attempt", attempt).Str("path", folder).Msg("Retrying folder hydration")
		if _, err := svc.Retry(ctx, folder); err != nil {
			return err
		}
		result = waitForRun(svc, folder, progressCh, reporter)
	}

	snap := svc.Store().State().GetSnapshot(folder)
	if snap == nil {
		// Nothing was recorded: first page failed or the snapshot is over the cache ceiling
		snap = &result.Snapshot
	}

	// The filter applies to what is shown, never to what is cached
	items := filter.Apply(snap.Items, opts.filterConfig())

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		shown := *snap
		shown.Items = items
		if err := enc.Encode(shown); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
	} else {
		printBrowseSummary(out, folder, snap, len(items), result, time.Since(start))
		if opts.listItems {
			for _, it := range items {
				fmt.Fprintln(out, it.Path)
			}
		}
	}

	if opts.columns > 0 && len(items) > 0 {
		reportViewport(ctx, out, svc, prefetcher, folder, items, opts)
	}

	if result.Reason != hydrate.StopCompleted {
		if result.Err != nil {
			return fmt.Errorf("hydration of %s stopped (%s): %w", folder, result.Reason, result.Err)
		}
		return fmt.Errorf("hydration of %s stopped (%s)", folder, result.Reason)
	}
	return nil
}

// waitForRun feeds progress events into reporter until the current run finishes
// and returns its result.
func waitForRun(svc *services.BrowseService, folder string, progressCh <-chan events.Event, reporter progress.Reporter) hydrate.Result {
	finished := make(chan struct{})
	go func() {
		svc.Wait()
		close(finished)
	}()

	started := false
	handle := func(ev events.Event) {
		pe, ok := ev.(*events.HydrationProgressEvent)
		if !ok {
			return
		}
		if !started {
			reporter.Start(pe.TotalPages, pe.Path)
			started = true
		}
		var total *int
		if pe.TotalItems > 0 {
			total = models.IntPtr(pe.TotalItems)
		}
		reporter.Update(hydrate.Progress{
			LoadedPages: pe.LoadedPages,
			TotalPages:  pe.TotalPages,
			LoadedItems: pe.LoadedItems,
			TotalItems:  total,
		})
	}

	for {
		select {
		case ev := <-progressCh:
			handle(ev)
		case <-finished:
			for {
				select {
				case ev := <-progressCh:
					handle(ev)
				default:
					result, _ := svc.LastResult(folder)
					if started {
						reporter.Finish(result)
					}
					return result
				}
			}
		}
	}
}

func printBrowseSummary(out io.Writer, folder string, snap *models.FolderSnapshot, shown int, result hydrate.Result, elapsed time.Duration) {
	fmt.Fprintf(out, "Folder:      %s\n", folder)
	if snap.GeneratedAt != "" {
		fmt.Fprintf(out, "Generated:   %s\n", snap.GeneratedAt)
	}
	fmt.Fprintf(out, "Items:       %d", len(snap.Items))
	if snap.TotalItems != nil {
		fmt.Fprintf(out, " of %d", *snap.TotalItems)
	}
	if shown != len(snap.Items) {
		fmt.Fprintf(out, ", %d match the filter", shown)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Subfolders:  %d\n", len(snap.Dirs))
	fmt.Fprintf(out, "Pages:       %d merged after page 1\n", result.PagesMerged)
	fmt.Fprintf(out, "Status:      %s (%s)\n", result.Reason, elapsed.Round(time.Millisecond))
	if !snap.IsComplete() {
		fmt.Fprintln(out, "             snapshot is partial")
	}
}

func reportViewport(ctx context.Context, out io.Writer, svc *services.BrowseService, prefetcher *thumbs.Prefetcher, folder string, items []models.Item, opts browseOptions) {
	grid := layout.GridLayout{Columns: opts.columns, RowH: opts.tileSize}
	n := opts.rows
	if total := layout.RowCount(grid, len(items)); n > total {
		n = total
	}
	rows := make([]layout.VirtualRow, n)
	for i := range rows {
		rows[i] = layout.VirtualRow{Index: i}
	}

	visible := svc.ReportViewport(folder, items, grid, rows)
	anchor, _ := svc.Store().State().GetTopAnchor(folder)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Viewport:    %d x %d grid, %d items visible\n", opts.columns, n, len(visible))
	fmt.Fprintf(out, "Top anchor:  %s\n", anchor)

	if prefetcher == nil {
		return
	}
	flushCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := prefetcher.Flush(flushCtx); err != nil {
		GetLogger().Warn().Err(err).Msg("Thumbnail probes did not finish")
	}
	st := prefetcher.Stats()
	fmt.Fprintf(out, "Thumbnails:  %d warmed, %d missing, %d failed\n", st.Warmed, st.Missing, st.Failed)
}
