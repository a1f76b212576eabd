// Package progress reports hydration progress as terminal progress bars
// (CLI) or as events on the event bus (embedding UIs).
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/folio-media/folio/internal/events"
	"github.com/folio-media/folio/internal/hydrate"
	"github.com/folio-media/folio/internal/models"
)

// Reporter is the interface for reporting hydration progress in both CLI and bus modes.
type Reporter interface {
	Start(totalPages int, description string)
	Update(p hydrate.Progress)
	Finish(r hydrate.Result)
	SetDescription(desc string)
}

// Hook adapts a Reporter to hydrate.Options.OnProgress.
func Hook(r Reporter) func(hydrate.Progress) {
	return func(p hydrate.Progress) {
		r.Update(p)
	}
}

// CLIProgress draws a single page-count bar with progressbar.
type CLIProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a CLI reporter writing to stderr.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{out: os.Stderr}
}

// Start initializes the bar with the number of pages the folder has.
func (p *CLIProgress) Start(totalPages int, description string) {
	p.bar = progressbar.NewOptions(totalPages,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the bar to the page just merged.
func (p *CLIProgress) Update(pr hydrate.Progress) {
	if p.bar == nil {
		return
	}
	if pr.TotalPages > 0 && int64(pr.TotalPages) != p.bar.GetMax64() {
		p.bar.ChangeMax(pr.TotalPages)
	}
	_ = p.bar.Set(pr.LoadedPages)
	if pr.TotalItems != nil {
		p.bar.Describe(fmt.Sprintf("%d/%d items", pr.LoadedItems, *pr.TotalItems))
	}
}

// Finish completes the bar, or leaves it where it stopped and prints why.
func (p *CLIProgress) Finish(r hydrate.Result) {
	if p.bar == nil {
		return
	}
	if r.Reason == hydrate.StopCompleted {
		_ = p.bar.Finish()
		return
	}
	_ = p.bar.Exit()
	fmt.Fprintf(p.out, "\nStopped (%s) after %d pages", r.Reason, r.PagesMerged)
	if r.Err != nil {
		fmt.Fprintf(p.out, ": %v", r.Err)
	}
	fmt.Fprintln(p.out)
}

// SetDescription updates the bar description.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// BusProgress publishes hydration progress on the event bus.
type BusProgress struct {
	eventBus  *events.EventBus
	path      string
	requestID uint64

	mu    sync.Mutex
	total int
}

// NewBusProgress creates a reporter for one hydration request.
func NewBusProgress(eventBus *events.EventBus, path string, requestID uint64) *BusProgress {
	return &BusProgress{
		eventBus:  eventBus,
		path:      path,
		requestID: requestID,
	}
}

// Start records the page total.
func (p *BusProgress) Start(totalPages int, description string) {
	p.mu.Lock()
	p.total = totalPages
	p.mu.Unlock()
}

// Update publishes a HydrationProgressEvent.
func (p *BusProgress) Update(pr hydrate.Progress) {
	total := pr.TotalPages
	if total == 0 {
		p.mu.Lock()
		total = p.total
		p.mu.Unlock()
	}
	p.eventBus.Publish(events.NewHydrationProgress(
		p.path, p.requestID,
		pr.LoadedPages, total,
		pr.LoadedItems, models.IntValue(pr.TotalItems, 0),
	))
}

// Finish publishes a HydrationDoneEvent.
func (p *BusProgress) Finish(r hydrate.Result) {
	p.eventBus.Publish(events.NewHydrationDone(
		p.path, p.requestID,
		string(r.Reason), r.PagesMerged, len(r.Snapshot.Items), r.Err,
	))
}

// SetDescription does nothing; bus consumers render their own labels.
func (p *BusProgress) SetDescription(desc string) {}

// NoOpProgress is a reporter that does nothing (for background/silent operations).
type NoOpProgress struct{}

// NewNoOpProgress creates a new no-op progress reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

func (p *NoOpProgress) Start(totalPages int, description string) {}
func (p *NoOpProgress) Update(pr hydrate.Progress)               {}
func (p *NoOpProgress) Finish(r hydrate.Result)                  {}
func (p *NoOpProgress) SetDescription(desc string)               {}

// Compile-time interface verification
var (
	_ Reporter = (*CLIProgress)(nil)
	_ Reporter = (*BusProgress)(nil)
	_ Reporter = (*NoOpProgress)(nil)
)
