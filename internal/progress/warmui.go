package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/folio-media/folio/internal/hydrate"
)

// WarmUI manages one progress bar per folder while several folders hydrate concurrently.
type WarmUI struct {
	progress     *mpb.Progress
	out          io.Writer
	isTerminal   bool
	totalFolders int
	completed    int32
}

// FolderBar is the bar of a single folder.
type FolderBar struct {
	bar       *mpb.Bar
	ui        *WarmUI
	index     int
	path      string
	items     atomic.Int64
	startTime time.Time
}

// NewWarmUI creates a warm UI on stderr. Without a terminal the bars are
// replaced by one line per folder start and finish.
func NewWarmUI(totalFolders int) *WarmUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))
	if isTerminal {
		enableANSIOnWindows(os.Stderr)
	}
	return newWarmUI(totalFolders, os.Stderr, isTerminal)
}

func newWarmUI(totalFolders int, out io.Writer, isTerminal bool) *WarmUI {
	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(150*time.Millisecond),
			mpb.WithWidth(80),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}
	return &WarmUI{
		progress:     p,
		out:          out,
		isTerminal:   isTerminal,
		totalFolders: totalFolders,
	}
}

// AddFolderBar creates a bar for a folder whose page count is not known yet.
func (u *WarmUI) AddFolderBar(index int, folderPath string) *FolderBar {
	fb := &FolderBar{
		ui:        u,
		index:     index,
		path:      folderPath,
		startTime: time.Now(),
	}
	label := truncatePath(folderPath, 2)

	if u.isTerminal {
		fb.bar = u.progress.New(1,
			mpb.BarStyle().
				Lbound("[").
				Filler("█").
				Tip("█").
				Padding("░").
				Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("[%d/%d] %s", index, u.totalFolders, label), decor.WCSyncSpaceR),
			),
			mpb.AppendDecorators(
				decor.CountersNoUnit("%d / %d pages", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Any(func(s decor.Statistics) string {
					return fmt.Sprintf("%d items", fb.items.Load())
				}, decor.WCSyncSpace),
				decor.Name("  "),
				decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Fprintf(u.out, "Hydrating [%d/%d]: %s\n", index, u.totalFolders, folderPath)
	}
	return fb
}

// Start sets the page total once the first page is in.
func (f *FolderBar) Start(totalPages int, loadedItems int) {
	f.items.Store(int64(loadedItems))
	if f.bar == nil {
		return
	}
	if totalPages < 1 {
		totalPages = 1
	}
	f.bar.SetTotal(int64(totalPages), false)
	f.bar.SetCurrent(1)
}

// Update moves the bar to the page just merged. Usable as hydrate.Options.OnProgress.
func (f *FolderBar) Update(p hydrate.Progress) {
	f.items.Store(int64(p.LoadedItems))
	if f.bar == nil {
		return
	}
	if p.TotalPages > 0 {
		f.bar.SetTotal(int64(p.TotalPages), false)
	}
	f.bar.SetCurrent(int64(p.LoadedPages))
}

// Complete finishes the bar and prints a one-line summary above the bars.
func (f *FolderBar) Complete(r hydrate.Result) {
	elapsed := time.Since(f.startTime).Round(time.Millisecond)
	items := len(r.Snapshot.Items)

	var msg string
	if r.Reason == hydrate.StopCompleted {
		if f.bar != nil {
			f.bar.SetTotal(-1, true)
		}
		msg = fmt.Sprintf("✓ %s (%d items, %d extra pages, %s)\n", f.path, items, r.PagesMerged, elapsed)
	} else {
		if f.bar != nil {
			f.bar.Abort(false)
		}
		msg = fmt.Sprintf("✗ %s: %s after %d extra pages, %d items kept", f.path, r.Reason, r.PagesMerged, items)
		if r.Err != nil {
			msg += fmt.Sprintf(" (%v)", r.Err)
		}
		msg += "\n"
	}

	_, _ = io.WriteString(f.ui.Writer(), msg)
	atomic.AddInt32(&f.ui.completed, 1)
}

// Wait blocks until all progress bars complete.
func (u *WarmUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// Writer returns an io.Writer that safely prints above the progress bars.
func (u *WarmUI) Writer() io.Writer {
	if u.isTerminal && u.progress != nil {
		return u.progress
	}
	return u.out
}

// GetCompleted returns the number of folders that finished.
func (u *WarmUI) GetCompleted() int {
	return int(atomic.LoadInt32(&u.completed))
}

// IsTerminal returns whether output is to a terminal.
func (u *WarmUI) IsTerminal() bool {
	return u.isTerminal
}

// truncatePath keeps the last maxComponents components of a catalog path.
func truncatePath(p string, maxComponents int) string {
	parts := strings.Split(strings.Trim(filepath.ToSlash(p), "/"), "/")
	if len(parts) <= maxComponents {
		return p
	}
	return "…/" + strings.Join(parts[len(parts)-maxComponents:], "/")
}
