package thumbs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/folio-media/folio/internal/constants"
	"github.com/folio-media/folio/internal/http"
	"github.com/folio-media/folio/internal/logging"
)

// Result is reported for every probed item.
type Result struct {
	ItemPath string
	Info     Info
	Err      error
}

// Stats is a snapshot of prefetcher counters.
type Stats struct {
	Warmed  int64
	Missing int64
	Failed  int64
	Dropped int64
}

// Options configures a Prefetcher.
type Options struct {
	Prefix      string
	Concurrency int
	QueueSize   int
	Retry       http.Policy
	OnResult    func(Result)
	Logger      *logging.Logger
}

// Prefetcher probes thumbnails for item paths with a fixed worker pool.
// Enqueue never blocks: when the queue is full the path is dropped and will
// be offered again the next time it becomes visible.
type Prefetcher struct {
	source Source
	opts   Options
	logger *logging.Logger

	queue  chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	seen map[string]struct{} // queued, in flight or done

	pending atomic.Int64
	warmed  atomic.Int64
	missing atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64

	closeOnce sync.Once
}

// NewPrefetcher starts opts.Concurrency workers against source.
// Call Close to stop them.
func NewPrefetcher(source Source, opts Options) *Prefetcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = constants.DefaultThumbnailConcurrency
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = constants.ThumbnailQueueSize
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = http.DefaultPolicy()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Prefetcher{
		source: source,
		opts:   opts,
		logger: logger,
		queue:  make(chan string, opts.QueueSize),
		ctx:    ctx,
		cancel: cancel,
		seen:   make(map[string]struct{}),
	}

	for i := 0; i < opts.Concurrency; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Enqueue offers item paths for probing and returns how many were accepted.
// Paths already queued or probed are skipped.
func (p *Prefetcher) Enqueue(paths []string) int {
	if p.ctx.Err() != nil {
		return 0
	}

	accepted := 0
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, itemPath := range paths {
		if _, ok := p.seen[itemPath]; ok {
			continue
		}
		p.pending.Add(1)
		select {
		case p.queue <- itemPath:
			p.seen[itemPath] = struct{}{}
			accepted++
		default:
			p.pending.Add(-1)
			p.dropped.Add(1)
		}
	}
	return accepted
}

// Forget clears the probe record for paths so they are probed again.
func (p *Prefetcher) Forget(paths []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, itemPath := range paths {
		delete(p.seen, itemPath)
	}
}

func (p *Prefetcher) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case itemPath := <-p.queue:
			p.probe(itemPath)
			p.pending.Add(-1)
		}
	}
}

func (p *Prefetcher) probe(itemPath string) {
	key := ThumbKey(p.opts.Prefix, itemPath)

	var info Info
	err := http.Do(p.ctx, p.opts.Retry, func() error {
		var statErr error
		info, statErr = p.source.Stat(p.ctx, key)
		if errors.Is(statErr, ErrThumbnailMissing) {
			return nil
		}
		return statErr
	})
	if err == nil && info.Key == "" {
		err = ErrThumbnailMissing
	}

	switch {
	case err == nil:
		p.warmed.Add(1)
	case errors.Is(err, ErrThumbnailMissing):
		p.missing.Add(1)
		p.logger.Debug().Str("path", itemPath).Str("key", key).Msg("No thumbnail")
	case p.ctx.Err() != nil:
		return
	default:
		p.failed.Add(1)
		// Failed probes may be retried on the next viewport report
		p.mu.Lock()
		delete(p.seen, itemPath)
		p.mu.Unlock()
		p.logger.Warn().Err(err).Str("source", p.source.Name()).Str("key", key).Msg("Thumbnail probe failed")
	}

	if p.opts.OnResult != nil {
		p.opts.OnResult(Result{ItemPath: itemPath, Info: info, Err: err})
	}
}

// Flush waits until every accepted path has been probed or ctx is done.
func (p *Prefetcher) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for p.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// Stats returns the current counters.
func (p *Prefetcher) Stats() Stats {
	return Stats{
		Warmed:  p.warmed.Load(),
		Missing: p.missing.Load(),
		Failed:  p.failed.Load(),
		Dropped: p.dropped.Load(),
	}
}

// Close stops the workers. Queued paths that were not probed are abandoned.
func (p *Prefetcher) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}
