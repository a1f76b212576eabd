package hydrate

import (
	"sync/atomic"
)

// Request identifies one hydration run. It is a plain value so it can be
// captured by the goroutine running the hydration and compared later.
type Request struct {
	Path string
	ID   uint64
}

// Generation hands out Requests and remembers which one is current.
// Issuing a new Request makes every earlier one stale. Safe for concurrent use.
type Generation struct {
	current atomic.Uint64
}

// Next starts a new request for path, superseding all earlier requests.
func (g *Generation) Next(path string) Request {
	return Request{Path: path, ID: g.current.Add(1)}
}

// Current returns the ID of the latest request, or 0 before the first.
func (g *Generation) Current() uint64 {
	return g.current.Load()
}

// IsCurrent reports whether req is still the latest request.
func (g *Generation) IsCurrent(req Request) bool {
	return req.ID != 0 && g.current.Load() == req.ID
}

// Invalidate makes every outstanding request stale without starting a new one.
func (g *Generation) Invalidate() {
	g.current.Add(1)
}

// ContinueFunc returns a ShouldContinue predicate bound to req.
func (g *Generation) ContinueFunc(req Request) func() bool {
	return func() bool {
		return g.IsCurrent(req)
	}
}
