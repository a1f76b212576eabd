package layout

import "sync"

// RestorePhase is where a RestoreTracker is in the restore lifecycle.
type RestorePhase string

const (
	PhaseIdle    RestorePhase = "idle"
	PhasePending RestorePhase = "pending"
	PhaseApplied RestorePhase = "applied"
)

// RestoreTracker owns the tokens that drive ResolveRestoreDecision.
//
// The lifecycle is idle → pending (a request was issued) → applied (the caller
// scrolled and called MarkApplied) → idle (the next Decide). Requests whose
// path is missing are not queued: Decide returns nil and the request stays
// unapplied until a newer request of either kind is issued.
type RestoreTracker struct {
	mu sync.Mutex

	selectionToken        int64
	appliedSelectionToken int64
	selectedPath          string

	topAnchorToken        int64
	appliedTopAnchorToken int64
	topAnchorPath         string

	justApplied bool
}

// NewRestoreTracker returns an idle tracker.
func NewRestoreTracker() *RestoreTracker {
	return &RestoreTracker{}
}

// RequestSelection asks to scroll to a selected item, e.g. after leaving a full-screen viewer.
func (t *RestoreTracker) RequestSelection(path string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selectionToken++
	t.selectedPath = path
	t.justApplied = false
	return t.selectionToken
}

// RequestTopAnchor asks to scroll back to a cached top anchor.
func (t *RestoreTracker) RequestTopAnchor(path string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.topAnchorToken++
	t.topAnchorPath = path
	t.justApplied = false
	return t.topAnchorToken
}

// Phase reports the current lifecycle phase.
func (t *RestoreTracker) Phase() RestorePhase {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.justApplied:
		return PhaseApplied
	case t.selectionToken > t.appliedSelectionToken || t.topAnchorToken > t.appliedTopAnchorToken:
		return PhasePending
	default:
		return PhaseIdle
	}
}

// Decide resolves the pending requests against hasPath.
func (t *RestoreTracker) Decide(hasPath func(string) bool) *RestoreDecision {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.justApplied = false
	return ResolveRestoreDecision(RestoreInput{
		SelectionToken:        t.selectionToken,
		AppliedSelectionToken: t.appliedSelectionToken,
		SelectedPath:          t.selectedPath,
		TopAnchorToken:        t.topAnchorToken,
		AppliedTopAnchorToken: t.appliedTopAnchorToken,
		TopAnchorPath:         t.topAnchorPath,
		HasPath:               hasPath,
	})
}

// MarkApplied records that the caller scrolled for d.
// A selection restore also retires any older top-anchor request.
func (t *RestoreTracker) MarkApplied(d RestoreDecision) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch d.Source {
	case RestoreSelection:
		if d.Token > t.appliedSelectionToken {
			t.appliedSelectionToken = d.Token
		}
		t.appliedTopAnchorToken = t.topAnchorToken
	case RestoreTopAnchor:
		if d.Token > t.appliedTopAnchorToken {
			t.appliedTopAnchorToken = d.Token
		}
	}
	t.justApplied = true
}
