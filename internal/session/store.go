package session

import (
	"sync"
	"time"

	"github.com/folio-media/folio/internal/events"
	"github.com/folio-media/folio/internal/models"
)

// Store holds the current State for concurrent callers.
// Writers are serialized; readers get an immutable *State they may keep.
type Store struct {
	mu       sync.RWMutex
	state    *State
	eventBus *events.EventBus
	now      func() int64
}

// NewStore creates an empty store. eventBus may be nil.
func NewStore(eventBus *events.EventBus) *Store {
	return &Store{
		state:    NewState(),
		eventBus: eventBus,
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// SetClock replaces the millisecond clock used for snapshot timestamps.
func (st *Store) SetClock(now func() int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.now = now
}

// State returns the current state.
func (st *Store) State() *State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state
}

// Update applies fn to the current state and stores the result.
// It reports whether the state reference changed.
func (st *Store) Update(reason string, fn func(*State) *State) bool {
	st.mu.Lock()
	prev := st.state
	next := fn(prev)
	if next == nil {
		next = NewState()
	}
	changed := next != prev
	if changed {
		st.state = next
	}
	st.mu.Unlock()

	if changed && st.eventBus != nil {
		st.eventBus.PublishSessionChanged(next.Len(), reason)
	}
	return changed
}

// RecordSnapshot stores snap for path stamped with the store clock.
func (st *Store) RecordSnapshot(path string, snap models.FolderSnapshot) bool {
	st.mu.RLock()
	now := st.now()
	st.mu.RUnlock()
	return st.Update("snapshot", func(s *State) *State {
		return s.UpsertSnapshot(path, snap, now)
	})
}

// RecordTopAnchor stores the top visible item for path.
func (st *Store) RecordTopAnchor(path, anchor string) bool {
	return st.Update("anchor", func(s *State) *State {
		return s.UpsertTopAnchor(path, anchor)
	})
}

// Invalidate drops path, or the whole subtree below it when subtree is true.
func (st *Store) Invalidate(path string, subtree bool) bool {
	return st.Update("invalidate", func(s *State) *State {
		if subtree {
			return s.InvalidateSubtree(path)
		}
		return s.Invalidate(path)
	})
}

// Transition applies scope-transition invalidation for a navigation from prev to next.
func (st *Store) Transition(prev, next string) bool {
	return st.Update("scope", func(s *State) *State {
		return s.InvalidateForScopeTransition(prev, next)
	})
}
