// Package session remembers, per folder path, the last hydrated snapshot and
// the item the user was scrolled to.
//
// State is persistent: every mutator returns a new *State, or the receiver
// itself when nothing changed, so callers detect changes with ==.
package session

import (
	"sort"
	"strings"

	"github.com/folio-media/folio/internal/constants"
	"github.com/folio-media/folio/internal/models"
)

// MaxCachedSnapshotItems is the largest snapshot kept in full.
// Larger folders keep only their metadata and top anchor.
const MaxCachedSnapshotItems = constants.MaxCachedSnapshotItems

// Entry is what the cache remembers about one folder.
type Entry struct {
	Path                string
	HydratedSnapshot    *models.FolderSnapshot // nil when never hydrated or too large to keep
	HydratedGeneratedAt string
	HydratedItemCount   int
	HydratedAtMs        int64
	TopAnchorPath       string
}

// Hydrated reports whether a snapshot was ever recorded for this entry.
func (e Entry) Hydrated() bool {
	return e.HydratedAtMs != 0
}

// Overflowed reports whether a snapshot was recorded but dropped for size.
// Callers must treat this as "nothing cached" and fetch from scratch.
func (e Entry) Overflowed() bool {
	return e.Hydrated() && e.HydratedSnapshot == nil
}

// State is an immutable map of normalized folder path to Entry.
// The zero value and a nil *State are both valid empty states.
type State struct {
	entries map[string]Entry
}

// NewState returns an empty state.
func NewState() *State {
	return &State{}
}

// Len returns the number of cached folders.
func (s *State) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Paths returns all cached folder paths in sorted order.
func (s *State) Paths() []string {
	if s == nil {
		return nil
	}
	paths := make([]string, 0, len(s.entries))
	for p := range s.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// GetEntry returns the entry for path.
func (s *State) GetEntry(path string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	e, ok := s.entries[NormalizePath(path)]
	return e, ok
}

// GetSnapshot returns the cached snapshot for path, or nil.
func (s *State) GetSnapshot(path string) *models.FolderSnapshot {
	e, ok := s.GetEntry(path)
	if !ok {
		return nil
	}
	return e.HydratedSnapshot
}

// GetTopAnchor returns the recorded top anchor for path.
func (s *State) GetTopAnchor(path string) (string, bool) {
	e, ok := s.GetEntry(path)
	if !ok || e.TopAnchorPath == "" {
		return "", false
	}
	return e.TopAnchorPath, true
}

// UpsertSnapshot records a hydrated snapshot for path.
// Snapshots larger than MaxCachedSnapshotItems are recorded without their items.
func (s *State) UpsertSnapshot(path string, snap models.FolderSnapshot, nowMs int64) *State {
	key := NormalizePath(path)
	prev, _ := s.GetEntry(key)

	next := prev
	next.Path = key
	next.HydratedGeneratedAt = snap.GeneratedAt
	next.HydratedItemCount = models.IntValue(snap.TotalItems, len(snap.Items))
	next.HydratedAtMs = nowMs
	next.HydratedSnapshot = nil
	if len(snap.Items) <= MaxCachedSnapshotItems {
		next.HydratedSnapshot = &snap
	}

	if prev.Path != "" &&
		prev.HydratedGeneratedAt == next.HydratedGeneratedAt &&
		prev.HydratedItemCount == next.HydratedItemCount &&
		prev.HydratedAtMs == next.HydratedAtMs &&
		sameSnapshot(prev.HydratedSnapshot, next.HydratedSnapshot) {
		return s
	}
	return s.with(key, next)
}

// UpsertTopAnchor records the first visible item path for the folder.
func (s *State) UpsertTopAnchor(path, topAnchorPath string) *State {
	key := NormalizePath(path)
	prev, ok := s.GetEntry(key)
	if prev.TopAnchorPath == topAnchorPath && (ok || topAnchorPath == "") {
		return s
	}
	next := prev
	next.Path = key
	next.TopAnchorPath = topAnchorPath
	return s.with(key, next)
}

// Invalidate removes exactly the entry for path.
func (s *State) Invalidate(path string) *State {
	key := NormalizePath(path)
	if _, ok := s.GetEntry(key); !ok {
		return s
	}
	return s.without(func(p string) bool { return p == key })
}

// InvalidateSubtree removes the entry for root and every entry below it.
// Invalidating "/" clears the whole state.
func (s *State) InvalidateSubtree(root string) *State {
	key := NormalizePath(root)
	return s.without(func(p string) bool { return IsWithin(p, key) })
}

// InvalidateForScopeTransition drops the target folder's own entry when the
// navigation from prev to next is a jump to an unrelated scope.
// Ancestor and descendant moves keep the state unchanged.
func (s *State) InvalidateForScopeTransition(prev, next string) *State {
	if IsScopeTransitionCompatible(prev, next) {
		return s
	}
	return s.Invalidate(next)
}

func (s *State) with(key string, e Entry) *State {
	entries := make(map[string]Entry, s.Len()+1)
	if s != nil {
		for k, v := range s.entries {
			entries[k] = v
		}
	}
	entries[key] = e
	return &State{entries: entries}
}

// without copies the state minus every key drop matches. It returns the
// receiver when nothing matches.
func (s *State) without(drop func(string) bool) *State {
	if s.Len() == 0 {
		return s
	}
	matched := false
	for k := range s.entries {
		if drop(k) {
			matched = true
			break
		}
	}
	if !matched {
		return s
	}
	entries := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		if !drop(k) {
			entries[k] = v
		}
	}
	return &State{entries: entries}
}

// sameSnapshot compares snapshots by identity-bearing fields and item paths.
// Item payloads are not compared.
func sameSnapshot(a, b *models.FolderSnapshot) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Path != b.Path || a.GeneratedAt != b.GeneratedAt || len(a.Items) != len(b.Items) {
		return false
	}
	if models.IntValue(a.Page, 0) != models.IntValue(b.Page, 0) ||
		models.IntValue(a.PageCount, 0) != models.IntValue(b.PageCount, 0) {
		return false
	}
	for i := range a.Items {
		if a.Items[i].Path != b.Items[i].Path {
			return false
		}
	}
	return true
}

// NormalizePath canonicalizes a folder path used as a cache key.
// Empty input and "/" map to "/"; a leading slash is added and a trailing
// slash removed.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}

// IsWithin reports whether path equals root or lies below it.
// Both arguments must already be normalized.
func IsWithin(path, root string) bool {
	if root == "/" {
		return true
	}
	return path == root || strings.HasPrefix(path, root+"/")
}

// IsScopeTransitionCompatible reports whether moving from prev to next stays
// within one scope: the same folder, or an ancestor/descendant relationship
// on whole path segments. Siblings and unrelated folders are incompatible.
func IsScopeTransitionCompatible(prev, next string) bool {
	a, b := NormalizePath(prev), NormalizePath(next)
	return IsWithin(a, b) || IsWithin(b, a)
}
