package layout

import (
	"math"

	"github.com/folio-media/folio/internal/models"
)

// FindAdaptiveRowIndex returns the row whose index range contains itemIndex,
// or 0 when no row does.
func FindAdaptiveRowIndex(rows []AdaptiveRow, itemIndex int) int {
	lo, hi := 0, len(rows)-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		row := rows[mid]
		if len(row.Items) == 0 {
			// Empty rows carry no range; they only appear at the tail.
			hi = mid - 1
			continue
		}
		switch {
		case itemIndex < row.firstIndex():
			hi = mid - 1
		case itemIndex > row.lastIndex():
			lo = mid + 1
		default:
			return mid
		}
	}
	return 0
}

// CollectVisiblePaths returns the set of item paths in the mounted rows.
func CollectVisiblePaths(items []models.Item, l Layout, rows []VirtualRow) map[string]struct{} {
	visible := make(map[string]struct{})
	for _, p := range VisiblePathList(items, l, rows) {
		visible[p] = struct{}{}
	}
	return visible
}

// VisiblePathList is CollectVisiblePaths in row order, without duplicates.
func VisiblePathList(items []models.Item, l Layout, rows []VirtualRow) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	switch v := l.(type) {
	case GridLayout:
		cols := v.columns()
		for _, r := range rows {
			if r.Index < 0 {
				continue
			}
			start := r.Index * cols
			if start >= len(items) {
				continue
			}
			end := start + cols
			if end > len(items) {
				end = len(items)
			}
			for _, it := range items[start:end] {
				add(it.Path)
			}
		}
	case AdaptiveLayout:
		for _, r := range rows {
			if r.Index < 0 || r.Index >= len(v.Rows) {
				continue
			}
			for _, ri := range v.Rows[r.Index].Items {
				add(ri.Item.Path)
			}
		}
	}
	return out
}

// TopAnchorPathForVisibleRows returns the path of the first item in the
// first mounted row.
func TopAnchorPathForVisibleRows(items []models.Item, l Layout, rows []VirtualRow) (string, bool) {
	if len(rows) == 0 {
		return "", false
	}
	first := rows[0].Index
	if first < 0 {
		return "", false
	}

	switch v := l.(type) {
	case GridLayout:
		idx := first * v.columns()
		if idx >= len(items) {
			return "", false
		}
		return items[idx].Path, true
	case AdaptiveLayout:
		if first >= len(v.Rows) || len(v.Rows[first].Items) == 0 {
			return "", false
		}
		return v.Rows[first].Items[0].Item.Path, true
	default:
		return "", false
	}
}

// RestoreSource says which request a RestoreDecision satisfies.
type RestoreSource string

const (
	RestoreSelection RestoreSource = "selection"
	RestoreTopAnchor RestoreSource = "top-anchor"
)

// RestoreDecision is a scroll target chosen by ResolveRestoreDecision.
type RestoreDecision struct {
	Source RestoreSource
	Path   string
	Token  int64
}

// RestoreInput holds both pending restore requests.
// Each token grows every time a new request of that kind is issued.
type RestoreInput struct {
	SelectionToken        int64
	AppliedSelectionToken int64
	SelectedPath          string

	TopAnchorToken        int64
	AppliedTopAnchorToken int64
	TopAnchorPath         string

	// HasPath reports whether a path is in the current, possibly filtered, item list.
	HasPath func(string) bool
}

// ResolveRestoreDecision picks which pending restore to apply this cycle.
// A selection restore wins over a top-anchor restore. A request qualifies
// when its token is positive, newer than the applied token, and its path
// still exists. It returns nil when neither qualifies; the caller must then
// neither scroll nor mark anything applied.
func ResolveRestoreDecision(in RestoreInput) *RestoreDecision {
	if in.HasPath == nil {
		return nil
	}
	if qualifies(in.SelectionToken, in.AppliedSelectionToken, in.SelectedPath, in.HasPath) {
		return &RestoreDecision{Source: RestoreSelection, Path: in.SelectedPath, Token: in.SelectionToken}
	}
	if qualifies(in.TopAnchorToken, in.AppliedTopAnchorToken, in.TopAnchorPath, in.HasPath) {
		return &RestoreDecision{Source: RestoreTopAnchor, Path: in.TopAnchorPath, Token: in.TopAnchorToken}
	}
	return nil
}

func qualifies(token, applied int64, path string, hasPath func(string) bool) bool {
	return token > 0 && token > applied && path != "" && hasPath(path)
}

// RestoreQuery asks for the scroll offset that reveals Path.
type RestoreQuery struct {
	Path            string
	PathToIndex     map[string]int
	Layout          Layout
	AdaptiveRowMeta map[int]RowMeta
}

// RestoreScrollTopForPath returns the scroll-top that brings q.Path into view.
// It reports false when the path is not in the item list. Adaptive rows that
// have not been measured yet resolve to 0.
func RestoreScrollTopForPath(q RestoreQuery) (float64, bool) {
	idx, ok := q.PathToIndex[q.Path]
	if !ok {
		return 0, false
	}

	switch v := q.Layout.(type) {
	case GridLayout:
		row := math.Floor(float64(idx) / float64(v.columns()))
		return row * v.RowH, true
	case AdaptiveLayout:
		row := FindAdaptiveRowIndex(v.Rows, idx)
		meta, ok := q.AdaptiveRowMeta[row]
		if !ok {
			return 0, true
		}
		return meta.Start, true
	default:
		return 0, false
	}
}
