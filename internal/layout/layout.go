// Package layout maps between item positions and scroll offsets for the two
// virtualized layouts a folder view can use: a fixed grid and adaptive
// (justified) rows of varying height.
package layout

import (
	"github.com/folio-media/folio/internal/models"
)

// Kind names a layout variant.
type Kind string

const (
	KindGrid     Kind = "grid"
	KindAdaptive Kind = "adaptive"
)

// Layout is either GridLayout or AdaptiveLayout. The interface is sealed;
// every function in this package switches on both variants.
type Layout interface {
	Kind() Kind
	sealed()
}

// GridLayout places items in fixed-size cells, Columns per row, each row RowH pixels tall.
type GridLayout struct {
	Columns int
	RowH    float64
}

func (GridLayout) Kind() Kind { return KindGrid }
func (GridLayout) sealed()    {}

// columns returns the column count, never less than one.
func (g GridLayout) columns() int {
	if g.Columns < 1 {
		return 1
	}
	return g.Columns
}

// AdaptiveLayout is a precomputed list of rows. Each row covers a contiguous,
// ascending range of original item indexes.
type AdaptiveLayout struct {
	Rows []AdaptiveRow
}

func (AdaptiveLayout) Kind() Kind { return KindAdaptive }
func (AdaptiveLayout) sealed()    {}

// AdaptiveRow is one row of an adaptive layout.
type AdaptiveRow struct {
	Items []RowItem
}

// RowItem is an item placed in an adaptive row, with its index in the flat item list.
type RowItem struct {
	Item          models.Item
	OriginalIndex int
	Width         float64 // rendered width in pixels, 0 when unknown
}

// firstIndex and lastIndex bound the row's original index range.
func (r AdaptiveRow) firstIndex() int { return r.Items[0].OriginalIndex }
func (r AdaptiveRow) lastIndex() int  { return r.Items[len(r.Items)-1].OriginalIndex }

// VirtualRow is a row the renderer currently has mounted.
type VirtualRow struct {
	Index int
}

// RowMeta is the measured vertical position of an adaptive row.
type RowMeta struct {
	Start  float64
	Height float64
}

// RowCount returns how many rows the layout needs for itemCount items.
func RowCount(l Layout, itemCount int) int {
	switch v := l.(type) {
	case GridLayout:
		cols := v.columns()
		return (itemCount + cols - 1) / cols
	case AdaptiveLayout:
		return len(v.Rows)
	default:
		return 0
	}
}

// TotalHeight returns the scrollable height of the layout.
// Adaptive layouts use the measured metadata of their last row.
func TotalHeight(l Layout, itemCount int, meta map[int]RowMeta) float64 {
	switch v := l.(type) {
	case GridLayout:
		return float64(RowCount(v, itemCount)) * v.RowH
	case AdaptiveLayout:
		if len(v.Rows) == 0 {
			return 0
		}
		last, ok := meta[len(v.Rows)-1]
		if !ok {
			return 0
		}
		return last.Start + last.Height
	default:
		return 0
	}
}

// PathIndex builds the path → position lookup used by RestoreScrollTopForPath.
func PathIndex(items []models.Item) map[string]int {
	idx := make(map[string]int, len(items))
	for i, it := range items {
		if _, dup := idx[it.Path]; !dup {
			idx[it.Path] = i
		}
	}
	return idx
}

// NewGridLayout fits square tiles of tileSize into containerWidth.
func NewGridLayout(containerWidth, tileSize, gap float64) GridLayout {
	cols := 1
	if tileSize > 0 && containerWidth > tileSize {
		cols = int((containerWidth + gap) / (tileSize + gap))
		if cols < 1 {
			cols = 1
		}
	}
	return GridLayout{Columns: cols, RowH: tileSize + gap}
}
