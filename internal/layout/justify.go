package layout

import (
	"github.com/folio-media/folio/internal/constants"
	"github.com/folio-media/folio/internal/models"
)

// JustifyOptions controls BuildJustifiedRows.
type JustifyOptions struct {
	ContainerWidth  float64
	TargetRowHeight float64 // defaults to constants.DefaultTargetRowHeight
	MaxRowHeight    float64 // defaults to constants.DefaultMaxRowHeight
	Gap             float64
}

func (o JustifyOptions) withDefaults() JustifyOptions {
	if o.TargetRowHeight <= 0 {
		o.TargetRowHeight = constants.DefaultTargetRowHeight
	}
	if o.MaxRowHeight <= 0 {
		o.MaxRowHeight = constants.DefaultMaxRowHeight
	}
	if o.MaxRowHeight < o.TargetRowHeight {
		o.MaxRowHeight = o.TargetRowHeight
	}
	if o.Gap < 0 {
		o.Gap = 0
	}
	return o
}

// BuildJustifiedRows packs items into rows that fill ContainerWidth while
// keeping each item's aspect ratio. Full rows are scaled to the exact width;
// the last row keeps the target height. The returned metadata holds the
// start offset and height of every row.
func BuildJustifiedRows(items []models.Item, opts JustifyOptions) (AdaptiveLayout, map[int]RowMeta) {
	opts = opts.withDefaults()
	out := AdaptiveLayout{}
	meta := make(map[int]RowMeta)
	if len(items) == 0 || opts.ContainerWidth <= 0 {
		return out, meta
	}

	var (
		row       []RowItem
		aspectSum float64
		offset    float64
	)

	flush := func(height float64) {
		for i := range row {
			row[i].Width = row[i].Item.AspectRatio() * height
		}
		idx := len(out.Rows)
		out.Rows = append(out.Rows, AdaptiveRow{Items: row})
		meta[idx] = RowMeta{Start: offset, Height: height}
		offset += height + opts.Gap
		row = nil
		aspectSum = 0
	}

	// fitHeight scales the current row to the container width. The gaps of a
	// row always leave room for its items, so the result is positive.
	fitHeight := func() float64 {
		gaps := opts.Gap * float64(len(row)-1)
		height := (opts.ContainerWidth - gaps) / aspectSum
		if height > opts.MaxRowHeight {
			height = opts.MaxRowHeight
		}
		return height
	}

	for i, it := range items {
		// Another gap would use up the whole width: close the row first.
		if len(row) > 0 && opts.Gap*float64(len(row)) >= opts.ContainerWidth {
			flush(fitHeight())
		}

		row = append(row, RowItem{Item: it, OriginalIndex: i})
		aspectSum += it.AspectRatio()

		naturalWidth := aspectSum*opts.TargetRowHeight + opts.Gap*float64(len(row)-1)
		if naturalWidth < opts.ContainerWidth {
			continue
		}
		flush(fitHeight())
	}

	if len(row) > 0 {
		flush(opts.TargetRowHeight)
	}
	return out, meta
}
