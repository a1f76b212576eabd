package layout

import (
	"fmt"
	"math"
	"testing"

	"github.com/folio-media/folio/internal/models"
)

func landscape(n int) []models.Item {
	out := make([]models.Item, n)
	for i := range out {
		out[i] = models.Item{Path: fmt.Sprintf("/l/%d", i), Width: 300, Height: 200}
	}
	return out
}

func TestBuildJustifiedRows_FillsWidth(t *testing.T) {
	items := landscape(7)
	opts := JustifyOptions{ContainerWidth: 1000, TargetRowHeight: 200, MaxRowHeight: 400, Gap: 10}

	l, meta := BuildJustifiedRows(items, opts)

	// Each item is 300px wide at 200px; four items plus gaps overflow 1000px
	if len(l.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(l.Rows))
	}
	if len(l.Rows[0].Items) != 4 || len(l.Rows[1].Items) != 3 {
		t.Errorf("Unexpected row sizes: %d, %d", len(l.Rows[0].Items), len(l.Rows[1].Items))
	}

	// A full row spans exactly the container width
	var width float64
	for _, ri := range l.Rows[0].Items {
		width += ri.Width
	}
	width += 3 * opts.Gap
	if math.Abs(width-1000) > 0.001 {
		t.Errorf("Expected full row width 1000, got %f", width)
	}

	// The last row keeps the target height
	if meta[1].Height != 200 {
		t.Errorf("Expected last row at target height, got %f", meta[1].Height)
	}
	if meta[1].Start != meta[0].Height+opts.Gap {
		t.Errorf("Expected second row to start after first, got %f", meta[1].Start)
	}
}

func TestBuildJustifiedRows_IndexesAreContiguous(t *testing.T) {
	items := landscape(25)
	l, _ := BuildJustifiedRows(items, JustifyOptions{ContainerWidth: 800, Gap: 4})

	next := 0
	for r, row := range l.Rows {
		for _, ri := range row.Items {
			if ri.OriginalIndex != next {
				t.Fatalf("Row %d: expected index %d, got %d", r, next, ri.OriginalIndex)
			}
			next++
		}
	}
	if next != len(items) {
		t.Errorf("Expected %d placed items, got %d", len(items), next)
	}

	// Every item resolves back to the row that holds it
	for r, row := range l.Rows {
		for _, ri := range row.Items {
			if got := FindAdaptiveRowIndex(l.Rows, ri.OriginalIndex); got != r {
				t.Errorf("Item %d: expected row %d, got %d", ri.OriginalIndex, r, got)
			}
		}
	}
}

func TestBuildJustifiedRows_MaxHeightClamp(t *testing.T) {
	// A single very tall portrait item cannot be stretched past MaxRowHeight
	items := []models.Item{{Path: "/tall", Width: 100, Height: 1000}, {Path: "/tall2", Width: 100, Height: 1000}}
	_, meta := BuildJustifiedRows(items, JustifyOptions{ContainerWidth: 30, TargetRowHeight: 200, MaxRowHeight: 250})

	for i, m := range meta {
		if m.Height > 250 {
			t.Errorf("Row %d exceeds max height: %f", i, m.Height)
		}
	}
}

func TestBuildJustifiedRows_Empty(t *testing.T) {
	l, meta := BuildJustifiedRows(nil, JustifyOptions{ContainerWidth: 500})
	if len(l.Rows) != 0 || len(meta) != 0 {
		t.Error("Expected empty layout for no items")
	}
}

func TestBuildJustifiedRows_GapWiderThanContainer(t *testing.T) {
	squares := []models.Item{
		{Path: "/s/0", Width: 100, Height: 100},
		{Path: "/s/1", Width: 100, Height: 100},
		{Path: "/s/2", Width: 100, Height: 100},
	}

	for _, gap := range []float64{400, 999, 1000, 2000} {
		t.Run(fmt.Sprintf("gap %.0f", gap), func(t *testing.T) {
			l, meta := BuildJustifiedRows(squares, JustifyOptions{ContainerWidth: 1000, Gap: gap})

			seen := 0
			prevStart := -1.0
			for r, row := range l.Rows {
				m := meta[r]
				if m.Height <= 0 {
					t.Errorf("row %d height = %f, want positive", r, m.Height)
				}
				if m.Start <= prevStart {
					t.Errorf("row %d starts at %f, not after %f", r, m.Start, prevStart)
				}
				prevStart = m.Start
				if used := gap * float64(len(row.Items)-1); len(row.Items) > 1 && used >= 1000 {
					t.Errorf("row %d has %d items whose gaps take %fpx", r, len(row.Items), used)
				}
				for _, it := range row.Items {
					if it.Width <= 0 {
						t.Errorf("item %s width = %f", it.Item.Path, it.Width)
					}
					seen++
				}
			}
			if seen != len(squares) {
				t.Errorf("layout holds %d items, want %d", seen, len(squares))
			}
		})
	}
}
