package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/folio-media/folio/internal/constants"
	"github.com/folio-media/folio/internal/filter"
	"github.com/folio-media/folio/internal/layout"
	"github.com/folio-media/folio/internal/models"
)

// restoreRequest is one pending scroll request as captured from a viewer.
type restoreRequest struct {
	Token   int64  `json:"token"`
	Applied int64  `json:"applied"`
	Path    string `json:"path"`
}

// layoutSpec describes the layout a viewer rendered.
type layoutSpec struct {
	Kind            string   `json:"kind"` // "grid" or "adaptive"
	Columns         int      `json:"columns,omitempty"`
	RowHeight       float64  `json:"rowHeight,omitempty"`
	ContainerWidth  float64  `json:"containerWidth,omitempty"`
	TargetRowHeight float64  `json:"targetRowHeight,omitempty"`
	MaxRowHeight    float64  `json:"maxRowHeight,omitempty"`
	Gap             *float64 `json:"gap,omitempty"`
}

// restoreInput is the file read by 'folio restore'.
type restoreInput struct {
	Items       []models.Item   `json:"items"`
	Filter      filter.Config   `json:"filter"`
	Layout      layoutSpec      `json:"layout"`
	Selection   *restoreRequest `json:"selection,omitempty"`
	TopAnchor   *restoreRequest `json:"topAnchor,omitempty"`
	VisibleRows []int           `json:"visibleRows,omitempty"`
}

// restoreReport is what 'folio restore' prints.
type restoreReport struct {
	Layout       string   `json:"layout"`
	Items        int      `json:"items"`
	Rows         int      `json:"rows"`
	TotalHeight  float64  `json:"totalHeight"`
	Decision     string   `json:"decision"` // "selection", "top-anchor" or "none"
	DecisionPath string   `json:"decisionPath,omitempty"`
	Token        int64    `json:"token,omitempty"`
	ScrollTop    *float64 `json:"scrollTop,omitempty"`
	Visible      []string `json:"visible"`
	TopAnchor    string   `json:"topAnchor,omitempty"`
}

// newRestoreCmd creates the 'restore' command.
func newRestoreCmd() *cobra.Command {
	var inputPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replay a scroll restore against a captured layout",
		Long: `Resolve which scroll restore a viewer would apply and where it would scroll.

The input file holds the folder items, the layout the viewer used, the
pending selection and top-anchor requests, and optionally the active filter
and the mounted rows. A selection restore wins over a top-anchor restore; a
request whose path is no longer in the filtered item list is ignored.

Example input:
  {
    "items": [{"path": "/p/a.jpg", "width": 4000, "height": 3000}],
    "layout": {"kind": "adaptive", "containerWidth": 1200},
    "selection": {"token": 2, "applied": 1, "path": "/p/a.jpg"},
    "visibleRows": [0, 1]
  }

Examples:
  folio restore --input capture.json
  cat capture.json | folio restore --input - --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readRestoreInput(inputPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			report, err := evaluateRestore(in)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printRestoreReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Capture file (- for stdin)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func readRestoreInput(path string, stdin io.Reader) (restoreInput, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return restoreInput{}, fmt.Errorf("failed to open capture: %w", err)
		}
		defer f.Close()
		r = f
	}

	var in restoreInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return restoreInput{}, fmt.Errorf("failed to parse capture: %w", err)
	}
	return in, nil
}

// buildLayout turns a layoutSpec into a Layout for items.
func buildLayout(spec layoutSpec, items []models.Item) (layout.Layout, map[int]layout.RowMeta, error) {
	switch spec.Kind {
	case "", string(layout.KindGrid):
		if spec.Columns < 1 {
			return nil, nil, fmt.Errorf("grid layout needs columns >= 1")
		}
		rowH := spec.RowHeight
		if rowH <= 0 {
			rowH = constants.DefaultTargetRowHeight
		}
		return layout.GridLayout{Columns: spec.Columns, RowH: rowH}, nil, nil
	case string(layout.KindAdaptive):
		if spec.ContainerWidth <= 0 {
			return nil, nil, fmt.Errorf("adaptive layout needs containerWidth > 0")
		}
		gap := constants.DefaultGap
		if spec.Gap != nil {
			gap = *spec.Gap
		}
		l, meta := layout.BuildJustifiedRows(items, layout.JustifyOptions{
			ContainerWidth:  spec.ContainerWidth,
			TargetRowHeight: spec.TargetRowHeight,
			MaxRowHeight:    spec.MaxRowHeight,
			Gap:             gap,
		})
		return l, meta, nil
	default:
		return nil, nil, fmt.Errorf("unknown layout kind %q", spec.Kind)
	}
}

func evaluateRestore(in restoreInput) (restoreReport, error) {
	items := filter.Apply(in.Items, in.Filter)
	l, meta, err := buildLayout(in.Layout, items)
	if err != nil {
		return restoreReport{}, err
	}

	report := restoreReport{
		Layout:      string(l.Kind()),
		Items:       len(items),
		Rows:        layout.RowCount(l, len(items)),
		TotalHeight: layout.TotalHeight(l, len(items), meta),
		Decision:    "none",
		Visible:     []string{},
	}

	index := layout.PathIndex(items)
	restore := layout.RestoreInput{
		HasPath: func(p string) bool {
			_, ok := index[p]
			return ok
		},
	}
	if in.Selection != nil {
		restore.SelectionToken = in.Selection.Token
		restore.AppliedSelectionToken = in.Selection.Applied
		restore.SelectedPath = in.Selection.Path
	}
	if in.TopAnchor != nil {
		restore.TopAnchorToken = in.TopAnchor.Token
		restore.AppliedTopAnchorToken = in.TopAnchor.Applied
		restore.TopAnchorPath = in.TopAnchor.Path
	}

	if d := layout.ResolveRestoreDecision(restore); d != nil {
		report.Decision = string(d.Source)
		report.DecisionPath = d.Path
		report.Token = d.Token
		if top, ok := layout.RestoreScrollTopForPath(layout.RestoreQuery{
			Path:            d.Path,
			PathToIndex:     index,
			Layout:          l,
			AdaptiveRowMeta: meta,
		}); ok {
			report.ScrollTop = &top
		}
	}

	if len(in.VisibleRows) > 0 {
		rows := make([]layout.VirtualRow, len(in.VisibleRows))
		for i, idx := range in.VisibleRows {
			rows[i] = layout.VirtualRow{Index: idx}
		}
		report.Visible = layout.VisiblePathList(items, l, rows)
		report.TopAnchor, _ = layout.TopAnchorPathForVisibleRows(items, l, rows)
	}

	return report, nil
}

func printRestoreReport(w io.Writer, r restoreReport) {
	fmt.Fprintf(w, "Layout:      %s, %d items in %d rows, %.0fpx tall\n", r.Layout, r.Items, r.Rows, r.TotalHeight)
	if r.Decision == "none" {
		fmt.Fprintln(w, "Restore:     none (no pending request matches an item)")
	} else {
		fmt.Fprintf(w, "Restore:     %s -> %s (token %d)\n", r.Decision, r.DecisionPath, r.Token)
		if r.ScrollTop != nil {
			fmt.Fprintf(w, "Scroll top:  %.1f\n", *r.ScrollTop)
		}
	}
	if len(r.Visible) > 0 {
		fmt.Fprintf(w, "Visible:     %d items\n", len(r.Visible))
		for _, p := range r.Visible {
			fmt.Fprintf(w, "  %s\n", p)
		}
		fmt.Fprintf(w, "Top anchor:  %s\n", r.TopAnchor)
	}
}
