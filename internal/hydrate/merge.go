// Package hydrate assembles a complete folder snapshot from a server-paginated
// listing. The first page is supplied by the caller; the remaining pages are
// fetched in ascending order and merged into a single deduplicated snapshot.
package hydrate

import (
	"github.com/folio-media/folio/internal/models"
)

// PagePlan is the inclusive range of pages still to fetch after the first page.
type PagePlan struct {
	StartPage int
	EndPage   int
	PageSize  int
}

// Pages returns the number of pages in the plan.
func (p PagePlan) Pages() int {
	return p.EndPage - p.StartPage + 1
}

// NormalizePage turns a single page into a snapshot, dropping later
// duplicates of an item path. Order of first occurrence is preserved.
func NormalizePage(page models.FolderPage) models.FolderSnapshot {
	snap := models.FolderSnapshot(page)
	snap.Items = dedupeItems(page.Items, nil)
	snap.Dirs = cloneDirs(page.Dirs)
	return snap
}

// PlanRemainingPages decides which pages still need fetching after first.
// It returns nil when the listing is complete: no page count, a page count
// of one or less, or the first page already being the last.
func PlanRemainingPages(first models.FolderPage, defaultPageSize int) *PagePlan {
	if first.PageCount == nil || *first.PageCount <= 1 {
		return nil
	}
	start := models.IntValue(first.Page, 1) + 1
	if start > *first.PageCount {
		return nil
	}
	return &PagePlan{
		StartPage: start,
		EndPage:   *first.PageCount,
		PageSize:  models.IntValue(first.PageSize, defaultPageSize),
	}
}

// MergePages appends next onto base. When next belongs to a different folder
// the base is discarded and next is normalized on its own.
//
// Paging metadata takes the value from next when present and falls back to base.
// Dirs come from base unless base has none.
func MergePages(base models.FolderSnapshot, next models.FolderPage) models.FolderSnapshot {
	if base.Path != next.Path {
		return NormalizePage(next)
	}

	merged := models.FolderSnapshot{
		Path:        base.Path,
		GeneratedAt: base.GeneratedAt,
		Page:        pick(next.Page, base.Page),
		PageSize:    pick(next.PageSize, base.PageSize),
		PageCount:   pick(next.PageCount, base.PageCount),
		TotalItems:  pick(next.TotalItems, base.TotalItems),
	}
	if next.GeneratedAt != "" {
		merged.GeneratedAt = next.GeneratedAt
	}

	if len(base.Dirs) > 0 {
		merged.Dirs = cloneDirs(base.Dirs)
	} else {
		merged.Dirs = cloneDirs(next.Dirs)
	}

	seen := make(map[string]struct{}, len(base.Items)+len(next.Items))
	items := dedupeItems(base.Items, seen)
	merged.Items = append(items, dedupeItems(next.Items, seen)...)
	return merged
}

// dedupeItems copies items, skipping any path already present in seen.
// A nil seen map starts fresh.
func dedupeItems(items []models.Item, seen map[string]struct{}) []models.Item {
	if seen == nil {
		seen = make(map[string]struct{}, len(items))
	}
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it.Path]; dup {
			continue
		}
		seen[it.Path] = struct{}{}
		out = append(out, it)
	}
	return out
}

func cloneDirs(dirs []models.DirEntry) []models.DirEntry {
	if dirs == nil {
		return nil
	}
	out := make([]models.DirEntry, len(dirs))
	copy(out, dirs)
	return out
}

func pick(preferred, fallback *int) *int {
	if preferred != nil {
		return preferred
	}
	return fallback
}
