package models

import "time"

// Item represents a single media entry in a catalog folder.
// Path is the item identity: slash-delimited, unique within a folder scope and
// stable across reloads. Everything else is payload the pipeline does not inspect.
type Item struct {
	Path    string             `json:"path"`
	Name    string             `json:"name,omitempty"`
	Kind    string             `json:"kind,omitempty"` // "image", "video", "audio", "other"
	Width   int                `json:"width,omitempty"`
	Height  int                `json:"height,omitempty"`
	Size    int64              `json:"size,omitempty"`
	Rating  int                `json:"rating,omitempty"`
	ModTime *time.Time         `json:"mtime,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// AspectRatio returns width/height, or 1 when either dimension is unknown.
func (i Item) AspectRatio() float64 {
	if i.Width <= 0 || i.Height <= 0 {
		return 1
	}
	return float64(i.Width) / float64(i.Height)
}

// DirEntry represents a subfolder listed alongside the items of a folder.
type DirEntry struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	ItemCount int    `json:"itemCount,omitempty"`
}

// FolderPage is one server response for a folder listing.
// Page and PageCount are 1-based. A nil PageCount (or PageCount <= 1) means
// the listing is complete in this single page.
type FolderPage struct {
	Path        string     `json:"path"`
	GeneratedAt string     `json:"generatedAt"`
	Items       []Item     `json:"items"`
	Dirs        []DirEntry `json:"dirs"`
	Page        *int       `json:"page,omitempty"`
	PageSize    *int       `json:"pageSize,omitempty"`
	PageCount   *int       `json:"pageCount,omitempty"`
	TotalItems  *int       `json:"totalItems,omitempty"`
}

// FolderSnapshot is the cumulative merge of one or more pages of the same folder.
// Items keep first-seen order with no duplicate paths.
type FolderSnapshot FolderPage

// Snapshot converts a page into a snapshot without deduplication.
// Use hydrate.NormalizePage for the deduplicated form.
func (p FolderPage) Snapshot() FolderSnapshot {
	return FolderSnapshot(p)
}

// IsComplete reports whether the snapshot covers every page the server announced.
func (s FolderSnapshot) IsComplete() bool {
	if s.PageCount == nil || *s.PageCount <= 1 {
		return true
	}
	if s.Page == nil {
		return false
	}
	return *s.Page >= *s.PageCount
}

// ItemPaths returns item paths in snapshot order.
func (s FolderSnapshot) ItemPaths() []string {
	paths := make([]string, len(s.Items))
	for i, it := range s.Items {
		paths[i] = it.Path
	}
	return paths
}

// IndexOf returns the position of the item with the given path, or -1.
func (s FolderSnapshot) IndexOf(path string) int {
	for i, it := range s.Items {
		if it.Path == path {
			return i
		}
	}
	return -1
}

// IntPtr returns a pointer to v. Used for the optional paging fields.
func IntPtr(v int) *int {
	return &v
}

// IntValue dereferences p, returning def when p is nil.
func IntValue(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
