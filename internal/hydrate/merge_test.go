package hydrate

import (
	"reflect"
	"testing"

	"github.com/folio-media/folio/internal/models"
)

func items(paths ...string) []models.Item {
	out := make([]models.Item, len(paths))
	for i, p := range paths {
		out[i] = models.Item{Path: p, Name: p}
	}
	return out
}

func TestNormalizePage_DedupesFirstWins(t *testing.T) {
	page := models.FolderPage{
		Path: "/cats",
		Items: []models.Item{
			{Path: "/cats/a", Name: "first"},
			{Path: "/cats/b"},
			{Path: "/cats/a", Name: "second"},
		},
	}

	snap := NormalizePage(page)

	if got := snap.ItemPaths(); !reflect.DeepEqual(got, []string{"/cats/a", "/cats/b"}) {
		t.Fatalf("Unexpected order: %v", got)
	}
	if snap.Items[0].Name != "first" {
		t.Errorf("Expected first occurrence to win, got %q", snap.Items[0].Name)
	}

	// The input must not be modified
	if len(page.Items) != 3 {
		t.Errorf("Input page was modified: %d items", len(page.Items))
	}
}

func TestPlanRemainingPages(t *testing.T) {
	tests := []struct {
		name  string
		first models.FolderPage
		want  *PagePlan
	}{
		{
			name:  "no page count",
			first: models.FolderPage{Page: models.IntPtr(1)},
			want:  nil,
		},
		{
			name:  "single page",
			first: models.FolderPage{Page: models.IntPtr(1), PageCount: models.IntPtr(1)},
			want:  nil,
		},
		{
			name:  "already on last page",
			first: models.FolderPage{Page: models.IntPtr(3), PageCount: models.IntPtr(3)},
			want:  nil,
		},
		{
			name:  "server page size",
			first: models.FolderPage{Page: models.IntPtr(1), PageSize: models.IntPtr(50), PageCount: models.IntPtr(4)},
			want:  &PagePlan{StartPage: 2, EndPage: 4, PageSize: 50},
		},
		{
			name:  "default page size",
			first: models.FolderPage{Page: models.IntPtr(1), PageCount: models.IntPtr(2)},
			want:  &PagePlan{StartPage: 2, EndPage: 2, PageSize: 200},
		},
		{
			name:  "missing page treated as first",
			first: models.FolderPage{PageCount: models.IntPtr(3)},
			want:  &PagePlan{StartPage: 2, EndPage: 3, PageSize: 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanRemainingPages(tt.first, 200)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PlanRemainingPages() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMergePages_AppendsOnlyNewItems(t *testing.T) {
	base := NormalizePage(models.FolderPage{
		Path:      "/cats",
		Items:     items("/cats/a", "/cats/b"),
		Dirs:      []models.DirEntry{{Path: "/cats/kittens", Name: "kittens"}},
		Page:      models.IntPtr(1),
		PageCount: models.IntPtr(2),
	})
	next := models.FolderPage{
		Path:        "/cats",
		GeneratedAt: "g2",
		Items:       items("/cats/b", "/cats/c"),
		Page:        models.IntPtr(2),
	}

	merged := MergePages(base, next)

	if got := merged.ItemPaths(); !reflect.DeepEqual(got, []string{"/cats/a", "/cats/b", "/cats/c"}) {
		t.Fatalf("Unexpected merge order: %v", got)
	}
	if merged.GeneratedAt != "g2" {
		t.Errorf("Expected generatedAt from next, got %q", merged.GeneratedAt)
	}
	if models.IntValue(merged.Page, 0) != 2 {
		t.Errorf("Expected page 2, got %v", merged.Page)
	}
	if models.IntValue(merged.PageCount, 0) != 2 {
		t.Errorf("Expected pageCount carried from base, got %v", merged.PageCount)
	}
	if len(merged.Dirs) != 1 {
		t.Errorf("Expected dirs from base, got %v", merged.Dirs)
	}
}

func TestMergePages_DirsFromNextWhenBaseEmpty(t *testing.T) {
	base := NormalizePage(models.FolderPage{Path: "/p", Items: items("/p/a")})
	next := models.FolderPage{Path: "/p", Dirs: []models.DirEntry{{Path: "/p/sub"}}}

	merged := MergePages(base, next)
	if len(merged.Dirs) != 1 || merged.Dirs[0].Path != "/p/sub" {
		t.Errorf("Expected dirs from next, got %v", merged.Dirs)
	}
	if merged.GeneratedAt != "" {
		t.Errorf("Expected empty generatedAt to stay empty, got %q", merged.GeneratedAt)
	}
}

func TestMergePages_PathMismatchResets(t *testing.T) {
	base := NormalizePage(models.FolderPage{Path: "/cats", Items: items("/cats/a")})
	next := models.FolderPage{Path: "/dogs", Items: items("/dogs/x", "/dogs/x", "/dogs/y")}

	merged := MergePages(base, next)

	if merged.Path != "/dogs" {
		t.Errorf("Expected reset to /dogs, got %q", merged.Path)
	}
	if got := merged.ItemPaths(); !reflect.DeepEqual(got, []string{"/dogs/x", "/dogs/y"}) {
		t.Errorf("Expected normalized next only, got %v", got)
	}
}

func TestMergePages_OrderIndependentOfPageSplit(t *testing.T) {
	// Merging [A,B] then [B,C] must equal merging [A] then [B,C] then [B]
	p := "/m"
	one := MergePages(NormalizePage(models.FolderPage{Path: p, Items: items("A", "B")}),
		models.FolderPage{Path: p, Items: items("B", "C")})

	two := NormalizePage(models.FolderPage{Path: p, Items: items("A")})
	two = MergePages(two, models.FolderPage{Path: p, Items: items("B", "C")})
	two = MergePages(two, models.FolderPage{Path: p, Items: items("B")})

	if !reflect.DeepEqual(one.ItemPaths(), two.ItemPaths()) {
		t.Errorf("Merge order differs: %v vs %v", one.ItemPaths(), two.ItemPaths())
	}
}
