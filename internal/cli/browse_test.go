package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/folio-media/folio/internal/models"
	"github.com/folio-media/folio/internal/validation"
)

// newCatalogServer serves /lib in two pages; page 2 repeats b.jpg.
func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]models.FolderPage{
		"1": {
			Path:        "/lib",
			GeneratedAt: "2026-01-01T00:00:00Z",
			Items:       []models.Item{{Path: "/lib/a.jpg"}, {Path: "/lib/b.jpg"}},
			Dirs:        []models.DirEntry{{Path: "/lib/sub", Name: "sub"}},
			Page:        models.IntPtr(1),
			PageSize:    models.IntPtr(2),
			PageCount:   models.IntPtr(2),
			TotalItems:  models.IntPtr(3),
		},
		"2": {
			Path:        "/lib",
			GeneratedAt: "2026-01-01T00:00:00Z",
			Items:       []models.Item{{Path: "/lib/b.jpg"}, {Path: "/lib/c.jpg"}},
			Page:        models.IntPtr(2),
			PageSize:    models.IntPtr(2),
			PageCount:   models.IntPtr(2),
			TotalItems:  models.IntPtr(3),
		},
	}
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		page, ok := pages[r.URL.Query().Get("page")]
		if !ok || r.URL.Query().Get("path") != "/lib" {
			nethttp.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// useServer points the global CLI flags at srv for the duration of the test.
func useServer(t *testing.T, srv *httptest.Server) {
	t.Helper()
	t.Setenv("FOLIO_API_URL", "")
	t.Setenv("FOLIO_API_KEY", "")
	t.Setenv("FOLIO_PROXY_MODE", "")

	prevCfg, prevURL, prevKey := cfgFile, apiBaseURL, apiKey
	cfgFile = filepath.Join(t.TempDir(), "missing.ini")
	apiBaseURL = srv.URL
	apiKey = ""
	t.Cleanup(func() {
		cfgFile, apiBaseURL, apiKey = prevCfg, prevURL, prevKey
	})
}

func TestRunBrowse_JSONSnapshot(t *testing.T) {
	useServer(t, newCatalogServer(t))

	var out bytes.Buffer
	err := runBrowse(context.Background(), &out, "/lib/", browseOptions{jsonOutput: true})
	if err != nil {
		t.Fatalf("runBrowse() error = %v", err)
	}

	var snap models.FolderSnapshot
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("output is not a snapshot: %v\n%s", err, out.String())
	}
	if got := strings.Join(snap.ItemPaths(), ","); got != "/lib/a.jpg,/lib/b.jpg,/lib/c.jpg" {
		t.Errorf("items = %s", got)
	}
	if !snap.IsComplete() {
		t.Error("snapshot should be complete")
	}
	if len(snap.Dirs) != 1 {
		t.Errorf("dirs = %v", snap.Dirs)
	}
}

func TestRunBrowse_SummaryAndViewport(t *testing.T) {
	useServer(t, newCatalogServer(t))

	var out bytes.Buffer
	err := runBrowse(context.Background(), &out, "/lib", browseOptions{
		noProgress: true,
		listItems:  true,
		columns:    2,
		rows:       1,
		tileSize:   100,
	})
	if err != nil {
		t.Fatalf("runBrowse() error = %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Items:       3 of 3",
		"Subfolders:  1",
		"Status:      completed",
		"/lib/c.jpg\n",
		"2 x 1 grid, 2 items visible",
		"Top anchor:  /lib/a.jpg",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunBrowse_UnknownFolderFails(t *testing.T) {
	useServer(t, newCatalogServer(t))

	var out bytes.Buffer
	err := runBrowse(context.Background(), &out, "/nope", browseOptions{noProgress: true})
	if err == nil {
		t.Fatal("expected error for a folder the server does not know")
	}
	if !strings.Contains(err.Error(), "fetch-failed") {
		t.Errorf("error = %v, want fetch-failed", err)
	}
	if !strings.Contains(out.String(), "Items:       0") {
		t.Errorf("summary should still be printed:\n%s", out.String())
	}
}

func TestRunBrowse_RejectsTraversal(t *testing.T) {
	err := runBrowse(context.Background(), &bytes.Buffer{}, "/lib/../etc", browseOptions{noProgress: true})
	if !errors.Is(err, validation.ErrTraversal) {
		t.Errorf("error = %v, want ErrTraversal", err)
	}
}
