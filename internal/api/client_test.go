package api

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/folio-media/folio/internal/config"
	"github.com/folio-media/folio/internal/models"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.NewConfig()
	cfg.APIBaseURL = baseURL
	cfg.APIKey = "test-key"
	cfg.ProxyMode = "no-proxy"
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 1000
	return cfg
}

// TestNewClientRejectsEmptyBaseURL verifies that NewClient fails up front
// rather than producing "unsupported protocol scheme" errors on every request.
func TestNewClientRejectsEmptyBaseURL(t *testing.T) {
	_, err := NewClient(testConfig(""), nil)
	if err == nil {
		t.Fatal("NewClient() should return error for empty APIBaseURL")
	}
	if !strings.Contains(err.Error(), "API base URL is empty") {
		t.Errorf("NewClient() error = %q, want error containing 'API base URL is empty'", err.Error())
	}
	if !errors.Is(err, ErrEmptyBaseURL) {
		t.Errorf("error should wrap ErrEmptyBaseURL")
	}
}

func TestNewClientAcceptsValidBaseURL(t *testing.T) {
	client, err := NewClient(testConfig("https://catalog.example.org"), nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v, want nil", err)
	}
	if client == nil {
		t.Fatal("NewClient() returned nil client")
	}
}

func TestFetchFolderPage_QueryAndHeaders(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/api/v1/folders" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("path") != "/photos/2024" || q.Get("page") != "2" || q.Get("pageSize") != "50" {
			t.Errorf("query = %v", q)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "folio/") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"generatedAt": "g1",
			"items":       []map[string]interface{}{{"path": "/photos/2024/a.jpg", "name": "a.jpg"}},
			"page":        2,
			"pageSize":    50,
			"pageCount":   3,
			"totalItems":  101,
		})
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL+"/"), nil)
	if err != nil {
		t.Fatal(err)
	}

	page, err := client.FetchFolderPage(context.Background(), "/photos/2024", 2, 50)
	if err != nil {
		t.Fatalf("FetchFolderPage() error = %v", err)
	}
	if page.Path != "/photos/2024" {
		t.Errorf("Path = %q, want requested path filled in", page.Path)
	}
	if models.IntValue(page.Page, 0) != 2 || models.IntValue(page.PageCount, 0) != 3 {
		t.Errorf("page = %v, pageCount = %v", page.Page, page.PageCount)
	}
	if len(page.Items) != 1 || page.Items[0].Path != "/photos/2024/a.jpg" {
		t.Errorf("items = %+v", page.Items)
	}
}

func TestFetchFolderPage_NotFound(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.Error(w, "no such folder", nethttp.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.FetchFolderPage(context.Background(), "/missing", 1, 10)
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.HTTPStatus() != 404 {
		t.Errorf("expected HTTPStatusError with 404, got %v", err)
	}
}

func TestFetchFolderPage_RetriesThrottled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(nethttp.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"generatedAt":"g1","items":[]}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.FetchFolderPage(context.Background(), "/a", 1, 10); err != nil {
		t.Fatalf("FetchFolderPage() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2", calls.Load())
	}
	total, throttled := client.Stats()
	if total != 1 || throttled != 1 {
		t.Errorf("Stats() = (%d, %d), want (1, 1)", total, throttled)
	}
	if client.limiter.CooldownRemaining() <= 0 {
		t.Error("throttled response should put the limiter into cooldown")
	}
}

func TestPageFetcher_BindsPath(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Query().Get("path") + `","items":[]}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), nil)
	if err != nil {
		t.Fatal(err)
	}

	fetch := client.PageFetcher("/bound")
	page, err := fetch(context.Background(), 3, 25)
	if err != nil {
		t.Fatal(err)
	}
	if page.Path != "/bound" || models.IntValue(page.Page, 0) != 3 {
		t.Errorf("page = %+v", page)
	}
}

func TestFetchFolderPage_DropsInvalidItemPaths(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_ = json.NewEncoder(w).Encode(models.FolderPage{
			Items: []models.Item{
				{Path: "/lib/a.jpg"},
				{Path: ""},
				{Path: "/lib/../etc/passwd"},
				{Path: "/lib/b.jpg"},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), nil)
	if err != nil {
		t.Fatal(err)
	}
	page, err := client.FetchFirstPage(context.Background(), "/lib", 10)
	if err != nil {
		t.Fatalf("FetchFirstPage() error = %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].Path != "/lib/a.jpg" || page.Items[1].Path != "/lib/b.jpg" {
		t.Errorf("items = %+v", page.Items)
	}
}
