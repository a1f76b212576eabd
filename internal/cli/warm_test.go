package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/folio-media/folio/internal/hydrate"
	"github.com/folio-media/folio/internal/logging"
	"github.com/folio-media/folio/internal/progress"
	"github.com/folio-media/folio/internal/session"
)

func TestWarmer_OneFailureDoesNotStopOthers(t *testing.T) {
	useServer(t, newCatalogServer(t))
	client, cfg, err := getAPIClient()
	if err != nil {
		t.Fatalf("getAPIClient() error = %v", err)
	}

	w := &warmer{
		logger:      logging.NewNopLogger(),
		client:      client,
		store:       session.NewStore(nil),
		pageSize:    cfg.PageSize,
		concurrency: 2,
	}
	folders := []string{"/lib", "/missing"}
	ctx := context.Background()

	results := w.run(ctx, progress.NewWarmUI(len(folders)), folders)
	if results[0].Reason != hydrate.StopCompleted || len(results[0].Snapshot.Items) != 3 {
		t.Errorf("/lib result = %s with %d items", results[0].Reason, len(results[0].Snapshot.Items))
	}
	if results[1].Reason != hydrate.StopFetchFailed {
		t.Errorf("/missing result = %s, want fetch-failed", results[1].Reason)
	}
	if snap := w.store.State().GetSnapshot("/lib"); snap == nil || !snap.IsComplete() {
		t.Error("/lib snapshot should be recorded in the session store")
	}

	var out bytes.Buffer
	err = w.report(ctx, &out, folders, results)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 folders") {
		t.Errorf("report() error = %v", err)
	}
	for _, want := range []string{"Folders:     1 of 2 complete", "Items:       3"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out.String())
		}
	}
}
