package e2e

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperengineering/pindex/internal/api"
	"github.com/hyperengineering/pindex/internal/export"
	"github.com/hyperengineering/pindex/internal/report"
	"github.com/hyperengineering/pindex/internal/store"
	"github.com/hyperengineering/pindex/pkg/client"
)

const testAPIKey = "e2e-test-api-key"

// testEnv is an in-process server on a file-backed SQLite database.
type testEnv struct {
	dataDir   string
	dbPath    string
	exportDir string
	store     *store.SQLStore
	server    *httptest.Server
	client    *client.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dataDir := t.TempDir()
	env := &testEnv{
		dataDir:   dataDir,
		dbPath:    filepath.Join(dataDir, "pindex.db"),
		exportDir: filepath.Join(dataDir, "exports"),
	}
	env.start(t)
	return env
}

// start opens the database and serves the full router over HTTP.
func (e *testEnv) start(t *testing.T) {
	t.Helper()
	s, err := store.NewSQLiteStore(e.dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	builder := report.NewBuilder(s, logger)
	exporter := export.NewExporter(builder, &export.NoopUploader{}, e.exportDir, logger)
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(s, builder, exporter, testAPIKey, "e2e")))

	c, err := client.New(client.Config{BaseURL: srv.URL, APIKey: testAPIKey})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	e.store, e.server, e.client = s, srv, c
	t.Cleanup(e.stop)
}

func (e *testEnv) stop() {
	if e.server != nil {
		e.server.Close()
		e.server = nil
	}
	if e.store != nil {
		e.store.Close()
		e.store = nil
	}
}

// restart closes the server and database and brings them back on the same file.
func (e *testEnv) restart(t *testing.T) {
	t.Helper()
	e.stop()
	e.start(t)
}

func num(v float64) *float64 { return &v }

func mustCreateProject(t *testing.T, c *client.Client, name string) *client.Project {
	t.Helper()
	p, err := c.CreateProject(context.Background(), client.NewProject{Name: name})
	if err != nil {
		t.Fatalf("create project %q: %v", name, err)
	}
	return p
}

func mustChecklist(t *testing.T, c *client.Client, projectID string) []client.CategoryChecklist {
	t.Helper()
	groups, err := c.Checklist(context.Background(), projectID)
	if err != nil {
		t.Fatalf("checklist: %v", err)
	}
	return groups
}

func mustSaveDetail(t *testing.T, c *client.Client, projectID, itemID string, in client.DetailInput) *client.ItemDetail {
	t.Helper()
	d, err := c.SaveDetail(context.Background(), projectID, itemID, in)
	if err != nil {
		t.Fatalf("save detail on %s: %v", itemID, err)
	}
	return d
}

// readArchive decodes an exported report archive.
func readArchive(t *testing.T, path string) client.Report {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	var rep client.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("decode archive: %v", err)
	}
	return rep
}

func groupByName(t *testing.T, groups []client.CategoryChecklist, name string) client.CategoryChecklist {
	t.Helper()
	for _, g := range groups {
		if g.Category.Name == name {
			return g
		}
	}
	t.Fatalf("category %q not in checklist", name)
	return client.CategoryChecklist{}
}
