package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/docstore/internal/logging"
	"github.com/mesh-intelligence/docstore/pkg/docstore"
)

// harness runs the CLI against a private config dir and SQLite file.
type harness struct {
	t         *testing.T
	configDir string
	dbURL     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DOCSTORE_DATABASE_URL", "")
	dir := t.TempDir()
	return &harness{
		t:         t,
		configDir: filepath.Join(dir, "config"),
		dbURL:     "sqlite://" + filepath.Join(dir, "docs.db"),
	}
}

// run executes the CLI and returns the exit code, stdout and stderr.
func (h *harness) run(args ...string) (int, string, string) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config-dir", h.configDir, "--database-url", h.dbURL}, args...)
	code := Run(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// ok runs the CLI, requires success and decodes stdout into out.
func (h *harness) ok(out any, args ...string) {
	h.t.Helper()
	code, stdout, stderr := h.run(args...)
	require.Equal(h.t, exitSuccess, code, "args %v: stderr %s", args, stderr)
	if out != nil {
		require.NoError(h.t, json.Unmarshal([]byte(stdout), out), stdout)
	}
}

func TestVersion(t *testing.T) {
	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"version"}, &stdout, &bytes.Buffer{})
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, stdout.String(), "docstore v"+docstore.Version)
	assert.Contains(t, stdout.String(), modulePath)
}

func TestInit_WritesConfigAndTables(t *testing.T) {
	h := newHarness(t)
	code, stdout, _ := h.run("init")
	require.Equal(t, exitSuccess, code)
	assert.Contains(t, stdout, "docstore initialized")
	assert.FileExists(t, filepath.Join(h.configDir, configFileExt))

	var tables []tableInfo
	h.ok(&tables, "tables")
	names := make([]string, len(tables))
	for i, ti := range tables {
		names[i] = ti.Name
		assert.Zero(t, ti.Count)
	}
	assert.Contains(t, names, "emails")
	assert.Contains(t, names, "_default")
	assert.Len(t, names, 8)
}

func TestDocumentLifecycle(t *testing.T) {
	h := newHarness(t)

	var inserted struct{ IDs []int64 }
	h.ok(&inserted, "insert", "emails", `{"sender":"a@x","status":"new"}`, `[{"sender":"b@x","status":"new"},{"sender":"c@x","status":"open"}]`)
	assert.Equal(t, []int64{1, 2, 3}, inserted.IDs)

	var doc map[string]any
	h.ok(&doc, "get", "emails", "--id", "2")
	assert.Equal(t, "b@x", doc["sender"])
	assert.Equal(t, float64(2), doc["doc_id"])
	assert.Contains(t, doc, "_inserted_at")

	h.ok(&doc, "get", "emails", "sender==c@x")
	assert.Equal(t, float64(3), doc["doc_id"])

	var found []map[string]any
	h.ok(&found, "search", "emails", "status==new")
	require.Len(t, found, 2)
	assert.Equal(t, float64(1), found[0]["doc_id"])

	var updated struct{ Updated []int64 }
	h.ok(&updated, "update", "emails", `{"status":"done"}`, "--id", "1")
	assert.Equal(t, []int64{1}, updated.Updated)

	var count struct{ Count int }
	h.ok(&count, "count", "emails", "status==new")
	assert.Equal(t, 1, count.Count)

	var removed struct{ Removed []int64 }
	h.ok(&removed, "remove", "emails", "--id", "2")
	assert.Equal(t, []int64{2}, removed.Removed)

	h.ok(&count, "count", "emails")
	assert.Equal(t, 2, count.Count)

	var all []map[string]any
	h.ok(&all, "list", "emails")
	require.Len(t, all, 2)
	assert.Equal(t, "done", all[0]["status"])

	h.ok(nil, "truncate", "emails", "--yes")
	h.ok(&inserted, "insert", "emails", `{"sender":"d@x"}`)
	assert.Equal(t, []int64{1}, inserted.IDs, "truncate resets ids")
}

func TestUpdateAndRemove_RequireSelection(t *testing.T) {
	h := newHarness(t)
	h.ok(nil, "insert", "replies", `{"n":1}`, `{"n":2}`)

	code, _, stderr := h.run("update", "replies", `{"x":1}`)
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "--all")

	code, _, _ = h.run("remove", "replies")
	assert.Equal(t, exitUserError, code)

	code, _, _ = h.run("remove", "replies", "--all", "n==1")
	assert.Equal(t, exitUserError, code)

	var updated struct{ Updated []int64 }
	h.ok(&updated, "update", "replies", `{"seen":true}`, "--all")
	assert.Equal(t, []int64{1, 2}, updated.Updated)

	var removed struct{ Removed []int64 }
	h.ok(&removed, "remove", "replies", "--all")
	assert.Equal(t, []int64{1, 2}, removed.Removed)
}

func TestUserErrors(t *testing.T) {
	h := newHarness(t)
	h.ok(nil, "insert", "emails", `{"a":1}`)

	tests := []struct {
		name string
		args []string
	}{
		{name: "invalid json", args: []string{"insert", "emails", `{"a":`}},
		{name: "json scalar", args: []string{"insert", "emails", `42`}},
		{name: "invalid table", args: []string{"list", "bad-name"}},
		{name: "invalid filter", args: []string{"search", "emails", "nonsense"}},
		{name: "not found", args: []string{"get", "emails", "--id", "99"}},
		{name: "id and filter", args: []string{"get", "emails", "--id", "1", "a==1"}},
		{name: "truncate without yes", args: []string{"truncate", "emails"}},
		{name: "missing args", args: []string{"search", "emails"}},
		{name: "unknown command", args: []string{"frobnicate"}},
		{name: "bad log level", args: []string{"--log-level", "loud", "list", "emails"}},
		{name: "missing import file", args: []string{"import", filepath.Join(t.TempDir(), "nope.json")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := h.run(tt.args...)
			assert.Equal(t, exitUserError, code, stderr)
			assert.NotEmpty(t, stderr)
		})
	}
}

func TestInvalidDescriptorIsUserError(t *testing.T) {
	h := newHarness(t)
	h.dbURL = "mysql://localhost/db"
	code, _, stderr := h.run("list", "emails")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "invalid connection descriptor")
}

func TestDefaultDatabaseInDataDir(t *testing.T) {
	h := newHarness(t)
	dataDir := filepath.Join(t.TempDir(), "data")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"--config-dir", h.configDir, "--data-dir", dataDir,
		"insert", "tenants", `{"email":"a@x"}`,
	}, &stdout, &stderr)
	require.Equal(t, exitSuccess, code, stderr.String())
	assert.FileExists(t, filepath.Join(dataDir, "docstore.db"))
}

func TestDatabaseURLFromEnvironment(t *testing.T) {
	h := newHarness(t)
	t.Setenv("DATABASE_URL", h.dbURL)

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"--config-dir", h.configDir, "insert", "emails", `{"a":1}`}, &stdout, &stderr)
	require.Equal(t, exitSuccess, code, stderr.String())

	var count struct{ Count int }
	h.ok(&count, "count", "emails")
	assert.Equal(t, 1, count.Count, "the flag and the environment name the same database")
}

func TestConfigFileValues(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.configDir, 0o755))
	cfg := "database_url: " + h.dbURL + "\ndefault_table: emails\npool_max: 2\nlog_level: error\n"
	require.NoError(t, os.WriteFile(filepath.Join(h.configDir, configFileExt), []byte(cfg), 0o644))

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"--config-dir", h.configDir, "init"}, &stdout, &stderr)
	require.Equal(t, exitSuccess, code, stderr.String())
	assert.Empty(t, stderr.String(), "log_level error silences info logs")

	var tables []tableInfo
	h.ok(&tables, "tables")
	for _, ti := range tables {
		assert.NotEqual(t, "_default", ti.Name, "default_table from config.yaml is used")
	}
}

func TestImportExport(t *testing.T) {
	h := newHarness(t)
	src := filepath.Join(t.TempDir(), "email_system.json")
	require.NoError(t, os.WriteFile(src, []byte(`{
		"emails": {"1": {"subject": "a"}, "2": {"subject": "b"}},
		"tenants": {"1": {"email": "t@x"}},
		"notes": {"1": {"text": "skip me"}}
	}`), 0o644))

	var sum struct {
		RunID  string `json:"run_id"`
		Total  int    `json:"total"`
		Tables []struct {
			Table    string `json:"table"`
			Imported int    `json:"imported"`
		} `json:"tables"`
	}
	h.ok(&sum, "import", src)
	assert.Equal(t, 3, sum.Total)
	assert.NotEmpty(t, sum.RunID)

	h.ok(&sum, "import", src, "--table", "notes")
	assert.Equal(t, 1, sum.Total)

	out := filepath.Join(t.TempDir(), "export.json")
	var exported struct {
		Tables   []string `json:"tables"`
		Exported int      `json:"exported"`
	}
	h.ok(&exported, "export", out)
	assert.Equal(t, []string{"emails", "notes", "tenants"}, exported.Tables)
	assert.Equal(t, 4, exported.Exported)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"subject":"b"`))

	code, _, _ := h.run("import", src, "--table", "emails", "--all-tables")
	assert.Equal(t, exitUserError, code)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func TestWritePartial_LogsOutputFailure(t *testing.T) {
	var logs bytes.Buffer
	s := &session{logger: logging.NewLogger(&logs, slog.LevelWarn)}
	cmd := &cobra.Command{Use: "update"}
	cmd.SetOut(failingWriter{})

	s.writePartial(cmd, map[string]any{"updated": []int64{1}})
	assert.Contains(t, logs.String(), "write partial output")
	assert.Contains(t, logs.String(), "stdout closed")
	assert.Contains(t, logs.String(), "update")
}
