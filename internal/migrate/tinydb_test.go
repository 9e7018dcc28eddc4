package migrate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/docstore/internal/sqlstore"
	"github.com/mesh-intelligence/docstore/pkg/query"
	"github.com/mesh-intelligence/docstore/pkg/types"
)

const sampleFile = `{
	"_default": {},
	"emails": {
		"10": {"subject": "Heating broken", "sender": "b@x", "size": 9007199254740993},
		"2": {"subject": "Rent receipt", "sender": "a@x", "tags": ["rent"]},
		"3": {"subject": "Leak", "sender": "a@x", "meta": {"unit": "2B"}}
	},
	"tenants": {
		"1": {"email": "a@x", "unit": "2B"}
	},
	"scratch": {
		"1": {"note": "not a standard table"}
	}
}`

func openDB(t *testing.T) types.Database {
	t.Helper()
	uri := "sqlite://" + filepath.Join(t.TempDir(), "docs.db")
	db, err := sqlstore.Open(context.Background(), types.Config{URI: uri}, sqlstore.WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecode(t *testing.T) {
	f, err := Decode(strings.NewReader(sampleFile))
	require.NoError(t, err)

	assert.Equal(t, []string{"_default", "emails", "scratch", "tenants"}, f.Tables())
	emails := f["emails"]
	require.Len(t, emails, 3)
	assert.Equal(t, []int64{2, 3, 10}, []int64{emails[0].ID, emails[1].ID, emails[2].ID}, "entries sorted numerically")
	assert.Equal(t, json.Number("9007199254740993"), emails[2].Document["size"], "large integers kept exactly")
	assert.Empty(t, f["_default"])
}

func TestDecode_Errors(t *testing.T) {
	for _, in := range []string{
		``,
		`[]`,
		`{"emails": []}`,
		`{"emails": {"one": {}}}`,
		`{"emails": {"1": null}}`,
		`{"emails": {"1": "text"}}`,
	} {
		_, err := Decode(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrInvalidFile, in)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "email_system.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0o644))

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, f["emails"], 3)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestImport_StandardTables(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	f, err := Decode(strings.NewReader(sampleFile))
	require.NoError(t, err)

	sum, err := Import(ctx, db, f, Options{Logger: quietLogger()})
	require.NoError(t, err)

	_, err = uuid.Parse(sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Total)
	require.Len(t, sum.Tables, len(types.StandardTableNames))
	assert.Equal(t, TableResult{Table: types.EmailsTable, Imported: 3, IDs: []int64{1, 2, 3}}, sum.Tables[0])
	assert.Equal(t, TableResult{Table: types.RepliesTable, IDs: []int64{}}, sum.Tables[1])

	emails, err := db.Table(ctx, types.EmailsTable)
	require.NoError(t, err)
	recs, err := emails.All(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "Rent receipt", recs[0].Document["subject"], "original id order is kept")
	assert.Equal(t, "Heating broken", recs[2].Document["subject"])

	n, err := emails.Count(ctx, query.Where("sender").Eq("a@x"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.NotContains(t, db.Tables(), "scratch")
	assert.NotContains(t, db.Tables(), types.RepliesTable, "empty tables are not created")
}

func TestImport_SelectedAndAllTables(t *testing.T) {
	ctx := context.Background()
	f, err := Decode(strings.NewReader(sampleFile))
	require.NoError(t, err)

	db := openDB(t)
	sum, err := Import(ctx, db, f, Options{Tables: []string{"scratch", types.TenantsTable}, Logger: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, "scratch", sum.Tables[0].Table)
	assert.Equal(t, []string{"scratch", types.TenantsTable}, db.Tables())

	db = openDB(t)
	sum, err = Import(ctx, db, f, Options{AllTables: true, Tables: []string{"ignored"}, Logger: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Total)
	assert.Len(t, sum.Tables, 4)
}

func TestImport_InvalidTableName(t *testing.T) {
	f := File{"bad-name": {{ID: 1, Document: types.Document{"a": 1}}}}
	sum, err := Import(context.Background(), openDB(t), f, Options{AllTables: true, Logger: quietLogger()})
	require.ErrorIs(t, err, types.ErrInvalidName)
	assert.Zero(t, sum.Total)
}

func TestImport_RunIDsDiffer(t *testing.T) {
	f := File{}
	a, err := Import(context.Background(), openDB(t), f, Options{Tables: []string{"x"}, Logger: quietLogger()})
	require.NoError(t, err)
	b, err := Import(context.Background(), openDB(t), f, Options{Tables: []string{"x"}, Logger: quietLogger()})
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openDB(t)
	f, err := Decode(strings.NewReader(sampleFile))
	require.NoError(t, err)
	_, err = Import(ctx, src, f, Options{Tables: []string{types.EmailsTable, types.TenantsTable}, Logger: quietLogger()})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	n, err := Export(ctx, src, []string{types.EmailsTable, types.TenantsTable}, path)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	exported, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{types.EmailsTable, types.TenantsTable}, exported.Tables())

	dst := openDB(t)
	_, err = Import(ctx, dst, exported, Options{AllTables: true, Logger: quietLogger()})
	require.NoError(t, err)

	for _, name := range exported.Tables() {
		want, err := mustTable(t, src, name).All(ctx)
		require.NoError(t, err)
		got, err := mustTable(t, dst, name).All(ctx)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].ID, got[i].ID)
			assert.Equal(t, want[i].Document["subject"], got[i].Document["subject"])
			assert.Equal(t, want[i].Document["sender"], got[i].Document["sender"])
			assert.Contains(t, got[i].Document, types.InsertedAtKey, "re-inserted documents are stamped again")
		}
	}
}

func mustTable(t *testing.T, db types.Database, name string) types.Table {
	t.Helper()
	tbl, err := db.Table(context.Background(), name)
	require.NoError(t, err)
	return tbl
}
