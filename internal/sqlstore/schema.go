package sqlstore

import "strings"

// Every logical table maps to one relation with this column contract:
// doc_id (auto-increment primary key, never reused), data (JSON payload),
// created_at and updated_at.

// sqliteNow renders the current time as RFC 3339 with milliseconds in UTC.
const sqliteNow = `strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

// Table DDL. AUTOINCREMENT keeps SQLite from reusing the ids of deleted
// rows; BIGSERIAL sequences never go backwards outside TRUNCATE RESTART.
const (
	sqliteCreateTable = `CREATE TABLE IF NOT EXISTS {table} (
    doc_id INTEGER PRIMARY KEY AUTOINCREMENT,
    data TEXT NOT NULL CHECK (json_valid(data)),
    created_at TEXT NOT NULL DEFAULT (` + sqliteNow + `),
    updated_at TEXT NOT NULL DEFAULT (` + sqliteNow + `)
)`

	postgresCreateTable = `CREATE TABLE IF NOT EXISTS {table} (
    doc_id BIGSERIAL PRIMARY KEY,
    data JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
)

// Index DDL. The payload index is there for native predicate pushdown; the
// in-memory evaluator does not rely on it.
const (
	createIndexCreated = `CREATE INDEX IF NOT EXISTS {index} ON {table} (created_at)`
	sqliteIndexData    = `CREATE INDEX IF NOT EXISTS {index} ON {table} (data)`
	postgresIndexData  = `CREATE INDEX IF NOT EXISTS {index} ON {table} USING GIN (data)`
)

// Catalog queries for StoredTables.
const (
	sqliteListTables = `SELECT m.name FROM sqlite_master AS m
JOIN pragma_table_info(m.name) AS c
WHERE m.type = 'table' AND c.name IN ('doc_id', 'data')
GROUP BY m.name HAVING COUNT(*) = 2
ORDER BY m.name`

	postgresListTables = `SELECT table_name FROM information_schema.columns
WHERE table_schema = current_schema() AND column_name IN ('doc_id', 'data')
GROUP BY table_name HAVING COUNT(*) = 2
ORDER BY table_name`
)

// renderDDL fills the {table} and {index} placeholders. The templates carry
// strftime patterns, so fmt verbs are not used.
func renderDDL(tmpl, table, index string) string {
	return strings.NewReplacer("{table}", quoteIdent(table), "{index}", quoteIdent(index)).Replace(tmpl)
}

// statements holds the per-table SQL, rendered once at bootstrap.
type statements struct {
	insert    string
	selectAll string
	selectOne string
	selectID  string
	lockData  string
	update    string
	count     string
	deleteAll string
}

func newStatements(d dialect, name string) statements {
	t := quoteIdent(name)
	cols := "doc_id, data, created_at, updated_at"
	return statements{
		insert:    "INSERT INTO " + t + " (data) VALUES (" + d.BindJSON(1) + ") RETURNING doc_id",
		selectAll: "SELECT " + cols + " FROM " + t + " ORDER BY doc_id",
		selectOne: "SELECT " + cols + " FROM " + t + " ORDER BY doc_id LIMIT 1",
		selectID:  "SELECT " + cols + " FROM " + t + " WHERE doc_id = " + d.Bind(1),
		lockData:  "SELECT data FROM " + t + " WHERE doc_id = " + d.Bind(1) + d.LockRow(),
		update: "UPDATE " + t + " SET data = " + d.BindJSON(1) + ", updated_at = " + d.Now() +
			" WHERE doc_id = " + d.Bind(2),
		count:     "SELECT COUNT(*) FROM " + t,
		deleteAll: "DELETE FROM " + t + " RETURNING doc_id",
	}
}

// deleteIDs renders a DELETE for n ids.
func deleteIDs(d dialect, name string, n int) string {
	b := make([]byte, 0, 64+n*4)
	b = append(b, "DELETE FROM "+quoteIdent(name)+" WHERE doc_id IN ("...)
	for i := 1; i <= n; i++ {
		if i > 1 {
			b = append(b, ", "...)
		}
		b = append(b, d.Bind(i)...)
	}
	b = append(b, ") RETURNING doc_id"...)
	return string(b)
}
