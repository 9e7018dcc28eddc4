package sqlstore

import (
	"fmt"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/docstore/pkg/types"
)

// dialect isolates the SQL that differs between backing stores.
type dialect interface {
	// Name is used in logs and metrics.
	Name() string

	// Driver is the database/sql driver name.
	Driver() string

	// Bind returns the placeholder for the n-th (1-based) argument.
	Bind(n int) string

	// BindJSON returns the placeholder for a JSON payload argument.
	BindJSON(n int) string

	// Now is the SQL expression stamped into updated_at.
	Now() string

	// Bootstrap returns the idempotent DDL for a table.
	Bootstrap(table string) []string

	// Truncate returns the statements that empty a table and reset its id
	// sequence. They run in one transaction.
	Truncate(table string) []string

	// LockRow is appended to the read of a read-modify-write.
	LockRow() string

	// ListTables selects the names of relations carrying the doc_id and
	// data columns, sorted.
	ListTables() string
}

// parseDescriptor selects the dialect for uri and returns the driver DSN.
func parseDescriptor(uri string) (dialect, string, error) {
	if uri == "" {
		return nil, "", types.ErrMissingDescriptor
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", types.ErrInvalidDescriptor, err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		if u.Host == "" && u.Query().Get("host") == "" {
			return nil, "", fmt.Errorf("%w: postgres descriptor has no host", types.ErrInvalidDescriptor)
		}
		return postgresDialect{}, uri, nil

	case "sqlite", "sqlite3", "file":
		path := u.Opaque
		if path == "" {
			path = u.Host + u.Path
		}
		if path == "" {
			return nil, "", fmt.Errorf("%w: sqlite descriptor has no path", types.ErrInvalidDescriptor)
		}
		if strings.Contains(path, ":memory:") || u.Query().Get("mode") == "memory" {
			// Every pooled connection would see its own empty database.
			return nil, "", fmt.Errorf("%w: in-memory sqlite cannot be pooled", types.ErrInvalidDescriptor)
		}
		q := u.Query()
		q.Add("_pragma", "busy_timeout(5000)")
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
		if q.Get("_txlock") == "" {
			q.Set("_txlock", "immediate")
		}
		return sqliteDialect{}, "file:" + path + "?" + q.Encode(), nil

	default:
		return nil, "", fmt.Errorf("%w: unsupported scheme %q", types.ErrInvalidDescriptor, u.Scheme)
	}
}

// quoteIdent quotes a validated table or index name.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string        { return "sqlite" }
func (sqliteDialect) Driver() string      { return "sqlite" }
func (sqliteDialect) Bind(int) string     { return "?" }
func (sqliteDialect) BindJSON(int) string { return "?" }
func (sqliteDialect) Now() string         { return sqliteNow }
func (sqliteDialect) LockRow() string     { return "" }
func (sqliteDialect) ListTables() string  { return sqliteListTables }

func (sqliteDialect) Bootstrap(t string) []string {
	return []string{
		renderDDL(sqliteCreateTable, t, ""),
		renderDDL(createIndexCreated, t, "idx_"+t+"_created"),
		renderDDL(sqliteIndexData, t, "idx_"+t+"_data"),
	}
}

func (sqliteDialect) Truncate(t string) []string {
	return []string{
		"DELETE FROM " + quoteIdent(t),
		// t is a validated identifier, safe to inline as a literal.
		"DELETE FROM sqlite_sequence WHERE name = '" + t + "'",
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string          { return "postgres" }
func (postgresDialect) Driver() string        { return "pgx" }
func (postgresDialect) Bind(n int) string     { return fmt.Sprintf("$%d", n) }
func (postgresDialect) BindJSON(n int) string { return fmt.Sprintf("$%d::jsonb", n) }
func (postgresDialect) Now() string           { return "CURRENT_TIMESTAMP" }
func (postgresDialect) LockRow() string       { return " FOR UPDATE" }
func (postgresDialect) ListTables() string    { return postgresListTables }

func (postgresDialect) Bootstrap(t string) []string {
	return []string{
		renderDDL(postgresCreateTable, t, ""),
		renderDDL(createIndexCreated, t, "idx_"+t+"_created"),
		renderDDL(postgresIndexData, t, "idx_"+t+"_data"),
	}
}

func (postgresDialect) Truncate(t string) []string {
	return []string{"TRUNCATE TABLE " + quoteIdent(t) + " RESTART IDENTITY"}
}
