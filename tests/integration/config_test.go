package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Configuration precedence: --database-url > DOCSTORE_DATABASE_URL >
// DATABASE_URL > config.yaml > docstore.db in the data directory.

func countIn(t *testing.T, env *TestEnv, args ...string) int {
	t.Helper()
	res := env.Exec(append(args, "count", "emails")...)
	require.Equal(t, 0, res.ExitCode, "stderr: %s", res.Stderr)
	return ParseJSON[struct{ Count int }](t, res.Stdout).Count
}

func TestConfig_DataDirDefault(t *testing.T) {
	env := NewTestEnv(t)
	dataDir := filepath.Join(env.TempDir, "data")
	env.Env = []string{"DOCSTORE_DATA_DIR=" + dataDir}

	res := env.Exec("--config-dir", env.ConfigDir, "insert", "emails", `{"a":1}`)
	require.Equal(t, 0, res.ExitCode, "stderr: %s", res.Stderr)
	assert.FileExists(t, filepath.Join(dataDir, "docstore.db"))
	assert.FileExists(t, filepath.Join(env.ConfigDir, "config.yaml"))
}

func TestConfig_Precedence(t *testing.T) {
	env := NewTestEnv(t)
	dbURL := func(name string) string { return "sqlite://" + filepath.Join(env.TempDir, name) }

	// Seed four databases with distinguishable sizes.
	for i, name := range []string{"flag.db", "prefixed.db", "plain.db", "file.db"} {
		for range i + 1 {
			res := env.Exec("--config-dir", env.ConfigDir, "--database-url", dbURL(name), "insert", "emails", `{}`)
			require.Equal(t, 0, res.ExitCode, "stderr: %s", res.Stderr)
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(env.ConfigDir, "config.yaml"),
		[]byte("database_url: "+dbURL("file.db")+"\n"), 0o644))

	assert.Equal(t, 4, countIn(t, env, "--config-dir", env.ConfigDir), "config.yaml")

	env.Env = []string{"DATABASE_URL=" + dbURL("plain.db")}
	assert.Equal(t, 3, countIn(t, env, "--config-dir", env.ConfigDir), "DATABASE_URL")

	env.Env = append(env.Env, "DOCSTORE_DATABASE_URL="+dbURL("prefixed.db"))
	assert.Equal(t, 2, countIn(t, env, "--config-dir", env.ConfigDir), "DOCSTORE_DATABASE_URL")

	assert.Equal(t, 1, countIn(t, env, "--config-dir", env.ConfigDir, "--database-url", dbURL("flag.db")), "flag")
}

func TestConfig_ConfigDirFromEnvironment(t *testing.T) {
	env := NewTestEnv(t)
	env.Env = []string{"DOCSTORE_CONFIG_DIR=" + env.ConfigDir}

	res := env.Exec("--database-url", "sqlite://"+env.DBPath, "init")
	require.Equal(t, 0, res.ExitCode, "stderr: %s", res.Stderr)
	assert.FileExists(t, filepath.Join(env.ConfigDir, "config.yaml"))
}

func TestConfig_InvalidPoolSize(t *testing.T) {
	env := NewTestEnv(t)
	env.Env = []string{"DOCSTORE_POOL_MIN=5", "DOCSTORE_POOL_MAX=2"}

	res := env.Run("count", "emails")
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Stderr, "invalid pool size")
}
