// Package integration runs the docstore binary and the public API end to end.
package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var (
	// docstoreBin is the path to the built docstore binary.
	docstoreBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot finds the project root by walking up and looking for go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// cleanEnv returns os.Environ() without DOCSTORE_*, DATABASE_URL and XDG_*
// variables, so subprocesses see only what a test sets.
func cleanEnv() []string {
	var env []string
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "DOCSTORE_") || strings.HasPrefix(e, "DATABASE_URL=") || strings.HasPrefix(e, "XDG_") {
			continue
		}
		env = append(env, e)
	}
	return env
}

// TestEnv provides an isolated environment with its own config directory
// and SQLite database.
type TestEnv struct {
	t         *testing.T
	TempDir   string
	ConfigDir string
	DBPath    string
	Env       []string
}

// NewTestEnv creates a new isolated test environment.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build docstore: %v", buildErr)
	}
	if docstoreBin == "" {
		t.Fatal("docstore binary not built (docstoreBin is empty)")
	}

	tempDir := t.TempDir()
	return &TestEnv{
		t:         t,
		TempDir:   tempDir,
		ConfigDir: filepath.Join(tempDir, "config"),
		DBPath:    filepath.Join(tempDir, "docs.db"),
	}
}

// CmdResult holds the result of a docstore command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Exec runs the binary with args exactly as given.
func (e *TestEnv) Exec(args ...string) CmdResult {
	e.t.Helper()

	cmd := exec.Command(docstoreBin, args...)
	cmd.Env = append(cleanEnv(), e.Env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			e.t.Fatalf("failed to run docstore: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}
	return CmdResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}
}

// Run executes the CLI against the environment's config dir and database.
func (e *TestEnv) Run(args ...string) CmdResult {
	e.t.Helper()
	all := append([]string{"--config-dir", e.ConfigDir, "--database-url", "sqlite://" + e.DBPath}, args...)
	return e.Exec(all...)
}

// MustRun executes the CLI and fails the test if it returns non-zero.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	result := e.Run(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("docstore %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, jsonStr string) T {
	t.Helper()
	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", jsonStr, err)
	}
	return result
}
