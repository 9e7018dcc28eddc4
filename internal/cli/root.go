// Package cli implements the docstore command-line interface: a thin cobra
// front end over the Database API for inspecting and repairing stores.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/docstore/internal/logging"
	"github.com/mesh-intelligence/docstore/internal/migrate"
	"github.com/mesh-intelligence/docstore/internal/paths"
	"github.com/mesh-intelligence/docstore/pkg/docstore"
	"github.com/mesh-intelligence/docstore/pkg/query"
	"github.com/mesh-intelligence/docstore/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir   string
	dataDir     string
	databaseURL string
	logLevel    string
}

// session is the per-invocation state shared by subcommands.
type session struct {
	flags  rootFlags
	v      *viper.Viper
	logger *slog.Logger
	stderr io.Writer
}

// NewRootCmd creates the top-level "docstore" command with global flags and
// all subcommands registered. Log output goes to stderr.
func NewRootCmd(stderr io.Writer) *cobra.Command {
	s := &session{stderr: stderr, logger: slog.New(slog.DiscardHandler)}

	root := &cobra.Command{
		Use:   "docstore",
		Short: "Inspect and edit docstore tables",
		Long: `docstore reads and writes the JSON document tables kept in a SQLite or
PostgreSQL database. Documents are addressed by integer id or by filter
expressions such as status==new or meta.priority>=3.`,
		Version: docstore.Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&s.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&s.flags.dataDir, "data-dir", "", "directory of the default SQLite database")
	pf.StringVar(&s.flags.databaseURL, "database-url", "", "connection descriptor, e.g. sqlite:///path/docs.db or postgres://host/db")
	pf.StringVar(&s.flags.logLevel, "log-level", "", "log level: debug, info, warn or error (default warn)")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(s),
		newInsertCmd(s),
		newGetCmd(s),
		newListCmd(s),
		newSearchCmd(s),
		newUpdateCmd(s),
		newRemoveCmd(s),
		newCountCmd(s),
		newTruncateCmd(s),
		newTablesCmd(s),
		newImportCmd(s),
		newExportCmd(s),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "docstore:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// load resolves the configuration and builds the logger. It runs before
// every subcommand.
func (s *session) load(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(s.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	if s.flags.databaseURL != "" {
		v.Set(cfgKeyDatabaseURL, s.flags.databaseURL)
	}
	if s.flags.logLevel != "" {
		v.Set(cfgKeyLogLevel, s.flags.logLevel)
	}
	level, err := logging.ParseLevel(v.GetString(cfgKeyLogLevel))
	if err != nil {
		return userError(err)
	}
	s.v = v
	s.logger = logging.NewLogger(s.stderr, level)
	s.logger.Debug("config loaded", "config_dir", configDir)
	return nil
}

// open connects to the configured database. The caller must Close it.
func (s *session) open(ctx context.Context) (types.Database, error) {
	cfg, err := s.storeConfig()
	if err != nil {
		return nil, err
	}
	db, err := docstore.Open(ctx, cfg, docstore.WithLogger(s.logger))
	if err != nil {
		return nil, classify(fmt.Errorf("open database: %w", err))
	}
	return db, nil
}

// exitError carries the exit code for an error returned by a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }
func sysError(err error) error  { return &exitError{code: exitSysError, err: err} }

// classify marks errors caused by bad input as user errors and everything
// else as system errors.
func classify(err error) error {
	var ee *exitError
	if err == nil || errors.As(err, &ee) {
		return err
	}
	for _, target := range []error{
		types.ErrMissingDescriptor,
		types.ErrInvalidDescriptor,
		types.ErrInvalidPoolSize,
		types.ErrInvalidName,
		types.ErrInvalidData,
		query.ErrInvalidFilter,
		migrate.ErrInvalidFile,
		fs.ErrNotExist,
	} {
		if errors.Is(err, target) {
			return userError(err)
		}
	}
	return sysError(err)
}

// exitCode maps err to a process exit code. Errors from cobra itself (unknown
// flags, wrong argument counts) are user errors.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}
