// Package cli provides the cobra command tree for scoutqr.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/frc-scouting/scoutqr/internal/config"
	"github.com/frc-scouting/scoutqr/internal/db"
	"github.com/frc-scouting/scoutqr/internal/fsutil"
	"github.com/frc-scouting/scoutqr/internal/ingest"
	"github.com/frc-scouting/scoutqr/internal/monitoring"
	"github.com/frc-scouting/scoutqr/internal/schema"
	"github.com/frc-scouting/scoutqr/internal/scouting"
	"github.com/frc-scouting/scoutqr/internal/version"
)

// app holds the global flags and what is derived from them once a
// subcommand runs.
type app struct {
	configPath string
	dbPath     string
	schemaPath string
	debug      bool

	fsys fsutil.FileSystem
	cfg  *config.PipelineConfig
}

// NewRootCmd creates the root cobra command for scoutqr.
func NewRootCmd() *cobra.Command {
	a := &app{fsys: fsutil.OSFileSystem{}}

	rootCmd := &cobra.Command{
		Use:   "scoutqr",
		Short: "Decode, store and consolidate FRC scouting QR codes",
		Long: `scoutqr - FRC scouting QR pipeline

scoutqr decodes the compressed QR codes produced by scouting tablets, repairs
each robot's action timeline, stores every per-scout report in sqlite and
merges the reports of several scouts watching the same robot into one
canonical record.`,
		Version:       version.FullVersion(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", config.DefaultConfigPath, "pipeline config file (JSON)")
	flags.StringVar(&a.dbPath, "db", "", "sqlite database (overrides database_path)")
	flags.StringVar(&a.schemaPath, "schema", "", "schema registry YAML (overrides schema_path)")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newDecodeCmd(a),
		newEncodeCmd(a),
		newIngestCmd(a),
		newScanCmd(a),
		newConsolidateCmd(a),
		newReportCmd(a),
		newServeCmd(a),
		newMigrateCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command with the given output writers.
func Execute(stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}

// setup loads the config file and starts logging. A missing config file is
// only an error when --config was given explicitly.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadPipelineConfig(a.configPath)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = config.EmptyPipelineConfig()
	default:
		return err
	}
	if a.dbPath != "" {
		cfg.DatabasePath = &a.dbPath
	}
	if a.schemaPath != "" {
		cfg.SchemaPath = &a.schemaPath
	}
	if a.debug {
		cfg.Debug = &a.debug
	}
	a.cfg = cfg

	if err := monitoring.Init(monitoring.Config{Debug: cfg.GetDebug(), LogDir: cfg.GetLogDir()}); err != nil {
		return fmt.Errorf("failed to initialise logging: %w", err)
	}
	monitoring.Debug("loaded config", "path", a.configPath, "db", cfg.GetDatabasePath())
	return nil
}

// registry returns the configured schema registry, or the built-in one.
func (a *app) registry() (*schema.Registry, error) {
	if path := a.cfg.GetSchemaPath(); path != "" {
		return schema.LoadFile(a.fsys, path)
	}
	return schema.Default()
}

// openDB opens the database with every migration applied.
func (a *app) openDB() (*db.DB, error) {
	d, err := db.NewDB(a.cfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", a.cfg.GetDatabasePath(), err)
	}
	return d, nil
}

func (a *app) overrides() ([]scouting.Override, error) {
	path := a.cfg.GetOverridesPath()
	if path == "" {
		return nil, nil
	}
	if !a.fsys.Exists(path) {
		monitoring.Debug("no overrides file", "path", path)
		return nil, nil
	}
	return scouting.LoadOverrides(a.fsys, path)
}

// session is everything a pipeline command works with.
type session struct {
	reg  *schema.Registry
	db   *db.DB
	pipe *ingest.Pipeline
}

func (s *session) Close() error { return s.db.Close() }

func (a *app) openSession() (*session, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	overrides, err := a.overrides()
	if err != nil {
		return nil, err
	}
	d, err := a.openDB()
	if err != nil {
		return nil, err
	}
	pipe := ingest.New(reg, d, ingest.Options{
		Overrides: overrides,
		Skip:      a.cfg.GetUnconsolidatedFields(),
	})
	return &session{reg: reg, db: d, pipe: pipe}, nil
}

// interruptible returns a context cancelled on SIGINT or SIGTERM.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
