// Package commands implements the schemakit command line.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
	"github.com/satishbabariya/schemakit/internal/adapters/document"
	"github.com/satishbabariya/schemakit/internal/config"
	"github.com/satishbabariya/schemakit/internal/core/schema"
	"github.com/satishbabariya/schemakit/internal/debug"
	"github.com/satishbabariya/schemakit/internal/ui"
	"github.com/satishbabariya/schemakit/internal/version"
)

// app carries the global flags and the loaded configuration.
type app struct {
	configFile string
	debug      bool

	schemaDir string
	url       string
	dialect   string
	driver    string

	cfg *config.Config
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "schemakit",
		Short: "Declarative schema management for SQL databases",
		Long: `schemakit keeps a relational database in line with a schema described
in XML documents.

It validates and assembles the documents, prints the DDL that creates them,
compares them with a live database and repairs the differences, pulls a live
schema back into a document and clones one database into another.`,
		Version:           version.Get().Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.load() },
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: .schemakit.yaml in ., $HOME or $HOME/.config/schemakit)")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging (also "+debug.EnvVar+")")
	flags.StringVarP(&a.schemaDir, "schema", "s", "", "directory holding the schema documents")
	flags.StringVar(&a.url, "url", "", "database url")
	flags.StringVar(&a.dialect, "dialect", "", "database dialect: sqlite, mysql or postgres")
	flags.StringVar(&a.driver, "driver", "", "database/sql driver name")

	root.AddCommand(
		newInitCmd(a),
		newValidateCmd(a),
		newDDLCmd(a),
		newDiffCmd(a),
		newPullCmd(a),
		newCloneCmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line with ctx, which is canceled on interrupt.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(ui.Out)
	root.SetErr(ui.Err)
	err := root.ExecuteContext(ctx)
	if err != nil {
		ui.PrintError("%v", err)
	}
	return err
}

func (a *app) load() error {
	if a.debug {
		debug.Init(true)
	}
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.schemaDir != "" {
		cfg.SchemaDir = a.schemaDir
	}
	if a.url != "" {
		cfg.DatabaseURL = a.url
	}
	if a.dialect != "" {
		cfg.Dialect = a.dialect
	}
	if a.driver != "" {
		cfg.Driver = a.driver
	}
	a.cfg = cfg
	debug.Debug("Configuration loaded", "file", cfg.File, "schema_dir", cfg.SchemaDir)
	return nil
}

// gauge loads, assembles and validates the schema documents.
func (a *app) gauge() (*schema.Schema, error) {
	filter, err := a.cfg.Filter()
	if err != nil {
		return nil, err
	}
	s, err := document.NewLoader(config.AppFs).LoadAndAssemble(a.cfg.SchemaDir, filter...)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", a.cfg.SchemaDir, err)
	}
	return s, nil
}

// open connects to the configured database.
func (a *app) open(ctx context.Context) (*database.Session, error) {
	cfg, err := a.cfg.Source()
	if err != nil {
		return nil, err
	}
	return database.Open(ctx, cfg)
}

// dialectName resolves the dialect without connecting.
func (a *app) dialectName() string {
	if a.cfg.Dialect != "" {
		return a.cfg.Dialect
	}
	return database.DetectDialect(a.cfg.DatabaseURL)
}
