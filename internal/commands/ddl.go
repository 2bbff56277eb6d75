package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/schemakit/internal/core/dialect"
	"github.com/satishbabariya/schemakit/internal/core/migration"
	"github.com/satishbabariya/schemakit/internal/ui"
)

func newDDLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ddl",
		Short: "Print the statements that create the schema",
		Long: `Print the CREATE statements for every table in dependency order, followed
by its indexes, for the dialect given by --dialect or derived from the
database url. Nothing is executed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.dialectName()
			if name == "" {
				return fmt.Errorf("no dialect: pass --dialect (one of %v) or --url", dialect.Names())
			}
			d, err := dialect.For(name)
			if err != nil {
				return err
			}
			s, err := a.gauge()
			if err != nil {
				return err
			}
			stmts, err := migration.CreateStatements(d, s)
			if err != nil {
				return err
			}
			ui.PrintSQL(stmts)
			return nil
		},
	}
}
