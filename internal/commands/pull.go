package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/schemakit/internal/adapters/document"
	"github.com/satishbabariya/schemakit/internal/config"
	"github.com/satishbabariya/schemakit/internal/core/introspection"
	"github.com/satishbabariya/schemakit/internal/core/migration"
	"github.com/satishbabariya/schemakit/internal/ui"
)

func newPullCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "pull <output.xml>",
		Short: "Write the database schema to a document",
		Long: `Introspect the database and write its schema as a base document. Indexes
spanning several columns have no document form and are left out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			actual, err := introspection.Introspect(ctx, session)
			if err != nil {
				return err
			}
			s := migration.WithoutHistory(actual)
			s.Description = description
			if err := s.Validate(); err != nil {
				ui.PrintWarning("The pulled schema needs editing before use: %v", err)
			}

			if err := document.NewLoader(config.AppFs).Save(args[0], s); err != nil {
				return err
			}
			ui.PrintSuccess("Wrote %d tables to %s", len(s.Tables), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "description of the written schema")
	return cmd
}
