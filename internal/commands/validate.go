package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/schemakit/internal/core/schema"
	"github.com/satishbabariya/schemakit/internal/ui"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the schema documents",
		Long: `Load every schema document, assemble the base schema with its extensions
and check the result: unique names, resolvable references, primary keys and
a creation order free of cycles.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.gauge()
			if err != nil {
				return err
			}
			if _, err := s.CreateOrder(); err != nil {
				return err
			}

			rows := make([][]string, 0, len(s.Tables))
			for _, t := range s.Tables {
				ext := t.ExtensionGuid
				if ext == "" {
					ext = "base"
				}
				rows = append(rows, []string{t.Name, strconv.Itoa(len(t.Fields)), strconv.Itoa(len(t.ForeignKeys())), ext})
			}
			ui.PrintSection("Tables")
			if err := ui.PrintTable([]string{"Table", "Fields", "References", "Source"}, rows); err != nil {
				return err
			}
			if !s.AllIndexNamesUnique() {
				ui.PrintWarning("index names clash; safe names will be generated")
			}
			ui.PrintSuccess("Schema is valid: %d tables, fingerprint %s", len(s.Tables), short(s))
			return nil
		},
	}
}

func short(s *schema.Schema) string {
	return abbrev(s.Fingerprint())
}
