package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/schemakit/internal/core/migration"
	"github.com/satishbabariya/schemakit/internal/ui"
)

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List the repairs applied to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			records, err := migration.NewHistory(session).All(ctx)
			if err != nil {
				return fmt.Errorf("no history in %s (run diff --apply first): %w", session.Dialect().Name(), err)
			}
			if len(records) == 0 {
				ui.PrintInfo("No repairs applied yet")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					r.AppliedAt.Local().Format(time.DateTime),
					strconv.Itoa(r.Statements),
					(time.Duration(r.DurationMS) * time.Millisecond).String(),
					abbrev(r.Fingerprint),
					abbrev(r.Checksum),
				})
			}
			return ui.PrintTable([]string{"Applied", "Statements", "Duration", "Schema", "Checksum"}, rows)
		},
	}
}

func abbrev(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
