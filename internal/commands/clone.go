package commands

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
	"github.com/satishbabariya/schemakit/internal/core/clone"
	"github.com/satishbabariya/schemakit/internal/ui"
)

type cloneOptions struct {
	targetURL     string
	targetDialect string
	targetDriver  string
	tables        []string
	fromSchema    bool
	quiet         bool
}

func newCloneCmd(a *app) *cobra.Command {
	o := &cloneOptions{}
	cmd := &cobra.Command{
		Use:   "clone",
		Short: "Copy the database schema and data into another database",
		Long: `Create the source schema on the target and copy every row inside one
transaction with foreign key checks deferred. The target schema is created
first; interrupting the copy rolls back the rows but keeps the schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.targetURL != "" {
				a.cfg.TargetURL = o.targetURL
			}
			if o.targetDialect != "" {
				a.cfg.TargetDialect = o.targetDialect
			}
			if o.targetDriver != "" {
				a.cfg.TargetDriver = o.targetDriver
			}

			ctx := cmd.Context()
			source, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer source.Close()

			targetCfg, err := a.cfg.Target()
			if err != nil {
				return err
			}
			target, err := database.Open(ctx, targetCfg)
			if err != nil {
				return err
			}
			defer target.Close()

			opts := clone.Options{Tables: o.tables}
			if o.fromSchema {
				if opts.Schema, err = a.gauge(); err != nil {
					return err
				}
			}

			var ch chan clone.Progress
			done := make(chan struct{})
			if o.quiet {
				close(done)
			} else {
				ch = make(chan clone.Progress, 64)
				opts.Progress = ch
				go func() {
					ui.CloneProgress(ch)
					close(done)
				}()
			}

			res, err := clone.New(source, target).Run(ctx, opts)
			if ch != nil {
				close(ch)
			}
			<-done
			if err != nil {
				return err
			}
			if res.Stage == clone.Canceled {
				ui.PrintWarning("Clone canceled: the target schema exists but no rows were kept")
				return nil
			}

			names := make([]string, 0, len(res.Tables))
			for name := range res.Tables {
				names = append(names, name)
			}
			sort.Strings(names)
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name, strconv.FormatInt(res.Tables[name], 10)})
			}
			if err := ui.PrintTable([]string{"Table", "Rows"}, rows); err != nil {
				return err
			}
			ui.PrintSuccess("Cloned %d rows in %d tables", res.Rows, len(res.Tables))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.targetURL, "target-url", "", "target database url")
	flags.StringVar(&o.targetDialect, "target-dialect", "", "target dialect")
	flags.StringVar(&o.targetDriver, "target-driver", "", "target database/sql driver name")
	flags.StringSliceVarP(&o.tables, "tables", "t", nil, "clone only these tables")
	flags.BoolVar(&o.fromSchema, "from-schema", false, "create the target from the schema documents instead of the source")
	flags.BoolVarP(&o.quiet, "quiet", "q", false, "do not show progress")
	return cmd
}
