package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
	"github.com/satishbabariya/schemakit/internal/adapters/document"
	"github.com/satishbabariya/schemakit/internal/core/differ"
	"github.com/satishbabariya/schemakit/internal/core/introspection"
	"github.com/satishbabariya/schemakit/internal/core/migration"
	"github.com/satishbabariya/schemakit/internal/core/schema"
	"github.com/satishbabariya/schemakit/internal/ui"
	"github.com/satishbabariya/schemakit/internal/watch"
)

// ErrDifferences is returned by diff --exit-code when the database does
// not match the schema.
var ErrDifferences = errors.New("database differs from schema")

type diffOptions struct {
	format       string
	apply        bool
	yes          bool
	watch        bool
	dropObsolete bool
	exitCode     bool
}

func newDiffCmd(a *app) *cobra.Command {
	o := &diffOptions{}
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the schema with the database",
		Long: `Introspect the database, compare it with the schema documents and report
every difference together with the statements that repair it.

With --apply the repairs run in one transaction after confirmation and are
recorded in the history table. Obsolete tables are only dropped with
--drop-obsolete; obsolete fields are never dropped automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ui.ParseFormat(o.format)
			if err != nil {
				return err
			}
			if o.watch && o.apply {
				return errors.New("--watch cannot be combined with --apply")
			}

			ctx := cmd.Context()
			session, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			if !o.watch {
				return o.run(ctx, a, session, f)
			}
			return o.runWatch(ctx, a, session, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.format, "format", "f", string(ui.FormatText), fmt.Sprintf("report format %v", ui.Formats))
	flags.BoolVar(&o.apply, "apply", false, "apply the repairs")
	flags.BoolVarP(&o.yes, "yes", "y", false, "apply without asking")
	flags.BoolVarP(&o.watch, "watch", "w", false, "compare again whenever a schema document changes")
	flags.BoolVar(&o.dropObsolete, "drop-obsolete", false, "include optional repairs that drop obsolete tables")
	flags.BoolVar(&o.exitCode, "exit-code", false, "fail when differences are found")
	return cmd
}

func (o *diffOptions) run(ctx context.Context, a *app, session *database.Session, f ui.Format) error {
	gauge, err := a.gauge()
	if err != nil {
		return err
	}
	actual, err := introspection.Introspect(ctx, session)
	if err != nil {
		return err
	}
	errs, err := differ.New(session.Dialect()).Compare(gauge, migration.WithoutHistory(actual))
	if err != nil {
		return err
	}

	report := ui.NewReport(errs, o.dropObsolete)
	if err := report.Render(ui.Out, f); err != nil {
		return err
	}

	if o.apply {
		return o.applyRepairs(ctx, session, gauge, report)
	}
	if o.exitCode && len(errs) > 0 {
		return ErrDifferences
	}
	return nil
}

func (o *diffOptions) runWatch(ctx context.Context, a *app, session *database.Session, f ui.Format) error {
	w, err := watch.NewWatcher(a.cfg.SchemaDir, document.Ext, func() error {
		if err := o.run(ctx, a, session, f); err != nil && !errors.Is(err, ErrDifferences) {
			ui.PrintError("%v", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Start(); err != nil {
		return err
	}
	ui.PrintInfo("Watching %s, press Ctrl-C to stop", w.Root())
	<-ctx.Done()
	return nil
}

func (o *diffOptions) applyRepairs(ctx context.Context, session *database.Session, gauge *schema.Schema, report ui.Report) error {
	if len(report.Repairs) == 0 {
		ui.PrintInfo("Nothing to apply")
		return nil
	}
	if !o.yes {
		ok := false
		prompt := &survey.Confirm{Message: fmt.Sprintf("Apply %d statement(s)?", len(report.Repairs))}
		if err := survey.AskOne(prompt, &ok); err != nil {
			return err
		}
		if !ok {
			ui.PrintWarning("Nothing applied")
			return nil
		}
	}

	history := migration.NewHistory(session)
	if err := history.Init(ctx); err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}
	applied, err := migration.ApplyStatements(ctx, session, report.Repairs)
	if err != nil {
		return err
	}
	rec, err := history.Record(ctx, applied, gauge.Fingerprint())
	if err != nil {
		return err
	}

	ui.PrintSuccess("Applied %d statement(s) in %s (%s)", len(applied.Statements), applied.Duration.Round(time.Millisecond), rec.ID)
	if report.Unrepairable > 0 {
		ui.PrintWarning("%d difference(s) need a manual repair", report.Unrepairable)
	}
	return nil
}
