// Package clone copies a database, structure and data, from one session to
// another.
package clone

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
	"github.com/satishbabariya/schemakit/internal/core/dialect"
	"github.com/satishbabariya/schemakit/internal/core/introspection"
	"github.com/satishbabariya/schemakit/internal/core/migration"
	"github.com/satishbabariya/schemakit/internal/core/schema"
	"github.com/satishbabariya/schemakit/internal/debug"
)

// Options configures a clone run.
type Options struct {
	// Schema is cloned instead of the source's introspected schema.
	Schema *schema.Schema

	// Progress receives reports. Sends never block; a full channel drops
	// the report.
	Progress chan<- Progress

	// Tracker, when set, holds the last report.
	Tracker *Tracker

	// Tables restricts the clone to the named tables.
	Tables []string
}

// Result summarizes a run.
type Result struct {
	Stage  Stage
	Tables map[string]int64
	Rows   int64
}

// Cloner copies source into target.
type Cloner struct {
	source *database.Session
	target *database.Session
}

// New returns a Cloner. The sessions must not be used by anything else
// while a run is in progress.
func New(source, target *database.Session) *Cloner {
	return &Cloner{source: source, target: target}
}

// ErrSameSession is returned when source and target are one session.
var ErrSameSession = errors.New("source and target must be different sessions")

// Run clones the schema and every row. Canceling ctx stops the run at the
// next checkpoint; the result then has Stage Canceled and the error is nil.
// The target schema is created before any row is copied and survives a
// cancellation.
func (c *Cloner) Run(ctx context.Context, opts Options) (Result, error) {
	if c.source == c.target {
		return Result{}, ErrSameSession
	}
	r := reporter{ch: opts.Progress, tracker: opts.Tracker}
	res := Result{Tables: make(map[string]int64)}
	// Statements run to completion once started; ctx is only polled.
	db := context.WithoutCancel(ctx)

	res.Stage = FetchingSchema
	r.report(Progress{Stage: FetchingSchema})
	s, err := c.schema(db, opts)
	if err != nil {
		return res, err
	}
	if ctx.Err() != nil {
		return c.canceled(r, res), nil
	}

	res.Stage = CreatingSchema
	r.report(Progress{Stage: CreatingSchema})
	if err := migration.CreateSchema(db, c.target, c.target.Dialect(), s); err != nil {
		return res, err
	}

	tx, err := c.target.Begin(db)
	if err != nil {
		return res, err
	}
	// A no-op once committed; every early return below rolls back.
	defer c.rollback(tx)
	d := c.target.Dialect()
	tx.OnRelease(d.RestoreForeignKeysStatements()...)
	if err := c.target.ExecAll(db, d.DisableForeignKeysStatements()); err != nil {
		return res, fmt.Errorf("failed to disable foreign keys: %w", err)
	}

	for _, t := range s.Tables {
		res.Stage = FetchingRowCount
		r.report(Progress{Stage: FetchingRowCount, Table: t.Name})
		var total int64
		if err := c.source.QueryRow(db, dialect.CountStatement(c.source.Dialect(), t), nil, &total); err != nil {
			return res, fmt.Errorf("failed to count rows of %s: %w", t.Name, err)
		}
		if ctx.Err() != nil {
			return c.canceled(r, res), nil
		}

		res.Stage = CopyingData
		copied, err := c.copyTable(ctx, db, t, total, r)
		res.Tables[t.Name] = copied
		res.Rows += copied
		if errors.Is(err, errCanceled) {
			return c.canceled(r, res), nil
		}
		if err != nil {
			return res, err
		}
		if err := c.target.ExecAll(db, d.ResetSequenceStatements(t)); err != nil {
			return res, fmt.Errorf("failed to reset sequences of %s: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return res, err
	}
	res.Stage = Completed
	r.report(Progress{Stage: Completed, Percent: 100})
	debug.With("source", c.source.Dialect().Name(), "target", c.target.Dialect().Name()).
		Info("Clone completed", "tables", len(res.Tables), "rows", res.Rows)
	return res, nil
}

var errCanceled = errors.New("clone canceled")

// copyTable streams the rows of t in primary key order, one INSERT per row.
func (c *Cloner) copyTable(ctx, db context.Context, t *schema.Table, total int64, r reporter) (int64, error) {
	insert, names := dialect.InsertStatement(c.target.Dialect(), t)
	blob := make([]bool, len(t.Fields))
	for i, f := range t.Fields {
		blob[i] = f.Type.IsBlob()
	}

	var copied int64
	last := 0
	r.report(Progress{Stage: CopyingData, Table: t.Name, Percent: 0})
	err := c.source.Query(db, dialect.SelectStatement(c.source.Dialect(), t), nil, func(rows *sql.Rows) error {
		values, err := database.Values(rows)
		if err != nil {
			return fmt.Errorf("failed to read row of %s: %w", t.Name, err)
		}
		params := make(database.Params, len(names))
		for i, name := range names {
			params[name] = convert(values[i], blob[i])
		}
		if _, err := c.target.Exec(db, insert, params); err != nil {
			return fmt.Errorf("failed to copy row of %s: %w", t.Name, err)
		}
		copied++
		if p := percent(copied, total); p > last {
			last = p
			r.report(Progress{Stage: CopyingData, Table: t.Name, Percent: p})
		}
		if ctx.Err() != nil {
			return errCanceled
		}
		return nil
	})
	if err != nil {
		return copied, err
	}
	if last < 100 {
		r.report(Progress{Stage: CopyingData, Table: t.Name, Percent: 100})
	}
	return copied, nil
}

// convert turns driver byte slices into strings for non-binary columns so
// that text survives a change of backend.
func convert(v any, blob bool) any {
	if b, ok := v.([]byte); ok && !blob {
		return string(b)
	}
	return v
}

func (c *Cloner) schema(ctx context.Context, opts Options) (*schema.Schema, error) {
	s := opts.Schema
	if s == nil {
		var err error
		s, err = introspection.Introspect(ctx, c.source)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch source schema: %w", err)
		}
		s = migration.WithoutHistory(s)
	}
	if len(opts.Tables) == 0 {
		return s, nil
	}

	out := &schema.Schema{Description: s.Description, Charset: s.Charset}
	for _, name := range opts.Tables {
		t := s.TableFold(name)
		if t == nil {
			return nil, fmt.Errorf("table %s does not exist in the source schema", name)
		}
		out.Tables = append(out.Tables, t)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table selection %s: %w", strings.Join(opts.Tables, ", "), err)
	}
	return out, nil
}

// rollback ends the transaction after a failed or canceled run. Failures
// are logged since the run is already ending with another outcome.
func (c *Cloner) rollback(tx *database.Tx) {
	if err := tx.Rollback(); err != nil {
		debug.Error("Failed to roll back clone transaction", "error", err)
	}
}

func (c *Cloner) canceled(r reporter, res Result) Result {
	res.Stage = Canceled
	r.report(Progress{Stage: Canceled})
	debug.Warn("Clone canceled; the target schema was already created and is left in place")
	return res
}
