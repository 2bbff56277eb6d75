// Package migration creates schemas on live databases and applies the
// repairs found by the differ.
package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
	"github.com/satishbabariya/schemakit/internal/core/dialect"
	"github.com/satishbabariya/schemakit/internal/core/differ"
	"github.com/satishbabariya/schemakit/internal/core/schema"
	"github.com/satishbabariya/schemakit/internal/debug"
)

// CreateStatements returns the statements that create s from scratch, table
// by table in creation order. Index names are made unique first. A foreign
// key cycle is an error.
func CreateStatements(d dialect.Dialect, s *schema.Schema) ([]string, error) {
	if !s.AllIndexNamesUnique() {
		s = s.Clone()
		s.AssignSafeIndexNames()
	}
	order, err := s.CreateOrder()
	if err != nil {
		return nil, err
	}

	var stmts []string
	for _, t := range order {
		ts, err := d.CreateTableStatements(t)
		if err != nil {
			return nil, fmt.Errorf("failed to generate table %s: %w", t.Name, err)
		}
		stmts = append(stmts, ts...)
	}
	return stmts, nil
}

// CreateSchema creates every table of s on the session's database. The
// statements run one by one outside any transaction.
func CreateSchema(ctx context.Context, session *database.Session, d dialect.Dialect, s *schema.Schema) error {
	stmts, err := CreateStatements(d, s)
	if err != nil {
		return err
	}
	debug.Debug("Creating schema", "tables", len(s.Tables), "statements", len(stmts))
	if err := session.ExecAll(ctx, stmts); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Applied describes a batch of executed repair statements.
type Applied struct {
	Statements []string
	Checksum   string
	Duration   time.Duration
}

// ApplyRepairs runs the repairable, non-optional statements of errs in one
// transaction.
func ApplyRepairs(ctx context.Context, session *database.Session, errs []differ.SchemaError) (*Applied, error) {
	return ApplyStatements(ctx, session, differ.Repairs(errs))
}

// ApplyStatements runs stmts in one transaction. On backends without
// transactional DDL each statement commits implicitly, so a failure part
// way through leaves the earlier statements applied.
func ApplyStatements(ctx context.Context, session *database.Session, stmts []string) (*Applied, error) {
	applied := &Applied{Statements: stmts, Checksum: Checksum(stmts)}
	if len(stmts) == 0 {
		return applied, nil
	}
	if !session.Dialect().SupportsTransactionalDDL() {
		debug.Warn("Backend commits DDL implicitly; a failed repair cannot be rolled back",
			"dialect", session.Dialect().Name())
	}

	start := time.Now()
	tx, err := session.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := session.ExecAll(ctx, stmts); err != nil {
		return nil, fmt.Errorf("failed to apply repairs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	applied.Duration = time.Since(start)
	debug.Info("Repairs applied", "statements", len(stmts), "duration", applied.Duration)
	return applied, nil
}
