package migration

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
	"github.com/satishbabariya/schemakit/internal/core/dialect"
	"github.com/satishbabariya/schemakit/internal/core/schema"
)

// HistoryTable records every applied batch of repairs.
const HistoryTable = "schemakit_history"

// Record is one row of the history table.
type Record struct {
	ID          string
	AppliedAt   time.Time
	Fingerprint string
	Checksum    string
	Statements  int
	DurationMS  int64
}

// History reads and writes the history table.
type History struct {
	session *database.Session
}

// NewHistory returns a history manager for session.
func NewHistory(session *database.Session) *History {
	return &History{session: session}
}

func historyTable() *schema.Table {
	return &schema.Table{Name: HistoryTable, Fields: []*schema.Field{
		{Name: "id", Type: schema.Char, Length: 36, Index: schema.IndexPrimary},
		{Name: "applied_at", Type: schema.Varchar, Length: 40},
		{Name: "fingerprint", Type: schema.Char, Length: 64},
		{Name: "checksum", Type: schema.Char, Length: 64},
		{Name: "statements", Type: schema.Int},
		{Name: "duration_ms", Type: schema.BigInt},
	}}
}

// Init creates the history table if it does not exist.
func (h *History) Init(ctx context.Context) error {
	stmts, err := h.session.Dialect().CreateTableStatements(historyTable())
	if err != nil {
		return err
	}
	for i, stmt := range stmts {
		stmts[i] = strings.Replace(stmt, "CREATE TABLE ", "CREATE TABLE IF NOT EXISTS ", 1)
	}
	if err := h.session.ExecAll(ctx, stmts); err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}
	return nil
}

// Record stores an applied batch against the fingerprint of the gauge
// schema it converged to.
func (h *History) Record(ctx context.Context, applied *Applied, fingerprint string) (*Record, error) {
	rec := &Record{
		ID:          uuid.NewString(),
		AppliedAt:   time.Now().UTC(),
		Fingerprint: fingerprint,
		Checksum:    applied.Checksum,
		Statements:  len(applied.Statements),
		DurationMS:  applied.Duration.Milliseconds(),
	}
	stmt, _ := dialect.InsertStatement(h.session.Dialect(), historyTable())
	_, err := h.session.Exec(ctx, stmt, database.Params{
		"id":          rec.ID,
		"applied_at":  rec.AppliedAt.Format(time.RFC3339Nano),
		"fingerprint": rec.Fingerprint,
		"checksum":    rec.Checksum,
		"statements":  rec.Statements,
		"duration_ms": rec.DurationMS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record migration: %w", err)
	}
	return rec, nil
}

// All returns every record, oldest first.
func (h *History) All(ctx context.Context) ([]Record, error) {
	stmt := dialect.SelectStatement(h.session.Dialect(), historyTable())

	var records []Record
	err := h.session.Query(ctx, stmt, nil, func(rows *sql.Rows) error {
		var rec Record
		var appliedAt string
		if err := rows.Scan(&rec.ID, &appliedAt, &rec.Fingerprint, &rec.Checksum, &rec.Statements, &rec.DurationMS); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339Nano, appliedAt)
		if err != nil {
			return fmt.Errorf("invalid applied_at %q: %w", appliedAt, err)
		}
		rec.AppliedAt = t
		rec.ID = strings.TrimSpace(rec.ID)
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].AppliedAt.Before(records[j].AppliedAt) })
	return records, nil
}

// Last returns the newest record, or nil when nothing was applied yet.
func (h *History) Last(ctx context.Context) (*Record, error) {
	records, err := h.All(ctx)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[len(records)-1], nil
}

// WithoutHistory returns s minus the history table, so that it never shows
// up as obsolete.
func WithoutHistory(s *schema.Schema) *schema.Schema {
	out := &schema.Schema{Description: s.Description, Charset: s.Charset, ExtensionGuid: s.ExtensionGuid}
	for _, t := range s.Tables {
		if !strings.EqualFold(t.Name, HistoryTable) {
			out.Tables = append(out.Tables, t)
		}
	}
	return out
}

// Checksum returns a hex blake3 digest of stmts.
func Checksum(stmts []string) string {
	h := blake3.New()
	for _, stmt := range stmts {
		h.Write([]byte(stmt))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
