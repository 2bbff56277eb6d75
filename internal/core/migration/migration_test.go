package migration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
	"github.com/satishbabariya/schemakit/internal/core/dialect"
	"github.com/satishbabariya/schemakit/internal/core/differ"
	"github.com/satishbabariya/schemakit/internal/core/schema"
)

func openSQLite(t *testing.T) *database.Session {
	t.Helper()
	s, err := database.Open(context.Background(), database.Config{
		Driver: "sqlite3",
		URL:    filepath.Join(t.TempDir(), "migrate.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func shop() *schema.Schema {
	return &schema.Schema{Tables: []*schema.Table{
		{Name: "lines", Fields: []*schema.Field{
			{Name: "id", Type: schema.Int, Index: schema.IndexPrimary, AutoIncrement: true},
			{Name: "order_id", Type: schema.Int, Index: schema.IndexForeign, RefTable: "orders", RefField: "id"},
		}},
		{Name: "orders", Fields: []*schema.Field{
			{Name: "id", Type: schema.Int, Index: schema.IndexPrimary, AutoIncrement: true},
			{Name: "code", Type: schema.Varchar, Length: 20, Index: schema.IndexUnique},
		}},
	}}
}

func tableCount(t *testing.T, s *database.Session) int {
	t.Helper()
	var n int
	require.NoError(t, s.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'", nil, &n))
	return n
}

func TestCreateStatementsFollowCreationOrder(t *testing.T) {
	s := shop()
	stmts, err := CreateStatements(dialect.MySQL{}, s)
	require.NoError(t, err)
	require.Len(t, stmts, 5)
	assert.Contains(t, stmts[0], "CREATE TABLE orders")
	assert.Equal(t, "CREATE UNIQUE INDEX orders_code_idx ON orders (code)", stmts[1])
	assert.Contains(t, stmts[2], "CREATE TABLE lines")
	assert.Contains(t, stmts[4], "ADD CONSTRAINT lines_order_id_fk")

	// the caller's schema keeps its names
	assert.Empty(t, s.Tables[0].Fields[1].IndexName)
}

func TestCreateStatementsRejectsCycles(t *testing.T) {
	s := shop()
	s.Tables[1].Fields = append(s.Tables[1].Fields, &schema.Field{
		Name: "last_line", Type: schema.Int, Nullable: true, Index: schema.IndexForeign, RefTable: "lines", RefField: "id",
	})

	_, err := CreateStatements(dialect.SQLite{}, s)
	var cycle *schema.CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Contains(t, cycle.Tables, "orders")
	assert.Contains(t, cycle.Tables, "lines")
}

func TestCreateSchema(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	require.NoError(t, CreateSchema(ctx, s, s.Dialect(), shop()))
	assert.Equal(t, 2, tableCount(t, s))

	_, err := s.Exec(ctx, "INSERT INTO orders (code) VALUES (:code)", database.Params{"code": "A1"})
	require.NoError(t, err)
	_, err = s.Exec(ctx, "INSERT INTO orders (code) VALUES (:code)", database.Params{"code": "A1"})
	assert.True(t, database.IsExecError(err))
}

func TestApplyRepairsSkipsOptionalAndUnrepairable(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	errs := []differ.SchemaError{
		{Kind: differ.TableMissing, Table: "a", Statements: []string{"CREATE TABLE a (id INTEGER)"}},
		{Kind: differ.TableObsolete, Table: "b", Statements: []string{"DROP TABLE b"}},
		{Kind: differ.FieldObsolete, Table: "a", Field: "x", Unrepairable: true},
	}

	applied, err := ApplyRepairs(ctx, s, errs)
	require.NoError(t, err)
	assert.Equal(t, []string{"CREATE TABLE a (id INTEGER)"}, applied.Statements)
	assert.Equal(t, Checksum(applied.Statements), applied.Checksum)
	assert.Equal(t, 1, tableCount(t, s))
	assert.False(t, s.InTransaction())
}

func TestApplyStatementsRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	_, err := ApplyStatements(ctx, s, []string{
		"CREATE TABLE a (id INTEGER)",
		"CREATE TABLE a (id INTEGER)",
	})
	require.Error(t, err)
	assert.True(t, database.IsExecError(err))
	assert.False(t, s.InTransaction())
	assert.Equal(t, 0, tableCount(t, s))
}

func TestApplyStatementsEmpty(t *testing.T) {
	s := openSQLite(t)
	applied, err := ApplyStatements(context.Background(), s, nil)
	require.NoError(t, err)
	assert.Empty(t, applied.Statements)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	h := NewHistory(s)
	require.NoError(t, h.Init(ctx))
	require.NoError(t, h.Init(ctx))

	last, err := h.Last(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	first, err := h.Record(ctx, &Applied{Statements: []string{"a", "b"}, Checksum: Checksum([]string{"a", "b"}), Duration: 3 * time.Millisecond}, "f1")
	require.NoError(t, err)
	_, err = h.Record(ctx, &Applied{Statements: []string{"c"}, Checksum: Checksum([]string{"c"})}, "f2")
	require.NoError(t, err)

	records, err := h.All(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[0].ID)
	assert.Equal(t, 2, records[0].Statements)
	assert.Equal(t, int64(3), records[0].DurationMS)

	last, err = h.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, "f2", last.Fingerprint)
}

func TestWithoutHistory(t *testing.T) {
	s := &schema.Schema{Tables: []*schema.Table{{Name: "orders"}, {Name: "SCHEMAKIT_HISTORY"}}}
	out := WithoutHistory(s)
	require.Len(t, out.Tables, 1)
	assert.Equal(t, "orders", out.Tables[0].Name)
	assert.Len(t, s.Tables, 2)
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, Checksum([]string{"a", "b"}), Checksum([]string{"a", "b"}))
	assert.NotEqual(t, Checksum([]string{"ab"}), Checksum([]string{"a", "b"}))
	assert.Len(t, Checksum(nil), 64)
}
