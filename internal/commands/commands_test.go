package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
	"github.com/satishbabariya/schemakit/internal/adapters/document"
	"github.com/satishbabariya/schemakit/internal/config"
	"github.com/satishbabariya/schemakit/internal/core/migration"
	"github.com/satishbabariya/schemakit/internal/ui"
)

const shop = `<database description="Shop">
  <table name="customers">
    <field name="id" type="int" index="primary" autoincrement="true"/>
    <field name="email" type="varchar(120)" index="unique"/>
    <field name="name" type="varchar(80)" nullable="true"/>
  </table>
  <table name="orders">
    <field name="id" type="bigint" index="primary" autoincrement="true"/>
    <field name="customer_id" type="int" index="foreign" references="customers.id" onUpdate="cascade"/>
    <field name="total" type="decimal(10,2)"/>
  </table>
</database>
`

type project struct {
	dir    string
	config string
	db     string
}

func newProject(t *testing.T) project {
	t.Helper()
	dir := t.TempDir()
	p := project{dir: dir, config: filepath.Join(dir, "schemakit.yaml"), db: filepath.Join(dir, "shop.db")}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "schema"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema", "base.xml"), []byte(shop), 0o644))
	cfg := fmt.Sprintf("schema_dir: %q\ndatabase_url: %q\n", filepath.Join(dir, "schema"), p.db)
	require.NoError(t, os.WriteFile(p.config, []byte(cfg), 0o644))
	return p
}

func (p project) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevErr, prevColor := ui.Out, ui.Err, color.NoColor
	ui.Out, ui.Err, color.NoColor = &buf, &buf, true
	defer func() { ui.Out, ui.Err, color.NoColor = prevOut, prevErr, prevColor }()

	err := Execute(context.Background(), append([]string{"--config", p.config}, args...))
	return buf.String(), err
}

func (p project) session(t *testing.T, path string) *database.Session {
	t.Helper()
	s, err := database.Open(context.Background(), database.Config{URL: path})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestValidate(t *testing.T) {
	p := newProject(t)
	out, err := p.run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema is valid: 2 tables")
	assert.Contains(t, out, "customers")

	ext := `<database extension="5b6d0c1e-8f0a-4d4b-9a77-3f2b1c0d9e11">
  <table name="coupons">
    <field name="id" type="int" index="primary"/>
    <field name="order_id" type="int" index="foreign" references="invoices.id"/>
  </table>
</database>`
	require.NoError(t, os.WriteFile(filepath.Join(p.dir, "schema", "coupons.xml"), []byte(ext), 0o644))
	_, err = p.run(t, "validate")
	assert.Error(t, err)
}

func TestDDL(t *testing.T) {
	p := newProject(t)
	out, err := p.run(t, "--dialect", "mysql", "ddl")
	require.NoError(t, err)

	customers := strings.Index(out, "CREATE TABLE customers")
	orders := strings.Index(out, "CREATE TABLE orders")
	require.GreaterOrEqual(t, customers, 0)
	assert.Greater(t, orders, customers)

	_, err = p.run(t, "--dialect", "oracle", "ddl")
	assert.Error(t, err)
}

func TestDiffApplyConverges(t *testing.T) {
	p := newProject(t)

	out, err := p.run(t, "diff", "--exit-code")
	assert.True(t, errors.Is(err, ErrDifferences))
	assert.Contains(t, out, "+ table customers is missing")
	assert.Contains(t, out, "+ table orders is missing")

	out, err = p.run(t, "diff", "--apply", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied")

	out, err = p.run(t, "diff", "--exit-code", "--format", "json")
	require.NoError(t, err)
	var report ui.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Empty(t, report.Errors)
	assert.Equal(t, "schema is up to date", report.Summary)

	records, err := migration.NewHistory(p.session(t, p.db)).All(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Greater(t, records[0].Statements, 1)

	out, err = p.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, records[0].Checksum[:12])
}

func TestDiffFlags(t *testing.T) {
	p := newProject(t)
	_, err := p.run(t, "diff", "--format", "html")
	assert.Error(t, err)
	_, err = p.run(t, "diff", "--watch", "--apply")
	assert.Error(t, err)
}

func TestPull(t *testing.T) {
	p := newProject(t)
	_, err := p.run(t, "diff", "--apply", "--yes")
	require.NoError(t, err)

	target := filepath.Join(p.dir, "pulled", "shop.xml")
	_, err = p.run(t, "pull", "--description", "pulled", target)
	require.NoError(t, err)

	docs, err := document.NewLoader(nil).Load(filepath.Join(p.dir, "pulled"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	s := docs[0]
	assert.Equal(t, "pulled", s.Description)
	require.Len(t, s.Tables, 2)
	assert.NotNil(t, s.TableFold("customers"))
	assert.Nil(t, s.TableFold(migration.HistoryTable))
	assert.Equal(t, "customers", s.TableFold("orders").Field("customer_id").RefTable)
}

func TestClone(t *testing.T) {
	p := newProject(t)
	_, err := p.run(t, "diff", "--apply", "--yes")
	require.NoError(t, err)

	ctx := context.Background()
	src := p.session(t, p.db)
	_, err = src.Exec(ctx, "INSERT INTO customers (id, email) VALUES (1, 'a@example.com')", nil)
	require.NoError(t, err)
	_, err = src.Exec(ctx, "INSERT INTO orders (id, customer_id, total) VALUES (1, 1, 9.5), (2, 1, 3)", nil)
	require.NoError(t, err)
	require.NoError(t, src.Close())

	copyDB := filepath.Join(p.dir, "copy.db")
	out, err := p.run(t, "clone", "--quiet", "--target-url", copyDB)
	require.NoError(t, err)
	assert.Contains(t, out, "Cloned 3 rows in 2 tables")

	var n int
	require.NoError(t, p.session(t, copyDB).QueryRow(ctx, "SELECT COUNT(*) FROM orders", nil, &n))
	assert.Equal(t, 2, n)
}

func TestCloneNeedsTarget(t *testing.T) {
	p := newProject(t)
	_, err := p.run(t, "clone", "--quiet")
	assert.True(t, errors.Is(err, config.ErrNoDatabaseURL))
}

func TestInit(t *testing.T) {
	p := newProject(t)
	dir := filepath.Join(p.dir, "fresh")
	_, err := p.run(t, "--dialect", "sqlite", "init", dir)
	require.NoError(t, err)

	cfg, err := config.Load(filepath.Join(dir, ".schemakit.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "schema", cfg.SchemaDir)
	assert.Equal(t, "sqlite", cfg.Dialect)

	s, err := document.NewLoader(nil).LoadAndAssemble(filepath.Join(dir, "schema"))
	require.NoError(t, err)
	assert.NotNil(t, s.Table("customers"))

	out, err := p.run(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestVersion(t *testing.T) {
	p := newProject(t)
	out, err := p.run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "schemakit version "))
}
