package introspection

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/schemakit/internal/adapters/database"
	"github.com/satishbabariya/schemakit/internal/core/dialect"
	"github.com/satishbabariya/schemakit/internal/core/differ"
	"github.com/satishbabariya/schemakit/internal/core/migration"
	"github.com/satishbabariya/schemakit/internal/core/schema"
)

func openSQLite(t *testing.T) *database.Session {
	t.Helper()
	s, err := database.Open(context.Background(), database.Config{
		Driver: "sqlite3",
		URL:    filepath.Join(t.TempDir(), "shop.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func customers(v2 bool) *schema.Table {
	t := &schema.Table{Name: "customers", Fields: []*schema.Field{
		{Name: "id", Type: schema.Int, Index: schema.IndexPrimary, AutoIncrement: true},
		{Name: "email", Type: schema.Varchar, Length: 120, Index: schema.IndexUnique},
		{Name: "name", Type: schema.Varchar, Length: 80, Nullable: true},
	}}
	if v2 {
		t.Field("email").Index = schema.IndexSimple
		t.Fields = append(t.Fields,
			&schema.Field{Name: "status", Type: schema.Enum, EnumValues: []string{"active", "blocked"}},
			&schema.Field{Name: "nickname", Type: schema.Text, Nullable: true},
		)
	}
	return t
}

func orders(v2 bool) *schema.Table {
	t := &schema.Table{Name: "orders", Fields: []*schema.Field{
		{Name: "id", Type: schema.BigInt, Index: schema.IndexPrimary, AutoIncrement: true},
		{Name: "customer_id", Type: schema.Int, Index: schema.IndexForeign, RefTable: "customers", RefField: "id",
			OnUpdate: schema.ActionCascade, OnDelete: schema.ActionRestrict},
		{Name: "total", Type: schema.Decimal, Length: 10, Scale: 2},
	}}
	if v2 {
		t.Fields = append(t.Fields,
			&schema.Field{Name: "placed_on", Type: schema.Date, Index: schema.IndexSimple},
			&schema.Field{Name: "note", Type: schema.Text, Nullable: true},
		)
	}
	return t
}

func payments() *schema.Table {
	return &schema.Table{Name: "payments", Fields: []*schema.Field{
		{Name: "id", Type: schema.Int, Index: schema.IndexPrimary, AutoIncrement: true},
		{Name: "order_id", Type: schema.BigInt, Index: schema.IndexForeign, RefTable: "orders", RefField: "id",
			OnUpdate: schema.ActionCascade, OnDelete: schema.ActionCascade},
		{Name: "paid_at", Type: schema.DateTime},
	}}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	gauge := &schema.Schema{Tables: []*schema.Table{orders(true), customers(true), payments()}}
	gauge.AssignSafeIndexNames()
	require.NoError(t, migration.CreateSchema(ctx, s, s.Dialect(), gauge))

	actual, err := Introspect(ctx, s)
	require.NoError(t, err)
	require.Len(t, actual.Tables, 3)

	errs, err := differ.New(s.Dialect()).Compare(gauge, actual)
	require.NoError(t, err)
	assert.Empty(t, errs)

	c := actual.Table("customers")
	require.NotNil(t, c)
	assert.True(t, c.Field("id").IsAutoIncrement())
	assert.Equal(t, schema.Enum, c.Field("status").Type)
	assert.Equal(t, []string{"active", "blocked"}, c.Field("status").EnumValues)
	assert.True(t, c.Field("nickname").Nullable)

	o := actual.Table("orders")
	require.NotNil(t, o)
	fk := o.Field("customer_id")
	assert.Equal(t, schema.IndexForeign, fk.Index)
	assert.Equal(t, "orders_customer_id_fk", fk.IndexName)
	assert.Equal(t, schema.ActionCascade, fk.OnUpdate)
	assert.Equal(t, schema.ActionRestrict, fk.OnDelete)
	assert.Equal(t, schema.Decimal, o.Field("total").Type)
	assert.Equal(t, 10, o.Field("total").Length)
	assert.Equal(t, 2, o.Field("total").Scale)
	assert.Equal(t, schema.IndexSimple, o.Field("placed_on").Index)
}

func TestRepairConvergence(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	old := &schema.Schema{Tables: []*schema.Table{
		customers(false),
		orders(false),
		{Name: "legacy", Fields: []*schema.Field{{Name: "id", Type: schema.Int, Index: schema.IndexPrimary}}},
	}}
	require.NoError(t, migration.CreateSchema(ctx, s, s.Dialect(), old))
	_, err := s.Exec(ctx, "INSERT INTO customers (email, name) VALUES (:email, :name)",
		database.Params{"email": "a@example.com", "name": "Ann"})
	require.NoError(t, err)
	_, err = s.Exec(ctx, "INSERT INTO orders (customer_id, total) VALUES (1, 9.5)", nil)
	require.NoError(t, err)

	gauge := &schema.Schema{Tables: []*schema.Table{payments(), customers(true), orders(true)}}
	gauge.AssignSafeIndexNames()
	d := differ.New(s.Dialect())

	actual, err := Introspect(ctx, s)
	require.NoError(t, err)
	errs, err := d.Compare(gauge, actual)
	require.NoError(t, err)
	require.NotEmpty(t, errs)
	assert.Equal(t, differ.TableMissing, errs[0].Kind)
	assert.Equal(t, "payments", errs[0].Table)

	_, err = migration.ApplyRepairs(ctx, s, errs)
	require.NoError(t, err)

	actual, err = Introspect(ctx, s)
	require.NoError(t, err)
	errs, err = d.Compare(gauge, actual)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, differ.TableObsolete, errs[0].Kind)
	assert.True(t, errs[0].Optional())
	assert.Empty(t, differ.Repairs(errs))

	var status string
	require.NoError(t, s.QueryRow(ctx, "SELECT status FROM customers", nil, &status))
	assert.Equal(t, "active", status)
}

func TestSQLiteDeclaredColumns(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	require.NoError(t, s.ExecAll(ctx, []string{
		`CREATE TABLE tags (
			id INTEGER PRIMARY KEY, -- no AUTOINCREMENT here
			kind VARCHAR(4) NOT NULL CHECK ("kind" IN ('x(1)', 'y', 'it''s')),
			label TEXT DEFAULT 'AUTOINCREMENT' /* AUTOINCREMENT */
		)`,
		`CREATE TABLE counters ("id" INTEGER PRIMARY KEY AUTOINCREMENT, n INTEGER)`,
	}))

	actual, err := Introspect(ctx, s)
	require.NoError(t, err)

	tags := actual.Table("tags")
	require.NotNil(t, tags)
	assert.False(t, tags.Field("id").IsAutoIncrement())
	assert.Equal(t, schema.Enum, tags.Field("kind").Type)
	assert.Equal(t, []string{"x(1)", "y", "it's"}, tags.Field("kind").EnumValues)

	counters := actual.Table("counters")
	require.NotNil(t, counters)
	assert.True(t, counters.Field("id").IsAutoIncrement())
}

func TestSQLiteAutoIncrement(t *testing.T) {
	assert.True(t, sqliteAutoIncrement(`CREATE TABLE a ("id" INTEGER PRIMARY KEY AUTOINCREMENT)`, "id"))
	assert.True(t, sqliteAutoIncrement("CREATE TABLE a (`ID` integer primary key asc autoincrement, b TEXT)", "id"))
	assert.False(t, sqliteAutoIncrement(`CREATE TABLE a (id INTEGER PRIMARY KEY, note TEXT DEFAULT 'AUTOINCREMENT')`, "id"))
	assert.False(t, sqliteAutoIncrement(`CREATE TABLE a (id INTEGER PRIMARY KEY /* AUTOINCREMENT */)`, "id"))
	assert.False(t, sqliteAutoIncrement(`CREATE TABLE a (pid INTEGER PRIMARY KEY AUTOINCREMENT, id INTEGER)`, "id"))
}

func TestIntrospectEmptyDatabase(t *testing.T) {
	s := openSQLite(t)
	actual, err := Introspect(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, actual.Tables)
}

func TestMultiColumnIndexesAreSkipped(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	require.NoError(t, s.ExecAll(ctx, []string{
		"CREATE TABLE pairs (a INTEGER NOT NULL, b INTEGER NOT NULL, label TEXT, PRIMARY KEY (a, b))",
		"CREATE INDEX pairs_ab ON pairs (a, b)",
		"CREATE UNIQUE INDEX pairs_label ON pairs (label)",
	}))

	actual, err := Introspect(ctx, s)
	require.NoError(t, err)
	p := actual.Table("pairs")
	require.NotNil(t, p)
	assert.Len(t, p.PrimaryKey(), 2)
	assert.Equal(t, schema.IndexUnique, p.Field("label").Index)
	assert.Equal(t, "pairs_label", p.Field("label").IndexName)
}

func TestNewPicksBackendFromDialect(t *testing.T) {
	s := openSQLite(t)
	i, err := New(s)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteIntrospector{}, i)
}

func TestSQLiteType(t *testing.T) {
	tests := []struct {
		declared string
		want     schema.DataType
		length   int
	}{
		{"INTEGER", schema.Int, 0},
		{"VARCHAR(40)", schema.Varchar, 40},
		{"NUMERIC", schema.Decimal, 0},
		{"MEDIUMTEXT", schema.MediumText, 0},
		{"NVARCHAR(10)", schema.Text, 0},
		{"UNSIGNED BIG INT", schema.BigInt, 0},
		{"", schema.Blob, 0},
		{"DOUBLE PRECISION", schema.Double, 0},
		{"BOOLEAN", schema.Decimal, 0},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			f := &schema.Field{}
			sqliteType(f, tt.declared)
			assert.Equal(t, tt.want, f.Type)
			assert.Equal(t, tt.length, f.Length)
		})
	}
}

func TestMySQLType(t *testing.T) {
	tests := []struct {
		columnType string
		want       schema.DataType
		unsigned   bool
		length     int
		scale      int
		values     []string
	}{
		{columnType: "int(11) unsigned", want: schema.Int, unsigned: true},
		{columnType: "tinyint(1)", want: schema.TinyInt},
		{columnType: "decimal(12,3)", want: schema.Decimal, length: 12, scale: 3},
		{columnType: "varchar(64)", want: schema.Varchar, length: 64},
		{columnType: "tinytext", want: schema.Text},
		{columnType: "json", want: schema.LongText},
		{columnType: "year", want: schema.SmallInt},
		{columnType: "enum('new','it''s')", want: schema.Enum, values: []string{"new", "it's"}},
		{columnType: "geometry", want: schema.LongText},
	}

	for _, tt := range tests {
		t.Run(tt.columnType, func(t *testing.T) {
			f := &schema.Field{}
			require.NoError(t, mysqlType(f, tt.columnType))
			assert.Equal(t, tt.want, f.Type)
			assert.Equal(t, tt.unsigned, f.Unsigned)
			assert.Equal(t, tt.length, f.Length)
			assert.Equal(t, tt.scale, f.Scale)
			assert.Equal(t, tt.values, f.EnumValues)
		})
	}
}

func TestPostgresType(t *testing.T) {
	f := &schema.Field{}
	postgresType(f, "character varying", 50, 0, 0)
	assert.Equal(t, schema.Varchar, f.Type)
	assert.Equal(t, 50, f.Length)

	f = &schema.Field{}
	postgresType(f, "numeric", 0, 18, 4)
	assert.Equal(t, schema.Decimal, f.Type)
	assert.Equal(t, 18, f.Length)
	assert.Equal(t, 4, f.Scale)

	f = &schema.Field{}
	postgresType(f, "timestamp with time zone", 0, 0, 0)
	assert.Equal(t, schema.Timestamp, f.Type)

	f = &schema.Field{}
	postgresType(f, "tsvector", 0, 0, 0)
	assert.Equal(t, schema.Text, f.Type)
}

func TestParseEnumCheck(t *testing.T) {
	column, values, ok := parseEnumCheck(
		"CHECK (((status)::text = ANY ((ARRAY['new'::character varying, 'it''s'::character varying])::text[])))")
	require.True(t, ok)
	assert.Equal(t, "status", column)
	assert.Equal(t, []string{"new", "it's"}, values)

	_, _, ok = parseEnumCheck("CHECK ((total > (0)::numeric))")
	assert.False(t, ok)
}

func TestPostgresDefault(t *testing.T) {
	assert.Equal(t, "'x'", postgresDefault("'x'::character varying"))
	assert.Equal(t, "0", postgresDefault("0"))
	assert.Equal(t, "CURRENT_TIMESTAMP", postgresDefault("CURRENT_TIMESTAMP"))
}

func TestBuildClassifiesForeignPrimary(t *testing.T) {
	r := newRawTable("profiles")
	r.table.Fields = []*schema.Field{{Name: "user_id", Type: schema.Int}, {Name: "bio", Type: schema.Text}}
	r.primary = []string{"user_id"}
	r.addForeignKeyColumn(rawForeignKey{name: "profiles_user_fk", columns: []string{"user_id"},
		refTable: "users", refColumns: []string{"id"}, onUpdate: "NO ACTION", onDelete: "CASCADE"})
	r.addIndexColumn("profiles_user_fk"+dialect.SupportIndexSuffix, "user_id", false, false)

	tbl := r.build()
	f := tbl.Field("user_id")
	assert.Equal(t, schema.IndexForeignPrimary, f.Index)
	assert.Equal(t, "profiles_user_fk", f.IndexName)
	assert.Equal(t, schema.ActionRestrict, f.OnUpdate)
	assert.Equal(t, schema.ActionCascade, f.OnDelete)
	assert.Equal(t, schema.IndexNone, tbl.Field("bio").Index)
}
