package document

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/schemakit/internal/core/schema"
)

const base = `<?xml version="1.0" encoding="UTF-8"?>
<database description="Shop" charset="utf8mb4" formatVersion="1.0">
  <table name="customers" engine="InnoDB">
    <field name="id" type="int unsigned" index="primary" autoincrement="true"/>
    <field name="email" type="varchar(120)" index="unique" indexName="customers_email"/>
    <field name="status" type="enum">
      <value>active</value>
      <value>it's blocked</value>
    </field>
  </table>
  <table name="orders" description="Placed orders">
    <field name="id" type="bigint" index="primary" autoincrement="true"/>
    <field name="customer_id" type="int" index="foreign" references="customers.id" onUpdate="cascade" onDelete="set null" nullable="true"/>
    <field name="total" type="decimal(10,2)" default="0"/>
    <field name="code" type="char(8)" length="12"/>
  </table>
</database>
`

const extensionID = "5b6d0c1e-8f0a-4d4b-9a77-3f2b1c0d9e11"

const extension = `<database extension="` + extensionID + `" formatVersion="1.2">
  <table name="coupons">
    <field name="id" type="int" index="primary"/>
    <field name="order_id" type="bigint" index="foreign" references="orders.id"/>
  </table>
</database>`

func TestParse(t *testing.T) {
	s, err := Parse(strings.NewReader(base))
	require.NoError(t, err)
	assert.Equal(t, "Shop", s.Description)
	assert.Equal(t, "utf8mb4", s.Charset)
	assert.Empty(t, s.ExtensionGuid)
	require.Len(t, s.Tables, 2)

	c := s.Table("customers")
	assert.Equal(t, "InnoDB", c.Engine)
	id := c.Field("id")
	assert.Equal(t, schema.Int, id.Type)
	assert.True(t, id.Unsigned)
	assert.True(t, id.IsAutoIncrement())
	assert.Equal(t, "customers_email", c.Field("email").IndexName)
	assert.Equal(t, 120, c.Field("email").Length)
	assert.Equal(t, []string{"active", "it's blocked"}, c.Field("status").EnumValues)
	assert.Empty(t, c.Field("status").OnUpdate)

	o := s.Table("orders")
	assert.Equal(t, "Placed orders", o.Description)
	fk := o.Field("customer_id")
	assert.Equal(t, schema.IndexForeign, fk.Index)
	assert.Equal(t, "customers", fk.RefTable)
	assert.Equal(t, "id", fk.RefField)
	assert.Equal(t, schema.ActionCascade, fk.OnUpdate)
	assert.Equal(t, schema.ActionSetNull, fk.OnDelete)
	assert.True(t, fk.Nullable)

	total := o.Field("total")
	assert.Equal(t, 10, total.Length)
	assert.Equal(t, 2, total.Scale)
	assert.Equal(t, "0", total.Default)
	assert.Equal(t, 12, o.Field("code").Length)

	require.NoError(t, s.Validate())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"no root", `<schema/>`, ErrNoDatabase},
		{"newer format", `<database formatVersion="2.0"/>`, ErrUnsupportedFormat},
		{"bad format", `<database formatVersion="one"/>`, ErrUnsupportedFormat},
		{"unknown type", `<database><table name="t"><field name="g" type="geometry"/></table></database>`, schema.ErrUnknownDataType},
		{"unknown index", `<database><table name="t"><field name="g" type="int" index="spatial"/></table></database>`, schema.ErrUnknownIndexKind},
		{"unknown action", `<database><table name="t"><field name="g" type="int" index="foreign" references="u.id" onDelete="explode"/></table></database>`, schema.ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseAttributeError(t *testing.T) {
	_, err := ParseBytes([]byte(`<database><table name="t"><field name="n" type="int" nullable="maybe"/></table></database>`))
	var attrErr *AttributeError
	require.True(t, errors.As(err, &attrErr))
	assert.Equal(t, "t", attrErr.Table)
	assert.Equal(t, "n", attrErr.Field)
	assert.Equal(t, "nullable", attrErr.Attribute)

	_, err = ParseBytes([]byte(`<database><table name="t"><field name="r" type="int" index="foreign" references="users"/></table></database>`))
	require.True(t, errors.As(err, &attrErr))
	assert.Equal(t, "references", attrErr.Attribute)
}

func TestWriteRoundTrip(t *testing.T) {
	s, err := Parse(strings.NewReader(base))
	require.NoError(t, err)

	data, err := Write(s)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"))

	again, err := ParseBytes(data)
	require.NoError(t, err)
	assert.Equal(t, s, again)
	assert.Equal(t, s.Fingerprint(), again.Fingerprint())
}

func TestWriteRejectsUnknownType(t *testing.T) {
	_, err := Write(&schema.Schema{Tables: []*schema.Table{{Name: "t", Fields: []*schema.Field{{Name: "g", Type: "geometry"}}}}})
	assert.ErrorIs(t, err, schema.ErrUnknownDataType)
}

func TestTypeExpr(t *testing.T) {
	assert.Equal(t, "varchar(100)", TypeExpr(&schema.Field{Type: schema.Varchar, Length: 100}))
	assert.Equal(t, "decimal(10,2)", TypeExpr(&schema.Field{Type: schema.Decimal, Length: 10, Scale: 2}))
	assert.Equal(t, "int unsigned", TypeExpr(&schema.Field{Type: schema.Int, Unsigned: true}))
	assert.Equal(t, "enum", TypeExpr(&schema.Field{Type: schema.Enum, Length: 5, EnumValues: []string{"a"}}))
}

func memFS(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/schema/base.xml", []byte(base), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/schema/ext/coupons.XML", []byte(extension), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/schema/README.md", []byte("# notes"), 0o644))
	return fs
}

func TestLoaderFiles(t *testing.T) {
	files, err := NewLoader(memFS(t)).Files("/schema")
	require.NoError(t, err)
	assert.Equal(t, []string{"/schema/base.xml", "/schema/ext/coupons.XML"}, files)
}

func TestLoadAndAssemble(t *testing.T) {
	l := NewLoader(memFS(t))

	s, err := l.LoadAndAssemble("/schema")
	require.NoError(t, err)
	require.Len(t, s.Tables, 3)
	assert.Equal(t, extensionID, s.Table("coupons").ExtensionGuid)
	assert.Len(t, s.TablesOf(""), 2)

	s, err = l.LoadAndAssemble("/schema", uuid.MustParse("00000000-0000-4000-8000-000000000001"))
	require.NoError(t, err)
	assert.Len(t, s.Tables, 2)
}

func TestLoadAndAssembleIsIdempotent(t *testing.T) {
	l := NewLoader(memFS(t))
	a, err := l.LoadAndAssemble("/schema")
	require.NoError(t, err)
	b, err := l.LoadAndAssemble("/schema")
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/empty", 0o755))
	_, err := NewLoader(fs).Load("/empty")
	assert.ErrorIs(t, err, schema.ErrNoBaseSchema)

	fs = memFS(t)
	require.NoError(t, afero.WriteFile(fs, "/schema/clash.xml", []byte(
		`<database extension="`+uuid.NewString()+`"><table name="orders"><field name="id" type="int"/></table></database>`), 0o644))
	_, err = NewLoader(fs).LoadAndAssemble("/schema")
	var clash *schema.TableClashError
	require.True(t, errors.As(err, &clash))
	assert.Equal(t, "orders", clash.Table)

	fs = memFS(t)
	require.NoError(t, afero.WriteFile(fs, "/schema/broken.xml", []byte(`<database><table`), 0o644))
	_, err = NewLoader(fs).Load("/schema")
	assert.ErrorContains(t, err, "broken.xml")
}

func TestSave(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := NewLoader(fs)
	s, err := Parse(strings.NewReader(base))
	require.NoError(t, err)

	require.NoError(t, l.Save("/out/pulled/schema.xml", s))
	docs, err := l.Load("/out")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, s.Fingerprint(), docs[0].Fingerprint())
}
