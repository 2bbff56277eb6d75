// Package schema contains the canonical, backend-neutral database model.
package schema

import (
	"fmt"
	"strings"
)

// Schema is the root entity describing a complete database.
type Schema struct {
	Description string
	Charset     string
	// ExtensionGuid is empty for the base schema and a UUID string for extensions.
	ExtensionGuid string
	Tables        []*Table
}

// Table describes a single database table.
type Table struct {
	Name        string
	Description string
	Charset     string
	Engine      string
	// ExtensionGuid records which document contributed the table. It is
	// assigned during assembly and never serialized.
	ExtensionGuid string
	Fields        []*Field
}

// Field describes a single table column.
type Field struct {
	Name          string
	Type          DataType
	Length        int
	Scale         int
	Nullable      bool
	AutoIncrement bool
	Unsigned      bool
	EnumValues    []string
	Collation     string
	Default       string
	Index         IndexKind
	IndexName     string

	// Only meaningful when Index is IndexForeign or IndexForeignPrimary.
	RefTable string
	RefField string
	OnUpdate ForeignKeyAction
	OnDelete ForeignKeyAction
}

// DataType is the canonical column type.
type DataType string

const (
	TinyInt    DataType = "tinyint"
	SmallInt   DataType = "smallint"
	MediumInt  DataType = "mediumint"
	Int        DataType = "int"
	BigInt     DataType = "bigint"
	Float      DataType = "float"
	Real       DataType = "real"
	Double     DataType = "double"
	Decimal    DataType = "decimal"
	Char       DataType = "char"
	Varchar    DataType = "varchar"
	Text       DataType = "text"
	MediumText DataType = "mediumtext"
	LongText   DataType = "longtext"
	TinyBlob   DataType = "tinyblob"
	Blob       DataType = "blob"
	MediumBlob DataType = "mediumblob"
	LongBlob   DataType = "longblob"
	Date       DataType = "date"
	DateTime   DataType = "datetime"
	Time       DataType = "time"
	Timestamp  DataType = "timestamp"
	Enum       DataType = "enum"
)

// Family groups data types that backends store interchangeably.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyInteger
	FamilyReal
	FamilyText
	FamilyBlob
	FamilyTemporal
)

func (f Family) String() string {
	switch f {
	case FamilyInteger:
		return "integer"
	case FamilyReal:
		return "real"
	case FamilyText:
		return "text"
	case FamilyBlob:
		return "blob"
	case FamilyTemporal:
		return "temporal"
	default:
		return "unknown"
	}
}

var families = map[DataType]Family{
	TinyInt: FamilyInteger, SmallInt: FamilyInteger, MediumInt: FamilyInteger,
	Int: FamilyInteger, BigInt: FamilyInteger,
	Float: FamilyReal, Real: FamilyReal, Double: FamilyReal, Decimal: FamilyReal,
	Char: FamilyText, Varchar: FamilyText, Text: FamilyText, MediumText: FamilyText,
	LongText: FamilyText, Enum: FamilyText,
	TinyBlob: FamilyBlob, Blob: FamilyBlob, MediumBlob: FamilyBlob, LongBlob: FamilyBlob,
	Date: FamilyTemporal, DateTime: FamilyTemporal, Time: FamilyTemporal, Timestamp: FamilyTemporal,
}

// ParseDataType converts a case-insensitive type name to a DataType.
func ParseDataType(s string) (DataType, error) {
	t := DataType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := families[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDataType, s)
	}
	return t, nil
}

// Family returns the storage family of the type.
func (t DataType) Family() Family {
	return families[t]
}

// IsInteger reports whether t belongs to the integer family.
func (t DataType) IsInteger() bool { return t.Family() == FamilyInteger }

// IsBlob reports whether t belongs to the blob family.
func (t DataType) IsBlob() bool { return t.Family() == FamilyBlob }

// IndexKind is the closed set of index classifications of a field.
type IndexKind string

const (
	IndexNone           IndexKind = "none"
	IndexPrimary        IndexKind = "primary"
	IndexUnique         IndexKind = "unique"
	IndexSimple         IndexKind = "simple"
	IndexForeign        IndexKind = "foreign"
	IndexForeignPrimary IndexKind = "foreignprimary"
)

// ParseIndexKind converts a document attribute value to an IndexKind.
// An empty string means IndexNone.
func ParseIndexKind(s string) (IndexKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return IndexNone, nil
	case "primary":
		return IndexPrimary, nil
	case "unique":
		return IndexUnique, nil
	case "simple", "index":
		return IndexSimple, nil
	case "foreign", "foreignkey":
		return IndexForeign, nil
	case "foreignprimary", "foreign-primary":
		return IndexForeignPrimary, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIndexKind, s)
}

// IsPrimary reports whether the field is (part of) the primary key.
func (k IndexKind) IsPrimary() bool {
	return k == IndexPrimary || k == IndexForeignPrimary
}

// IsForeign reports whether the field carries a foreign key.
func (k IndexKind) IsForeign() bool {
	return k == IndexForeign || k == IndexForeignPrimary
}

// WithoutPrimary strips the primary-key aspect from the classification.
func (k IndexKind) WithoutPrimary() IndexKind {
	switch k {
	case IndexPrimary:
		return IndexNone
	case IndexForeignPrimary:
		return IndexForeign
	case "":
		return IndexNone
	}
	return k
}

// ForeignKeyAction is the referential action of a foreign key.
type ForeignKeyAction string

const (
	ActionRestrict ForeignKeyAction = "restrict"
	ActionCascade  ForeignKeyAction = "cascade"
	ActionSetNull  ForeignKeyAction = "setnull"
)

// ParseForeignKeyAction converts a document attribute value to an action.
// An empty string means ActionRestrict.
func ParseForeignKeyAction(s string) (ForeignKeyAction, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "", "restrict", "noaction":
		return ActionRestrict, nil
	case "cascade":
		return ActionCascade, nil
	case "setnull", "set-null", "set_null":
		return ActionSetNull, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Table returns the table with the given name, or nil.
func (s *Schema) Table(name string) *Table {
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// TableFold is like Table but matches names case-insensitively.
func (s *Schema) TableFold(name string) *Table {
	if t := s.Table(name); t != nil {
		return t
	}
	for _, t := range s.Tables {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

// Field returns the field with the given name, or nil.
func (t *Table) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FieldFold is like Field but matches names case-insensitively.
func (t *Table) FieldFold(name string) *Field {
	if f := t.Field(name); f != nil {
		return f
	}
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// PrimaryKey returns the primary key fields in declaration order.
func (t *Table) PrimaryKey() []*Field {
	var pk []*Field
	for _, f := range t.Fields {
		if f.Index.IsPrimary() {
			pk = append(pk, f)
		}
	}
	return pk
}

// ForeignKeys returns the foreign key fields in declaration order.
func (t *Table) ForeignKeys() []*Field {
	var fks []*Field
	for _, f := range t.Fields {
		if f.Index.IsForeign() {
			fks = append(fks, f)
		}
	}
	return fks
}

// IsAutoIncrement reports whether the field is an autoincrementing integer key.
func (f *Field) IsAutoIncrement() bool {
	return f.AutoIncrement && f.Type.IsInteger() && f.Index.IsPrimary()
}

// Describe renders a short, backend-neutral definition used in diff messages.
func (f *Field) Describe() string {
	var b strings.Builder
	b.WriteString(string(f.Type))
	if f.Length > 0 {
		if f.Scale > 0 {
			fmt.Fprintf(&b, "(%d,%d)", f.Length, f.Scale)
		} else {
			fmt.Fprintf(&b, "(%d)", f.Length)
		}
	}
	if f.Nullable {
		b.WriteString(" null")
	} else {
		b.WriteString(" not null")
	}
	if f.Index.IsPrimary() {
		b.WriteString(" primary key")
	}
	if f.IsAutoIncrement() {
		b.WriteString(" autoincrement")
	}
	return b.String()
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	out := *s
	out.Tables = make([]*Table, len(s.Tables))
	for i, t := range s.Tables {
		out.Tables[i] = t.Clone()
	}
	return &out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := *t
	out.Fields = make([]*Field, len(t.Fields))
	for i, f := range t.Fields {
		nf := *f
		nf.EnumValues = append([]string(nil), f.EnumValues...)
		out.Fields[i] = &nf
	}
	return &out
}
