package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// TypeExpr is a parsed column type such as varchar(100), decimal(10,2),
// enum('a','b'), int unsigned or timestamp with time zone.
type TypeExpr struct {
	Words  []string   `@Ident+`
	Args   []*TypeArg `( "(" ( @@ ( "," @@ )* )? ")" )?`
	Suffix []string   `@Ident*`
}

// TypeArg is one argument of a type expression.
type TypeArg struct {
	Number *int    `  @Int`
	Quoted *string `| @String`
}

var typeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Punct", Pattern: `[(),]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var typeParser = participle.MustBuild[TypeExpr](
	participle.Lexer(typeLexer),
	participle.Elide("Whitespace"),
)

// ParseTypeExpr parses a type expression.
func ParseTypeExpr(s string) (*TypeExpr, error) {
	expr, err := typeParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("invalid type expression %q: %w", s, err)
	}
	return expr, nil
}

var typeModifiers = []string{"unsigned", "signed", "zerofill"}

// Base returns the lowercased type name without sign modifiers.
func (e *TypeExpr) Base() string {
	var words []string
	for _, w := range e.Words {
		w = strings.ToLower(w)
		if !slices.Contains(typeModifiers, w) {
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}

// Has reports whether word appears anywhere in the expression.
func (e *TypeExpr) Has(word string) bool {
	for _, w := range append(slices.Clone(e.Words), e.Suffix...) {
		if strings.EqualFold(w, word) {
			return true
		}
	}
	return false
}

// Ints returns the numeric arguments in order.
func (e *TypeExpr) Ints() []int {
	var out []int
	for _, a := range e.Args {
		if a.Number != nil {
			out = append(out, *a.Number)
		}
	}
	return out
}

// Strings returns the unquoted string arguments in order.
func (e *TypeExpr) Strings() []string {
	var out []string
	for _, a := range e.Args {
		if a.Quoted != nil {
			s := strings.TrimSuffix(strings.TrimPrefix(*a.Quoted, "'"), "'")
			out = append(out, strings.ReplaceAll(s, "''", "'"))
		}
	}
	return out
}

// ApplyTypeExpr sets the type of f from a canonical type expression,
// together with its length, scale, enum values and sign.
func ApplyTypeExpr(f *Field, s string) error {
	expr, err := ParseTypeExpr(s)
	if err != nil {
		return err
	}
	dt, err := ParseDataType(expr.Base())
	if err != nil {
		return err
	}
	f.Type = dt
	if expr.Has("unsigned") {
		f.Unsigned = true
	}
	if dt == Enum {
		f.EnumValues = expr.Strings()
		return nil
	}
	if ints := expr.Ints(); len(ints) > 0 {
		f.Length = ints[0]
		if len(ints) > 1 {
			f.Scale = ints[1]
		}
	}
	return nil
}
