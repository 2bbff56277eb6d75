package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeExpr(t *testing.T) {
	tests := []struct {
		in      string
		base    string
		ints    []int
		strings []string
	}{
		{"varchar(100)", "varchar", []int{100}, nil},
		{"DECIMAL(10, 2)", "decimal", []int{10, 2}, nil},
		{"int unsigned", "int", nil, nil},
		{"enum('a','it''s')", "enum", nil, []string{"a", "it's"}},
		{"timestamp with time zone", "timestamp with time zone", nil, nil},
		{"character varying", "character varying", nil, nil},
		{"datetime(3)", "datetime", []int{3}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			expr, err := ParseTypeExpr(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.base, expr.Base())
			assert.Equal(t, tt.ints, expr.Ints())
			assert.Equal(t, tt.strings, expr.Strings())
		})
	}

	_, err := ParseTypeExpr("varchar(")
	assert.Error(t, err)
}

func TestApplyTypeExpr(t *testing.T) {
	f := &Field{Name: "price"}
	require.NoError(t, ApplyTypeExpr(f, "decimal(10,2)"))
	assert.Equal(t, Decimal, f.Type)
	assert.Equal(t, 10, f.Length)
	assert.Equal(t, 2, f.Scale)

	f = &Field{Name: "status"}
	require.NoError(t, ApplyTypeExpr(f, "enum('new', 'paid')"))
	assert.Equal(t, Enum, f.Type)
	assert.Equal(t, []string{"new", "paid"}, f.EnumValues)

	f = &Field{Name: "n"}
	require.NoError(t, ApplyTypeExpr(f, "bigint unsigned"))
	assert.Equal(t, BigInt, f.Type)
	assert.True(t, f.Unsigned)

	assert.ErrorIs(t, ApplyTypeExpr(&Field{}, "geometry"), ErrUnknownDataType)
}
