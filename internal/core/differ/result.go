// Package differ compares a gauge schema with an introspected one and
// reports every discrepancy together with the statements that repair it.
package differ

import (
	"fmt"
	"strings"
)

// Kind tags a discrepancy.
type Kind string

const (
	FieldMissing            Kind = "FieldMissing"
	FieldObsolete           Kind = "FieldObsolete"
	FieldDefinitionObsolete Kind = "FieldDefinitionObsolete"
	TableMissing            Kind = "TableMissing"
	TableObsolete           Kind = "TableObsolete"
	IndexMissing            Kind = "IndexMissing"
	IndexObsolete           Kind = "IndexObsolete"
)

// Kinds lists every kind in report order.
var Kinds = []Kind{
	TableMissing, TableObsolete,
	FieldMissing, FieldObsolete, FieldDefinitionObsolete,
	IndexMissing, IndexObsolete,
}

// SchemaError is one discrepancy between the gauge and the actual schema.
// It is either repairable, carrying the statements that fix it in order,
// or unrepairable, carrying only its description.
type SchemaError struct {
	Kind         Kind     `json:"kind" yaml:"kind"`
	Description  string   `json:"description" yaml:"description"`
	Table        string   `json:"table" yaml:"table"`
	Field        string   `json:"field,omitempty" yaml:"field,omitempty"`
	Statements   []string `json:"statements,omitempty" yaml:"statements,omitempty"`
	Unrepairable bool     `json:"unrepairable,omitempty" yaml:"unrepairable,omitempty"`
}

// Repairable reports whether Statements resolve the discrepancy.
func (e SchemaError) Repairable() bool {
	return !e.Unrepairable
}

// Optional reports whether applying the repair destroys data the gauge
// merely does not mention. Such repairs are skipped by Repairs.
func (e SchemaError) Optional() bool {
	return e.Kind == TableObsolete
}

func (e SchemaError) String() string {
	switch {
	case e.Unrepairable:
		return fmt.Sprintf("[%s] %s (unrepairable)", e.Kind, e.Description)
	case len(e.Statements) == 1:
		return fmt.Sprintf("[%s] %s (repairable, 1 statement)", e.Kind, e.Description)
	default:
		return fmt.Sprintf("[%s] %s (repairable, %d statements)", e.Kind, e.Description, len(e.Statements))
	}
}

// Repairs flattens the statements of every repairable, non-optional error
// in report order.
func Repairs(errs []SchemaError) []string {
	var out []string
	for _, e := range errs {
		if e.Repairable() && !e.Optional() {
			out = append(out, e.Statements...)
		}
	}
	return out
}

// AllRepairs is like Repairs but includes optional repairs such as
// dropping obsolete tables.
func AllRepairs(errs []SchemaError) []string {
	var out []string
	for _, e := range errs {
		if e.Repairable() {
			out = append(out, e.Statements...)
		}
	}
	return out
}

// Counts summarizes a comparison.
type Counts struct {
	ByKind       map[Kind]int
	Repairable   int
	Unrepairable int
}

// Summary counts errs per kind and by repairability.
func Summary(errs []SchemaError) Counts {
	c := Counts{ByKind: make(map[Kind]int)}
	for _, e := range errs {
		c.ByKind[e.Kind]++
		if e.Repairable() {
			c.Repairable++
		} else {
			c.Unrepairable++
		}
	}
	return c
}

func (c Counts) String() string {
	if c.Repairable+c.Unrepairable == 0 {
		return "schema is up to date"
	}
	var parts []string
	for _, k := range Kinds {
		if n := c.ByKind[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, k))
		}
	}
	return fmt.Sprintf("%d repairable, %d unrepairable (%s)", c.Repairable, c.Unrepairable, strings.Join(parts, ", "))
}
