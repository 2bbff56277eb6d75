package schema

import (
	"github.com/satishbabariya/schemakit/internal/debug"
)

// Graph is the foreign key dependency graph of a schema. An edge from A to B
// means A references B, so B must be created first.
type Graph struct {
	Nodes []*Table
	Edges map[string][]string
}

// DependencyGraph builds the graph for s. References to tables that are not
// part of the schema and self-references produce no edge.
func (s *Schema) DependencyGraph() *Graph {
	g := &Graph{
		Nodes: s.Tables,
		Edges: make(map[string][]string, len(s.Tables)),
	}
	for _, t := range s.Tables {
		seen := make(map[string]bool)
		for _, f := range t.ForeignKeys() {
			if f.RefTable == t.Name || seen[f.RefTable] {
				continue
			}
			if s.Table(f.RefTable) == nil {
				debug.Debug("Ignoring reference to unknown table", "table", t.Name, "field", f.Name, "references", f.RefTable)
				continue
			}
			seen[f.RefTable] = true
			g.Edges[t.Name] = append(g.Edges[t.Name], f.RefTable)
		}
	}
	return g
}

const (
	unvisited = iota
	visiting
	done
)

// CreateOrder returns the tables ordered so that every referenced table
// precedes the tables referencing it.
//
// When the foreign keys form a cycle a *CycleError naming the first cycle
// found is returned together with an order that still contains every table
// exactly once; one edge of each cycle is violated in that order.
func (s *Schema) CreateOrder() ([]*Table, error) {
	g := s.DependencyGraph()
	state := make(map[string]int, len(g.Nodes))
	order := make([]*Table, 0, len(g.Nodes))
	var cycle *CycleError
	var path []string

	var visit func(t *Table)
	visit = func(t *Table) {
		state[t.Name] = visiting
		path = append(path, t.Name)
		for _, dep := range g.Edges[t.Name] {
			switch state[dep] {
			case unvisited:
				visit(s.Table(dep))
			case visiting:
				if cycle == nil {
					cycle = &CycleError{Tables: cyclePath(path, dep)}
				}
			}
		}
		path = path[:len(path)-1]
		state[t.Name] = done
		order = append(order, t)
	}

	for _, t := range g.Nodes {
		if state[t.Name] == unvisited {
			visit(t)
		}
	}
	if cycle != nil {
		return order, cycle
	}
	return order, nil
}

// cyclePath returns the suffix of path starting at dep, closed with dep.
func cyclePath(path []string, dep string) []string {
	for i, name := range path {
		if name == dep {
			out := append([]string(nil), path[i:]...)
			return append(out, dep)
		}
	}
	return []string{dep, dep}
}
