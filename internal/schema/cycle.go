package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/relstore/internal/ir"
)

// Cycle is a loop in the type-level relationship graph, e.g.
// post -> comment -> post. Cycles are informational: resolution expands one
// hop only, so record graphs following a cycle still terminate.
type Cycle struct {
	Path    []string `json:"path"`    // ["post", "comment", "post"]
	Message string   `json:"message"` // human-readable description
}

// relationGraph maps type name -> target type names, in declaration order.
type relationGraph map[string][]string

// AnalyzeCycles finds every strongly connected component of the relationship
// graph (Tarjan) and reports the ones that form a cycle: components with more
// than one type, or a single self-referencing type. Output is sorted by path.
func AnalyzeCycles(types []ir.TypeSchema) []Cycle {
	graph := make(relationGraph, len(types))
	for _, t := range types {
		if graph[t.Name] == nil {
			graph[t.Name] = []string{}
		}
		for _, r := range t.Relationships {
			graph[t.Name] = append(graph[t.Name], r.Target)
		}
	}

	cycles := []Cycle{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) == 1 && !slices.Contains(graph[scc[0]], scc[0]) {
			continue
		}
		path := reconstructCyclePath(scc, graph)
		cycles = append(cycles, Cycle{
			Path:    path,
			Message: fmt.Sprintf("relationship cycle: %s (resolved one hop deep)", strings.Join(path, " -> ")),
		})
	}

	slices.SortFunc(cycles, func(a, b Cycle) int {
		return slices.Compare(a.Path, b.Path)
	})
	return cycles
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so results do not depend on map order.
func tarjanSCC(graph relationGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// reconstructCyclePath walks edges inside the component from its smallest
// member until it returns to the start.
func reconstructCyclePath(scc []string, graph relationGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := map[string]bool{}
	for {
		visited[current] = true
		next := ""
		for _, n := range graph[current] {
			if members[n] && (!visited[n] || n == start) {
				next = n
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
