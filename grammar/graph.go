/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package grammar

import (
	"fmt"
	"slices"
)

// RuleGraph is a directed graph of rule references.
type RuleGraph struct {
	references map[string][]string
	referrers  map[string][]string
	// nodes in rule definition order, so traversals are deterministic
	nodes []string
}

func newRuleGraph(rules []*Rule) *RuleGraph {
	graph := &RuleGraph{
		references: make(map[string][]string),
		referrers:  make(map[string][]string),
		nodes:      make([]string, 0, len(rules)),
	}
	for _, r := range rules {
		graph.nodes = append(graph.nodes, r.Name)
	}
	return graph
}

func (g *RuleGraph) addEdge(from, to string) {
	if slices.Contains(g.references[from], to) {
		return
	}
	g.references[from] = append(g.references[from], to)
	g.referrers[to] = append(g.referrers[to], from)
}

// BuildReferenceGraph returns the graph of every rule reference in g.
func BuildReferenceGraph(g *Grammar) *RuleGraph {
	graph := newRuleGraph(g.Rules)
	for _, r := range g.Rules {
		walkExpr(r.Expr, func(e *Expr) {
			if e.Kind == ExprRef {
				graph.addEdge(r.Name, e.Ref)
			}
		})
	}
	return graph
}

// References returns the rules the named rule refers to.
func (g *RuleGraph) References(name string) []string {
	if refs, ok := g.references[name]; ok {
		return refs
	}
	return []string{}
}

// Referrers returns the rules that refer to the named rule.
func (g *RuleGraph) Referrers(name string) []string {
	if refs, ok := g.referrers[name]; ok {
		return refs
	}
	return []string{}
}

// Reachable returns the set of rules reachable from the named rule,
// including the rule itself.
func (g *RuleGraph) Reachable(from string) map[string]bool {
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, ref := range g.references[node] {
			if !seen[ref] {
				seen[ref] = true
				queue = append(queue, ref)
			}
		}
	}
	return seen
}

// FindCycle returns the cycle path if one exists, or nil if no cycle.
// The first and last elements of a returned path are the same rule.
func (g *RuleGraph) FindCycle() []string {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := []string{}

	for _, node := range g.nodes {
		if cycle := g.findCycleDFS(node, visited, recStack, path); cycle != nil {
			return cycle
		}
	}
	return nil
}

func (g *RuleGraph) findCycleDFS(node string, visited, recStack map[string]bool, path []string) []string {
	if recStack[node] {
		cycleStart := slices.Index(path, node)
		if cycleStart == -1 {
			panic(fmt.Sprintf("cycle detection invariant violated: rule %q in recStack but not in path %v", node, path))
		}
		return append(slices.Clone(path[cycleStart:]), node)
	}
	if visited[node] {
		return nil
	}

	visited[node] = true
	recStack[node] = true
	path = append(path, node)

	for _, ref := range g.references[node] {
		if cycle := g.findCycleDFS(ref, visited, recStack, path); cycle != nil {
			return cycle
		}
	}

	recStack[node] = false
	return nil
}

// Unreachable returns the rules, in definition order, that cannot be
// reached from the start rule.
func (g *Grammar) Unreachable() []string {
	reachable := BuildReferenceGraph(g).Reachable(g.Start.Name)
	var out []string
	for _, r := range g.Rules {
		if !reachable[r.Name] {
			out = append(out, r.Name)
		}
	}
	return out
}

// walkExpr calls fn for e and every expression below it.
func walkExpr(e *Expr, fn func(*Expr)) {
	if e == nil {
		return
	}
	fn(e)
	for _, item := range e.Items {
		walkExpr(item, fn)
	}
	walkExpr(e.Sub, fn)
}
