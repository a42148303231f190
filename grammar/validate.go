/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package grammar

import (
	"strings"
)

// validate resolves references and rejects grammars the engine cannot run.
func validate(g *Grammar) error {
	if err := resolveRefs(g); err != nil {
		return err
	}
	return checkLeftRecursion(g)
}

func resolveRefs(g *Grammar) error {
	for _, r := range g.Rules {
		var err error
		walkExpr(r.Expr, func(e *Expr) {
			if err != nil || e.Kind != ExprRef {
				return
			}
			target, ok := g.byName[e.Ref]
			if !ok {
				err = errorAt(e.Pos, ErrUndefinedRule, "rule %q references undefined rule %q", r.Name, e.Ref)
				return
			}
			e.Rule = target
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// nullableRules computes which rules can succeed without consuming input.
func nullableRules(g *Grammar) []bool {
	nullable := make([]bool, len(g.Rules))
	for changed := true; changed; {
		changed = false
		for _, r := range g.Rules {
			if !nullable[r.Index] && exprNullable(r.Expr, nullable) {
				nullable[r.Index] = true
				changed = true
			}
		}
	}
	return nullable
}

func exprNullable(e *Expr, nullable []bool) bool {
	switch e.Kind {
	case ExprSequence:
		for _, item := range e.Items {
			if !exprNullable(item, nullable) {
				return false
			}
		}
		return true
	case ExprChoice:
		for _, item := range e.Items {
			if exprNullable(item, nullable) {
				return true
			}
		}
		return false
	case ExprLiteral, ExprPattern:
		// empty terminals are rejected when parsed
		return false
	case ExprRef:
		return nullable[e.Rule.Index]
	case ExprRepeat:
		return e.Min == 0 || exprNullable(e.Sub, nullable)
	case ExprAnd, ExprNot:
		return true
	default:
		return false
	}
}

// leftCalls adds an edge from rule to every rule e may invoke before
// consuming input.
func leftCalls(graph *RuleGraph, rule string, e *Expr, nullable []bool) {
	switch e.Kind {
	case ExprSequence:
		for _, item := range e.Items {
			leftCalls(graph, rule, item, nullable)
			if !exprNullable(item, nullable) {
				return
			}
		}
	case ExprChoice:
		for _, item := range e.Items {
			leftCalls(graph, rule, item, nullable)
		}
	case ExprRef:
		graph.addEdge(rule, e.Ref)
	case ExprRepeat, ExprAnd, ExprNot:
		leftCalls(graph, rule, e.Sub, nullable)
	}
}

func checkLeftRecursion(g *Grammar) error {
	nullable := nullableRules(g)
	graph := newRuleGraph(g.Rules)
	for _, r := range g.Rules {
		leftCalls(graph, r.Name, r.Expr, nullable)
	}

	cycle := graph.FindCycle()
	if cycle == nil {
		return nil
	}
	first := g.byName[cycle[0]]
	return errorAt(first.Pos, ErrLeftRecursion, "left recursion: %s", strings.Join(cycle, " -> "))
}
