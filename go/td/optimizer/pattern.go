/*
Copyright 2023 The Tundra Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package optimizer

// Pattern describes the operator-type shape a rule is keyed on. It mirrors
// the OptExpression tree: each node names a required OpType, or one of the
// wildcard types. Patterns are built once at rule registration time and
// never change.
//
// Matching is purely structural. Operator attributes are a rule guard's
// business, not the pattern's.
type Pattern struct {
	op       OpType
	children []*Pattern
}

// NewPattern builds a pattern node.
func NewPattern(op OpType, children ...*Pattern) *Pattern {
	return &Pattern{op: op, children: children}
}

// PatternLeaf matches any single subtree without recursing into it.
func PatternLeaf() *Pattern {
	return &Pattern{op: OpPatternLeaf}
}

// PatternMultiLeaf matches all remaining children of a node, including
// none. It is only meaningful as the last child of a pattern.
func PatternMultiLeaf() *Pattern {
	return &Pattern{op: OpPatternMultiLeaf}
}

// Op returns the operator type this pattern node requires.
func (p *Pattern) Op() OpType {
	return p.op
}

// Match reports whether the pattern matches the tree rooted at expr.
func (p *Pattern) Match(expr *OptExpression) bool {
	if p.op == OpPatternLeaf || p.op == OpPatternMultiLeaf {
		return true
	}
	if p.op != expr.Op().Type() {
		return false
	}

	inputs := expr.Inputs()
	multi := len(p.children) > 0 && p.children[len(p.children)-1].op == OpPatternMultiLeaf
	if multi {
		if len(inputs) < len(p.children)-1 {
			return false
		}
	} else if len(inputs) != len(p.children) {
		return false
	}

	for i, child := range p.children {
		if child.op == OpPatternMultiLeaf {
			break
		}
		if !child.Match(inputs[i]) {
			return false
		}
	}
	return true
}
