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

import (
	"fmt"
	"strings"
)

// OptExpression is one node of a plan tree: an operator plus its ordered
// inputs. Children are exclusively owned, so a node appears in exactly one
// place in a tree; structurally equal copies are cheap to make because
// operator values are shared, never copied.
type OptExpression struct {
	op     Operator
	inputs []*OptExpression
}

// NewExpr builds a tree node. It panics when the child count does not match
// what the operator variant expects: that is a bug in the calling rule, not
// a runtime condition.
func NewExpr(op Operator, inputs ...*OptExpression) *OptExpression {
	if want := operatorArity(op.Type()); want >= 0 && want != len(inputs) {
		panic(fmt.Sprintf("BUG: %v expects %d inputs, got %d", op.Type(), want, len(inputs)))
	}
	return &OptExpression{op: op, inputs: inputs}
}

// Op returns the operator owned by this node.
func (e *OptExpression) Op() Operator {
	return e.op
}

// Inputs returns the ordered children. Callers must treat the returned
// slice as read-only.
func (e *OptExpression) Inputs() []*OptExpression {
	return e.inputs
}

// Input returns the i-th child.
func (e *OptExpression) Input(i int) *OptExpression {
	return e.inputs[i]
}

// Clone returns a deep copy of the tree structure. Operator values are
// immutable and stay shared.
func (e *OptExpression) Clone() *OptExpression {
	inputs := make([]*OptExpression, len(e.inputs))
	for i, in := range e.inputs {
		inputs[i] = in.Clone()
	}
	return &OptExpression{op: e.op, inputs: inputs}
}

// String renders the tree with one operator per line, children indented
// under their parent.
func (e *OptExpression) String() string {
	var sb strings.Builder
	e.format(&sb, 0)
	return sb.String()
}

func (e *OptExpression) format(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(e.op.String())
	sb.WriteString("\n")
	for _, in := range e.inputs {
		in.format(sb, depth+1)
	}
}
