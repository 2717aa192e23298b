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

// Package optimizer contains the rule-based plan transformation engine.
//
// The engine rewrites trees of relational operators into semantically
// equivalent alternatives. A rewrite pass walks an OptExpression tree,
// matches the registered rule patterns against each node, runs the rule
// guards, and splices in the trees the rules produce. Cost-based selection
// between the alternatives happens elsewhere; this package only generates
// them.
//
// Operators and scalar expressions are immutable after construction.
// Rules never mutate their input: they build new OptExpression nodes,
// sharing the untouched operator values and subtrees with the original.
package optimizer

import (
	"fmt"

	"github.com/tundradb/tundra/go/td/optimizer/scalar"
)

// OpType tags every operator variant. Pattern nodes are expressed in terms
// of OpTypes only, so rule candidate selection never looks at operator
// attributes.
type OpType int

const (
	OpUnknown OpType = iota

	OpScan
	OpProject
	OpFilter
	OpJoin
	OpWindow
	OpTopN

	// OpPatternLeaf is only valid inside a Pattern. It matches any single
	// subtree without looking inside it.
	OpPatternLeaf
	// OpPatternMultiLeaf is only valid as the last child of a Pattern. It
	// matches all remaining children, including none.
	OpPatternMultiLeaf
)

func (t OpType) String() string {
	switch t {
	case OpScan:
		return "Scan"
	case OpProject:
		return "Project"
	case OpFilter:
		return "Filter"
	case OpJoin:
		return "Join"
	case OpWindow:
		return "Window"
	case OpTopN:
		return "TopN"
	case OpPatternLeaf:
		return "PatternLeaf"
	case OpPatternMultiLeaf:
		return "PatternMultiLeaf"
	}
	return "Unknown"
}

// Operator is the interface implemented by every relational operator
// variant. Implementations are immutable value objects: once built they may
// be shared between any number of plan alternatives without copying.
type Operator interface {
	Type() OpType
	String() string
}

// NoLimit is the sentinel stored in limit fields that are not in use.
const NoLimit int64 = -1

// SortPhase says whether a TopN sorts before or after data redistribution.
type SortPhase int

const (
	// SortPhasePartial sorts within each producer before the data is
	// redistributed. A per-partition rank bound must be enforced here,
	// since rows of one partition are not yet co-located.
	SortPhasePartial SortPhase = iota
	// SortPhaseFinal sorts after redistribution and produces the globally
	// ordered result.
	SortPhaseFinal
)

func (p SortPhase) String() string {
	if p == SortPhasePartial {
		return "PARTIAL"
	}
	return "FINAL"
}

// OrderByElem is one element of a sort specification.
type OrderByElem struct {
	Col        *scalar.ColumnRef
	Desc       bool
	NullsFirst bool
}

// Equal reports whether two sort elements request the same ordering of the
// same column.
func (o OrderByElem) Equal(other OrderByElem) bool {
	return o.Col.Equal(other.Col) && o.Desc == other.Desc && o.NullsFirst == other.NullsFirst
}

func (o OrderByElem) String() string {
	dir := "asc"
	if o.Desc {
		dir = "desc"
	}
	return fmt.Sprintf("%v %s", o.Col, dir)
}

// OrderByElemsEqual reports whether two sort specifications are identical.
func OrderByElemsEqual(a, b []OrderByElem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// operatorArity returns the child count an operator variant expects, or -1
// when any number of children is allowed.
func operatorArity(t OpType) int {
	switch t {
	case OpScan:
		return 0
	case OpFilter, OpProject, OpWindow, OpTopN:
		return 1
	case OpJoin:
		return 2
	}
	return -1
}
