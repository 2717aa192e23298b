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

package scalar

import "sync/atomic"

// SplitAndExpression breaks up the Expr into its component parts, separating
// them based on top-level AND boundaries, appending them to filters. Outputs
// are the conjuncts in left-to-right order.
func SplitAndExpression(filters []Expr, node Expr) []Expr {
	if node == nil {
		return filters
	}
	if and, ok := node.(*AndExpr); ok {
		filters = SplitAndExpression(filters, and.Left)
		return SplitAndExpression(filters, and.Right)
	}
	return append(filters, node)
}

// AndExpressions rebuilds a single predicate from a list of conjuncts,
// skipping nils and deduplicating structurally equal entries. It returns nil
// for an empty list.
func AndExpressions(exprs ...Expr) Expr {
	var result Expr
outer:
	for _, expr := range exprs {
		if expr == nil {
			continue
		}
		if result == nil {
			result = expr
			continue
		}
		for _, seen := range SplitAndExpression(nil, result) {
			if seen.Equal(expr) {
				continue outer
			}
		}
		result = &AndExpr{Left: result, Right: expr}
	}
	return result
}

// ColumnRefsEqual reports whether two ordered column lists reference the
// same columns in the same order.
func ColumnRefsEqual(a, b []*ColumnRef) bool {
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

// ColumnRefFactory hands out plan-unique column IDs. It is safe for
// concurrent use, although a single planning session allocates from one
// goroutine in practice.
type ColumnRefFactory struct {
	nextID atomic.Int64
}

// NewColumnRef allocates a fresh column reference.
func (f *ColumnRefFactory) NewColumnRef(name string, typ Type) *ColumnRef {
	return &ColumnRef{ID: int(f.nextID.Add(1)), Name: name, Typ: typ}
}
