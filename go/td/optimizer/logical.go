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

	"github.com/tundradb/tundra/go/td/optimizer/scalar"
)

type (
	// Scan reads a table. The predicate, when set, is evaluated during the
	// scan; filter push-down moves predicates here.
	Scan struct {
		Table     string
		Columns   []*scalar.ColumnRef
		Predicate scalar.Expr
	}

	// Filter keeps the rows for which the predicate evaluates to true.
	Filter struct {
		Predicate scalar.Expr
	}

	// ProjectMapping binds one output column to the expression producing it.
	ProjectMapping struct {
		Output *scalar.ColumnRef
		Expr   scalar.Expr
	}

	// Project computes a new set of output columns.
	Project struct {
		Mappings []ProjectMapping
	}

	// JoinKind is the logical join variant.
	JoinKind int

	// Join combines two inputs on a join predicate.
	Join struct {
		Kind JoinKind
		On   scalar.Expr
	}

	// WindowCall binds one window-function output column to its call.
	WindowCall struct {
		Output *scalar.ColumnRef
		Call   *scalar.Call
	}

	// Window evaluates window functions over partitions of its input.
	// PartitionBy and OrderBy together determine the sort the window frame
	// requires from its input.
	Window struct {
		Calls       []WindowCall
		PartitionBy []*scalar.ColumnRef
		OrderBy     []OrderByElem
	}

	// TopN keeps only the lowest-ranked rows of its (sorted) input.
	//
	// It runs in exactly one of two modes. With partition columns, the
	// per-partition limit and the PARTIAL phase apply: each partition is
	// cut before the data is redistributed. Without partition columns, the
	// global limit and the FINAL phase apply. The limit field that is not
	// in use holds NoLimit.
	TopN struct {
		PartitionBy    []*scalar.ColumnRef
		OrderBy        []OrderByElem
		Limit          int64
		PartitionLimit int64
		Phase          SortPhase
	}
)

const (
	JoinInner JoinKind = iota
	JoinLeftOuter
)

func (*Scan) Type() OpType    { return OpScan }
func (*Filter) Type() OpType  { return OpFilter }
func (*Project) Type() OpType { return OpProject }
func (*Join) Type() OpType    { return OpJoin }
func (*Window) Type() OpType  { return OpWindow }
func (*TopN) Type() OpType    { return OpTopN }

func (s *Scan) String() string {
	if s.Predicate != nil {
		return fmt.Sprintf("Scan(%s, predicate: %v)", s.Table, s.Predicate)
	}
	return fmt.Sprintf("Scan(%s)", s.Table)
}

func (f *Filter) String() string {
	return fmt.Sprintf("Filter(%v)", f.Predicate)
}

func (p *Project) String() string {
	items := make([]string, 0, len(p.Mappings))
	for _, m := range p.Mappings {
		items = append(items, fmt.Sprintf("%v <- %v", m.Output, m.Expr))
	}
	return fmt.Sprintf("Project(%s)", strings.Join(items, ", "))
}

func (j *Join) String() string {
	kind := "inner"
	if j.Kind == JoinLeftOuter {
		kind = "left"
	}
	return fmt.Sprintf("Join(%s, on: %v)", kind, j.On)
}

func (w *Window) String() string {
	calls := make([]string, 0, len(w.Calls))
	for _, c := range w.Calls {
		calls = append(calls, fmt.Sprintf("%v <- %v", c.Output, c.Call))
	}
	return fmt.Sprintf("Window(%s, partition by: %v, order by: %v)",
		strings.Join(calls, ", "), w.PartitionBy, w.OrderBy)
}

func (t *TopN) String() string {
	return fmt.Sprintf("TopN(partition by: %v, order by: %v, limit: %d, partition limit: %d, phase: %v)",
		t.PartitionBy, t.OrderBy, t.Limit, t.PartitionLimit, t.Phase)
}

// WithPredicate returns a copy of the filter with the predicate replaced.
func (f *Filter) WithPredicate(pred scalar.Expr) *Filter {
	return &Filter{Predicate: pred}
}

// WithPredicate returns a copy of the scan with the predicate replaced.
// The original scan is left untouched.
func (s *Scan) WithPredicate(pred scalar.Expr) *Scan {
	return &Scan{
		Table:     s.Table,
		Columns:   s.Columns,
		Predicate: pred,
	}
}

// EnforceSortColumns is the sort specification the window requires from its
// input: the partition columns (in default ascending order) followed by the
// window's own ordering columns.
func (w *Window) EnforceSortColumns() []OrderByElem {
	sortCols := make([]OrderByElem, 0, len(w.PartitionBy)+len(w.OrderBy))
	for _, col := range w.PartitionBy {
		sortCols = append(sortCols, OrderByElem{Col: col, NullsFirst: true})
	}
	return append(sortCols, w.OrderBy...)
}
