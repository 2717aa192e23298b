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

// Package scalar models the scalar expressions that appear inside operator
// attributes: filter predicates, window calls, partition and ordering columns.
//
// The variant set is closed. Expressions are immutable after construction and
// may be shared freely between plan alternatives; rewrites always build new
// expressions instead of mutating existing ones.
package scalar

import (
	"fmt"
	"strings"
)

type (
	// Expr is the interface implemented by every scalar expression variant.
	Expr interface {
		fmt.Stringer

		// Equal reports structural equality. Column references compare by
		// identity (ID), never by name.
		Equal(other Expr) bool
	}

	// ColumnRef stands for a column produced by some operator in the plan.
	// IDs are unique within one planning session, handed out by a
	// ColumnRefFactory.
	ColumnRef struct {
		ID   int
		Name string
		Typ  Type
	}

	// Literal is a typed constant value.
	Literal struct {
		Typ Type
		I64 int64
		Str string
	}

	// Comparison is a binary comparison predicate.
	Comparison struct {
		Op    CompareOp
		Left  Expr
		Right Expr
	}

	// AndExpr is the conjunction of two predicates.
	AndExpr struct {
		Left  Expr
		Right Expr
	}

	// Call is a function invocation with ordered arguments. Window ranking
	// functions such as row_number() are represented as zero-argument calls.
	Call struct {
		Name string
		Args []Expr
	}
)

// Type is the data type of a scalar expression.
type Type int

const (
	TypeUnknown Type = iota
	TypeBigint
	TypeVarchar
)

// CompareOp enumerates the supported binary comparison operators.
type CompareOp int

const (
	LT CompareOp = iota
	LE
	GT
	GE
	EQ
	NE
)

func (op CompareOp) String() string {
	switch op {
	case LT:
		return "<"
	case LE:
		return "<="
	case GT:
		return ">"
	case GE:
		return ">="
	case EQ:
		return "="
	case NE:
		return "!="
	}
	return "?"
}

// Well-known window ranking function names.
const (
	RowNumber = "row_number"
	Rank      = "rank"
	DenseRank = "dense_rank"
)

// NewColumnRef returns a column reference with the given identity.
// Most callers should allocate through a ColumnRefFactory instead.
func NewColumnRef(id int, name string, typ Type) *ColumnRef {
	return &ColumnRef{ID: id, Name: name, Typ: typ}
}

// NewBigintLiteral returns an integer constant.
func NewBigintLiteral(v int64) *Literal {
	return &Literal{Typ: TypeBigint, I64: v}
}

// NewVarcharLiteral returns a string constant.
func NewVarcharLiteral(v string) *Literal {
	return &Literal{Typ: TypeVarchar, Str: v}
}

// NewComparison returns a binary comparison predicate.
func NewComparison(op CompareOp, left, right Expr) *Comparison {
	return &Comparison{Op: op, Left: left, Right: right}
}

// NewCall returns a function call expression.
func NewCall(name string, args ...Expr) *Call {
	return &Call{Name: name, Args: args}
}

func (c *ColumnRef) String() string {
	return fmt.Sprintf("%d:%s", c.ID, c.Name)
}

// Equal compares column references by ID only. Two references with the same
// ID denote the same column no matter how they are spelled.
func (c *ColumnRef) Equal(other Expr) bool {
	o, ok := other.(*ColumnRef)
	return ok && o != nil && c.ID == o.ID
}

func (l *Literal) String() string {
	if l.Typ == TypeVarchar {
		return fmt.Sprintf("%q", l.Str)
	}
	return fmt.Sprintf("%d", l.I64)
}

func (l *Literal) Equal(other Expr) bool {
	o, ok := other.(*Literal)
	return ok && o != nil && l.Typ == o.Typ && l.I64 == o.I64 && l.Str == o.Str
}

func (c *Comparison) String() string {
	return fmt.Sprintf("%v %v %v", c.Left, c.Op, c.Right)
}

func (c *Comparison) Equal(other Expr) bool {
	o, ok := other.(*Comparison)
	return ok && o != nil && c.Op == o.Op && c.Left.Equal(o.Left) && c.Right.Equal(o.Right)
}

func (a *AndExpr) String() string {
	return fmt.Sprintf("%v AND %v", a.Left, a.Right)
}

func (a *AndExpr) Equal(other Expr) bool {
	o, ok := other.(*AndExpr)
	return ok && o != nil && a.Left.Equal(o.Left) && a.Right.Equal(o.Right)
}

func (c *Call) String() string {
	args := make([]string, 0, len(c.Args))
	for _, arg := range c.Args {
		args = append(args, arg.String())
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(args, ", "))
}

func (c *Call) Equal(other Expr) bool {
	o, ok := other.(*Call)
	if !ok || o == nil || c.Name != o.Name || len(c.Args) != len(o.Args) {
		return false
	}
	for i, arg := range c.Args {
		if !arg.Equal(o.Args[i]) {
			return false
		}
	}
	return true
}
