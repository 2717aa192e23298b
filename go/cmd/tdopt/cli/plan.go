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

package cli

import (
	"encoding/json"
	"strings"

	"github.com/tundradb/tundra/go/td/optimizer"
	"github.com/tundradb/tundra/go/td/optimizer/scalar"
	"github.com/tundradb/tundra/go/td/terrors"
)

// The JSON plan format mirrors the operator tree. Example:
//
//	{
//	  "op": "filter",
//	  "predicate": {"cmp": {"op": "<", "left": {"col": {"id": 3, "name": "rk"}},
//	                        "right": {"lit": {"int": 4}}}},
//	  "inputs": [
//	    {"op": "window",
//	     "calls": [{"output": {"id": 3, "name": "rk"}, "fn": "row_number"}],
//	     "order_by": [{"col": {"id": 2, "name": "v2"}}],
//	     "inputs": [{"op": "scan", "table": "t0",
//	                 "columns": [{"id": 1, "name": "v1"}, {"id": 2, "name": "v2"}]}]}
//	  ]
//	}
type (
	planNode struct {
		Op string `json:"op"`

		// scan
		Table   string    `json:"table,omitempty"`
		Columns []colNode `json:"columns,omitempty"`

		// filter, scan, join
		Predicate *exprNode `json:"predicate,omitempty"`

		// window
		Calls []callNode `json:"calls,omitempty"`

		// window, topn
		PartitionBy []colNode   `json:"partition_by,omitempty"`
		OrderBy     []orderNode `json:"order_by,omitempty"`

		Inputs []*planNode `json:"inputs,omitempty"`
	}

	colNode struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	callNode struct {
		Output colNode `json:"output"`
		Fn     string  `json:"fn"`
	}

	orderNode struct {
		Col  colNode `json:"col"`
		Desc bool    `json:"desc,omitempty"`
	}

	exprNode struct {
		Col *colNode `json:"col,omitempty"`
		Lit *litNode `json:"lit,omitempty"`
		Cmp *cmpNode `json:"cmp,omitempty"`
		And *andNode `json:"and,omitempty"`
	}

	litNode struct {
		Int *int64  `json:"int,omitempty"`
		Str *string `json:"str,omitempty"`
	}

	cmpNode struct {
		Op    string   `json:"op"`
		Left  exprNode `json:"left"`
		Right exprNode `json:"right"`
	}

	andNode struct {
		Left  exprNode `json:"left"`
		Right exprNode `json:"right"`
	}
)

func decodePlan(data []byte) (*optimizer.OptExpression, error) {
	var root planNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, terrors.Wrap(err, "decoding plan")
	}
	return buildExpr(&root)
}

func buildExpr(node *planNode) (*optimizer.OptExpression, error) {
	inputs := make([]*optimizer.OptExpression, 0, len(node.Inputs))
	for _, in := range node.Inputs {
		expr, err := buildExpr(in)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, expr)
	}

	op, err := buildOperator(node)
	if err != nil {
		return nil, err
	}
	if want, got := expectedInputs(op.Type()), len(inputs); want >= 0 && want != got {
		return nil, terrors.Errorf(terrors.CodeInvalidArgument, "%v expects %d inputs, got %d", op.Type(), want, got)
	}
	return optimizer.NewExpr(op, inputs...), nil
}

func expectedInputs(t optimizer.OpType) int {
	switch t {
	case optimizer.OpScan:
		return 0
	case optimizer.OpFilter, optimizer.OpWindow, optimizer.OpTopN:
		return 1
	case optimizer.OpJoin:
		return 2
	}
	return -1
}

func buildOperator(node *planNode) (optimizer.Operator, error) {
	switch strings.ToLower(node.Op) {
	case "scan":
		cols := make([]*scalar.ColumnRef, 0, len(node.Columns))
		for _, c := range node.Columns {
			cols = append(cols, buildCol(c))
		}
		var pred scalar.Expr
		if node.Predicate != nil {
			var err error
			if pred, err = buildScalar(*node.Predicate); err != nil {
				return nil, err
			}
		}
		return &optimizer.Scan{Table: node.Table, Columns: cols, Predicate: pred}, nil

	case "filter":
		if node.Predicate == nil {
			return nil, terrors.New(terrors.CodeInvalidArgument, "filter requires a predicate")
		}
		pred, err := buildScalar(*node.Predicate)
		if err != nil {
			return nil, err
		}
		return &optimizer.Filter{Predicate: pred}, nil

	case "window":
		calls := make([]optimizer.WindowCall, 0, len(node.Calls))
		for _, c := range node.Calls {
			calls = append(calls, optimizer.WindowCall{
				Output: buildCol(c.Output),
				Call:   scalar.NewCall(c.Fn),
			})
		}
		return &optimizer.Window{
			Calls:       calls,
			PartitionBy: buildCols(node.PartitionBy),
			OrderBy:     buildOrderBy(node.OrderBy),
		}, nil

	default:
		return nil, terrors.Errorf(terrors.CodeInvalidArgument, "unknown operator %q", node.Op)
	}
}

func buildCol(c colNode) *scalar.ColumnRef {
	return scalar.NewColumnRef(c.ID, c.Name, scalar.TypeBigint)
}

func buildCols(cols []colNode) []*scalar.ColumnRef {
	if len(cols) == 0 {
		return nil
	}
	out := make([]*scalar.ColumnRef, 0, len(cols))
	for _, c := range cols {
		out = append(out, buildCol(c))
	}
	return out
}

func buildOrderBy(elems []orderNode) []optimizer.OrderByElem {
	if len(elems) == 0 {
		return nil
	}
	out := make([]optimizer.OrderByElem, 0, len(elems))
	for _, e := range elems {
		out = append(out, optimizer.OrderByElem{Col: buildCol(e.Col), Desc: e.Desc})
	}
	return out
}

func buildScalar(node exprNode) (scalar.Expr, error) {
	switch {
	case node.Col != nil:
		return buildCol(*node.Col), nil

	case node.Lit != nil:
		if node.Lit.Int != nil {
			return scalar.NewBigintLiteral(*node.Lit.Int), nil
		}
		if node.Lit.Str != nil {
			return scalar.NewVarcharLiteral(*node.Lit.Str), nil
		}
		return nil, terrors.New(terrors.CodeInvalidArgument, "literal requires int or str")

	case node.Cmp != nil:
		op, err := compareOp(node.Cmp.Op)
		if err != nil {
			return nil, err
		}
		left, err := buildScalar(node.Cmp.Left)
		if err != nil {
			return nil, err
		}
		right, err := buildScalar(node.Cmp.Right)
		if err != nil {
			return nil, err
		}
		return scalar.NewComparison(op, left, right), nil

	case node.And != nil:
		left, err := buildScalar(node.And.Left)
		if err != nil {
			return nil, err
		}
		right, err := buildScalar(node.And.Right)
		if err != nil {
			return nil, err
		}
		return &scalar.AndExpr{Left: left, Right: right}, nil
	}
	return nil, terrors.New(terrors.CodeInvalidArgument, "empty scalar expression")
}

func compareOp(s string) (scalar.CompareOp, error) {
	switch s {
	case "<":
		return scalar.LT, nil
	case "<=":
		return scalar.LE, nil
	case ">":
		return scalar.GT, nil
	case ">=":
		return scalar.GE, nil
	case "=", "==":
		return scalar.EQ, nil
	case "!=", "<>":
		return scalar.NE, nil
	}
	return 0, terrors.Errorf(terrors.CodeInvalidArgument, "unknown comparison %q", s)
}
