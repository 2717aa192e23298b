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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tundradb/tundra/go/td/optimizer/scalar"
)

var (
	colV1 = scalar.NewColumnRef(1, "v1", scalar.TypeBigint)
	colV2 = scalar.NewColumnRef(2, "v2", scalar.TypeBigint)
	colRk = scalar.NewColumnRef(3, "rk", scalar.TypeBigint)
	colK1 = scalar.NewColumnRef(4, "k1", scalar.TypeBigint)
	colR2 = scalar.NewColumnRef(5, "rk2", scalar.TypeBigint)
)

// rankQuery builds Filter(pred, Window(fn -> rk, partition, order by v2, Scan(t0))),
// the shape of:
//
//	select * from (select *, fn() over (...) as rk from t0) sub where <pred>
func rankQuery(pred scalar.Expr, fn string, partitionBy ...*scalar.ColumnRef) *OptExpression {
	window := &Window{
		Calls:       []WindowCall{{Output: colRk, Call: scalar.NewCall(fn)}},
		PartitionBy: partitionBy,
		OrderBy:     []OrderByElem{{Col: colV2}},
	}
	scan := NewExpr(&Scan{Table: "t0", Columns: []*scalar.ColumnRef{colV1, colV2}})
	return NewExpr(&Filter{Predicate: pred}, NewExpr(window, scan))
}

func pipelineCtx() *Context {
	return NewContext(SessionVariables{EnablePipelineEngine: true})
}

func applyWindowRankRule(t *testing.T, expr *OptExpression, ctx *Context) []*OptExpression {
	t.Helper()
	rules := RulesForOperator(OpFilter)
	for _, rule := range rules {
		if rule.RuleType() == RulePushDownPredicateWindowRank {
			return ApplyRule(rule, expr, ctx)
		}
	}
	t.Fatal("rule not registered")
	return nil
}

func requireTopN(t *testing.T, produced []*OptExpression) *TopN {
	t.Helper()
	require.Len(t, produced, 1)
	result := produced[0]

	// Filter and Window stay in place, unchanged; the TopN appears
	// between the Window and its former child.
	require.Equal(t, OpFilter, result.Op().Type())
	require.Equal(t, OpWindow, result.Input(0).Op().Type())
	require.Equal(t, OpTopN, result.Input(0).Input(0).Op().Type())
	require.Equal(t, OpScan, result.Input(0).Input(0).Input(0).Op().Type())
	return result.Input(0).Input(0).Op().(*TopN)
}

func TestPushDownWindowRankStrictBound(t *testing.T) {
	// rk < 4 admits ranks 1..3.
	expr := rankQuery(scalar.NewComparison(scalar.LT, colRk, scalar.NewBigintLiteral(4)), scalar.RowNumber)
	topN := requireTopN(t, applyWindowRankRule(t, expr, pipelineCtx()))

	assert.Empty(t, topN.PartitionBy)
	assert.Equal(t, SortPhaseFinal, topN.Phase)
	assert.Equal(t, int64(3), topN.Limit)
	assert.Equal(t, NoLimit, topN.PartitionLimit)
	assert.Equal(t, []OrderByElem{{Col: colV2}}, topN.OrderBy)
}

func TestPushDownWindowRankInclusiveBound(t *testing.T) {
	// rk <= 4 admits ranks 1..4.
	expr := rankQuery(scalar.NewComparison(scalar.LE, colRk, scalar.NewBigintLiteral(4)), scalar.RowNumber)
	topN := requireTopN(t, applyWindowRankRule(t, expr, pipelineCtx()))

	assert.Equal(t, SortPhaseFinal, topN.Phase)
	assert.Equal(t, int64(4), topN.Limit)
	assert.Equal(t, NoLimit, topN.PartitionLimit)
}

func TestPushDownWindowRankPartitioned(t *testing.T) {
	// With a partition column the bound must be enforced before the
	// exchange, per partition.
	expr := rankQuery(scalar.NewComparison(scalar.LE, colRk, scalar.NewBigintLiteral(4)), scalar.RowNumber, colK1)
	topN := requireTopN(t, applyWindowRankRule(t, expr, pipelineCtx()))

	assert.Equal(t, []*scalar.ColumnRef{colK1}, topN.PartitionBy)
	assert.Equal(t, SortPhasePartial, topN.Phase)
	assert.Equal(t, NoLimit, topN.Limit)
	assert.Equal(t, int64(4), topN.PartitionLimit)
	assert.Equal(t, []OrderByElem{{Col: colK1, NullsFirst: true}, {Col: colV2}}, topN.OrderBy)
}

func TestPushDownWindowRankPartitionedStrict(t *testing.T) {
	expr := rankQuery(scalar.NewComparison(scalar.LT, colRk, scalar.NewBigintLiteral(4)), scalar.RowNumber, colK1)
	topN := requireTopN(t, applyWindowRankRule(t, expr, pipelineCtx()))

	assert.Equal(t, SortPhasePartial, topN.Phase)
	assert.Equal(t, int64(3), topN.PartitionLimit)
	assert.Equal(t, NoLimit, topN.Limit)
}

func TestPushDownWindowRankNotApplicable(t *testing.T) {
	lt4 := scalar.NewComparison(scalar.LT, colRk, scalar.NewBigintLiteral(4))

	tcs := []struct {
		name string
		expr *OptExpression
		ctx  *Context
	}{{
		name: "pipeline engine disabled",
		expr: rankQuery(lt4, scalar.RowNumber),
		ctx:  NewContext(SessionVariables{EnablePipelineEngine: false}),
	}, {
		name: "rank instead of row_number",
		expr: rankQuery(lt4, scalar.Rank),
	}, {
		name: "dense_rank instead of row_number",
		expr: rankQuery(lt4, scalar.DenseRank),
	}, {
		// Known conservative limitation: with two bounds on the rank the
		// tightest should win, but the rule skips instead.
		name: "two rank comparisons",
		expr: rankQuery(scalar.AndExpressions(
			lt4,
			scalar.NewComparison(scalar.LE, colRk, scalar.NewBigintLiteral(5)),
		), scalar.RowNumber),
	}, {
		name: "lower bound only",
		expr: rankQuery(scalar.NewComparison(scalar.GE, colRk, scalar.NewBigintLiteral(5)), scalar.RowNumber),
	}, {
		name: "bound on a different column",
		expr: rankQuery(scalar.NewComparison(scalar.LT, colV1, scalar.NewBigintLiteral(4)), scalar.RowNumber),
	}, {
		name: "non-literal bound",
		expr: rankQuery(scalar.NewComparison(scalar.LT, colRk, colV1), scalar.RowNumber),
	}, {
		name: "no admissible rank",
		expr: rankQuery(scalar.NewComparison(scalar.LT, colRk, scalar.NewBigintLiteral(1)), scalar.RowNumber),
	}, {
		name: "two partition columns",
		expr: rankQuery(lt4, scalar.RowNumber, colK1, colV1),
	}}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			ctx := tc.ctx
			if ctx == nil {
				ctx = pipelineCtx()
			}
			assert.Empty(t, applyWindowRankRule(t, tc.expr, ctx))
		})
	}
}

func TestPushDownWindowRankIgnoresUnrelatedConjuncts(t *testing.T) {
	// Only the bound on the rank output matters; other conjuncts ride
	// along in the untouched filter.
	pred := scalar.AndExpressions(
		scalar.NewComparison(scalar.LT, colRk, scalar.NewBigintLiteral(4)),
		scalar.NewComparison(scalar.EQ, colV1, scalar.NewBigintLiteral(7)),
	)
	expr := rankQuery(pred, scalar.RowNumber)
	topN := requireTopN(t, applyWindowRankRule(t, expr, pipelineCtx()))
	assert.Equal(t, int64(3), topN.Limit)
}

func TestPushDownWindowRankMultipleWindowCalls(t *testing.T) {
	window := &Window{
		Calls: []WindowCall{
			{Output: colRk, Call: scalar.NewCall(scalar.RowNumber)},
			{Output: colR2, Call: scalar.NewCall(scalar.RowNumber)},
		},
		OrderBy: []OrderByElem{{Col: colV2}},
	}
	expr := NewExpr(
		&Filter{Predicate: scalar.NewComparison(scalar.LT, colRk, scalar.NewBigintLiteral(4))},
		NewExpr(window, scanExpr("t0")))

	assert.Empty(t, applyWindowRankRule(t, expr, pipelineCtx()))
}

func TestPushDownWindowRankStackedWindows(t *testing.T) {
	newWindow := func(output *scalar.ColumnRef, orderBy []OrderByElem) *Window {
		return &Window{
			Calls:   []WindowCall{{Output: output, Call: scalar.NewCall(scalar.RowNumber)}},
			OrderBy: orderBy,
		}
	}
	lt4 := scalar.NewComparison(scalar.LT, colRk, scalar.NewBigintLiteral(4))

	t.Run("same sort group produces nothing", func(t *testing.T) {
		inner := NewExpr(newWindow(colR2, []OrderByElem{{Col: colV2}}), scanExpr("t0"))
		expr := NewExpr(&Filter{Predicate: lt4},
			NewExpr(newWindow(colRk, []OrderByElem{{Col: colV2}}), inner))
		assert.Empty(t, applyWindowRankRule(t, expr, pipelineCtx()))
	})

	t.Run("different sort group rewrites", func(t *testing.T) {
		inner := NewExpr(newWindow(colR2, []OrderByElem{{Col: colV1}}), scanExpr("t0"))
		expr := NewExpr(&Filter{Predicate: lt4},
			NewExpr(newWindow(colRk, []OrderByElem{{Col: colV2}}), inner))

		produced := applyWindowRankRule(t, expr, pipelineCtx())
		require.Len(t, produced, 1)
		assert.Equal(t, OpTopN, produced[0].Input(0).Input(0).Op().Type())
	})
}

func TestPushDownWindowRankIdempotent(t *testing.T) {
	expr := rankQuery(scalar.NewComparison(scalar.LT, colRk, scalar.NewBigintLiteral(4)), scalar.RowNumber)
	ctx := pipelineCtx()

	produced := applyWindowRankRule(t, expr, ctx)
	require.Len(t, produced, 1)

	// Feeding the rule its own output must not insert a second TopN.
	assert.Empty(t, applyWindowRankRule(t, produced[0], ctx))
}

func TestPushDownWindowRankLeavesInputUntouched(t *testing.T) {
	expr := rankQuery(scalar.NewComparison(scalar.LT, colRk, scalar.NewBigintLiteral(4)), scalar.RowNumber)
	before := expr.String()

	produced := applyWindowRankRule(t, expr, pipelineCtx())
	require.Len(t, produced, 1)
	assert.NotSame(t, expr, produced[0])
	assert.Equal(t, before, expr.String())

	// The untouched subtrees are shared, not copied.
	assert.Same(t, expr.Op(), produced[0].Op())
	assert.Same(t, expr.Input(0).Op(), produced[0].Input(0).Op())
	assert.Same(t, expr.Input(0).Input(0), produced[0].Input(0).Input(0).Input(0))
}
