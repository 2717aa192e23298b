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
	"strings"

	"github.com/tundradb/tundra/go/td/optimizer/scalar"
)

// pushDownPredicateWindowRankRule inserts a TopN below a ranking window
// when a predicate bounds the rank from above.
//
// For a query like
//
//	select * from (
//	    select *, row_number() over (order by v2) as rk from t0
//	) sub
//	where rk < 4
//
// only the first three rows per window frame can ever survive the filter,
// so a TopN placed below the window cuts the data before it is exchanged
// and sorted. The filter itself stays in place: the TopN is a pre-filter,
// not a replacement, and a later rule is responsible for proving the filter
// redundant and removing it.
type pushDownPredicateWindowRankRule struct {
	baseRule
}

func newPushDownPredicateWindowRankRule() Rule {
	return &pushDownPredicateWindowRankRule{
		baseRule: baseRule{
			ruleType: RulePushDownPredicateWindowRank,
			pattern: NewPattern(OpFilter,
				NewPattern(OpWindow, PatternLeaf())),
		},
	}
}

func (r *pushDownPredicateWindowRankRule) Check(input *OptExpression, ctx *Context) bool {
	// The rewrite produces a partitioned TopN variant that only the
	// pipeline engine can execute.
	if !ctx.IsFeatureEnabled(FeaturePipelineEngine) {
		return false
	}

	childExpr := input.Input(0)
	window := childExpr.Op().(*Window)

	if len(window.Calls) != 1 {
		return false
	}

	// TODO(optimizer): support rank/dense_rank once duplicate ranks can be
	// cut safely.
	if !strings.EqualFold(window.Calls[0].Call.Name, scalar.RowNumber) {
		return false
	}

	if len(childExpr.Inputs()) > 0 {
		switch next := childExpr.Input(0).Op().(type) {
		case *Window:
			// A TopN between two windows of the same sort group would be
			// redundant: the sort below is already usable as-is.
			return !OrderByElemsEqual(window.EnforceSortColumns(), next.EnforceSortColumns())
		case *TopN:
			// The bound was already pushed down; inserting a second TopN
			// with the same sort requirement would achieve nothing.
			return !OrderByElemsEqual(window.EnforceSortColumns(), next.OrderBy)
		}
	}

	return true
}

func (r *pushDownPredicateWindowRankRule) Transform(input *OptExpression, ctx *Context) []*OptExpression {
	filter := input.Op().(*Filter)
	conjuncts := scalar.SplitAndExpression(nil, filter.Predicate)

	childExpr := input.Input(0)
	window := childExpr.Op().(*Window)
	windowCol := window.Calls[0].Output

	var bounds []*scalar.Comparison
	for _, conjunct := range conjuncts {
		cmp, ok := conjunct.(*scalar.Comparison)
		if !ok || (cmp.Op != scalar.LT && cmp.Op != scalar.LE) {
			continue
		}
		if !windowCol.Equal(cmp.Left) {
			continue
		}
		if lit, ok := cmp.Right.(*scalar.Literal); !ok || lit.Typ != scalar.TypeBigint {
			continue
		}
		bounds = append(bounds, cmp)
	}

	// With several rank bounds (e.g. rk < 1 and rk < 5) the tightest one
	// should win, but that simplification belongs to an earlier rule.
	// Until it exists, skip the ambiguous case.
	if len(bounds) != 1 {
		return nil
	}

	// The limit is the maximum admissible rank: `rk < 4` keeps ranks 1..3,
	// `rk <= 4` keeps ranks 1..4.
	limitValue := bounds[0].Right.(*scalar.Literal).I64
	if bounds[0].Op == scalar.LT {
		limitValue--
	}
	if limitValue <= 0 {
		return nil
	}

	// TODO(optimizer): support more than one partition column.
	partitionByColumns := window.PartitionBy
	if len(partitionByColumns) > 1 {
		return nil
	}

	// A global rank bound without partitioning is enforced centrally after
	// the exchange, so the sort property of the FINAL phase stays derivable.
	// A per-partition bound must be applied before redistribution, where
	// only a PARTIAL sort exists.
	sortPhase := SortPhaseFinal
	limit, partitionLimit := limitValue, NoLimit
	if len(partitionByColumns) > 0 {
		sortPhase = SortPhasePartial
		limit, partitionLimit = NoLimit, limitValue
	}

	topNExpr := NewExpr(&TopN{
		PartitionBy:    partitionByColumns,
		PartitionLimit: partitionLimit,
		OrderBy:        window.EnforceSortColumns(),
		Limit:          limit,
		Phase:          sortPhase,
	}, childExpr.Inputs()...)

	windowExpr := NewExpr(window, topNExpr)

	return []*OptExpression{NewExpr(filter, windowExpr)}
}
