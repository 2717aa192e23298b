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

import "github.com/tundradb/tundra/go/td/optimizer/scalar"

// pushDownPredicateScanRule folds a Filter into the Scan below it, so the
// predicate is evaluated while reading instead of in a separate node.
type pushDownPredicateScanRule struct {
	baseRule
}

func newPushDownPredicateScanRule() Rule {
	return &pushDownPredicateScanRule{
		baseRule: baseRule{
			ruleType: RulePushDownPredicateScan,
			pattern:  NewPattern(OpFilter, NewPattern(OpScan)),
		},
	}
}

func (r *pushDownPredicateScanRule) Transform(input *OptExpression, ctx *Context) []*OptExpression {
	filter := input.Op().(*Filter)
	scan := input.Input(0).Op().(*Scan)

	conjuncts := scalar.SplitAndExpression(nil, scan.Predicate)
	conjuncts = scalar.SplitAndExpression(conjuncts, filter.Predicate)

	newScan := scan.WithPredicate(scalar.AndExpressions(conjuncts...))
	return []*OptExpression{NewExpr(newScan)}
}

// mergeTwoFiltersRule collapses adjacent Filters into one whose predicate
// is the conjunction of both.
type mergeTwoFiltersRule struct {
	baseRule
}

func newMergeTwoFiltersRule() Rule {
	return &mergeTwoFiltersRule{
		baseRule: baseRule{
			ruleType: RuleMergeTwoFilters,
			pattern: NewPattern(OpFilter,
				NewPattern(OpFilter, PatternLeaf())),
		},
	}
}

func (r *mergeTwoFiltersRule) Transform(input *OptExpression, ctx *Context) []*OptExpression {
	upper := input.Op().(*Filter)
	childExpr := input.Input(0)
	lower := childExpr.Op().(*Filter)

	conjuncts := scalar.SplitAndExpression(nil, lower.Predicate)
	conjuncts = scalar.SplitAndExpression(conjuncts, upper.Predicate)

	merged := upper.WithPredicate(scalar.AndExpressions(conjuncts...))
	return []*OptExpression{NewExpr(merged, childExpr.Inputs()...)}
}
