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

// RuleType uniquely identifies a transformation rule. It is what the
// enable/disable bookkeeping and the logs refer to.
type RuleType int

const (
	RuleNone RuleType = iota
	RulePushDownPredicateWindowRank
	RulePushDownPredicateScan
	RuleMergeTwoFilters
)

func (t RuleType) String() string {
	switch t {
	case RulePushDownPredicateWindowRank:
		return "push_down_predicate_window_rank"
	case RulePushDownPredicateScan:
		return "push_down_predicate_scan"
	case RuleMergeTwoFilters:
		return "merge_two_filters"
	}
	return "none"
}

// Rule is a named transformation keyed on one Pattern.
//
// Check and Transform must be pure functions of the expression and the
// context: no mutation of either, no shared state. They may run
// concurrently on different nodes. Transform returning an empty slice is
// the normal way to say "not applicable after all" once attributes have
// been inspected; it is never an error.
type Rule interface {
	RuleType() RuleType

	// Pattern returns the fixed pattern this rule is keyed on. The driver
	// uses it to select candidate rules cheaply before running Check.
	Pattern() *Pattern

	// Check decides applicability from operator attributes and session
	// flags. It is only called on expressions the pattern matched.
	Check(expr *OptExpression, ctx *Context) bool

	// Transform produces zero or more equivalent rewrites. Produced trees
	// are always new nodes; the input tree is never touched.
	Transform(expr *OptExpression, ctx *Context) []*OptExpression
}

// baseRule carries the identity shared by every rule implementation.
type baseRule struct {
	ruleType RuleType
	pattern  *Pattern
}

func (r *baseRule) RuleType() RuleType { return r.ruleType }
func (r *baseRule) Pattern() *Pattern  { return r.pattern }

func (r *baseRule) Check(*OptExpression, *Context) bool { return true }

// transformationRules is the process-wide rule table. It is built here and
// never mutated; the per-pass enabled set lives in the Context instead.
var transformationRules = []Rule{
	newPushDownPredicateWindowRankRule(),
	newPushDownPredicateScanRule(),
	newMergeTwoFiltersRule(),
}

// rulesByOp indexes the rule table by the root operator type of each
// pattern, so the driver only considers plausible candidates per node.
var rulesByOp = func() map[OpType][]Rule {
	index := make(map[OpType][]Rule)
	for _, rule := range transformationRules {
		op := rule.Pattern().Op()
		index[op] = append(index[op], rule)
	}
	return index
}()

// RulesForOperator returns the registered rules whose pattern roots at the
// given operator type. The returned slice is shared and read-only.
func RulesForOperator(t OpType) []Rule {
	return rulesByOp[t]
}
