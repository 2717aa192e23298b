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

	"github.com/tundradb/tundra/go/td/log"
)

// maxRewritesPerNode bounds how often rules may fire on one tree position
// before the driver gives up. Rules are expected to reach a fixpoint long
// before this; hitting the bound means a rule keeps rewriting its own
// output.
const maxRewritesPerNode = 16

// ApplyRule runs the pattern -> guard -> transform funnel of a single rule
// against a single node. The empty result means the rule does not apply;
// that is a routine outcome, not a failure.
func ApplyRule(rule Rule, expr *OptExpression, ctx *Context) []*OptExpression {
	if !rule.Pattern().Match(expr) {
		return nil
	}
	if !rule.Check(expr, ctx) {
		return nil
	}
	return rule.Transform(expr, ctx)
}

// RewriteBottomUp rewrites the tree until no enabled rule fires anymore.
// Children are rewritten before their parents, so a parent rule always sees
// fully rewritten inputs. The returned bool reports whether anything
// changed.
//
// The driver itself is single-threaded over one tree. Because rules are
// pure and trees are never shared between drivers, independent trees may be
// driven concurrently.
func RewriteBottomUp(ctx *Context, root *OptExpression) (*OptExpression, bool) {
	oldInputs := root.Inputs()
	newInputs := make([]*OptExpression, len(oldInputs))
	anythingChanged := false
	for i, input := range oldInputs {
		in, changed := RewriteBottomUp(ctx, input)
		if changed {
			anythingChanged = true
		}
		newInputs[i] = in
	}
	if anythingChanged {
		root = NewExpr(root.Op(), newInputs...)
	}

	for i := 0; i < maxRewritesPerNode; i++ {
		produced := applyFirstRule(ctx, root)
		if produced == nil {
			return root, anythingChanged
		}
		anythingChanged = true
		root = produced
	}
	panic(fmt.Sprintf("BUG: no fixpoint after %d rewrites of %v", maxRewritesPerNode, root.Op().Type()))
}

// applyFirstRule tries the enabled candidate rules for this node and
// returns the first alternative produced, or nil when no rule fires.
// Alternatives beyond the first are a cost-based search concern and are
// left to the caller that collects them through ApplyRule directly.
func applyFirstRule(ctx *Context, expr *OptExpression) *OptExpression {
	for _, rule := range RulesForOperator(expr.Op().Type()) {
		if !ctx.RuleEnabled(rule.RuleType()) {
			continue
		}
		produced := ApplyRule(rule, expr, ctx)
		if len(produced) == 0 {
			continue
		}
		if log.V(2) {
			log.Infof("rule %v rewrote %v", rule.RuleType(), expr.Op().Type())
		}
		// A produced tree can expose new opportunities below the node it
		// replaced, e.g. a merged filter right above a scan.
		rewritten, _ := RewriteBottomUp(ctx, produced[0])
		return rewritten
	}
	return nil
}
