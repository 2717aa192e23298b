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

// Feature identifies a session-scoped capability that gates rules.
type Feature int

const (
	// FeaturePipelineEngine is set when the executor runs the pipeline
	// engine. Some operator variants, like partitioned TopN, only exist
	// there.
	FeaturePipelineEngine Feature = iota
)

// SessionVariables is the snapshot of the session settings a planning pass
// runs under. The snapshot is taken before planning starts and is read-only
// afterwards.
type SessionVariables struct {
	EnablePipelineEngine bool
}

// Context carries everything a rule may consult while planning one query:
// the session snapshot, the frozen set of enabled rules, and the column
// reference allocator. It is built once per pass and never written to while
// rules run, so rules may read it concurrently.
type Context struct {
	session  SessionVariables
	disabled map[RuleType]bool

	// ColRefs allocates plan-unique column references.
	ColRefs *scalar.ColumnRefFactory
}

// ContextOption configures a Context at construction time.
type ContextOption func(*Context)

// WithDisabledRules removes rules from the enabled set for this pass.
func WithDisabledRules(types ...RuleType) ContextOption {
	return func(ctx *Context) {
		for _, t := range types {
			ctx.disabled[t] = true
		}
	}
}

// NewContext builds the context for one planning pass. All configuration
// happens here; the result is frozen.
func NewContext(session SessionVariables, opts ...ContextOption) *Context {
	ctx := &Context{
		session:  session,
		disabled: make(map[RuleType]bool),
		ColRefs:  &scalar.ColumnRefFactory{},
	}
	for _, opt := range opts {
		opt(ctx)
	}
	return ctx
}

// IsFeatureEnabled reports whether a session capability is available.
func (ctx *Context) IsFeatureEnabled(f Feature) bool {
	switch f {
	case FeaturePipelineEngine:
		return ctx.session.EnablePipelineEngine
	}
	return false
}

// RuleEnabled reports whether a rule participates in this pass.
func (ctx *Context) RuleEnabled(t RuleType) bool {
	return !ctx.disabled[t]
}
