/*
 * Copyright 2024 The WeaveGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pointcut

import (
	"reflect"

	"github.com/weavego/weavego/api/types"
)

// Boolean combinators for class filters and method matchers.
// All combinators short-circuit, and a combination is runtime (dynamic)
// whenever any of its operands is runtime.
// 类过滤器和方法匹配器的布尔组合器。
// 所有组合器都短路求值，只要任一操作数是动态匹配器，组合结果就是动态的。

// AndClassFilter matches when every filter matches.
func AndClassFilter(filters ...types.ClassFilter) types.ClassFilter {
	return andClassFilter(filters)
}

type andClassFilter []types.ClassFilter

func (f andClassFilter) Matches(targetType reflect.Type) bool {
	for _, filter := range f {
		if !filter.Matches(targetType) {
			return false
		}
	}
	return true
}

// OrClassFilter matches when any filter matches.
func OrClassFilter(filters ...types.ClassFilter) types.ClassFilter {
	return orClassFilter(filters)
}

type orClassFilter []types.ClassFilter

func (f orClassFilter) Matches(targetType reflect.Type) bool {
	for _, filter := range f {
		if filter.Matches(targetType) {
			return true
		}
	}
	return false
}

// NotClassFilter matches when the wrapped filter does not.
func NotClassFilter(filter types.ClassFilter) types.ClassFilter {
	return notClassFilter{filter}
}

type notClassFilter struct {
	inner types.ClassFilter
}

func (f notClassFilter) Matches(targetType reflect.Type) bool {
	return !f.inner.Matches(targetType)
}

// AndMethodMatcher matches when every matcher matches. The combination is
// runtime when any operand is runtime; static operands are then settled during
// the static phase and not re-asked per call.
func AndMethodMatcher(matchers ...types.MethodMatcher) types.MethodMatcher {
	return andMethodMatcher(matchers)
}

type andMethodMatcher []types.MethodMatcher

func (m andMethodMatcher) Matches(method reflect.Method, targetType reflect.Type) bool {
	for _, matcher := range m {
		if !matcher.Matches(method, targetType) {
			return false
		}
	}
	return true
}

func (m andMethodMatcher) IsRuntime() bool {
	for _, matcher := range m {
		if matcher.IsRuntime() {
			return true
		}
	}
	return false
}

func (m andMethodMatcher) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	for _, matcher := range m {
		if matcher.IsRuntime() && !matcher.MatchesArgs(method, targetType, args) {
			return false
		}
	}
	return true
}

// OrMethodMatcher matches when any matcher matches.
// An or of a static-only and a dynamic matcher is itself dynamic.
func OrMethodMatcher(matchers ...types.MethodMatcher) types.MethodMatcher {
	return orMethodMatcher(matchers)
}

type orMethodMatcher []types.MethodMatcher

func (m orMethodMatcher) Matches(method reflect.Method, targetType reflect.Type) bool {
	if m.IsRuntime() {
		// The per-call phase decides; statically the union stays a candidate
		// as soon as any operand could match.
		// 每次调用阶段决定；只要任一操作数可能匹配，联合在静态阶段就保持候选。
		for _, matcher := range m {
			if matcher.IsRuntime() || matcher.Matches(method, targetType) {
				return true
			}
		}
		return false
	}
	for _, matcher := range m {
		if matcher.Matches(method, targetType) {
			return true
		}
	}
	return false
}

func (m orMethodMatcher) IsRuntime() bool {
	for _, matcher := range m {
		if matcher.IsRuntime() {
			return true
		}
	}
	return false
}

func (m orMethodMatcher) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	for _, matcher := range m {
		if matcher.IsRuntime() {
			if matcher.Matches(method, targetType) && matcher.MatchesArgs(method, targetType, args) {
				return true
			}
		} else if matcher.Matches(method, targetType) {
			return true
		}
	}
	return false
}

// NotMethodMatcher matches when the wrapped matcher does not. Negating a
// dynamic matcher defers the whole decision to the per-call phase.
func NotMethodMatcher(matcher types.MethodMatcher) types.MethodMatcher {
	return notMethodMatcher{matcher}
}

type notMethodMatcher struct {
	inner types.MethodMatcher
}

func (m notMethodMatcher) Matches(method reflect.Method, targetType reflect.Type) bool {
	if m.inner.IsRuntime() {
		return true
	}
	return !m.inner.Matches(method, targetType)
}

func (m notMethodMatcher) IsRuntime() bool { return m.inner.IsRuntime() }

func (m notMethodMatcher) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	return !(m.inner.Matches(method, targetType) && m.inner.MatchesArgs(method, targetType, args))
}

// Intersection returns a pointcut matching join points matched by both pointcuts.
func Intersection(a, b types.Pointcut) types.Pointcut {
	return &Default{
		Filter:  AndClassFilter(a.ClassFilter(), b.ClassFilter()),
		Matcher: AndMethodMatcher(a.MethodMatcher(), b.MethodMatcher()),
	}
}

// Union returns a pointcut matching join points matched by either pointcut.
func Union(a, b types.Pointcut) types.Pointcut {
	return &Default{
		Filter:  OrClassFilter(a.ClassFilter(), b.ClassFilter()),
		Matcher: OrMethodMatcher(a.MethodMatcher(), b.MethodMatcher()),
	}
}
