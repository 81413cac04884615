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

// Package pointcut implements the predicate model: canonical match-all
// filters, name-match and expression-based pointcuts, and boolean combinators.
// 包 pointcut 实现谓词模型：全匹配过滤器、按名称匹配和基于表达式的切入点，以及布尔组合器。
package pointcut

import (
	"reflect"

	"github.com/weavego/weavego/api/types"
	"github.com/weavego/weavego/utils/str"
)

// TrueClassFilter is the canonical class filter that matches every type.
// TrueClassFilter 匹配所有类型的标准类过滤器。
var TrueClassFilter types.ClassFilter = trueClassFilter{}

type trueClassFilter struct{}

func (trueClassFilter) Matches(targetType reflect.Type) bool { return true }

// TrueMethodMatcher is the canonical static matcher that matches every method.
// TrueMethodMatcher 匹配所有方法的标准静态匹配器。
var TrueMethodMatcher types.MethodMatcher = trueMethodMatcher{}

type trueMethodMatcher struct{}

func (trueMethodMatcher) Matches(method reflect.Method, targetType reflect.Type) bool { return true }

func (trueMethodMatcher) IsRuntime() bool { return false }

func (trueMethodMatcher) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	panic("MatchesArgs is never expected on a static matcher")
}

// TruePointcut is the canonical pointcut that matches everything.
// TruePointcut 匹配一切的标准切入点。
var TruePointcut types.Pointcut = truePointcut{}

type truePointcut struct{}

func (truePointcut) ClassFilter() types.ClassFilter     { return TrueClassFilter }
func (truePointcut) MethodMatcher() types.MethodMatcher { return TrueMethodMatcher }

// Default is a pointcut assembled from an arbitrary filter/matcher pair.
// A nil part defaults to the canonical match-all singleton.
// Default 由任意过滤器/匹配器对组装的切入点。nil 的部分默认使用全匹配单例。
type Default struct {
	Filter  types.ClassFilter
	Matcher types.MethodMatcher
}

func New(filter types.ClassFilter, matcher types.MethodMatcher) *Default {
	return &Default{Filter: filter, Matcher: matcher}
}

func (p *Default) ClassFilter() types.ClassFilter {
	if p.Filter == nil {
		return TrueClassFilter
	}
	return p.Filter
}

func (p *Default) MethodMatcher() types.MethodMatcher {
	if p.Matcher == nil {
		return TrueMethodMatcher
	}
	return p.Matcher
}

// ClassFilterFunc adapts a func into a types.ClassFilter.
type ClassFilterFunc func(targetType reflect.Type) bool

func (f ClassFilterFunc) Matches(targetType reflect.Type) bool { return f(targetType) }

// StaticMethodMatcherFunc adapts a func into a static-only types.MethodMatcher.
type StaticMethodMatcherFunc func(method reflect.Method, targetType reflect.Type) bool

func (f StaticMethodMatcherFunc) Matches(method reflect.Method, targetType reflect.Type) bool {
	return f(method, targetType)
}

func (f StaticMethodMatcherFunc) IsRuntime() bool { return false }

func (f StaticMethodMatcherFunc) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	panic("MatchesArgs is never expected on a static matcher")
}

// TypeClassFilter matches one concrete type, its pointer type, or, when the
// filtered type is an interface, every implementation of it.
// TypeClassFilter 匹配某个具体类型、它的指针类型，或当被过滤类型是接口时，它的所有实现。
type TypeClassFilter struct {
	Type reflect.Type
}

func ForType(t reflect.Type) *TypeClassFilter {
	return &TypeClassFilter{Type: t}
}

func (f *TypeClassFilter) Matches(targetType reflect.Type) bool {
	if f.Type == nil || targetType == nil {
		return false
	}
	if f.Type.Kind() == reflect.Interface {
		return targetType.Implements(f.Type)
	}
	if targetType == f.Type {
		return true
	}
	return targetType.Kind() == reflect.Ptr && targetType.Elem() == f.Type
}

// NameMatch is a pointcut matching methods by name patterns with `*` wildcards,
// e.g. `Find*`, `*Name` or `*`. The class filter is match-all unless set.
// NameMatch 按带 `*` 通配符的名称模式匹配方法的切入点。
type NameMatch struct {
	Filter   types.ClassFilter
	patterns []string
}

func NewNameMatch(patterns ...string) *NameMatch {
	return &NameMatch{patterns: patterns}
}

// AddMethodName appends a method name pattern.
func (p *NameMatch) AddMethodName(pattern string) *NameMatch {
	p.patterns = append(p.patterns, pattern)
	return p
}

func (p *NameMatch) ClassFilter() types.ClassFilter {
	if p.Filter == nil {
		return TrueClassFilter
	}
	return p.Filter
}

func (p *NameMatch) MethodMatcher() types.MethodMatcher { return p }

func (p *NameMatch) Matches(method reflect.Method, targetType reflect.Type) bool {
	for _, pattern := range p.patterns {
		if pattern == method.Name || str.WildcardMatch(pattern, method.Name) {
			return true
		}
	}
	return false
}

func (p *NameMatch) IsRuntime() bool { return false }

func (p *NameMatch) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	panic("MatchesArgs is never expected on a static matcher")
}
