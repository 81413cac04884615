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
	"testing"

	"github.com/weavego/weavego/api/types"
	"github.com/weavego/weavego/test/assert"
)

type sampleService struct{}

func (s *sampleService) FindUser(id int) string { return "user" }
func (s *sampleService) FindOrder(id int) string { return "order" }
func (s *sampleService) SaveUser(name string) error { return nil }

func sampleMethod(t *testing.T, name string) reflect.Method {
	m, ok := reflect.TypeOf(&sampleService{}).MethodByName(name)
	assert.True(t, ok)
	return m
}

func TestTruePointcut(t *testing.T) {
	targetType := reflect.TypeOf(&sampleService{})
	assert.True(t, TruePointcut.ClassFilter().Matches(targetType))
	assert.True(t, TruePointcut.MethodMatcher().Matches(sampleMethod(t, "FindUser"), targetType))
	assert.False(t, TruePointcut.MethodMatcher().IsRuntime())
}

func TestDefaultPointcutNilParts(t *testing.T) {
	p := New(nil, nil)
	assert.Equal(t, TrueClassFilter, p.ClassFilter())
	assert.Equal(t, TrueMethodMatcher, p.MethodMatcher())
}

func TestTypeClassFilter(t *testing.T) {
	concrete := reflect.TypeOf(sampleService{})
	pointer := reflect.TypeOf(&sampleService{})

	f := ForType(concrete)
	assert.True(t, f.Matches(concrete))
	assert.True(t, f.Matches(pointer))
	assert.False(t, f.Matches(reflect.TypeOf("")))

	var source types.TargetSource
	ifaceFilter := ForType(reflect.TypeOf(&source).Elem())
	assert.False(t, ifaceFilter.Matches(pointer))
}

func TestNameMatch(t *testing.T) {
	targetType := reflect.TypeOf(&sampleService{})
	p := NewNameMatch("Find*")
	assert.True(t, p.Matches(sampleMethod(t, "FindUser"), targetType))
	assert.True(t, p.Matches(sampleMethod(t, "FindOrder"), targetType))
	assert.False(t, p.Matches(sampleMethod(t, "SaveUser"), targetType))
	assert.False(t, p.IsRuntime())

	p.AddMethodName("SaveUser")
	assert.True(t, p.Matches(sampleMethod(t, "SaveUser"), targetType))

	assert.True(t, NewNameMatch("*").Matches(sampleMethod(t, "FindUser"), targetType))
	assert.True(t, NewNameMatch("*User").Matches(sampleMethod(t, "SaveUser"), targetType))
}

func TestClassFilterCombinators(t *testing.T) {
	targetType := reflect.TypeOf(&sampleService{})
	yes := ClassFilterFunc(func(reflect.Type) bool { return true })
	no := ClassFilterFunc(func(reflect.Type) bool { return false })

	assert.True(t, AndClassFilter(yes, yes).Matches(targetType))
	assert.False(t, AndClassFilter(yes, no).Matches(targetType))
	assert.True(t, OrClassFilter(no, yes).Matches(targetType))
	assert.False(t, OrClassFilter(no, no).Matches(targetType))
	assert.True(t, NotClassFilter(no).Matches(targetType))
	assert.False(t, NotClassFilter(yes).Matches(targetType))
}

// runtimeMatcher is a dynamic matcher gating on the first argument.
type runtimeMatcher struct {
	static bool
}

func (m runtimeMatcher) Matches(method reflect.Method, targetType reflect.Type) bool {
	return m.static
}

func (m runtimeMatcher) IsRuntime() bool { return true }

func (m runtimeMatcher) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	if len(args) == 0 {
		return false
	}
	v, ok := args[0].(int)
	return ok && v > 10
}

func TestMethodMatcherCombinators(t *testing.T) {
	targetType := reflect.TypeOf(&sampleService{})
	method := sampleMethod(t, "FindUser")
	static := StaticMethodMatcherFunc(func(m reflect.Method, _ reflect.Type) bool {
		return m.Name == "FindUser"
	})
	dynamic := runtimeMatcher{static: true}

	and := AndMethodMatcher(static, dynamic)
	assert.True(t, and.IsRuntime())
	assert.True(t, and.Matches(method, targetType))
	assert.True(t, and.MatchesArgs(method, targetType, []interface{}{11}))
	assert.False(t, and.MatchesArgs(method, targetType, []interface{}{5}))

	// An or of a static and a dynamic matcher is dynamic; static operands
	// are settled in the static phase and never asked for arguments.
	or := OrMethodMatcher(static, dynamic)
	assert.True(t, or.IsRuntime())
	assert.True(t, or.Matches(method, targetType))
	assert.True(t, or.MatchesArgs(method, targetType, []interface{}{5}), "static operand already matched")

	orMiss := OrMethodMatcher(StaticMethodMatcherFunc(func(reflect.Method, reflect.Type) bool {
		return false
	}), dynamic)
	assert.True(t, orMiss.MatchesArgs(method, targetType, []interface{}{11}))
	assert.False(t, orMiss.MatchesArgs(method, targetType, []interface{}{5}))

	not := NotMethodMatcher(static)
	assert.False(t, not.IsRuntime())
	assert.False(t, not.Matches(method, targetType))
	assert.True(t, not.Matches(sampleMethod(t, "SaveUser"), targetType))
}

func TestIntersectionAndUnion(t *testing.T) {
	targetType := reflect.TypeOf(&sampleService{})
	finds := NewNameMatch("Find*")
	saves := NewNameMatch("Save*")

	both := Intersection(finds, saves)
	assert.False(t, both.MethodMatcher().Matches(sampleMethod(t, "FindUser"), targetType))

	either := Union(finds, saves)
	assert.True(t, either.MethodMatcher().Matches(sampleMethod(t, "FindUser"), targetType))
	assert.True(t, either.MethodMatcher().Matches(sampleMethod(t, "SaveUser"), targetType))
}

func TestExpressionStatic(t *testing.T) {
	targetType := reflect.TypeOf(&sampleService{})
	p, err := NewExpression(`methodName startsWith "Find"`)
	assert.Nil(t, err)
	assert.False(t, p.IsRuntime())
	assert.True(t, p.Matches(sampleMethod(t, "FindUser"), targetType))
	assert.False(t, p.Matches(sampleMethod(t, "SaveUser"), targetType))
}

func TestExpressionTypeName(t *testing.T) {
	targetType := reflect.TypeOf(&sampleService{})
	p, err := NewExpression(`typeName == "sampleService"`)
	assert.Nil(t, err)
	assert.True(t, p.Matches(sampleMethod(t, "FindUser"), targetType))
}

func TestExpressionDynamic(t *testing.T) {
	targetType := reflect.TypeOf(&sampleService{})
	method := sampleMethod(t, "FindUser")
	p, err := NewExpression(`args[0] > 10`)
	assert.Nil(t, err)
	assert.True(t, p.IsRuntime())
	// Static phase defers dynamic expressions.
	assert.True(t, p.Matches(method, targetType))
	assert.True(t, p.MatchesArgs(method, targetType, []interface{}{11}))
	assert.False(t, p.MatchesArgs(method, targetType, []interface{}{5}))
}

func TestExpressionCompileError(t *testing.T) {
	_, err := NewExpression(`methodName ==`)
	assert.NotNil(t, err)
}
