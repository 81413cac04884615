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

package engine

import (
	"fmt"
	"reflect"

	"github.com/weavego/weavego/api/types"
)

// ChainFactory resolves the interceptor chain for one method of one target
// type. Class-level and static method-level matching happen here, once per
// method; runtime matchers are deferred behind a per-call wrapper so that a
// static-only matcher is never consulted with live arguments.
//
// ChainFactory 为目标类型的单个方法解析拦截器链。类级匹配和静态方法级匹配在此
// 进行，每个方法只执行一次；运行期匹配器被推迟到按调用包装器之后，因此纯静态
// 匹配器绝不会拿到实参再次被询问。
type ChainFactory struct {
	registry types.AdapterRegistry
}

func NewChainFactory(registry types.AdapterRegistry) *ChainFactory {
	if registry == nil {
		registry = NewAdapterRegistry()
	}
	return &ChainFactory{registry: registry}
}

// InterceptorChain walks the advisors in priority order and keeps the ones
// whose pointcut accepts the method. Matcher panics surface as pointcut
// evaluation errors instead of crashing the caller.
func (f *ChainFactory) InterceptorChain(advisors []types.Advisor, method reflect.Method, targetType reflect.Type) (chain []types.MethodInterceptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			chain = nil
			err = evaluationError(r)
		}
	}()
	for _, advisor := range sortAdvisors(advisors) {
		pa, ok := advisor.(types.PointcutAdvisor)
		if !ok {
			// Introduction advisors contribute interfaces at proxy
			// creation, not interceptors per method.
			continue
		}
		pc := pa.Pointcut()
		if !pc.ClassFilter().Matches(targetType) {
			continue
		}
		mm := pc.MethodMatcher()
		if !mm.Matches(method, targetType) {
			continue
		}
		interceptor, aerr := f.registry.Adapt(pa.Advice())
		if aerr != nil {
			return nil, aerr
		}
		if mm.IsRuntime() {
			interceptor = &dynamicMethodInterceptor{
				interceptor: interceptor,
				matcher:     mm,
				targetType:  targetType,
			}
		}
		chain = append(chain, interceptor)
	}
	return chain, nil
}

// dynamicMethodInterceptor re-checks a runtime matcher against the live
// arguments on every call. A mismatch skips just this slot and proceeds.
type dynamicMethodInterceptor struct {
	interceptor types.MethodInterceptor
	matcher     types.MethodMatcher
	targetType  reflect.Type
}

func (d *dynamicMethodInterceptor) Invoke(inv types.Invocation) ([]interface{}, error) {
	matched, err := d.matchesArgs(inv)
	if err != nil {
		return nil, err
	}
	if !matched {
		return inv.Proceed()
	}
	return d.interceptor.Invoke(inv)
}

func (d *dynamicMethodInterceptor) matchesArgs(inv types.Invocation) (matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
			err = evaluationError(r)
		}
	}()
	return d.matcher.MatchesArgs(inv.Method(), d.targetType, inv.Arguments()), nil
}

func evaluationError(r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %v", types.ErrPointcutEvaluation, err)
	}
	return fmt.Errorf("%w: %v", types.ErrPointcutEvaluation, r)
}
