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
	"sync"

	"github.com/weavego/weavego/api/types"
)

// AdapterRegistry normalizes every supported advice kind to a method
// interceptor. Around advice passes through as-is; before, after-returning
// and throws advice are wrapped by the built-in adapters. User adapters
// registered later take effect for advice kinds the built-ins do not support.
//
// AdapterRegistry 将每种受支持的增强类型统一适配为方法拦截器。环绕增强原样通过；
// 前置、返回后和异常增强由内置适配器包装。之后注册的用户适配器对内置适配器
// 不支持的增强类型生效。
type AdapterRegistry struct {
	sync.RWMutex
	adapters []types.AdviceAdapter
}

var _ types.AdapterRegistry = (*AdapterRegistry)(nil)

// NewAdapterRegistry creates a registry preloaded with the before,
// after-returning and throws adapters.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{
		adapters: []types.AdviceAdapter{
			beforeAdviceAdapter{},
			afterReturningAdviceAdapter{},
			throwsAdviceAdapter{},
		},
	}
}

func (r *AdapterRegistry) Register(adapter types.AdviceAdapter) {
	r.Lock()
	defer r.Unlock()
	r.adapters = append(r.adapters, adapter)
}

// Adapt returns the interceptor form of the given advice. A native method
// interceptor is returned unchanged, otherwise the first supporting adapter
// wins. Unknown advice kinds are a configuration error.
func (r *AdapterRegistry) Adapt(advice types.Advice) (types.MethodInterceptor, error) {
	if interceptor, ok := advice.(types.MethodInterceptor); ok {
		return interceptor, nil
	}
	r.RLock()
	defer r.RUnlock()
	for _, adapter := range r.adapters {
		if adapter.Supports(advice) {
			return adapter.Adapt(advice), nil
		}
	}
	return nil, fmt.Errorf("%w: %T", types.ErrUnknownAdviceType, advice)
}

type beforeAdviceAdapter struct{}

func (beforeAdviceAdapter) Supports(advice types.Advice) bool {
	_, ok := advice.(types.BeforeAdvice)
	return ok
}

func (beforeAdviceAdapter) Adapt(advice types.Advice) types.MethodInterceptor {
	return &beforeAdviceInterceptor{advice: advice.(types.BeforeAdvice)}
}

// beforeAdviceInterceptor runs the before advice and proceeds. An error from
// the before advice vetoes target execution and propagates to the caller.
type beforeAdviceInterceptor struct {
	advice types.BeforeAdvice
}

func (i *beforeAdviceInterceptor) Invoke(inv types.Invocation) ([]interface{}, error) {
	if err := i.advice.Before(inv); err != nil {
		return nil, err
	}
	return inv.Proceed()
}

type afterReturningAdviceAdapter struct{}

func (afterReturningAdviceAdapter) Supports(advice types.Advice) bool {
	_, ok := advice.(types.AfterReturningAdvice)
	return ok
}

func (afterReturningAdviceAdapter) Adapt(advice types.Advice) types.MethodInterceptor {
	return &afterReturningAdviceInterceptor{advice: advice.(types.AfterReturningAdvice)}
}

// afterReturningAdviceInterceptor runs the advice only on normal completion,
// with visibility of the produced result. An error raised by the advice
// replaces the successful outcome.
type afterReturningAdviceInterceptor struct {
	advice types.AfterReturningAdvice
}

func (i *afterReturningAdviceInterceptor) Invoke(inv types.Invocation) ([]interface{}, error) {
	result, err := inv.Proceed()
	if err != nil {
		return result, err
	}
	if err = i.advice.AfterReturning(result, inv); err != nil {
		return nil, err
	}
	return result, nil
}

type throwsAdviceAdapter struct{}

func (throwsAdviceAdapter) Supports(advice types.Advice) bool {
	_, ok := advice.(types.ThrowsAdvice)
	return ok
}

func (throwsAdviceAdapter) Adapt(advice types.Advice) types.MethodInterceptor {
	return &throwsAdviceInterceptor{advice: advice.(types.ThrowsAdvice)}
}

// throwsAdviceInterceptor observes failures. The original error keeps
// propagating unchanged after the advice has seen it.
type throwsAdviceInterceptor struct {
	advice types.ThrowsAdvice
}

func (i *throwsAdviceInterceptor) Invoke(inv types.Invocation) ([]interface{}, error) {
	result, err := inv.Proceed()
	if err != nil {
		i.advice.AfterThrowing(err, inv)
	}
	return result, err
}
