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
	"context"
	"reflect"

	"github.com/weavego/weavego/api/types"
	reflectutil "github.com/weavego/weavego/utils/reflect"
)

type proxyContextKey struct{}

// CurrentProxy returns the proxy exposed by the invocation in flight, if the
// owning configuration enabled proxy exposure. Methods that need to re-enter
// their own advised methods call through this proxy instead of the receiver.
//
// CurrentProxy 返回当前调用暴露的代理（若所属配置启用了代理暴露）。需要重新进入
// 自身被增强方法的方法应通过该代理调用，而不是直接使用接收者。
func CurrentProxy(ctx context.Context) (types.Proxy, bool) {
	if ctx == nil {
		return nil, false
	}
	proxy, ok := ctx.Value(proxyContextKey{}).(types.Proxy)
	return proxy, ok
}

func exposeProxy(ctx context.Context, proxy types.Proxy) context.Context {
	return context.WithValue(ctx, proxyContextKey{}, proxy)
}

// methodInvocation drives one advised call: it walks the interceptor chain
// with a position cursor and invokes the target method when the chain is
// exhausted. Each interceptor drives the remainder of the chain through
// Proceed; an interceptor that wants to run downstream more than once must
// take an InvocableClone per extra run, since the cursor only moves forward.
type methodInvocation struct {
	ctx        context.Context
	proxy      types.Proxy
	target     interface{}
	targetType reflect.Type
	method     reflect.Method
	arguments  []interface{}
	chain      []types.MethodInterceptor
	pos        int
	attributes map[string]interface{}
}

var _ types.Invocation = (*methodInvocation)(nil)

func newMethodInvocation(ctx context.Context, proxy types.Proxy, target interface{}, targetType reflect.Type,
	method reflect.Method, arguments []interface{}, chain []types.MethodInterceptor) *methodInvocation {
	if ctx == nil {
		ctx = context.Background()
	}
	return &methodInvocation{
		ctx:        ctx,
		proxy:      proxy,
		target:     target,
		targetType: targetType,
		method:     method,
		arguments:  arguments,
		chain:      chain,
	}
}

func (inv *methodInvocation) Method() reflect.Method   { return inv.method }
func (inv *methodInvocation) MethodName() string       { return inv.method.Name }
func (inv *methodInvocation) Target() interface{}      { return inv.target }
func (inv *methodInvocation) TargetType() reflect.Type { return inv.targetType }
func (inv *methodInvocation) Proxy() types.Proxy       { return inv.proxy }
func (inv *methodInvocation) Context() context.Context { return inv.ctx }

func (inv *methodInvocation) Arguments() []interface{} { return inv.arguments }

func (inv *methodInvocation) SetArguments(args ...interface{}) {
	inv.arguments = args
}

// Proceed runs the next interceptor in the chain, or the target method once
// every slot has had its turn.
func (inv *methodInvocation) Proceed() ([]interface{}, error) {
	if inv.pos < len(inv.chain) {
		interceptor := inv.chain[inv.pos]
		inv.pos++
		return interceptor.Invoke(inv)
	}
	return reflectutil.CallMethod(inv.target, inv.method.Name, inv.arguments)
}

// InvocableClone returns an independent invocation positioned at the same
// chain slot, with its own argument slice and attribute map. Replacement
// arguments, when given, substitute the original ones. Target and context
// stay shared with the original.
func (inv *methodInvocation) InvocableClone(args ...interface{}) types.Invocation {
	cloneArgs := args
	if len(cloneArgs) == 0 {
		cloneArgs = make([]interface{}, len(inv.arguments))
		copy(cloneArgs, inv.arguments)
	}
	clone := &methodInvocation{
		ctx:        inv.ctx,
		proxy:      inv.proxy,
		target:     inv.target,
		targetType: inv.targetType,
		method:     inv.method,
		arguments:  cloneArgs,
		chain:      inv.chain,
		pos:        inv.pos,
	}
	if inv.attributes != nil {
		clone.attributes = make(map[string]interface{}, len(inv.attributes))
		for k, v := range inv.attributes {
			clone.attributes[k] = v
		}
	}
	return clone
}

func (inv *methodInvocation) UserAttribute(key string) (interface{}, bool) {
	if inv.attributes == nil {
		return nil, false
	}
	v, ok := inv.attributes[key]
	return v, ok
}

func (inv *methodInvocation) SetUserAttribute(key string, value interface{}) {
	if inv.attributes == nil {
		inv.attributes = make(map[string]interface{})
	}
	inv.attributes[key] = value
}
