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

// Package weavego is a lightweight method-interception engine for Go.
//
// It weaves extra behavior (logging, metrics, retry, rate limiting, access
// control) around the method calls of plain Go objects without modifying
// their code. Behavior units (advice) are bound to method selections
// (pointcuts) through advisors; a proxy routes every call through the
// interceptor chain resolved for that method before reaching the real
// object.
//
// Programmatic usage:
//
//	cfg := weavego.NewConfig()
//	support := engine.NewAdvisedSupport(cfg, &OrderService{})
//	_ = support.AddAdvisor(engine.NewOrderedAdvisor(pc, myAdvice, 10))
//	proxy, _ := engine.NewProxy(support)
//	result, err := proxy.Invoke(ctx, "PlaceOrder", order)
//
// Declarative usage, with builtin advice components and expression
// pointcuts:
//
//	weaver, _ := weavego.New([]byte(`{
//	  "weave": {"id": "svc"},
//	  "advisors": [
//	    {"id": "log", "type": "debug", "order": 0,
//	     "pointcut": "methodName startsWith 'Place'"}
//	  ]
//	}`))
//	obj, _ := weaver.Register("orderService", &OrderService{})
//
// weavego 是一个轻量级的 Go 方法拦截引擎。
//
// 它在不修改目标代码的情况下，把额外的行为（日志、指标、重试、限流、访问控制）
// 织入到普通 Go 对象的方法调用周围。行为单元（增强）通过增强器绑定到方法选择
// （切入点）；代理把每个调用经过为该方法解析出的拦截器链后再送达真实对象。
package weavego

import (
	"github.com/weavego/weavego/api/types"
	"github.com/weavego/weavego/engine"
	"github.com/weavego/weavego/pointcut"
)

// NewConfig creates a Config with the engine defaults: the standard adapter
// registry and the default component registry, on top of types.NewConfig.
func NewConfig(opts ...types.Option) types.Config {
	config := types.NewConfig(opts...)
	if config.AdapterRegistry == nil {
		config.AdapterRegistry = engine.NewAdapterRegistry()
	}
	if config.AdviceRegistry == nil {
		config.AdviceRegistry = Registry
	}
	return config
}

// Weaver applies one weave definition to registered objects. Objects matched
// by at least one advisor come back proxied, everything else comes back
// untouched.
//
// Weaver 把一个织入定义应用到注册的对象上。被至少一个增强器匹配的对象以代理
// 形式返回，其余对象原样返回。
type Weaver struct {
	config     types.Config
	definition WeaveDefinition
	creator    *engine.AutoProxyCreator
}

// New parses a JSON weave definition and builds a weaver from it.
func New(def []byte, opts ...types.Option) (*Weaver, error) {
	definition, err := JsonParser.DecodeWeave(def)
	if err != nil {
		return nil, err
	}
	return NewFromDefinition(definition, opts...)
}

// NewFromDefinition builds a weaver from an already decoded definition.
// Every advisor's component is instantiated and initialized here, so
// configuration mistakes surface before any object is registered.
func NewFromDefinition(definition WeaveDefinition, opts ...types.Option) (*Weaver, error) {
	config := NewConfig(opts...)
	w := &Weaver{
		config:     config,
		definition: definition,
		creator:    engine.NewAutoProxyCreator(config),
	}
	w.creator.ProxyTargetClass = definition.Weave.ProxyTargetClass
	w.creator.Optimize = definition.Weave.Optimize
	w.creator.ExposeProxy = definition.Weave.ExposeProxy
	w.creator.FreezeProxy = definition.Weave.Frozen
	for _, advisorDef := range definition.Advisors {
		advisor, err := buildAdvisor(config, advisorDef)
		if err != nil {
			return nil, err
		}
		w.creator.AddAdvisor(advisor)
	}
	return w, nil
}

func buildAdvisor(config types.Config, def AdvisorDefinition) (types.Advisor, error) {
	adviceInstance, err := config.AdviceRegistry.NewAdvice(config, def.Type, def.Configuration)
	if err != nil {
		return nil, err
	}
	var pc types.Pointcut = pointcut.TruePointcut
	if def.Pointcut != "" {
		pc, err = pointcut.NewExpression(def.Pointcut)
		if err != nil {
			return nil, err
		}
	}
	if def.Order != nil {
		return engine.NewOrderedAdvisor(pc, adviceInstance, *def.Order), nil
	}
	return engine.NewAdvisor(pc, adviceInstance), nil
}

// Register hands an object to the auto-proxy creator under a name. The
// returned object is the proxy when the object was eligible, the original
// object otherwise. Registering the same name again returns the first
// result.
func (w *Weaver) Register(name string, object interface{}) (interface{}, error) {
	return w.creator.MaybeProxy(object, name)
}

// Unregister forgets the proxy created under name.
func (w *Weaver) Unregister(name string) {
	w.creator.Del(name)
}

// Proxy returns the proxy created under name, if any.
func (w *Weaver) Proxy(name string) (types.Proxy, bool) {
	return w.creator.Get(name)
}

// Advisors returns the advisors built from the definition.
func (w *Weaver) Advisors() []types.Advisor {
	return w.creator.Advisors()
}

// Definition returns the decoded weave definition this weaver was built from.
func (w *Weaver) Definition() WeaveDefinition {
	return w.definition
}

// Config returns the weaver's engine configuration.
func (w *Weaver) Config() types.Config {
	return w.config
}

// Creator exposes the underlying auto-proxy creator for advanced setups,
// for example installing an interface resolver.
func (w *Weaver) Creator() *engine.AutoProxyCreator {
	return w.creator
}
