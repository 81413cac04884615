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
	"reflect"
	"sync"

	"github.com/weavego/weavego/api/types"
	reflectutil "github.com/weavego/weavego/utils/reflect"
)

// AutoProxyCreator wraps registered objects in proxies automatically when at
// least one of its advisors applies to them. Weaving infrastructure objects
// (advice, advisors, pointcuts, target sources and proxies themselves) are
// never wrapped, and wrapping the same name twice returns the proxy created
// the first time.
//
// AutoProxyCreator 在至少有一个增强器适用时自动把注册的对象包装为代理。
// 织入基础设施对象（增强、增强器、切入点、目标源以及代理本身）永远不会被包装，
// 对同一名称重复包装会返回第一次创建的代理。
type AutoProxyCreator struct {
	config types.Config

	// ProxyTargetClass, Optimize, ExposeProxy and FreezeProxy are copied
	// onto every configuration this creator builds.
	ProxyTargetClass bool
	Optimize         bool
	ExposeProxy      bool
	FreezeProxy      bool

	// InterfacesFor, when set, supplies the interfaces to expose for a
	// candidate type. Without it every created proxy is class-based.
	InterfacesFor func(targetType reflect.Type) []reflect.Type

	mu       sync.RWMutex
	advisors []types.Advisor

	proxies sync.Map // name -> types.Proxy
}

func NewAutoProxyCreator(config types.Config, advisors ...types.Advisor) *AutoProxyCreator {
	return &AutoProxyCreator{config: config, advisors: advisors}
}

func (c *AutoProxyCreator) AddAdvisor(advisor types.Advisor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advisors = append(c.advisors, advisor)
}

func (c *AutoProxyCreator) Advisors() []types.Advisor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Advisor, len(c.advisors))
	copy(out, c.advisors)
	return out
}

// MaybeProxy returns a proxy for the object when it is eligible, the object
// itself otherwise. The decision and the created proxy are remembered per
// name, so repeated registration of the same name is idempotent.
func (c *AutoProxyCreator) MaybeProxy(object interface{}, name string) (interface{}, error) {
	if object == nil {
		return nil, nil
	}
	if existing, ok := c.proxies.Load(name); ok {
		return existing, nil
	}
	if isInfrastructure(object) {
		return object, nil
	}
	targetType := reflect.TypeOf(object)
	eligible, err := c.eligibleAdvisors(targetType)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return object, nil
	}

	cfg := NewAdvisedSupport(c.config, object)
	cfg.ProxyTargetClass = c.ProxyTargetClass
	cfg.Optimize = c.Optimize
	cfg.ExposeProxy = c.ExposeProxy
	if c.InterfacesFor != nil {
		if interfaces := c.InterfacesFor(targetType); len(interfaces) > 0 {
			if err := cfg.SetInterfaces(interfaces...); err != nil {
				return nil, err
			}
		}
	}
	for _, advisor := range eligible {
		if err := cfg.AddAdvisor(advisor); err != nil {
			return nil, err
		}
	}
	if c.FreezeProxy {
		cfg.Freeze()
	}
	created, err := NewProxy(cfg)
	if err != nil {
		return nil, err
	}
	actual, loaded := c.proxies.LoadOrStore(name, created)
	if !loaded && c.config.OnProxyCreated != nil {
		c.config.OnProxyCreated(name, created)
	}
	return actual, nil
}

// IsEligible reports whether any registered advisor applies to the type.
// A pointcut that fails to evaluate makes the type ineligible here; the
// failure itself surfaces from MaybeProxy.
func (c *AutoProxyCreator) IsEligible(targetType reflect.Type) bool {
	eligible, err := c.eligibleAdvisors(targetType)
	return err == nil && len(eligible) > 0
}

// Get returns the proxy previously created for name, if any.
func (c *AutoProxyCreator) Get(name string) (types.Proxy, bool) {
	if v, ok := c.proxies.Load(name); ok {
		return v.(types.Proxy), true
	}
	return nil, false
}

// Del forgets the proxy created for name.
func (c *AutoProxyCreator) Del(name string) {
	c.proxies.Delete(name)
}

// eligibleAdvisors keeps the advisors whose pointcut can apply to the type:
// introductions need a class filter match, pointcut advisors additionally
// need at least one exported method to match statically. Matcher panics
// surface as pointcut evaluation errors instead of crashing the caller.
func (c *AutoProxyCreator) eligibleAdvisors(targetType reflect.Type) (eligible []types.Advisor, err error) {
	defer func() {
		if r := recover(); r != nil {
			eligible = nil
			err = evaluationError(r)
		}
	}()
	for _, advisor := range c.Advisors() {
		switch a := advisor.(type) {
		case types.IntroductionAdvisor:
			if a.ClassFilter().Matches(targetType) {
				eligible = append(eligible, advisor)
			}
		case types.PointcutAdvisor:
			pc := a.Pointcut()
			if !pc.ClassFilter().Matches(targetType) {
				continue
			}
			mm := pc.MethodMatcher()
			for _, m := range reflectutil.Methods(targetType) {
				if mm.Matches(m, targetType) {
					eligible = append(eligible, advisor)
					break
				}
			}
		}
	}
	return eligible, nil
}

func isInfrastructure(object interface{}) bool {
	switch object.(type) {
	case types.Advisor, types.Pointcut, types.ClassFilter, types.MethodMatcher,
		types.TargetSource, types.AdviceAdapter, types.AdapterRegistry, types.Proxy,
		types.MethodInterceptor, types.BeforeAdvice, types.AfterReturningAdvice, types.ThrowsAdvice:
		return true
	}
	return false
}
