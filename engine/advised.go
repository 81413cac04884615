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
	"sync"

	"github.com/weavego/weavego/api/types"
	"github.com/weavego/weavego/pointcut"
	"github.com/weavego/weavego/target"
)

// AdvisedSupport is the shared proxy configuration: target source, advisor
// list, declared interfaces and behavior flags. It resolves and caches the
// interceptor chain per method; any advisor mutation discards the whole
// cache. Once Freeze is called, the advisor list is immutable and mutation
// attempts fail with types.ErrConfigFrozen.
//
// AdvisedSupport 共享的代理配置：目标源、增强器列表、声明的接口和行为标志。
// 它按方法解析并缓存拦截器链；任何增强器变更都会丢弃整个缓存。调用 Freeze 后
// 增强器列表不可再修改，修改尝试将返回 types.ErrConfigFrozen。
type AdvisedSupport struct {
	config       types.Config
	source       types.TargetSource
	chainFactory *ChainFactory

	// ProxyTargetClass forces the subclass-style proxy strategy even when
	// proxyable interfaces are declared.
	ProxyTargetClass bool
	// Optimize opts into aggressive strategy selection; it implies the
	// class-based proxy.
	Optimize bool
	// ExposeProxy publishes the active proxy through the invocation
	// context so advised methods can re-enter through the proxy.
	ExposeProxy bool

	mu         sync.RWMutex
	advisors   []types.Advisor
	interfaces []reflect.Type
	frozen     bool

	// chainCache maps chainCacheKey to []types.MethodInterceptor and is
	// emptied on every advisor mutation.
	chainCache sync.Map
}

var _ types.Advised = (*AdvisedSupport)(nil)

type chainCacheKey struct {
	methodName string
	targetType reflect.Type
}

// NewAdvisedSupport creates a configuration for the given target source.
// A plain (non TargetSource) object is wrapped in a singleton source.
func NewAdvisedSupport(config types.Config, targetOrSource interface{}) *AdvisedSupport {
	source, ok := targetOrSource.(types.TargetSource)
	if !ok {
		source = target.NewSingleton(targetOrSource)
	}
	return &AdvisedSupport{
		config:       config,
		source:       source,
		chainFactory: NewChainFactory(config.AdapterRegistry),
	}
}

func (s *AdvisedSupport) Config() types.Config             { return s.config }
func (s *AdvisedSupport) TargetSource() types.TargetSource { return s.source }

func (s *AdvisedSupport) Advisors() []types.Advisor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Advisor, len(s.advisors))
	copy(out, s.advisors)
	return out
}

func (s *AdvisedSupport) AddAdvisor(advisor types.Advisor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return types.ErrConfigFrozen
	}
	s.advisors = append(s.advisors, advisor)
	s.clearCacheLocked()
	return nil
}

// AddAdvice registers bare advice behind a match-everything advisor.
func (s *AdvisedSupport) AddAdvice(advice types.Advice) error {
	return s.AddAdvisor(NewAdvisor(pointcut.TruePointcut, advice))
}

func (s *AdvisedSupport) RemoveAdvisor(advisor types.Advisor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return types.ErrConfigFrozen
	}
	for i, a := range s.advisors {
		if a == advisor {
			s.advisors = append(s.advisors[:i], s.advisors[i+1:]...)
			s.clearCacheLocked()
			return nil
		}
	}
	return fmt.Errorf("advisor not registered: %T", advisor)
}

// SetInterfaces declares the interfaces the proxy should implement. Every
// argument must be an interface type and the current target must satisfy it.
func (s *AdvisedSupport) SetInterfaces(interfaces ...reflect.Type) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return types.ErrConfigFrozen
	}
	for _, iface := range interfaces {
		if iface == nil || iface.Kind() != reflect.Interface {
			return fmt.Errorf("not an interface type: %v", iface)
		}
	}
	s.interfaces = interfaces
	s.clearCacheLocked()
	return nil
}

func (s *AdvisedSupport) Interfaces() []reflect.Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]reflect.Type, len(s.interfaces))
	copy(out, s.interfaces)
	return out
}

// Freeze locks the advisor list. Every chain resolved afterwards is served
// from the cache forever, so proxies on a frozen configuration never pay the
// matching cost twice for the same method.
func (s *AdvisedSupport) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
}

func (s *AdvisedSupport) IsFrozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

func (s *AdvisedSupport) IsProxyTargetClass() bool { return s.ProxyTargetClass }
func (s *AdvisedSupport) IsExposeProxy() bool      { return s.ExposeProxy }

// InterceptorChain returns the cached interceptor chain for a method,
// resolving and caching it on first access. Resolution and store happen
// under the read lock: mutators clear the cache under the write lock, so a
// chain computed against an outdated advisor list can never land in the
// cache after the invalidation that obsoleted it.
func (s *AdvisedSupport) InterceptorChain(method reflect.Method, targetType reflect.Type) ([]types.MethodInterceptor, error) {
	key := chainCacheKey{methodName: method.Name, targetType: targetType}
	if cached, ok := s.chainCache.Load(key); ok {
		return cached.([]types.MethodInterceptor), nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cached, ok := s.chainCache.Load(key); ok {
		return cached.([]types.MethodInterceptor), nil
	}
	chain, err := s.chainFactory.InterceptorChain(s.advisors, method, targetType)
	if err != nil {
		return nil, err
	}
	actual, _ := s.chainCache.LoadOrStore(key, chain)
	return actual.([]types.MethodInterceptor), nil
}

func (s *AdvisedSupport) clearCacheLocked() {
	s.chainCache.Range(func(key, _ interface{}) bool {
		s.chainCache.Delete(key)
		return true
	})
}
