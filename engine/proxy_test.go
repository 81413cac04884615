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
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/weavego/weavego/api/types"
	"github.com/weavego/weavego/pointcut"
	"github.com/weavego/weavego/target"
	"github.com/weavego/weavego/test/assert"
)

// Fooer is the interface fixture for interface-based proxies.
type Fooer interface {
	Foo() int
}

// Audited is the interface fixture for introductions.
type Audited interface {
	AuditTag() string
}

type auditMixin struct {
	tag string
}

func (m *auditMixin) AuditTag() string { return m.tag }

// namedInterceptor logs its name around the downstream call.
type namedInterceptor struct {
	log  *[]string
	name string
}

func (i *namedInterceptor) Invoke(inv types.Invocation) ([]interface{}, error) {
	*i.log = append(*i.log, i.name+":enter")
	result, err := inv.Proceed()
	*i.log = append(*i.log, i.name+":exit")
	return result, err
}

// countingSource is a dynamic source tracking acquisition/release pairing.
type countingSource struct {
	target   interface{}
	gets     int32
	releases int32
}

func (s *countingSource) TargetType() reflect.Type { return reflect.TypeOf(s.target) }
func (s *countingSource) IsStatic() bool           { return false }

func (s *countingSource) GetTarget() (interface{}, error) {
	atomic.AddInt32(&s.gets, 1)
	return s.target, nil
}

func (s *countingSource) ReleaseTarget(target interface{}) error {
	atomic.AddInt32(&s.releases, 1)
	return nil
}

func newTestSupport(t *testing.T, targetOrSource interface{}) *AdvisedSupport {
	t.Helper()
	return NewAdvisedSupport(types.NewConfig(), targetOrSource)
}

func TestProxyEndToEnd(t *testing.T) {
	var log []string
	service := &calcService{}
	support := newTestSupport(t, service)
	assert.Nil(t, support.AddAdvisor(NewOrderedAdvisor(nil, &recordingBefore{log: &log, name: "logging"}, 0)))
	counting := &recordingAfterReturning{log: &log, name: "counting"}
	assert.Nil(t, support.AddAdvisor(NewOrderedAdvisor(nil, counting, 10)))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	assert.True(t, proxy.IsClassProxy())

	result, err := proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.Equal(t, 42, result[0])
	assert.Equal(t, []interface{}{42}, counting.result)

	result, err = proxy.Invoke(context.Background(), "Bar")
	assert.Nil(t, err)
	assert.Equal(t, 7, result[0])
	assert.Equal(t, []interface{}{7}, counting.result)

	// Before advice enters before the after-returning advice records.
	assert.Equal(t, []string{"logging", "counting", "logging", "counting"}, log)
	assert.Equal(t, 2, service.Executions())
}

func TestInterceptorOrdering(t *testing.T) {
	var log []string
	support := newTestSupport(t, &calcService{})
	// Added out of order; ordered advisors run by ascending order value and
	// the unordered one runs last.
	assert.Nil(t, support.AddAdvisor(NewAdvisor(nil, &namedInterceptor{log: &log, name: "unordered"})))
	assert.Nil(t, support.AddAdvisor(NewOrderedAdvisor(nil, &namedInterceptor{log: &log, name: "second"}, 10)))
	assert.Nil(t, support.AddAdvisor(NewOrderedAdvisor(nil, &namedInterceptor{log: &log, name: "first"}, 0)))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	_, err = proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.Equal(t, []string{
		"first:enter", "second:enter", "unordered:enter",
		"unordered:exit", "second:exit", "first:exit",
	}, log)
}

func TestPointcutSelectsMethods(t *testing.T) {
	var log []string
	support := newTestSupport(t, &calcService{})
	pc := pointcut.New(nil, pointcut.NewNameMatch("Foo"))
	assert.Nil(t, support.AddAdvisor(NewOrderedAdvisor(pc, &recordingBefore{log: &log, name: "onFoo"}, 0)))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)

	_, err = proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	_, err = proxy.Invoke(context.Background(), "Bar")
	assert.Nil(t, err)
	assert.Equal(t, []string{"onFoo"}, log)
}

func TestDynamicMatcherGatesPerCall(t *testing.T) {
	var log []string
	support := newTestSupport(t, &calcService{})
	pc, err := pointcut.NewExpression(`args[0] > 10`)
	assert.Nil(t, err)
	assert.Nil(t, support.AddAdvisor(NewOrderedAdvisor(pc, &recordingBefore{log: &log, name: "big"}, 0)))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)

	result, err := proxy.Invoke(context.Background(), "Add", 20, 1)
	assert.Nil(t, err)
	assert.Equal(t, 21, result[0])
	assert.Equal(t, []string{"big"}, log)

	// Below the threshold the advice is skipped but the call still runs.
	result, err = proxy.Invoke(context.Background(), "Add", 1, 1)
	assert.Nil(t, err)
	assert.Equal(t, 2, result[0])
	assert.Equal(t, []string{"big"}, log)
}

func TestArgumentMutationVisibleDownstream(t *testing.T) {
	support := newTestSupport(t, &calcService{})
	mutator := interceptorFunc(func(inv types.Invocation) ([]interface{}, error) {
		inv.SetArguments(100, 200)
		return inv.Proceed()
	})
	assert.Nil(t, support.AddAdvice(mutator))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	result, err := proxy.Invoke(context.Background(), "Add", 1, 2)
	assert.Nil(t, err)
	assert.Equal(t, 300, result[0])
}

type interceptorFunc func(inv types.Invocation) ([]interface{}, error)

func (f interceptorFunc) Invoke(inv types.Invocation) ([]interface{}, error) { return f(inv) }

func TestInvocableCloneIndependence(t *testing.T) {
	service := &calcService{}
	support := newTestSupport(t, service)
	redriver := interceptorFunc(func(inv types.Invocation) ([]interface{}, error) {
		// Two clone re-drives plus the original: three downstream runs.
		if _, err := inv.InvocableClone().Proceed(); err != nil {
			return nil, err
		}
		if _, err := inv.InvocableClone().Proceed(); err != nil {
			return nil, err
		}
		return inv.Proceed()
	})
	assert.Nil(t, support.AddAdvice(redriver))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	result, err := proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.Equal(t, 42, result[0])
	assert.Equal(t, 3, service.Executions())
}

func TestCloneWithReplacementArguments(t *testing.T) {
	support := newTestSupport(t, &calcService{})
	comparer := interceptorFunc(func(inv types.Invocation) ([]interface{}, error) {
		replayed, err := inv.InvocableClone(5, 5).Proceed()
		if err != nil {
			return nil, err
		}
		original, err := inv.Proceed()
		if err != nil {
			return nil, err
		}
		return []interface{}{original[0], replayed[0]}, nil
	})
	assert.Nil(t, support.AddAdvice(comparer))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	result, err := proxy.Invoke(context.Background(), "Add", 1, 2)
	assert.Nil(t, err)
	assert.Equal(t, 3, result[0], "original arguments untouched by the clone")
	assert.Equal(t, 10, result[1])
}

func TestUserAttributes(t *testing.T) {
	support := newTestSupport(t, &calcService{})
	writer := interceptorFunc(func(inv types.Invocation) ([]interface{}, error) {
		inv.SetUserAttribute("trace", "abc")
		return inv.Proceed()
	})
	var seen interface{}
	reader := interceptorFunc(func(inv types.Invocation) ([]interface{}, error) {
		seen, _ = inv.UserAttribute("trace")
		return inv.Proceed()
	})
	assert.Nil(t, support.AddAdvisor(NewOrderedAdvisor(nil, writer, 0)))
	assert.Nil(t, support.AddAdvisor(NewOrderedAdvisor(nil, reader, 1)))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	_, err = proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.Equal(t, "abc", seen)
}

func TestInterfaceProxy(t *testing.T) {
	support := newTestSupport(t, &calcService{})
	fooer := reflect.TypeOf((*Fooer)(nil)).Elem()
	assert.Nil(t, support.SetInterfaces(fooer))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	assert.False(t, proxy.IsClassProxy())
	assert.Nil(t, proxy.TargetClass(), "interface proxies hide the concrete type")
	assert.True(t, proxy.Implements(fooer))
	assert.Equal(t, []reflect.Type{fooer}, proxy.ProxiedInterfaces())

	result, err := proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.Equal(t, 42, result[0])

	// Bar exists on the target but is not part of any declared interface.
	_, err = proxy.Invoke(context.Background(), "Bar")
	assert.True(t, errors.Is(err, types.ErrUnknownMethod))
}

func TestInterfaceProxyOverUndeclaredDynamicSource(t *testing.T) {
	var log []string
	created := 0
	source := target.NewLazy(func() (interface{}, error) {
		created++
		return &calcService{}, nil
	})
	support := newTestSupport(t, source)
	fooer := reflect.TypeOf((*Fooer)(nil)).Elem()
	assert.Nil(t, support.SetInterfaces(fooer))
	assert.Nil(t, support.AddAdvisor(NewOrderedAdvisor(nil, &recordingBefore{log: &log, name: "lazy"}, 0)))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	assert.Equal(t, 0, created, "proxy creation does not materialize the lazy target")
	assert.False(t, proxy.IsClassProxy())
	assert.Nil(t, proxy.TargetClass())

	result, err := proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.Equal(t, 42, result[0])
	assert.Equal(t, []string{"lazy"}, log)
	assert.Equal(t, 1, created)
}

func TestClassProxyRequiresTargetType(t *testing.T) {
	source := target.NewLazy(func() (interface{}, error) {
		return &calcService{}, nil
	})
	support := newTestSupport(t, source)

	// No declared interfaces forces the class strategy, which cannot work
	// without a resolvable concrete type.
	_, err := NewProxy(support)
	assert.True(t, errors.Is(err, types.ErrNoTargetClass))
}

func TestClassProxyStrategyForced(t *testing.T) {
	support := newTestSupport(t, &calcService{})
	fooer := reflect.TypeOf((*Fooer)(nil)).Elem()
	assert.Nil(t, support.SetInterfaces(fooer))
	support.ProxyTargetClass = true

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	assert.True(t, proxy.IsClassProxy())
	assert.Equal(t, reflect.TypeOf(&calcService{}), proxy.TargetClass())

	// The class proxy serves the whole exported method set.
	result, err := proxy.Invoke(context.Background(), "Bar")
	assert.Nil(t, err)
	assert.Equal(t, 7, result[0])
}

func TestProxyIdsAreUnique(t *testing.T) {
	a, err := NewProxy(newTestSupport(t, &calcService{}))
	assert.Nil(t, err)
	b, err := NewProxy(newTestSupport(t, &calcService{}))
	assert.Nil(t, err)
	assert.NotEqual(t, a.ProxyId(), b.ProxyId())
}

func TestIntroduction(t *testing.T) {
	support := newTestSupport(t, &calcService{})
	audited := reflect.TypeOf((*Audited)(nil)).Elem()
	introduction, err := NewIntroduction(nil, &auditMixin{tag: "audit-1"}, audited)
	assert.Nil(t, err)
	assert.Nil(t, support.AddAdvisor(introduction))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	assert.True(t, proxy.Implements(audited))

	result, err := proxy.Invoke(context.Background(), "AuditTag")
	assert.Nil(t, err)
	assert.Equal(t, "audit-1", result[0])

	// Target methods still dispatch to the target.
	result, err = proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.Equal(t, 42, result[0])
}

func TestIntroductionValidatesEagerly(t *testing.T) {
	audited := reflect.TypeOf((*Audited)(nil)).Elem()
	_, err := NewIntroduction(nil, &calcService{}, audited)
	assert.True(t, errors.Is(err, types.ErrIntroductionNotImplemented))
}

func TestIntroductionClassFilterScopesTypes(t *testing.T) {
	support := newTestSupport(t, &calcService{})
	audited := reflect.TypeOf((*Audited)(nil)).Elem()
	nothing := pointcut.ClassFilterFunc(func(reflect.Type) bool { return false })
	introduction, err := NewIntroduction(nothing, &auditMixin{tag: "x"}, audited)
	assert.Nil(t, err)
	assert.Nil(t, support.AddAdvisor(introduction))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	assert.False(t, proxy.Implements(audited))
	_, err = proxy.Invoke(context.Background(), "AuditTag")
	assert.True(t, errors.Is(err, types.ErrUnknownMethod))
}

func TestResourceSymmetryOnFailure(t *testing.T) {
	source := &countingSource{target: &calcService{}}
	support := newTestSupport(t, source)
	proxy, err := NewProxy(support)
	assert.Nil(t, err)

	_, err = proxy.Invoke(context.Background(), "Div", 1, 0)
	assert.Equal(t, errDivZero, err)
	_, err = proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.Equal(t, source.gets, source.releases)
	assert.Equal(t, int32(2), source.gets)
}

func TestResourceSymmetryOnPanic(t *testing.T) {
	source := &countingSource{target: &calcService{}}
	support := newTestSupport(t, source)
	proxy, err := NewProxy(support)
	assert.Nil(t, err)

	func() {
		defer func() {
			recovered := recover()
			assert.Equal(t, "kaboom", recovered)
		}()
		_, _ = proxy.Invoke(context.Background(), "Explode")
	}()
	assert.Equal(t, source.gets, source.releases)
	assert.Equal(t, int32(1), source.gets)
}

func TestHotSwapUnderProxy(t *testing.T) {
	first := &calcService{}
	second := &calcService{}
	source := target.NewHotSwappable(first)
	support := newTestSupport(t, source)
	proxy, err := NewProxy(support)
	assert.Nil(t, err)

	_, err = proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.Equal(t, 1, first.Executions())

	_, err = source.Swap(second)
	assert.Nil(t, err)
	_, err = proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.Equal(t, 1, first.Executions())
	assert.Equal(t, 1, second.Executions())
}

func TestFrozenConfiguration(t *testing.T) {
	var log []string
	support := newTestSupport(t, &calcService{})
	assert.Nil(t, support.AddAdvisor(NewOrderedAdvisor(nil, &recordingBefore{log: &log, name: "kept"}, 0)))
	support.Freeze()

	err := support.AddAdvisor(NewAdvisor(nil, &recordingBefore{log: &log, name: "late"}))
	assert.True(t, errors.Is(err, types.ErrConfigFrozen))
	err = support.RemoveAdvisor(support.Advisors()[0])
	assert.True(t, errors.Is(err, types.ErrConfigFrozen))

	// Chains are precomputed at proxy creation and still serve calls.
	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	_, err = proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.Equal(t, []string{"kept"}, log)
}

func TestAdvisorRemovalInvalidatesChains(t *testing.T) {
	var log []string
	support := newTestSupport(t, &calcService{})
	advisor := NewOrderedAdvisor(nil, &recordingBefore{log: &log, name: "b"}, 0)
	assert.Nil(t, support.AddAdvisor(advisor))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	_, err = proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.Equal(t, 1, len(log))

	assert.Nil(t, support.RemoveAdvisor(advisor))
	_, err = proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.Equal(t, 1, len(log), "removed advice no longer runs")
}

func TestChainResolutionDuringConcurrentMutation(t *testing.T) {
	support := newTestSupport(t, &calcService{})
	targetType := reflect.TypeOf(&calcService{})
	method, ok := targetType.MethodByName("Foo")
	assert.True(t, ok)

	var log []string
	for i := 0; i < 200; i++ {
		advisor := NewOrderedAdvisor(nil, &recordingBefore{log: &log, name: "transient"}, 0)
		assert.Nil(t, support.AddAdvisor(advisor))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				_, _ = support.InterceptorChain(method, targetType)
			}
		}()
		assert.Nil(t, support.RemoveAdvisor(advisor))
		wg.Wait()

		// A resolution racing the removal must not leave the removed
		// advisor cached.
		chain, err := support.InterceptorChain(method, targetType)
		assert.Nil(t, err)
		assert.Equal(t, 0, len(chain))
	}
}

func TestExposeProxy(t *testing.T) {
	support := newTestSupport(t, &calcService{})
	support.ExposeProxy = true
	var current types.Proxy
	probe := interceptorFunc(func(inv types.Invocation) ([]interface{}, error) {
		current, _ = CurrentProxy(inv.Context())
		return inv.Proceed()
	})
	assert.Nil(t, support.AddAdvice(probe))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	_, err = proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.True(t, current == proxy)
}

func TestProxyNotExposedByDefault(t *testing.T) {
	support := newTestSupport(t, &calcService{})
	var found bool
	probe := interceptorFunc(func(inv types.Invocation) ([]interface{}, error) {
		_, found = CurrentProxy(inv.Context())
		return inv.Proceed()
	})
	assert.Nil(t, support.AddAdvice(probe))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	_, err = proxy.Invoke(context.Background(), "Foo")
	assert.Nil(t, err)
	assert.False(t, found)
}

func TestBindMethod(t *testing.T) {
	support := newTestSupport(t, &calcService{})
	var log []string
	assert.Nil(t, support.AddAdvisor(NewOrderedAdvisor(nil, &recordingBefore{log: &log, name: "bound"}, 0)))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)

	var add func(a, b int) int
	assert.Nil(t, proxy.BindMethod("Add", &add))
	assert.Equal(t, 3, add(1, 2))
	assert.Equal(t, []string{"bound"}, log)

	var div func(a, b int) (int, error)
	assert.Nil(t, proxy.BindMethod("Div", &div))
	v, derr := div(10, 2)
	assert.Nil(t, derr)
	assert.Equal(t, 5, v)
	_, derr = div(1, 0)
	assert.Equal(t, errDivZero, derr)

	var missing func()
	err = proxy.BindMethod("Nope", &missing)
	assert.True(t, errors.Is(err, types.ErrUnknownMethod))

	err = proxy.BindMethod("Add", add)
	assert.NotNil(t, err, "fnPtr must be a pointer")
}

func TestPointcutEvaluationFailureSurfaces(t *testing.T) {
	support := newTestSupport(t, &calcService{})
	// methodName is a string, not a bool: evaluation fails at resolution.
	pc, err := pointcut.NewExpression(`methodName`)
	assert.Nil(t, err)
	assert.Nil(t, support.AddAdvisor(NewOrderedAdvisor(pc, interceptorFunc(nil), 0)))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	_, err = proxy.Invoke(context.Background(), "Foo")
	assert.True(t, errors.Is(err, types.ErrPointcutEvaluation))
}

func TestUnknownAdviceKindSurfaces(t *testing.T) {
	support := newTestSupport(t, &calcService{})
	assert.Nil(t, support.AddAdvice("definitely not advice"))

	proxy, err := NewProxy(support)
	assert.Nil(t, err)
	_, err = proxy.Invoke(context.Background(), "Foo")
	assert.True(t, errors.Is(err, types.ErrUnknownAdviceType))
}

func TestUnknownMethod(t *testing.T) {
	proxy, err := NewProxy(newTestSupport(t, &calcService{}))
	assert.Nil(t, err)
	_, err = proxy.Invoke(context.Background(), "NoSuchMethod")
	assert.True(t, errors.Is(err, types.ErrUnknownMethod))
}
