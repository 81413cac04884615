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
	"fmt"
	"reflect"

	"github.com/gofrs/uuid/v5"

	"github.com/weavego/weavego/api/types"
	reflectutil "github.com/weavego/weavego/utils/reflect"
)

// NewProxy builds a proxy for the given configuration, selecting the strategy
// automatically:
//
//   - the interface-based proxy when proxyable interfaces are declared and
//     neither ProxyTargetClass nor Optimize is set. It exposes exactly the
//     declared and introduced interface methods and hides the concrete type.
//   - the class-based proxy otherwise. It exposes the full exported method
//     set of the concrete target type.
//
// Introduction advisors whose class filter matches the target type contribute
// their interfaces to the proxy; their delegates serve the introduced methods.
//
// NewProxy 为给定配置构建代理并自动选择策略：
//
//   - 当声明了可代理接口且未设置 ProxyTargetClass 和 Optimize 时使用基于接口的
//     代理。它只暴露声明的和引入的接口方法，并隐藏具体类型。
//   - 其余情况使用基于类的代理。它暴露具体目标类型的全部导出方法集。
//
// 类过滤器匹配目标类型的引入增强器会把自己的接口贡献给代理，由其委托对象服务
// 被引入的方法。
func NewProxy(cfg *AdvisedSupport) (types.Proxy, error) {
	source := cfg.TargetSource()
	targetType := source.TargetType()

	var staticTarget interface{}
	if source.IsStatic() {
		t, err := source.GetTarget()
		if err != nil {
			return nil, err
		}
		staticTarget = t
		if targetType == nil {
			targetType = reflect.TypeOf(t)
		}
	}

	interfaces := cfg.Interfaces()
	classProxy := cfg.ProxyTargetClass || cfg.Optimize || len(interfaces) == 0

	// Only the class-based strategy needs a resolvable concrete type up
	// front; an interface proxy over a dynamic source may not know its
	// target type until the first acquisition.
	if classProxy {
		if targetType == nil {
			return nil, fmt.Errorf("%w: target source %T declares no target type", types.ErrNoTargetClass, source)
		}
		if reflectutil.IndirectType(targetType).Kind() == reflect.Interface {
			return nil, fmt.Errorf("%w: %v is not a concrete type", types.ErrNoTargetClass, targetType)
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	p := &proxy{
		cfg:          cfg,
		id:           id.String(),
		classProxy:   classProxy,
		targetType:   targetType,
		staticTarget: staticTarget,
		methods:      make(map[string]*methodBinding),
	}

	if classProxy {
		for _, m := range reflectutil.Methods(targetType) {
			p.methods[m.Name] = &methodBinding{method: m}
		}
	} else {
		for _, iface := range interfaces {
			if targetType != nil && !reflectutil.Implements(targetType, iface) {
				return nil, fmt.Errorf("target type %v does not implement %v", targetType, iface)
			}
			p.interfaces = append(p.interfaces, iface)
			for _, im := range reflectutil.InterfaceMethods(iface) {
				if _, exists := p.methods[im.Name]; exists {
					continue
				}
				// Bind the concrete method so matchers see the real
				// receiver signature, not the interface one.
				if targetType != nil {
					if cm, ok := targetType.MethodByName(im.Name); ok {
						p.methods[im.Name] = &methodBinding{method: cm}
						continue
					}
				}
				p.methods[im.Name] = &methodBinding{method: im}
			}
		}
	}

	if err := p.applyIntroductions(); err != nil {
		return nil, err
	}

	// A frozen configuration never changes again, so every chain can be
	// resolved up front and calls only pay the cached lookup.
	if cfg.IsFrozen() {
		chainType := targetType
		if staticTarget != nil {
			chainType = reflect.TypeOf(staticTarget)
		}
		if chainType != nil {
			for _, b := range p.methods {
				if b.delegate != nil {
					continue
				}
				if _, err := cfg.InterceptorChain(b.method, chainType); err != nil {
					return nil, err
				}
			}
		}
	}
	return p, nil
}

// methodBinding maps one dispatchable method name to its reflect.Method and,
// for introduced methods, the delegate that serves it.
type methodBinding struct {
	method   reflect.Method
	delegate interface{}
}

type proxy struct {
	cfg          *AdvisedSupport
	id           string
	classProxy   bool
	targetType   reflect.Type
	staticTarget interface{}
	interfaces   []reflect.Type
	methods      map[string]*methodBinding
}

var _ types.Proxy = (*proxy)(nil)

func (p *proxy) applyIntroductions() error {
	for _, advisor := range p.cfg.Advisors() {
		ia, ok := advisor.(types.IntroductionAdvisor)
		if !ok {
			continue
		}
		// Without a resolved target type the filter cannot be consulted;
		// an introduction attached to this configuration then applies.
		if p.targetType != nil && !ia.ClassFilter().Matches(p.targetType) {
			continue
		}
		if err := ia.ValidateInterfaces(); err != nil {
			return err
		}
		delegate := ia.Advice()
		delegateType := reflect.TypeOf(delegate)
		for _, iface := range ia.Interfaces() {
			p.interfaces = append(p.interfaces, iface)
			for _, im := range reflectutil.InterfaceMethods(iface) {
				if _, exists := p.methods[im.Name]; exists {
					// Target methods shadow introduced ones.
					continue
				}
				dm, ok := delegateType.MethodByName(im.Name)
				if !ok {
					return fmt.Errorf("%w: %T has no method %s", types.ErrIntroductionNotImplemented, delegate, im.Name)
				}
				p.methods[im.Name] = &methodBinding{method: dm, delegate: delegate}
			}
		}
	}
	return nil
}

// Invoke dispatches one call through the interceptor chain. The target is
// acquired once per outer call; dynamic targets are released exactly once
// when the call unwinds, whether it returned, failed or panicked.
func (p *proxy) Invoke(ctx context.Context, methodName string, args ...interface{}) ([]interface{}, error) {
	binding, ok := p.methods[methodName]
	if !ok {
		return nil, fmt.Errorf("%w: %s on proxy for %v", types.ErrUnknownMethod, methodName, p.targetType)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if p.cfg.IsExposeProxy() {
		ctx = exposeProxy(ctx, p)
	}

	if binding.delegate != nil {
		// Introduced methods go straight to the delegate.
		inv := newMethodInvocation(ctx, p, binding.delegate, reflect.TypeOf(binding.delegate),
			binding.method, args, nil)
		return inv.Proceed()
	}

	source := p.cfg.TargetSource()
	target := p.staticTarget
	if target == nil {
		t, err := source.GetTarget()
		if err != nil {
			return nil, err
		}
		target = t
		defer func() {
			if rerr := source.ReleaseTarget(t); rerr != nil {
				p.cfg.Config().Logger.Printf("release target of %v failed: %v", p.targetType, rerr)
			}
		}()
	}

	targetType := reflect.TypeOf(target)
	chain, err := p.cfg.InterceptorChain(binding.method, targetType)
	if err != nil {
		return nil, err
	}
	inv := newMethodInvocation(ctx, p, target, targetType, binding.method, args, chain)
	return inv.Proceed()
}

// BindMethod builds a typed facade over Invoke: fnPtr must point to a func
// variable whose parameter list mirrors the method's and whose returns are
// the method's returns, optionally ending with an error that receives the
// invocation error.
func (p *proxy) BindMethod(methodName string, fnPtr interface{}) error {
	binding, ok := p.methods[methodName]
	if !ok {
		return fmt.Errorf("%w: %s on proxy for %v", types.ErrUnknownMethod, methodName, p.targetType)
	}
	pv := reflect.ValueOf(fnPtr)
	if !pv.IsValid() || pv.Kind() != reflect.Ptr || pv.Elem().Kind() != reflect.Func {
		return fmt.Errorf("fnPtr must be a pointer to a func variable, got %T", fnPtr)
	}
	fnType := pv.Elem().Type()
	wantIn := binding.method.Type.NumIn() - 1
	if fnType.NumIn() != wantIn {
		return fmt.Errorf("signature mismatch for %s: want %d parameters, got %d", methodName, wantIn, fnType.NumIn())
	}

	errOut := fnType.NumOut() > 0 && fnType.Out(fnType.NumOut()-1) == reflectutil.ErrorType()

	impl := reflect.MakeFunc(fnType, func(in []reflect.Value) []reflect.Value {
		args := make([]interface{}, len(in))
		for i, v := range in {
			args[i] = v.Interface()
		}
		results, err := p.Invoke(context.Background(), methodName, args...)

		out := make([]reflect.Value, fnType.NumOut())
		numValues := fnType.NumOut()
		if errOut {
			numValues--
			if err != nil {
				out[numValues] = reflect.ValueOf(&err).Elem()
			} else {
				out[numValues] = reflect.Zero(reflectutil.ErrorType())
			}
		} else if err != nil {
			panic(err)
		}
		for i := 0; i < numValues; i++ {
			outType := fnType.Out(i)
			if i < len(results) && results[i] != nil {
				rv := reflect.ValueOf(results[i])
				if rv.Type().AssignableTo(outType) {
					out[i] = rv
				} else if rv.Type().ConvertibleTo(outType) {
					out[i] = rv.Convert(outType)
				} else {
					out[i] = reflect.Zero(outType)
				}
			} else {
				out[i] = reflect.Zero(outType)
			}
		}
		return out
	})
	pv.Elem().Set(impl)
	return nil
}

func (p *proxy) Implements(iface reflect.Type) bool {
	if iface == nil || iface.Kind() != reflect.Interface {
		return false
	}
	for _, declared := range p.interfaces {
		if declared == iface {
			return true
		}
	}
	if p.classProxy {
		return reflectutil.Implements(p.targetType, iface)
	}
	return false
}

func (p *proxy) ProxiedInterfaces() []reflect.Type {
	out := make([]reflect.Type, len(p.interfaces))
	copy(out, p.interfaces)
	return out
}

func (p *proxy) TargetClass() reflect.Type {
	if p.classProxy {
		return p.targetType
	}
	return nil
}

func (p *proxy) IsClassProxy() bool { return p.classProxy }
func (p *proxy) ProxyId() string    { return p.id }
